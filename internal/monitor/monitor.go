// Package monitor implements the polling half of the job lifecycle: crash
// detection from scheduler state plus output inspection, resubmission of
// only the unfinished work, and result consolidation. Monitoring is
// stateless: every pass recomputes task states from two idempotent reads
// and nothing here persists between invocations.
//
// None of this may run concurrently with a live dispatcher for the same
// task index; the partition and output files are shared without locks.
package monitor

import (
	"context"
	"fmt"

	"github.com/eternal-flame-AD/slurm-vs-screen/internal/config"
	"github.com/eternal-flame-AD/slurm-vs-screen/internal/workdir"
)

// TaskState classifies one array task during a monitoring pass.
type TaskState int

const (
	StatePending TaskState = iota
	StateRunning
	StateCompleted
	StateCrashed
)

func (s TaskState) String() string {
	switch s {
	case StatePending:
		return "PENDING"
	case StateRunning:
		return "RUNNING"
	case StateCompleted:
		return "COMPLETED"
	case StateCrashed:
		return "CRASHED"
	}
	return fmt.Sprintf("TaskState(%d)", int(s))
}

// TaskRecord is the derived status of one array task. Recomputed each
// pass, never stored.
type TaskRecord struct {
	JobID     string
	TaskIndex int
	State     TaskState
	Expected  int
	Observed  int
}

// TaskQuerier is the slice of the scheduler interface the monitor needs.
type TaskQuerier interface {
	ActiveTasks(ctx context.Context, jobID string) (map[int]bool, error)
}

// Monitor derives per-task state for one submitted array job.
type Monitor struct {
	Cfg    *config.RunConfig
	Layout workdir.Layout
	Sched  TaskQuerier
}

// CheckProgress classifies every task index of jobID. A task still in the
// scheduler queue is RUNNING; absent with as many output rows as partition
// molecules it is COMPLETED; absent with fewer it is CRASHED — including
// the task that died before its first write, which shows up with zero
// observed rows.
func (m *Monitor) CheckProgress(ctx context.Context, jobID string) (map[int]TaskRecord, error) {
	active, err := m.Sched.ActiveTasks(ctx, jobID)
	if err != nil {
		return nil, err
	}

	records := make(map[int]TaskRecord, m.Cfg.MaxNumJobs)
	for idx := 1; idx <= m.Cfg.MaxNumJobs; idx++ {
		rec := TaskRecord{JobID: jobID, TaskIndex: idx}

		part, _, err := workdir.ReadMoleculeList(m.Layout.PartitionPath(idx))
		if err == nil {
			rec.Expected = len(part)
		}
		rec.Observed, err = workdir.CountRows(m.Layout.OutputPath(idx))
		if err != nil {
			return nil, err
		}

		switch {
		case active[idx]:
			rec.State = StateRunning
		case rec.Observed >= rec.Expected:
			rec.State = StateCompleted
		default:
			rec.State = StateCrashed
		}
		records[idx] = rec
	}
	return records, nil
}

// Crashed filters a progress map down to the crashed tasks, ordered by
// index.
func Crashed(records map[int]TaskRecord) []TaskRecord {
	var out []TaskRecord
	for idx := 1; idx <= len(records); idx++ {
		if rec, ok := records[idx]; ok && rec.State == StateCrashed {
			out = append(out, rec)
		}
	}
	return out
}

// AllDone reports whether every task has completed.
func AllDone(records map[int]TaskRecord) bool {
	for _, rec := range records {
		if rec.State != StateCompleted {
			return false
		}
	}
	return true
}
