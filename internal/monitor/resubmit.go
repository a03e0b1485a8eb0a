package monitor

import (
	"context"
	"log"
	"os"

	"github.com/eternal-flame-AD/slurm-vs-screen/internal/config"
	"github.com/eternal-flame-AD/slurm-vs-screen/internal/slurm"
	"github.com/eternal-flame-AD/slurm-vs-screen/internal/workdir"
)

// TaskSubmitter is the slice of the scheduler interface the resubmitter
// needs.
type TaskSubmitter interface {
	SubmitTask(ctx context.Context, spec slurm.TaskSpec) (string, error)
}

// Resubmitter replaces crashed tasks with smaller ones covering only the
// molecules their partial output is missing.
type Resubmitter struct {
	Cfg       *config.RunConfig
	Layout    workdir.Layout
	Sched     TaskSubmitter
	WorkerBin string
}

// Resubmit handles one crashed task: compute the missing molecules as a
// set difference against the rows already on disk (row order is not
// trusted), fold the partial rows into the combined output so they survive,
// rewrite the partition file to just the missing work, delete the stale
// task output, and submit a fresh single task under the same index.
// Returns the new scheduler job id and the size of the replacement
// partition.
func (r *Resubmitter) Resubmit(ctx context.Context, rec TaskRecord) (jobID string, missing int, err error) {
	partPath := r.Layout.PartitionPath(rec.TaskIndex)
	part, _, err := workdir.ReadMoleculeList(partPath)
	if err != nil {
		return "", 0, err
	}

	outPath := r.Layout.OutputPath(rec.TaskIndex)
	rows, err := workdir.ReadResults(outPath)
	if err != nil {
		return "", 0, err
	}
	scored := workdir.ScoredSet(rows)

	var remaining []string
	for _, smi := range part {
		if !scored[smi] {
			remaining = append(remaining, smi)
		}
	}

	if len(rows) > 0 {
		if err := MergeRows(r.Layout.CombinedPath(), rows); err != nil {
			return "", 0, err
		}
	}
	if err := os.Remove(outPath); err != nil && !os.IsNotExist(err) {
		return "", 0, err
	}

	if len(remaining) == 0 {
		// every molecule made it to disk before the crash; nothing to rerun
		return "", 0, nil
	}

	if err := workdir.WritePartition(partPath, remaining); err != nil {
		return "", 0, err
	}

	jobID, err = r.Sched.SubmitTask(ctx, slurm.TaskSpec{
		JobName:   "dockresub",
		TaskIndex: rec.TaskIndex,
		WorkerBin: r.WorkerBin,
		CtrlFile:  r.Cfg.Path(),
		Account:   r.Cfg.SlurmAccount,
		Time:      r.Cfg.SlurmTime,
		Mem:       r.Cfg.SlurmMem,
		Modules:   r.Cfg.SlurmModules,
	})
	if err != nil {
		return "", 0, err
	}
	log.Printf("task %d resubmitted as job %s with %d/%d molecules remaining",
		rec.TaskIndex, jobID, len(remaining), len(part))
	return jobID, len(remaining), nil
}

// ResubmitAll processes every crashed task and returns the new job ids by
// task index.
func (r *Resubmitter) ResubmitAll(ctx context.Context, crashed []TaskRecord) (map[int]string, error) {
	jobs := make(map[int]string, len(crashed))
	for _, rec := range crashed {
		jobID, n, err := r.Resubmit(ctx, rec)
		if err != nil {
			return jobs, err
		}
		if n > 0 {
			jobs[rec.TaskIndex] = jobID
		}
	}
	return jobs, nil
}
