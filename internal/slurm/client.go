// Package slurm is the thin layer between the screening pipeline and the
// cluster scheduler: array submission, single-task resubmission, and
// active-task queries. Everything else in the system sees the Scheduler
// interface, never sbatch/squeue directly.
package slurm

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
)

// QueryError reports an unreachable or failing scheduler query. Fatal to a
// monitoring pass; the operator retries.
type QueryError struct {
	Op  string
	Err error
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("slurm: %s: %v", e.Op, e.Err)
}

func (e *QueryError) Unwrap() error { return e.Err }

// Scheduler is the consumed scheduler interface: submit an array job,
// resubmit one task, and query which task indices are still active.
type Scheduler interface {
	SubmitArray(ctx context.Context, spec ArraySpec) (jobID string, err error)
	SubmitTask(ctx context.Context, spec TaskSpec) (jobID string, err error)
	ActiveTasks(ctx context.Context, jobID string) (map[int]bool, error)
}

var submittedRe = regexp.MustCompile(`Submitted batch job (\d+)`)

// Client talks to SLURM through the sbatch and squeue binaries.
type Client struct {
	SbatchBin string
	SqueueBin string

	// run is replaceable in tests.
	run func(ctx context.Context, name string, args ...string) ([]byte, error)
}

// NewClient locates sbatch and squeue in PATH.
func NewClient() (*Client, error) {
	sbatch, err := exec.LookPath("sbatch")
	if err != nil {
		return nil, &QueryError{Op: "locate sbatch", Err: err}
	}
	squeue, err := exec.LookPath("squeue")
	if err != nil {
		return nil, &QueryError{Op: "locate squeue", Err: err}
	}
	return &Client{SbatchBin: sbatch, SqueueBin: squeue}, nil
}

func (c *Client) exec(ctx context.Context, name string, args ...string) ([]byte, error) {
	if c.run != nil {
		return c.run(ctx, name, args...)
	}
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stderr = os.Stderr
	return cmd.Output()
}

// submitScript writes the rendered script next to the submission dir, runs
// sbatch on it and removes it again, returning the parsed job id.
func (c *Client) submitScript(ctx context.Context, scriptName, script string) (string, error) {
	if err := os.WriteFile(scriptName, []byte(script), 0755); err != nil {
		return "", err
	}
	defer os.Remove(scriptName)

	out, err := c.exec(ctx, c.SbatchBin, scriptName)
	if err != nil {
		return "", &QueryError{Op: "sbatch " + scriptName, Err: err}
	}
	m := submittedRe.FindStringSubmatch(string(out))
	if m == nil {
		return "", &QueryError{Op: "sbatch " + scriptName, Err: fmt.Errorf("no job id in output %q", strings.TrimSpace(string(out)))}
	}
	return m[1], nil
}

// SubmitArray renders and submits the array job whose task indices map
// one-to-one onto partition files.
func (c *Client) SubmitArray(ctx context.Context, spec ArraySpec) (string, error) {
	script, err := RenderArrayScript(spec)
	if err != nil {
		return "", err
	}
	return c.submitScript(ctx, fmt.Sprintf("submit_%s.sh", spec.JobName), script)
}

// SubmitTask renders and submits a single-task replacement job for one
// partition index.
func (c *Client) SubmitTask(ctx context.Context, spec TaskSpec) (string, error) {
	script, err := RenderTaskScript(spec)
	if err != nil {
		return "", err
	}
	return c.submitScript(ctx, fmt.Sprintf("resubmit_%s_%d.sh", spec.JobName, spec.TaskIndex), script)
}

// ActiveTasks returns the task indices of jobID currently running or
// pending. Pending array members are reported by squeue as compact ranges
// ("123_[4-7,9]"), which are expanded here.
func (c *Client) ActiveTasks(ctx context.Context, jobID string) (map[int]bool, error) {
	out, err := c.exec(ctx, c.SqueueBin, "-j", jobID, "--noheader", "--format=%i")
	if err != nil {
		return nil, &QueryError{Op: "squeue -j " + jobID, Err: err}
	}
	return ParseTaskIndices(string(out))
}

// ParseTaskIndices parses squeue %i output lines ("123_5", "123_[1-3,7]")
// into the set of active task indices. Lines for other job id formats are
// ignored.
func ParseTaskIndices(out string) (map[int]bool, error) {
	active := make(map[int]bool)
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		_, idxPart, ok := strings.Cut(line, "_")
		if !ok {
			continue
		}
		if err := expandIndexSpec(idxPart, active); err != nil {
			return nil, &QueryError{Op: "parse squeue output", Err: err}
		}
	}
	return active, nil
}

func expandIndexSpec(spec string, into map[int]bool) error {
	spec = strings.TrimPrefix(spec, "[")
	spec = strings.TrimSuffix(spec, "]")
	// a trailing "%n" throttle can follow the range list
	if i := strings.IndexByte(spec, '%'); i >= 0 {
		spec = spec[:i]
	}
	for _, piece := range strings.Split(spec, ",") {
		piece = strings.TrimSpace(piece)
		if piece == "" {
			continue
		}
		lo, hi, isRange := strings.Cut(piece, "-")
		start, err := strconv.Atoi(lo)
		if err != nil {
			return fmt.Errorf("bad task index %q", piece)
		}
		end := start
		if isRange {
			end, err = strconv.Atoi(hi)
			if err != nil {
				return fmt.Errorf("bad task range %q", piece)
			}
		}
		for i := start; i <= end; i++ {
			into[i] = true
		}
	}
	return nil
}
