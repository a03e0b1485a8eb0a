package slurm

import (
	"os"
	"strconv"
)

// TaskContext identifies the array task a worker process is running as,
// read from the SLURM_* environment on the compute node.
type TaskContext struct {
	JobID     string
	TaskIndex int
}

// FromEnv reads SLURM_ARRAY_JOB_ID and SLURM_ARRAY_TASK_ID. ok is false
// when the process is not inside an array task, e.g. when run by hand with
// an explicit -task flag.
func FromEnv() (tc TaskContext, ok bool) {
	jobID := os.Getenv("SLURM_ARRAY_JOB_ID")
	taskStr := os.Getenv("SLURM_ARRAY_TASK_ID")
	if taskStr == "" {
		return TaskContext{}, false
	}
	idx, err := strconv.Atoi(taskStr)
	if err != nil || idx <= 0 {
		return TaskContext{}, false
	}
	return TaskContext{JobID: jobID, TaskIndex: idx}, true
}
