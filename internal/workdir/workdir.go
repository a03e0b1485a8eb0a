// Package workdir owns the on-disk layout of a screening run: partition
// files, per-task output files, the combined result file and the pose
// archive. Every component reads and writes these files through this
// package so the naming contract lives in one place.
package workdir

import (
	"fmt"
	"os"
	"path/filepath"
)

// Layout locates the files of one run. DataDir holds partitions and the
// combined output (./DATA in the original layout); WorkDir is where tasks
// append their OUTPUT_<idx>.txt files and drop temporary ligand/pose
// files, conventionally the submission directory.
type Layout struct {
	DataDir string
	WorkDir string
}

// NewLayout builds a layout rooted at the configured data directory with
// per-task outputs next to the submission scripts.
func NewLayout(dataDir string) Layout {
	return Layout{DataDir: dataDir, WorkDir: "."}
}

// PartitionPath returns the partition file for a task index (1-based).
func (l Layout) PartitionPath(idx int) string {
	return filepath.Join(l.DataDir, fmt.Sprintf("partition_%d.smi", idx))
}

// OutputPath returns the per-task output file for a task index.
func (l Layout) OutputPath(idx int) string {
	return filepath.Join(l.WorkDir, fmt.Sprintf("OUTPUT_%d.txt", idx))
}

// CombinedPath returns the consolidated result file, appended across
// rounds and never deleted.
func (l Layout) CombinedPath() string {
	return filepath.Join(l.DataDir, "combined_output.txt")
}

// MissingListPath returns the molecule list written for a follow-up round.
func (l Layout) MissingListPath() string {
	return filepath.Join(l.DataDir, "missing_smiles.smi")
}

// PoseDir returns the archive directory for poses that beat the score
// threshold.
func (l Layout) PoseDir() string {
	return filepath.Join(l.WorkDir, "POSES")
}

// OutputFiles lists every per-task output file currently present.
func (l Layout) OutputFiles() ([]string, error) {
	return filepath.Glob(filepath.Join(l.WorkDir, "OUTPUT_*.txt"))
}

// PartitionFiles lists every partition file currently present.
func (l Layout) PartitionFiles() ([]string, error) {
	return filepath.Glob(filepath.Join(l.DataDir, "partition_*.smi"))
}

// StrayTempFiles lists leftover ligand/pose files in the work directory,
// the per-molecule temporaries a crashed task did not clean up.
func (l Layout) StrayTempFiles() ([]string, error) {
	var all []string
	for _, pat := range []string{"lig_*.pdbqt", "pose_*.pdbqt"} {
		m, err := filepath.Glob(filepath.Join(l.WorkDir, pat))
		if err != nil {
			return nil, err
		}
		all = append(all, m...)
	}
	return all, nil
}

// EnsureDirs creates the data and pose directories if needed.
func (l Layout) EnsureDirs() error {
	for _, d := range []string{l.DataDir, l.PoseDir()} {
		if err := os.MkdirAll(d, 0755); err != nil {
			return err
		}
	}
	return nil
}
