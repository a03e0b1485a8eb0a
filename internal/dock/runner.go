package dock

import (
	"context"
	"errors"
	"log"
	"os"
	"path/filepath"

	"github.com/eternal-flame-AD/slurm-vs-screen/internal/chem"
	"github.com/eternal-flame-AD/slurm-vs-screen/internal/config"
	"github.com/eternal-flame-AD/slurm-vs-screen/internal/workdir"
)

// TaskRunner executes one array task: every molecule of its partition,
// strictly sequentially, appending a SMILES,score row to the task output
// file as each docking completes. Per-molecule failures are logged and
// leave no row; they surface later as unfinished molecules.
type TaskRunner struct {
	Cfg    *config.RunConfig
	Layout workdir.Layout
	Conv   chem.Converter
	Energy chem.EnergyChecker
	Docker Docker
}

// Run processes the partition for taskIndex. It only errors when the
// partition file itself cannot be read; docking failures never abort the
// task.
func (r *TaskRunner) Run(ctx context.Context, taskIndex int) error {
	partPath := r.Layout.PartitionPath(taskIndex)
	smiles, _, err := workdir.ReadMoleculeList(partPath)
	if err != nil {
		return err
	}
	log.Printf("task %d: %d molecules from %s", taskIndex, len(smiles), partPath)

	outPath := r.Layout.OutputPath(taskIndex)
	done := 0
	for _, smi := range smiles {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := r.dockOne(ctx, smi, outPath); err != nil {
			log.Printf("task %d: %v", taskIndex, err)
			continue
		}
		done++
	}
	log.Printf("task %d: %d/%d molecules scored", taskIndex, done, len(smiles))
	return nil
}

// dockOne converts, quality-checks and docks a single molecule, then
// applies the pose retention policy. The output row is appended before the
// pose files are dealt with, so a crash mid-retention still counts the
// molecule as done.
func (r *TaskRunner) dockOne(ctx context.Context, smi, outPath string) error {
	ligFile := filepath.Join(r.Layout.WorkDir, uniqueFileName("lig", "pdbqt"))
	poseFile := filepath.Join(r.Layout.WorkDir, uniqueFileName("pose", "pdbqt"))

	if err := r.Conv.Convert(ctx, smi, ligFile); err != nil {
		removeIfExists(ligFile, poseFile)
		return err
	}
	if e := r.Energy.Energy(ctx, ligFile); e >= chem.FailedEnergy {
		removeIfExists(ligFile, poseFile)
		return &DockingError{SMILES: smi, Err: errUnstableGeometry}
	}

	score, err := r.Docker.Dock(ctx, ligFile, poseFile)
	if err != nil {
		removeIfExists(ligFile, poseFile)
		return &DockingError{SMILES: smi, Err: err}
	}

	if err := workdir.AppendResult(outPath, smi, score); err != nil {
		removeIfExists(ligFile, poseFile)
		return err
	}

	if score <= r.Cfg.ScoreThreshold {
		r.retainPose(ligFile, poseFile)
	} else {
		removeIfExists(ligFile, poseFile)
	}
	return nil
}

// retainPose moves the ligand and pose files into the pose archive. A
// failed move only loses the artifact, never the score row.
func (r *TaskRunner) retainPose(ligFile, poseFile string) {
	if err := os.MkdirAll(r.Layout.PoseDir(), 0755); err != nil {
		log.Printf("cannot create pose dir: %v", err)
		return
	}
	for _, f := range []string{ligFile, poseFile} {
		dst := filepath.Join(r.Layout.PoseDir(), filepath.Base(f))
		if err := os.Rename(f, dst); err != nil {
			log.Printf("cannot archive %s: %v", f, err)
		}
	}
}

var errUnstableGeometry = errors.New("unstable geometry, energy check failed")
