// Package dock runs the per-molecule docking routine on a compute node:
// geometry conversion, structure quality check, the docking executor
// itself, and the append-as-you-go output contract that crash detection
// relies on.
package dock

import (
	"context"
	"fmt"
	"math"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/eternal-flame-AD/slurm-vs-screen/internal/config"
)

// DockingError reports a failed or unusable docking attempt for one
// molecule. Per-molecule: the task logs it and moves on.
type DockingError struct {
	SMILES string
	Err    error
}

func (e *DockingError) Error() string {
	return fmt.Sprintf("dock %q: %v", e.SMILES, e.Err)
}

func (e *DockingError) Unwrap() error { return e.Err }

// Docker is the consumed docking-executor interface: dock a ligand file
// against the configured receptor and box, writing the best pose to
// poseFile and returning its score (more negative is better).
type Docker interface {
	Dock(ctx context.Context, ligandFile, poseFile string) (float64, error)
}

// QVina shells out to the QuickVina binary with a fixed receptor and box.
type QVina struct {
	Bin            string
	Receptor       string
	Center         [3]float64
	Size           [3]float64
	Exhaustiveness int

	// run is replaceable in tests.
	run func(ctx context.Context, name string, args ...string) ([]byte, error)
}

// NewQVina builds the executor wrapper from the run config.
func NewQVina(cfg *config.RunConfig) *QVina {
	return &QVina{
		Bin:            cfg.QVinaBin,
		Receptor:       cfg.Receptor,
		Center:         cfg.Center,
		Size:           cfg.Size,
		Exhaustiveness: cfg.Exhaustiveness,
	}
}

func (q *QVina) exec(ctx context.Context, name string, args ...string) ([]byte, error) {
	if q.run != nil {
		return q.run(ctx, name, args...)
	}
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stderr = nil
	return cmd.Output()
}

func ftoa(f float64) string { return strconv.FormatFloat(f, 'f', -1, 64) }

// Dock runs one docking and returns the best score found in the executor's
// result table.
func (q *QVina) Dock(ctx context.Context, ligandFile, poseFile string) (float64, error) {
	out, err := q.exec(ctx, q.Bin,
		"--receptor", q.Receptor,
		"--ligand", ligandFile,
		"--center_x", ftoa(q.Center[0]),
		"--center_y", ftoa(q.Center[1]),
		"--center_z", ftoa(q.Center[2]),
		"--size_x", ftoa(q.Size[0]),
		"--size_y", ftoa(q.Size[1]),
		"--size_z", ftoa(q.Size[2]),
		"--exhaustiveness", strconv.Itoa(q.Exhaustiveness),
		"--out", poseFile,
	)
	if err != nil {
		return 0, err
	}
	return ParseBestScore(string(out))
}

// ParseBestScore extracts the lowest docking score from the executor's
// mode table: rows of four fields whose first field is the mode number.
func ParseBestScore(out string) (float64, error) {
	best := math.Inf(1)
	for _, line := range strings.Split(out, "\n") {
		parts := strings.Fields(line)
		if len(parts) != 4 {
			continue
		}
		if _, err := strconv.Atoi(parts[0]); err != nil {
			continue
		}
		score, err := strconv.ParseFloat(parts[1], 64)
		if err != nil {
			continue
		}
		if score < best {
			best = score
		}
	}
	if math.IsInf(best, 1) {
		return 0, fmt.Errorf("no scored poses in executor output")
	}
	return best, nil
}

// uniqueFileName returns base_<timestamp>_<uuid>.ext, collision-free across
// the parallel tasks sharing one filesystem.
func uniqueFileName(base, ext string) string {
	return fmt.Sprintf("%s_%d_%s.%s", base, time.Now().UnixMilli(), uuid.New().String(), ext)
}

func removeIfExists(paths ...string) {
	for _, p := range paths {
		if p == "" {
			continue
		}
		if _, err := os.Stat(p); err == nil {
			os.Remove(p)
		}
	}
}
