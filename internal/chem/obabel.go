package chem

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

// FailedEnergy is the sentinel the energy check returns when obenergy
// cannot produce a total energy; geometries at or above it are treated as
// unstable and skipped.
const FailedEnergy = 10000

// Converter turns a SMILES string into a 3D ligand structure file ready
// for docking.
type Converter interface {
	Convert(ctx context.Context, smiles, outFile string) error
}

// EnergyChecker scores the structural quality of a generated ligand file.
type EnergyChecker interface {
	Energy(ctx context.Context, ligandFile string) float64
}

// OpenBabel shells out to the obabel/obenergy binaries. The zero value
// uses the binaries from PATH and no timeout.
type OpenBabel struct {
	ObabelBin   string
	ObenergyBin string
	Timeout     time.Duration

	// run is replaceable in tests.
	run func(ctx context.Context, name string, args ...string) ([]byte, error)
}

// NewOpenBabel returns a toolkit wrapper with the given per-invocation
// timeout. A zero timeout means none.
func NewOpenBabel(timeout time.Duration) *OpenBabel {
	return &OpenBabel{ObabelBin: "obabel", ObenergyBin: "obenergy", Timeout: timeout}
}

func (o *OpenBabel) exec(ctx context.Context, name string, args ...string) ([]byte, error) {
	if o.run != nil {
		return o.run(ctx, name, args...)
	}
	if o.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.Timeout)
		defer cancel()
	}
	return exec.CommandContext(ctx, name, args...).Output()
}

// Convert generates a 3D structure for smiles at outFile using the fastest
// gen3d level, matching what the screening pipeline feeds to the docking
// executor. Failure is a *ConversionError; the partial output file is
// removed.
func (o *OpenBabel) Convert(ctx context.Context, smiles, outFile string) error {
	_, err := o.exec(ctx, o.ObabelBin, "-ismi", "-:"+smiles, "-O", outFile, "--gen3d", "fastest")
	if err != nil {
		os.Remove(outFile)
		return &ConversionError{SMILES: smiles, Err: err}
	}
	if fi, statErr := os.Stat(outFile); statErr != nil || fi.Size() == 0 {
		os.Remove(outFile)
		return &ConversionError{SMILES: smiles, Err: fmt.Errorf("obabel produced no output")}
	}
	return nil
}

// Energy runs obenergy on a ligand file and returns its total energy in
// kcal/mol, or FailedEnergy when the calculation fails. The value is a
// quality gate only, never a docking score.
func (o *OpenBabel) Energy(ctx context.Context, ligandFile string) float64 {
	out, err := o.exec(ctx, o.ObenergyBin, ligandFile)
	if err != nil {
		return FailedEnergy
	}
	return ParseTotalEnergy(string(out))
}

// ParseTotalEnergy extracts the total energy from obenergy output. The
// value sits on the last non-empty line, second field from the end
// ("TOTAL ENERGY = -12.3 kcal/mol").
func ParseTotalEnergy(out string) float64 {
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) == 0 {
		return FailedEnergy
	}
	fields := strings.Fields(lines[len(lines)-1])
	if len(fields) < 2 {
		return FailedEnergy
	}
	v, err := strconv.ParseFloat(fields[len(fields)-2], 64)
	if err != nil {
		return FailedEnergy
	}
	return v
}
