package dock

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eternal-flame-AD/slurm-vs-screen/internal/chem"
	"github.com/eternal-flame-AD/slurm-vs-screen/internal/config"
	"github.com/eternal-flame-AD/slurm-vs-screen/internal/workdir"
)

type fakeConverter struct {
	failFor map[string]bool
}

func (f *fakeConverter) Convert(_ context.Context, smiles, outFile string) error {
	if f.failFor[smiles] {
		return &chem.ConversionError{SMILES: smiles, Err: errors.New("gen3d failed")}
	}
	return os.WriteFile(outFile, []byte("LIGAND "+smiles), 0644)
}

type fakeEnergy struct {
	unstable map[string]bool
}

func (f *fakeEnergy) Energy(_ context.Context, ligandFile string) float64 {
	data, err := os.ReadFile(ligandFile)
	if err != nil {
		return chem.FailedEnergy
	}
	smi := string(data[len("LIGAND "):])
	if f.unstable[smi] {
		return chem.FailedEnergy
	}
	return 42.0
}

type fakeDocker struct {
	scores  map[string]float64
	failFor map[string]bool
}

func (f *fakeDocker) Dock(_ context.Context, ligandFile, poseFile string) (float64, error) {
	data, err := os.ReadFile(ligandFile)
	if err != nil {
		return 0, err
	}
	smi := string(data[len("LIGAND "):])
	if f.failFor[smi] {
		return 0, errors.New("executor crashed")
	}
	if err := os.WriteFile(poseFile, []byte("POSE "+smi), 0644); err != nil {
		return 0, err
	}
	return f.scores[smi], nil
}

func newTestRunner(t *testing.T, threshold float64) (*TaskRunner, *fakeConverter, *fakeEnergy, *fakeDocker) {
	t.Helper()
	dir := t.TempDir()
	layout := workdir.Layout{DataDir: filepath.Join(dir, "DATA"), WorkDir: dir}
	require.NoError(t, layout.EnsureDirs())

	conv := &fakeConverter{failFor: map[string]bool{}}
	energy := &fakeEnergy{unstable: map[string]bool{}}
	docker := &fakeDocker{scores: map[string]float64{}, failFor: map[string]bool{}}
	runner := &TaskRunner{
		Cfg:    &config.RunConfig{ScoreThreshold: threshold},
		Layout: layout,
		Conv:   conv,
		Energy: energy,
		Docker: docker,
	}
	return runner, conv, energy, docker
}

func writeTaskPartition(t *testing.T, layout workdir.Layout, idx int, smiles []string) {
	t.Helper()
	require.NoError(t, workdir.WritePartition(layout.PartitionPath(idx), smiles))
}

func TestRunAppendsRowsInPartitionOrder(t *testing.T) {
	runner, _, _, docker := newTestRunner(t, -11.0)
	writeTaskPartition(t, runner.Layout, 1, []string{"CCO", "NN", "c1ccccc1"})
	docker.scores = map[string]float64{"CCO": -9.0, "NN": -12.0, "c1ccccc1": -7.5}

	require.NoError(t, runner.Run(context.Background(), 1))

	rows, err := workdir.ReadResults(runner.Layout.OutputPath(1))
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "CCO", rows[0].SMILES)
	assert.Equal(t, "NN", rows[1].SMILES)
	assert.Equal(t, "c1ccccc1", rows[2].SMILES)
	assert.Equal(t, -12.0, rows[1].Score)
}

func TestRunSkipsFailedMolecules(t *testing.T) {
	runner, conv, energy, docker := newTestRunner(t, -11.0)
	writeTaskPartition(t, runner.Layout, 2, []string{"bad1", "CCO", "bad2", "NN", "bad3"})
	conv.failFor["bad1"] = true
	energy.unstable["bad2"] = true
	docker.failFor["bad3"] = true
	docker.scores = map[string]float64{"CCO": -9.0, "NN": -8.0}

	require.NoError(t, runner.Run(context.Background(), 2))

	rows, err := workdir.ReadResults(runner.Layout.OutputPath(2))
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "CCO", rows[0].SMILES)
	assert.Equal(t, "NN", rows[1].SMILES)

	// failed molecules leave no temporaries behind
	strays, err := runner.Layout.StrayTempFiles()
	require.NoError(t, err)
	assert.Empty(t, strays)
}

func TestPoseRetentionByThreshold(t *testing.T) {
	runner, _, _, docker := newTestRunner(t, -11.0)
	writeTaskPartition(t, runner.Layout, 3, []string{"good", "poor"})
	docker.scores = map[string]float64{"good": -12.0, "poor": -9.0}

	require.NoError(t, runner.Run(context.Background(), 3))

	archived, err := filepath.Glob(filepath.Join(runner.Layout.PoseDir(), "pose_*.pdbqt"))
	require.NoError(t, err)
	require.Len(t, archived, 1, "only the -12.0 pose beats the -11.0 threshold")
	data, err := os.ReadFile(archived[0])
	require.NoError(t, err)
	assert.Equal(t, "POSE good", string(data))

	// the poor pose and both rows still end up recorded
	strays, err := runner.Layout.StrayTempFiles()
	require.NoError(t, err)
	assert.Empty(t, strays)
	rows, err := workdir.ReadResults(runner.Layout.OutputPath(3))
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}

func TestPoseRetainedAtExactThreshold(t *testing.T) {
	runner, _, _, docker := newTestRunner(t, -11.0)
	writeTaskPartition(t, runner.Layout, 4, []string{"edge"})
	docker.scores = map[string]float64{"edge": -11.0}

	require.NoError(t, runner.Run(context.Background(), 4))

	archived, err := filepath.Glob(filepath.Join(runner.Layout.PoseDir(), "pose_*.pdbqt"))
	require.NoError(t, err)
	assert.Len(t, archived, 1)
}

func TestRunMissingPartition(t *testing.T) {
	runner, _, _, _ := newTestRunner(t, -11.0)
	require.Error(t, runner.Run(context.Background(), 9))
}
