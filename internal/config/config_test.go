package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeCtrl(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "all.ctrl")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

const validCtrl = `# screening run
SMILES_FILES=./DATA/docking.smi
NUM_MOLS=105338
RECEPTOR_LOCATION=./DATA/receptor.pdbqt
EXHAUSTIVENESS=2
CENTER_X=10.5
CENTER_Y=-3.0
CENTER_Z=0.25
SIZE_X=20
SIZE_Y=20
SIZE_Z=24
MAX_NUM_JOBS=100
USE_LOAD_BALANCER=True
DOCKING_SCORE_THRESHOLD=-11.0
`

func TestLoad(t *testing.T) {
	cfg, err := Load(writeCtrl(t, validCtrl))
	require.NoError(t, err)

	assert.Equal(t, "./DATA/docking.smi", cfg.SMILESFile)
	assert.Equal(t, 105338, cfg.NumMols)
	assert.Equal(t, 100, cfg.MaxNumJobs)
	assert.Equal(t, 2, cfg.Exhaustiveness)
	assert.True(t, cfg.UseBalancer)
	assert.Equal(t, -11.0, cfg.ScoreThreshold)
	assert.Equal(t, [3]float64{10.5, -3.0, 0.25}, cfg.Center)
	assert.Equal(t, [3]float64{20, 20, 24}, cfg.Size)
}

func TestLoadDefaults(t *testing.T) {
	ctrl := strings.ReplaceAll(validCtrl, "EXHAUSTIVENESS=2\n", "")
	cfg, err := Load(writeCtrl(t, ctrl))
	require.NoError(t, err)

	assert.Equal(t, 1, cfg.Exhaustiveness)
	assert.Equal(t, "./DATA", cfg.DataDir)
	assert.Equal(t, "./DATA/qvina", cfg.QVinaBin)
	assert.Equal(t, 120*time.Second, cfg.ObabelTimeout)
	assert.Equal(t, "12:00:00", cfg.SlurmTime)
	assert.Equal(t, "7000M", cfg.SlurmMem)
	assert.Empty(t, cfg.SlurmModules)
}

func TestLoadSlurmModules(t *testing.T) {
	cfg, err := Load(writeCtrl(t, validCtrl+"SLURM_MODULES=gcc/7.3.0, openbabel\n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"gcc/7.3.0", "openbabel"}, cfg.SlurmModules)
}

func TestLoadErrors(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(string) string
		wantKey string
	}{
		{
			name:    "zero jobs",
			mutate:  func(s string) string { return strings.ReplaceAll(s, "MAX_NUM_JOBS=100", "MAX_NUM_JOBS=0") },
			wantKey: "MAX_NUM_JOBS",
		},
		{
			name:    "missing threshold",
			mutate:  func(s string) string { return strings.ReplaceAll(s, "DOCKING_SCORE_THRESHOLD=-11.0\n", "") },
			wantKey: "DOCKING_SCORE_THRESHOLD",
		},
		{
			name: "bad boolean",
			mutate: func(s string) string {
				return strings.ReplaceAll(s, "USE_LOAD_BALANCER=True", "USE_LOAD_BALANCER=maybe")
			},
			wantKey: "USE_LOAD_BALANCER",
		},
		{
			name:    "negative box",
			mutate:  func(s string) string { return strings.ReplaceAll(s, "SIZE_Y=20", "SIZE_Y=-1") },
			wantKey: "SIZE_Y",
		},
		{
			name:    "non-numeric center",
			mutate:  func(s string) string { return strings.ReplaceAll(s, "CENTER_Z=0.25", "CENTER_Z=zero") },
			wantKey: "CENTER_Z",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(writeCtrl(t, tc.mutate(validCtrl)))
			var ce *ConfigError
			require.ErrorAs(t, err, &ce)
			assert.Equal(t, tc.wantKey, ce.Key)
		})
	}
}

func TestUpdateRewritesInPlace(t *testing.T) {
	path := writeCtrl(t, validCtrl)
	cfg, err := Load(path)
	require.NoError(t, err)

	require.NoError(t, cfg.Update(40, "./DATA/missing_smiles.smi", 40))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	text := string(data)
	assert.Contains(t, text, "NUM_MOLS=40\n")
	assert.Contains(t, text, "SMILES_FILES=./DATA/missing_smiles.smi\n")
	assert.Contains(t, text, "MAX_NUM_JOBS=40\n")
	// unrelated lines and comments survive
	assert.Contains(t, text, "# screening run\n")
	assert.Contains(t, text, "RECEPTOR_LOCATION=./DATA/receptor.pdbqt\n")

	reloaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 40, reloaded.NumMols)
	assert.Equal(t, 40, reloaded.MaxNumJobs)
	assert.Equal(t, "./DATA/missing_smiles.smi", reloaded.SMILESFile)
}
