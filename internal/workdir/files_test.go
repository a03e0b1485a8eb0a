package workdir

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadMoleculeList(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mols.smi")
	require.NoError(t, os.WriteFile(path, []byte("CCO\n\n  NN  \nCCO\nc1ccccc1\n"), 0644))

	smiles, dups, err := ReadMoleculeList(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"CCO", "NN", "c1ccccc1"}, smiles)
	assert.Equal(t, 1, dups)
}

func TestWriteReadPartitionRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "partition_1.smi")
	in := []string{"CCO", "NN"}
	require.NoError(t, WritePartition(path, in))

	out, dups, err := ReadMoleculeList(path)
	require.NoError(t, err)
	assert.Zero(t, dups)
	assert.Equal(t, in, out)

	// overwrite semantics
	require.NoError(t, WritePartition(path, []string{"c1ccccc1"}))
	out, _, err = ReadMoleculeList(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"c1ccccc1"}, out)
}

func TestAppendResultAndRead(t *testing.T) {
	path := filepath.Join(t.TempDir(), "OUTPUT_1.txt")
	require.NoError(t, AppendResult(path, "CCO", -9.1))
	require.NoError(t, AppendResult(path, "NN", -12.25))

	rows, err := ReadResults(path)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, ResultRow{SMILES: "CCO", Score: -9.1}, rows[0])
	assert.Equal(t, ResultRow{SMILES: "NN", Score: -12.25}, rows[1])

	n, err := CountRows(path)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestReadResultsToleratesSpacedRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "OUTPUT_1.txt")
	require.NoError(t, os.WriteFile(path, []byte("CCO, -9.1\nnot a row\nNN, -12.3\n"), 0644))

	rows, err := ReadResults(path)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "CCO", rows[0].SMILES)
	assert.Equal(t, -12.3, rows[1].Score)
}

func TestReadResultsMissingFile(t *testing.T) {
	rows, err := ReadResults(filepath.Join(t.TempDir(), "nope.txt"))
	require.NoError(t, err)
	assert.Empty(t, rows)

	n, err := CountRows(filepath.Join(t.TempDir(), "nope.txt"))
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestLayoutPaths(t *testing.T) {
	l := NewLayout("DATA")
	assert.Equal(t, filepath.Join("DATA", "partition_3.smi"), l.PartitionPath(3))
	assert.Equal(t, "OUTPUT_3.txt", l.OutputPath(3))
	assert.Equal(t, filepath.Join("DATA", "combined_output.txt"), l.CombinedPath())
	assert.Equal(t, filepath.Join("DATA", "missing_smiles.smi"), l.MissingListPath())
}
