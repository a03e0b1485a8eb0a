package monitor

import (
	"log"
	"os"
	"strconv"

	"github.com/eternal-flame-AD/slurm-vs-screen/internal/config"
	"github.com/eternal-flame-AD/slurm-vs-screen/internal/workdir"
)

// Consolidator merges per-task outputs into the combined result file,
// cleans the run directory, and derives the unfinished molecule set for an
// optional follow-up round.
type Consolidator struct {
	Cfg    *config.RunConfig
	Layout workdir.Layout
}

// MergeRows folds rows into the combined file keyed by SMILES: existing
// rows keep their position, a re-scored SMILES takes the newer value
// (last-write-wins), new SMILES append. The file is rewritten atomically
// and rows from prior rounds are never dropped, so running a merge twice
// over the same inputs leaves an identical file.
func MergeRows(combinedPath string, rows []workdir.ResultRow) error {
	existing, err := workdir.ReadResults(combinedPath)
	if err != nil {
		return err
	}

	index := make(map[string]int, len(existing))
	merged := existing
	for i, r := range existing {
		index[r.SMILES] = i
	}
	for _, r := range rows {
		if i, ok := index[r.SMILES]; ok {
			merged[i] = r
			continue
		}
		index[r.SMILES] = len(merged)
		merged = append(merged, r)
	}

	tmp := combinedPath + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}
	for _, r := range merged {
		if _, err := f.WriteString(r.SMILES + "," + formatScore(r.Score) + "\n"); err != nil {
			f.Close()
			os.Remove(tmp)
			return err
		}
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, combinedPath)
}

// Consolidate merges every per-task output into the combined file, deletes
// the merged task outputs, all partition files and stray ligand/pose
// temporaries, and returns the molecules from the full run list that still
// have no recorded score.
func (c *Consolidator) Consolidate() (unfinished []string, err error) {
	if err := c.Layout.EnsureDirs(); err != nil {
		return nil, err
	}

	outputs, err := c.Layout.OutputFiles()
	if err != nil {
		return nil, err
	}
	var all []workdir.ResultRow
	for _, path := range outputs {
		rows, err := workdir.ReadResults(path)
		if err != nil {
			return nil, err
		}
		all = append(all, rows...)
	}
	if err := MergeRows(c.Layout.CombinedPath(), all); err != nil {
		return nil, err
	}
	log.Printf("merged %d rows from %d task outputs into %s", len(all), len(outputs), c.Layout.CombinedPath())

	partitions, err := c.Layout.PartitionFiles()
	if err != nil {
		return nil, err
	}
	strays, err := c.Layout.StrayTempFiles()
	if err != nil {
		return nil, err
	}
	var doomed []string
	doomed = append(doomed, outputs...)
	doomed = append(doomed, partitions...)
	doomed = append(doomed, strays...)
	deleteFiles(doomed, 8)

	combined, err := workdir.ReadResults(c.Layout.CombinedPath())
	if err != nil {
		return nil, err
	}
	scored := workdir.ScoredSet(combined)

	full, _, err := workdir.ReadMoleculeList(c.Cfg.SMILESFile)
	if err != nil {
		return nil, err
	}
	for _, smi := range full {
		if !scored[smi] {
			unfinished = append(unfinished, smi)
		}
	}
	return unfinished, nil
}

// PrepareNextRound writes the unfinished molecules as the next run list
// and rewrites the control file to point at it, shrinking the job count
// when fewer molecules remain than array slots. The caller then runs a
// fresh balance and submit.
func (c *Consolidator) PrepareNextRound(unfinished []string) error {
	missingPath := c.Layout.MissingListPath()
	if err := workdir.WritePartition(missingPath, unfinished); err != nil {
		return err
	}
	jobs := c.Cfg.MaxNumJobs
	if len(unfinished) < jobs {
		jobs = len(unfinished)
	}
	if err := c.Cfg.Update(len(unfinished), missingPath, jobs); err != nil {
		return err
	}
	log.Printf("%d unfinished molecules staged in %s, next round uses %d jobs",
		len(unfinished), missingPath, jobs)
	return nil
}

func formatScore(f float64) string {
	return strconv.FormatFloat(f, 'f', 4, 64)
}
