package balance

import (
	"log"
	"math/rand"

	"github.com/eternal-flame-AD/slurm-vs-screen/internal/chem"
	"github.com/eternal-flame-AD/slurm-vs-screen/internal/config"
	"github.com/eternal-flame-AD/slurm-vs-screen/internal/workdir"
)

// Partition reads the configured molecule list, costs it, splits it per
// the configured mode, and writes one partition_<index>.smi per task under
// the data directory, overwriting prior files. It returns the number of
// partitions written. Malformed SMILES lines are logged and skipped, never
// fatal.
func Partition(cfg *config.RunConfig, layout workdir.Layout, est *chem.CostEstimator, rng *rand.Rand) (int, error) {
	smiles, dups, err := workdir.ReadMoleculeList(cfg.SMILESFile)
	if err != nil {
		return 0, err
	}
	if dups > 0 {
		log.Printf("molecule list %s: %d duplicate lines collapsed", cfg.SMILESFile, dups)
	}

	mols, skipped := est.EstimateAll(smiles)
	for _, s := range skipped {
		log.Printf("skipping malformed SMILES: %q", s)
	}

	var parts [][]chem.Molecule
	if cfg.UseBalancer {
		log.Printf("partitioning %d molecules into %d cost-balanced partitions", len(mols), cfg.MaxNumJobs)
		parts, err = LPT(mols, cfg.MaxNumJobs)
	} else {
		log.Printf("partitioning %d molecules into %d partitions without the load balancer", len(mols), cfg.MaxNumJobs)
		parts, err = RoundRobin(mols, cfg.MaxNumJobs, rng)
	}
	if err != nil {
		return 0, err
	}

	if err := layout.EnsureDirs(); err != nil {
		return 0, err
	}
	for i, part := range parts {
		lines := make([]string, len(part))
		for j, m := range part {
			lines[j] = m.SMILES
		}
		path := layout.PartitionPath(i + 1)
		if err := workdir.WritePartition(path, lines); err != nil {
			return 0, err
		}
		log.Printf("partition %d: %d molecules -> %s", i+1, len(part), path)
	}
	return len(parts), nil
}
