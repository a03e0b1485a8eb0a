// Package balance splits a molecule list into the per-task partitions of a
// screening run. The partitioners are pure functions over (molecule, cost)
// pairs; file IO lives in Partition.
package balance

import (
	"math/rand"
	"sort"

	"github.com/eternal-flame-AD/slurm-vs-screen/internal/chem"
	"github.com/eternal-flame-AD/slurm-vs-screen/internal/config"
)

func checkCount(nMols, nParts int) error {
	if nParts <= 0 {
		return &config.ConfigError{Key: "MAX_NUM_JOBS", Reason: "must be > 0"}
	}
	if nParts > nMols {
		return &config.ConfigError{Key: "MAX_NUM_JOBS", Reason: "exceeds molecule count"}
	}
	return nil
}

// LPT distributes molecules into n partitions with the
// longest-processing-time-first greedy rule: sort by descending cost, place
// each molecule into the partition with the lowest accumulated cost. The
// heaviest partition ends up within 4/3 of the optimal balanced cost.
func LPT(mols []chem.Molecule, n int) ([][]chem.Molecule, error) {
	if err := checkCount(len(mols), n); err != nil {
		return nil, err
	}

	sorted := make([]chem.Molecule, len(mols))
	copy(sorted, mols)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Cost > sorted[j].Cost
	})

	parts := make([][]chem.Molecule, n)
	loads := make([]int, n)
	for _, m := range sorted {
		min := 0
		for i := 1; i < n; i++ {
			if loads[i] < loads[min] {
				min = i
			}
		}
		parts[min] = append(parts[min], m)
		loads[min] += m.Cost
	}
	return parts, nil
}

// RoundRobin shuffles the molecules and deals them out index-modulo-n,
// giving equal count balance but no cost balance.
func RoundRobin(mols []chem.Molecule, n int, rng *rand.Rand) ([][]chem.Molecule, error) {
	if err := checkCount(len(mols), n); err != nil {
		return nil, err
	}

	shuffled := make([]chem.Molecule, len(mols))
	copy(shuffled, mols)
	rng.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})

	parts := make([][]chem.Molecule, n)
	for i, m := range shuffled {
		parts[i%n] = append(parts[i%n], m)
	}
	return parts, nil
}
