package chem

import (
	lru "github.com/hashicorp/golang-lru/v2"
)

// CostEstimator computes the per-molecule cost proxy (heavy atom count)
// with an LRU cache in front. Retry rounds re-cost every surviving
// molecule, so the cache saves repeated parsing across rounds inside one
// monitor invocation.
type CostEstimator struct {
	cache *lru.Cache[string, int]
}

// NewCostEstimator returns an estimator caching up to size entries.
func NewCostEstimator(size int) (*CostEstimator, error) {
	c, err := lru.New[string, int](size)
	if err != nil {
		return nil, err
	}
	return &CostEstimator{cache: c}, nil
}

// Estimate returns the cost for one SMILES string. A *ParseError marks the
// molecule as malformed; callers skip and log it.
func (e *CostEstimator) Estimate(smiles string) (int, error) {
	if n, ok := e.cache.Get(smiles); ok {
		return n, nil
	}
	n, err := HeavyAtomCount(smiles)
	if err != nil {
		return 0, err
	}
	e.cache.Add(smiles, n)
	return n, nil
}

// EstimateAll populates Cost on every molecule, dropping lines that do not
// parse. It returns the surviving molecules and the SMILES that were
// skipped.
func (e *CostEstimator) EstimateAll(smiles []string) (mols []Molecule, skipped []string) {
	for _, s := range smiles {
		n, err := e.Estimate(s)
		if err != nil {
			skipped = append(skipped, s)
			continue
		}
		mols = append(mols, Molecule{SMILES: s, Cost: n})
	}
	return mols, skipped
}
