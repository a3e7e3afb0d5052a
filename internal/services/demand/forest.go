package demand

import "math/rand"

// Forest is a bagged ensemble of regression trees. Each tree trains on a
// bootstrap sample drawn from a deterministic seeded source so repeated
// training on identical data yields identical models.
type Forest struct {
	trees       []*regressionTree
	importances []float64

	nEstimators int
	cfg         treeConfig
	seed        int64
}

func newForest(nEstimators, maxDepth, minSamplesSplit, minSamplesLeaf int, seed int64) *Forest {
	return &Forest{
		nEstimators: nEstimators,
		cfg: treeConfig{
			maxDepth:        maxDepth,
			minSamplesSplit: minSamplesSplit,
			minSamplesLeaf:  minSamplesLeaf,
		},
		seed: seed,
	}
}

// Fit trains the ensemble on a standardized feature table.
func (f *Forest) Fit(X [][]float64, y []float64) {
	n := len(X)
	rng := rand.New(rand.NewSource(f.seed))
	f.trees = make([]*regressionTree, 0, f.nEstimators)
	f.importances = make([]float64, len(X[0]))

	for t := 0; t < f.nEstimators; t++ {
		idx := make([]int, n)
		for i := range idx {
			idx[i] = rng.Intn(n)
		}
		f.trees = append(f.trees, fitTree(X, y, idx, f.cfg, f.importances))
	}

	// normalize accumulated impurity decreases to sum to 1
	sum := 0.0
	for _, v := range f.importances {
		sum += v
	}
	if sum > 0 {
		for j := range f.importances {
			f.importances[j] /= sum
		}
	}
}

// Predict averages the per-tree predictions for one standardized row.
func (f *Forest) Predict(row []float64) float64 {
	if len(f.trees) == 0 {
		return 0
	}
	sum := 0.0
	for _, t := range f.trees {
		sum += t.predict(row)
	}
	return sum / float64(len(f.trees))
}

// Importances returns normalized per-feature impurity decreases.
func (f *Forest) Importances() []float64 {
	return f.importances
}
