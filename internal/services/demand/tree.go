package demand

import "sort"

// regressionTree is a CART-style regression tree splitting on variance
// reduction. Leaves predict the mean target of their samples.
type regressionTree struct {
	root *treeNode
}

type treeNode struct {
	feature   int
	threshold float64
	left      *treeNode
	right     *treeNode
	value     float64
	leaf      bool
}

type treeConfig struct {
	maxDepth        int
	minSamplesSplit int
	minSamplesLeaf  int
}

// fitTree grows a tree on the samples selected by idx. Impurity decreases
// per split are accumulated into importances (indexed by feature), weighted
// by the node's share of the total sample count.
func fitTree(X [][]float64, y []float64, idx []int, cfg treeConfig, importances []float64) *regressionTree {
	t := &regressionTree{}
	t.root = buildNode(X, y, idx, 0, cfg, importances, float64(len(idx)))
	return t
}

func buildNode(X [][]float64, y []float64, idx []int, depth int, cfg treeConfig, importances []float64, total float64) *treeNode {
	n := len(idx)
	sum, sum2 := 0.0, 0.0
	for _, i := range idx {
		sum += y[i]
		sum2 += y[i] * y[i]
	}
	meanY := sum / float64(n)
	// variance * n, cheaper to compare than variance
	sse := sum2 - sum*sum/float64(n)

	node := &treeNode{value: meanY}
	if depth >= cfg.maxDepth || n < cfg.minSamplesSplit || sse <= 0 {
		node.leaf = true
		return node
	}

	bestFeature, bestThreshold, bestSSE := -1, 0.0, sse
	var bestLeft, bestRight []int

	order := make([]int, n)
	for f := 0; f < len(X[idx[0]]); f++ {
		copy(order, idx)
		sort.Slice(order, func(a, b int) bool { return X[order[a]][f] < X[order[b]][f] })

		// prefix sums over the sorted order
		sumL, sum2L := 0.0, 0.0
		for pos := 1; pos < n; pos++ {
			v := y[order[pos-1]]
			sumL += v
			sum2L += v * v

			if X[order[pos]][f] == X[order[pos-1]][f] {
				continue // not a valid cut point
			}
			nl, nr := pos, n-pos
			if nl < cfg.minSamplesLeaf || nr < cfg.minSamplesLeaf {
				continue
			}
			sumR := sum - sumL
			sum2R := sum2 - sum2L
			splitSSE := (sum2L - sumL*sumL/float64(nl)) + (sum2R - sumR*sumR/float64(nr))
			if splitSSE < bestSSE {
				bestSSE = splitSSE
				bestFeature = f
				bestThreshold = (X[order[pos]][f] + X[order[pos-1]][f]) / 2
			}
		}
	}

	if bestFeature < 0 {
		node.leaf = true
		return node
	}

	for _, i := range idx {
		if X[i][bestFeature] <= bestThreshold {
			bestLeft = append(bestLeft, i)
		} else {
			bestRight = append(bestRight, i)
		}
	}
	if len(bestLeft) == 0 || len(bestRight) == 0 {
		node.leaf = true
		return node
	}

	if importances != nil {
		importances[bestFeature] += (sse - bestSSE) / total
	}

	node.feature = bestFeature
	node.threshold = bestThreshold
	node.left = buildNode(X, y, bestLeft, depth+1, cfg, importances, total)
	node.right = buildNode(X, y, bestRight, depth+1, cfg, importances, total)
	return node
}

func (t *regressionTree) predict(row []float64) float64 {
	n := t.root
	for !n.leaf {
		if row[n.feature] <= n.threshold {
			n = n.left
		} else {
			n = n.right
		}
	}
	return n.value
}
