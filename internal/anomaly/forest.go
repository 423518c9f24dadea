// Package anomaly scores per-country disease time series with an
// isolation forest. Models are built per feature set per invocation and
// discarded after scoring; nothing is shared across countries.
package anomaly

import (
	"math"
	"math/rand"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// maxSampleSize caps the per-tree subsample, following the standard
// isolation-forest formulation.
const maxSampleSize = 256

// forestConfig parameterizes one isolation forest fit.
type forestConfig struct {
	trees int
	seed  int64
}

// treeNode is a node of one isolation tree. Leaves have nil children and
// carry the number of samples that reached them.
type treeNode struct {
	feature int
	split   float64
	left    *treeNode
	right   *treeNode
	size    int
}

// isolationForest is a fitted ensemble of isolation trees.
type isolationForest struct {
	roots      []*treeNode
	sampleSize int
}

// fitForest builds a seeded isolation forest over data, where each row
// is a sample and each column a feature. Identical data, configuration
// and seed always produce the identical forest.
func fitForest(data [][]float64, cfg forestConfig) *isolationForest {
	n := len(data)
	sampleSize := n
	if sampleSize > maxSampleSize {
		sampleSize = maxSampleSize
	}

	rng := rand.New(rand.NewSource(cfg.seed))
	heightLimit := int(math.Ceil(math.Log2(float64(sampleSize))))

	forest := &isolationForest{
		roots:      make([]*treeNode, cfg.trees),
		sampleSize: sampleSize,
	}

	for t := 0; t < cfg.trees; t++ {
		idx := rng.Perm(n)[:sampleSize]
		sample := make([][]float64, sampleSize)
		for i, j := range idx {
			sample[i] = data[j]
		}
		forest.roots[t] = buildTree(sample, 0, heightLimit, rng)
	}

	return forest
}

// buildTree grows one isolation tree by recursive random splits.
func buildTree(sample [][]float64, depth, limit int, rng *rand.Rand) *treeNode {
	if depth >= limit || len(sample) <= 1 {
		return &treeNode{size: len(sample)}
	}

	// Collect features that still have spread; constant features cannot
	// separate anything.
	nFeatures := len(sample[0])
	var splittable []int
	mins := make([]float64, nFeatures)
	maxs := make([]float64, nFeatures)
	for f := 0; f < nFeatures; f++ {
		mins[f], maxs[f] = sample[0][f], sample[0][f]
		for _, row := range sample {
			if row[f] < mins[f] {
				mins[f] = row[f]
			}
			if row[f] > maxs[f] {
				maxs[f] = row[f]
			}
		}
		if maxs[f] > mins[f] {
			splittable = append(splittable, f)
		}
	}
	if len(splittable) == 0 {
		return &treeNode{size: len(sample)}
	}

	feature := splittable[rng.Intn(len(splittable))]
	split := mins[feature] + rng.Float64()*(maxs[feature]-mins[feature])

	var left, right [][]float64
	for _, row := range sample {
		if row[feature] < split {
			left = append(left, row)
		} else {
			right = append(right, row)
		}
	}

	return &treeNode{
		feature: feature,
		split:   split,
		left:    buildTree(left, depth+1, limit, rng),
		right:   buildTree(right, depth+1, limit, rng),
	}
}

// pathLength walks x down one tree, crediting unexplored subtrees with
// the average path length of their size.
func pathLength(root *treeNode, x []float64) float64 {
	depth := 0.0
	node := root
	for node.left != nil {
		if x[node.feature] < node.split {
			node = node.left
		} else {
			node = node.right
		}
		depth++
	}
	return depth + avgPathLength(node.size)
}

// avgPathLength is the expected path length of an unsuccessful BST
// search among n points, the c(n) normalizer of the original paper.
func avgPathLength(n int) float64 {
	switch {
	case n > 2:
		f := float64(n)
		return 2*(math.Log(f-1)+eulerGamma) - 2*(f-1)/f
	case n == 2:
		return 1
	default:
		return 0
	}
}

const eulerGamma = 0.5772156649015329

// scoreSamples returns the decision score for every row: the negated
// anomaly score -2^(-E(h(x))/c(psi)), so lower means more anomalous.
func (f *isolationForest) scoreSamples(data [][]float64) []float64 {
	norm := avgPathLength(f.sampleSize)
	scores := make([]float64, len(data))
	for i, row := range data {
		sum := 0.0
		for _, root := range f.roots {
			sum += pathLength(root, row)
		}
		mean := sum / float64(len(f.roots))
		scores[i] = -math.Pow(2, -mean/norm)
	}
	return scores
}

// labelScores cuts scores at the contamination quantile: the lowest
// contamination fraction of points are labelled -1, the rest +1.
func labelScores(scores []float64, contamination float64) []int {
	sorted := append([]float64(nil), scores...)
	sort.Float64s(sorted)
	threshold := stat.Quantile(contamination, stat.LinInterp, sorted, nil)

	labels := make([]int, len(scores))
	for i, s := range scores {
		if s < threshold {
			labels[i] = -1
		} else {
			labels[i] = 1
		}
	}
	return labels
}
