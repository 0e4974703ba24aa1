package anomaly

import (
	"math"
	"math/rand"
)

const (
	forestTrees     = 100
	forestSubsample = 256
)

// isolationForest is an ensemble of randomly built isolation trees.
// Points that isolate in few splits score close to 1, ordinary points
// close to 0. Construction is deterministic for a given seed.
type isolationForest struct {
	trees []*isoNode
	psi   int
}

type isoNode struct {
	left, right *isoNode
	splitAttr   int
	splitValue  float64
	size        int
}

func newIsolationForest(data [][]float64, seed int64) *isolationForest {
	rng := rand.New(rand.NewSource(seed))
	psi := len(data)
	if psi > forestSubsample {
		psi = forestSubsample
	}
	heightLimit := int(math.Ceil(math.Log2(float64(psi))))
	if heightLimit < 1 {
		heightLimit = 1
	}

	f := &isolationForest{psi: psi}
	for t := 0; t < forestTrees; t++ {
		sample := subsample(data, psi, rng)
		f.trees = append(f.trees, buildIsoTree(sample, 0, heightLimit, rng))
	}
	return f
}

func subsample(data [][]float64, psi int, rng *rand.Rand) [][]float64 {
	if psi >= len(data) {
		return data
	}
	perm := rng.Perm(len(data))
	out := make([][]float64, psi)
	for i := 0; i < psi; i++ {
		out[i] = data[perm[i]]
	}
	return out
}

func buildIsoTree(data [][]float64, depth, limit int, rng *rand.Rand) *isoNode {
	if depth >= limit || len(data) <= 1 {
		return &isoNode{size: len(data)}
	}

	// only attributes with spread can split
	dims := len(data[0])
	splittable := make([]int, 0, dims)
	for j := 0; j < dims; j++ {
		lo, hi := data[0][j], data[0][j]
		for _, row := range data {
			if row[j] < lo {
				lo = row[j]
			}
			if row[j] > hi {
				hi = row[j]
			}
		}
		if hi > lo {
			splittable = append(splittable, j)
		}
	}
	if len(splittable) == 0 {
		return &isoNode{size: len(data)}
	}

	attr := splittable[rng.Intn(len(splittable))]
	lo, hi := data[0][attr], data[0][attr]
	for _, row := range data {
		if row[attr] < lo {
			lo = row[attr]
		}
		if row[attr] > hi {
			hi = row[attr]
		}
	}
	split := lo + rng.Float64()*(hi-lo)

	var left, right [][]float64
	for _, row := range data {
		if row[attr] < split {
			left = append(left, row)
		} else {
			right = append(right, row)
		}
	}
	if len(left) == 0 || len(right) == 0 {
		return &isoNode{size: len(data)}
	}

	return &isoNode{
		splitAttr:  attr,
		splitValue: split,
		left:       buildIsoTree(left, depth+1, limit, rng),
		right:      buildIsoTree(right, depth+1, limit, rng),
	}
}

// Scores returns the anomaly score of every point, 2^(-E[h(x)]/c(psi)).
func (f *isolationForest) Scores(data [][]float64) []float64 {
	norm := avgPathLength(f.psi)
	scores := make([]float64, len(data))
	for i, point := range data {
		total := 0.0
		for _, tree := range f.trees {
			total += pathLength(tree, point, 0)
		}
		mean := total / float64(len(f.trees))
		if norm > 0 {
			scores[i] = math.Pow(2, -mean/norm)
		} else {
			scores[i] = 0.5
		}
	}
	return scores
}

func pathLength(node *isoNode, point []float64, depth float64) float64 {
	if node.left == nil {
		return depth + avgPathLength(node.size)
	}
	if point[node.splitAttr] < node.splitValue {
		return pathLength(node.left, point, depth+1)
	}
	return pathLength(node.right, point, depth+1)
}

// avgPathLength is the expected unsuccessful-search depth of a BST with
// n nodes, the standard normalization term.
func avgPathLength(n int) float64 {
	if n <= 1 {
		return 0
	}
	if n == 2 {
		return 1
	}
	fn := float64(n)
	harmonic := math.Log(fn-1) + 0.5772156649
	return 2*harmonic - 2*(fn-1)/fn
}
