package regressor

import (
	"fmt"
	"math/rand"
	"sort"
)

// RandomForest is a bagged ensemble of CART regression trees.
// Same seed + same data gives bit-identical predictions.
type RandomForest struct {
	trees    int
	maxDepth int
	minLeaf  int
	seed     int64
}

// NewRandomForest creates a forest regressor from cfg
func NewRandomForest(cfg Config) *RandomForest {
	trees := cfg.Trees
	if trees < 1 {
		trees = 1
	}
	minLeaf := cfg.MinLeaf
	if minLeaf < 1 {
		minLeaf = 1
	}
	return &RandomForest{
		trees:    trees,
		maxDepth: cfg.MaxDepth,
		minLeaf:  minLeaf,
		seed:     cfg.Seed,
	}
}

// Name returns the regressor kind
func (f *RandomForest) Name() string {
	return KindRandomForest
}

// Fit grows every tree on its own bootstrap sample
func (f *RandomForest) Fit(X [][]float64, y []float64) (Model, error) {
	width, err := validateXY(X, y)
	if err != nil {
		return nil, fmt.Errorf("fit random forest: %w", err)
	}

	model := &forestModel{width: width, trees: make([]*treeNode, f.trees)}
	for t := 0; t < f.trees; t++ {
		// 트리별 독립 시드
		rng := rand.New(rand.NewSource(f.seed + int64(t)))
		sample := make([]int, len(X))
		for i := range sample {
			sample[i] = rng.Intn(len(X))
		}
		g := &grower{X: X, y: y, maxDepth: f.maxDepth, minLeaf: f.minLeaf}
		model.trees[t] = g.grow(sample, 0)
	}
	return model, nil
}

type forestModel struct {
	width int
	trees []*treeNode
}

// Predict averages the trees
func (m *forestModel) Predict(X [][]float64) ([]float64, error) {
	if err := checkWidth(X, m.width); err != nil {
		return nil, err
	}
	out := make([]float64, len(X))
	for i, row := range X {
		var sum float64
		for _, tree := range m.trees {
			sum += tree.predict(row)
		}
		out[i] = sum / float64(len(m.trees))
	}
	return out, nil
}

type treeNode struct {
	leaf      bool
	value     float64
	feature   int
	threshold float64
	left      *treeNode
	right     *treeNode
}

func (n *treeNode) predict(row []float64) float64 {
	for !n.leaf {
		if row[n.feature] <= n.threshold {
			n = n.left
		} else {
			n = n.right
		}
	}
	return n.value
}

type grower struct {
	X        [][]float64
	y        []float64
	maxDepth int
	minLeaf  int
}

func (g *grower) grow(idx []int, depth int) *treeNode {
	var sum, sumSq float64
	for _, i := range idx {
		sum += g.y[i]
		sumSq += g.y[i] * g.y[i]
	}
	n := float64(len(idx))
	leaf := &treeNode{leaf: true, value: sum / n}

	if len(idx) < 2*g.minLeaf || (g.maxDepth > 0 && depth >= g.maxDepth) {
		return leaf
	}
	parentSSE := sumSq - sum*sum/n
	if parentSSE <= 1e-12 {
		return leaf
	}

	feature, threshold, ok := g.bestSplit(idx, parentSSE)
	if !ok {
		return leaf
	}

	left := make([]int, 0, len(idx))
	right := make([]int, 0, len(idx))
	for _, i := range idx {
		if g.X[i][feature] <= threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}

	return &treeNode{
		feature:   feature,
		threshold: threshold,
		left:      g.grow(left, depth+1),
		right:     g.grow(right, depth+1),
	}
}

// bestSplit scans every feature for the split with the lowest summed SSE.
// Only strict improvements replace the current best, so ties keep the
// lowest feature index and the lowest threshold.
func (g *grower) bestSplit(idx []int, parentSSE float64) (int, float64, bool) {
	bestSSE := parentSSE
	bestFeature, bestThreshold := -1, 0.0

	order := make([]int, len(idx))
	width := len(g.X[idx[0]])
	for f := 0; f < width; f++ {
		copy(order, idx)
		sort.SliceStable(order, func(a, b int) bool {
			return g.X[order[a]][f] < g.X[order[b]][f]
		})

		var totalSum, totalSq float64
		for _, i := range order {
			totalSum += g.y[i]
			totalSq += g.y[i] * g.y[i]
		}

		var leftSum, leftSq float64
		for k := 0; k < len(order)-1; k++ {
			yi := g.y[order[k]]
			leftSum += yi
			leftSq += yi * yi

			nl := k + 1
			nr := len(order) - nl
			if nl < g.minLeaf || nr < g.minLeaf {
				continue
			}
			cur, next := g.X[order[k]][f], g.X[order[k+1]][f]
			if cur == next {
				continue
			}

			rightSum := totalSum - leftSum
			rightSq := totalSq - leftSq
			sse := (leftSq - leftSum*leftSum/float64(nl)) + (rightSq - rightSum*rightSum/float64(nr))
			if sse < bestSSE-1e-12 {
				bestSSE = sse
				bestFeature = f
				bestThreshold = cur + (next-cur)/2
				if bestThreshold >= next {
					bestThreshold = cur
				}
			}
		}
	}

	return bestFeature, bestThreshold, bestFeature >= 0
}
