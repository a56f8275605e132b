package tree

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/studentperf/pkg/errors"
)

// featureThreshold is the minimum gap between two feature values for a
// split to be placed between them (scikit-learn FEATURE_THRESHOLD).
const featureThreshold = 1e-7

// Builder grows a single regression tree depth first. It is the shared
// engine behind DecisionTreeRegressor and the tree ensembles; a Builder is
// not safe for concurrent use, create one per goroutine.
type Builder struct {
	Criterion       string
	MaxDepth        int // < 0 means unlimited
	MinSamplesSplit int
	MinSamplesLeaf  int
	// MinWeightLeaf is the minimum total sample weight of a child
	// (XGBoost min_child_weight).
	MinWeightLeaf float64
	// Lambda is the L2 leaf penalty used by CriterionL2.
	Lambda float64
	// MinGain, when finite, rejects splits whose proxy gain over the parent
	// is not larger than it.
	MinGain float64

	cols  [][]float64
	crit  criterion
	nodes []Node
	left  []bool
}

// NewBuilder returns a Builder with scikit-learn defaults.
func NewBuilder(criterion string) *Builder {
	return &Builder{
		Criterion:       criterion,
		MaxDepth:        -1,
		MinSamplesSplit: 2,
		MinSamplesLeaf:  1,
		MinGain:         math.Inf(-1),
	}
}

// Columns copies X into column-major slices.
func Columns(X mat.Matrix) [][]float64 {
	r, c := X.Dims()
	cols := make([][]float64, c)
	for j := range cols {
		cols[j] = make([]float64, r)
		mat.Col(cols[j], j, X)
	}
	return cols
}

// Presort returns, per feature, the indices of samples with positive weight
// ordered by feature value. A nil w means every sample has weight one.
func Presort(cols [][]float64, w []float64) [][]int {
	if len(cols) == 0 {
		return nil
	}
	n := len(cols[0])
	base := make([]int, 0, n)
	for i := 0; i < n; i++ {
		if w == nil || w[i] > 0 {
			base = append(base, i)
		}
	}
	sorted := make([][]int, len(cols))
	for j, col := range cols {
		idx := append([]int(nil), base...)
		sort.SliceStable(idx, func(a, b int) bool { return col[idx[a]] < col[idx[b]] })
		sorted[j] = idx
	}
	return sorted
}

// Build grows a tree on cols (column-major features), targets y and sample
// weights w. sorted must come from Presort with the same weights; it is
// consumed.
func (b *Builder) Build(cols [][]float64, y, w []float64, sorted [][]int) (*Tree, error) {
	crit, ok := newCriterion(b.Criterion, b.Lambda)
	if !ok {
		return nil, errors.NewValidationError("criterion",
			"must be one of squared_error, friedman_mse, absolute_error, poisson", b.Criterion)
	}
	if len(cols) == 0 || len(sorted) == 0 || len(sorted[0]) == 0 {
		return nil, errors.NewModelError("tree.Build", "empty data", errors.ErrEmptyData)
	}
	if b.MinSamplesSplit < 2 {
		return nil, errors.NewValidationError("min_samples_split", "must be at least 2", b.MinSamplesSplit)
	}
	if b.MinSamplesLeaf < 1 {
		return nil, errors.NewValidationError("min_samples_leaf", "must be at least 1", b.MinSamplesLeaf)
	}

	b.cols = cols
	b.crit = crit
	b.nodes = b.nodes[:0]
	if len(b.left) < len(y) {
		b.left = make([]bool, len(y))
	}

	b.grow(y, w, sorted, 0)

	t := &Tree{Nodes: append([]Node(nil), b.nodes...), NFeatures: len(cols)}
	b.cols, b.crit = nil, nil
	return t, nil
}

func (b *Builder) grow(y, w []float64, sorted [][]int, depth int) int {
	samples := sorted[0]
	n := len(samples)
	b.crit.init(y, w, samples)

	id := len(b.nodes)
	b.nodes = append(b.nodes, Node{
		Feature:  -1,
		Left:     -1,
		Right:    -1,
		Value:    b.crit.nodeValue(),
		Impurity: b.crit.nodeImpurity(),
		NSamples: n,
	})

	if (b.MaxDepth >= 0 && depth >= b.MaxDepth) ||
		n < b.MinSamplesSplit ||
		n < 2*b.MinSamplesLeaf ||
		b.crit.nodeImpurity() <= 1e-12 {
		return id
	}

	feature, threshold, ok := b.bestSplit(w, sorted)
	if !ok {
		return id
	}

	col := b.cols[feature]
	for _, i := range samples {
		b.left[i] = col[i] <= threshold
	}
	leftSorted := make([][]int, len(sorted))
	rightSorted := make([][]int, len(sorted))
	for j, idx := range sorted {
		l := make([]int, 0, n)
		r := make([]int, 0, n)
		for _, i := range idx {
			if b.left[i] {
				l = append(l, i)
			} else {
				r = append(r, i)
			}
		}
		leftSorted[j], rightSorted[j] = l, r
	}

	left := b.grow(y, w, leftSorted, depth+1)
	right := b.grow(y, w, rightSorted, depth+1)

	node := &b.nodes[id]
	node.Feature = feature
	node.Threshold = threshold
	node.Left = left
	node.Right = right
	return id
}

// bestSplit scans every feature in order; the first best split wins ties.
func (b *Builder) bestSplit(w []float64, sorted [][]int) (feature int, threshold float64, ok bool) {
	best := math.Inf(-1)
	parentProxy := b.crit.nodeProxy()
	n := len(sorted[0])

	for f, idx := range sorted {
		col := b.cols[f]
		if col[idx[n-1]] <= col[idx[0]]+featureThreshold {
			continue // constant in this node
		}
		b.crit.reset()
		var leftW float64
		total := sumWeights(idx, w)
		for p := 0; p < n-1; p++ {
			i := idx[p]
			b.crit.update(i)
			leftW += w[i]
			next := col[idx[p+1]]
			if next <= col[i]+featureThreshold {
				continue
			}
			nLeft := p + 1
			if nLeft < b.MinSamplesLeaf || n-nLeft < b.MinSamplesLeaf {
				continue
			}
			if leftW < b.MinWeightLeaf || total-leftW < b.MinWeightLeaf {
				continue
			}
			proxy := b.crit.proxyImprovement()
			if proxy > best {
				best = proxy
				feature = f
				threshold = (col[i] + next) / 2
				if threshold == next || math.IsInf(threshold, 0) {
					threshold = col[i]
				}
				ok = true
			}
		}
	}

	if ok && !math.IsInf(b.MinGain, -1) && best-parentProxy <= b.MinGain {
		return 0, 0, false
	}
	return feature, threshold, ok
}
