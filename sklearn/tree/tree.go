package tree

import "gonum.org/v1/gonum/mat"

// Node is one node of a fitted tree. Leaves have Feature == -1.
type Node struct {
	Feature   int
	Threshold float64
	Left      int
	Right     int
	Value     float64
	Impurity  float64
	NSamples  int
}

// Tree is a fitted binary regression tree stored as a flat node array with
// the root at index 0.
type Tree struct {
	Nodes     []Node
	NFeatures int
}

// Leaf returns the index of the leaf reached by row i of X.
func (t *Tree) Leaf(X mat.Matrix, i int) int {
	k := 0
	for {
		n := &t.Nodes[k]
		if n.Feature < 0 {
			return k
		}
		if X.At(i, n.Feature) <= n.Threshold {
			k = n.Left
		} else {
			k = n.Right
		}
	}
}

// PredictAt returns the prediction for row i of X.
func (t *Tree) PredictAt(X mat.Matrix, i int) float64 {
	return t.Nodes[t.Leaf(X, i)].Value
}

// Predict returns one prediction per row of X.
func (t *Tree) Predict(X mat.Matrix) []float64 {
	r, _ := X.Dims()
	out := make([]float64, r)
	for i := range out {
		out[i] = t.PredictAt(X, i)
	}
	return out
}

// Depth returns the depth of the deepest leaf (a single leaf has depth 0).
func (t *Tree) Depth() int {
	var walk func(k, d int) int
	walk = func(k, d int) int {
		n := t.Nodes[k]
		if n.Feature < 0 {
			return d
		}
		return max(walk(n.Left, d+1), walk(n.Right, d+1))
	}
	if len(t.Nodes) == 0 {
		return 0
	}
	return walk(0, 0)
}

// NLeaves returns the number of leaves.
func (t *Tree) NLeaves() int {
	n := 0
	for _, node := range t.Nodes {
		if node.Feature < 0 {
			n++
		}
	}
	return n
}
