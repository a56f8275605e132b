// Package model_selection provides data splitting and exhaustive
// hyperparameter search for model.Regressor implementations.
package model_selection

import (
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/studentperf/pkg/errors"
)

// Fold holds the row indices of one train/validation split.
type Fold struct {
	Train []int
	Test  []int
}

// KFold splits rows into NSplits consecutive folds. The first n % NSplits
// folds get one extra row, as in scikit-learn.
type KFold struct {
	NSplits     int
	Shuffle     bool
	RandomState uint64
}

// NewKFold returns an unshuffled KFold.
func NewKFold(nSplits int) *KFold {
	return &KFold{NSplits: nSplits}
}

// Split returns NSplits folds over n rows.
func (k *KFold) Split(n int) ([]Fold, error) {
	if k.NSplits < 2 {
		return nil, errors.NewValidationError("n_splits", "must be at least 2", k.NSplits)
	}
	if n < k.NSplits {
		return nil, errors.NewValueError("KFold.Split",
			"cannot have number of splits greater than the number of samples")
	}

	indices := make([]int, n)
	for i := range indices {
		indices[i] = i
	}
	if k.Shuffle {
		rng := rand.New(rand.NewPCG(k.RandomState, k.RandomState))
		rng.Shuffle(n, func(i, j int) { indices[i], indices[j] = indices[j], indices[i] })
	}

	folds := make([]Fold, k.NSplits)
	start := 0
	for f := range folds {
		size := n / k.NSplits
		if f < n%k.NSplits {
			size++
		}
		test := append([]int(nil), indices[start:start+size]...)
		train := make([]int, 0, n-size)
		train = append(train, indices[:start]...)
		train = append(train, indices[start+size:]...)
		folds[f] = Fold{Train: train, Test: test}
		start += size
	}
	return folds, nil
}

// TrainTestSplit shuffles n row indices with a PCG seeded by seed and
// returns ceil(testSize*n) of them as the test set and the rest as the
// training set.
func TrainTestSplit(n int, testSize float64, seed uint64) (train, test []int, err error) {
	if testSize <= 0 || testSize >= 1 {
		return nil, nil, errors.NewValidationError("test_size", "must be in (0, 1)", testSize)
	}
	nTest := int(math.Ceil(testSize * float64(n)))
	if nTest < 1 || n-nTest < 1 {
		return nil, nil, errors.NewValueError("TrainTestSplit",
			"the resulting train set or test set would be empty")
	}
	rng := rand.New(rand.NewPCG(seed, seed))
	perm := rng.Perm(n)
	return perm[nTest:], perm[:nTest], nil
}

// Rows gathers the given rows of X into a new matrix.
func Rows(X mat.Matrix, idx []int) *mat.Dense {
	_, c := X.Dims()
	out := mat.NewDense(len(idx), c, nil)
	row := make([]float64, c)
	for i, r := range idx {
		mat.Row(row, r, X)
		out.SetRow(i, row)
	}
	return out
}
