// Package ensemble implements the tree ensembles of the model registry:
// random forest, gradient boosting, an XGBoost-style second-order booster,
// a CatBoost-style booster over oblivious trees and AdaBoost.R2.
//
// Every ensemble is deterministic for a given RandomState and keeps its
// fitted trees in exported fields so it can be persisted with encoding/gob.
package ensemble

import (
	"math/rand/v2"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/studentperf/core/model"
	"github.com/YuminosukeSato/studentperf/metrics"
	"github.com/YuminosukeSato/studentperf/sklearn/tree"
)

// newRand returns the PCG source used throughout the package.
func newRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed))
}

// prepare validates a training pair and returns column-major features and
// the target column.
func prepare(op string, X, y mat.Matrix) (cols [][]float64, target []float64, err error) {
	if _, _, err := model.CheckXY(op, X, y); err != nil {
		return nil, nil, err
	}
	return tree.Columns(X), model.Column(y), nil
}

func meanOf(x []float64) float64 {
	var s float64
	for _, v := range x {
		s += v
	}
	return s / float64(len(x))
}

func ones(n int) []float64 {
	w := make([]float64, n)
	for i := range w {
		w[i] = 1
	}
	return w
}

// filterSorted keeps the samples with positive weight in every presorted
// feature list.
func filterSorted(sorted [][]int, w []float64) [][]int {
	out := make([][]int, len(sorted))
	for j, idx := range sorted {
		keep := make([]int, 0, len(idx))
		for _, i := range idx {
			if w[i] > 0 {
				keep = append(keep, i)
			}
		}
		out[j] = keep
	}
	return out
}

// score is the shared Score implementation.
func score(p model.Predictor, X, y mat.Matrix) (float64, error) {
	pred, err := p.Predict(X)
	if err != nil {
		return 0, err
	}
	return metrics.R2ScoreMatrix(y, pred)
}
