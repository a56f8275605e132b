// Package metrics implements regression scores over gonum vectors.
//
// R2Score follows scikit-learn's r2_score: a constant yTrue does not raise,
// it yields 1.0 for a perfect prediction and 0.0 otherwise, and emits an
// UndefinedMetricWarning.
package metrics

import (
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/YuminosukeSato/studentperf/pkg/errors"
)

// residuals は yTrue - yPred を返す
func residuals(op string, yTrue, yPred *mat.VecDense) (*mat.VecDense, error) {
	n := yTrue.Len()
	if n == 0 {
		return nil, errors.NewValueError(op, "empty vector")
	}
	if yPred.Len() != n {
		return nil, errors.NewDimensionError(op, n, yPred.Len(), 0)
	}
	var d mat.VecDense
	d.SubVec(yTrue, yPred)
	return &d, nil
}

// MSE は平均二乗誤差
func MSE(yTrue, yPred *mat.VecDense) (float64, error) {
	d, err := residuals("MSE", yTrue, yPred)
	if err != nil {
		return 0, err
	}
	return mat.Dot(d, d) / float64(d.Len()), nil
}

// RMSE は MSE の平方根。目的変数と同じ単位になる。
func RMSE(yTrue, yPred *mat.VecDense) (float64, error) {
	mse, err := MSE(yTrue, yPred)
	if err != nil {
		return 0, err
	}
	return math.Sqrt(mse), nil
}

// MAE は平均絶対誤差
func MAE(yTrue, yPred *mat.VecDense) (float64, error) {
	d, err := residuals("MAE", yTrue, yPred)
	if err != nil {
		return 0, err
	}
	return mat.Norm(d, 1) / float64(d.Len()), nil
}

// R2Score は決定係数 1 - RSS/TSS
func R2Score(yTrue, yPred *mat.VecDense) (float64, error) {
	d, err := residuals("R2Score", yTrue, yPred)
	if err != nil {
		return 0, err
	}
	rss := mat.Dot(d, d)

	ys := mat.Col(nil, 0, yTrue)
	mean := stat.Mean(ys, nil)
	var tss float64
	for _, v := range ys {
		tss += (v - mean) * (v - mean)
	}

	if tss == 0 {
		score := 0.0
		if rss == 0 {
			score = 1.0
		}
		errors.Warn(errors.NewUndefinedMetricWarning("r2_score", "yTrue has zero variance", score))
		return score, nil
	}
	return 1 - rss/tss, nil
}

// R2ScoreMatrix は n×1 行列版の R2Score。推定器の Score はこれを使う。
func R2ScoreMatrix(yTrue, yPred mat.Matrix) (float64, error) {
	t, p, err := columns("R2ScoreMatrix", yTrue, yPred)
	if err != nil {
		return 0, err
	}
	return R2Score(t, p)
}

// RMSEMatrix は n×1 行列版の RMSE
func RMSEMatrix(yTrue, yPred mat.Matrix) (float64, error) {
	t, p, err := columns("RMSEMatrix", yTrue, yPred)
	if err != nil {
		return 0, err
	}
	return RMSE(t, p)
}

// MAEMatrix は n×1 行列版の MAE
func MAEMatrix(yTrue, yPred mat.Matrix) (float64, error) {
	t, p, err := columns("MAEMatrix", yTrue, yPred)
	if err != nil {
		return 0, err
	}
	return MAE(t, p)
}

// columns checks that both inputs are non-empty n×1 matrices of the same
// length and returns them as vectors.
func columns(op string, yTrue, yPred mat.Matrix) (*mat.VecDense, *mat.VecDense, error) {
	rTrue, cTrue := yTrue.Dims()
	rPred, cPred := yPred.Dims()
	if rTrue == 0 || cTrue == 0 {
		return nil, nil, errors.NewValueError(op, "empty matrix")
	}
	if rTrue != rPred {
		return nil, nil, errors.NewDimensionError(op, rTrue, rPred, 0)
	}
	if cTrue != 1 || cPred != 1 {
		return nil, nil, errors.NewValueError(op, "must be a column vector (n×1 matrix)")
	}
	return columnVec(yTrue), columnVec(yPred), nil
}

func columnVec(m mat.Matrix) *mat.VecDense {
	if v, ok := m.(*mat.VecDense); ok {
		return v
	}
	r, _ := m.Dims()
	return mat.NewVecDense(r, mat.Col(nil, 0, m))
}
