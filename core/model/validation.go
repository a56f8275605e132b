package model

import (
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/studentperf/pkg/errors"
)

// CheckXY validates a training pair: X is n×d with n, d > 0, y is n×1 and
// neither contains NaN or Inf.
func CheckXY(op string, X, y mat.Matrix) (rows, cols int, err error) {
	rows, cols = X.Dims()
	if rows == 0 || cols == 0 {
		return 0, 0, errors.NewModelError(op, "empty data", errors.ErrEmptyData)
	}
	yRows, yCols := y.Dims()
	if yRows != rows {
		return 0, 0, errors.NewDimensionError(op, rows, yRows, 0)
	}
	if yCols != 1 {
		return 0, 0, errors.NewDimensionError(op, 1, yCols, 1)
	}
	if err := errors.CheckMatrix(op, X); err != nil {
		return 0, 0, err
	}
	if err := errors.CheckMatrix(op, y); err != nil {
		return 0, 0, err
	}
	return rows, cols, nil
}

// CheckX validates prediction input against the number of features seen
// during fitting.
func CheckX(op string, X mat.Matrix, nFeatures int) (rows int, err error) {
	rows, cols := X.Dims()
	if rows == 0 {
		return 0, errors.NewModelError(op, "empty data", errors.ErrEmptyData)
	}
	if cols != nFeatures {
		return 0, errors.NewDimensionError(op, nFeatures, cols, 1)
	}
	return rows, nil
}

// Column copies the single column of y into a slice.
func Column(y mat.Matrix) []float64 {
	r, _ := y.Dims()
	out := make([]float64, r)
	for i := range out {
		out[i] = y.At(i, 0)
	}
	return out
}
