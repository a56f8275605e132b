// Package linear_model provides scikit-learn compatible linear regressors.
package linear_model

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/studentperf/core/model"
	"github.com/YuminosukeSato/studentperf/metrics"
	"github.com/YuminosukeSato/studentperf/pkg/errors"
)

// rcond is the relative cutoff below which singular values are treated as
// zero. One-hot blocks make the design matrix rank deficient, and the
// minimum-norm solution over the remaining directions is what LAPACK gelsd
// returns.
const rcond = 1e-10

// LinearRegression is a linear regression model using ordinary least squares
// Fully compatible with scikit-learn's LinearRegression
type LinearRegression struct {
	model.BaseEstimator

	// Hyperparameters
	FitIntercept bool // Whether to learn the intercept

	// Learned parameters
	Coef      []float64 // Weight coefficients
	Intercept float64   // Intercept

	// Statistical information
	NFeatures      int       // Number of features
	Rank           int       // Effective rank of the centered design matrix
	SingularValues []float64 // Singular values (for diagnostics)
}

// NewLinearRegression は新しいLinearRegressionモデルを作成
func NewLinearRegression(options ...LinearRegressionOption) *LinearRegression {
	lr := &LinearRegression{FitIntercept: true}
	for _, opt := range options {
		opt(lr)
	}
	return lr
}

// LinearRegressionOption は設定オプション
type LinearRegressionOption func(*LinearRegression)

// WithFitIntercept は切片の学習有無を設定
func WithFitIntercept(fit bool) LinearRegressionOption {
	return func(lr *LinearRegression) {
		lr.FitIntercept = fit
	}
}

// Fit はモデルを訓練データで学習
//
// fit_intercept=true のとき X と y を中心化してから最小二乗解を求め、
// 切片を mean(y) - mean(X)·coef で復元する（scikit-learn と同じ手順）。
func (lr *LinearRegression) Fit(X, y mat.Matrix) error {
	rows, cols, err := model.CheckXY("LinearRegression.Fit", X, y)
	if err != nil {
		return err
	}
	lr.Reset()

	XWork := mat.DenseCopyOf(X)
	yWork := mat.DenseCopyOf(y)

	xMean := make([]float64, cols)
	var yMean float64
	if lr.FitIntercept {
		for j := 0; j < cols; j++ {
			var sum float64
			for i := 0; i < rows; i++ {
				sum += XWork.At(i, j)
			}
			xMean[j] = sum / float64(rows)
		}
		for i := 0; i < rows; i++ {
			yMean += yWork.At(i, 0)
		}
		yMean /= float64(rows)

		for i := 0; i < rows; i++ {
			for j := 0; j < cols; j++ {
				XWork.Set(i, j, XWork.At(i, j)-xMean[j])
			}
			yWork.Set(i, 0, yWork.At(i, 0)-yMean)
		}
	}

	var svd mat.SVD
	if ok := svd.Factorize(XWork, mat.SVDThin); !ok {
		return errors.NewModelError("LinearRegression.Fit", "svd", errors.ErrSingularMatrix)
	}
	rank := svd.Rank(rcond)
	if rank == 0 {
		// X is constant: the best linear fit is the mean.
		lr.Coef = make([]float64, cols)
	} else {
		var coef mat.Dense
		svd.SolveTo(&coef, yWork, rank)
		lr.Coef = make([]float64, cols)
		for j := 0; j < cols; j++ {
			lr.Coef[j] = coef.At(j, 0)
		}
	}

	lr.Intercept = 0
	if lr.FitIntercept {
		lr.Intercept = yMean
		for j := 0; j < cols; j++ {
			lr.Intercept -= xMean[j] * lr.Coef[j]
		}
	}
	if err := errors.CheckScalar("LinearRegression.Fit", lr.Intercept, 0); err != nil {
		return err
	}

	lr.Rank = rank
	lr.SingularValues = svd.Values(nil)
	lr.NFeatures = cols
	lr.SetFitted()
	return nil
}

// Predict は入力データに対する予測を行う
func (lr *LinearRegression) Predict(X mat.Matrix) (mat.Matrix, error) {
	if err := lr.RequireFitted("LinearRegression", "Predict"); err != nil {
		return nil, err
	}
	rows, err := model.CheckX("LinearRegression.Predict", X, lr.NFeatures)
	if err != nil {
		return nil, err
	}

	predictions := mat.NewDense(rows, 1, nil)
	for i := 0; i < rows; i++ {
		pred := lr.Intercept
		for j := 0; j < lr.NFeatures; j++ {
			pred += X.At(i, j) * lr.Coef[j]
		}
		predictions.Set(i, 0, pred)
	}
	return predictions, nil
}

// Score はモデルの決定係数（R²）を計算
func (lr *LinearRegression) Score(X, y mat.Matrix) (float64, error) {
	predictions, err := lr.Predict(X)
	if err != nil {
		return 0, err
	}
	return metrics.R2ScoreMatrix(y, predictions)
}

// GetParams returns the model's hyperparameters (scikit-learn compatible)
func (lr *LinearRegression) GetParams() model.Params {
	return model.Params{"fit_intercept": lr.FitIntercept}
}

// SetParams sets the model's hyperparameters (scikit-learn compatible)
func (lr *LinearRegression) SetParams(params model.Params) error {
	for _, key := range params.Keys() {
		var err error
		switch key {
		case "fit_intercept":
			lr.FitIntercept, err = params.Bool(key)
		default:
			err = model.UnknownParam("LinearRegression", key, params[key])
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// Clone はモデルの新しいインスタンスを作成（同じハイパーパラメータ、未学習）
func (lr *LinearRegression) Clone() model.Regressor {
	return NewLinearRegression(WithFitIntercept(lr.FitIntercept))
}

// String returns the string representation of the model
func (lr *LinearRegression) String() string {
	if !lr.IsFitted() {
		return fmt.Sprintf("LinearRegression(fit_intercept=%t)", lr.FitIntercept)
	}
	return fmt.Sprintf("LinearRegression(fit_intercept=%t, n_features=%d, rank=%d)",
		lr.FitIntercept, lr.NFeatures, lr.Rank)
}
