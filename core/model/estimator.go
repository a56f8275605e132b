package model

import "gonum.org/v1/gonum/mat"

// Fitter は学習可能なモデルのインターフェース
type Fitter interface {
	// Fit はモデルを訓練データで学習させる
	Fit(X, y mat.Matrix) error
}

// Predictor は予測可能なモデルのインターフェース
type Predictor interface {
	// Predict は入力データに対する予測を行う (n_samples × 1)
	Predict(X mat.Matrix) (mat.Matrix, error)
}

// Scorer is the interface for models that can compute a score.
type Scorer interface {
	// Score returns the coefficient of determination R^2 of the prediction.
	Score(X, y mat.Matrix) (float64, error)
}

// ParamEstimator exposes sklearn-style hyperparameters by name.
type ParamEstimator interface {
	// GetParams returns a copy of the current hyperparameters.
	GetParams() Params
	// SetParams updates the named hyperparameters. Unknown names and values
	// of the wrong kind are rejected with a ValidationError.
	SetParams(params Params) error
}

// Regressor is the contract every estimator in the model registry fulfils.
//
// Clone returns an unfitted copy carrying the same hyperparameters, which is
// how grid search obtains a fresh estimator per candidate and per fold.
type Regressor interface {
	Fitter
	Predictor
	Scorer
	ParamEstimator
	Clone() Regressor
	IsFitted() bool
}
