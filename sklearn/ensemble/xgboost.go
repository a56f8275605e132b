package ensemble

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/studentperf/core/model"
	"github.com/YuminosukeSato/studentperf/pkg/errors"
	"github.com/YuminosukeSato/studentperf/sklearn/tree"
)

// splitEps is the minimum loss reduction XGBoost requires for a split
// (kRtEps).
const splitEps = 1e-6

// XGBRegressor is a second-order gradient booster for the
// reg:squarederror objective with exact greedy split finding, following
// the XGBoost defaults.
//
// With squared error every hessian is one, so the optimal leaf weight is
// sum(residual) / (count + reg_lambda) and a split is kept only when
//
//	1/2 [GL²/(HL+λ) + GR²/(HR+λ) - G²/(H+λ)] - γ > 0
type XGBRegressor struct {
	model.BaseEstimator

	NEstimators    int
	LearningRate   float64
	MaxDepth       int
	MinChildWeight float64
	RegLambda      float64
	Gamma          float64
	Subsample      float64
	RandomState    int

	// BaseScore is the initial prediction, the target mean.
	BaseScore float64
	Trees     []*tree.Tree
	NFeatures int
}

// NewXGBRegressor returns a booster with XGBoost defaults.
func NewXGBRegressor() *XGBRegressor {
	return &XGBRegressor{
		NEstimators:    100,
		LearningRate:   0.3,
		MaxDepth:       6,
		MinChildWeight: 1,
		RegLambda:      1,
		Subsample:      1,
	}
}

func (x *XGBRegressor) validate() error {
	switch {
	case x.NEstimators < 1:
		return errors.NewValidationError("n_estimators", "must be at least 1", x.NEstimators)
	case x.LearningRate <= 0:
		return errors.NewValidationError("learning_rate", "must be positive", x.LearningRate)
	case x.RegLambda < 0:
		return errors.NewValidationError("reg_lambda", "must be non-negative", x.RegLambda)
	case x.Gamma < 0:
		return errors.NewValidationError("gamma", "must be non-negative", x.Gamma)
	case x.Subsample <= 0 || x.Subsample > 1:
		return errors.NewValidationError("subsample", "must be in (0, 1]", x.Subsample)
	}
	return nil
}

// Fit runs NEstimators boosting rounds.
func (x *XGBRegressor) Fit(X, y mat.Matrix) error {
	cols, target, err := prepare("XGBRegressor.Fit", X, y)
	if err != nil {
		return err
	}
	if err := x.validate(); err != nil {
		return err
	}
	x.Reset()

	n := len(target)
	x.BaseScore = meanOf(target)
	pred := make([]float64, n)
	for i := range pred {
		pred[i] = x.BaseScore
	}

	b := tree.NewBuilder(tree.CriterionL2)
	b.MaxDepth = x.MaxDepth
	b.Lambda = x.RegLambda
	b.MinWeightLeaf = x.MinChildWeight
	// the builder compares twice the XGBoost gain
	b.MinGain = 2*x.Gamma + splitEps

	rng := newRand(uint64(x.RandomState))
	all := tree.Presort(cols, nil)
	resid := make([]float64, n)
	x.Trees = make([]*tree.Tree, 0, x.NEstimators)

	for m := 0; m < x.NEstimators; m++ {
		for i := range resid {
			resid[i] = target[i] - pred[i]
		}
		w := ones(n)
		if x.Subsample < 1 {
			for i := range w {
				if rng.Float64() >= x.Subsample {
					w[i] = 0
				}
			}
		}
		t, err := b.Build(cols, resid, w, filterSorted(all, w))
		if err != nil {
			return err
		}
		x.Trees = append(x.Trees, t)
		for i := range pred {
			pred[i] += x.LearningRate * t.Nodes[leafOf(t, cols, i)].Value
		}
	}

	x.NFeatures = len(cols)
	x.SetFitted()
	return nil
}

// Predict returns BaseScore plus the shrunken leaf weights of every round.
func (x *XGBRegressor) Predict(X mat.Matrix) (mat.Matrix, error) {
	if err := x.RequireFitted("XGBRegressor", "Predict"); err != nil {
		return nil, err
	}
	rows, err := model.CheckX("XGBRegressor.Predict", X, x.NFeatures)
	if err != nil {
		return nil, err
	}
	out := make([]float64, rows)
	for i := range out {
		out[i] = x.BaseScore
	}
	for _, t := range x.Trees {
		for i := 0; i < rows; i++ {
			out[i] += x.LearningRate * t.PredictAt(X, i)
		}
	}
	return mat.NewDense(rows, 1, out), nil
}

// Score returns the R² of the prediction.
func (x *XGBRegressor) Score(X, y mat.Matrix) (float64, error) {
	return score(x, X, y)
}

// GetParams returns the hyperparameters.
func (x *XGBRegressor) GetParams() model.Params {
	return model.Params{
		"n_estimators":     x.NEstimators,
		"learning_rate":    x.LearningRate,
		"max_depth":        x.MaxDepth,
		"min_child_weight": x.MinChildWeight,
		"reg_lambda":       x.RegLambda,
		"gamma":            x.Gamma,
		"subsample":        x.Subsample,
		"random_state":     x.RandomState,
	}
}

// SetParams updates the hyperparameters.
func (x *XGBRegressor) SetParams(params model.Params) error {
	for _, key := range params.Keys() {
		var err error
		switch key {
		case "n_estimators":
			x.NEstimators, err = params.Int(key)
		case "learning_rate":
			x.LearningRate, err = params.Float(key)
		case "max_depth":
			x.MaxDepth, err = params.Int(key)
		case "min_child_weight":
			x.MinChildWeight, err = params.Float(key)
		case "reg_lambda":
			x.RegLambda, err = params.Float(key)
		case "gamma":
			x.Gamma, err = params.Float(key)
		case "subsample":
			x.Subsample, err = params.Float(key)
		case "random_state":
			x.RandomState, err = params.Int(key)
		default:
			err = model.UnknownParam("XGBRegressor", key, params[key])
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// Clone returns an unfitted booster with the same hyperparameters.
func (x *XGBRegressor) Clone() model.Regressor {
	c := NewXGBRegressor()
	_ = c.SetParams(x.GetParams())
	return c
}

func (x *XGBRegressor) String() string {
	return fmt.Sprintf("XGBRegressor(n_estimators=%d, learning_rate=%g, max_depth=%d)",
		x.NEstimators, x.LearningRate, x.MaxDepth)
}
