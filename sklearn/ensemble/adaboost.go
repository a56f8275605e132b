package ensemble

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/studentperf/core/model"
	"github.com/YuminosukeSato/studentperf/pkg/errors"
	"github.com/YuminosukeSato/studentperf/sklearn/tree"
)

// AdaBoost.R2 loss functions.
const (
	LossLinear      = "linear"
	LossSquare      = "square"
	LossExponential = "exponential"
)

// AdaBoostRegressor implements AdaBoost.R2 (Drucker, 1997) over depth-3
// regression trees, as scikit-learn's AdaBoostRegressor does. Each round
// fits a tree on a weighted bootstrap sample and the ensemble predicts the
// weighted median of the trees.
type AdaBoostRegressor struct {
	model.BaseEstimator

	NEstimators  int
	LearningRate float64
	Loss         string
	MaxDepth     int
	RandomState  int

	Trees            []*tree.Tree
	EstimatorWeights []float64
	EstimatorErrors  []float64
	NFeatures        int
}

// NewAdaBoostRegressor returns a booster with scikit-learn defaults.
func NewAdaBoostRegressor() *AdaBoostRegressor {
	return &AdaBoostRegressor{
		NEstimators:  50,
		LearningRate: 1.0,
		Loss:         LossLinear,
		MaxDepth:     3,
	}
}

func (a *AdaBoostRegressor) validate() error {
	switch {
	case a.NEstimators < 1:
		return errors.NewValidationError("n_estimators", "must be at least 1", a.NEstimators)
	case a.LearningRate <= 0:
		return errors.NewValidationError("learning_rate", "must be positive", a.LearningRate)
	}
	switch a.Loss {
	case LossLinear, LossSquare, LossExponential:
		return nil
	}
	return errors.NewValidationError("loss", "must be one of linear, square, exponential", a.Loss)
}

// Fit runs up to NEstimators boosting rounds. Boosting stops early when a
// tree fits perfectly or its weighted error reaches 0.5.
func (a *AdaBoostRegressor) Fit(X, y mat.Matrix) error {
	cols, target, err := prepare("AdaBoostRegressor.Fit", X, y)
	if err != nil {
		return err
	}
	if err := a.validate(); err != nil {
		return err
	}
	a.Reset()

	n := len(target)
	sw := make([]float64, n)
	for i := range sw {
		sw[i] = 1 / float64(n)
	}
	rng := newRand(uint64(a.RandomState))
	b := tree.NewBuilder(tree.CriterionSquaredError)
	b.MaxDepth = a.MaxDepth

	a.Trees = a.Trees[:0]
	a.EstimatorWeights = a.EstimatorWeights[:0]
	a.EstimatorErrors = a.EstimatorErrors[:0]
	cdf := make([]float64, n)
	errVec := make([]float64, n)

	for m := 0; m < a.NEstimators; m++ {
		// weighted bootstrap
		var acc float64
		for i, w := range sw {
			acc += w
			cdf[i] = acc
		}
		counts := make([]float64, n)
		for k := 0; k < n; k++ {
			i := sort.SearchFloat64s(cdf, rng.Float64()*acc)
			if i >= n {
				i = n - 1
			}
			counts[i]++
		}
		t, err := b.Build(cols, target, counts, tree.Presort(cols, counts))
		if err != nil {
			return err
		}

		var maxErr float64
		for i := range errVec {
			errVec[i] = math.Abs(t.Nodes[leafOf(t, cols, i)].Value - target[i])
			maxErr = math.Max(maxErr, errVec[i])
		}
		if maxErr != 0 {
			for i := range errVec {
				errVec[i] /= maxErr
			}
		}
		switch a.Loss {
		case LossSquare:
			for i := range errVec {
				errVec[i] *= errVec[i]
			}
		case LossExponential:
			for i := range errVec {
				errVec[i] = 1 - math.Exp(-errVec[i])
			}
		}

		var estErr, total float64
		for i, w := range sw {
			estErr += w * errVec[i]
			total += w
		}
		estErr /= total

		if estErr <= 0 {
			a.Trees = append(a.Trees, t)
			a.EstimatorWeights = append(a.EstimatorWeights, 1)
			a.EstimatorErrors = append(a.EstimatorErrors, 0)
			break
		}
		if estErr >= 0.5 {
			// a tree no better than chance is kept only if it is the first
			if len(a.Trees) == 0 {
				a.Trees = append(a.Trees, t)
				a.EstimatorWeights = append(a.EstimatorWeights, 1)
				a.EstimatorErrors = append(a.EstimatorErrors, estErr)
			}
			break
		}

		beta := estErr / (1 - estErr)
		weight := a.LearningRate * math.Log(1/beta)
		a.Trees = append(a.Trees, t)
		a.EstimatorWeights = append(a.EstimatorWeights, weight)
		a.EstimatorErrors = append(a.EstimatorErrors, estErr)

		if m == a.NEstimators-1 {
			break
		}
		var sum float64
		for i := range sw {
			sw[i] *= math.Pow(beta, (1-errVec[i])*a.LearningRate)
			sum += sw[i]
		}
		if sum <= 0 {
			break
		}
		for i := range sw {
			sw[i] /= sum
		}
	}

	a.NFeatures = len(cols)
	a.SetFitted()
	return nil
}

// Predict returns, per row, the weighted median of the tree predictions.
func (a *AdaBoostRegressor) Predict(X mat.Matrix) (mat.Matrix, error) {
	if err := a.RequireFitted("AdaBoostRegressor", "Predict"); err != nil {
		return nil, err
	}
	rows, err := model.CheckX("AdaBoostRegressor.Predict", X, a.NFeatures)
	if err != nil {
		return nil, err
	}
	var total float64
	for _, w := range a.EstimatorWeights {
		total += w
	}
	out := make([]float64, rows)
	preds := make([]float64, len(a.Trees))
	order := make([]int, len(a.Trees))
	for i := 0; i < rows; i++ {
		for k, t := range a.Trees {
			preds[k] = t.PredictAt(X, i)
			order[k] = k
		}
		sort.SliceStable(order, func(p, q int) bool { return preds[order[p]] < preds[order[q]] })
		var cum float64
		out[i] = preds[order[len(order)-1]]
		for _, k := range order {
			cum += a.EstimatorWeights[k]
			if cum >= 0.5*total {
				out[i] = preds[k]
				break
			}
		}
	}
	return mat.NewDense(rows, 1, out), nil
}

// Score returns the R² of the prediction.
func (a *AdaBoostRegressor) Score(X, y mat.Matrix) (float64, error) {
	return score(a, X, y)
}

// GetParams returns the hyperparameters.
func (a *AdaBoostRegressor) GetParams() model.Params {
	return model.Params{
		"n_estimators":  a.NEstimators,
		"learning_rate": a.LearningRate,
		"loss":          a.Loss,
		"max_depth":     a.MaxDepth,
		"random_state":  a.RandomState,
	}
}

// SetParams updates the hyperparameters.
func (a *AdaBoostRegressor) SetParams(params model.Params) error {
	for _, key := range params.Keys() {
		var err error
		switch key {
		case "n_estimators":
			a.NEstimators, err = params.Int(key)
		case "learning_rate":
			a.LearningRate, err = params.Float(key)
		case "loss":
			a.Loss, err = params.Str(key)
		case "max_depth":
			a.MaxDepth, err = params.Int(key)
		case "random_state":
			a.RandomState, err = params.Int(key)
		default:
			err = model.UnknownParam("AdaBoostRegressor", key, params[key])
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// Clone returns an unfitted booster with the same hyperparameters.
func (a *AdaBoostRegressor) Clone() model.Regressor {
	c := NewAdaBoostRegressor()
	_ = c.SetParams(a.GetParams())
	return c
}

func (a *AdaBoostRegressor) String() string {
	return fmt.Sprintf("AdaBoostRegressor(n_estimators=%d, learning_rate=%g, loss=%s)",
		a.NEstimators, a.LearningRate, a.Loss)
}
