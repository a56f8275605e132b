// Package tree implements scikit-learn compatible decision tree regression.
//
// Trees are grown with exact greedy splitting on presorted feature indices.
// The Builder is exported so that the ensembles in sklearn/ensemble can grow
// trees on their own targets and sample weights.
package tree

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/studentperf/core/model"
	"github.com/YuminosukeSato/studentperf/metrics"
	"github.com/YuminosukeSato/studentperf/pkg/errors"
)

// DecisionTreeRegressor is a scikit-learn compatible regression tree.
type DecisionTreeRegressor struct {
	model.BaseEstimator

	Criterion       string
	MaxDepth        int // -1 means unlimited (max_depth=None)
	MinSamplesSplit int
	MinSamplesLeaf  int

	Tree      *Tree
	NFeatures int
}

// Option configures a DecisionTreeRegressor.
type Option func(*DecisionTreeRegressor)

// WithCriterion sets the split criterion.
func WithCriterion(criterion string) Option {
	return func(d *DecisionTreeRegressor) { d.Criterion = criterion }
}

// WithMaxDepth limits the depth of the tree. Negative means unlimited.
func WithMaxDepth(depth int) Option {
	return func(d *DecisionTreeRegressor) { d.MaxDepth = depth }
}

// WithMinSamplesSplit sets the minimum number of samples required to split a node.
func WithMinSamplesSplit(n int) Option {
	return func(d *DecisionTreeRegressor) { d.MinSamplesSplit = n }
}

// WithMinSamplesLeaf sets the minimum number of samples in each leaf.
func WithMinSamplesLeaf(n int) Option {
	return func(d *DecisionTreeRegressor) { d.MinSamplesLeaf = n }
}

// NewDecisionTreeRegressor creates a tree with scikit-learn defaults
// (squared_error, unlimited depth, min_samples_split=2, min_samples_leaf=1).
func NewDecisionTreeRegressor(opts ...Option) *DecisionTreeRegressor {
	d := &DecisionTreeRegressor{
		Criterion:       CriterionSquaredError,
		MaxDepth:        -1,
		MinSamplesSplit: 2,
		MinSamplesLeaf:  1,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Builder returns a tree builder configured with the hyperparameters of d.
func (d *DecisionTreeRegressor) Builder() *Builder {
	b := NewBuilder(d.Criterion)
	b.MaxDepth = d.MaxDepth
	b.MinSamplesSplit = d.MinSamplesSplit
	b.MinSamplesLeaf = d.MinSamplesLeaf
	return b
}

// Fit grows the tree on X and y.
func (d *DecisionTreeRegressor) Fit(X, y mat.Matrix) error {
	return d.FitWeighted(X, y, nil)
}

// FitWeighted grows the tree with per-sample weights. A nil w means unit
// weights; samples with zero weight are ignored.
func (d *DecisionTreeRegressor) FitWeighted(X, y mat.Matrix, w []float64) error {
	rows, cols, err := model.CheckXY("DecisionTreeRegressor.Fit", X, y)
	if err != nil {
		return err
	}
	d.Reset()

	target := model.Column(y)
	if d.Criterion == CriterionPoisson {
		if err := checkPoissonTarget(target); err != nil {
			return err
		}
	}

	weights := w
	if weights == nil {
		weights = make([]float64, rows)
		for i := range weights {
			weights[i] = 1
		}
	} else if len(weights) != rows {
		return errors.NewDimensionError("DecisionTreeRegressor.Fit", rows, len(weights), 0)
	}

	features := Columns(X)
	t, err := d.Builder().Build(features, target, weights, Presort(features, w))
	if err != nil {
		return err
	}

	d.Tree = t
	d.NFeatures = cols
	d.SetFitted()
	return nil
}

func checkPoissonTarget(y []float64) error {
	var sum float64
	for _, v := range y {
		if v < 0 {
			return errors.NewValidationError("y",
				"some value(s) of y are negative which is not allowed for Poisson regression", v)
		}
		sum += v
	}
	if sum <= 0 {
		return errors.NewValidationError("y",
			"sum of y is not positive which is necessary for Poisson regression", sum)
	}
	return nil
}

// Predict returns the leaf value of every row as an n×1 matrix.
func (d *DecisionTreeRegressor) Predict(X mat.Matrix) (mat.Matrix, error) {
	if err := d.RequireFitted("DecisionTreeRegressor", "Predict"); err != nil {
		return nil, err
	}
	rows, err := model.CheckX("DecisionTreeRegressor.Predict", X, d.NFeatures)
	if err != nil {
		return nil, err
	}
	return mat.NewDense(rows, 1, d.Tree.Predict(X)), nil
}

// Score returns the R² of the prediction.
func (d *DecisionTreeRegressor) Score(X, y mat.Matrix) (float64, error) {
	pred, err := d.Predict(X)
	if err != nil {
		return 0, err
	}
	return metrics.R2ScoreMatrix(y, pred)
}

// GetParams returns the hyperparameters.
func (d *DecisionTreeRegressor) GetParams() model.Params {
	var maxDepth interface{}
	if d.MaxDepth >= 0 {
		maxDepth = d.MaxDepth
	}
	return model.Params{
		"criterion":         d.Criterion,
		"max_depth":         maxDepth,
		"min_samples_split": d.MinSamplesSplit,
		"min_samples_leaf":  d.MinSamplesLeaf,
	}
}

// SetParams updates the hyperparameters.
func (d *DecisionTreeRegressor) SetParams(params model.Params) error {
	for _, key := range params.Keys() {
		var err error
		switch key {
		case "criterion":
			d.Criterion, err = params.Str(key)
			if err == nil {
				if _, ok := newCriterion(d.Criterion, 0); !ok || d.Criterion == CriterionL2 {
					err = errors.NewValidationError(key,
						"must be one of squared_error, friedman_mse, absolute_error, poisson", d.Criterion)
				}
			}
		case "max_depth":
			d.MaxDepth, err = params.OptionalInt(key)
		case "min_samples_split":
			d.MinSamplesSplit, err = params.Int(key)
		case "min_samples_leaf":
			d.MinSamplesLeaf, err = params.Int(key)
		default:
			err = model.UnknownParam("DecisionTreeRegressor", key, params[key])
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// Clone returns an unfitted tree with the same hyperparameters.
func (d *DecisionTreeRegressor) Clone() model.Regressor {
	return d.CloneTree()
}

// CloneTree is Clone with the concrete return type.
func (d *DecisionTreeRegressor) CloneTree() *DecisionTreeRegressor {
	return NewDecisionTreeRegressor(
		WithCriterion(d.Criterion),
		WithMaxDepth(d.MaxDepth),
		WithMinSamplesSplit(d.MinSamplesSplit),
		WithMinSamplesLeaf(d.MinSamplesLeaf),
	)
}

func (d *DecisionTreeRegressor) String() string {
	if !d.IsFitted() {
		return fmt.Sprintf("DecisionTreeRegressor(criterion=%s, max_depth=%d)", d.Criterion, d.MaxDepth)
	}
	return fmt.Sprintf("DecisionTreeRegressor(criterion=%s, depth=%d, leaves=%d)",
		d.Criterion, d.Tree.Depth(), d.Tree.NLeaves())
}
