package ensemble

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/studentperf/core/model"
	"github.com/YuminosukeSato/studentperf/pkg/errors"
	"github.com/YuminosukeSato/studentperf/pkg/log"
	"github.com/YuminosukeSato/studentperf/sklearn/tree"
)

// GradientBoostingRegressor is least-squares gradient boosting
// (scikit-learn GradientBoostingRegressor with loss="squared_error").
// The initial prediction is the target mean and every stage fits a
// regression tree to the current residuals.
type GradientBoostingRegressor struct {
	model.BaseEstimator

	NEstimators     int
	LearningRate    float64
	Subsample       float64
	Criterion       string
	MaxDepth        int
	MinSamplesSplit int
	MinSamplesLeaf  int
	RandomState     int

	Init      float64
	Trees     []*tree.Tree
	NFeatures int
	// TrainScore is the in-bag mean squared error after each stage.
	TrainScore []float64
}

// NewGradientBoostingRegressor returns a booster with scikit-learn defaults.
func NewGradientBoostingRegressor() *GradientBoostingRegressor {
	return &GradientBoostingRegressor{
		NEstimators:     100,
		LearningRate:    0.1,
		Subsample:       1.0,
		Criterion:       tree.CriterionFriedmanMSE,
		MaxDepth:        3,
		MinSamplesSplit: 2,
		MinSamplesLeaf:  1,
	}
}

func (g *GradientBoostingRegressor) validate() error {
	if g.NEstimators < 1 {
		return errors.NewValidationError("n_estimators", "must be at least 1", g.NEstimators)
	}
	if g.LearningRate <= 0 {
		return errors.NewValidationError("learning_rate", "must be positive", g.LearningRate)
	}
	if g.Subsample <= 0 || g.Subsample > 1 {
		return errors.NewValidationError("subsample", "must be in (0, 1]", g.Subsample)
	}
	return nil
}

// Fit runs NEstimators boosting stages.
func (g *GradientBoostingRegressor) Fit(X, y mat.Matrix) error {
	cols, target, err := prepare("GradientBoostingRegressor.Fit", X, y)
	if err != nil {
		return err
	}
	if err := g.validate(); err != nil {
		return err
	}
	g.Reset()

	n := len(target)
	g.Init = meanOf(target)
	pred := make([]float64, n)
	for i := range pred {
		pred[i] = g.Init
	}

	rng := newRand(uint64(g.RandomState))
	all := tree.Presort(cols, nil)
	resid := make([]float64, n)
	g.Trees = make([]*tree.Tree, 0, g.NEstimators)
	g.TrainScore = make([]float64, 0, g.NEstimators)

	b := tree.NewBuilder(g.Criterion)
	b.MaxDepth = g.MaxDepth
	b.MinSamplesSplit = g.MinSamplesSplit
	b.MinSamplesLeaf = g.MinSamplesLeaf

	nSub := int(g.Subsample * float64(n))
	if nSub < 1 {
		nSub = 1
	}

	for m := 0; m < g.NEstimators; m++ {
		for i := range resid {
			resid[i] = target[i] - pred[i]
		}

		w := ones(n)
		if nSub < n {
			for i := range w {
				w[i] = 0
			}
			for _, i := range rng.Perm(n)[:nSub] {
				w[i] = 1
			}
		}

		t, err := b.Build(cols, resid, w, filterSorted(all, w))
		if err != nil {
			return err
		}
		g.Trees = append(g.Trees, t)

		var loss, inBag float64
		for i := range pred {
			pred[i] += g.LearningRate * t.Nodes[leafOf(t, cols, i)].Value
			if w[i] > 0 {
				d := target[i] - pred[i]
				loss += d * d
				inBag++
			}
		}
		g.TrainScore = append(g.TrainScore, loss/inBag)
	}

	g.NFeatures = len(cols)
	g.SetFitted()
	log.GetLoggerWithName("GradientBoostingRegressor").Debug("fit complete",
		"n_estimators", g.NEstimators, "train_mse", g.TrainScore[len(g.TrainScore)-1])
	return nil
}

// leafOf descends t using column-major training features.
func leafOf(t *tree.Tree, cols [][]float64, i int) int {
	id := 0
	for {
		nd := t.Nodes[id]
		if nd.Feature < 0 {
			return id
		}
		if cols[nd.Feature][i] <= nd.Threshold {
			id = nd.Left
		} else {
			id = nd.Right
		}
	}
}

// Predict returns Init plus the shrunken sum of all stages.
func (g *GradientBoostingRegressor) Predict(X mat.Matrix) (mat.Matrix, error) {
	if err := g.RequireFitted("GradientBoostingRegressor", "Predict"); err != nil {
		return nil, err
	}
	rows, err := model.CheckX("GradientBoostingRegressor.Predict", X, g.NFeatures)
	if err != nil {
		return nil, err
	}
	out := make([]float64, rows)
	for i := range out {
		out[i] = g.Init
	}
	for _, t := range g.Trees {
		for i := 0; i < rows; i++ {
			out[i] += g.LearningRate * t.PredictAt(X, i)
		}
	}
	return mat.NewDense(rows, 1, out), nil
}

// Score returns the R² of the prediction.
func (g *GradientBoostingRegressor) Score(X, y mat.Matrix) (float64, error) {
	return score(g, X, y)
}

// GetParams returns the hyperparameters.
func (g *GradientBoostingRegressor) GetParams() model.Params {
	var maxDepth interface{}
	if g.MaxDepth >= 0 {
		maxDepth = g.MaxDepth
	}
	return model.Params{
		"n_estimators":      g.NEstimators,
		"learning_rate":     g.LearningRate,
		"subsample":         g.Subsample,
		"criterion":         g.Criterion,
		"max_depth":         maxDepth,
		"min_samples_split": g.MinSamplesSplit,
		"min_samples_leaf":  g.MinSamplesLeaf,
		"random_state":      g.RandomState,
	}
}

// SetParams updates the hyperparameters.
func (g *GradientBoostingRegressor) SetParams(params model.Params) error {
	for _, key := range params.Keys() {
		var err error
		switch key {
		case "n_estimators":
			g.NEstimators, err = params.Int(key)
		case "learning_rate":
			g.LearningRate, err = params.Float(key)
		case "subsample":
			g.Subsample, err = params.Float(key)
		case "criterion":
			g.Criterion, err = params.Str(key)
		case "max_depth":
			g.MaxDepth, err = params.OptionalInt(key)
		case "min_samples_split":
			g.MinSamplesSplit, err = params.Int(key)
		case "min_samples_leaf":
			g.MinSamplesLeaf, err = params.Int(key)
		case "random_state":
			g.RandomState, err = params.Int(key)
		default:
			err = model.UnknownParam("GradientBoostingRegressor", key, params[key])
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// Clone returns an unfitted booster with the same hyperparameters.
func (g *GradientBoostingRegressor) Clone() model.Regressor {
	c := NewGradientBoostingRegressor()
	_ = c.SetParams(g.GetParams())
	return c
}

func (g *GradientBoostingRegressor) String() string {
	return fmt.Sprintf("GradientBoostingRegressor(n_estimators=%d, learning_rate=%g, subsample=%g)",
		g.NEstimators, g.LearningRate, g.Subsample)
}
