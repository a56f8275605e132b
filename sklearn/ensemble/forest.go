package ensemble

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/studentperf/core/model"
	"github.com/YuminosukeSato/studentperf/core/parallel"
	"github.com/YuminosukeSato/studentperf/pkg/errors"
	"github.com/YuminosukeSato/studentperf/sklearn/tree"
)

// predictParallelThreshold is the batch size above which Predict splits the
// rows across CPUs.
const predictParallelThreshold = 1000

// RandomForestRegressor averages regression trees grown on bootstrap
// samples (scikit-learn RandomForestRegressor with max_features=1.0).
type RandomForestRegressor struct {
	model.BaseEstimator

	NEstimators     int
	Criterion       string
	MaxDepth        int // -1 means unlimited
	MinSamplesSplit int
	MinSamplesLeaf  int
	Bootstrap       bool
	RandomState     int
	// NJobs is the number of trees grown concurrently; <= 0 uses every CPU.
	NJobs int

	Trees     []*tree.Tree
	NFeatures int
}

// NewRandomForestRegressor returns a forest with scikit-learn defaults.
func NewRandomForestRegressor() *RandomForestRegressor {
	return &RandomForestRegressor{
		NEstimators:     100,
		Criterion:       tree.CriterionSquaredError,
		MaxDepth:        -1,
		MinSamplesSplit: 2,
		MinSamplesLeaf:  1,
		Bootstrap:       true,
	}
}

// Fit grows NEstimators trees. Each tree draws its bootstrap sample from a
// seed derived from RandomState, so the result does not depend on NJobs.
func (f *RandomForestRegressor) Fit(X, y mat.Matrix) error {
	cols, target, err := prepare("RandomForestRegressor.Fit", X, y)
	if err != nil {
		return err
	}
	if f.NEstimators < 1 {
		return errors.NewValidationError("n_estimators", "must be at least 1", f.NEstimators)
	}
	f.Reset()

	n := len(target)
	rng := newRand(uint64(f.RandomState))
	seeds := make([]uint64, f.NEstimators)
	for i := range seeds {
		seeds[i] = rng.Uint64()
	}

	var fullSorted [][]int
	if !f.Bootstrap {
		fullSorted = tree.Presort(cols, nil)
	}

	trees := make([]*tree.Tree, f.NEstimators)
	err = parallel.ForEach(f.NEstimators, f.NJobs, func(k int) error {
		b := tree.NewBuilder(f.Criterion)
		b.MaxDepth = f.MaxDepth
		b.MinSamplesSplit = f.MinSamplesSplit
		b.MinSamplesLeaf = f.MinSamplesLeaf

		if !f.Bootstrap {
			t, err := b.Build(cols, target, ones(n), copySorted(fullSorted))
			trees[k] = t
			return err
		}

		r := newRand(seeds[k])
		w := make([]float64, n)
		for i := 0; i < n; i++ {
			w[r.IntN(n)]++
		}
		t, err := b.Build(cols, target, w, tree.Presort(cols, w))
		trees[k] = t
		return err
	})
	if err != nil {
		return err
	}

	f.Trees = trees
	f.NFeatures = len(cols)
	f.SetFitted()
	return nil
}

func copySorted(sorted [][]int) [][]int {
	out := make([][]int, len(sorted))
	for j, idx := range sorted {
		out[j] = append([]int(nil), idx...)
	}
	return out
}

// Predict averages the predictions of all trees.
func (f *RandomForestRegressor) Predict(X mat.Matrix) (mat.Matrix, error) {
	if err := f.RequireFitted("RandomForestRegressor", "Predict"); err != nil {
		return nil, err
	}
	rows, err := model.CheckX("RandomForestRegressor.Predict", X, f.NFeatures)
	if err != nil {
		return nil, err
	}
	out := make([]float64, rows)
	parallel.ParallelizeWithThreshold(rows, predictParallelThreshold, func(start, end int) {
		for i := start; i < end; i++ {
			var sum float64
			for _, t := range f.Trees {
				sum += t.PredictAt(X, i)
			}
			out[i] = sum / float64(len(f.Trees))
		}
	})
	return mat.NewDense(rows, 1, out), nil
}

// Score returns the R² of the prediction.
func (f *RandomForestRegressor) Score(X, y mat.Matrix) (float64, error) {
	return score(f, X, y)
}

// GetParams returns the hyperparameters.
func (f *RandomForestRegressor) GetParams() model.Params {
	var maxDepth interface{}
	if f.MaxDepth >= 0 {
		maxDepth = f.MaxDepth
	}
	return model.Params{
		"n_estimators":      f.NEstimators,
		"criterion":         f.Criterion,
		"max_depth":         maxDepth,
		"min_samples_split": f.MinSamplesSplit,
		"min_samples_leaf":  f.MinSamplesLeaf,
		"bootstrap":         f.Bootstrap,
		"random_state":      f.RandomState,
		"n_jobs":            f.NJobs,
	}
}

// SetParams updates the hyperparameters.
func (f *RandomForestRegressor) SetParams(params model.Params) error {
	for _, key := range params.Keys() {
		var err error
		switch key {
		case "n_estimators":
			f.NEstimators, err = params.Int(key)
		case "criterion":
			f.Criterion, err = params.Str(key)
		case "max_depth":
			f.MaxDepth, err = params.OptionalInt(key)
		case "min_samples_split":
			f.MinSamplesSplit, err = params.Int(key)
		case "min_samples_leaf":
			f.MinSamplesLeaf, err = params.Int(key)
		case "bootstrap":
			f.Bootstrap, err = params.Bool(key)
		case "random_state":
			f.RandomState, err = params.Int(key)
		case "n_jobs":
			f.NJobs, err = params.Int(key)
		default:
			err = model.UnknownParam("RandomForestRegressor", key, params[key])
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// Clone returns an unfitted forest with the same hyperparameters.
func (f *RandomForestRegressor) Clone() model.Regressor {
	c := NewRandomForestRegressor()
	_ = c.SetParams(f.GetParams())
	return c
}

func (f *RandomForestRegressor) String() string {
	return fmt.Sprintf("RandomForestRegressor(n_estimators=%d, criterion=%s)", f.NEstimators, f.Criterion)
}
