package model_selection

import (
	"context"
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/YuminosukeSato/studentperf/core/model"
	"github.com/YuminosukeSato/studentperf/core/parallel"
	"github.com/YuminosukeSato/studentperf/pkg/errors"
	"github.com/YuminosukeSato/studentperf/pkg/log"
)

// CandidateResult is the cross-validation outcome of one parameter
// combination.
type CandidateResult struct {
	Params     model.Params
	FoldScores []float64
	MeanScore  float64
	StdScore   float64
}

// GridSearchCV evaluates every combination of ParamGrid with K-fold
// cross-validated R² and, when Refit is set, refits the best combination on
// the whole training set.
//
// Candidates and folds run concurrently, but results are stored by index,
// so BestIndex is always the first combination (in ParameterGrid order)
// reaching the maximum mean score.
type GridSearchCV struct {
	Estimator model.Regressor
	ParamGrid Grid
	CV        *KFold
	// NJobs caps concurrent fits; <= 0 uses every CPU.
	NJobs int
	Refit bool
	// Logger receives the search summary; nil discards it.
	Logger log.Logger

	Results       []CandidateResult
	BestIndex     int
	BestParams    model.Params
	BestScore     float64
	BestEstimator model.Regressor
}

// NewGridSearchCV returns a search over grid with unshuffled cv-fold
// splitting and refitting enabled.
func NewGridSearchCV(estimator model.Regressor, grid Grid, cv int) *GridSearchCV {
	return &GridSearchCV{
		Estimator: estimator,
		ParamGrid: grid,
		CV:        NewKFold(cv),
		Refit:     true,
		BestIndex: -1,
	}
}

// Fit runs the search with a background context.
func (g *GridSearchCV) Fit(X, y mat.Matrix) error {
	return g.FitContext(context.Background(), X, y)
}

// FitContext runs the search. The first failing fit (lowest candidate and
// fold index) aborts the search and is returned with the offending
// parameters attached.
func (g *GridSearchCV) FitContext(ctx context.Context, X, y mat.Matrix) error {
	n, _, err := model.CheckXY("GridSearchCV.Fit", X, y)
	if err != nil {
		return err
	}
	if g.Estimator == nil {
		return errors.NewValueError("GridSearchCV.Fit", "estimator is nil")
	}
	folds, err := g.CV.Split(n)
	if err != nil {
		return err
	}

	type foldData struct {
		xTrain, yTrain, xTest, yTest *mat.Dense
	}
	data := make([]foldData, len(folds))
	for f, fold := range folds {
		data[f] = foldData{
			xTrain: Rows(X, fold.Train),
			yTrain: Rows(y, fold.Train),
			xTest:  Rows(X, fold.Test),
			yTest:  Rows(y, fold.Test),
		}
	}

	candidates := ParameterGrid(g.ParamGrid)
	nf := len(folds)
	scores := make([]float64, len(candidates)*nf)
	start := time.Now()

	err = parallel.ForEach(len(scores), g.NJobs, func(t int) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		c, f := t/nf, t%nf
		est := g.Estimator.Clone()
		if err := est.SetParams(candidates[c]); err != nil {
			return err
		}
		d := data[f]
		// a panicking estimator must not take down the other workers
		if err := errors.SafeExecute("GridSearchCV.candidate", func() error {
			return est.Fit(d.xTrain, d.yTrain)
		}); err != nil {
			return errors.Wrapf(err, "fit with %v on fold %d", candidates[c], f)
		}
		s, err := est.Score(d.xTest, d.yTest)
		if err != nil {
			return errors.Wrapf(err, "score with %v on fold %d", candidates[c], f)
		}
		scores[t] = s
		return nil
	})
	if err != nil {
		return err
	}

	g.Results = make([]CandidateResult, len(candidates))
	g.BestIndex = -1
	for c, params := range candidates {
		fs := append([]float64(nil), scores[c*nf:(c+1)*nf]...)
		mean, std := stat.PopMeanStdDev(fs, nil)
		g.Results[c] = CandidateResult{Params: params, FoldScores: fs, MeanScore: mean, StdScore: std}
		if math.IsNaN(mean) {
			continue
		}
		if g.BestIndex < 0 || mean > g.BestScore {
			g.BestIndex, g.BestScore = c, mean
		}
	}
	if g.BestIndex < 0 {
		return errors.NewValueError("GridSearchCV.Fit", "every candidate produced a NaN score")
	}
	g.BestParams = candidates[g.BestIndex].Copy()

	log.OrNop(g.Logger).Debug("grid search complete",
		log.ModelNameKey, fmt.Sprintf("%T", g.Estimator),
		log.CandidatesKey, len(candidates),
		log.CVScoreKey, g.BestScore,
		log.HyperParamsKey, g.BestParams,
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)

	if !g.Refit {
		g.BestEstimator = nil
		return nil
	}
	best := g.Estimator.Clone()
	if err := best.SetParams(g.BestParams); err != nil {
		return err
	}
	if err := best.Fit(X, y); err != nil {
		return errors.Wrapf(err, "refit with %v", g.BestParams)
	}
	g.BestEstimator = best
	return nil
}

// Predict delegates to the refitted best estimator.
func (g *GridSearchCV) Predict(X mat.Matrix) (mat.Matrix, error) {
	if g.BestEstimator == nil {
		return nil, errors.NewNotFittedError("GridSearchCV", "Predict")
	}
	return g.BestEstimator.Predict(X)
}

// Score delegates to the refitted best estimator.
func (g *GridSearchCV) Score(X, y mat.Matrix) (float64, error) {
	if g.BestEstimator == nil {
		return 0, errors.NewNotFittedError("GridSearchCV", "Score")
	}
	return g.BestEstimator.Score(X, y)
}
