package pipeline

import (
	"context"
	"math"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/studentperf/core/model"
	"github.com/YuminosukeSato/studentperf/metrics"
	"github.com/YuminosukeSato/studentperf/pkg/errors"
	"github.com/YuminosukeSato/studentperf/pkg/log"
	"github.com/YuminosukeSato/studentperf/sklearn/model_selection"
)

// ModelScore is one line of the evaluation report.
type ModelScore struct {
	Name       string
	TrainScore float64
	TestScore  float64
	// CVScore is the best mean cross-validated R² of the grid search.
	CVScore    float64
	// TestRMSE and TestMAE are in math-score points.
	TestRMSE   float64
	TestMAE    float64
	BestParams model.Params
	// Model is the estimator refitted on the full train set with BestParams.
	Model model.Regressor
}

// Report lists one ModelScore per registry entry, in registry order.
type Report struct {
	Entries []ModelScore
}

// Best returns the entry with the highest test score. Ties go to the
// earlier entry and a NaN score ranks below every number. ok is false for
// an empty report.
func (r *Report) Best() (best ModelScore, ok bool) {
	idx := -1
	for i, e := range r.Entries {
		if idx < 0 || rankScore(e.TestScore) > rankScore(r.Entries[idx].TestScore) {
			idx = i
		}
	}
	if idx < 0 {
		return ModelScore{}, false
	}
	return r.Entries[idx], true
}

func rankScore(v float64) float64 {
	if math.IsNaN(v) {
		return math.Inf(-1)
	}
	return v
}

// TestScores maps entry name to test score.
func (r *Report) TestScores() map[string]float64 {
	out := make(map[string]float64, len(r.Entries))
	for _, e := range r.Entries {
		out[e.Name] = e.TestScore
	}
	return out
}

// EvaluateOptions tunes EvaluateModels.
type EvaluateOptions struct {
	CVFolds int
	NJobs   int
	Logger  log.Logger
}

// EvaluateModels grid-searches every registry entry on the train set with
// K-fold cross-validation, refits the best parameters on the whole train
// set and scores the result on both sets. The first failure aborts the
// evaluation; no partial report is returned.
func EvaluateModels(ctx context.Context, XTrain, yTrain, XTest, yTest mat.Matrix, reg Registry, opts EvaluateOptions) (*Report, error) {
	logger := log.OrNop(opts.Logger).With(log.ComponentKey, "ModelEvaluator")
	folds := opts.CVFolds
	if folds == 0 {
		folds = 3
	}

	report := &Report{Entries: make([]ModelScore, 0, len(reg))}
	for _, entry := range reg {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		start := time.Now()

		gs := model_selection.NewGridSearchCV(entry.New(), entry.Grid, folds)
		gs.NJobs = opts.NJobs
		gs.Logger = logger
		if err := gs.FitContext(ctx, XTrain, yTrain); err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			return nil, errors.NewModelFitFailureError("pipeline.EvaluateModels", entry.Name, err)
		}

		best := gs.BestEstimator
		trainScore, err := scoreOf(best, XTrain, yTrain)
		if err != nil {
			return nil, errors.NewModelFitFailureError("pipeline.EvaluateModels", entry.Name, err)
		}
		test, err := errorsOf(best, XTest, yTest)
		if err != nil {
			return nil, errors.NewModelFitFailureError("pipeline.EvaluateModels", entry.Name, err)
		}

		report.Entries = append(report.Entries, ModelScore{
			Name:       entry.Name,
			TrainScore: trainScore,
			TestScore:  test.r2,
			CVScore:    gs.BestScore,
			TestRMSE:   test.rmse,
			TestMAE:    test.mae,
			BestParams: gs.BestParams,
			Model:      best,
		})
		logger.Info("model evaluated",
			log.ModelNameKey, entry.Name,
			log.CandidatesKey, len(gs.Results),
			log.HyperParamsKey, gs.BestParams,
			log.CVScoreKey, gs.BestScore,
			log.TrainR2ScoreKey, trainScore,
			log.R2ScoreKey, test.r2,
			log.RMSEKey, test.rmse,
			log.MAEKey, test.mae,
			log.DurationMsKey, time.Since(start).Milliseconds(),
		)
	}
	return report, nil
}

func scoreOf(m model.Regressor, X, y mat.Matrix) (float64, error) {
	pred, err := m.Predict(X)
	if err != nil {
		return 0, err
	}
	return metrics.R2ScoreMatrix(y, pred)
}

type testErrors struct {
	r2, rmse, mae float64
}

// errorsOf predicts once and computes every held-out metric from it.
func errorsOf(m model.Regressor, X, y mat.Matrix) (testErrors, error) {
	var out testErrors
	pred, err := m.Predict(X)
	if err != nil {
		return out, err
	}
	if out.r2, err = metrics.R2ScoreMatrix(y, pred); err != nil {
		return out, err
	}
	if out.rmse, err = metrics.RMSEMatrix(y, pred); err != nil {
		return out, err
	}
	out.mae, err = metrics.MAEMatrix(y, pred)
	return out, err
}
