package pipeline

import (
	"context"
	"math"

	"github.com/google/uuid"

	"github.com/YuminosukeSato/studentperf/core/model"
	"github.com/YuminosukeSato/studentperf/dataset"
	"github.com/YuminosukeSato/studentperf/pkg/artifact"
	"github.com/YuminosukeSato/studentperf/pkg/config"
	"github.com/YuminosukeSato/studentperf/pkg/errors"
	"github.com/YuminosukeSato/studentperf/pkg/log"
)

// MinScoreRule names the business rule enforced by the trainer.
const MinScoreRule = "best model test r2 must reach min_score"

// TrainResult summarizes a successful training run.
type TrainResult struct {
	RunID     string
	BestName  string
	BestScore float64
	Report    *Report
	// ReportPlotPath is set when the report chart was rendered.
	ReportPlotPath string
}

// TrainingPipeline runs transformation, evaluation, the minimum-score gate
// and persistence.
type TrainingPipeline struct {
	Registry         Registry
	Schema           dataset.Schema
	MinScore         float64
	CVFolds          int
	NJobs            int
	ModelPath        string
	PreprocessorPath string
	ReportPlotPath   string
	// NewRunID returns the identifier stamped on both artifacts.
	NewRunID func() string

	logger log.Logger
}

// NewTrainingPipeline builds a pipeline from cfg, applying any grid
// overrides to the default registry.
func NewTrainingPipeline(cfg config.Config, logger log.Logger) (*TrainingPipeline, error) {
	reg, err := DefaultRegistry().WithGrids(cfg.Training.Grids)
	if err != nil {
		return nil, err
	}
	return &TrainingPipeline{
		Registry:         reg,
		Schema:           dataset.DefaultSchema(),
		MinScore:         cfg.Training.MinScore,
		CVFolds:          cfg.Training.CVFolds,
		NJobs:            cfg.Training.NJobs,
		ModelPath:        cfg.ModelPath(),
		PreprocessorPath: cfg.PreprocessorPath(),
		ReportPlotPath:   cfg.Training.ReportPlot,
		NewRunID:         uuid.NewString,
		logger:           log.OrNop(logger).With(log.ComponentKey, "ModelTrainer"),
	}, nil
}

// Run transforms the split files and trains on the result.
func (p *TrainingPipeline) Run(ctx context.Context, trainPath, testPath string) (*TrainResult, error) {
	dt := &DataTransformation{Schema: p.Schema, logger: p.logger.With(log.PhaseKey, "transformation")}
	tr, err := dt.Initiate(trainPath, testPath)
	if err != nil {
		return nil, err
	}
	return p.Train(ctx, tr)
}

// Train evaluates the registry on tr, rejects the run when the best test
// score is below MinScore and otherwise persists the best model and the
// fitted preprocessor. Nothing is written when the gate rejects the run;
// the returned result then still carries the report next to the error.
func (p *TrainingPipeline) Train(ctx context.Context, tr *TransformResult) (*TrainResult, error) {
	runID := p.NewRunID()
	logger := p.logger.With(log.RunIDKey, runID)
	logger.Info("Split training and test input data")

	XTrain, yTrain := SplitXY(tr.TrainArr)
	XTest, yTest := SplitXY(tr.TestArr)

	report, err := EvaluateModels(ctx, XTrain, yTrain, XTest, yTest, p.Registry, EvaluateOptions{
		CVFolds: p.CVFolds,
		NJobs:   p.NJobs,
		Logger:  logger,
	})
	if err != nil {
		return nil, err
	}

	best, ok := report.Best()
	if !ok {
		return nil, errors.NewValueError("pipeline.Train", "model registry is empty")
	}
	res := &TrainResult{RunID: runID, BestName: best.Name, BestScore: best.TestScore, Report: report}
	if BelowMinScore(best.TestScore, p.MinScore) {
		logger.Warn("No best model found", log.ModelNameKey, best.Name, log.R2ScoreKey, best.TestScore)
		return res, errors.NewBusinessRuleViolationError(MinScoreRule, best.Name, best.TestScore, p.MinScore)
	}
	logger.Info("Best found model on both training and testing dataset",
		log.ModelNameKey, best.Name, log.R2ScoreKey, best.TestScore)

	fingerprint := p.Schema.Fingerprint()
	if _, err := artifact.Save(p.PreprocessorPath, tr.Preprocessor, artifact.Meta{
		Kind:              artifact.KindPreprocessor,
		RunID:             runID,
		SchemaFingerprint: fingerprint,
	}); err != nil {
		return nil, err
	}
	var m model.Regressor = best.Model
	if _, err := artifact.Save(p.ModelPath, &m, artifact.Meta{
		Kind:              artifact.KindModel,
		RunID:             runID,
		SchemaFingerprint: fingerprint,
		ModelName:         best.Name,
	}); err != nil {
		return nil, err
	}
	logger.Info("artifacts saved",
		log.PathKey, p.ModelPath, "preprocessor_path", p.PreprocessorPath,
		log.SchemaFingerprintKey, fingerprint)

	if p.ReportPlotPath != "" {
		if err := SaveReportPlot(report, p.ReportPlotPath); err != nil {
			// the chart is optional; the artifacts are already in place
			logger.Warn("report chart not written", log.ErrAttrKey, err)
		} else {
			res.ReportPlotPath = p.ReportPlotPath
		}
	}
	return res, nil
}

// BelowMinScore reports whether score fails the min_score gate. NaN
// always fails.
func BelowMinScore(score, threshold float64) bool {
	return math.IsNaN(score) || score < threshold
}
