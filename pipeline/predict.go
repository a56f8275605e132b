package pipeline

import (
	"context"
	"math"

	"github.com/YuminosukeSato/studentperf/core/model"
	"github.com/YuminosukeSato/studentperf/dataset"
	"github.com/YuminosukeSato/studentperf/pkg/artifact"
	"github.com/YuminosukeSato/studentperf/pkg/config"
	"github.com/YuminosukeSato/studentperf/pkg/errors"
	"github.com/YuminosukeSato/studentperf/pkg/log"
	"github.com/YuminosukeSato/studentperf/sklearn/compose"
)

// CustomData is the single-student input of the web form.
type CustomData struct {
	Gender                   string
	RaceEthnicity            string
	ParentalLevelOfEducation string
	Lunch                    string
	TestPreparationCourse    string
	ReadingScore             float64
	WritingScore             float64
}

// Record converts c into a dataset record with an unknown target.
func (c CustomData) Record() dataset.Record {
	return dataset.Record{
		Gender:                   c.Gender,
		RaceEthnicity:            c.RaceEthnicity,
		ParentalLevelOfEducation: c.ParentalLevelOfEducation,
		Lunch:                    c.Lunch,
		TestPreparationCourse:    c.TestPreparationCourse,
		MathScore:                math.NaN(),
		ReadingScore:             c.ReadingScore,
		WritingScore:             c.WritingScore,
	}
}

// PredictPipeline serves predictions from the persisted artifacts. It holds
// no fitted state: both artifacts are read on every call.
type PredictPipeline struct {
	ModelPath        string
	PreprocessorPath string
	Schema           dataset.Schema

	logger log.Logger
}

// NewPredictPipeline reads the artifact paths from cfg.
func NewPredictPipeline(cfg config.Config, logger log.Logger) *PredictPipeline {
	return &PredictPipeline{
		ModelPath:        cfg.ModelPath(),
		PreprocessorPath: cfg.PreprocessorPath(),
		Schema:           dataset.DefaultSchema(),
		logger:           log.OrNop(logger).With(log.ComponentKey, "PredictPipeline"),
	}
}

// Predict returns one predicted math score per record. Any failure is
// reported as a PredictionError wrapping the cause.
func (p *PredictPipeline) Predict(ctx context.Context, records []dataset.Record) ([]float64, error) {
	out, err := p.predict(ctx, records)
	if err != nil {
		p.logger.Error("prediction failed", err)
		return nil, errors.NewPredictionError(err)
	}
	return out, nil
}

func (p *PredictPipeline) predict(ctx context.Context, records []dataset.Record) ([]float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, errors.NewValueError("pipeline.Predict", "no records to predict")
	}

	var ct compose.ColumnTransformer
	pre, err := artifact.Load(p.PreprocessorPath, &ct)
	if err != nil {
		return nil, err
	}
	var m model.Regressor
	hdr, err := artifact.Load(p.ModelPath, &m)
	if err != nil {
		return nil, err
	}
	if err := p.checkHeaders(pre, hdr); err != nil {
		return nil, err
	}

	X, err := ct.Transform(dataset.NewFrame(records).Drop(p.Schema.Target))
	if err != nil {
		return nil, err
	}
	pred, err := m.Predict(X)
	if err != nil {
		return nil, err
	}
	out := model.Column(pred)
	p.logger.Debug("predicted",
		log.SamplesKey, len(out), log.ModelNameKey, hdr.ModelName, log.RunIDKey, hdr.RunID)
	return out, nil
}

// checkHeaders rejects artifacts of the wrong kind and a model and
// preprocessor built for different schemas.
func (p *PredictPipeline) checkHeaders(pre, mdl *artifact.Header) error {
	if pre.Kind != artifact.KindPreprocessor {
		return errors.NewSchemaMismatchError("pipeline.Predict", "preprocessor artifact has kind "+string(pre.Kind),
			[]string{string(artifact.KindPreprocessor)}, []string{string(pre.Kind)})
	}
	if mdl.Kind != artifact.KindModel {
		return errors.NewSchemaMismatchError("pipeline.Predict", "model artifact has kind "+string(mdl.Kind),
			[]string{string(artifact.KindModel)}, []string{string(mdl.Kind)})
	}
	want := p.Schema.Fingerprint()
	if pre.SchemaFingerprint != want || mdl.SchemaFingerprint != want {
		return errors.NewSchemaMismatchError("pipeline.Predict", "artifact schema fingerprint mismatch",
			[]string{want}, []string{pre.SchemaFingerprint, mdl.SchemaFingerprint})
	}
	if pre.RunID != mdl.RunID {
		p.logger.Warn("model and preprocessor come from different training runs",
			"model_run_id", mdl.RunID, "preprocessor_run_id", pre.RunID)
	}
	return nil
}
