// Package compose implements scikit-learn compatible Pipeline and
// ColumnTransformer for chaining preprocessing steps.
//
// A Pipeline runs either on numeric data (every step is a
// model.Transformer) or on categorical data (model.StringTransformer steps,
// then one model.Encoder, then optional model.Transformer steps on the
// encoded matrix). A ColumnTransformer applies one Pipeline per column block
// of a Table and concatenates the results horizontally.
//
// Both types keep their learned state in exported fields so a fitted
// ColumnTransformer can be persisted with encoding/gob. Step estimators are
// stored behind interface{} and must be registered with gob.Register.
package compose

import (
	"fmt"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/studentperf/core/model"
	"github.com/YuminosukeSato/studentperf/pkg/errors"
	"github.com/YuminosukeSato/studentperf/pkg/log"
)

// Step represents a single step in the pipeline.
// Each step is a tuple of (name, transformer).
type Step struct {
	Name      string      // Name of this step (for identification)
	Estimator interface{} // Transformer, StringTransformer or Encoder
}

// Pipeline chains transformers. See the package documentation for the two
// supported shapes.
type Pipeline struct {
	Steps []Step
	State *model.StateManager
}

// New creates a new Pipeline with the given steps.
// This is equivalent to sklearn.pipeline.Pipeline(steps)
func New(steps ...Step) *Pipeline {
	return &Pipeline{
		Steps: steps,
		State: model.NewStateManager(),
	}
}

// Make is a convenience function similar to sklearn.pipeline.make_pipeline
// It automatically generates names for the steps.
func Make(estimators ...interface{}) *Pipeline {
	steps := make([]Step, len(estimators))
	for i, estimator := range estimators {
		steps[i] = Step{Name: fmt.Sprintf("step%d", i+1), Estimator: estimator}
	}
	return New(steps...)
}

// NamedStep returns the estimator registered under name.
func (p *Pipeline) NamedStep(name string) (interface{}, bool) {
	for _, step := range p.Steps {
		if step.Name == name {
			return step.Estimator, true
		}
	}
	return nil, false
}

// Fit fits every step on numeric data, transforming the data as it goes.
func (p *Pipeline) Fit(X mat.Matrix) error {
	_, err := p.FitTransform(X)
	return err
}

// FitTransform fits every step and returns the output of the last one.
func (p *Pipeline) FitTransform(X mat.Matrix) (mat.Matrix, error) {
	if len(p.Steps) == 0 {
		return nil, errors.NewValidationError("steps", "pipeline has no steps", 0)
	}
	p.state().Reset()
	start := time.Now()

	Xt := X
	for _, step := range p.Steps {
		transformer, ok := step.Estimator.(model.Transformer)
		if !ok {
			return nil, errors.NewValidationError(
				"pipeline step",
				"all steps must be transformers for numeric data",
				step.Name,
			)
		}
		var err error
		if Xt, err = transformer.FitTransform(Xt); err != nil {
			return nil, errors.Wrapf(err, "failed to fit step '%s'", step.Name)
		}
	}

	r, c := X.Dims()
	p.state().SetDimensions(c, r)
	p.state().SetFitted()
	log.GetLoggerWithName("Pipeline").Debug("pipeline fitted",
		log.OperationKey, log.OperationFit,
		log.SamplesKey, r,
		log.FeaturesKey, c,
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)
	return Xt, nil
}

// Transform applies every fitted step to numeric data.
func (p *Pipeline) Transform(X mat.Matrix) (mat.Matrix, error) {
	if err := p.state().RequireFitted("Pipeline", "Transform"); err != nil {
		return nil, err
	}

	Xt := X
	for _, step := range p.Steps {
		transformer, ok := step.Estimator.(model.Transformer)
		if !ok {
			return nil, errors.NewValidationError(
				"pipeline step",
				"all steps must be transformers for Transform",
				step.Name,
			)
		}
		var err error
		if Xt, err = transformer.Transform(Xt); err != nil {
			return nil, errors.Wrapf(err, "failed to transform at step '%s'", step.Name)
		}
	}
	return Xt, nil
}

// split locates the encoder step of a categorical pipeline and checks the
// steps around it.
func (p *Pipeline) split() (int, error) {
	encoderAt := -1
	for i, step := range p.Steps {
		if _, ok := step.Estimator.(model.Encoder); ok {
			encoderAt = i
			break
		}
		if _, ok := step.Estimator.(model.StringTransformer); !ok {
			return 0, errors.NewValidationError(
				"pipeline step",
				"steps before the encoder must transform string data",
				step.Name,
			)
		}
	}
	if encoderAt < 0 {
		return 0, errors.NewValidationError("steps", "categorical pipeline needs an encoder step", len(p.Steps))
	}
	for _, step := range p.Steps[encoderAt+1:] {
		if _, ok := step.Estimator.(model.Transformer); !ok {
			return 0, errors.NewValidationError(
				"pipeline step",
				"steps after the encoder must be transformers",
				step.Name,
			)
		}
	}
	return encoderAt, nil
}

// FitStrings fits a categorical pipeline on row-major string data.
func (p *Pipeline) FitStrings(X [][]string) error {
	_, err := p.fitEncode(X)
	return err
}

// FitEncode fits a categorical pipeline and returns the encoded training data.
func (p *Pipeline) FitEncode(X [][]string) (mat.Matrix, error) {
	return p.fitEncode(X)
}

func (p *Pipeline) fitEncode(X [][]string) (mat.Matrix, error) {
	encoderAt, err := p.split()
	if err != nil {
		return nil, err
	}
	p.state().Reset()

	Xs := X
	for _, step := range p.Steps[:encoderAt] {
		st := step.Estimator.(model.StringTransformer)
		if err := st.FitStrings(Xs); err != nil {
			return nil, errors.Wrapf(err, "failed to fit step '%s'", step.Name)
		}
		if Xs, err = st.TransformStrings(Xs); err != nil {
			return nil, errors.Wrapf(err, "failed to transform at step '%s'", step.Name)
		}
	}

	encStep := p.Steps[encoderAt]
	enc := encStep.Estimator.(model.Encoder)
	if err := enc.FitStrings(Xs); err != nil {
		return nil, errors.Wrapf(err, "failed to fit step '%s'", encStep.Name)
	}
	Xt, err := enc.Encode(Xs)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to transform at step '%s'", encStep.Name)
	}

	for _, step := range p.Steps[encoderAt+1:] {
		if Xt, err = step.Estimator.(model.Transformer).FitTransform(Xt); err != nil {
			return nil, errors.Wrapf(err, "failed to fit step '%s'", step.Name)
		}
	}

	nCols := 0
	if len(X) > 0 {
		nCols = len(X[0])
	}
	p.state().SetDimensions(nCols, len(X))
	p.state().SetFitted()
	return Xt, nil
}

// Encode applies a fitted categorical pipeline to row-major string data.
func (p *Pipeline) Encode(X [][]string) (mat.Matrix, error) {
	if err := p.state().RequireFitted("Pipeline", "Encode"); err != nil {
		return nil, err
	}
	encoderAt, err := p.split()
	if err != nil {
		return nil, err
	}

	Xs := X
	for _, step := range p.Steps[:encoderAt] {
		if Xs, err = step.Estimator.(model.StringTransformer).TransformStrings(Xs); err != nil {
			return nil, errors.Wrapf(err, "failed to transform at step '%s'", step.Name)
		}
	}

	encStep := p.Steps[encoderAt]
	Xt, err := encStep.Estimator.(model.Encoder).Encode(Xs)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to transform at step '%s'", encStep.Name)
	}

	for _, step := range p.Steps[encoderAt+1:] {
		if Xt, err = step.Estimator.(model.Transformer).Transform(Xt); err != nil {
			return nil, errors.Wrapf(err, "failed to transform at step '%s'", step.Name)
		}
	}
	return Xt, nil
}

// FeatureNames returns the output names of the encoder step, or nil for a
// numeric pipeline.
func (p *Pipeline) FeatureNames() []string {
	for _, step := range p.Steps {
		if enc, ok := step.Estimator.(model.Encoder); ok {
			return enc.FeatureNames()
		}
	}
	return nil
}

// SetInputNames forwards column names to every step that uses them.
func (p *Pipeline) SetInputNames(names []string) {
	for _, step := range p.Steps {
		if s, ok := step.Estimator.(interface{ SetInputNames([]string) }); ok {
			s.SetInputNames(names)
		}
	}
}

// IsFitted reports whether the pipeline has been fitted.
func (p *Pipeline) IsFitted() bool {
	return p.state().IsFitted()
}

// state returns the state manager, creating it for literal or decoded
// pipelines that have none.
func (p *Pipeline) state() *model.StateManager {
	if p.State == nil {
		p.State = model.NewStateManager()
	}
	return p.State
}
