package errors

import (
	"fmt"
	"io/fs"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
)

// IOFailureError reports a failed read or write of a dataset or artifact file.
type IOFailureError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOFailureError) Error() string {
	return fmt.Sprintf("studentperf: %s: io failure on %q: %v", e.Op, e.Path, e.Err)
}

func (e *IOFailureError) Unwrap() error { return e.Err }

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *IOFailureError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("operation", e.Op).
		Str("path", e.Path).
		Bool("not_found", errors.Is(e.Err, fs.ErrNotExist)).
		Str("type", "IOFailureError")
}

// NewIOFailureError wraps err with the operation and path it happened on.
func NewIOFailureError(op, path string, err error) error {
	return errors.WithStack(&IOFailureError{Op: op, Path: path, Err: err})
}

// SchemaMismatchError reports input columns that do not match the fixed
// student-performance schema, or artifacts stamped with different schemas.
type SchemaMismatchError struct {
	Op       string
	Expected []string
	Got      []string
	Reason   string
}

func (e *SchemaMismatchError) Error() string {
	msg := fmt.Sprintf("studentperf: %s: schema mismatch", e.Op)
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if len(e.Expected) > 0 || len(e.Got) > 0 {
		msg += fmt.Sprintf(" (expected [%s], got [%s])",
			strings.Join(e.Expected, ", "), strings.Join(e.Got, ", "))
	}
	return msg
}

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *SchemaMismatchError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("operation", e.Op).
		Strs("expected", e.Expected).
		Strs("got", e.Got).
		Str("reason", e.Reason).
		Str("type", "SchemaMismatchError")
}

// NewSchemaMismatchError creates a SchemaMismatchError with a stack trace.
func NewSchemaMismatchError(op, reason string, expected, got []string) error {
	return errors.WithStack(&SchemaMismatchError{Op: op, Reason: reason, Expected: expected, Got: got})
}

// ModelFitFailureError reports a preprocessing or estimator failure during
// training, including grid search candidates rejected by SetParams.
type ModelFitFailureError struct {
	Model string
	Op    string
	Err   error
}

func (e *ModelFitFailureError) Error() string {
	return fmt.Sprintf("studentperf: %s: fitting %s failed: %v", e.Op, e.Model, e.Err)
}

func (e *ModelFitFailureError) Unwrap() error { return e.Err }

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *ModelFitFailureError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("model_name", e.Model).
		Str("operation", e.Op).
		Str("type", "ModelFitFailureError")
}

// NewModelFitFailureError wraps err with the model that failed.
func NewModelFitFailureError(op, modelName string, err error) error {
	return errors.WithStack(&ModelFitFailureError{Op: op, Model: modelName, Err: err})
}

// BusinessRuleViolationError is returned when training completed but no
// model reached the minimum acceptable score. It is not an infrastructure
// failure and carries no cause.
type BusinessRuleViolationError struct {
	Rule      string
	BestModel string
	Score     float64
	Threshold float64
}

func (e *BusinessRuleViolationError) Error() string {
	return fmt.Sprintf("studentperf: %s: no adequate model found: best %q scored r2=%.4f, below %.2f",
		e.Rule, e.BestModel, e.Score, e.Threshold)
}

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *BusinessRuleViolationError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("rule", e.Rule).
		Str("best_model", e.BestModel).
		Float64("score", e.Score).
		Float64("threshold", e.Threshold).
		Str("type", "BusinessRuleViolationError")
}

// NewBusinessRuleViolationError creates the "no adequate model" condition.
func NewBusinessRuleViolationError(rule, bestModel string, score, threshold float64) error {
	return errors.WithStack(&BusinessRuleViolationError{
		Rule:      rule,
		BestModel: bestModel,
		Score:     score,
		Threshold: threshold,
	})
}

// PredictionError is the single condition surfaced by the inference path.
// The underlying cause (missing artifact, schema mismatch, estimator
// failure) stays reachable through Unwrap.
type PredictionError struct {
	Err error
}

func (e *PredictionError) Error() string {
	return fmt.Sprintf("studentperf: prediction failed: %v", e.Err)
}

func (e *PredictionError) Unwrap() error { return e.Err }

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *PredictionError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("type", "PredictionError")
}

// NewPredictionError wraps err as a generic prediction failure.
func NewPredictionError(err error) error {
	return errors.WithStack(&PredictionError{Err: err})
}

// IsNotFound reports whether err is caused by a missing file.
func IsNotFound(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}

// IsBusinessRuleViolation reports whether err is the "no adequate model" condition.
func IsBusinessRuleViolation(err error) bool {
	var target *BusinessRuleViolationError
	return errors.As(err, &target)
}

// IsSchemaMismatch reports whether err carries a SchemaMismatchError.
func IsSchemaMismatch(err error) bool {
	var target *SchemaMismatchError
	return errors.As(err, &target)
}

// IsIOFailure reports whether err carries an IOFailureError.
func IsIOFailure(err error) bool {
	var target *IOFailureError
	return errors.As(err, &target)
}
