// Package log defines standard attribute keys for studentperf.
//
// The keys follow a hierarchical naming convention (e.g. "model.name",
// "data.samples") so that training and serving logs can be filtered the
// same way.

package log

import "github.com/YuminosukeSato/studentperf/pkg/errors"

// Model and Operation Context
const (
	// ModelNameKey identifies the estimator, using the registry display name
	// where there is one. Examples: "Random Forest", "StandardScaler"
	ModelNameKey = "model.name"

	// OperationKey specifies the operation being performed.
	// Standard values: "fit", "predict", "transform", "fit_transform", "score"
	OperationKey = "ml.operation"

	// ComponentKey identifies which component is logging.
	// Examples: "ingestion", "transformation", "trainer", "server"
	ComponentKey = "ml.component"

	// PhaseKey indicates the phase of model lifecycle.
	PhaseKey = "ml.phase"
)

// Data Shape and Characteristics
const (
	// SamplesKey indicates the number of samples (rows) in the dataset.
	SamplesKey = "data.samples"

	// FeaturesKey indicates the number of features (columns) in the dataset.
	FeaturesKey = "data.features"

	// PathKey records the dataset or artifact file involved.
	PathKey = "data.path"
)

// Performance Metrics
const (
	// DurationMsKey records the execution time of an operation in milliseconds.
	DurationMsKey = "perf.duration_ms"

	// R2ScoreKey records R² on the held-out test set.
	// Range is (-∞, 1.0], with 1.0 being perfect prediction.
	R2ScoreKey = "metrics.r2_score"

	// TrainR2ScoreKey records R² on the training set after refitting.
	TrainR2ScoreKey = "metrics.train_r2_score"

	// CVScoreKey records the best mean cross-validated R² from grid search.
	CVScoreKey = "metrics.cv_score"

	// RMSEKey records the test-set root mean squared error, in score points.
	RMSEKey = "metrics.rmse"

	// MAEKey records the test-set mean absolute error.
	MAEKey = "metrics.mae"

	// CandidatesKey records how many grid combinations were evaluated.
	CandidatesKey = "search.candidates"
)

// Error Context
const (
	// ErrorCodeKey provides a structured error code for programmatic handling.
	ErrorCodeKey = "error.code"

	// ErrorTypeKey categorizes the type of error encountered.
	ErrorTypeKey = "error.type"
)

// Hyperparameters, Run and Artifact Context
const (
	// HyperParamsKey contains the selected hyperparameters.
	HyperParamsKey = "model.hyperparams"

	// RandomSeedKey records the random seed for reproducibility.
	RandomSeedKey = "config.random_seed"

	// RunIDKey identifies one training run; the same id is stamped into
	// both persisted artifacts.
	RunIDKey = "run.id"

	// SchemaFingerprintKey records the schema fingerprint of an artifact.
	SchemaFingerprintKey = "schema.fingerprint"

	// ArtifactKindKey is "model" or "preprocessor".
	ArtifactKindKey = "artifact.kind"
)

// HTTP Context
const (
	HTTPMethodKey = "http.method"
	HTTPPathKey   = "http.path"
	HTTPStatusKey = "http.status"
)

// Standard attribute value constants for common operations.
const (
	OperationFit          = "fit"
	OperationPredict      = "predict"
	OperationTransform    = "transform"
	OperationFitTransform = "fit_transform"
	OperationScore        = "score"

	PhaseIngestion     = "ingestion"
	PhasePreprocessing = "preprocessing"
	PhaseTraining      = "training"
	PhaseValidation    = "validation"
	PhaseInference     = "inference"

	ErrorIOFailure      = "IO_FAILURE"
	ErrorSchema         = "SCHEMA_MISMATCH"
	ErrorModelFit       = "MODEL_FIT_FAILURE"
	ErrorBusinessRule   = "BUSINESS_RULE_VIOLATION"
	ErrorPrediction     = "PREDICTION_FAILED"
	ErrorNotFitted      = "NOT_FITTED"
	ErrorInvalidInput   = "INVALID_INPUT"
	ErrorSingularMatrix = "SINGULAR_MATRIX"
)

// ErrorCode maps an error to one of the standard error codes.
func ErrorCode(err error) string {
	var (
		notFitted *errors.NotFittedError
		fit       *errors.ModelFitFailureError
		pred      *errors.PredictionError
	)
	switch {
	case err == nil:
		return ""
	case errors.IsBusinessRuleViolation(err):
		return ErrorBusinessRule
	case errors.As(err, &pred):
		return ErrorPrediction
	case errors.IsSchemaMismatch(err):
		return ErrorSchema
	case errors.IsIOFailure(err):
		return ErrorIOFailure
	case errors.As(err, &fit):
		return ErrorModelFit
	case errors.As(err, &notFitted):
		return ErrorNotFitted
	case errors.Is(err, errors.ErrSingularMatrix):
		return ErrorSingularMatrix
	default:
		return ErrorInvalidInput
	}
}
