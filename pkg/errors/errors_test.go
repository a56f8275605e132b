package errors

import (
	"fmt"
	"io/fs"
	"math"
	"os"
	"strings"
	"testing"

	"gonum.org/v1/gonum/mat"
)

func TestNewModelError(t *testing.T) {
	tests := []struct {
		name    string
		op      string
		kind    string
		err     error
		wantMsg string
	}{
		{
			name:    "with original error",
			op:      "Fit",
			kind:    "invalid input",
			err:     fmt.Errorf("test error"),
			wantMsg: "studentperf: Fit: invalid input: test error",
		},
		{
			name:    "without original error",
			op:      "Predict",
			kind:    "not fitted",
			wantMsg: "studentperf: Predict: not fitted",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewModelError(tt.op, tt.kind, tt.err)

			if err.Error() != tt.wantMsg {
				t.Errorf("Error() = %v, want %v", err.Error(), tt.wantMsg)
			}

			// スタックトレースの存在確認
			formatted := fmt.Sprintf("%+v", err)
			if !strings.Contains(formatted, "errors_test.go") {
				t.Error("Expected stack trace to contain test file name")
			}

			var modelErr *ModelError
			if !As(err, &modelErr) {
				t.Error("Error should be castable to *ModelError")
			}
		})
	}
}

func TestNewDimensionError(t *testing.T) {
	err := NewDimensionError("Predict", 20, 19, 1)

	want := "studentperf: Predict: dimension mismatch on axis 1 (features). Expected 20, got 19"
	if err.Error() != want {
		t.Errorf("Error() = %v, want %v", err.Error(), want)
	}

	var dimErr *DimensionError
	if !As(err, &dimErr) {
		t.Error("Error should be castable to *DimensionError")
	}
}

func TestNewNotFittedError(t *testing.T) {
	err := NewNotFittedError("StandardScaler", "Transform")

	want := "studentperf: StandardScaler: this model is not fitted yet. Call Fit() before using Transform()"
	if err.Error() != want {
		t.Errorf("Error() = %v, want %v", err.Error(), want)
	}

	var notFittedErr *NotFittedError
	if !As(err, &notFittedErr) {
		t.Error("Error should be castable to *NotFittedError")
	}
}

func TestIOFailureError_NotFound(t *testing.T) {
	_, openErr := os.Open("/definitely/not/here.gob")
	err := NewIOFailureError("artifact.Load", "/definitely/not/here.gob", openErr)

	if !IsIOFailure(err) {
		t.Error("expected IsIOFailure to be true")
	}
	if !IsNotFound(err) {
		t.Error("expected IsNotFound to see fs.ErrNotExist through the wrapper")
	}
	if !Is(err, fs.ErrNotExist) {
		t.Error("expected errors.Is(err, fs.ErrNotExist)")
	}
	if !strings.Contains(err.Error(), "artifact.Load") {
		t.Errorf("message should name the operation: %v", err)
	}
}

func TestSchemaMismatchError(t *testing.T) {
	err := NewSchemaMismatchError("dataset.ReadCSV", "missing column math_score",
		[]string{"math_score"}, []string{"reading_score"})

	if !IsSchemaMismatch(err) {
		t.Fatal("expected IsSchemaMismatch")
	}
	msg := err.Error()
	for _, want := range []string{"schema mismatch", "missing column math_score", "expected [math_score]"} {
		if !strings.Contains(msg, want) {
			t.Errorf("message %q should contain %q", msg, want)
		}
	}
}

func TestBusinessRuleViolation_IsDistinct(t *testing.T) {
	rule := NewBusinessRuleViolationError("min_r2_score", "Decision Tree", 0.41, 0.6)
	fit := NewModelFitFailureError("EvaluateModels", "Decision Tree", fmt.Errorf("boom"))

	if !IsBusinessRuleViolation(rule) {
		t.Error("rule violation not detected")
	}
	if IsBusinessRuleViolation(fit) {
		t.Error("fit failure must not look like a rule violation")
	}
	if IsIOFailure(rule) || IsSchemaMismatch(rule) {
		t.Error("rule violation must not look like an infrastructure failure")
	}

	var brv *BusinessRuleViolationError
	if !As(Wrap(rule, "training pipeline"), &brv) {
		t.Fatal("As should see through Wrap")
	}
	if brv.Score != 0.41 || brv.Threshold != 0.6 {
		t.Errorf("unexpected fields: %+v", brv)
	}
}

func TestPredictionError_KeepsCause(t *testing.T) {
	cause := NewSchemaMismatchError("Transform", "unknown column", nil, nil)
	err := NewPredictionError(cause)

	if !strings.HasPrefix(err.Error(), "studentperf: prediction failed") {
		t.Errorf("unexpected message: %v", err)
	}
	var pe *PredictionError
	if !As(err, &pe) {
		t.Fatal("expected PredictionError")
	}
	if !IsSchemaMismatch(err) {
		t.Error("original cause should stay reachable")
	}
}

func TestWarn_UsesHandler(t *testing.T) {
	var got []error
	SetWarningHandler(func(w error) { got = append(got, w) })
	defer SetWarningHandler(func(error) {})

	Warn(NewUndefinedMetricWarning("r2_score", "constant y_true", 0))
	Warn(NewUndefinedMetricWarning("r2_score", "single test row", 1))

	if len(got) != 2 {
		t.Fatalf("expected 2 warnings, got %d", len(got))
	}
	if !strings.Contains(got[0].Error(), "r2_score") {
		t.Errorf("unexpected warning: %v", got[0])
	}
}

func TestWrapAndIs(t *testing.T) {
	wrapped := Wrap(ErrEmptyData, "reading train.csv")
	if !Is(wrapped, ErrEmptyData) {
		t.Error("Is should match the sentinel through Wrap")
	}
	wrappedf := Wrapf(ErrSingularMatrix, "fold %d", 2)
	if !strings.Contains(wrappedf.Error(), "fold 2") {
		t.Errorf("Wrapf message = %v", wrappedf)
	}
}

func TestCheckHelpers(t *testing.T) {
	if err := CheckScalar("leaf", 1.5, 0); err != nil {
		t.Errorf("finite value flagged: %v", err)
	}
	nan := 0.0
	nan = nan / nan
	var nie *NumericalInstabilityError
	if err := CheckScalar("leaf", nan, 4); !As(err, &nie) || nie.Iteration != 4 {
		t.Errorf("expected NumericalInstabilityError at iteration 4, got %v", err)
	}
	m := mat.NewDense(2, 2, []float64{1, 2, math.Inf(-1), 4})
	if err := CheckMatrix("scale", m); !As(err, &nie) {
		t.Errorf("expected NumericalInstabilityError for -Inf, got %v", err)
	}
	if err := CheckMatrix("scale", mat.NewDense(1, 2, []float64{0, -3})); err != nil {
		t.Errorf("finite matrix flagged: %v", err)
	}
}
