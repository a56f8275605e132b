package log

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/YuminosukeSato/studentperf/pkg/errors"
)

func TestTestLogger_Levels(t *testing.T) {
	logger := NewTestLogger(LevelInfo)

	logger.Debug("debug message", "k", "v")
	logger.Info("info message", OperationKey, OperationFit, SamplesKey, 800)
	logger.Warn("warning message")
	logger.Error("error message", fmt.Errorf("boom"), "extra", 1)

	if logger.ContainsMessage("debug message") {
		t.Error("debug message should be filtered at info level")
	}
	for _, msg := range []string{"info message", "warning message", "error message"} {
		if !logger.ContainsMessage(msg) {
			t.Errorf("%q not found in output", msg)
		}
	}
	if !logger.ContainsField(SamplesKey, 800.0) {
		t.Error("expected samples field")
	}
	if !logger.ContainsField(ErrAttrKey, "boom") {
		t.Error("leading error should be logged under the error key")
	}
}

func TestTestLogger_With(t *testing.T) {
	logger := NewTestLogger(LevelDebug)
	child := logger.With(ModelNameKey, "Random Forest", RunIDKey, "run-1")
	child.Info("evaluated", R2ScoreKey, 0.85)

	entries, err := logger.GetLogEntries()
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	e := entries[0]
	if e[ModelNameKey] != "Random Forest" || e[RunIDKey] != "run-1" || e[R2ScoreKey] != 0.85 {
		t.Errorf("unexpected entry: %v", e)
	}

	logger.Clear()
	if logger.String() != "" {
		t.Error("Clear() should empty the buffer")
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    Level
		wantErr bool
	}{
		{"debug", LevelDebug, false},
		{"INFO", LevelInfo, false},
		{"", LevelInfo, false},
		{"warning", LevelWarn, false},
		{"error", LevelError, false},
		{"verbose", LevelInfo, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseLevel(%q) error = %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestZerologProvider_JSON(t *testing.T) {
	var buf bytes.Buffer
	p, err := NewZerologProvider(Options{Level: LevelInfo, Writer: &buf})
	if err != nil {
		t.Fatal(err)
	}
	defer p.Close()

	logger := p.GetLoggerWithName("trainer").With(RunIDKey, "abc")
	logger.Debug("hidden")
	logger.Info("model evaluated", ModelNameKey, "Linear Regression", R2ScoreKey, 0.88)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected 1 line, got %d: %q", len(lines), buf.String())
	}
	var entry map[string]interface{}
	if err := json.Unmarshal([]byte(lines[0]), &entry); err != nil {
		t.Fatal(err)
	}
	if entry["message"] != "model evaluated" || entry[ComponentKey] != "trainer" ||
		entry[RunIDKey] != "abc" || entry[ModelNameKey] != "Linear Regression" {
		t.Errorf("unexpected entry: %v", entry)
	}
	if !logger.Enabled(context.Background(), LevelWarn) || logger.Enabled(context.Background(), LevelDebug) {
		t.Error("Enabled() does not match the configured level")
	}
}

func TestZerologProvider_ErrorCarriesCodeAndStack(t *testing.T) {
	var buf bytes.Buffer
	p, err := NewZerologProvider(Options{Level: LevelDebug, Writer: &buf})
	if err != nil {
		t.Fatal(err)
	}
	defer p.Close()

	cause := errors.NewBusinessRuleViolationError("min_r2_score", "Decision Tree", 0.4, 0.6)
	p.GetLogger().Error("training failed", cause)

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatal(err)
	}
	if entry[ErrorCodeKey] != ErrorBusinessRule {
		t.Errorf("error code = %v", entry[ErrorCodeKey])
	}
	if _, ok := entry["error.detail"]; !ok {
		t.Error("expected structured error detail")
	}
	if s, _ := entry[StacktraceAttrKey].(string); s == "" {
		t.Error("expected a stacktrace attribute")
	}
}

func TestZerologProvider_LogFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")
	fixed := time.Date(2024, 3, 1, 12, 30, 0, 0, time.UTC)
	p, err := NewZerologProvider(Options{
		Level:  LevelInfo,
		Writer: &bytes.Buffer{},
		Dir:    dir,
		Now:    func() time.Time { return fixed },
	})
	if err != nil {
		t.Fatal(err)
	}
	p.GetLogger().Info("to file")
	if err := p.Close(); err != nil {
		t.Fatal(err)
	}

	want := filepath.Join(dir, "03_01_2024_12_30_00.log")
	if p.LogPath() != want {
		t.Errorf("LogPath() = %q, want %q", p.LogPath(), want)
	}
	data, err := os.ReadFile(want)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "to file") {
		t.Errorf("log file missing entry: %q", data)
	}
}

func TestSlogProvider_Stacktrace(t *testing.T) {
	var buf bytes.Buffer
	p := NewSlogProvider(&buf, LevelInfo)
	p.GetLoggerWithName("server").Error("prediction failed",
		errors.NewPredictionError(fmt.Errorf("missing artifact")))

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatal(err)
	}
	if entry["severity"] != "ERROR" || entry["message"] != "prediction failed" {
		t.Errorf("unexpected entry: %v", entry)
	}
	if s, _ := entry[StacktraceAttrKey].(string); s == "" {
		t.Error("ErrFmtHandler should add a stacktrace")
	}

	p.SetLevel(LevelError)
	buf.Reset()
	p.GetLogger().Warn("dropped")
	if buf.Len() != 0 {
		t.Error("SetLevel should filter warnings")
	}
}

func TestGlobalProvider(t *testing.T) {
	tp := NewTestLoggerProvider(LevelDebug)
	SetProvider(tp)
	defer SetProvider(nil)

	GetLoggerWithName("preprocessing").Info("fitted")
	if !tp.Logger().ContainsField(ComponentKey, "preprocessing") {
		t.Error("global logger should route to the installed provider")
	}

	SetProvider(nil)
	if _, ok := GetLogger().(NopLogger); !ok {
		t.Error("nil provider should fall back to a no-op logger")
	}
}

func TestErrorCode(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{errors.NewIOFailureError("op", "p", os.ErrNotExist), ErrorIOFailure},
		{errors.NewSchemaMismatchError("op", "r", nil, nil), ErrorSchema},
		{errors.NewModelFitFailureError("op", "m", fmt.Errorf("x")), ErrorModelFit},
		{errors.NewPredictionError(errors.NewIOFailureError("op", "p", os.ErrNotExist)), ErrorPrediction},
		{errors.NewNotFittedError("m", "Predict"), ErrorNotFitted},
		{fmt.Errorf("plain"), ErrorInvalidInput},
	}
	for _, tt := range tests {
		if got := ErrorCode(tt.err); got != tt.want {
			t.Errorf("ErrorCode(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}
