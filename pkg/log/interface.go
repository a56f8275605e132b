// Package log provides a structured logging interface for studentperf.
//
// The interface is slog-compatible and backend-agnostic. Two backends ship
// with the package: a zerolog provider (the default for the CLI and server)
// and a slog adapter that routes records through ErrFmtHandler so
// cockroachdb/errors stack traces land in a dedicated attribute.
//
// Nothing in this package touches the filesystem or global state at import
// time. The process entry point builds a provider, injects loggers into the
// components that need them and closes the provider on shutdown.
//
// Example usage:
//
//	provider, _ := log.NewZerologProvider(log.Options{Level: log.LevelInfo})
//	defer provider.Close()
//	logger := provider.GetLoggerWithName("trainer").With(log.RunIDKey, runID)
//	logger.Info("model evaluated",
//	    log.ModelNameKey, "Random Forest",
//	    log.R2ScoreKey, 0.85,
//	)
package log

import (
	"context"
	"strings"

	"github.com/YuminosukeSato/studentperf/pkg/errors"
)

// Logger defines a structured logging interface compatible with Go's log/slog.
//
// Fields are alternating key/value pairs. Error additionally accepts an
// error value as its first field; backends attach it as the "error"
// attribute together with its stack trace.
type Logger interface {
	// Debug logs a debug-level message with optional structured fields.
	Debug(msg string, fields ...any)

	// Info logs an info-level message with optional structured fields.
	Info(msg string, fields ...any)

	// Warn logs a warning-level message with optional structured fields.
	Warn(msg string, fields ...any)

	// Error logs an error-level message. If the first field is an error it
	// is handled specially.
	//
	//   logger.Error("training failed", err, log.OperationKey, "fit")
	Error(msg string, fields ...any)

	// With returns a new Logger with the given fields pre-populated.
	With(fields ...any) Logger

	// Enabled reports whether the logger emits log records at the given level.
	Enabled(ctx context.Context, level Level) bool
}

// Level represents a logging level, compatible with slog.Level.
type Level int

// Standard logging levels, values are compatible with slog.Level.
const (
	LevelDebug Level = -4 // Detailed diagnostic information
	LevelInfo  Level = 0  // General operational information
	LevelWarn  Level = 4  // Warning conditions
	LevelError Level = 8  // Error conditions
)

// String returns the string representation of the log level.
func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel converts a case-insensitive level name into a Level.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug, nil
	case "info", "":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	default:
		return LevelInfo, errors.NewValidationError("log.level", "must be one of debug, info, warn, error", s)
	}
}

// LoggerProvider defines an interface for creating and configuring loggers.
type LoggerProvider interface {
	// GetLogger returns the default logger instance.
	GetLogger() Logger

	// GetLoggerWithName returns a logger tagged with a component name.
	GetLoggerWithName(name string) Logger

	// SetLevel sets the minimum log level for all loggers created by this provider.
	SetLevel(level Level)
}

// splitError pulls a leading error value out of a field list.
func splitError(fields []any) (error, []any) {
	if len(fields) > 0 {
		if err, ok := fields[0].(error); ok {
			return err, fields[1:]
		}
	}
	return nil, fields
}
