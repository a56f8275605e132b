package log

import (
	"context"
	"io"
	"log/slog"
)

const (
	ErrAttrKey        = "error"
	StacktraceAttrKey = "stacktrace"
)

// ErrAttr is a wrapper to pass err to slog.
func ErrAttr(err error) slog.Attr {
	return slog.Any(ErrAttrKey, err)
}

// ToSlogLevel converts a Level into the matching slog.Level.
func ToSlogLevel(level Level) slog.Level {
	return slog.Level(level)
}

// NewSlogHandler builds the JSON slog handler used by the "slog" log format.
// Records carry Cloud Logging style keys and, for errors created with
// cockroachdb/errors, a "stacktrace" attribute added by ErrFmtHandler.
func NewSlogHandler(w io.Writer, level slog.Leveler) slog.Handler {
	ops := slog.HandlerOptions{
		AddSource: true,
		Level:     level,
		ReplaceAttr: func(groups []string, attr slog.Attr) slog.Attr {
			switch attr.Key {
			case slog.LevelKey:
				attr.Key = "severity"
			case slog.MessageKey:
				attr.Key = "message"
			case slog.SourceKey:
				attr.Key = "logging.googleapis.com/sourceLocation"
			}
			return attr
		},
	}
	return WrapByErrFmtHandler(slog.NewJSONHandler(w, &ops))
}

// slogLogger adapts *slog.Logger to the Logger interface.
type slogLogger struct {
	l *slog.Logger
}

// NewSlogLogger returns a Logger backed by the given slog handler.
func NewSlogLogger(h slog.Handler) Logger {
	return &slogLogger{l: slog.New(h)}
}

func (s *slogLogger) Debug(msg string, fields ...any) { s.l.Debug(msg, fields...) }
func (s *slogLogger) Info(msg string, fields ...any)  { s.l.Info(msg, fields...) }
func (s *slogLogger) Warn(msg string, fields ...any)  { s.l.Warn(msg, fields...) }

func (s *slogLogger) Error(msg string, fields ...any) {
	err, rest := splitError(fields)
	if err != nil {
		rest = append([]any{ErrAttr(err)}, rest...)
	}
	s.l.Error(msg, rest...)
}

func (s *slogLogger) With(fields ...any) Logger {
	return &slogLogger{l: s.l.With(fields...)}
}

func (s *slogLogger) Enabled(ctx context.Context, level Level) bool {
	return s.l.Enabled(ctx, ToSlogLevel(level))
}

// SlogProvider implements LoggerProvider on top of log/slog.
type SlogProvider struct {
	level *slog.LevelVar
	root  Logger
}

// NewSlogProvider builds a provider writing JSON records to w.
func NewSlogProvider(w io.Writer, level Level) *SlogProvider {
	lv := new(slog.LevelVar)
	lv.Set(ToSlogLevel(level))
	return &SlogProvider{level: lv, root: NewSlogLogger(NewSlogHandler(w, lv))}
}

// GetLogger implements LoggerProvider.GetLogger.
func (p *SlogProvider) GetLogger() Logger { return p.root }

// GetLoggerWithName implements LoggerProvider.GetLoggerWithName.
func (p *SlogProvider) GetLoggerWithName(name string) Logger {
	return p.root.With(ComponentKey, name)
}

// SetLevel implements LoggerProvider.SetLevel.
func (p *SlogProvider) SetLevel(level Level) { p.level.Set(ToSlogLevel(level)) }
