package log

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"

	perrors "github.com/YuminosukeSato/studentperf/pkg/errors"
)

// Options configures a ZerologProvider.
type Options struct {
	// Level is the minimum level emitted.
	Level Level
	// Writer receives log output. Defaults to os.Stderr.
	Writer io.Writer
	// Console switches from JSON lines to zerolog's human-readable writer.
	Console bool
	// Dir, when set, additionally writes JSON lines to a timestamped file
	// in this directory. The directory is created by NewZerologProvider.
	Dir string
	// Now is used for the log file name. Defaults to time.Now.
	Now func() time.Time
}

// ZerologProvider implements LoggerProvider with github.com/rs/zerolog.
type ZerologProvider struct {
	root    zerolog.Logger
	file    *os.File
	logPath string
}

// NewZerologProvider builds a provider from opts. Callers own the returned
// provider and must Close it to flush the optional log file.
func NewZerologProvider(opts Options) (*ZerologProvider, error) {
	out := opts.Writer
	if out == nil {
		out = os.Stderr
	}
	if opts.Console {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}

	p := &ZerologProvider{}
	if opts.Dir != "" {
		now := time.Now
		if opts.Now != nil {
			now = opts.Now
		}
		if err := os.MkdirAll(opts.Dir, 0o755); err != nil {
			return nil, perrors.NewIOFailureError("log.NewZerologProvider", opts.Dir, err)
		}
		p.logPath = filepath.Join(opts.Dir, now().Format("01_02_2006_15_04_05")+".log")
		f, err := os.OpenFile(p.logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, perrors.NewIOFailureError("log.NewZerologProvider", p.logPath, err)
		}
		p.file = f
		out = zerolog.MultiLevelWriter(out, f)
	}

	p.root = zerolog.New(out).With().Timestamp().Logger().Level(toZerologLevel(opts.Level))

	// Library warnings such as UndefinedMetricWarning are routed
	// through the provider once one exists.
	warnLogger := p.root
	perrors.SetZerologWarnFunc(func(w error) {
		ev := warnLogger.Warn()
		if obj, ok := w.(zerolog.LogObjectMarshaler); ok {
			ev = ev.Object("warning", obj)
		}
		ev.Msg(w.Error())
	})
	return p, nil
}

// LogPath returns the log file path, or "" when no directory was configured.
func (p *ZerologProvider) LogPath() string { return p.logPath }

// Close detaches the warning hook and closes the log file, if any.
func (p *ZerologProvider) Close() error {
	perrors.SetZerologWarnFunc(nil)
	if p.file == nil {
		return nil
	}
	if err := p.file.Sync(); err != nil {
		_ = p.file.Close()
		return perrors.NewIOFailureError("log.Close", p.logPath, err)
	}
	return p.file.Close()
}

// GetLogger implements LoggerProvider.GetLogger.
func (p *ZerologProvider) GetLogger() Logger {
	return &zerologLogger{l: p.root}
}

// GetLoggerWithName implements LoggerProvider.GetLoggerWithName.
func (p *ZerologProvider) GetLoggerWithName(name string) Logger {
	return &zerologLogger{l: p.root.With().Str(ComponentKey, name).Logger()}
}

// SetLevel implements LoggerProvider.SetLevel. Loggers obtained afterwards
// use the new level.
func (p *ZerologProvider) SetLevel(level Level) {
	p.root = p.root.Level(toZerologLevel(level))
}

type zerologLogger struct {
	l zerolog.Logger
}

func (z *zerologLogger) Debug(msg string, fields ...any) { z.emit(z.l.Debug(), msg, fields) }
func (z *zerologLogger) Info(msg string, fields ...any)  { z.emit(z.l.Info(), msg, fields) }
func (z *zerologLogger) Warn(msg string, fields ...any)  { z.emit(z.l.Warn(), msg, fields) }

func (z *zerologLogger) Error(msg string, fields ...any) {
	ev := z.l.Error()
	err, rest := splitError(fields)
	if err != nil && ev != nil {
		ev = ev.Err(err).Str(ErrorCodeKey, ErrorCode(err))
		if obj, ok := firstMarshaler(err); ok {
			ev = ev.Object("error.detail", obj)
		}
		if st := extractStacktrace(err); st != "" {
			ev = ev.Str(StacktraceAttrKey, st)
		}
	}
	z.emit(ev, msg, rest)
}

func (z *zerologLogger) With(fields ...any) Logger {
	return &zerologLogger{l: z.l.With().Fields(pairs(fields)).Logger()}
}

func (z *zerologLogger) Enabled(_ context.Context, level Level) bool {
	return z.l.GetLevel() <= toZerologLevel(level)
}

func (z *zerologLogger) emit(ev *zerolog.Event, msg string, fields []any) {
	if ev == nil {
		return
	}
	ev.Fields(pairs(fields)).Msg(msg)
}

// pairs converts alternating key/value fields into a map. A dangling key is
// logged under "!BADKEY" the way slog does.
func pairs(fields []any) map[string]interface{} {
	m := make(map[string]interface{}, len(fields)/2)
	for i := 0; i < len(fields); i += 2 {
		if i+1 >= len(fields) {
			m["!BADKEY"] = fields[i]
			break
		}
		key := fmt.Sprint(fields[i])
		if err, ok := fields[i+1].(error); ok {
			m[key] = err.Error()
			continue
		}
		m[key] = fields[i+1]
	}
	return m
}

// firstMarshaler finds the first error in the chain that knows how to
// describe itself to zerolog.
func firstMarshaler(err error) (zerolog.LogObjectMarshaler, bool) {
	for e := err; e != nil; e = errors.UnwrapOnce(e) {
		if obj, ok := e.(zerolog.LogObjectMarshaler); ok {
			return obj, true
		}
	}
	return nil, false
}

func toZerologLevel(level Level) zerolog.Level {
	switch {
	case level <= LevelDebug:
		return zerolog.DebugLevel
	case level <= LevelInfo:
		return zerolog.InfoLevel
	case level <= LevelWarn:
		return zerolog.WarnLevel
	default:
		return zerolog.ErrorLevel
	}
}
