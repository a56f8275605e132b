package log

import (
	"context"
	"sync"
)

var (
	providerMu     sync.RWMutex
	globalProvider LoggerProvider = nopProvider{}
)

// SetProvider installs the process-wide provider used by library code that
// has no injected logger (estimators, transformers). The entry point calls
// it once after building its provider; tests may swap in a TestLoggerProvider.
func SetProvider(p LoggerProvider) {
	providerMu.Lock()
	defer providerMu.Unlock()
	if p == nil {
		p = nopProvider{}
	}
	globalProvider = p
}

// GetLogger returns the default logger of the installed provider.
func GetLogger() Logger {
	providerMu.RLock()
	defer providerMu.RUnlock()
	return globalProvider.GetLogger()
}

// GetLoggerWithName returns a component logger of the installed provider.
func GetLoggerWithName(name string) Logger {
	providerMu.RLock()
	defer providerMu.RUnlock()
	return globalProvider.GetLoggerWithName(name)
}

// NopLogger discards everything.
type NopLogger struct{}

func (NopLogger) Debug(string, ...any)                {}
func (NopLogger) Info(string, ...any)                 {}
func (NopLogger) Warn(string, ...any)                 {}
func (NopLogger) Error(string, ...any)                {}
func (n NopLogger) With(...any) Logger                { return n }
func (NopLogger) Enabled(context.Context, Level) bool { return false }

type nopProvider struct{}

func (nopProvider) GetLogger() Logger               { return NopLogger{} }
func (nopProvider) GetLoggerWithName(string) Logger { return NopLogger{} }
func (nopProvider) SetLevel(Level)                  {}

// OrNop returns l, or a NopLogger when l is nil.
func OrNop(l Logger) Logger {
	if l == nil {
		return NopLogger{}
	}
	return l
}
