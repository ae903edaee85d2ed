// Package mlog defines the leveled logger interface used across the core.
package mlog

// Logger is the common interface every component logs through. Concrete
// implementations (pkg/mzap) back it with a structured logger.
type Logger interface {
	Info(args ...any)
	Infof(format string, args ...any)

	Error(args ...any)
	Errorf(format string, args ...any)

	Warn(args ...any)
	Warnf(format string, args ...any)

	Debug(args ...any)
	Debugf(format string, args ...any)

	Fatal(args ...any)
	Fatalf(format string, args ...any)

	// WithFields returns a child logger with the given key/value pairs
	// attached to every subsequent entry.
	WithFields(fields ...any) Logger

	Sync() error
}

// NopLogger discards everything. Useful in tests that don't assert on logs.
type NopLogger struct{}

func (NopLogger) Info(args ...any)            {}
func (NopLogger) Infof(f string, a ...any)    {}
func (NopLogger) Error(args ...any)           {}
func (NopLogger) Errorf(f string, a ...any)   {}
func (NopLogger) Warn(args ...any)            {}
func (NopLogger) Warnf(f string, a ...any)    {}
func (NopLogger) Debug(args ...any)           {}
func (NopLogger) Debugf(f string, a ...any)   {}
func (NopLogger) Fatal(args ...any)           {}
func (NopLogger) Fatalf(f string, a ...any)   {}
func (l NopLogger) WithFields(fields ...any) Logger { return l }
func (NopLogger) Sync() error                 { return nil }
