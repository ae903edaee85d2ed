// Package mzap adapts go.uber.org/zap to the pkg/mlog.Logger interface.
package mzap

import (
	"go.uber.org/zap"

	"github.com/poolcard/ledger-core/pkg/mlog"
)

// Logger wraps a *zap.SugaredLogger to satisfy mlog.Logger.
type Logger struct {
	sugar *zap.SugaredLogger
}

// InitializeLogger builds a production zap logger at the given level
// ("debug", "info", "warn", "error"; defaults to "info").
func InitializeLogger(level string) (mlog.Logger, error) {
	cfg := zap.NewProductionConfig()

	if lvl, err := zap.ParseAtomicLevel(level); err == nil {
		cfg.Level = lvl
	}

	z, err := cfg.Build()
	if err != nil {
		return nil, err
	}

	return &Logger{sugar: z.Sugar()}, nil
}

func (l *Logger) Info(args ...any)          { l.sugar.Info(args...) }
func (l *Logger) Infof(f string, a ...any)  { l.sugar.Infof(f, a...) }
func (l *Logger) Error(args ...any)         { l.sugar.Error(args...) }
func (l *Logger) Errorf(f string, a ...any) { l.sugar.Errorf(f, a...) }
func (l *Logger) Warn(args ...any)          { l.sugar.Warn(args...) }
func (l *Logger) Warnf(f string, a ...any)  { l.sugar.Warnf(f, a...) }
func (l *Logger) Debug(args ...any)         { l.sugar.Debug(args...) }
func (l *Logger) Debugf(f string, a ...any) { l.sugar.Debugf(f, a...) }
func (l *Logger) Fatal(args ...any)         { l.sugar.Fatal(args...) }
func (l *Logger) Fatalf(f string, a ...any) { l.sugar.Fatalf(f, a...) }

func (l *Logger) WithFields(fields ...any) mlog.Logger {
	return &Logger{sugar: l.sugar.With(fields...)}
}

func (l *Logger) Sync() error { return l.sugar.Sync() }
