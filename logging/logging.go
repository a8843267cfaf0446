// Package logging provides the leveled, named logger used across navcore.
//
// It mirrors the teacher's logging package (go.viam.com/rdk/logging) down to
// the core it itself builds its service loggers from: a named
// zap.SugaredLogger with a per-logger atomic level and a context-scoped
// debug override, without that package's net-appender and proto-conversion
// machinery for a gRPC-served multi-process logger this module doesn't have.
package logging

import (
	"context"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is the interface navcore components log through.
type Logger interface {
	Debug(args ...interface{})
	Debugf(template string, args ...interface{})
	Debugw(msg string, keysAndValues ...interface{})
	Info(args ...interface{})
	Infof(template string, args ...interface{})
	Infow(msg string, keysAndValues ...interface{})
	Warn(args ...interface{})
	Warnf(template string, args ...interface{})
	Warnw(msg string, keysAndValues ...interface{})
	Error(args ...interface{})
	Errorf(template string, args ...interface{})
	Errorw(msg string, keysAndValues ...interface{})

	// CDebugf logs at debug level, or at info level when ctx has debug mode
	// enabled via EnableDebugMode — useful for tracing a single replan
	// attempt without turning on debug logging globally.
	CDebugf(ctx context.Context, template string, args ...interface{})

	Named(name string) Logger
	AsZap() *zap.SugaredLogger
}

func newZapConfig() zap.Config {
	return zap.Config{
		Level:    zap.NewAtomicLevelAt(zap.InfoLevel),
		Encoding: "console",
		EncoderConfig: zapcore.EncoderConfig{
			TimeKey:        "ts",
			LevelKey:       "level",
			NameKey:        "logger",
			CallerKey:      "caller",
			MessageKey:     "msg",
			LineEnding:     zapcore.DefaultLineEnding,
			EncodeLevel:    zapcore.CapitalColorLevelEncoder,
			EncodeTime:     zapcore.ISO8601TimeEncoder,
			EncodeDuration: zapcore.StringDurationEncoder,
			EncodeCaller:   zapcore.ShortCallerEncoder,
		},
		DisableStacktrace: true,
		OutputPaths:       []string{"stdout"},
		ErrorOutputPaths:  []string{"stderr"},
	}
}

// NewLogger returns a new Info+ logger named name.
func NewLogger(name string) Logger {
	cfg := newZapConfig()
	z, err := cfg.Build(zap.AddCallerSkip(1))
	if err != nil {
		panic(err)
	}
	return &impl{sugar: z.Sugar().Named(name)}
}

// NewDebugLogger returns a new Debug+ logger named name.
func NewDebugLogger(name string) Logger {
	cfg := newZapConfig()
	cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	z, err := cfg.Build(zap.AddCallerSkip(1))
	if err != nil {
		panic(err)
	}
	return &impl{sugar: z.Sugar().Named(name)}
}
