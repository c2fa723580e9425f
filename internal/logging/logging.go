// Package logging builds the zap-backed logr.Logger handed to every
// package that logs.
package logging

import (
	"fmt"
	"strings"

	"github.com/go-logr/logr"
	"github.com/go-logr/zapr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Options struct {
	// Level is one of error, warn, info, debug or trace.
	Level string
	// Format is console or json.
	Format string
}

func DefaultOptions() Options {
	return Options{Level: "info", Format: "console"}
}

// ParseLevel maps a level name to zap. debug enables logr V(1) and trace
// enables V(2).
func ParseLevel(name string) (zapcore.Level, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "error":
		return zap.ErrorLevel, nil
	case "warn", "warning":
		return zap.WarnLevel, nil
	case "", "info":
		return zap.InfoLevel, nil
	case "debug":
		return zap.DebugLevel, nil
	case "trace":
		return zapcore.Level(-2), nil
	default:
		return zap.InfoLevel, fmt.Errorf("logging: unknown level %q", name)
	}
}

// New builds a logger writing to stderr. The returned sync func flushes
// buffered entries and should be deferred by the caller.
func New(opts Options) (logr.Logger, func(), error) {
	level, err := ParseLevel(opts.Level)
	if err != nil {
		return logr.Discard(), func() {}, err
	}

	var cfg zap.Config
	switch opts.Format {
	case "json":
		cfg = zap.NewProductionConfig()
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	case "", "console":
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		cfg.DisableStacktrace = true
	default:
		return logr.Discard(), func() {}, fmt.Errorf("logging: unknown format %q", opts.Format)
	}
	cfg.Level = zap.NewAtomicLevelAt(level)
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}

	z, err := cfg.Build()
	if err != nil {
		return logr.Discard(), func() {}, fmt.Errorf("failed to build zap logger: %w", err)
	}
	return Wrap(z), func() { _ = z.Sync() }, nil
}

// Wrap exposes an existing zap logger through logr.
func Wrap(z *zap.Logger) logr.Logger {
	return zapr.NewLogger(z)
}
