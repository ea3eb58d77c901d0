// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package logging holds the process-wide structured logger. It starts as a
// no-op so packages can log before the CLI configures output.
package logging

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var logger = zap.NewNop().Sugar()

// Initialize configures the global logger. JSON selects machine-readable
// output; verbose lowers the level to debug.
func Initialize(json, verbose bool) error {
	level := zap.InfoLevel
	if verbose {
		level = zap.DebugLevel
	}

	if json {
		cfg := zap.NewProductionConfig()
		cfg.Level = zap.NewAtomicLevelAt(level)
		zl, err := cfg.Build()
		if err != nil {
			return err
		}
		logger = zl.Sugar()
		return nil
	}

	encCfg := zap.NewDevelopmentEncoderConfig()
	encCfg.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
	zl := zap.New(zapcore.NewCore(
		zapcore.NewConsoleEncoder(encCfg),
		zapcore.AddSync(os.Stderr),
		level,
	))
	logger = zl.Sugar()
	return nil
}

// L returns the global logger.
func L() *zap.SugaredLogger { return logger }

// Sync flushes buffered entries. Called on process exit.
func Sync() {
	_ = logger.Sync()
}
