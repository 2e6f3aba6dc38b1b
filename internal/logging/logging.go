// Package logging builds the zap logger used by the command line tool.
package logging

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New returns a console logger writing to sink, or to stderr when sink is
// nil. Verbose lowers the level to Debug.
func New(verbose bool, sink zapcore.WriteSyncer) *zap.Logger {
	if sink == nil {
		sink = zapcore.Lock(os.Stderr)
	}

	level := zapcore.InfoLevel
	if verbose {
		level = zapcore.DebugLevel
	}

	encoderConfig := zap.NewDevelopmentEncoderConfig()
	encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	core := zapcore.NewCore(zapcore.NewConsoleEncoder(encoderConfig), sink, zap.NewAtomicLevelAt(level))

	return zap.New(core)
}
