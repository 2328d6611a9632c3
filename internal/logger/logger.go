// Package logger wraps zap with a file-backed logger. Stdout belongs
// to the MCP protocol stream, so nothing here may write to it.
package logger

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var log = zap.NewNop().Sugar()

// Init sets up logging to the given file. Safe to skip entirely; all
// logging functions are no-ops until Init succeeds.
func Init(debug bool, path string) error {
	if path == "" {
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}

	cfg := zap.NewProductionConfig()
	cfg.OutputPaths = []string{path}
	cfg.ErrorOutputPaths = []string{path}
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	if debug {
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}

	built, err := cfg.Build()
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}

	log = built.Sugar()
	return nil
}

// Close flushes buffered log entries.
func Close() {
	_ = log.Sync()
}

func Infof(format string, v ...any) {
	log.Infof(format, v...)
}

func Debugf(format string, v ...any) {
	log.Debugf(format, v...)
}

func Warnf(format string, v ...any) {
	log.Warnf(format, v...)
}

func Errorf(format string, v ...any) {
	log.Errorf(format, v...)
}
