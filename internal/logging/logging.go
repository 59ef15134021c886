// Package logging builds the zap loggers used across fsguard.
package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Mode selects where logs go when no output path is configured
type Mode int

const (
	// ModeCLI logs to stderr
	ModeCLI Mode = iota
	// ModeMCP logs to a file, since stdout carries the protocol
	ModeMCP
)

// LogDirName is the directory under os.TempDir() holding MCP-mode logs
const LogDirName = "fsguard-mcp-logs"

// Config holds logging configuration.
type Config struct {
	Level      string // debug, info, warn, error
	Format     string // json, console
	OutputPath string // stderr or a file path
}

// New builds a logger. The returned path is the log file in use, empty when
// logging to stderr.
func New(cfg Config, mode Mode) (*zap.Logger, string, error) {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = zapcore.InfoLevel
	}

	var config zap.Config
	if cfg.Format == "console" {
		config = zap.NewDevelopmentConfig()
	} else {
		config = zap.NewProductionConfig()
	}
	config.Level = zap.NewAtomicLevelAt(level)

	output := cfg.OutputPath
	if output == "" && mode == ModeMCP {
		path, err := DefaultLogFile(time.Now())
		if err != nil {
			return nil, "", err
		}
		output = path
	}
	if output == "" {
		output = "stderr"
	}
	config.OutputPaths = []string{output}
	config.ErrorOutputPaths = []string{output}

	logger, err := config.Build(zap.AddStacktrace(zapcore.ErrorLevel))
	if err != nil {
		return nil, "", fmt.Errorf("build logger: %w", err)
	}

	if output == "stderr" || output == "stdout" {
		output = ""
	}
	return logger.Named("fsguard"), output, nil
}

// DefaultLogFile creates the MCP log directory and returns a timestamped file
// path inside it.
func DefaultLogFile(now time.Time) (string, error) {
	dir := filepath.Join(os.TempDir(), LogDirName)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create log directory: %w", err)
	}
	return filepath.Join(dir, fmt.Sprintf("fsguard-%s.log", now.Format("2006-01-02T150405"))), nil
}

// OrNop returns logger, or a no-op logger when it is nil
func OrNop(logger *zap.Logger) *zap.Logger {
	if logger == nil {
		return zap.NewNop()
	}
	return logger
}
