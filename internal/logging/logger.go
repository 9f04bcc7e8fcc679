package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/kingrea/protest-validator/internal/config"
)

// New opens .validator/logs/validator.log for the project and returns a zap
// logger appending to it. The TUI owns the terminal, so nothing goes to stderr.
// The returned closer releases the file handle.
func New(projectDir string, verbose bool) (*zap.Logger, io.Closer, error) {
	logDir := filepath.Join(projectDir, config.ValidatorDir, "logs")
	return NewFile(filepath.Join(logDir, "validator.log"), verbose)
}

// NewFile builds a console-encoded zap logger appending to path.
func NewFile(path string, verbose bool) (*zap.Logger, io.Closer, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, nil, fmt.Errorf("logging: ensure log dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("logging: open log file: %w", err)
	}
	level := zapcore.InfoLevel
	if verbose {
		level = zapcore.DebugLevel
	}
	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encCfg.EncodeLevel = zapcore.CapitalLevelEncoder
	encCfg.ConsoleSeparator = " "
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), zapcore.AddSync(f), level)
	return zap.New(core), f, nil
}
