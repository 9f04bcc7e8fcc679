package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewWritesUnderValidatorLogs(t *testing.T) {
	projectDir := t.TempDir()
	logger, closer, err := New(projectDir, false)
	if err != nil {
		t.Fatalf("new logger: %v", err)
	}
	logger.Info("dataset loaded")
	logger.Debug("hidden without verbose")
	_ = logger.Sync()
	if err := closer.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	data, err := os.ReadFile(filepath.Join(projectDir, ".validator", "logs", "validator.log"))
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	text := string(data)
	if !strings.Contains(text, "INFO dataset loaded") {
		t.Fatalf("missing info line in %q", text)
	}
	if strings.Contains(text, "hidden without verbose") {
		t.Fatalf("debug line written without verbose")
	}
}

func TestVerboseEnablesDebug(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "debug.log")
	logger, closer, err := NewFile(path, true)
	if err != nil {
		t.Fatalf("new logger: %v", err)
	}
	logger.Debug("cursor moved")
	_ = logger.Sync()
	_ = closer.Close()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if !strings.Contains(string(data), "DEBUG cursor moved") {
		t.Fatalf("expected debug line, got %q", data)
	}
}
