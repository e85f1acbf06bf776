package logger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewLoggerWritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "log.txt")

	log := NewLogger(path)
	log.Printf("hello %s", "court")

	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read log file: %v", err)
	}
	if !strings.Contains(string(content), "hello court") {
		t.Errorf("log file does not contain expected message: %q", content)
	}
}

func TestNewLoggerFallsBackToStderr(t *testing.T) {
	// An unopenable path must not panic or return nil.
	log := NewLogger(filepath.Join(t.TempDir(), "missing", "dir", "log.txt"))
	if log == nil {
		t.Fatal("expected a logger instance")
	}
	log.Printf("still works")
}
