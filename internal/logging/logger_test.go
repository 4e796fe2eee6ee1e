package logging_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"quire/internal/logging"
)

func TestNewWritesConsoleLines(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "quire.log")

	logger, err := logging.New(logging.Options{
		Level:            "info",
		Format:           "console",
		OutputPaths:      []string{logPath},
		ErrorOutputPaths: []string{logPath},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	logger = logging.NewComponentLogger(logger, "test-component")
	logger.Info("record claimed",
		logging.Int64(logging.FieldRecordID, 42),
		logging.String(logging.FieldEventType, "record_claimed"),
	)

	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	line := string(data)
	if !strings.Contains(line, "INFO test-component: record claimed") {
		t.Fatalf("unexpected log line: %q", line)
	}
	if !strings.Contains(line, "record_id=42") || !strings.Contains(line, "event_type=record_claimed") {
		t.Fatalf("expected structured fields in line: %q", line)
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := logging.New(logging.Options{Format: "yaml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestDebugSuppressedAtInfoLevel(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "quire.log")

	logger, err := logging.New(logging.Options{
		Level:       "info",
		Format:      "console",
		OutputPaths: []string{logPath},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	logger.Debug("should not appear")
	logger.Info("should appear")

	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if strings.Contains(string(data), "should not appear") {
		t.Fatalf("debug line leaked: %q", string(data))
	}
	if !strings.Contains(string(data), "should appear") {
		t.Fatalf("info line missing: %q", string(data))
	}
}

func TestNopLoggerDiscards(t *testing.T) {
	logger := logging.NewNop()
	// Must not panic or emit anywhere.
	logger.Error("discarded", logging.Error(os.ErrNotExist))
}
