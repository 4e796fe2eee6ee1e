package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"quire/internal/config"
)

func TestLoadDefaultsWhenFileMissing(t *testing.T) {
	cfg, _, exists, err := config.Load(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if exists {
		t.Fatal("expected exists=false for missing config file")
	}
	if cfg.Scheduler.PollInterval != 5 {
		t.Fatalf("expected default poll interval 5, got %d", cfg.Scheduler.PollInterval)
	}
	if cfg.Scheduler.TaskQueuePolicy != "priority" {
		t.Fatalf("expected default policy priority, got %q", cfg.Scheduler.TaskQueuePolicy)
	}
	if cfg.Scheduler.DefaultMaxRetries != 3 {
		t.Fatalf("expected default max retries 3, got %d", cfg.Scheduler.DefaultMaxRetries)
	}
	if !filepath.IsAbs(cfg.Paths.DataDir) {
		t.Fatalf("expected expanded data dir, got %q", cfg.Paths.DataDir)
	}
}

func TestLoadParsesOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
[paths]
data_dir = "` + filepath.Join(dir, "data") + `"
log_dir = "` + filepath.Join(dir, "logs") + `"

[scheduler]
worker_count = 8
task_queue_policy = "fifo"
stuck_timeout_minutes = 10

[logging]
format = "json"
level = "debug"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !exists || resolved != path {
		t.Fatalf("expected config at %s to be used, got %s exists=%v", path, resolved, exists)
	}
	if cfg.Scheduler.WorkerCount != 8 {
		t.Fatalf("expected worker_count 8, got %d", cfg.Scheduler.WorkerCount)
	}
	if cfg.Scheduler.TaskQueuePolicy != "fifo" {
		t.Fatalf("expected fifo policy, got %q", cfg.Scheduler.TaskQueuePolicy)
	}
	if cfg.Logging.Format != "json" || cfg.Logging.Level != "debug" {
		t.Fatalf("unexpected logging config: %+v", cfg.Logging)
	}
}

func TestLoadRejectsInvalidPolicy(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("[scheduler]\ntask_queue_policy = \"lifo\"\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, _, _, err := config.Load(path); err == nil {
		t.Fatal("expected error for invalid task_queue_policy")
	}
}

func TestLoadRejectsRelativeProcessorURL(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("[processors]\ntext_extraction_url = \"/extract\"\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, _, _, err := config.Load(path); err == nil {
		t.Fatal("expected error for relative processor URL")
	}
}

func TestCreateSample(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	if !strings.Contains(string(data), "[scheduler]") {
		t.Fatalf("sample missing scheduler section: %q", string(data))
	}
}
