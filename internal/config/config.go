package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and bind address configuration.
type Paths struct {
	DataDir  string `toml:"data_dir"`
	LogDir   string `toml:"log_dir"`
	APIBind  string `toml:"api_bind"`
	APIToken string `toml:"api_token"`
}

// Scheduler contains timing and sizing knobs for the processing scheduler.
type Scheduler struct {
	// PollInterval is the idle wait between durable queue polls, in seconds.
	PollInterval int `toml:"poll_interval"`
	// ErrorRetryInterval is the wait after an unexpected poller error, in seconds.
	ErrorRetryInterval int `toml:"error_retry_interval"`
	// StartupDelay is the one-time warm-up before the first poll, in seconds.
	StartupDelay int `toml:"startup_delay"`
	// WorkerCount caps how many ephemeral tasks execute concurrently.
	WorkerCount int `toml:"worker_count"`
	// TaskQueueCapacity bounds the in-process task queue; enqueue blocks when full.
	TaskQueueCapacity int `toml:"task_queue_capacity"`
	// TaskQueuePolicy selects the dequeue strategy: "fifo" or "priority".
	TaskQueuePolicy string `toml:"task_queue_policy"`
	// StuckTimeoutMinutes marks in-progress records older than this as stuck.
	StuckTimeoutMinutes int `toml:"stuck_timeout_minutes"`
	// ReclaimInterval is the period between stuck-record sweeps, in seconds.
	ReclaimInterval int `toml:"reclaim_interval"`
	// DefaultMaxRetries applies to new records that do not specify a retry budget.
	DefaultMaxRetries int `toml:"default_max_retries"`
	// DefaultPriority applies to new records that do not specify a priority.
	DefaultPriority int `toml:"default_priority"`
}

// Processors contains endpoints for the external document-processing collaborators.
type Processors struct {
	TextExtractionURL string `toml:"text_extraction_url"`
	ClassificationURL string `toml:"classification_url"`
	SummarizationURL  string `toml:"summarization_url"`
	RequestTimeout    int    `toml:"request_timeout"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for quire.
//
// Sections by subsystem:
//   - Paths: data/log directories, API bind address and token
//   - Scheduler: polling intervals, worker pool and task queue sizing, retry policy
//   - Processors: webhook endpoints invoked per work kind
//   - Logging: log format and level
type Config struct {
	Paths      Paths      `toml:"paths"`
	Scheduler  Scheduler  `toml:"scheduler"`
	Processors Processors `toml:"processors"`
	Logging    Logging    `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/quire/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config
// has all path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("quire.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for daemon operation.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// QueueDBPath returns the location of the durable queue database.
func (c *Config) QueueDBPath() string {
	return filepath.Join(c.Paths.DataDir, "queue.db")
}

// LogFilePath returns the location of the daemon log file.
func (c *Config) LogFilePath() string {
	return filepath.Join(c.Paths.LogDir, "quire.log")
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
