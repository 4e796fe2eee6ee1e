package testsupport

import (
	"path/filepath"
	"testing"

	"quire/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.DataDir = filepath.Join(base, "data")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.APIBind = "127.0.0.1:0"
	cfgVal.Scheduler.StartupDelay = 0

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithWorkerCount overrides the worker pool size on the test config.
func WithWorkerCount(count int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Scheduler.WorkerCount = count
	}
}

// WithTaskQueue overrides the task queue sizing and policy on the test config.
func WithTaskQueue(capacity int, policy string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Scheduler.TaskQueueCapacity = capacity
		b.cfg.Scheduler.TaskQueuePolicy = policy
	}
}

// WithProcessorURL points every processor kind at the same endpoint, which is
// usually an httptest server.
func WithProcessorURL(url string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Processors.TextExtractionURL = url
		b.cfg.Processors.ClassificationURL = url
		b.cfg.Processors.SummarizationURL = url
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.DataDir)
}
