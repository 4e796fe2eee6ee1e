package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeScheduler()
	c.normalizeProcessors()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	if c.Paths.APIBind == "" {
		c.Paths.APIBind = defaultAPIBind
	}
	c.Paths.APIToken = strings.TrimSpace(c.Paths.APIToken)
	return nil
}

func (c *Config) normalizeScheduler() {
	if c.Scheduler.PollInterval <= 0 {
		c.Scheduler.PollInterval = defaultPollInterval
	}
	if c.Scheduler.ErrorRetryInterval <= 0 {
		c.Scheduler.ErrorRetryInterval = defaultErrorRetryInterval
	}
	if c.Scheduler.StartupDelay < 0 {
		c.Scheduler.StartupDelay = defaultStartupDelay
	}
	if c.Scheduler.WorkerCount <= 0 {
		c.Scheduler.WorkerCount = defaultWorkerCount
	}
	if c.Scheduler.TaskQueueCapacity <= 0 {
		c.Scheduler.TaskQueueCapacity = defaultTaskQueueCapacity
	}
	c.Scheduler.TaskQueuePolicy = strings.ToLower(strings.TrimSpace(c.Scheduler.TaskQueuePolicy))
	if c.Scheduler.TaskQueuePolicy == "" {
		c.Scheduler.TaskQueuePolicy = defaultTaskQueuePolicy
	}
	if c.Scheduler.StuckTimeoutMinutes <= 0 {
		c.Scheduler.StuckTimeoutMinutes = defaultStuckTimeoutMinutes
	}
	if c.Scheduler.ReclaimInterval <= 0 {
		c.Scheduler.ReclaimInterval = defaultReclaimInterval
	}
	if c.Scheduler.DefaultMaxRetries <= 0 {
		c.Scheduler.DefaultMaxRetries = defaultMaxRetries
	}
}

func (c *Config) normalizeProcessors() {
	c.Processors.TextExtractionURL = strings.TrimSpace(c.Processors.TextExtractionURL)
	c.Processors.ClassificationURL = strings.TrimSpace(c.Processors.ClassificationURL)
	c.Processors.SummarizationURL = strings.TrimSpace(c.Processors.SummarizationURL)
	if c.Processors.RequestTimeout <= 0 {
		c.Processors.RequestTimeout = defaultProcessorTimeout
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateScheduler(); err != nil {
		return err
	}
	if err := c.validateProcessors(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateScheduler() error {
	switch c.Scheduler.TaskQueuePolicy {
	case "fifo", "priority":
	default:
		return fmt.Errorf("scheduler.task_queue_policy must be %q or %q, got %q", "fifo", "priority", c.Scheduler.TaskQueuePolicy)
	}
	return nil
}

func (c *Config) validateProcessors() error {
	for field, value := range map[string]string{
		"processors.text_extraction_url": c.Processors.TextExtractionURL,
		"processors.classification_url":  c.Processors.ClassificationURL,
		"processors.summarization_url":   c.Processors.SummarizationURL,
	} {
		if value == "" {
			continue
		}
		parsed, err := url.Parse(value)
		if err != nil || parsed.Scheme == "" || parsed.Host == "" {
			return fmt.Errorf("%s must be an absolute URL, got %q", field, value)
		}
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be %q or %q, got %q", "console", "json", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return errors.New("logging.level must be one of debug, info, warn, error")
	}
	return nil
}
