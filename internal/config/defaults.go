package config

const (
	defaultDataDir             = "~/.local/share/quire"
	defaultLogDir              = "~/.local/share/quire/logs"
	defaultAPIBind             = "127.0.0.1:7519"
	defaultLogFormat           = "console"
	defaultLogLevel            = "info"
	defaultPollInterval        = 5
	defaultErrorRetryInterval  = 10
	defaultStartupDelay        = 2
	defaultWorkerCount         = 4
	defaultTaskQueueCapacity   = 64
	defaultTaskQueuePolicy     = "priority"
	defaultStuckTimeoutMinutes = 30
	defaultReclaimInterval     = 300
	defaultMaxRetries          = 3
	defaultPriority            = 0
	defaultProcessorTimeout    = 120
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
			APIBind: defaultAPIBind,
		},
		Scheduler: Scheduler{
			PollInterval:        defaultPollInterval,
			ErrorRetryInterval:  defaultErrorRetryInterval,
			StartupDelay:        defaultStartupDelay,
			WorkerCount:         defaultWorkerCount,
			TaskQueueCapacity:   defaultTaskQueueCapacity,
			TaskQueuePolicy:     defaultTaskQueuePolicy,
			StuckTimeoutMinutes: defaultStuckTimeoutMinutes,
			ReclaimInterval:     defaultReclaimInterval,
			DefaultMaxRetries:   defaultMaxRetries,
			DefaultPriority:     defaultPriority,
		},
		Processors: Processors{
			RequestTimeout: defaultProcessorTimeout,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
