package task

import (
	"time"

	"github.com/phrazzld/atelier-api/internal/config"
)

// WorkerConfig holds the worker's settings. They are fixed once the worker starts.
type WorkerConfig struct {
	// PollInterval is how long an idle worker waits before claiming again
	PollInterval time.Duration

	// BatchSize caps how many tasks one claim returns
	BatchSize int

	// RetryAttempts is the total number of provider calls per task
	RetryAttempts int

	// RetryDelay is the fixed pause between provider calls
	RetryDelay time.Duration

	// StaleAfter defines how long a task can be in processing state
	// before the sweep requeues it
	StaleAfter time.Duration

	// SweepInterval defines how often to check for stale tasks
	SweepInterval time.Duration

	// ProviderTimeout bounds each provider call; zero means no bound
	ProviderTimeout time.Duration

	// ObjectFolder prefixes uploaded output object names
	ObjectFolder string
}

// DefaultWorkerConfig returns a WorkerConfig with reasonable defaults
func DefaultWorkerConfig() WorkerConfig {
	return WorkerConfig{
		PollInterval:  2 * time.Second,
		BatchSize:     10,
		RetryAttempts: 3,
		RetryDelay:    5 * time.Second,
		StaleAfter:    30 * time.Minute,
		SweepInterval: 5 * time.Minute,
		ObjectFolder:  "generated",
	}
}

// WorkerConfigFrom converts the application worker settings.
func WorkerConfigFrom(cfg config.WorkerConfig) WorkerConfig {
	return WorkerConfig{
		PollInterval:    cfg.PollInterval,
		BatchSize:       cfg.BatchSize,
		RetryAttempts:   cfg.RetryAttempts,
		RetryDelay:      cfg.RetryDelay,
		StaleAfter:      cfg.StaleAfter,
		SweepInterval:   cfg.SweepInterval,
		ProviderTimeout: cfg.ProviderTimeout,
		ObjectFolder:    cfg.ObjectFolder,
	}
}

// withDefaults replaces invalid values with defaults.
func (c WorkerConfig) withDefaults() WorkerConfig {
	d := DefaultWorkerConfig()
	if c.PollInterval <= 0 {
		c.PollInterval = d.PollInterval
	}
	if c.BatchSize <= 0 {
		c.BatchSize = d.BatchSize
	}
	if c.RetryAttempts <= 0 {
		c.RetryAttempts = 1
	}
	if c.RetryDelay < 0 {
		c.RetryDelay = 0
	}
	if c.StaleAfter <= 0 {
		c.StaleAfter = d.StaleAfter
	}
	if c.SweepInterval <= 0 {
		c.SweepInterval = d.SweepInterval
	}
	if c.ProviderTimeout < 0 {
		c.ProviderTimeout = 0
	}
	if c.ObjectFolder == "" {
		c.ObjectFolder = d.ObjectFolder
	}
	return c
}
