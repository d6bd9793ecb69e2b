package config

import "time"

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server   ServerConfig   `mapstructure:"server" validate:"required"`
	Database DatabaseConfig `mapstructure:"database" validate:"required"`
	Auth     AuthConfig     `mapstructure:"auth" validate:"required"`
	LLM      LLMConfig      `mapstructure:"llm" validate:"required"`
	Storage  StorageConfig  `mapstructure:"storage" validate:"required"`
	Worker   WorkerConfig   `mapstructure:"worker" validate:"required"`
	Hub      HubConfig      `mapstructure:"hub" validate:"required"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port            int           `mapstructure:"port" validate:"required,gt=0,lt=65536"`
	LogLevel        string        `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
	LogFormat       string        `mapstructure:"log_format" validate:"omitempty,oneof=json text"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"gt=0"`
}

// DatabaseConfig contains all database-related configuration settings.
type DatabaseConfig struct {
	URL          string `mapstructure:"url" validate:"required,url"`
	MaxOpenConns int    `mapstructure:"max_open_conns" validate:"gt=0"`
	MaxIdleConns int    `mapstructure:"max_idle_conns" validate:"gte=0"`
	AutoMigrate  bool   `mapstructure:"auto_migrate"`
}

// AuthConfig contains the settings used to validate caller identity.
type AuthConfig struct {
	JWTSecret            string `mapstructure:"jwt_secret" validate:"required,min=32"`
	TokenLifetimeMinutes int    `mapstructure:"token_lifetime_minutes" validate:"required,gt=0"`
}

// LLMConfig contains the image generation provider settings.
type LLMConfig struct {
	GeminiAPIKey          string        `mapstructure:"gemini_api_key" validate:"required"`
	ModelName             string        `mapstructure:"model_name" validate:"required"`
	ReferenceFetchTimeout time.Duration `mapstructure:"reference_fetch_timeout" validate:"gt=0"`
}

// StorageConfig contains the S3-compatible object storage settings.
type StorageConfig struct {
	Endpoint      string `mapstructure:"endpoint" validate:"required"`
	AccessKey     string `mapstructure:"access_key" validate:"required"`
	SecretKey     string `mapstructure:"secret_key" validate:"required"`
	Bucket        string `mapstructure:"bucket" validate:"required"`
	Region        string `mapstructure:"region"`
	UseSSL        bool   `mapstructure:"use_ssl"`
	PublicBaseURL string `mapstructure:"public_base_url" validate:"omitempty,url"`
	// SignTTL is the lifetime of presigned object URLs.
	SignTTL time.Duration `mapstructure:"sign_ttl" validate:"gt=0"`
}

// WorkerConfig holds the generation worker settings. They are fixed at process start.
type WorkerConfig struct {
	PollInterval  time.Duration `mapstructure:"poll_interval" validate:"gt=0"`
	BatchSize     int           `mapstructure:"batch_size" validate:"gt=0,lte=100"`
	RetryAttempts int           `mapstructure:"retry_attempts" validate:"gt=0"`
	RetryDelay    time.Duration `mapstructure:"retry_delay" validate:"gte=0"`
	StaleAfter    time.Duration `mapstructure:"stale_after" validate:"gt=0"`
	SweepInterval time.Duration `mapstructure:"sweep_interval" validate:"gt=0"`
	// ProviderTimeout bounds each provider attempt; zero leaves it unbounded.
	ProviderTimeout time.Duration `mapstructure:"provider_timeout" validate:"gte=0"`
	ObjectFolder    string        `mapstructure:"object_folder" validate:"required"`
}

// HubConfig holds the notification hub settings.
type HubConfig struct {
	HeartbeatInterval time.Duration `mapstructure:"heartbeat_interval" validate:"gt=0"`
	WriteTimeout      time.Duration `mapstructure:"write_timeout" validate:"gt=0"`
}
