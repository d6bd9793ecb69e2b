package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable read by Load,
// e.g. ATELIER_DATABASE_URL for database.url.
const EnvPrefix = "ATELIER"

var defaults = map[string]any{
	"server.port":             8080,
	"server.log_level":        "info",
	"server.log_format":       "json",
	"server.shutdown_timeout": 10 * time.Second,

	"database.url":            "",
	"database.max_open_conns": 10,
	"database.max_idle_conns": 5,
	"database.auto_migrate":   false,

	"auth.jwt_secret":             "",
	"auth.token_lifetime_minutes": 60,

	"llm.gemini_api_key":          "",
	"llm.model_name":              "gemini-2.5-flash-image",
	"llm.reference_fetch_timeout": 30 * time.Second,

	"storage.endpoint":        "",
	"storage.access_key":      "",
	"storage.secret_key":      "",
	"storage.bucket":          "",
	"storage.region":          "",
	"storage.use_ssl":         true,
	"storage.public_base_url": "",
	"storage.sign_ttl":        15 * time.Minute,

	"worker.poll_interval":    2 * time.Second,
	"worker.batch_size":       10,
	"worker.retry_attempts":   3,
	"worker.retry_delay":      5 * time.Second,
	"worker.stale_after":      30 * time.Minute,
	"worker.sweep_interval":   5 * time.Minute,
	"worker.provider_timeout": time.Duration(0),
	"worker.object_folder":    "generated",

	"hub.heartbeat_interval": 30 * time.Second,
	"hub.write_timeout":      10 * time.Second,
}

// Load reads configuration from an optional config.yaml (current directory
// or /etc/atelier) and from ATELIER_* environment variables, which take
// precedence. The result is validated before it is returned.
func Load() (*Config, error) {
	v := viper.New()

	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("/etc/atelier")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks cfg against its struct tags.
func Validate(cfg *Config) error {
	if err := validator.New().Struct(cfg); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	return nil
}
