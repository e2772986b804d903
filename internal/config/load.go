package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// envPrefix is the prefix for all environment variables read by Load,
// e.g. LOAM_SERVER_PORT or LOAM_QUEUEFS_URL.
const envPrefix = "LOAM"

// Load reads configuration from an optional config file (loam.yaml in the
// working directory) and from LOAM_-prefixed environment variables, with
// environment variables taking precedence. It applies defaults, unmarshals
// into a Config, and validates it. Returns a populated Config or an error
// describing what failed to load or validate.
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigName("loam")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	if err := v.ReadInConfig(); err != nil {
		// A missing config file is fine; the environment can carry
		// everything. Any other read error is real.
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// setDefaults registers every known key with its default so AutomaticEnv
// picks up environment-only values during Unmarshal.
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.log_level", "info")

	v.SetDefault("backend.url", "")

	v.SetDefault("queuefs.url", "")
	v.SetDefault("queuefs.timeout", "10s")

	v.SetDefault("queue.poll_interval", "500ms")
	v.SetDefault("queue.handle_timeout", "60s")
	v.SetDefault("queue.max_attempts", 5)
	v.SetDefault("queue.stop_grace", "10s")

	v.SetDefault("llm.gemini_api_key", "")
	v.SetDefault("llm.embedding_model", "gemini-embedding-001")
	v.SetDefault("llm.generation_model", "gemini-2.0-flash")
	v.SetDefault("llm.max_retries", 3)
	v.SetDefault("llm.retry_delay_seconds", 2)
}
