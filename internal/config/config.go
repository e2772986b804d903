package config

import "time"

// Config holds all application configuration: the HTTP server, the
// context-store backend connection, queue persistence and consumer tuning,
// and the model-integration settings used by the enrichment handlers.
type Config struct {
	Server  ServerConfig  `mapstructure:"server"  validate:"required"`
	Backend BackendConfig `mapstructure:"backend" validate:"required"`
	QueueFS QueueFSConfig `mapstructure:"queuefs"`
	Queue   QueueConfig   `mapstructure:"queue"`
	LLM     LLMConfig     `mapstructure:"llm"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port     int    `mapstructure:"port"      validate:"required,gt=0,lt=65536"`
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
}

// BackendConfig configures the context-store backend connection.
type BackendConfig struct {
	URL string `mapstructure:"url" validate:"required,url"`
}

// QueueFSConfig configures the durable queue-persistence store. An empty URL
// disables background queues entirely; the Manager then runs in degraded
// (storage-only) mode.
type QueueFSConfig struct {
	URL     string        `mapstructure:"url"     validate:"omitempty,url"`
	Timeout time.Duration `mapstructure:"timeout" validate:"omitempty,gt=0"`
}

// QueueConfig tunes the consumer loops of the background queues.
type QueueConfig struct {
	// PollInterval bounds how long a consumer waits when its queue is empty
	// before re-checking, keeping the loop responsive to stop signals.
	PollInterval time.Duration `mapstructure:"poll_interval" validate:"omitempty,gt=0"`

	// HandleTimeout is the per-message deadline for a handler invocation.
	HandleTimeout time.Duration `mapstructure:"handle_timeout" validate:"omitempty,gt=0"`

	// MaxAttempts is the delivery budget per message before it is
	// dead-lettered.
	MaxAttempts int `mapstructure:"max_attempts" validate:"omitempty,gt=0"`

	// StopGrace bounds how long Stop waits for in-flight handling to finish.
	StopGrace time.Duration `mapstructure:"stop_grace" validate:"omitempty,gt=0"`
}

// LLMConfig contains all model-integration settings used by the enrichment
// handlers. The API key is only required when background queues are enabled;
// that check happens at startup wiring, not here.
type LLMConfig struct {
	GeminiAPIKey      string `mapstructure:"gemini_api_key"`
	EmbeddingModel    string `mapstructure:"embedding_model"`
	GenerationModel   string `mapstructure:"generation_model"`
	MaxRetries        int    `mapstructure:"max_retries"        validate:"omitempty,gte=0"`
	RetryDelaySeconds int    `mapstructure:"retry_delay_seconds" validate:"omitempty,gt=0"`
}
