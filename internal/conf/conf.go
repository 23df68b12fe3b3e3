package conf

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/kelseyhightower/envconfig"

	"github.com/autoreply/wa-autoreply-bridge/internal/biz/domain"
)

// Config represents application configuration
type Config struct {
	AppEnv string `envconfig:"APP_ENV" default:"dev"`
	Port   int    `envconfig:"PORT" default:"3000"`

	WhatsApp   WhatsAppConfig   `envconfig:""`
	Completion CompletionConfig `envconfig:""`
	Reply      ReplyConfig      `envconfig:""`
	Journal    JournalConfig    `envconfig:""`
	KeepAlive  KeepAliveConfig  `envconfig:""`

	// Optional Redis for message dedup; in-memory when empty
	RedisAddr string `envconfig:"REDIS_ADDR"`

	PersonaPath string `envconfig:"PERSONA_PATH"`

	// Bearer token required on /api routes; empty leaves them open
	APIToken string `envconfig:"API_TOKEN"`

	// Used by the operator tools to reach the bridge HTTP API
	BridgeAPIURL string `envconfig:"BRIDGE_API_URL" default:"http://127.0.0.1:3000"`
}

// WhatsAppConfig contains WhatsApp bridge configuration
type WhatsAppConfig struct {
	BridgeURL string `envconfig:"WA_BRIDGE_URL"`
}

// CompletionConfig contains completion service configuration
type CompletionConfig struct {
	APIKey       string        `envconfig:"COMPLETION_API_KEY"`
	GeminiAPIKey string        `envconfig:"GEMINI_API_KEY"`
	BaseURL      string        `envconfig:"COMPLETION_BASE_URL" default:"https://generativelanguage.googleapis.com/v1beta/openai/"`
	Model        string        `envconfig:"COMPLETION_MODEL" default:"gemini-1.5-flash"`
	Timeout      time.Duration `envconfig:"COMPLETION_TIMEOUT" default:"30s"`
	PerMinute    int           `envconfig:"COMPLETION_PER_MINUTE"` // 0 = unlimited
}

// ReplyConfig contains reply coordination configuration
type ReplyConfig struct {
	MuteToken     string        `envconfig:"MUTE_TOKEN" default:"#stop"`
	MuteDuration  time.Duration `envconfig:"MUTE_DURATION" default:"1h"`
	ReplyDelay    time.Duration `envconfig:"REPLY_DELAY" default:"4500ms"`
	SeenRetention time.Duration `envconfig:"SEEN_RETENTION" default:"12h"`
}

// JournalConfig contains reply journal configuration
type JournalConfig struct {
	DBPath string `envconfig:"JOURNAL_DB_PATH"`
}

// KeepAliveConfig contains keep-alive job configuration
type KeepAliveConfig struct {
	URL      string `envconfig:"KEEPALIVE_URL"`
	Schedule string `envconfig:"KEEPALIVE_SCHEDULE" default:"*/14 * * * *"`
}

// LoadFromEnv loads configuration from environment variables
func LoadFromEnv() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	if cfg.Completion.APIKey == "" {
		cfg.Completion.APIKey = cfg.Completion.GeminiAPIKey
	}

	if cfg.Journal.DBPath == "" {
		homeDir, _ := os.UserHomeDir()
		cfg.Journal.DBPath = filepath.Join(homeDir, ".wa-autoreply", "journal.db")
	}

	return &cfg, nil
}

// ToReplyConfig converts to domain reply configuration
func (c *Config) ToReplyConfig() domain.ReplyConfig {
	return domain.ReplyConfig{
		MuteToken:         c.Reply.MuteToken,
		MuteDuration:      c.Reply.MuteDuration,
		ReplyDelay:        c.Reply.ReplyDelay,
		SeenRetention:     c.Reply.SeenRetention,
		CompletionTimeout: c.Completion.Timeout,
		FallbackText:      domain.FallbackReplyText,
	}
}

// Validate validates the configuration needed to run the bridge
func (c *Config) Validate() error {
	if c.WhatsApp.BridgeURL == "" {
		return &ConfigError{Field: "WA_BRIDGE_URL", Message: "required"}
	}
	if c.Completion.APIKey == "" {
		return &ConfigError{Field: "COMPLETION_API_KEY/GEMINI_API_KEY", Message: "required"}
	}
	if c.Reply.MuteToken == "" {
		return &ConfigError{Field: "MUTE_TOKEN", Message: "must not be empty"}
	}
	if c.Reply.MuteDuration <= 0 {
		return &ConfigError{Field: "MUTE_DURATION", Message: "must be positive"}
	}
	if c.Reply.ReplyDelay <= 0 {
		return &ConfigError{Field: "REPLY_DELAY", Message: "must be positive"}
	}
	if c.Reply.SeenRetention <= 0 {
		return &ConfigError{Field: "SEEN_RETENTION", Message: "must be positive"}
	}
	return nil
}

// ConfigError represents a configuration error
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return e.Field + ": " + e.Message
}
