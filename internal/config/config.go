package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Session backends.
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	// General
	Environment    string `envconfig:"ENVIRONMENT" default:"development"`
	LogLevel       string `envconfig:"LOG_LEVEL" default:"info"`
	HTTPAddr       string `envconfig:"HTTP_ADDR" default:":8080"`
	CORSOrigins    string `envconfig:"CORS_ORIGINS"`
	RateLimitRPS   int    `envconfig:"RATE_LIMIT_RPS" default:"10"`
	RateLimitBurst int    `envconfig:"RATE_LIMIT_BURST" default:"20"`
	AdminAPIKey    string `envconfig:"ADMIN_API_KEY"`

	// Sessions
	SessionBackend string        `envconfig:"SESSION_BACKEND" default:"memory"`
	RedisURL       string        `envconfig:"REDIS_URL"`
	SessionTTL     time.Duration `envconfig:"SESSION_TTL" default:"24h"`

	// Persistence and background work
	SQLitePath         string        `envconfig:"SQLITE_PATH" default:"audit-intake.db"`
	Workers            int           `envconfig:"WORKERS" default:"4"`
	QueueSize          int           `envconfig:"QUEUE_SIZE" default:"256"`
	RetentionInterval  time.Duration `envconfig:"RETENTION_INTERVAL" default:"1h"`
	DeadLetterInterval time.Duration `envconfig:"DEAD_LETTER_INTERVAL" default:"5m"`
	LeadRetention      time.Duration `envconfig:"LEAD_RETENTION" default:"2160h"`

	// Integrations (each optional; skipped when its URL is empty)
	EmailAPIURL     string `envconfig:"EMAIL_API_URL"`
	EmailAPIKey     string `envconfig:"EMAIL_API_KEY"`
	EmailFrom       string `envconfig:"EMAIL_FROM" default:"audits@example.com"`
	CRMAPIURL       string `envconfig:"CRM_API_URL"`
	CRMAPIKey       string `envconfig:"CRM_API_KEY"`
	SlackWebhookURL string `envconfig:"SLACK_WEBHOOK_URL"`

	// Reports
	ReportSigningKey string        `envconfig:"REPORT_SIGNING_KEY"`
	ReportBaseURL    string        `envconfig:"REPORT_BASE_URL" default:"http://localhost:3000"`
	ReportLinkTTL    time.Duration `envconfig:"REPORT_LINK_TTL" default:"168h"`

	// LLM (optional, enables summary polishing)
	AnthropicAPIKey string `envconfig:"ANTHROPIC_API_KEY"`
	AnthropicModel  string `envconfig:"ANTHROPIC_MODEL" default:"claude-sonnet-4-5"`

	// Retry
	RetryMax     int           `envconfig:"RETRY_MAX" default:"2"`
	RetryBackoff time.Duration `envconfig:"RETRY_BACKOFF" default:"200ms"`
}

// IsDevelopment reports whether the service runs in development mode.
func (c *Config) IsDevelopment() bool {
	return strings.EqualFold(c.Environment, "development")
}

// RedisEnabled returns true if sessions live in Redis.
func (c *Config) RedisEnabled() bool {
	return strings.EqualFold(c.SessionBackend, BackendRedis)
}

// EmailEnabled returns true if the email API is configured.
func (c *Config) EmailEnabled() bool {
	return c.EmailAPIURL != ""
}

// CRMEnabled returns true if the CRM API is configured.
func (c *Config) CRMEnabled() bool {
	return c.CRMAPIURL != ""
}

// SlackEnabled returns true if the Slack webhook is configured.
func (c *Config) SlackEnabled() bool {
	return c.SlackWebhookURL != ""
}

// LLMEnabled returns true if an Anthropic API key is configured.
func (c *Config) LLMEnabled() bool {
	return c.AnthropicAPIKey != ""
}

// AdminEnabled returns true if the admin API is protected by a key. Without
// one the admin routes are not mounted.
func (c *Config) AdminEnabled() bool {
	return c.AdminAPIKey != ""
}

// CORSOriginList returns the parsed list of allowed origins.
// Returns nil if not configured.
func (c *Config) CORSOriginList() []string {
	if c.CORSOrigins == "" {
		return nil
	}
	parts := strings.Split(c.CORSOrigins, ",")
	origins := make([]string, 0, len(parts))
	for _, o := range parts {
		o = strings.TrimSpace(o)
		if o != "" {
			origins = append(origins, o)
		}
	}
	return origins
}

// Validate checks combinations envconfig cannot express.
func (c *Config) Validate() error {
	switch strings.ToLower(c.SessionBackend) {
	case BackendMemory:
	case BackendRedis:
		if c.RedisURL == "" {
			return fmt.Errorf("REDIS_URL is required when SESSION_BACKEND=redis")
		}
	default:
		return fmt.Errorf("unknown SESSION_BACKEND %q, expected memory or redis", c.SessionBackend)
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("SESSION_TTL must be positive")
	}
	if c.RetryMax < 0 {
		return fmt.Errorf("RETRY_MAX must not be negative")
	}
	if !c.IsDevelopment() && c.ReportSigningKey == "" {
		return fmt.Errorf("REPORT_SIGNING_KEY is required outside development")
	}
	return nil
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return &cfg, nil
}

// LoadWithPrefix reads configuration with a prefix.
func LoadWithPrefix(prefix string) (*Config, error) {
	var cfg Config
	if err := envconfig.Process(prefix, &cfg); err != nil {
		return nil, fmt.Errorf("loading config with prefix %s: %w", prefix, err)
	}
	return &cfg, nil
}
