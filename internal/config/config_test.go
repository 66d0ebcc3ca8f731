// Package config tests.
package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setIntegrationEnvs(t *testing.T) {
	t.Helper()
	envs := map[string]string{
		"EMAIL_API_URL":     "https://mail.test",
		"CRM_API_URL":       "https://crm.test",
		"SLACK_WEBHOOK_URL": "https://hooks.slack.test/x",
		"SESSION_BACKEND":   "redis",
		"REDIS_URL":         "redis://localhost:6379/0",
	}
	for k, v := range envs {
		t.Setenv(k, v)
	}
}

func TestLoad_Defaults(t *testing.T) {
	os.Clearenv()
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, 10, cfg.RateLimitRPS)
	assert.Equal(t, 20, cfg.RateLimitBurst)
	assert.Equal(t, BackendMemory, cfg.SessionBackend)
	assert.Equal(t, 24*time.Hour, cfg.SessionTTL)
	assert.Equal(t, "audit-intake.db", cfg.SQLitePath)
	assert.Equal(t, 4, cfg.Workers)
	assert.Equal(t, 256, cfg.QueueSize)
	assert.Equal(t, 5*time.Minute, cfg.DeadLetterInterval)
	assert.Equal(t, 90*24*time.Hour, cfg.LeadRetention)
	assert.Equal(t, 7*24*time.Hour, cfg.ReportLinkTTL)
	assert.Equal(t, "claude-sonnet-4-5", cfg.AnthropicModel)
	assert.Equal(t, 2, cfg.RetryMax)
	assert.Equal(t, 200*time.Millisecond, cfg.RetryBackoff)

	assert.True(t, cfg.IsDevelopment())
	assert.False(t, cfg.EmailEnabled())
	assert.False(t, cfg.CRMEnabled())
	assert.False(t, cfg.SlackEnabled())
	assert.False(t, cfg.LLMEnabled())
	assert.False(t, cfg.AdminEnabled())
	assert.NoError(t, cfg.Validate())
}

func TestLoad_Integrations(t *testing.T) {
	setIntegrationEnvs(t)
	cfg, err := Load()
	require.NoError(t, err)

	assert.True(t, cfg.EmailEnabled())
	assert.True(t, cfg.CRMEnabled())
	assert.True(t, cfg.SlackEnabled())
	assert.True(t, cfg.RedisEnabled())
	assert.NoError(t, cfg.Validate())
}

func TestLoadWithPrefix(t *testing.T) {
	os.Clearenv()
	t.Setenv("INTAKE_HTTP_ADDR", ":9090")
	t.Setenv("INTAKE_SESSION_TTL", "2h")
	cfg, err := LoadWithPrefix("INTAKE")
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.HTTPAddr)
	assert.Equal(t, 2*time.Hour, cfg.SessionTTL)
}

func TestLoad_BadDuration(t *testing.T) {
	os.Clearenv()
	t.Setenv("SESSION_TTL", "forever")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "loading config")
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		return &Config{Environment: "development", SessionBackend: BackendMemory, SessionTTL: time.Hour}
	}

	cfg := base()
	cfg.SessionBackend = "redis"
	assert.Error(t, cfg.Validate(), "redis needs a url")

	cfg = base()
	cfg.SessionBackend = "etcd"
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.SessionTTL = 0
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.Environment = "production"
	assert.Error(t, cfg.Validate(), "production needs a signing key")
	cfg.ReportSigningKey = "secret"
	assert.NoError(t, cfg.Validate())
}

func TestCORSOriginList(t *testing.T) {
	cfg := &Config{}
	assert.Nil(t, cfg.CORSOriginList())
	cfg.CORSOrigins = "https://a.test, ,https://b.test"
	assert.Equal(t, []string{"https://a.test", "https://b.test"}, cfg.CORSOriginList())
}
