package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/critiquelabs/critique/pkg/observability"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("CRITIQUE_POSTGRES_URL", "postgres://localhost/critique")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "9090", cfg.Server.HealthPort)
	assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, 24*time.Hour, cfg.Auth.TokenTTL)
	assert.Equal(t, "noreply@critique.local", cfg.Mail.From)
	assert.Equal(t, 20, cfg.Storage.PostgresMaxConns)
	assert.True(t, cfg.Storage.CacheEnabled)
	assert.Equal(t, observability.InfoLevel, cfg.LogLevel)
	assert.True(t, cfg.MetricsEnabled)
}

func TestLoadConfigFromEnvironment(t *testing.T) {
	t.Setenv("CRITIQUE_POSTGRES_URL", "postgres://db:5432/critique")
	t.Setenv("CRITIQUE_PORT", "3000")
	t.Setenv("CRITIQUE_TOKEN_TTL", "2h")
	t.Setenv("CRITIQUE_REDIS_URL", "redis://cache:6379")
	t.Setenv("CRITIQUE_CACHE_ENABLED", "false")
	t.Setenv("CRITIQUE_LOG_LEVEL", "debug")
	t.Setenv("CRITIQUE_METRICS_ENABLED", "false")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "3000", cfg.Server.Port)
	assert.Equal(t, 2*time.Hour, cfg.Auth.TokenTTL)
	assert.Equal(t, "redis://cache:6379", cfg.Storage.RedisURL)
	assert.False(t, cfg.Storage.CacheEnabled)
	assert.Equal(t, observability.DebugLevel, cfg.LogLevel)
	assert.False(t, cfg.MetricsEnabled)
}

func TestLoadConfigRequiresPostgresURL(t *testing.T) {
	t.Setenv("CRITIQUE_POSTGRES_URL", "")
	_, err := LoadConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "postgres URL")
}

func TestValidateRejectsSharedPorts(t *testing.T) {
	t.Setenv("CRITIQUE_POSTGRES_URL", "postgres://localhost/critique")
	t.Setenv("CRITIQUE_PORT", "9090")

	_, err := LoadConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must be different")
}

func TestParseLogLevel(t *testing.T) {
	assert.Equal(t, observability.DebugLevel, parseLogLevel("debug"))
	assert.Equal(t, observability.WarnLevel, parseLogLevel("WARNING"))
	assert.Equal(t, observability.ErrorLevel, parseLogLevel("error"))
	assert.Equal(t, observability.InfoLevel, parseLogLevel("unknown"))
}
