package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/critiquelabs/critique/pkg/observability"
	"github.com/critiquelabs/critique/pkg/storage"
)

// Config holds all application configuration
type Config struct {
	Server  ServerConfig
	Storage storage.Config
	Mail    MailConfig
	Auth    AuthConfig

	LogLevel       observability.LogLevel
	MetricsEnabled bool
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	// Health/metrics server (separate port for k8s probes)
	HealthPort string
}

// MailConfig holds SMTP configuration for confirmation-code delivery
type MailConfig struct {
	SMTPHost string
	SMTPPort string
	From     string
	Username string
	Password string
}

// AuthConfig holds access token settings
type AuthConfig struct {
	TokenTTL time.Duration
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	cfg := &Config{
		Server:         loadServerConfig(),
		Storage:        loadStorageConfig(),
		Mail:           loadMailConfig(),
		Auth:           loadAuthConfig(),
		LogLevel:       parseLogLevel(getEnv("CRITIQUE_LOG_LEVEL", "info")),
		MetricsEnabled: getEnvBool("CRITIQUE_METRICS_ENABLED", true),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

func loadServerConfig() ServerConfig {
	return ServerConfig{
		Host:            getEnv("CRITIQUE_HOST", "0.0.0.0"),
		Port:            getEnv("CRITIQUE_PORT", "8080"),
		ReadTimeout:     getEnvDuration("CRITIQUE_READ_TIMEOUT", 15*time.Second),
		WriteTimeout:    getEnvDuration("CRITIQUE_WRITE_TIMEOUT", 15*time.Second),
		IdleTimeout:     getEnvDuration("CRITIQUE_IDLE_TIMEOUT", 60*time.Second),
		ShutdownTimeout: getEnvDuration("CRITIQUE_SHUTDOWN_TIMEOUT", 30*time.Second),
		HealthPort:      getEnv("CRITIQUE_HEALTH_PORT", "9090"),
	}
}

func loadStorageConfig() storage.Config {
	cfg := storage.DefaultConfig()

	cfg.PostgresURL = getEnv("CRITIQUE_POSTGRES_URL", "")
	if maxConns := getEnvInt("CRITIQUE_POSTGRES_MAX_CONNS", 0); maxConns > 0 {
		cfg.PostgresMaxConns = maxConns
	}
	if minConns := getEnvInt("CRITIQUE_POSTGRES_MIN_CONNS", 0); minConns > 0 {
		cfg.PostgresMinConns = minConns
	}
	if timeout := getEnvDuration("CRITIQUE_POSTGRES_TIMEOUT", 0); timeout > 0 {
		cfg.PostgresTimeout = timeout
	}

	cfg.RedisURL = getEnv("CRITIQUE_REDIS_URL", "")
	cfg.RedisPassword = getEnv("CRITIQUE_REDIS_PASSWORD", "")
	if redisDB := getEnvInt("CRITIQUE_REDIS_DB", -1); redisDB >= 0 {
		cfg.RedisDB = redisDB
	}

	if cacheEnabled := getEnv("CRITIQUE_CACHE_ENABLED", ""); cacheEnabled != "" {
		cfg.CacheEnabled = strings.ToLower(cacheEnabled) == "true"
	}
	if ttl := getEnvDuration("CRITIQUE_CACHE_TTL", 0); ttl > 0 {
		cfg.CacheTTL = ttl
	}

	return cfg
}

func loadMailConfig() MailConfig {
	return MailConfig{
		SMTPHost: getEnv("CRITIQUE_SMTP_HOST", "localhost"),
		SMTPPort: getEnv("CRITIQUE_SMTP_PORT", "25"),
		From:     getEnv("CRITIQUE_MAIL_FROM", "noreply@critique.local"),
		Username: getEnv("CRITIQUE_SMTP_USERNAME", ""),
		Password: getEnv("CRITIQUE_SMTP_PASSWORD", ""),
	}
}

func loadAuthConfig() AuthConfig {
	return AuthConfig{
		TokenTTL: getEnvDuration("CRITIQUE_TOKEN_TTL", 24*time.Hour),
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}
	if c.Server.HealthPort == "" {
		return fmt.Errorf("health port is required")
	}
	if c.Server.Port == c.Server.HealthPort {
		return fmt.Errorf("server port and health port must be different")
	}
	if c.Storage.PostgresURL == "" {
		return fmt.Errorf("postgres URL is required")
	}
	if c.Mail.From == "" {
		return fmt.Errorf("mail sender address is required")
	}
	if c.Auth.TokenTTL <= 0 {
		return fmt.Errorf("token TTL must be positive")
	}
	return nil
}

func parseLogLevel(level string) observability.LogLevel {
	switch strings.ToLower(level) {
	case "debug":
		return observability.DebugLevel
	case "info":
		return observability.InfoLevel
	case "warn", "warning":
		return observability.WarnLevel
	case "error":
		return observability.ErrorLevel
	default:
		return observability.InfoLevel
	}
}

// getEnv returns an environment variable value or a default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool returns a boolean environment variable or a default
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return strings.ToLower(value) == "true" || value == "1"
	}
	return defaultValue
}

// getEnvInt returns an integer environment variable or a default
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// getEnvDuration returns a duration environment variable or a default
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
