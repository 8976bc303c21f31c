// Package storage holds the storage backend configuration shared by the
// Postgres implementation and the application config loader.
package storage

import "time"

// Config for the storage backend
type Config struct {
	// PostgreSQL config
	PostgresURL      string
	PostgresMaxConns int
	PostgresMinConns int
	PostgresTimeout  time.Duration

	// Redis config; when RedisURL is empty the rating aggregate cache is
	// disabled and every read hits the database.
	RedisURL      string
	RedisPassword string
	RedisDB       int

	// Cache config
	CacheEnabled bool
	CacheTTL     time.Duration
}

// DefaultConfig returns sensible default configuration
func DefaultConfig() Config {
	return Config{
		PostgresMaxConns: 20,
		PostgresMinConns: 2,
		PostgresTimeout:  10 * time.Second,
		RedisDB:          0,
		CacheEnabled:     true,
		CacheTTL:         15 * time.Minute,
	}
}
