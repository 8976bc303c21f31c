// Package postgres implements the api.Storage interface on PostgreSQL,
// with an optional Redis cache for rating aggregates.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver

	"github.com/critiquelabs/critique/pkg/observability"
	"github.com/critiquelabs/critique/pkg/storage"
)

// PostgresStorage implements api.Storage using PostgreSQL + Redis
type PostgresStorage struct {
	db          *sql.DB
	redisClient *RedisClient
	config      storage.Config
	log         *observability.Logger
	metrics     *observability.Metrics
}

// NewPostgresStorage creates a new PostgreSQL-backed storage
func NewPostgresStorage(config storage.Config, logger *observability.Logger) (*PostgresStorage, error) {
	db, err := sql.Open("postgres", config.PostgresURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	db.SetMaxOpenConns(config.PostgresMaxConns)
	db.SetMaxIdleConns(config.PostgresMinConns)
	db.SetConnMaxLifetime(1 * time.Hour)
	db.SetConnMaxIdleTime(10 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), config.PostgresTimeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}

	if err := RunMigrations(ctx, db); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	// Redis is optional: no URL means no cache, not a startup failure.
	var redisClient *RedisClient
	if config.CacheEnabled && config.RedisURL != "" {
		redisClient, err = NewRedisClient(config)
		if err != nil {
			logger.WithError(err).Warn("rating cache disabled: redis unavailable")
			redisClient = nil
		}
	}

	return &PostgresStorage{
		db:          db,
		redisClient: redisClient,
		config:      config,
		log:         logger,
	}, nil
}

// NewFromDB wraps an existing database handle. Used by tests with sqlmock.
func NewFromDB(db *sql.DB, logger *observability.Logger) *PostgresStorage {
	return &PostgresStorage{
		db:     db,
		config: storage.DefaultConfig(),
		log:    logger,
	}
}

// WithMetrics enables operation and cache instrumentation.
func (s *PostgresStorage) WithMetrics(m *observability.Metrics) *PostgresStorage {
	s.metrics = m
	if s.redisClient != nil {
		s.redisClient.metrics = m
	}
	return s
}

// instrument starts a storage-operation timer. The returned func records
// duration, outcome and the error class; a no-op when metrics are off.
func (s *PostgresStorage) instrument(op string) func(err error) {
	if s.metrics == nil {
		return func(error) {}
	}
	start := time.Now()
	return func(err error) {
		s.metrics.StorageOperationDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
		status := "ok"
		if err != nil {
			status = "error"
			s.metrics.StorageErrorsTotal.WithLabelValues(op, errorClass(err)).Inc()
		}
		s.metrics.StorageOperationsTotal.WithLabelValues(op, status).Inc()
	}
}

// Stats are point-in-time row counts behind the business gauges.
type Stats struct {
	Titles       int64
	Reviews      int64
	Users        int64
	ActiveTokens int64
}

// Stats counts the rows behind the business gauges in one round trip.
func (s *PostgresStorage) Stats(ctx context.Context) (Stats, error) {
	var st Stats
	err := s.db.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM titles),
			(SELECT COUNT(*) FROM reviews),
			(SELECT COUNT(*) FROM users),
			(SELECT COUNT(*) FROM api_tokens WHERE revoked_at IS NULL AND expires_at > NOW())`,
	).Scan(&st.Titles, &st.Reviews, &st.Users, &st.ActiveTokens)
	if err != nil {
		return Stats{}, fmt.Errorf("stats: %w", err)
	}
	return st, nil
}

// RefreshGauges updates the business gauges from current row counts.
func (s *PostgresStorage) RefreshGauges(ctx context.Context) error {
	if s.metrics == nil {
		return nil
	}
	st, err := s.Stats(ctx)
	if err != nil {
		return err
	}
	s.metrics.TitlesTotal.Set(float64(st.Titles))
	s.metrics.ReviewsTotal.Set(float64(st.Reviews))
	s.metrics.UsersTotal.Set(float64(st.Users))
	s.metrics.TokensActive.Set(float64(st.ActiveTokens))
	return nil
}

// DB exposes the underlying handle for health checks.
func (s *PostgresStorage) DB() *sql.DB {
	return s.db
}

// Redis exposes the cache client for health checks; may be nil.
func (s *PostgresStorage) Redis() *RedisClient {
	return s.redisClient
}

// Close releases the database and cache connections.
func (s *PostgresStorage) Close() error {
	if s.redisClient != nil {
		if err := s.redisClient.Close(); err != nil {
			s.log.WithError(err).Warn("failed to close redis client")
		}
	}
	return s.db.Close()
}
