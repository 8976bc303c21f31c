package postgres

import (
	"context"
	"fmt"
	"strconv"

	"github.com/go-redis/redis/v8"

	"github.com/critiquelabs/critique/pkg/observability"
	"github.com/critiquelabs/critique/pkg/storage"
)

// RedisClient caches rating aggregates so that title listings do not
// recompute AVG over reviews on every request.
type RedisClient struct {
	client  *redis.Client
	config  storage.Config
	metrics *observability.Metrics
}

// NewRedisClient connects to Redis and verifies the connection
func NewRedisClient(config storage.Config) (*RedisClient, error) {
	opts, err := redis.ParseURL(config.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	if config.RedisPassword != "" {
		opts.Password = config.RedisPassword
	}
	if config.RedisDB != 0 {
		opts.DB = config.RedisDB
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), config.PostgresTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	return &RedisClient{client: client, config: config}, nil
}

// NewRedisClientFromClient wraps an existing client. Used by tests with miniredis.
func NewRedisClientFromClient(client *redis.Client, config storage.Config) *RedisClient {
	return &RedisClient{client: client, config: config}
}

func ratingKey(titleID int64) string {
	return fmt.Sprintf("rating:agg:%d", titleID)
}

// emptyRating marks a cached "no reviews" aggregate so that unrated titles
// also skip the database.
const emptyRating = "none"

// GetRating returns the cached rating. ok reports a cache hit; a hit with a
// nil rating means the title is known to have no reviews.
func (c *RedisClient) GetRating(ctx context.Context, titleID int64) (rating *float64, ok bool) {
	defer func() { c.count(ok) }()

	val, err := c.client.Get(ctx, ratingKey(titleID)).Result()
	if err != nil {
		return nil, false
	}
	if val == emptyRating {
		return nil, true
	}
	f, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return nil, false
	}
	return &f, true
}

// count records the lookup outcome on the cache counters.
func (c *RedisClient) count(hit bool) {
	if c.metrics == nil {
		return
	}
	if hit {
		c.metrics.CacheHitsTotal.WithLabelValues("rating").Inc()
	} else {
		c.metrics.CacheMissesTotal.WithLabelValues("rating").Inc()
	}
}

// SetRating caches a rating aggregate with the configured TTL
func (c *RedisClient) SetRating(ctx context.Context, titleID int64, rating *float64) error {
	val := emptyRating
	if rating != nil {
		val = strconv.FormatFloat(*rating, 'f', -1, 64)
	}
	return c.client.Set(ctx, ratingKey(titleID), val, c.config.CacheTTL).Err()
}

// InvalidateRating drops the cached aggregate after a review write
func (c *RedisClient) InvalidateRating(ctx context.Context, titleID int64) error {
	return c.client.Del(ctx, ratingKey(titleID)).Err()
}

// Ping verifies the connection for health checks
func (c *RedisClient) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Client exposes the underlying connection for health checks
func (c *RedisClient) Client() *redis.Client {
	return c.client
}

// Close releases the connection
func (c *RedisClient) Close() error {
	return c.client.Close()
}
