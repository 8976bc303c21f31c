package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/critiquelabs/critique/pkg/storage"
)

func newTestRedis(t *testing.T) *RedisClient {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	cfg := storage.DefaultConfig()
	cfg.CacheTTL = time.Minute
	return NewRedisClientFromClient(client, cfg)
}

func TestRatingCacheRoundTrip(t *testing.T) {
	cache := newTestRedis(t)
	ctx := context.Background()

	_, ok := cache.GetRating(ctx, 1)
	assert.False(t, ok)

	rating := 7.5
	require.NoError(t, cache.SetRating(ctx, 1, &rating))

	got, ok := cache.GetRating(ctx, 1)
	require.True(t, ok)
	require.NotNil(t, got)
	assert.InDelta(t, 7.5, *got, 0.001)
}

// A title known to have no reviews caches as a hit with a nil rating, so
// unrated titles skip the aggregate query too.
func TestRatingCacheStoresEmptyAggregate(t *testing.T) {
	cache := newTestRedis(t)
	ctx := context.Background()

	require.NoError(t, cache.SetRating(ctx, 2, nil))

	got, ok := cache.GetRating(ctx, 2)
	assert.True(t, ok)
	assert.Nil(t, got)
}

func TestInvalidateRating(t *testing.T) {
	cache := newTestRedis(t)
	ctx := context.Background()

	rating := 4.0
	require.NoError(t, cache.SetRating(ctx, 3, &rating))
	require.NoError(t, cache.InvalidateRating(ctx, 3))

	_, ok := cache.GetRating(ctx, 3)
	assert.False(t, ok)
}

func TestRatingCacheKeysAreScopedPerTitle(t *testing.T) {
	cache := newTestRedis(t)
	ctx := context.Background()

	a, b := 3.0, 9.0
	require.NoError(t, cache.SetRating(ctx, 1, &a))
	require.NoError(t, cache.SetRating(ctx, 2, &b))
	require.NoError(t, cache.InvalidateRating(ctx, 1))

	_, ok := cache.GetRating(ctx, 1)
	assert.False(t, ok)
	got, ok := cache.GetRating(ctx, 2)
	require.True(t, ok)
	assert.InDelta(t, 9.0, *got, 0.001)
}
