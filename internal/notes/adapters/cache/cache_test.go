package cache_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"notekeeper/internal/notes/adapters/cache"
	cachePorts "notekeeper/internal/notes/ports/cache"
)

func newRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return srv, client
}

func TestRedisCache(t *testing.T) {
	ctx := context.Background()
	srv, client := newRedis(t)
	c := cache.NewRedisCache(client, time.Hour)

	t.Run("miss", func(t *testing.T) {
		_, err := c.Get(ctx, "absent")
		require.ErrorIs(t, err, cachePorts.ErrCacheMiss)
	})

	t.Run("set get delete", func(t *testing.T) {
		require.NoError(t, c.Set(ctx, "k", "v", time.Minute))
		got, err := c.Get(ctx, "k")
		require.NoError(t, err)
		assert.Equal(t, "v", got)
		assert.Equal(t, time.Minute, srv.TTL("k"))

		require.NoError(t, c.Delete(ctx, "k"))
		_, err = c.Get(ctx, "k")
		require.ErrorIs(t, err, cachePorts.ErrCacheMiss)
	})

	t.Run("zero ttl uses default", func(t *testing.T) {
		require.NoError(t, c.Set(ctx, "d", "v", 0))
		assert.Equal(t, time.Hour, srv.TTL("d"))
	})

	t.Run("expiry", func(t *testing.T) {
		require.NoError(t, c.Set(ctx, "e", "v", time.Second))
		srv.FastForward(2 * time.Second)
		_, err := c.Get(ctx, "e")
		require.ErrorIs(t, err, cachePorts.ErrCacheMiss)
	})

	t.Run("server down", func(t *testing.T) {
		srv.SetError("ERR server unavailable")
		defer srv.SetError("")
		_, err := c.Get(ctx, "k")
		require.Error(t, err)
		assert.NotErrorIs(t, err, cachePorts.ErrCacheMiss)
	})
}

func TestRedisLocker(t *testing.T) {
	ctx := context.Background()
	srv, client := newRedis(t)

	first := cache.NewRedisLocker(client)
	second := cache.NewRedisLocker(client)

	ok, err := first.TryLock(ctx, "sweep", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = second.TryLock(ctx, "sweep", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok, "lock is held by another owner")

	require.NoError(t, second.Unlock(ctx, "sweep"))
	assert.True(t, srv.Exists("sweep"), "foreign owner must not release the lock")

	require.NoError(t, first.Unlock(ctx, "sweep"))
	assert.False(t, srv.Exists("sweep"))

	ok, err = second.TryLock(ctx, "sweep", time.Second)
	require.NoError(t, err)
	assert.True(t, ok)
	srv.FastForward(2 * time.Second)

	ok, err = first.TryLock(ctx, "sweep", time.Second)
	require.NoError(t, err)
	assert.True(t, ok, "expired lock can be taken")
}
