package backend

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aatumaykin/memtier/internal/config"
	"github.com/aatumaykin/memtier/internal/logger"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *RedisStore) {
	t.Helper()
	mr := miniredis.RunT(t)
	s := NewRedisStore(config.RedisConfig{
		Addr:                mr.Addr(),
		DialTimeoutSeconds:  1,
		ReadTimeoutSeconds:  1,
		WriteTimeoutSeconds: 1,
	})
	t.Cleanup(func() { _ = s.Close() })
	return mr, s
}

func TestRedisSetGet(t *testing.T) {
	ctx := context.Background()
	_, s := newTestRedis(t)

	require.NoError(t, s.Set(ctx, "cache:a", []byte("payload"), time.Minute))

	val, ok, err := s.Get(ctx, "cache:a")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte("payload"), val)

	_, ok, err = s.Get(ctx, "cache:missing")
	require.NoError(t, err)
	assert.False(t, ok, "absence is not an error")
}

func TestRedisTTLExpiry(t *testing.T) {
	ctx := context.Background()
	mr, s := newTestRedis(t)

	require.NoError(t, s.Set(ctx, "short", []byte("v"), time.Second))

	d, err := s.TTL(ctx, "short")
	require.NoError(t, err)
	assert.Greater(t, d, time.Duration(0))

	mr.FastForward(2 * time.Second)

	_, ok, err := s.Get(ctx, "short")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = s.TTL(ctx, "short")
	assert.ErrorIs(t, err, ErrKeyNotFound)
}

func TestRedisTTLNoExpiry(t *testing.T) {
	ctx := context.Background()
	_, s := newTestRedis(t)

	require.NoError(t, s.Set(ctx, "forever", []byte("v"), 0))

	d, err := s.TTL(ctx, "forever")
	require.NoError(t, err)
	assert.Equal(t, TTLNone, d)
}

func TestRedisDelete(t *testing.T) {
	ctx := context.Background()
	_, s := newTestRedis(t)

	require.NoError(t, s.Set(ctx, "a", []byte("1"), 0))
	require.NoError(t, s.Set(ctx, "b", []byte("2"), 0))

	n, err := s.Delete(ctx, "a", "b", "missing")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = s.Delete(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestRedisKeysPattern(t *testing.T) {
	ctx := context.Background()
	_, s := newTestRedis(t)

	require.NoError(t, s.Set(ctx, "cache:one", []byte("1"), 0))
	require.NoError(t, s.Set(ctx, "cache:two", []byte("2"), 0))
	require.NoError(t, s.Set(ctx, "vector:one", []byte("3"), 0))

	keys, err := s.Keys(ctx, "cache:*")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"cache:one", "cache:two"}, keys)
}

func TestRedisPing(t *testing.T) {
	ctx := context.Background()
	mr, s := newTestRedis(t)

	assert.NoError(t, s.Ping(ctx))
	assert.Equal(t, NameRedis, s.Name())

	mr.Close()
	assert.Error(t, s.Ping(ctx))
}

func TestConnectPrefersRedis(t *testing.T) {
	mr := miniredis.RunT(t)

	cfg := config.Default().Redis
	cfg.Addr = mr.Addr()
	cfg.DialTimeoutSeconds = 1

	store := Connect(context.Background(), cfg, logger.Discard())
	t.Cleanup(func() { _ = store.Close() })

	assert.Equal(t, NameRedis, store.Name())
}

func TestConnectFallsBackWhenUnreachable(t *testing.T) {
	cfg := config.Default().Redis
	cfg.Addr = "127.0.0.1:1" // nothing listens here
	cfg.DialTimeoutSeconds = 1
	cfg.ConnectAttempts = 1

	store := Connect(context.Background(), cfg, logger.Discard())
	assert.Equal(t, NameFallback, store.Name())

	// The fallback must serve traffic immediately.
	ctx := context.Background()
	require.NoError(t, store.Set(ctx, "k", []byte("v"), time.Minute))
	val, ok, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte("v"), val)
}
