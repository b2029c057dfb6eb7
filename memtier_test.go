package memtier

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aatumaykin/memtier/internal/config"
	"github.com/aatumaykin/memtier/internal/logger"
	"github.com/aatumaykin/memtier/internal/namespace"
)

// testConfig points at an address nothing listens on, so the controller
// lands on the fallback store, and parks the scheduler out of the way.
func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Redis.Addr = "127.0.0.1:1"
	cfg.Redis.ConnectAttempts = 1 // fail to fallback immediately
	cfg.Cleanup.IntervalSeconds = 3600
	return cfg
}

func newTestController(t *testing.T, cfg *config.Config) *Controller {
	t.Helper()
	c, err := New(context.Background(), cfg, logger.Discard(), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Shutdown() })
	return c
}

func TestStoreRetrieveRoundTrip(t *testing.T) {
	ctx := context.Background()
	c := newTestController(t, testConfig())

	value := map[string]any{"name": "alice", "count": float64(3)}
	require.NoError(t, c.Store(ctx, "cache", "user:1", value, 0))

	var got map[string]any
	found, err := c.Retrieve(ctx, "cache", "user:1", &got)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, value, got)

	found, err = c.Retrieve(ctx, "cache", "user:2", &got)
	require.NoError(t, err, "a miss is not an error")
	assert.False(t, found)
}

func TestMemoryTypeIsolation(t *testing.T) {
	ctx := context.Background()
	c := newTestController(t, testConfig())

	require.NoError(t, c.Store(ctx, "cache", "k", "cached", 0))
	require.NoError(t, c.Store(ctx, "working", "k", "scratch", 0))

	var cached, scratch string
	found, err := c.Retrieve(ctx, "cache", "k", &cached)
	require.NoError(t, err)
	require.True(t, found)
	found, err = c.Retrieve(ctx, "working", "k", &scratch)
	require.NoError(t, err)
	require.True(t, found)

	assert.Equal(t, "cached", cached)
	assert.Equal(t, "scratch", scratch)
}

func TestTTLExpiry(t *testing.T) {
	ctx := context.Background()
	c := newTestController(t, testConfig())

	require.NoError(t, c.Store(ctx, "cache", "short", "v", 1))

	var got string
	found, err := c.Retrieve(ctx, "cache", "short", &got)
	require.NoError(t, err)
	require.True(t, found)

	time.Sleep(1100 * time.Millisecond)

	found, err = c.Retrieve(ctx, "cache", "short", &got)
	require.NoError(t, err)
	assert.False(t, found, "entry expired after its TTL")
}

func TestUnknownMemoryType(t *testing.T) {
	ctx := context.Background()
	c := newTestController(t, testConfig())

	err := c.Store(ctx, "episodic", "k", "v", 0)
	assert.ErrorIs(t, err, namespace.ErrUnknownMemoryType)

	_, err = c.Retrieve(ctx, "episodic", "k", nil)
	assert.ErrorIs(t, err, namespace.ErrUnknownMemoryType)

	_, err = c.ClearByType(ctx, "episodic")
	assert.ErrorIs(t, err, namespace.ErrUnknownMemoryType)
}

func TestFallbackActivation(t *testing.T) {
	ctx := context.Background()
	c := newTestController(t, testConfig())

	assert.Equal(t, "fallback", c.BackendName())

	// Operations keep working against the in-process store.
	require.NoError(t, c.Store(ctx, "cache", "k", "v", 0))
	var got string
	found, err := c.Retrieve(ctx, "cache", "k", &got)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "v", got)
}

func TestRedisBackend(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)

	cfg := testConfig()
	cfg.Redis.Addr = mr.Addr()
	c := newTestController(t, cfg)

	assert.Equal(t, "redis", c.BackendName())

	require.NoError(t, c.Store(ctx, "working", "sess", "state", 0))
	var got string
	found, err := c.Retrieve(ctx, "working", "sess", &got)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "state", got)
}

func TestManualCleanupWorking(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig()
	cfg.Cleanup.MaxWorkingAgeSeconds = 0 // any age exceeds the limit
	c := newTestController(t, cfg)

	require.NoError(t, c.Store(ctx, "working", "sess-42", "state", 0))
	time.Sleep(10 * time.Millisecond)

	results, err := c.ManualCleanup(ctx, "working")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.True(t, results[0].Success)
	assert.Equal(t, 1, results[0].ItemsCleaned)

	found, err := c.Retrieve(ctx, "working", "sess-42", nil)
	require.NoError(t, err)
	assert.False(t, found)

	history := c.CleanupHistory(0)
	require.NotEmpty(t, history)
	assert.Equal(t, "working_purge", history[0].Operation)
}

func TestManualCleanupUnknownKind(t *testing.T) {
	c := newTestController(t, testConfig())

	_, err := c.ManualCleanup(context.Background(), "everything")
	assert.Error(t, err)
}

func TestBCMTierOverwrite(t *testing.T) {
	ctx := context.Background()
	c := newTestController(t, testConfig())

	require.NoError(t, c.StoreBCM(ctx, "acme", map[string]any{"version": float64(1)}, "tier0"))
	require.NoError(t, c.StoreBCM(ctx, "acme", map[string]any{"version": float64(2)}, "tier0"))

	var manifest map[string]any
	found, err := c.RetrieveBCM(ctx, "acme", "tier0", &manifest)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, float64(2), manifest["version"], "tier write overwrites")

	found, err = c.RetrieveBCM(ctx, "acme", "tier1", &manifest)
	require.NoError(t, err)
	assert.False(t, found, "tiers are independent slots")

	err = c.StoreBCM(ctx, "acme", nil, "tier9")
	assert.ErrorIs(t, err, namespace.ErrUnknownTier)
}

func TestClearBCM(t *testing.T) {
	ctx := context.Background()
	c := newTestController(t, testConfig())

	require.NoError(t, c.StoreBCM(ctx, "acme", "hot", "tier0"))
	require.NoError(t, c.StoreBCM(ctx, "acme", "cold", "tier2"))
	require.NoError(t, c.StoreBCM(ctx, "other", "keep", "tier0"))

	n, err := c.ClearBCM(ctx, "acme")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	found, err := c.RetrieveBCM(ctx, "acme", "tier0", nil)
	require.NoError(t, err)
	assert.False(t, found)
	found, err = c.RetrieveBCM(ctx, "other", "tier0", nil)
	require.NoError(t, err)
	assert.True(t, found, "other workspaces untouched")
}

func TestSearchByKeySubstring(t *testing.T) {
	ctx := context.Background()
	c := newTestController(t, testConfig())

	require.NoError(t, c.Store(ctx, "cache", "user:1", "a", 0))
	require.NoError(t, c.Store(ctx, "cache", "user:2", "b", 0))
	require.NoError(t, c.Store(ctx, "working", "other", "c", 0))

	results, err := c.Search(ctx, "user", 0)
	require.NoError(t, err)
	assert.Len(t, results, 2)
	for _, r := range results {
		assert.Equal(t, "cache", r.MemoryType)
		assert.Contains(t, r.Key, "user")
	}

	limited, err := c.Search(ctx, "user", 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestClearPattern(t *testing.T) {
	ctx := context.Background()
	c := newTestController(t, testConfig())

	require.NoError(t, c.Store(ctx, "cache", "a:1", "v", 0))
	require.NoError(t, c.Store(ctx, "cache", "a:2", "v", 0))
	require.NoError(t, c.Store(ctx, "cache", "b:1", "v", 0))

	n, err := c.Clear(ctx, "cache:a:*")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	found, err := c.Retrieve(ctx, "cache", "b:1", nil)
	require.NoError(t, err)
	assert.True(t, found)
}

func TestClearByType(t *testing.T) {
	ctx := context.Background()
	c := newTestController(t, testConfig())

	require.NoError(t, c.Store(ctx, "cache", "a", "v", 0))
	require.NoError(t, c.Store(ctx, "cache", "b", "v", 0))
	require.NoError(t, c.Store(ctx, "working", "w", "v", 0))

	n, err := c.ClearByType(ctx, "cache")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	found, err := c.Retrieve(ctx, "working", "w", nil)
	require.NoError(t, err)
	assert.True(t, found, "other types untouched")
}

func TestStatsCountOperations(t *testing.T) {
	ctx := context.Background()
	c := newTestController(t, testConfig())

	const successes, failures = 5, 3
	for i := 0; i < successes; i++ {
		require.NoError(t, c.Store(ctx, "cache", "k", "v", 0))
	}
	for i := 0; i < failures; i++ {
		require.Error(t, c.Store(ctx, "episodic", "k", "v", 0))
	}

	stats := c.Stats()
	assert.Equal(t, uint64(successes+failures), stats.TotalOperations)
	assert.Equal(t, uint64(failures), stats.Errors)
	assert.Equal(t, uint64(successes), stats.FallbackHits)
	assert.Equal(t, "fallback", stats.BackendName)
	assert.Equal(t, successes+failures, stats.LatencySamples)
}

func TestStatsCountMaintenanceOps(t *testing.T) {
	ctx := context.Background()
	c := newTestController(t, testConfig())

	require.NoError(t, c.Store(ctx, "cache", "user:1", "v", 0))

	_, err := c.Search(ctx, "user", 0)
	require.NoError(t, err)
	_, err = c.Clear(ctx, "cache:user:*")
	require.NoError(t, err)
	_, err = c.ClearByType(ctx, "cache")
	require.NoError(t, err)

	// Search, Clear and ClearByType are observed like every other
	// operation: one store plus the three maintenance calls.
	stats := c.Stats()
	assert.Equal(t, uint64(4), stats.TotalOperations)
	assert.Equal(t, uint64(0), stats.Errors)
	assert.Equal(t, 4, stats.LatencySamples)
}

func TestDeleteReportsExistence(t *testing.T) {
	ctx := context.Background()
	c := newTestController(t, testConfig())

	require.NoError(t, c.Store(ctx, "cache", "k", "v", 0))

	existed, err := c.Delete(ctx, "cache", "k")
	require.NoError(t, err)
	assert.True(t, existed)

	existed, err = c.Delete(ctx, "cache", "k")
	require.NoError(t, err)
	assert.False(t, existed)
}

func TestInvalidConfigRejected(t *testing.T) {
	cfg := testConfig()
	cfg.Pressure.WarningPercent = 0

	_, err := New(context.Background(), cfg, logger.Discard(), nil)
	assert.Error(t, err)
}

func TestShutdownIdempotentScheduler(t *testing.T) {
	c, err := New(context.Background(), testConfig(), logger.Discard(), nil)
	require.NoError(t, err)

	require.NoError(t, c.Shutdown())
	// A second shutdown must not panic or hang.
	_ = c.Shutdown()
}
