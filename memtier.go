// Package memtier is a tiered memory cache with a pressure-adaptive
// cleanup controller. Logical memory namespaces (vector, working, cache,
// bcm) are multiplexed onto one key-value backend: redis when reachable,
// an in-process fallback store otherwise. A background scheduler samples
// host memory pressure and escalates cleanup aggressiveness with it.
//
// The controller is constructed explicitly and passed to consumers; there
// is no package-level singleton.
package memtier

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/aatumaykin/memtier/internal/backend"
	"github.com/aatumaykin/memtier/internal/cleanup"
	"github.com/aatumaykin/memtier/internal/config"
	"github.com/aatumaykin/memtier/internal/logger"
	"github.com/aatumaykin/memtier/internal/metrics"
	"github.com/aatumaykin/memtier/internal/namespace"
	"github.com/aatumaykin/memtier/internal/pressure"
	"github.com/aatumaykin/memtier/internal/version"
)

// Controller is the memory subsystem facade. Construct with New; stop
// with Shutdown.
type Controller struct {
	cfg     *config.Config
	log     *logger.Logger
	store   backend.Store
	ns      *namespace.Manager
	monitor *pressure.Monitor
	metrics *metrics.Collector
	engine  *cleanup.Engine
	sched   *cleanup.Scheduler

	// fallbackProbe serves the health check's synthetic fallback test when
	// redis is the active store.
	fallbackProbe *backend.FallbackStore
}

// New builds the controller, connects the backend (falling back to the
// in-process store when redis is unreachable) and starts the cleanup
// scheduler. prom may be nil to skip prometheus export.
func New(ctx context.Context, cfg *config.Config, log *logger.Logger, prom *metrics.PrometheusMetrics) (*Controller, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	if log == nil {
		log = logger.Discard()
	}

	store := backend.Connect(ctx, cfg.Redis, log)
	collector := metrics.NewCollector(metrics.DefaultLatencyWindow, prom)
	ns := namespace.NewManager(store, cfg.Memory, log)
	monitor := pressure.NewMonitor(cfg.Pressure)
	engine := cleanup.NewEngine(ns, monitor, collector, cfg.Cleanup, log)

	sched := cleanup.NewScheduler(engine, monitor, collector,
		time.Duration(cfg.Cleanup.IntervalSeconds)*time.Second, cfg.Cleanup.Cron, log)

	c := &Controller{
		cfg:           cfg,
		log:           log,
		store:         store,
		ns:            ns,
		monitor:       monitor,
		metrics:       collector,
		engine:        engine,
		sched:         sched,
		fallbackProbe: backend.NewFallbackStore(),
	}

	if err := sched.Start(); err != nil {
		_ = store.Close()
		return nil, err
	}

	log.Info("memory controller initialized",
		logger.Field{Key: "version", Value: version.Get().Version},
		logger.Field{Key: "backend", Value: store.Name()},
		logger.Field{Key: "cleanup_interval_seconds", Value: cfg.Cleanup.IntervalSeconds})

	return c, nil
}

// Shutdown stops the cleanup scheduler and releases the backend.
func (c *Controller) Shutdown() error {
	c.sched.Stop()
	return c.store.Close()
}

// BackendName reports which store is active (redis or fallback).
func (c *Controller) BackendName() string {
	return c.store.Name()
}

// Store writes value into the given memory type under key. A non-positive
// ttlSeconds applies the type's default TTL.
func (c *Controller) Store(ctx context.Context, memType, key string, value any, ttlSeconds int) error {
	start := time.Now()
	err := c.doStore(ctx, memType, key, value, ttlSeconds)
	c.metrics.RecordOperation(c.store.Name(), time.Since(start), err)
	return err
}

func (c *Controller) doStore(ctx context.Context, memType, key string, value any, ttlSeconds int) error {
	t, err := namespace.ParseMemoryType(memType)
	if err != nil {
		return err
	}
	return c.ns.Store(ctx, t, key, value, time.Duration(ttlSeconds)*time.Second)
}

// Retrieve reads the value stored under key into out. Returns false when
// the entry is absent or expired; absence is not an error.
func (c *Controller) Retrieve(ctx context.Context, memType, key string, out any) (bool, error) {
	start := time.Now()
	found, err := c.doRetrieve(ctx, memType, key, out)
	c.metrics.RecordOperation(c.store.Name(), time.Since(start), err)
	return found, err
}

func (c *Controller) doRetrieve(ctx context.Context, memType, key string, out any) (bool, error) {
	t, err := namespace.ParseMemoryType(memType)
	if err != nil {
		return false, err
	}
	return c.ns.Retrieve(ctx, t, key, out)
}

// Delete removes the entry under key. Returns whether it existed.
func (c *Controller) Delete(ctx context.Context, memType, key string) (bool, error) {
	start := time.Now()
	existed, err := c.doDelete(ctx, memType, key)
	c.metrics.RecordOperation(c.store.Name(), time.Since(start), err)
	return existed, err
}

func (c *Controller) doDelete(ctx context.Context, memType, key string) (bool, error) {
	t, err := namespace.ParseMemoryType(memType)
	if err != nil {
		return false, err
	}
	return c.ns.Delete(ctx, t, key)
}

// ClearByType removes every entry of the memory type. Returns how many
// entries were removed.
func (c *Controller) ClearByType(ctx context.Context, memType string) (int, error) {
	start := time.Now()
	n, err := c.doClearByType(ctx, memType)
	c.metrics.RecordOperation(c.store.Name(), time.Since(start), err)
	return n, err
}

func (c *Controller) doClearByType(ctx context.Context, memType string) (int, error) {
	t, err := namespace.ParseMemoryType(memType)
	if err != nil {
		return 0, err
	}
	return c.ns.ClearByType(ctx, t)
}

// Clear removes every key matching a glob pattern, across namespaces.
func (c *Controller) Clear(ctx context.Context, pattern string) (int, error) {
	start := time.Now()
	n, err := c.doClear(ctx, pattern)
	c.metrics.RecordOperation(c.store.Name(), time.Since(start), err)
	return n, err
}

func (c *Controller) doClear(ctx context.Context, pattern string) (int, error) {
	keys, err := c.store.Keys(ctx, pattern)
	if err != nil {
		return 0, err
	}
	if len(keys) == 0 {
		return 0, nil
	}
	return c.store.Delete(ctx, keys...)
}

// SearchResult is one hit from a key-substring search.
type SearchResult struct {
	Key        string    `json:"key"`
	MemoryType string    `json:"memory_type"`
	CreatedAt  time.Time `json:"created_at"`
	Value      any       `json:"value"`
}

// Search returns entries whose full key contains the query substring.
// This is a key match, not a semantic search.
func (c *Controller) Search(ctx context.Context, query string, limit int) ([]SearchResult, error) {
	start := time.Now()
	results, err := c.doSearch(ctx, query, limit)
	c.metrics.RecordOperation(c.store.Name(), time.Since(start), err)
	return results, err
}

func (c *Controller) doSearch(ctx context.Context, query string, limit int) ([]SearchResult, error) {
	keys, err := c.store.Keys(ctx, "*")
	if err != nil {
		return nil, err
	}

	var results []SearchResult
	for _, key := range keys {
		if limit > 0 && len(results) >= limit {
			break
		}
		if !strings.Contains(key, query) {
			continue
		}

		t, bareKey, ok := splitKey(key)
		if !ok {
			continue
		}
		e, found, err := c.ns.RetrieveEntry(ctx, t, bareKey)
		if err != nil || !found {
			continue
		}
		var value any
		if err := json.Unmarshal(e.Value, &value); err != nil {
			continue
		}
		results = append(results, SearchResult{
			Key:        key,
			MemoryType: e.MemoryType,
			CreatedAt:  e.CreatedAt,
			Value:      value,
		})
	}
	return results, nil
}

// splitKey resolves a full backend key back to its memory type and bare key.
func splitKey(fullKey string) (namespace.MemoryType, string, bool) {
	for _, t := range namespace.All() {
		if strings.HasPrefix(fullKey, t.Prefix()) {
			return t, strings.TrimPrefix(fullKey, t.Prefix()), true
		}
	}
	return 0, "", false
}

// StoreBCM caches a workspace's business context manifest at the given
// tier. Writing a tier overwrites the previous manifest for that tier.
func (c *Controller) StoreBCM(ctx context.Context, workspaceID string, manifest any, tier string) error {
	start := time.Now()
	err := c.doStoreBCM(ctx, workspaceID, manifest, tier)
	c.metrics.RecordOperation(c.store.Name(), time.Since(start), err)
	return err
}

func (c *Controller) doStoreBCM(ctx context.Context, workspaceID string, manifest any, tier string) error {
	tr, err := namespace.ParseTier(tier)
	if err != nil {
		return err
	}
	return c.ns.Store(ctx, namespace.BCM, namespace.BCMKey(workspaceID, tr), manifest, tr.TTL())
}

// RetrieveBCM reads a workspace's manifest at the given tier into out.
func (c *Controller) RetrieveBCM(ctx context.Context, workspaceID, tier string, out any) (bool, error) {
	start := time.Now()
	found, err := c.doRetrieveBCM(ctx, workspaceID, tier, out)
	c.metrics.RecordOperation(c.store.Name(), time.Since(start), err)
	return found, err
}

func (c *Controller) doRetrieveBCM(ctx context.Context, workspaceID, tier string, out any) (bool, error) {
	tr, err := namespace.ParseTier(tier)
	if err != nil {
		return false, err
	}
	return c.ns.Retrieve(ctx, namespace.BCM, namespace.BCMKey(workspaceID, tr), out)
}

// ClearBCM removes every tier of a workspace's manifest.
func (c *Controller) ClearBCM(ctx context.Context, workspaceID string) (int, error) {
	keys, err := c.store.Keys(ctx, namespace.BCM.Prefix()+workspaceID+":*")
	if err != nil {
		return 0, err
	}
	if len(keys) == 0 {
		return 0, nil
	}
	return c.store.Delete(ctx, keys...)
}

// Stats returns the metrics snapshot.
func (c *Controller) Stats() metrics.Stats {
	s := c.metrics.Snapshot()
	s.BackendName = c.store.Name()
	return s
}

// CleanupHistory returns up to limit recent cleanup results, newest first.
func (c *Controller) CleanupHistory(limit int) []cleanup.Result {
	return c.engine.History().Recent(limit)
}

// ManualCleanup runs a cleanup operation on demand.
// Kind is one of: cache, working, vector, gc, emergency, standard.
// Safe to call while the scheduler is running; operations are idempotent.
func (c *Controller) ManualCleanup(ctx context.Context, kind string) ([]cleanup.Result, error) {
	return c.engine.Manual(ctx, kind)
}
