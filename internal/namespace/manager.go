package namespace

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aatumaykin/memtier/internal/backend"
	"github.com/aatumaykin/memtier/internal/config"
	"github.com/aatumaykin/memtier/internal/entry"
	"github.com/aatumaykin/memtier/internal/logger"
)

// Manager routes reads and writes through the entry codec to the backing
// store, applying the namespace prefix and default TTL of each memory type.
type Manager struct {
	store    backend.Store
	defaults map[MemoryType]time.Duration
	log      *logger.Logger
}

// NewManager builds a Manager over store with per-type default TTLs from cfg.
func NewManager(store backend.Store, cfg config.MemoryConfig, log *logger.Logger) *Manager {
	return &Manager{
		store: store,
		defaults: map[MemoryType]time.Duration{
			Vector:  time.Duration(cfg.VectorTTLSeconds) * time.Second,
			Working: time.Duration(cfg.WorkingTTLSeconds) * time.Second,
			Cache:   time.Duration(cfg.CacheTTLSeconds) * time.Second,
			BCM:     Tier0.TTL(),
		},
		log: log,
	}
}

// Key returns the full backend key for a type/bare-key pair.
func (m *Manager) Key(t MemoryType, key string) string {
	return t.Prefix() + key
}

// DefaultTTL returns the type's default time-to-live.
func (m *Manager) DefaultTTL(t MemoryType) time.Duration {
	return m.defaults[t]
}

// Store encodes value into an entry envelope and writes it under the
// type's prefix. A non-positive ttl applies the type's default.
func (m *Manager) Store(ctx context.Context, t MemoryType, key string, value any, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = m.defaults[t]
	}

	payload, err := entry.Encode(value, t.String(), ttl)
	if err != nil {
		return err
	}
	return m.store.Set(ctx, m.Key(t, key), payload, ttl)
}

// Retrieve reads the entry under key and unmarshals its value into out.
// Returns false when the key is absent or the envelope's TTL has lapsed
// (the fallback store has no passive expiry, so staleness is checked here).
func (m *Manager) Retrieve(ctx context.Context, t MemoryType, key string, out any) (bool, error) {
	e, ok, err := m.RetrieveEntry(ctx, t, key)
	if err != nil || !ok {
		return false, err
	}
	if out != nil {
		if err := json.Unmarshal(e.Value, out); err != nil {
			return false, fmt.Errorf("failed to decode entry value: %w", err)
		}
	}
	return true, nil
}

// RetrieveEntry reads the raw entry envelope under key.
func (m *Manager) RetrieveEntry(ctx context.Context, t MemoryType, key string) (*entry.Entry, bool, error) {
	fullKey := m.Key(t, key)

	payload, ok, err := m.store.Get(ctx, fullKey)
	if err != nil || !ok {
		return nil, false, err
	}

	e, err := entry.Decode(payload)
	if err != nil {
		return nil, false, err
	}

	if e.Expired(time.Now().UTC()) {
		// Stale entry surfaced by a store without passive expiry. Treat as
		// absent; removal is best effort, the cleanup engine owns the sweep.
		if _, delErr := m.store.Delete(ctx, fullKey); delErr != nil {
			m.log.Debug("failed to drop stale entry on read",
				logger.Field{Key: "key", Value: fullKey},
				logger.Field{Key: "error", Value: delErr})
		}
		return nil, false, nil
	}
	return e, true, nil
}

// Delete removes the entry under key. Returns whether it existed.
func (m *Manager) Delete(ctx context.Context, t MemoryType, key string) (bool, error) {
	n, err := m.store.Delete(ctx, m.Key(t, key))
	return n > 0, err
}

// Keys enumerates all full backend keys of the type.
func (m *Manager) Keys(ctx context.Context, t MemoryType) ([]string, error) {
	return m.store.Keys(ctx, t.Prefix()+"*")
}

// ClearByType removes every entry of the type and returns how many were removed.
func (m *Manager) ClearByType(ctx context.Context, t MemoryType) (int, error) {
	keys, err := m.Keys(ctx, t)
	if err != nil {
		return 0, err
	}
	if len(keys) == 0 {
		return 0, nil
	}
	return m.store.Delete(ctx, keys...)
}

// Backend exposes the underlying store for collaborators that enumerate
// and delete keys directly (cleanup engine, health checks).
func (m *Manager) Backend() backend.Store {
	return m.store
}
