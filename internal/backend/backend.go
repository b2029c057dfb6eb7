// Package backend abstracts the key-value store underneath the memory
// controller. The remote redis store is preferred; when it cannot be
// reached at construction time the in-process fallback store is used for
// the remainder of the process lifetime.
package backend

import (
	"context"
	"errors"
	"time"

	"github.com/aatumaykin/memtier/internal/config"
	"github.com/aatumaykin/memtier/internal/logger"
	"github.com/aatumaykin/memtier/internal/retry"
)

// Store names reported by Name().
const (
	NameRedis    = "redis"
	NameFallback = "fallback"
)

// TTLNone is returned by TTL for keys that exist but carry no expiry.
const TTLNone = time.Duration(-1)

// ErrKeyNotFound is returned by TTL for keys that do not exist.
// Get reports absence through its boolean instead; absence is not an error
// on the read path.
var ErrKeyNotFound = errors.New("key not found")

// Store is the uniform contract over the remote store and the fallback.
type Store interface {
	// Set writes payload under key. A zero ttl stores without expiry.
	Set(ctx context.Context, key string, payload []byte, ttl time.Duration) error

	// Get reads the payload under key. The boolean is false when the key
	// is absent; absence is not an error.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Delete removes the given keys and returns how many existed.
	Delete(ctx context.Context, keys ...string) (int, error)

	// Keys returns all keys matching a glob pattern. Linear in the size of
	// the keyspace on both implementations.
	Keys(ctx context.Context, pattern string) ([]string, error)

	// TTL returns the remaining time-to-live for key, TTLNone when the key
	// has no expiry, or ErrKeyNotFound when it does not exist.
	TTL(ctx context.Context, key string) (time.Duration, error)

	// Ping probes the store.
	Ping(ctx context.Context) error

	// Close releases resources held by the store.
	Close() error

	// Name identifies the implementation (redis or fallback).
	Name() string
}

// Connect attempts to reach the remote redis store, retrying the initial
// ping with backoff, and returns it on success. On failure it logs once
// and returns the in-process fallback; there is no automatic re-promotion
// back to redis afterwards.
func Connect(ctx context.Context, cfg config.RedisConfig, log *logger.Logger) Store {
	rs := NewRedisStore(cfg)

	ping := func() error {
		pingCtx, cancel := context.WithTimeout(ctx, time.Duration(cfg.DialTimeoutSeconds)*time.Second)
		defer cancel()
		return rs.Ping(pingCtx)
	}

	if err := retry.Do(ctx, retry.Config{MaxAttempts: cfg.ConnectAttempts}, ping); err != nil {
		_ = rs.Close()
		log.Warn("redis unreachable, using in-process fallback store for process lifetime",
			logger.Field{Key: "addr", Value: cfg.Addr},
			logger.Field{Key: "attempts", Value: cfg.ConnectAttempts},
			logger.Field{Key: "error", Value: err})
		return NewFallbackStore()
	}

	log.Info("connected to redis backend", logger.Field{Key: "addr", Value: cfg.Addr})
	return rs
}
