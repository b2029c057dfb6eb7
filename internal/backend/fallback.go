package backend

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"
)

type fallbackItem struct {
	payload  []byte
	expireAt time.Time // zero = no expiry
}

// FallbackStore is the in-process substitute used when redis cannot be
// reached. It is a mutex-guarded map with lazy expiry: an expired item is
// removed when read, and PurgeExpired sweeps the rest, since there is no
// passive expiry behind it.
type FallbackStore struct {
	mu    sync.RWMutex
	items map[string]fallbackItem
}

// NewFallbackStore creates an empty in-process store.
func NewFallbackStore() *FallbackStore {
	return &FallbackStore{items: make(map[string]fallbackItem)}
}

// Set writes payload under key with the given ttl (zero = no expiry).
func (s *FallbackStore) Set(_ context.Context, key string, payload []byte, ttl time.Duration) error {
	vcopy := make([]byte, len(payload))
	copy(vcopy, payload)

	var expireAt time.Time
	if ttl > 0 {
		expireAt = time.Now().Add(ttl)
	}

	s.mu.Lock()
	s.items[key] = fallbackItem{payload: vcopy, expireAt: expireAt}
	s.mu.Unlock()
	return nil
}

// Get reads the payload under key, removing it when its expiry has lapsed.
func (s *FallbackStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	s.mu.RLock()
	item, ok := s.items[key]
	s.mu.RUnlock()
	if !ok {
		return nil, false, nil
	}

	if !item.expireAt.IsZero() && time.Now().After(item.expireAt) {
		s.mu.Lock()
		// Re-check under the write lock; another reader may have already
		// removed it or a writer may have replaced it.
		if cur, ok := s.items[key]; ok && !cur.expireAt.IsZero() && time.Now().After(cur.expireAt) {
			delete(s.items, key)
		}
		s.mu.Unlock()
		return nil, false, nil
	}

	out := make([]byte, len(item.payload))
	copy(out, item.payload)
	return out, true, nil
}

// Delete removes keys and returns how many existed.
func (s *FallbackStore) Delete(_ context.Context, keys ...string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	count := 0
	for _, key := range keys {
		if _, ok := s.items[key]; ok {
			delete(s.items, key)
			count++
		}
	}
	return count, nil
}

// Keys returns all live keys matching a glob pattern. Linear scan over the
// whole map, matching the remote store's SCAN cost model.
func (s *FallbackStore) Keys(_ context.Context, pattern string) ([]string, error) {
	re, err := compileGlob(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid key pattern %q: %w", pattern, err)
	}

	now := time.Now()

	s.mu.RLock()
	defer s.mu.RUnlock()

	var keys []string
	for key, item := range s.items {
		if !item.expireAt.IsZero() && now.After(item.expireAt) {
			continue
		}
		if re.MatchString(key) {
			keys = append(keys, key)
		}
	}
	return keys, nil
}

// compileGlob translates a redis MATCH style pattern into a regexp.
// '*' and '?' match any character at all; keys are opaque caller strings,
// so no byte gets path-separator treatment.
func compileGlob(pattern string) (*regexp.Regexp, error) {
	var b strings.Builder
	b.WriteByte('^')

	for i := 0; i < len(pattern); i++ {
		switch c := pattern[i]; c {
		case '*':
			b.WriteString(".*")
		case '?':
			b.WriteByte('.')
		case '\\':
			if i+1 == len(pattern) {
				return nil, fmt.Errorf("trailing escape")
			}
			i++
			b.WriteString(regexp.QuoteMeta(string(pattern[i])))
		case '[':
			end := strings.IndexByte(pattern[i+1:], ']')
			if end < 0 {
				return nil, fmt.Errorf("unterminated character class")
			}
			// Character class grammar ([abc], [a-c], [^a]) is shared with
			// regexp; pass it through as written.
			b.WriteString(pattern[i : i+end+2])
			i += end + 1
		default:
			b.WriteString(regexp.QuoteMeta(string(c)))
		}
	}

	b.WriteByte('$')
	return regexp.Compile(b.String())
}

// TTL returns the remaining time-to-live for key.
func (s *FallbackStore) TTL(_ context.Context, key string) (time.Duration, error) {
	s.mu.RLock()
	item, ok := s.items[key]
	s.mu.RUnlock()

	if !ok {
		return 0, ErrKeyNotFound
	}
	if item.expireAt.IsZero() {
		return TTLNone, nil
	}
	remain := time.Until(item.expireAt)
	if remain <= 0 {
		return 0, ErrKeyNotFound
	}
	return remain, nil
}

// PurgeExpired removes every item whose expiry has lapsed and returns the
// number removed. The cleanup engine calls this during standard passes.
func (s *FallbackStore) PurgeExpired() int {
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for key, item := range s.items {
		if !item.expireAt.IsZero() && now.After(item.expireAt) {
			delete(s.items, key)
			removed++
		}
	}
	return removed
}

// Len returns the number of items currently held, expired ones included.
func (s *FallbackStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// Ping always succeeds; the fallback lives in-process.
func (s *FallbackStore) Ping(context.Context) error {
	return nil
}

// Close is a no-op.
func (s *FallbackStore) Close() error {
	return nil
}

// Name identifies the implementation.
func (s *FallbackStore) Name() string {
	return NameFallback
}
