// Package entry defines the envelope wrapped around every stored value.
// The envelope carries the creation timestamp, the declared TTL and the
// owning memory namespace, so staleness is always decided from the
// envelope itself rather than from backend TTL state or key naming.
package entry

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// SchemaVersion is the current envelope schema. Decode rejects payloads
// written with a newer schema.
const SchemaVersion = 1

// ErrNotSerializable is returned when a caller value cannot be encoded.
var ErrNotSerializable = errors.New("value is not serializable")

// ErrUnsupportedSchema is returned when a payload carries an unknown schema version.
var ErrUnsupportedSchema = errors.New("unsupported envelope schema version")

// Entry is the immutable envelope stored in the backend. Updates are full
// overwrites; CreatedAt is set once at write time and never mutated.
type Entry struct {
	Version    int             `json:"v"`
	Value      json.RawMessage `json:"value"`
	CreatedAt  time.Time       `json:"created_at"`
	TTLSeconds int64           `json:"ttl_seconds"`
	MemoryType string          `json:"memory_type"`
}

// Encode wraps value in an envelope and serializes it.
func Encode(value any, memoryType string, ttl time.Duration) ([]byte, error) {
	raw, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotSerializable, err)
	}

	e := Entry{
		Version:    SchemaVersion,
		Value:      raw,
		CreatedAt:  time.Now().UTC(),
		TTLSeconds: int64(ttl / time.Second),
		MemoryType: memoryType,
	}

	payload, err := json.Marshal(&e)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotSerializable, err)
	}
	return payload, nil
}

// Decode parses an envelope payload.
func Decode(payload []byte) (*Entry, error) {
	var e Entry
	if err := json.Unmarshal(payload, &e); err != nil {
		return nil, fmt.Errorf("failed to decode entry: %w", err)
	}
	if e.Version > SchemaVersion {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedSchema, e.Version)
	}
	return &e, nil
}

// DecodeValue parses an envelope and unmarshals its value into out.
func DecodeValue(payload []byte, out any) (*Entry, error) {
	e, err := Decode(payload)
	if err != nil {
		return nil, err
	}
	if out != nil {
		if err := json.Unmarshal(e.Value, out); err != nil {
			return nil, fmt.Errorf("failed to decode entry value: %w", err)
		}
	}
	return e, nil
}

// Age returns how long ago the entry was created.
func (e *Entry) Age(now time.Time) time.Duration {
	return now.Sub(e.CreatedAt)
}

// Expired reports whether the entry's declared TTL has elapsed.
// Entries without a TTL never expire by TTL (age-based purges still apply).
func (e *Entry) Expired(now time.Time) bool {
	if e.TTLSeconds <= 0 {
		return false
	}
	return e.Age(now) > time.Duration(e.TTLSeconds)*time.Second
}
