// Package namespace multiplexes the logical memory types onto one
// key-value store. Each type owns a key prefix and a default TTL, so two
// types can use the same bare key without collision.
package namespace

import (
	"errors"
	"fmt"
	"time"
)

// ErrUnknownMemoryType is returned for memory type names outside the closed set.
var ErrUnknownMemoryType = errors.New("unknown memory type")

// ErrUnknownTier is returned for BCM tier names outside the closed set.
var ErrUnknownTier = errors.New("unknown bcm tier")

// MemoryType is a logical memory namespace.
type MemoryType int

const (
	Vector MemoryType = iota
	Working
	Cache
	BCM
)

// All returns every memory type in declaration order.
func All() []MemoryType {
	return []MemoryType{Vector, Working, Cache, BCM}
}

// ParseMemoryType maps a type name to its MemoryType.
func ParseMemoryType(s string) (MemoryType, error) {
	switch s {
	case "vector":
		return Vector, nil
	case "working":
		return Working, nil
	case "cache":
		return Cache, nil
	case "bcm":
		return BCM, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownMemoryType, s)
	}
}

// String returns the type name.
func (t MemoryType) String() string {
	switch t {
	case Vector:
		return "vector"
	case Working:
		return "working"
	case Cache:
		return "cache"
	case BCM:
		return "bcm"
	default:
		return fmt.Sprintf("memorytype(%d)", int(t))
	}
}

// Prefix returns the key prefix for the type.
func (t MemoryType) Prefix() string {
	return t.String() + ":"
}

// Conservative reports the cleanup aggressiveness class. Vector and BCM
// entries are expensive to recompute and are purged conservatively; Cache
// and Working entries are cheap and purged liberally.
func (t MemoryType) Conservative() bool {
	return t == Vector || t == BCM
}

// Tier is a BCM expiry tier. A workspace holds at most one live entry per
// tier; writes overwrite.
type Tier int

const (
	Tier0 Tier = iota // hot, 1h
	Tier1             // warm, 24h
	Tier2             // cold, 7d
)

// Tiers returns every BCM tier in declaration order.
func Tiers() []Tier {
	return []Tier{Tier0, Tier1, Tier2}
}

// ParseTier maps a tier name to its Tier.
func ParseTier(s string) (Tier, error) {
	switch s {
	case "tier0":
		return Tier0, nil
	case "tier1":
		return Tier1, nil
	case "tier2":
		return Tier2, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownTier, s)
	}
}

// String returns the tier name.
func (t Tier) String() string {
	switch t {
	case Tier0:
		return "tier0"
	case Tier1:
		return "tier1"
	case Tier2:
		return "tier2"
	default:
		return fmt.Sprintf("tier(%d)", int(t))
	}
}

// TTL returns the tier's expiry.
func (t Tier) TTL() time.Duration {
	switch t {
	case Tier0:
		return time.Hour
	case Tier1:
		return 24 * time.Hour
	case Tier2:
		return 7 * 24 * time.Hour
	default:
		return time.Hour
	}
}

// BCMKey builds the bare key for a workspace/tier pair. The BCM prefix is
// applied by the manager like any other namespace.
func BCMKey(workspaceID string, tier Tier) string {
	return workspaceID + ":" + tier.String()
}
