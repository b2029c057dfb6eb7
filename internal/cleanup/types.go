// Package cleanup implements the idempotent maintenance operations and the
// pressure-escalating background loop that invokes them.
package cleanup

import (
	"errors"
	"fmt"
	"time"

	"github.com/aatumaykin/memtier/internal/pressure"
)

// ErrUnknownKind is returned for manual cleanup kinds outside the known set.
var ErrUnknownKind = errors.New("unknown cleanup kind")

// Kind identifies one cleanup operation.
type Kind int

const (
	KindCachePurge Kind = iota
	KindWorkingPurge
	KindVectorPurge
	KindBCMPurge
	KindForcedGC
	KindEmergencyPurge
	KindFallbackSweep
)

// String returns the operation name used in results, logs and metrics.
func (k Kind) String() string {
	switch k {
	case KindCachePurge:
		return "cache_purge"
	case KindWorkingPurge:
		return "working_purge"
	case KindVectorPurge:
		return "vector_purge"
	case KindBCMPurge:
		return "bcm_purge"
	case KindForcedGC:
		return "forced_gc"
	case KindEmergencyPurge:
		return "emergency_purge"
	case KindFallbackSweep:
		return "fallback_sweep"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Result is the structured outcome of one cleanup operation. Operations
// never fail past their own boundary; internal errors land in Error with
// Success false.
type Result struct {
	Operation          string    `json:"operation"`
	ItemsCleaned       int       `json:"items_cleaned"`
	BytesFreedEstimate float64   `json:"bytes_freed_estimate"`
	DurationMs         float64   `json:"duration_ms"`
	Success            bool      `json:"success"`
	Error              string    `json:"error,omitempty"`
	StartedAt          time.Time `json:"started_at"`
}

// OperationsFor returns the operations the scheduler runs at a pressure
// level. Higher levels extend lower ones, never replace them.
func OperationsFor(level pressure.Level) []Kind {
	var ops []Kind
	if level >= pressure.Warning {
		ops = append(ops, KindCachePurge, KindWorkingPurge)
	}
	if level >= pressure.Critical {
		ops = append(ops, KindVectorPurge, KindForcedGC, KindBCMPurge)
	}
	if level >= pressure.Emergency {
		ops = append(ops, KindEmergencyPurge)
	}
	return ops
}
