package cleanup

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/aatumaykin/memtier/internal/pressure"
)

func TestEscalationMonotonicity(t *testing.T) {
	levels := []pressure.Level{
		pressure.Maintenance,
		pressure.Warning,
		pressure.Critical,
		pressure.Emergency,
	}

	// Each level's operation set must be a superset of every lower level's.
	for i := 1; i < len(levels); i++ {
		lower := OperationsFor(levels[i-1])
		higher := OperationsFor(levels[i])

		higherSet := make(map[Kind]bool, len(higher))
		for _, k := range higher {
			higherSet[k] = true
		}
		for _, k := range lower {
			assert.True(t, higherSet[k],
				"operation %s of level %s missing at level %s", k, levels[i-1], levels[i])
		}
		assert.Greater(t, len(higher), len(lower))
	}
}

func TestOperationsForLevels(t *testing.T) {
	assert.Empty(t, OperationsFor(pressure.Maintenance))
	assert.Equal(t, []Kind{KindCachePurge, KindWorkingPurge}, OperationsFor(pressure.Warning))
	assert.Contains(t, OperationsFor(pressure.Critical), KindVectorPurge)
	assert.Contains(t, OperationsFor(pressure.Critical), KindForcedGC)
	assert.Contains(t, OperationsFor(pressure.Critical), KindBCMPurge)
	assert.Contains(t, OperationsFor(pressure.Emergency), KindEmergencyPurge)
	assert.NotContains(t, OperationsFor(pressure.Critical), KindEmergencyPurge)
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "cache_purge", KindCachePurge.String())
	assert.Equal(t, "working_purge", KindWorkingPurge.String())
	assert.Equal(t, "vector_purge", KindVectorPurge.String())
	assert.Equal(t, "bcm_purge", KindBCMPurge.String())
	assert.Equal(t, "forced_gc", KindForcedGC.String())
	assert.Equal(t, "emergency_purge", KindEmergencyPurge.String())
	assert.Equal(t, "fallback_sweep", KindFallbackSweep.String())
}
