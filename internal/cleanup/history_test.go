package cleanup

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHistoryAppendAndRecent(t *testing.T) {
	h := NewHistory(3)

	for i := 1; i <= 3; i++ {
		h.Append(Result{Operation: fmt.Sprintf("op-%d", i)})
	}

	recent := h.Recent(0)
	assert.Len(t, recent, 3)
	assert.Equal(t, "op-3", recent[0].Operation, "newest first")
	assert.Equal(t, "op-1", recent[2].Operation)
}

func TestHistoryOverwritesOldest(t *testing.T) {
	h := NewHistory(3)

	for i := 1; i <= 5; i++ {
		h.Append(Result{Operation: fmt.Sprintf("op-%d", i)})
	}

	assert.Equal(t, 3, h.Len())
	recent := h.Recent(0)
	assert.Equal(t, "op-5", recent[0].Operation)
	assert.Equal(t, "op-3", recent[2].Operation, "op-1 and op-2 rolled out")
}

func TestHistoryLimit(t *testing.T) {
	h := NewHistory(10)

	for i := 1; i <= 6; i++ {
		h.Append(Result{Operation: fmt.Sprintf("op-%d", i)})
	}

	recent := h.Recent(2)
	assert.Len(t, recent, 2)
	assert.Equal(t, "op-6", recent[0].Operation)
	assert.Equal(t, "op-5", recent[1].Operation)

	assert.Len(t, h.Recent(100), 6, "limit beyond held results is clamped")
}

func TestHistoryEmpty(t *testing.T) {
	h := NewHistory(5)
	assert.Empty(t, h.Recent(0))
	assert.Zero(t, h.Len())
}

func TestHistoryDefaultSize(t *testing.T) {
	h := NewHistory(0)
	h.Append(Result{Operation: "op"})
	assert.Equal(t, 1, h.Len())
}
