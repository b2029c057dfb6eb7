package cleanup

import "sync"

// History keeps the most recent cleanup results in a fixed ring buffer.
type History struct {
	mu      sync.RWMutex
	results []Result
	next    int
	filled  int
}

// NewHistory creates a ring buffer holding size results.
func NewHistory(size int) *History {
	if size <= 0 {
		size = 100
	}
	return &History{results: make([]Result, size)}
}

// Append records a result, overwriting the oldest when full.
func (h *History) Append(r Result) {
	h.mu.Lock()
	h.results[h.next] = r
	h.next = (h.next + 1) % len(h.results)
	if h.filled < len(h.results) {
		h.filled++
	}
	h.mu.Unlock()
}

// Recent returns up to limit results, newest first. A non-positive limit
// returns everything held.
func (h *History) Recent(limit int) []Result {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if limit <= 0 || limit > h.filled {
		limit = h.filled
	}

	out := make([]Result, 0, limit)
	for i := 0; i < limit; i++ {
		idx := (h.next - 1 - i + len(h.results)*2) % len(h.results)
		out = append(out, h.results[idx])
	}
	return out
}

// Len returns how many results are held.
func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.filled
}
