// Package metrics tracks operation counters, rolling latency samples and
// cleanup aggregates for the memory controller. Counters are process
// lifetime; they reset only on restart.
package metrics

import (
	"sync"
	"sync/atomic"
	"time"
)

// DefaultLatencyWindow is the size of the rolling latency sample buffer.
const DefaultLatencyWindow = 1000

// Collector accumulates controller metrics. Counter updates are atomic;
// the latency window has its own mutex. Safe for concurrent use from
// caller goroutines and the cleanup scheduler.
type Collector struct {
	totalOperations atomic.Uint64
	backendHits     atomic.Uint64
	fallbackHits    atomic.Uint64
	errors          atomic.Uint64

	mu        sync.Mutex
	latencies []time.Duration
	next      int
	filled    int

	cleanupMu     sync.Mutex
	totalCleanups uint64
	itemsCleaned  uint64
	bytesFreed    float64
	lastCleanup   time.Time

	prom *PrometheusMetrics // optional export surface
}

// NewCollector creates a collector with a rolling latency window of the
// given size (DefaultLatencyWindow when non-positive). prom may be nil.
func NewCollector(window int, prom *PrometheusMetrics) *Collector {
	if window <= 0 {
		window = DefaultLatencyWindow
	}
	return &Collector{
		latencies: make([]time.Duration, window),
		prom:      prom,
	}
}

// RecordOperation records one store/retrieve/delete operation: which store
// served it, how long it took, and whether it failed.
func (c *Collector) RecordOperation(storeName string, latency time.Duration, err error) {
	c.totalOperations.Add(1)

	if err != nil {
		c.errors.Add(1)
	} else if storeName == "fallback" {
		c.fallbackHits.Add(1)
	} else {
		c.backendHits.Add(1)
	}

	c.mu.Lock()
	c.latencies[c.next] = latency
	c.next = (c.next + 1) % len(c.latencies)
	if c.filled < len(c.latencies) {
		c.filled++
	}
	c.mu.Unlock()

	if c.prom != nil {
		c.prom.RecordOperation(storeName, latency, err)
	}
}

// RecordCleanup folds one cleanup operation result into the aggregates.
func (c *Collector) RecordCleanup(operation string, items int, bytesFreed float64, duration time.Duration, success bool) {
	c.cleanupMu.Lock()
	c.totalCleanups++
	c.itemsCleaned += uint64(items)
	c.bytesFreed += bytesFreed
	c.lastCleanup = time.Now().UTC()
	c.cleanupMu.Unlock()

	if c.prom != nil {
		c.prom.RecordCleanup(operation, items, duration, success)
	}
}

// SetPressureLevel exports the current pressure level.
func (c *Collector) SetPressureLevel(level int) {
	if c.prom != nil {
		c.prom.SetPressureLevel(level)
	}
}

// LatencyStats returns rolling average, minimum and maximum over the
// window, plus the number of samples held.
func (c *Collector) LatencyStats() (avg, min, max time.Duration, samples int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.filled == 0 {
		return 0, 0, 0, 0
	}

	var total time.Duration
	min = c.latencies[0]
	for i := 0; i < c.filled; i++ {
		d := c.latencies[i]
		total += d
		if d < min {
			min = d
		}
		if d > max {
			max = d
		}
	}
	return total / time.Duration(c.filled), min, max, c.filled
}

// ErrorRate returns the error percentage over all operations so far.
func (c *Collector) ErrorRate() float64 {
	total := c.totalOperations.Load()
	if total == 0 {
		return 0
	}
	return float64(c.errors.Load()) / float64(total) * 100
}

// Stats is a point-in-time snapshot of every metric.
type Stats struct {
	TotalOperations uint64 `json:"total_operations"`
	BackendHits     uint64 `json:"backend_hits"`
	FallbackHits    uint64 `json:"fallback_hits"`
	Errors          uint64 `json:"errors"`

	BackendHitRatePercent  float64 `json:"backend_hit_rate_percent"`
	FallbackHitRatePercent float64 `json:"fallback_hit_rate_percent"`
	ErrorRatePercent       float64 `json:"error_rate_percent"`

	AvgLatencyMs   float64 `json:"avg_latency_ms"`
	MinLatencyMs   float64 `json:"min_latency_ms"`
	MaxLatencyMs   float64 `json:"max_latency_ms"`
	LatencySamples int     `json:"latency_samples"`

	TotalCleanups      uint64    `json:"total_cleanups"`
	ItemsCleaned       uint64    `json:"items_cleaned"`
	BytesFreedEstimate float64   `json:"bytes_freed_estimate"`
	LastCleanup        time.Time `json:"last_cleanup"`

	BackendName string `json:"backend_name"`
}

// Snapshot assembles a Stats from the current counters.
func (c *Collector) Snapshot() Stats {
	total := c.totalOperations.Load()
	backendHits := c.backendHits.Load()
	fallbackHits := c.fallbackHits.Load()
	errs := c.errors.Load()

	s := Stats{
		TotalOperations: total,
		BackendHits:     backendHits,
		FallbackHits:    fallbackHits,
		Errors:          errs,
	}

	if total > 0 {
		s.BackendHitRatePercent = float64(backendHits) / float64(total) * 100
		s.FallbackHitRatePercent = float64(fallbackHits) / float64(total) * 100
		s.ErrorRatePercent = float64(errs) / float64(total) * 100
	}

	avg, min, max, samples := c.LatencyStats()
	s.AvgLatencyMs = float64(avg) / float64(time.Millisecond)
	s.MinLatencyMs = float64(min) / float64(time.Millisecond)
	s.MaxLatencyMs = float64(max) / float64(time.Millisecond)
	s.LatencySamples = samples

	c.cleanupMu.Lock()
	s.TotalCleanups = c.totalCleanups
	s.ItemsCleaned = c.itemsCleaned
	s.BytesFreedEstimate = c.bytesFreed
	s.LastCleanup = c.lastCleanup
	c.cleanupMu.Unlock()

	return s
}
