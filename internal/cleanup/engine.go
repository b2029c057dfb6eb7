package cleanup

import (
	"context"
	"runtime"
	"runtime/debug"
	"time"

	"github.com/aatumaykin/memtier/internal/backend"
	"github.com/aatumaykin/memtier/internal/config"
	"github.com/aatumaykin/memtier/internal/entry"
	"github.com/aatumaykin/memtier/internal/logger"
	"github.com/aatumaykin/memtier/internal/metrics"
	"github.com/aatumaykin/memtier/internal/namespace"
	"github.com/aatumaykin/memtier/internal/pressure"
)

// Engine executes the cleanup operations. Every operation is idempotent
// and independently invokable; re-running one on an already-clean
// namespace removes nothing and succeeds.
type Engine struct {
	ns      *namespace.Manager
	monitor *pressure.Monitor
	metrics *metrics.Collector
	cfg     config.CleanupConfig
	history *History
	log     *logger.Logger
}

// NewEngine builds a cleanup engine over the namespace manager.
func NewEngine(ns *namespace.Manager, monitor *pressure.Monitor, collector *metrics.Collector, cfg config.CleanupConfig, log *logger.Logger) *Engine {
	return &Engine{
		ns:      ns,
		monitor: monitor,
		metrics: collector,
		cfg:     cfg,
		history: NewHistory(cfg.HistorySize),
		log:     log,
	}
}

// History returns the bounded result history.
func (e *Engine) History() *History {
	return e.history
}

// Run executes one operation and records its result in the history and
// the cleanup metrics. Errors never escape; they are captured in the result.
func (e *Engine) Run(ctx context.Context, kind Kind) Result {
	start := time.Now()

	var (
		items    int
		bytesEst float64
		err      error
	)

	switch kind {
	case KindCachePurge:
		items, bytesEst, err = e.cachePurge(ctx)
	case KindWorkingPurge:
		items, bytesEst, err = e.agePurge(ctx, namespace.Working, e.maxWorkingAge(), e.cfg.CacheBatchSize)
	case KindVectorPurge:
		items, bytesEst, err = e.agePurge(ctx, namespace.Vector, e.maxVectorAge(), e.cfg.VectorBatchSize)
	case KindBCMPurge:
		items, bytesEst, err = e.bcmPurge(ctx)
	case KindForcedGC:
		bytesEst = e.forcedGC(ctx)
	case KindEmergencyPurge:
		items, bytesEst, err = e.emergencyPurge(ctx)
	case KindFallbackSweep:
		items = e.fallbackSweep()
	}

	res := Result{
		Operation:          kind.String(),
		ItemsCleaned:       items,
		BytesFreedEstimate: bytesEst,
		DurationMs:         float64(time.Since(start)) / float64(time.Millisecond),
		Success:            err == nil,
		StartedAt:          start.UTC(),
	}
	if err != nil {
		res.Error = err.Error()
		e.log.Error("cleanup operation failed", err,
			logger.Field{Key: "operation", Value: kind.String()},
			logger.Field{Key: "items_cleaned", Value: items})
	} else if items > 0 {
		e.log.Info("cleanup operation completed",
			logger.Field{Key: "operation", Value: kind.String()},
			logger.Field{Key: "items_cleaned", Value: items},
			logger.Field{Key: "bytes_freed_estimate", Value: bytesEst},
			logger.Field{Key: "duration_ms", Value: res.DurationMs})
	}

	e.history.Append(res)
	e.metrics.RecordCleanup(kind.String(), items, bytesEst, time.Since(start), res.Success)

	return res
}

// RunForLevel executes the operation set for a pressure level, sequentially.
// A failed operation does not stop the remaining ones.
func (e *Engine) RunForLevel(ctx context.Context, level pressure.Level) []Result {
	ops := OperationsFor(level)
	results := make([]Result, 0, len(ops))
	for _, kind := range ops {
		results = append(results, e.Run(ctx, kind))
	}
	return results
}

// RunStandard executes the routine maintenance pass: cache and working
// purges, plus a sweep of the fallback store's expired items when the
// fallback is active.
func (e *Engine) RunStandard(ctx context.Context) []Result {
	results := []Result{
		e.Run(ctx, KindCachePurge),
		e.Run(ctx, KindWorkingPurge),
	}
	if _, ok := e.ns.Backend().(*backend.FallbackStore); ok {
		results = append(results, e.Run(ctx, KindFallbackSweep))
	}
	return results
}

// Manual executes a caller-triggered cleanup by kind name.
// Known kinds: cache, working, vector, gc, emergency, standard.
func (e *Engine) Manual(ctx context.Context, kind string) ([]Result, error) {
	switch kind {
	case "cache":
		return []Result{e.Run(ctx, KindCachePurge)}, nil
	case "working":
		return []Result{e.Run(ctx, KindWorkingPurge)}, nil
	case "vector":
		return []Result{e.Run(ctx, KindVectorPurge)}, nil
	case "gc":
		return []Result{e.Run(ctx, KindForcedGC)}, nil
	case "emergency":
		return []Result{e.Run(ctx, KindEmergencyPurge)}, nil
	case "standard":
		return e.RunStandard(ctx), nil
	default:
		return nil, ErrUnknownKind
	}
}

func (e *Engine) maxWorkingAge() time.Duration {
	return time.Duration(e.cfg.MaxWorkingAgeSeconds) * time.Second
}

func (e *Engine) maxVectorAge() time.Duration {
	return time.Duration(e.cfg.MaxVectorAgeSeconds) * time.Second
}

// cachePurge removes cache entries whose TTL has elapsed or was never set.
func (e *Engine) cachePurge(ctx context.Context) (int, float64, error) {
	now := time.Now().UTC()
	return e.purge(ctx, namespace.Cache, e.cfg.CacheBatchSize, func(ent *entry.Entry) bool {
		return ent.TTLSeconds <= 0 || ent.Expired(now)
	})
}

// agePurge removes entries of a type older than maxAge, judged from the
// envelope's creation timestamp, plus any whose own TTL has elapsed.
func (e *Engine) agePurge(ctx context.Context, t namespace.MemoryType, maxAge time.Duration, batchSize int) (int, float64, error) {
	now := time.Now().UTC()
	return e.purge(ctx, t, batchSize, func(ent *entry.Entry) bool {
		return ent.Age(now) > maxAge || ent.Expired(now)
	})
}

// bcmPurge removes BCM entries whose tier TTL has lapsed, or whose absolute
// age exceeds the hard ceiling regardless of tier. The ceiling is a safety
// net against TTL mis-configuration.
func (e *Engine) bcmPurge(ctx context.Context) (int, float64, error) {
	now := time.Now().UTC()
	ceiling := time.Duration(e.cfg.BCMMaxAgeDays) * 24 * time.Hour
	return e.purge(ctx, namespace.BCM, e.cfg.CacheBatchSize, func(ent *entry.Entry) bool {
		return ent.Expired(now) || ent.Age(now) > ceiling
	})
}

// emergencyPurge clears the entire cache namespace unconditionally and
// removes working entries past the emergency age threshold.
func (e *Engine) emergencyPurge(ctx context.Context) (int, float64, error) {
	items, bytesEst, err := e.purge(ctx, namespace.Cache, e.cfg.CacheBatchSize, func(*entry.Entry) bool {
		return true
	})
	if err != nil {
		return items, bytesEst, err
	}

	now := time.Now().UTC()
	emergencyAge := time.Duration(e.cfg.EmergencyWorkingAgeSeconds) * time.Second
	wItems, wBytes, err := e.purge(ctx, namespace.Working, e.cfg.CacheBatchSize, func(ent *entry.Entry) bool {
		return ent.Age(now) > emergencyAge
	})
	return items + wItems, bytesEst + wBytes, err
}

// forcedGC triggers the runtime's collector and returns the process RSS
// delta as a best-effort bytes-freed estimate. May report zero.
func (e *Engine) forcedGC(ctx context.Context) float64 {
	before, err := e.monitor.ProcessRSS(ctx)
	if err != nil {
		before = 0
	}

	runtime.GC()
	debug.FreeOSMemory()

	after, err := e.monitor.ProcessRSS(ctx)
	if err != nil || before == 0 || after >= before {
		return 0
	}
	return float64(before - after)
}

// fallbackSweep removes genuinely stale items from the in-process store,
// which has no passive expiry. A no-op when redis is active.
func (e *Engine) fallbackSweep() int {
	fs, ok := e.ns.Backend().(*backend.FallbackStore)
	if !ok {
		return 0
	}
	return fs.PurgeExpired()
}

// purge scans a namespace and deletes every entry the predicate selects,
// in bounded batches. Batches already flushed stay applied when the scan
// is abandoned mid-way (cancellation or a backend error); that only
// reduces the reported count.
func (e *Engine) purge(ctx context.Context, t namespace.MemoryType, batchSize int, remove func(*entry.Entry) bool) (int, float64, error) {
	store := e.ns.Backend()

	keys, err := e.ns.Keys(ctx, t)
	if err != nil {
		return 0, 0, err
	}

	items := 0
	var bytesEst float64
	doomed := make([]string, 0, batchSize)
	var pendingBytes float64

	flush := func() error {
		if len(doomed) == 0 {
			return nil
		}
		n, err := store.Delete(ctx, doomed...)
		items += n
		if err == nil {
			bytesEst += pendingBytes
		}
		doomed = doomed[:0]
		pendingBytes = 0
		return err
	}

	for _, key := range keys {
		if ctx.Err() != nil {
			return items, bytesEst, ctx.Err()
		}

		payload, ok, err := store.Get(ctx, key)
		if err != nil {
			return items, bytesEst, err
		}
		if !ok {
			continue // raced with another deleter; nothing to do
		}

		ent, err := entry.Decode(payload)
		if err != nil {
			e.log.Debug("skipping undecodable entry during purge",
				logger.Field{Key: "key", Value: key},
				logger.Field{Key: "error", Value: err})
			continue
		}

		if !remove(ent) {
			continue
		}

		doomed = append(doomed, key)
		pendingBytes += float64(len(payload))
		if len(doomed) >= batchSize {
			if err := flush(); err != nil {
				return items, bytesEst, err
			}
		}
	}

	if err := flush(); err != nil {
		return items, bytesEst, err
	}
	return items, bytesEst, nil
}
