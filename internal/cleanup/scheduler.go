package cleanup

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"github.com/aatumaykin/memtier/internal/logger"
	"github.com/aatumaykin/memtier/internal/metrics"
	"github.com/aatumaykin/memtier/internal/pressure"
)

// Scheduler owns the background cleanup loop: every interval it samples
// memory pressure and runs the operation set for the resulting level.
// An optional cron expression additionally schedules a standard
// maintenance pass at fixed times.
type Scheduler struct {
	engine   *Engine
	monitor  *pressure.Monitor
	metrics  *metrics.Collector
	interval time.Duration
	cronSpec string
	log      *logger.Logger

	cancel  context.CancelFunc
	cron    *cron.Cron
	started bool
	mu      sync.Mutex

	// passMu serializes cleanup passes so the ticker loop and the cron
	// schedule never overlap each other.
	passMu sync.Mutex
}

// NewScheduler builds a scheduler over the engine. cronSpec may be empty.
func NewScheduler(engine *Engine, monitor *pressure.Monitor, collector *metrics.Collector, interval time.Duration, cronSpec string, log *logger.Logger) *Scheduler {
	return &Scheduler{
		engine:   engine,
		monitor:  monitor,
		metrics:  collector,
		interval: interval,
		cronSpec: cronSpec,
		log:      log,
	}
}

// Start launches the background loop. Starting twice is a no-op.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	// The context is handed to this generation's goroutines rather than
	// stored: a later Stop/Start creates a new one, and a loop from a
	// previous generation must keep observing its own.
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.started = true

	if s.cronSpec != "" {
		c := cron.New(cron.WithSeconds())
		if _, err := c.AddFunc(s.cronSpec, func() { s.runStandardPass(ctx) }); err != nil {
			s.started = false
			s.cancel()
			return err
		}
		c.Start()
		s.cron = c
		s.log.Info("scheduled standard cleanup", logger.Field{Key: "cron", Value: s.cronSpec})
	}

	s.log.Info("cleanup scheduler started", logger.Field{Key: "interval", Value: s.interval})

	go s.run(ctx)
	return nil
}

// Stop halts the loop. Stopping twice is a no-op; Stop never hangs.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	s.cancel()
	if s.cron != nil {
		s.cron.Stop()
		s.cron = nil
	}
	s.started = false
}

func (s *Scheduler) run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info("cleanup scheduler stopped")
			return
		case <-ticker.C:
			s.runPass(ctx)
		}
	}
}

// runPass executes one pressure-driven cleanup pass.
func (s *Scheduler) runPass(ctx context.Context) {
	s.passMu.Lock()
	defer s.passMu.Unlock()

	if ctx.Err() != nil {
		return
	}

	runID := uuid.NewString()[:8]
	log := s.log.With(logger.Field{Key: "run_id", Value: runID})

	sample, err := s.monitor.Sample(ctx)
	if err != nil {
		log.Error("failed to sample memory pressure", err)
		return
	}

	level := s.monitor.Classify(sample.UsedPercent)
	s.metrics.SetPressureLevel(int(level))

	if level == pressure.Maintenance {
		log.Debug("memory pressure nominal, skipping cleanup",
			logger.Field{Key: "used_percent", Value: sample.UsedPercent})
		return
	}

	log.Info("running pressure cleanup pass",
		logger.Field{Key: "level", Value: level.String()},
		logger.Field{Key: "used_percent", Value: sample.UsedPercent},
		logger.Field{Key: "process_rss", Value: sample.ProcessRSS})

	results := s.engine.RunForLevel(ctx, level)

	totalItems := 0
	for _, r := range results {
		totalItems += r.ItemsCleaned
	}
	log.Info("pressure cleanup pass completed",
		logger.Field{Key: "level", Value: level.String()},
		logger.Field{Key: "operations", Value: len(results)},
		logger.Field{Key: "items_cleaned", Value: totalItems})
}

// runStandardPass executes the cron-scheduled maintenance pass.
func (s *Scheduler) runStandardPass(ctx context.Context) {
	s.passMu.Lock()
	defer s.passMu.Unlock()

	if ctx.Err() != nil {
		return
	}

	runID := uuid.NewString()[:8]
	s.log.Info("running scheduled standard cleanup", logger.Field{Key: "run_id", Value: runID})
	s.engine.RunStandard(ctx)
}
