package memtier

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/aatumaykin/memtier/internal/backend"
)

// Status is a health verdict.
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusDegraded  Status = "degraded"
	StatusUnhealthy Status = "unhealthy"
)

// severity orders statuses for the overall roll-up.
func (s Status) severity() int {
	switch s {
	case StatusHealthy:
		return 0
	case StatusDegraded:
		return 1
	default:
		return 2
	}
}

// Check is one named health probe result.
type Check struct {
	Status Status `json:"status"`
	Detail string `json:"detail,omitempty"`
}

// HealthReport aggregates the individual probes. Status is the worst of
// the checks.
type HealthReport struct {
	Status    Status           `json:"status"`
	Checks    map[string]Check `json:"checks"`
	Timestamp time.Time        `json:"timestamp"`
}

// HealthCheck probes the remote backend, exercises the fallback store with
// a synthetic write/read/delete cycle, and judges recent latency and error
// rate against the configured thresholds.
func (c *Controller) HealthCheck(ctx context.Context) HealthReport {
	checks := map[string]Check{
		"backend":     c.checkBackend(ctx),
		"fallback":    c.checkFallback(ctx),
		"performance": c.checkPerformance(),
		"error_rate":  c.checkErrorRate(),
	}

	overall := StatusHealthy
	for _, check := range checks {
		if check.Status.severity() > overall.severity() {
			overall = check.Status
		}
	}

	return HealthReport{Status: overall, Checks: checks, Timestamp: time.Now().UTC()}
}

func (c *Controller) checkBackend(ctx context.Context) Check {
	if c.store.Name() == backend.NameFallback {
		return Check{Status: StatusUnhealthy, Detail: "remote backend not available, fallback store active"}
	}
	if err := c.store.Ping(ctx); err != nil {
		return Check{Status: StatusUnhealthy, Detail: fmt.Sprintf("ping failed: %v", err)}
	}
	return Check{Status: StatusHealthy}
}

// checkFallback runs the synthetic cycle against the active fallback store
// when it serves traffic, and against a dedicated probe instance otherwise.
func (c *Controller) checkFallback(ctx context.Context) Check {
	probe := backend.Store(c.fallbackProbe)
	if fb, ok := c.store.(*backend.FallbackStore); ok {
		probe = fb
	}

	key := "health:probe:" + uuid.NewString()
	if err := probe.Set(ctx, key, []byte("ok"), time.Minute); err != nil {
		return Check{Status: StatusUnhealthy, Detail: fmt.Sprintf("probe write failed: %v", err)}
	}
	payload, found, err := probe.Get(ctx, key)
	if err != nil || !found || string(payload) != "ok" {
		return Check{Status: StatusUnhealthy, Detail: "probe read after write failed"}
	}
	if _, err := probe.Delete(ctx, key); err != nil {
		return Check{Status: StatusUnhealthy, Detail: fmt.Sprintf("probe delete failed: %v", err)}
	}
	return Check{Status: StatusHealthy}
}

func (c *Controller) checkPerformance() Check {
	avg, _, _, samples := c.metrics.LatencyStats()
	if samples == 0 {
		return Check{Status: StatusHealthy, Detail: "no operations recorded yet"}
	}

	avgMs := float64(avg) / float64(time.Millisecond)
	switch {
	case avgMs > c.cfg.Health.UnhealthyLatencyMs:
		return Check{Status: StatusUnhealthy, Detail: fmt.Sprintf("avg latency %.1fms", avgMs)}
	case avgMs > c.cfg.Health.DegradedLatencyMs:
		return Check{Status: StatusDegraded, Detail: fmt.Sprintf("avg latency %.1fms", avgMs)}
	default:
		return Check{Status: StatusHealthy}
	}
}

func (c *Controller) checkErrorRate() Check {
	rate := c.metrics.ErrorRate()
	switch {
	case rate > c.cfg.Health.UnhealthyErrorPercent:
		return Check{Status: StatusUnhealthy, Detail: fmt.Sprintf("error rate %.1f%%", rate)}
	case rate > c.cfg.Health.DegradedErrorPercent:
		return Check{Status: StatusDegraded, Detail: fmt.Sprintf("error rate %.1f%%", rate)}
	default:
		return Check{Status: StatusHealthy}
	}
}
