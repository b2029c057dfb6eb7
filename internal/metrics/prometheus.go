package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusMetrics exports controller metrics to a prometheus registry.
type PrometheusMetrics struct {
	registry      prometheus.Registerer
	opsTotal      *prometheus.CounterVec
	opDuration    prometheus.Histogram
	cleanupsTotal *prometheus.CounterVec
	cleanupItems  prometheus.Counter
	cleanupTime   prometheus.Histogram
	pressureLevel prometheus.Gauge
}

// InitPrometheusMetrics registers the controller metrics under namespace.
// A nil registerer uses the default registry.
func InitPrometheusMetrics(namespace string, reg prometheus.Registerer) *PrometheusMetrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	m := &PrometheusMetrics{
		registry: reg,
		opsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "memory_operations_total",
				Help:      "Total number of memory operations",
			},
			[]string{"store", "status"},
		),
		opDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "memory_operation_duration_seconds",
				Help:      "Duration of memory operations",
				Buckets:   []float64{.0001, .0005, .001, .005, .01, .05, .1, .5, 1},
			},
		),
		cleanupsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "memory_cleanups_total",
				Help:      "Total number of cleanup operations",
			},
			[]string{"operation", "status"},
		),
		cleanupItems: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "memory_cleanup_items_total",
				Help:      "Total number of entries removed by cleanup",
			},
		),
		cleanupTime: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "memory_cleanup_duration_seconds",
				Help:      "Duration of cleanup operations",
				Buckets:   []float64{.001, .01, .05, .1, .5, 1, 5, 30},
			},
		),
		pressureLevel: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "memory_pressure_level",
				Help:      "Pressure level: 0=maintenance, 1=warning, 2=critical, 3=emergency",
			},
		),
	}

	reg.MustRegister(
		m.opsTotal,
		m.opDuration,
		m.cleanupsTotal,
		m.cleanupItems,
		m.cleanupTime,
		m.pressureLevel,
	)

	return m
}

// RecordOperation counts one memory operation.
func (m *PrometheusMetrics) RecordOperation(store string, duration time.Duration, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.opsTotal.WithLabelValues(store, status).Inc()
	m.opDuration.Observe(duration.Seconds())
}

// RecordCleanup counts one cleanup operation result.
func (m *PrometheusMetrics) RecordCleanup(operation string, items int, duration time.Duration, success bool) {
	status := "ok"
	if !success {
		status = "error"
	}
	m.cleanupsTotal.WithLabelValues(operation, status).Inc()
	m.cleanupItems.Add(float64(items))
	m.cleanupTime.Observe(duration.Seconds())
}

// SetPressureLevel exports the current pressure level.
func (m *PrometheusMetrics) SetPressureLevel(level int) {
	m.pressureLevel.Set(float64(level))
}
