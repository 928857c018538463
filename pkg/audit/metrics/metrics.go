// Package metrics exposes Prometheus instrumentation for the audit engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the engine's Prometheus collectors.
type Metrics struct {
	RecordsAppended  *prometheus.CounterVec
	AppendFailures   *prometheus.CounterVec
	FailOpenLosses   prometheus.Counter
	AppendDurationMs prometheus.Histogram
}

// New creates and registers all collectors on the default registerer.
func New() *Metrics {
	return &Metrics{
		RecordsAppended: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "chronicle_records_appended_total",
			Help: "Audit records durably appended, by action",
		}, []string{"action"}),
		AppendFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "chronicle_append_failures_total",
			Help: "Audit append failures, by fail mode applied",
		}, []string{"mode"}),
		FailOpenLosses: promauto.NewCounter(prometheus.CounterOpts{
			Name: "chronicle_fail_open_losses_total",
			Help: "Audit records silently lost under fail-open policies",
		}),
		AppendDurationMs: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "chronicle_append_duration_ms",
			Help:    "Latency of audit appends in milliseconds",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 25, 50, 100},
		}),
	}
}
