package sensei

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/strategist922/sensei/metrics"
)

// MetricsCollector collects operational metrics of a node.
type MetricsCollector = metrics.Collector

// NoopMetricsCollector discards everything.
type NoopMetricsCollector = metrics.Noop

// BasicMetricsCollector keeps in-memory counters. Useful for debugging and
// basic monitoring without external dependencies.
type BasicMetricsCollector = metrics.Basic

// BasicMetricsStats is a snapshot of BasicMetricsCollector state.
type BasicMetricsStats = metrics.BasicStats

// NewPrometheusMetrics registers a Prometheus collector with reg, or with
// the default registerer when reg is nil.
func NewPrometheusMetrics(reg prometheus.Registerer) MetricsCollector {
	return metrics.NewPrometheus(reg)
}
