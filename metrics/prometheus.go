package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Prometheus exports metrics through client_golang.
type Prometheus struct {
	opLatency   *prometheus.HistogramVec
	ops         *prometheus.CounterVec
	searchHits  prometheus.Histogram
	indexEvents *prometheus.CounterVec
	snapBytes   *prometheus.CounterVec
}

var _ Collector = (*Prometheus)(nil)

// NewPrometheus creates a collector and registers it with reg.
// If reg is nil, prometheus.DefaultRegisterer is used.
func NewPrometheus(reg prometheus.Registerer) *Prometheus {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	p := &Prometheus{
		opLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "sensei_operation_duration_seconds",
			Help:    "Latency of node operations.",
			Buckets: prometheus.DefBuckets,
		}, []string{"op"}),
		ops: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sensei_operations_total",
			Help: "Node operations by result.",
		}, []string{"op", "result"}),
		searchHits: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "sensei_search_hits",
			Help:    "Matching documents per search.",
			Buckets: prometheus.ExponentialBuckets(1, 10, 7),
		}),
		indexEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sensei_index_events_total",
			Help: "Events applied to partition indexes.",
		}, []string{"partition"}),
		snapBytes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sensei_snapshot_bytes_total",
			Help: "Bytes written by partition snapshots.",
		}, []string{"partition"}),
	}
	reg.MustRegister(p.opLatency, p.ops, p.searchHits, p.indexEvents, p.snapBytes)
	return p
}

func (p *Prometheus) observe(op string, d time.Duration, err error) {
	p.opLatency.WithLabelValues(op).Observe(d.Seconds())
	result := "ok"
	if err != nil {
		result = "error"
	}
	p.ops.WithLabelValues(op, result).Inc()
}

// RecordCompile implements Collector.
func (p *Prometheus) RecordCompile(d time.Duration, err error) {
	p.observe("compile", d, err)
}

// RecordSearch implements Collector.
func (p *Prometheus) RecordSearch(_, hits int, d time.Duration, err error) {
	p.observe("search", d, err)
	if err == nil {
		p.searchHits.Observe(float64(hits))
	}
}

// RecordIndexBatch implements Collector.
func (p *Prometheus) RecordIndexBatch(partition, events int, d time.Duration, err error) {
	p.observe("index_batch", d, err)
	if err == nil {
		p.indexEvents.WithLabelValues(strconv.Itoa(partition)).Add(float64(events))
	}
}

// RecordSnapshot implements Collector.
func (p *Prometheus) RecordSnapshot(partition, bytes int, d time.Duration, err error) {
	p.observe("snapshot", d, err)
	if err == nil {
		p.snapBytes.WithLabelValues(strconv.Itoa(partition)).Add(float64(bytes))
	}
}

// RecordLifecycle implements Collector.
func (p *Prometheus) RecordLifecycle(op string, d time.Duration, err error) {
	p.observe(op, d, err)
}
