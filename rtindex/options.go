package rtindex

import (
	"log/slog"
	"time"

	"github.com/strategist922/sensei/blobstore"
	"github.com/strategist922/sensei/internal/compress"
	"github.com/strategist922/sensei/internal/resource"
	"github.com/strategist922/sensei/metrics"
)

// Defaults.
const (
	DefaultBatchSize    = 10000
	DefaultBatchDelay   = 5 * time.Minute
	DefaultMaxBatchSize = 10000
	DefaultFreshness    = 10 * time.Second
)

// Options configures an Index.
type Options struct {
	// BatchSize is the number of buffered events that triggers an apply in
	// batch mode, and the number of applied events that triggers a snapshot.
	BatchSize int
	// BatchDelay is the longest time applied events stay unsaved when a
	// snapshot store is configured.
	BatchDelay time.Duration
	// MaxBatchSize bounds the buffer in batch mode. Consume blocks while it
	// is full.
	MaxBatchSize int
	// Realtime applies events inside Consume, making them visible at once.
	Realtime bool
	// Freshness is the longest time a buffered event waits in batch mode.
	Freshness time.Duration

	// Store persists snapshots. Nil disables persistence.
	Store blobstore.Store
	// SnapshotDir is the directory of this index inside Store.
	SnapshotDir string
	// Compression is applied to snapshot files.
	Compression compress.Type

	Logger    *slog.Logger
	Resources *resource.Controller
	Metrics   metrics.Collector
}

// Option configures an Index.
type Option func(*Options)

func defaultOptions() Options {
	return Options{
		BatchSize:    DefaultBatchSize,
		BatchDelay:   DefaultBatchDelay,
		MaxBatchSize: DefaultMaxBatchSize,
		Realtime:     true,
		Freshness:    DefaultFreshness,
		Compression:  compress.ZSTD,
		Logger:       slog.Default(),
		Metrics:      metrics.Noop{},
	}
}

// WithBatchSize sets Options.BatchSize.
func WithBatchSize(n int) Option {
	return func(o *Options) {
		if n > 0 {
			o.BatchSize = n
		}
	}
}

// WithBatchDelay sets Options.BatchDelay.
func WithBatchDelay(d time.Duration) Option {
	return func(o *Options) {
		if d > 0 {
			o.BatchDelay = d
		}
	}
}

// WithMaxBatchSize sets Options.MaxBatchSize.
func WithMaxBatchSize(n int) Option {
	return func(o *Options) {
		if n > 0 {
			o.MaxBatchSize = n
		}
	}
}

// WithRealtime sets Options.Realtime.
func WithRealtime(realtime bool) Option {
	return func(o *Options) {
		o.Realtime = realtime
	}
}

// WithFreshness sets Options.Freshness.
func WithFreshness(d time.Duration) Option {
	return func(o *Options) {
		if d > 0 {
			o.Freshness = d
		}
	}
}

// WithStore enables snapshot persistence under dir.
func WithStore(s blobstore.Store, dir string) Option {
	return func(o *Options) {
		o.Store = s
		o.SnapshotDir = dir
	}
}

// WithCompression sets the snapshot compression.
func WithCompression(t compress.Type) Option {
	return func(o *Options) {
		o.Compression = t
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *Options) {
		if l != nil {
			o.Logger = l
		}
	}
}

// WithResources accounts index memory against rc.
func WithResources(rc *resource.Controller) Option {
	return func(o *Options) {
		o.Resources = rc
	}
}

// WithMetrics sets the metrics collector.
func WithMetrics(m metrics.Collector) Option {
	return func(o *Options) {
		o.Metrics = metrics.OrNoop(m)
	}
}
