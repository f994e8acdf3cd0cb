package sensei

import (
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/strategist922/sensei/admin"
	"github.com/strategist922/sensei/blobstore"
	"github.com/strategist922/sensei/codec"
	"github.com/strategist922/sensei/filter"
	"github.com/strategist922/sensei/loader"
	"github.com/strategist922/sensei/node"
)

type options struct {
	codec            codec.Codec
	metricsCollector MetricsCollector
	logger           *Logger
	registry         admin.Registry
	store            blobstore.Store
	loaders          loader.Factory
	extLoader        node.ExtensionLoader
	schema           filter.Schema
}

// Option configures Open.
type Option func(*options)

// WithCodec configures the codec used to decode JSON search requests and
// filters.
//
// If nil is passed, codec.Default is used.
func WithCodec(c codec.Codec) Option {
	return func(o *options) {
		if c == nil {
			c = codec.Default
		}
		o.codec = c
	}
}

// WithMetricsCollector configures a metrics collector for monitoring operations.
// Pass nil to disable metrics collection.
//
// Example with BasicMetricsCollector:
//
//	m := &sensei.BasicMetricsCollector{}
//	n, _ := sensei.Open(ctx, cfg, sensei.WithMetricsCollector(m))
//	// ... use n ...
//	stats := m.Stats()
//	fmt.Printf("Searches: %d, Avg latency: %dns\n", stats.SearchCount, stats.SearchAvgNanos)
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		o.metricsCollector = mc
	}
}

// WithLogger configures structured logging for operations.
// Pass nil to disable logging.
func WithLogger(logger *Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithLogLevel creates a text logger with the specified level and sets it.
// Convenience wrapper for WithLogger(NewTextLogger(level)).
func WithLogLevel(level slog.Level) Option {
	return func(o *options) {
		o.logger = NewTextLogger(level)
	}
}

// WithAdminRegistry sets where partition index hooks are published.
// The default keeps them in memory.
func WithAdminRegistry(r admin.Registry) Option {
	return func(o *options) {
		o.registry = r
	}
}

// WithPrometheus publishes index hooks as gauges and operation metrics as
// Prometheus collectors on reg. It replaces both the admin registry and the
// metrics collector.
func WithPrometheus(reg prometheus.Registerer) Option {
	return func(o *options) {
		o.registry = admin.NewPrometheusRegistry(reg)
		o.metricsCollector = NewPrometheusMetrics(reg)
	}
}

// WithStore overrides the snapshot store selected by the configuration.
func WithStore(s blobstore.Store) Option {
	return func(o *options) {
		o.store = s
	}
}

// WithLoaderFactory replaces the journal loaders. Index is unavailable
// when it is set.
func WithLoaderFactory(f loader.Factory) Option {
	return func(o *options) {
		o.loaders = f
	}
}

// WithExtensionLoader sets how files in the extension directory are
// loaded. The default opens them as Go plugins.
func WithExtensionLoader(l node.ExtensionLoader) Option {
	return func(o *options) {
		o.extLoader = l
	}
}

// WithSchema sets the field metadata used by filter compilation.
func WithSchema(s filter.Schema) Option {
	return func(o *options) {
		o.schema = s
	}
}

func applyOptions(optFns []Option) options {
	o := options{
		codec:            codec.Default,
		metricsCollector: NoopMetricsCollector{},
		logger:           NoopLogger(),
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}
	if o.logger == nil {
		o.logger = NoopLogger()
	}
	if o.metricsCollector == nil {
		o.metricsCollector = NoopMetricsCollector{}
	}
	return o
}
