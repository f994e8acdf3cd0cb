package loader

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/strategist922/sensei/index"
	"github.com/strategist922/sensei/internal/resource"
)

// Defaults of StreamLoader.
const (
	DefaultBatchSize    = 500
	DefaultPollInterval = 100 * time.Millisecond
	DefaultRetryBackoff = time.Second
)

type streamOptions struct {
	batchSize    int
	pollInterval time.Duration
	retryBackoff time.Duration
	limiter      *rate.Limiter
	resources    *resource.Controller
	logger       *slog.Logger
}

// StreamOption configures a StreamLoader.
type StreamOption func(*streamOptions)

// WithBatchSize sets the number of events pulled per round trip.
func WithBatchSize(n int) StreamOption {
	return func(o *streamOptions) {
		if n > 0 {
			o.batchSize = n
		}
	}
}

// WithPollInterval sets how long the loader waits when the provider is
// drained.
func WithPollInterval(d time.Duration) StreamOption {
	return func(o *streamOptions) {
		if d > 0 {
			o.pollInterval = d
		}
	}
}

// WithRetryBackoff sets the pause after a failed pull or consume.
func WithRetryBackoff(d time.Duration) StreamOption {
	return func(o *streamOptions) {
		if d > 0 {
			o.retryBackoff = d
		}
	}
}

// WithRate limits this loader to eventsPerSecond. Zero is unlimited.
func WithRate(eventsPerSecond int) StreamOption {
	return func(o *streamOptions) {
		if eventsPerSecond > 0 {
			o.limiter = rate.NewLimiter(rate.Limit(eventsPerSecond), eventsPerSecond)
		} else {
			o.limiter = nil
		}
	}
}

// WithResources applies the node-wide ingest rate of rc.
func WithResources(rc *resource.Controller) StreamOption {
	return func(o *streamOptions) {
		o.resources = rc
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) StreamOption {
	return func(o *streamOptions) {
		if l != nil {
			o.logger = l
		}
	}
}

// StreamLoader pulls events from a DataProvider and hands them to an index.
// It resumes after the version the index reports on Start.
type StreamLoader struct {
	partition int
	provider  DataProvider
	target    index.Consumer
	opts      streamOptions
	log       *slog.Logger

	started atomic.Bool
	stopped atomic.Bool
	cancel  context.CancelFunc
	done    chan struct{}
	once    sync.Once

	loaded atomic.Int64
}

// NewStreamLoader creates a loader for one partition.
func NewStreamLoader(partition int, provider DataProvider, target index.Consumer, opts ...StreamOption) *StreamLoader {
	o := streamOptions{
		batchSize:    DefaultBatchSize,
		pollInterval: DefaultPollInterval,
		retryBackoff: DefaultRetryBackoff,
		logger:       slog.Default(),
	}
	for _, fn := range opts {
		fn(&o)
	}
	return &StreamLoader{
		partition: partition,
		provider:  provider,
		target:    target,
		opts:      o,
		log:       o.logger.With("component", "loader", "partition", partition),
		done:      make(chan struct{}),
	}
}

// Stopped reports whether Shutdown was called on a started loader. A
// stopped loader cannot be started again.
func (l *StreamLoader) Stopped() bool { return l.stopped.Load() }

// Loaded returns the number of events handed to the index.
func (l *StreamLoader) Loaded() int64 { return l.loaded.Load() }

// Start launches the pull loop. The loop outlives ctx; it ends on Shutdown.
func (l *StreamLoader) Start(context.Context) error {
	if !l.started.CompareAndSwap(false, true) {
		return nil
	}
	ctx, cancel := context.WithCancel(context.Background())
	l.cancel = cancel
	go l.run(ctx)
	return nil
}

func (l *StreamLoader) run(ctx context.Context) {
	defer close(l.done)

	after := l.target.Version()
	l.log.Info("loader started", "from_version", after)
	for {
		events, err := l.provider.Next(ctx, after, l.opts.batchSize)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			l.log.Warn("pull failed", "error", err)
			if !sleep(ctx, l.opts.retryBackoff) {
				return
			}
			continue
		}
		if len(events) == 0 {
			if !sleep(ctx, l.opts.pollInterval) {
				return
			}
			continue
		}

		if err := l.throttle(ctx, len(events)); err != nil {
			return
		}
		for {
			err := l.target.Consume(ctx, events)
			if err == nil {
				break
			}
			if ctx.Err() != nil || errors.Is(err, index.ErrClosed) {
				return
			}
			l.log.Warn("consume failed, retrying", "events", len(events), "error", err)
			if !sleep(ctx, l.opts.retryBackoff) {
				return
			}
		}
		l.loaded.Add(int64(len(events)))
		after = events[len(events)-1].Version
	}
}

func (l *StreamLoader) throttle(ctx context.Context, n int) error {
	if err := l.opts.resources.WaitEvents(ctx, n); err != nil {
		return err
	}
	if l.opts.limiter == nil {
		return nil
	}
	burst := l.opts.limiter.Burst()
	for n > 0 {
		step := min(n, burst)
		if err := l.opts.limiter.WaitN(ctx, step); err != nil {
			return err
		}
		n -= step
	}
	return nil
}

// Shutdown stops the loop and waits for it. A loop that does not stop
// before ctx ends yields a *ShutdownError.
func (l *StreamLoader) Shutdown(ctx context.Context) error {
	if !l.started.Load() {
		return nil
	}
	l.stopped.Store(true)
	l.once.Do(func() { l.cancel() })
	select {
	case <-l.done:
		l.log.Info("loader stopped", "loaded", l.loaded.Load())
		return nil
	case <-ctx.Done():
		return &ShutdownError{Partition: l.partition, Err: ctx.Err()}
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// StreamFactory creates one StreamLoader per distinct index. Partitions
// sharing an index share its loader, fed by the provider of the first
// partition asking for it. Stopped loaders are replaced on the next request.
type StreamFactory struct {
	providers func(partition int) (DataProvider, error)
	opts      []StreamOption

	mu      sync.Mutex
	loaders map[index.Consumer]*StreamLoader
}

var _ Factory = (*StreamFactory)(nil)

// NewStreamFactory creates a factory. providers returns the source of a
// partition.
func NewStreamFactory(providers func(partition int) (DataProvider, error), opts ...StreamOption) *StreamFactory {
	return &StreamFactory{
		providers: providers,
		opts:      opts,
		loaders:   map[index.Consumer]*StreamLoader{},
	}
}

// Loader implements Factory.
func (f *StreamFactory) Loader(partition int, target index.Consumer) (Loader, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if l, ok := f.loaders[target]; ok && !l.Stopped() {
		return l, nil
	}
	for t, l := range f.loaders {
		if l.Stopped() {
			delete(f.loaders, t)
		}
	}
	p, err := f.providers(partition)
	if err != nil {
		return nil, err
	}
	l := NewStreamLoader(partition, p, target, f.opts...)
	f.loaders[target] = l
	return l, nil
}
