// Package node coordinates the partition resources of a search node: index
// instances, the loaders feeding them and the query builders bound to them.
package node

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/strategist922/sensei/admin"
	"github.com/strategist922/sensei/index"
	"github.com/strategist922/sensei/internal/ident"
	"github.com/strategist922/sensei/loader"
	"github.com/strategist922/sensei/metrics"
	"github.com/strategist922/sensei/querybuilder"
)

// State is the lifecycle state of a Manager.
type State int32

const (
	NotStarted State = iota
	Started
	Shutdown
)

func (s State) String() string {
	switch s {
	case NotStarted:
		return "not_started"
	case Started:
		return "started"
	case Shutdown:
		return "shutdown"
	default:
		return "unknown"
	}
}

// IndexFactory returns the index instance of a partition. It may return the
// same instance for several partitions.
type IndexFactory interface {
	Index(nodeID, partition int) (index.Instance, error)
}

// IndexFactoryFunc adapts a function to IndexFactory.
type IndexFactoryFunc func(nodeID, partition int) (index.Instance, error)

// Index implements IndexFactory.
func (f IndexFactoryFunc) Index(nodeID, partition int) (index.Instance, error) {
	return f(nodeID, partition)
}

// PartitionBinder is implemented by query builder factories that specialize
// themselves per partition. Other factories are bound unchanged.
type PartitionBinder interface {
	ForPartition(partition int) querybuilder.Factory
}

// maxParallelLoaderStops bounds concurrent loader shutdowns.
const maxParallelLoaderStops = 8

type bindings struct {
	readers  map[int]index.ReaderFactory
	builders map[int]querybuilder.Factory
}

// Manager brings the resources of a fixed set of partitions up and down.
//
// Start and Shutdown are serialized. Lookups are lock-free reads of an
// immutable binding published at the end of Start and withdrawn at the
// beginning of Shutdown.
type Manager struct {
	nodeID     int
	partitions []int
	indexes    IndexFactory
	loaders    loader.Factory
	builders   querybuilder.Factory

	registry   admin.Registry
	log        *slog.Logger
	metrics    metrics.Collector
	extensions []string

	mu        sync.Mutex
	state     atomic.Int32
	published atomic.Pointer[bindings]
	// Resources are deduplicated by reference only; value-typed
	// resources are always distinct.
	instances *ident.Set[index.Instance]
	loaderSet *ident.Set[loader.Loader]
	hooks     []admin.HookID
}

type options struct {
	logger       *slog.Logger
	registry     admin.Registry
	extensionDir string
	extLoader    ExtensionLoader
	metrics      metrics.Collector
}

// Option configures a Manager.
type Option func(*options)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithAdminRegistry sets where index hooks are registered. It defaults to
// an admin.MemoryRegistry.
func WithAdminRegistry(r admin.Registry) Option {
	return func(o *options) {
		if r != nil {
			o.registry = r
		}
	}
}

// WithExtensionDir loads the extensions found in dir at construction.
func WithExtensionDir(dir string) Option {
	return func(o *options) {
		o.extensionDir = dir
	}
}

// WithExtensionLoader replaces the PluginLoader.
func WithExtensionLoader(l ExtensionLoader) Option {
	return func(o *options) {
		if l != nil {
			o.extLoader = l
		}
	}
}

// WithMetrics sets the metrics collector.
func WithMetrics(m metrics.Collector) Option {
	return func(o *options) {
		o.metrics = metrics.OrNoop(m)
	}
}

// NewManager creates a manager for partitions of node nodeID. The loader
// factory may be nil, in which case partitions get no loader.
func NewManager(nodeID int, partitions []int, indexes IndexFactory, loaders loader.Factory, builders querybuilder.Factory, opts ...Option) *Manager {
	o := options{
		logger:    slog.Default(),
		extLoader: PluginLoader{},
		metrics:   metrics.Noop{},
	}
	for _, fn := range opts {
		fn(&o)
	}
	if o.registry == nil {
		o.registry = admin.NewMemoryRegistry()
	}
	if loaders == nil {
		loaders = loader.NoopFactory{}
	}

	m := &Manager{
		nodeID:     nodeID,
		partitions: slices.Clone(partitions),
		indexes:    indexes,
		loaders:    loaders,
		builders:   builders,
		registry:   o.registry,
		log:        o.logger.With("component", "node", "node_id", nodeID),
		metrics:    o.metrics,
		instances:  ident.NewSet[index.Instance](),
		loaderSet:  ident.NewSet[loader.Loader](),
	}
	if o.extensionDir != "" {
		m.extensions = loadExtensions(o.extensionDir, o.extLoader, m.log)
	}
	return m
}

// NodeID returns the node identifier.
func (m *Manager) NodeID() int { return m.nodeID }

// Partitions returns a copy of the owned partitions.
func (m *Manager) Partitions() []int { return slices.Clone(m.partitions) }

// State returns the lifecycle state.
func (m *Manager) State() State { return State(m.state.Load()) }

// Extensions returns the extension files loaded at construction.
func (m *Manager) Extensions() []string { return slices.Clone(m.extensions) }

// Start brings up every partition in order. It is a no-op unless the
// manager has not been started yet.
//
// A failing factory, index start or loader start is fatal: whatever was
// started is torn down again, the state stays NotStarted and the error is
// returned as a *ResourceStartError. Start may then be called again; the
// factories are expected to replace resources that were shut down.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.State() != NotStarted {
		return nil
	}
	start := time.Now()

	b := &bindings{
		readers:  make(map[int]index.ReaderFactory, len(m.partitions)),
		builders: make(map[int]querybuilder.Factory, len(m.partitions)),
	}
	for _, p := range m.partitions {
		if err := m.startPartition(ctx, p, b); err != nil {
			if terr := m.teardown(ctx); terr != nil {
				m.log.Warn("rollback incomplete", "error", terr)
			}
			m.log.Error("start failed", "partition", p, "error", err)
			m.metrics.RecordLifecycle(metrics.OpStart, time.Since(start), err)
			return err
		}
	}

	m.published.Store(b)
	m.state.Store(int32(Started))
	m.log.Info("node started",
		"partitions", len(m.partitions),
		"instances", m.instances.Len(),
		"loaders", m.loaderSet.Len(),
		"hooks", len(m.hooks),
	)
	m.metrics.RecordLifecycle(metrics.OpStart, time.Since(start), nil)
	return nil
}

func (m *Manager) startPartition(ctx context.Context, p int, b *bindings) error {
	builder := m.builders
	if pb, ok := builder.(PartitionBinder); ok {
		builder = pb.ForPartition(p)
	}
	if builder != nil {
		b.builders[p] = builder
	}

	inst, err := m.indexes.Index(m.nodeID, p)
	if err == nil && inst == nil {
		err = errors.New("factory returned no index")
	}
	if err != nil {
		return &ResourceStartError{Partition: p, Kind: KindIndex, Err: err}
	}

	if hp, ok := inst.(admin.Provider); ok {
		m.registerHooks(p, hp.AdminHooks())
	}

	if !m.instances.Contains(inst) {
		if err := inst.Start(ctx); err != nil {
			return &ResourceStartError{Partition: p, Kind: KindIndex, Err: err}
		}
		m.instances.Add(inst)
	}

	l, err := m.loaders.Loader(p, inst)
	if err == nil && l == nil {
		err = errors.New("factory returned no loader")
	}
	if err != nil {
		return &ResourceStartError{Partition: p, Kind: KindLoader, Err: err}
	}
	if !m.loaderSet.Contains(l) {
		if err := l.Start(ctx); err != nil {
			return &ResourceStartError{Partition: p, Kind: KindLoader, Err: err}
		}
		m.loaderSet.Add(l)
	}

	b.readers[p] = inst
	return nil
}

func (m *Manager) registerHooks(p int, hooks []admin.Hook) {
	for _, h := range hooks {
		id := admin.HookID{Base: h.Name, Node: m.nodeID, Partition: p}
		err := m.registry.Register(id, h)
		switch {
		case err == nil:
			m.hooks = append(m.hooks, id)
		case errors.Is(err, admin.ErrHookConflict):
			m.log.Warn("admin hook already registered", "hook", id.String())
			m.hooks = append(m.hooks, id)
		default:
			m.log.Error("cannot register admin hook", "hook", id.String(), "error", err)
		}
	}
}

// Shutdown stops every partition resource. It is a no-op unless the manager
// is started. Every resource is attempted; the failures are logged and
// returned joined.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.State() != Started {
		return nil
	}
	start := time.Now()

	m.published.Store(nil)
	err := m.teardown(ctx)
	m.state.Store(int32(Shutdown))

	m.log.Info("node shut down", "duration", time.Since(start), "errors", err != nil)
	m.metrics.RecordLifecycle(metrics.OpShutdown, time.Since(start), err)
	return err
}

// teardown runs the hook, loader and index passes. The tracking sets are
// empty afterwards whatever fails. m.mu is held.
func (m *Manager) teardown(ctx context.Context) error {
	var errs []error

	for _, id := range m.hooks {
		if err := m.registry.Unregister(id); err != nil {
			m.log.Warn("cannot unregister admin hook", "hook", id.String(), "error", err)
			errs = append(errs, err)
		}
	}
	m.hooks = nil

	loaders := m.loaderSet.Items()
	loaderErrs := make([]error, len(loaders))
	var g errgroup.Group
	g.SetLimit(maxParallelLoaderStops)
	for i, l := range loaders {
		g.Go(func() error {
			loaderErrs[i] = l.Shutdown(ctx)
			return nil
		})
	}
	_ = g.Wait()
	for _, err := range loaderErrs {
		if err == nil {
			continue
		}
		var se *loader.ShutdownError
		if errors.As(err, &se) {
			m.log.Warn("loader did not stop cleanly", "partition", se.Partition, "error", se.Err)
		} else {
			m.log.Warn("loader shutdown failed", "error", err)
		}
		errs = append(errs, err)
	}
	m.loaderSet.Clear()

	for _, inst := range m.instances.Items() {
		if err := inst.Shutdown(ctx); err != nil {
			m.log.Error("index shutdown failed", "error", err)
			errs = append(errs, fmt.Errorf("node: shutdown index: %w", err))
		}
	}
	m.instances.Clear()

	return errors.Join(errs...)
}

// IndexReaderFactory returns the reader factory of a partition. It is absent
// before Start, after Shutdown and for partitions the node does not own.
func (m *Manager) IndexReaderFactory(partition int) (index.ReaderFactory, bool) {
	b := m.published.Load()
	if b == nil {
		return nil, false
	}
	rf, ok := b.readers[partition]
	return rf, ok
}

// QueryBuilderFactory returns the query builder factory bound to a
// partition, with the same availability as IndexReaderFactory.
func (m *Manager) QueryBuilderFactory(partition int) (querybuilder.Factory, bool) {
	b := m.published.Load()
	if b == nil {
		return nil, false
	}
	qb, ok := b.builders[partition]
	return qb, ok
}
