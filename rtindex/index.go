package rtindex

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/strategist922/sensei/admin"
	"github.com/strategist922/sensei/index"
)

const (
	stateNew int32 = iota
	stateStarted
	stateClosed
)

// Index is an in-memory partition index. Events become visible either in
// Consume (realtime mode) or when the background batcher applies them.
type Index struct {
	partition int
	opts      Options
	log       *slog.Logger

	state atomic.Int32
	snap  atomic.Pointer[Snapshot]

	mu       sync.Mutex
	w        *writer
	pending  []index.Event
	drained  chan struct{} // closed when pending is applied
	unsaved  int
	memBytes int64
	accepted atomic.Uint64

	lastFlush atomic.Int64 // unix nanos of the last apply
	persistMu sync.Mutex
	saved     atomic.Uint64 // version of the latest stored snapshot

	kickCh  chan struct{}
	closeCh chan struct{}
	wg      sync.WaitGroup
}

var (
	_ index.Instance = (*Index)(nil)
	_ admin.Provider = (*Index)(nil)
)

// New creates an index for a partition. It must be started before use.
func New(partition int, opts ...Option) *Index {
	o := defaultOptions()
	for _, fn := range opts {
		fn(&o)
	}
	if o.MaxBatchSize < o.BatchSize {
		o.MaxBatchSize = o.BatchSize
	}
	idx := &Index{
		partition: partition,
		opts:      o,
		log:       o.Logger.With("component", "rtindex", "partition", partition),
		w:         newWriter(),
		drained:   make(chan struct{}),
		kickCh:    make(chan struct{}, 1),
		closeCh:   make(chan struct{}),
	}
	idx.snap.Store(emptySnapshot())
	return idx
}

// Partition returns the partition the index was created for.
func (idx *Index) Partition() int { return idx.partition }

// Closed reports whether the index was shut down.
func (idx *Index) Closed() bool { return idx.state.Load() == stateClosed }

// SnapshotVersion returns the version covered by the latest snapshot written
// or restored, or 0 when there is none.
func (idx *Index) SnapshotVersion() uint64 { return idx.saved.Load() }

// Start restores the latest snapshot, if any, and starts the batcher.
// Starting a started index is a no-op.
func (idx *Index) Start(ctx context.Context) error {
	switch idx.state.Load() {
	case stateStarted:
		return nil
	case stateClosed:
		return index.ErrClosed
	}

	if idx.opts.Store != nil {
		f, err := readSnapshot(ctx, idx.opts.Store, idx.opts.SnapshotDir)
		if err != nil {
			return err
		}
		if f != nil {
			if err := idx.restore(f); err != nil {
				return err
			}
			idx.saved.Store(f.Version)
			idx.log.Info("restored snapshot", "version", f.Version, "docs", len(f.Docs))
		}
	}

	if !idx.state.CompareAndSwap(stateNew, stateStarted) {
		return nil
	}
	idx.lastFlush.Store(time.Now().UnixNano())
	idx.wg.Add(1)
	go idx.run()
	return nil
}

func (idx *Index) restore(f *snapshotFile) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	events := make([]index.Event, len(f.Docs))
	for i, d := range f.Docs {
		events[i] = index.Event{UID: d.UID, Fields: d.Fields}
	}
	size := estimateSize(events)
	if err := idx.opts.Resources.AcquireMemory(size); err != nil {
		return fmt.Errorf("rtindex: restore partition %d: %w", idx.partition, err)
	}
	w := newWriter()
	for _, e := range events {
		w.apply(e)
	}
	w.version = f.Version
	idx.w = w
	idx.memBytes = size
	idx.accepted.Store(f.Version)
	idx.snap.Store(w.publish(emptySnapshot()))
	return nil
}

// Consume implements index.Consumer.
func (idx *Index) Consume(ctx context.Context, events []index.Event) error {
	switch idx.state.Load() {
	case stateNew:
		return index.ErrNotStarted
	case stateClosed:
		return index.ErrClosed
	}
	if len(events) == 0 {
		return nil
	}
	size := estimateSize(events)
	if err := idx.opts.Resources.AcquireMemory(size); err != nil {
		return fmt.Errorf("rtindex: partition %d: %w", idx.partition, err)
	}
	var err error
	if idx.opts.Realtime {
		err = idx.applyNow(events, size)
	} else {
		err = idx.enqueue(ctx, events, size)
	}
	if err != nil {
		idx.opts.Resources.ReleaseMemory(size)
	}
	return err
}

// applyNow and enqueue re-check the state under idx.mu: Shutdown marks the
// index closed before it takes idx.mu for the final drain, so nothing is
// added after that drain.
func (idx *Index) applyNow(events []index.Event, size int64) error {
	idx.mu.Lock()
	if idx.state.Load() == stateClosed {
		idx.mu.Unlock()
		return index.ErrClosed
	}
	idx.memBytes += size
	idx.applyLocked(events)
	save := idx.opts.Store != nil && idx.unsaved >= idx.opts.BatchSize
	idx.mu.Unlock()
	if save {
		idx.kick()
	}
	return nil
}

func (idx *Index) enqueue(ctx context.Context, events []index.Event, size int64) error {
	for {
		idx.mu.Lock()
		if idx.state.Load() == stateClosed {
			idx.mu.Unlock()
			return index.ErrClosed
		}
		if len(idx.pending) < idx.opts.MaxBatchSize {
			idx.pending = append(idx.pending, events...)
			idx.memBytes += size
			full := len(idx.pending) >= idx.opts.BatchSize
			idx.mu.Unlock()
			if full {
				idx.kick()
			}
			return nil
		}
		drained := idx.drained
		idx.mu.Unlock()

		idx.kick()
		select {
		case <-drained:
		case <-idx.closeCh:
			return index.ErrClosed
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// applyLocked applies events and publishes a new snapshot. idx.mu is held.
func (idx *Index) applyLocked(events []index.Event) {
	start := time.Now()
	for _, e := range events {
		idx.w.apply(e)
	}
	idx.snap.Store(idx.w.publish(idx.snap.Load()))
	idx.accepted.Store(idx.w.version)
	idx.unsaved += len(events)
	idx.lastFlush.Store(time.Now().UnixNano())
	idx.opts.Metrics.RecordIndexBatch(idx.partition, len(events), time.Since(start), nil)
}

// drainLocked applies the buffered events. idx.mu is held.
func (idx *Index) drainLocked() {
	if len(idx.pending) == 0 {
		return
	}
	batch := idx.pending
	idx.pending = nil
	idx.applyLocked(batch)
	close(idx.drained)
	idx.drained = make(chan struct{})
}

func (idx *Index) kick() {
	select {
	case idx.kickCh <- struct{}{}:
	default:
	}
}

func (idx *Index) run() {
	defer idx.wg.Done()

	fresh := time.NewTicker(idx.opts.Freshness)
	defer fresh.Stop()
	save := time.NewTicker(idx.opts.BatchDelay)
	defer save.Stop()

	for {
		select {
		case <-idx.closeCh:
			return
		case <-fresh.C:
			idx.drain()
		case <-idx.kickCh:
			idx.drain()
			idx.mu.Lock()
			due := idx.unsaved >= idx.opts.BatchSize
			idx.mu.Unlock()
			if due {
				idx.persistInBackground()
			}
		case <-save.C:
			idx.persistInBackground()
		}
	}
}

func (idx *Index) drain() {
	idx.mu.Lock()
	idx.drainLocked()
	idx.mu.Unlock()
}

func (idx *Index) persistInBackground() {
	if idx.opts.Store == nil {
		return
	}
	if !idx.opts.Resources.TryAcquireBackground() {
		return
	}
	defer idx.opts.Resources.ReleaseBackground()
	if err := idx.persist(context.Background()); err != nil {
		idx.log.Error("snapshot failed", "error", err)
	}
}

// persist writes a snapshot when events were applied since the last one.
func (idx *Index) persist(ctx context.Context) error {
	if idx.opts.Store == nil {
		return nil
	}
	idx.persistMu.Lock()
	defer idx.persistMu.Unlock()

	idx.mu.Lock()
	if idx.unsaved == 0 {
		idx.mu.Unlock()
		return nil
	}
	f := &snapshotFile{Format: snapshotFormat, Version: idx.w.version, Docs: idx.w.liveDocs()}
	saved := idx.unsaved
	idx.mu.Unlock()

	start := time.Now()
	n, err := writeSnapshot(ctx, idx.opts.Store, idx.opts.Resources, idx.opts.SnapshotDir, f, idx.opts.Compression)
	idx.opts.Metrics.RecordSnapshot(idx.partition, n, time.Since(start), err)
	if err != nil {
		return err
	}

	idx.mu.Lock()
	idx.unsaved -= saved
	idx.mu.Unlock()
	idx.saved.Store(f.Version)
	idx.log.Debug("snapshot written", "version", f.Version, "docs", len(f.Docs), "bytes", n)
	return nil
}

// Flush applies buffered events and writes a snapshot if a store is
// configured.
func (idx *Index) Flush(ctx context.Context) error {
	if idx.state.Load() != stateStarted {
		return index.ErrNotStarted
	}
	idx.mu.Lock()
	idx.drainLocked()
	idx.mu.Unlock()
	return idx.persist(ctx)
}

// Reader implements index.ReaderFactory. It never blocks.
func (idx *Index) Reader() (index.Reader, error) {
	if idx.state.Load() == stateClosed {
		return nil, index.ErrClosed
	}
	return idx.snap.Load(), nil
}

// Version implements index.Consumer. In batch mode it includes buffered
// events that are not visible yet.
func (idx *Index) Version() uint64 {
	v := idx.accepted.Load()
	idx.mu.Lock()
	for _, e := range idx.pending {
		if e.Version > v {
			v = e.Version
		}
	}
	idx.mu.Unlock()
	return v
}

// Pending returns the number of buffered events.
func (idx *Index) Pending() int {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	return len(idx.pending)
}

// Shutdown stops the batcher, applies buffered events and writes a final
// snapshot. Shutting down twice is a no-op.
func (idx *Index) Shutdown(ctx context.Context) error {
	if idx.state.CompareAndSwap(stateNew, stateClosed) {
		return nil
	}
	if !idx.state.CompareAndSwap(stateStarted, stateClosed) {
		return nil
	}
	close(idx.closeCh)

	done := make(chan struct{})
	go func() {
		idx.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}

	idx.mu.Lock()
	idx.drainLocked()
	idx.mu.Unlock()
	err := idx.persist(ctx)

	idx.mu.Lock()
	idx.opts.Resources.ReleaseMemory(idx.memBytes)
	idx.memBytes = 0
	idx.mu.Unlock()

	idx.log.Info("index closed", "version", idx.accepted.Load())
	return err
}

// AdminHooks implements admin.Provider.
func (idx *Index) AdminHooks() []admin.Hook {
	return []admin.Hook{
		{Name: "docCount", Help: "Live documents in the partition index.", Value: func() float64 {
			return float64(idx.snap.Load().NumDocs())
		}},
		{Name: "pendingEvents", Help: "Buffered events not yet visible.", Value: func() float64 {
			return float64(idx.Pending())
		}},
		{Name: "version", Help: "Highest visible event version.", Value: func() float64 {
			return float64(idx.snap.Load().Version())
		}},
		{Name: "lastFlushSeconds", Help: "Unix time of the last applied batch.", Value: func() float64 {
			return float64(idx.lastFlush.Load()) / float64(time.Second)
		}},
	}
}
