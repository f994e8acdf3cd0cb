// Package metrics defines the operational metrics hooks of a node.
package metrics

import (
	"sync/atomic"
	"time"
)

// Collector receives operational metrics.
// Implementations must be safe for concurrent use.
type Collector interface {
	// RecordCompile is called after a filter document was compiled.
	RecordCompile(duration time.Duration, err error)

	// RecordSearch is called after each search request. partitions is the
	// number of partitions searched, hits the total matching documents.
	RecordSearch(partitions, hits int, duration time.Duration, err error)

	// RecordIndexBatch is called after a batch of events was applied to a
	// partition index.
	RecordIndexBatch(partition, events int, duration time.Duration, err error)

	// RecordSnapshot is called after a partition snapshot was written.
	RecordSnapshot(partition, bytes int, duration time.Duration, err error)

	// RecordLifecycle is called after a node start or shutdown.
	RecordLifecycle(op string, duration time.Duration, err error)
}

// Lifecycle operations.
const (
	OpStart    = "start"
	OpShutdown = "shutdown"
)

// Noop discards all metrics.
type Noop struct{}

func (Noop) RecordCompile(time.Duration, error)              {}
func (Noop) RecordSearch(int, int, time.Duration, error)     {}
func (Noop) RecordIndexBatch(int, int, time.Duration, error) {}
func (Noop) RecordSnapshot(int, int, time.Duration, error)   {}
func (Noop) RecordLifecycle(string, time.Duration, error)    {}

// Basic keeps in-memory counters. Useful for tests and debugging.
type Basic struct {
	CompileCount     atomic.Int64
	CompileErrors    atomic.Int64
	SearchCount      atomic.Int64
	SearchErrors     atomic.Int64
	SearchHits       atomic.Int64
	SearchTotalNanos atomic.Int64
	IndexBatches     atomic.Int64
	IndexEvents      atomic.Int64
	IndexErrors      atomic.Int64
	SnapshotCount    atomic.Int64
	SnapshotBytes    atomic.Int64
	SnapshotErrors   atomic.Int64
	StartCount       atomic.Int64
	ShutdownCount    atomic.Int64
	LifecycleErrors  atomic.Int64
}

// RecordCompile implements Collector.
func (b *Basic) RecordCompile(_ time.Duration, err error) {
	b.CompileCount.Add(1)
	if err != nil {
		b.CompileErrors.Add(1)
	}
}

// RecordSearch implements Collector.
func (b *Basic) RecordSearch(_, hits int, duration time.Duration, err error) {
	b.SearchCount.Add(1)
	b.SearchTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.SearchErrors.Add(1)
		return
	}
	b.SearchHits.Add(int64(hits))
}

// RecordIndexBatch implements Collector.
func (b *Basic) RecordIndexBatch(_, events int, _ time.Duration, err error) {
	b.IndexBatches.Add(1)
	if err != nil {
		b.IndexErrors.Add(1)
		return
	}
	b.IndexEvents.Add(int64(events))
}

// RecordSnapshot implements Collector.
func (b *Basic) RecordSnapshot(_, bytes int, _ time.Duration, err error) {
	if err != nil {
		b.SnapshotErrors.Add(1)
		return
	}
	b.SnapshotCount.Add(1)
	b.SnapshotBytes.Add(int64(bytes))
}

// RecordLifecycle implements Collector.
func (b *Basic) RecordLifecycle(op string, _ time.Duration, err error) {
	if err != nil {
		b.LifecycleErrors.Add(1)
	}
	switch op {
	case OpStart:
		b.StartCount.Add(1)
	case OpShutdown:
		b.ShutdownCount.Add(1)
	}
}

// Stats returns a snapshot of the counters.
func (b *Basic) Stats() BasicStats {
	s := BasicStats{
		CompileCount:    b.CompileCount.Load(),
		CompileErrors:   b.CompileErrors.Load(),
		SearchCount:     b.SearchCount.Load(),
		SearchErrors:    b.SearchErrors.Load(),
		SearchHits:      b.SearchHits.Load(),
		IndexBatches:    b.IndexBatches.Load(),
		IndexEvents:     b.IndexEvents.Load(),
		IndexErrors:     b.IndexErrors.Load(),
		SnapshotCount:   b.SnapshotCount.Load(),
		SnapshotBytes:   b.SnapshotBytes.Load(),
		SnapshotErrors:  b.SnapshotErrors.Load(),
		StartCount:      b.StartCount.Load(),
		ShutdownCount:   b.ShutdownCount.Load(),
		LifecycleErrors: b.LifecycleErrors.Load(),
	}
	if s.SearchCount > 0 {
		s.SearchAvgNanos = b.SearchTotalNanos.Load() / s.SearchCount
	}
	return s
}

// BasicStats is a snapshot of Basic.
type BasicStats struct {
	CompileCount    int64
	CompileErrors   int64
	SearchCount     int64
	SearchErrors    int64
	SearchHits      int64
	SearchAvgNanos  int64
	IndexBatches    int64
	IndexEvents     int64
	IndexErrors     int64
	SnapshotCount   int64
	SnapshotBytes   int64
	SnapshotErrors  int64
	StartCount      int64
	ShutdownCount   int64
	LifecycleErrors int64
}

// OrNoop returns c, or Noop if c is nil.
func OrNoop(c Collector) Collector {
	if c == nil {
		return Noop{}
	}
	return c
}
