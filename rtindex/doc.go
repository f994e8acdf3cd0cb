// Package rtindex implements an in-memory real-time partition index.
//
// Postings are roaring bitmaps keyed by field and term. Every applied batch
// publishes a new immutable Snapshot through an atomic pointer, so readers
// never wait on indexing. In realtime mode Consume applies events directly;
// otherwise a background batcher applies them once BatchSize events are
// buffered or Freshness has passed, and Consume blocks while MaxBatchSize
// events are waiting.
//
// With a blobstore.Store configured the index writes msgpack snapshots,
// compressed with internal/compress and sealed with a CRC32C trailer, to
//
//	<prefix>/partition-<n>/snap-<version>.bin
//
// and points <prefix>/partition-<n>/CURRENT at the latest one. Start
// restores from CURRENT.
package rtindex
