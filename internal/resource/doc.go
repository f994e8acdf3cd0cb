// Package resource implements the Controller for node-wide limits.
//
// The Controller governs the resources shared by every partition of a node:
//
//   - Memory: track and limit bytes held by indexes and caches (non-blocking, fail-fast)
//   - Searches: bound the number of partition searches running at once
//   - Background: bound concurrent flush and snapshot jobs
//   - Ingest: rate-limit events pulled by loaders (token bucket)
//   - IO: rate-limit snapshot bytes written to the blob store
//
// A nil *Controller is valid and imposes no limits.
//
//	rc := resource.NewController(resource.Config{
//	    MemoryLimitBytes:      1 << 30,
//	    MaxConcurrentSearches: 8,
//	    EventsPerSecond:       5000,
//	})
package resource
