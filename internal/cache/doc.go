// Package cache provides a byte-bounded LRU cache for snapshot blobs.
//
// Entries are accounted against the node's resource.Controller so that
// cached blobs and live indexes share one memory budget.
package cache
