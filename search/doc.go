// Package search runs requests against the partitions a node serves.
//
// A request fans out over the requested partitions (all served partitions
// by default). Each partition is evaluated against its current reader with
// the query builder bound to it; the matching UIDs are merged in ascending
// order and paginated. Partitions that share one index instance are
// evaluated once.
package search
