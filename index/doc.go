// Package index defines the contracts between partition indexes, the loaders
// that feed them and the query side that reads them.
//
// Events flow from a loader into an Instance through Consume. Queries read
// an Instance through the Reader it currently publishes. A Reader never
// changes after it was handed out, so searches see a consistent view while
// indexing continues.
package index
