// Package sensei runs a search node: a set of partitions, each with a
// real-time index fed from an update journal, queried with free text and
// JSON filter documents.
//
// # Quick Start
//
//	cfg := config.Default()
//	cfg.Partitions = []int{0, 1}
//	cfg.Store.Kind = config.StoreMemory
//
//	n, _ := sensei.Open(ctx, cfg)
//	_ = n.Start(ctx)
//	defer n.Close(ctx)
//
//	_ = n.Index(ctx, 0, index.Event{
//	    UID:     42,
//	    Version: 1,
//	    Fields:  map[string][]string{"color": {"red"}, "contents": {"fast", "car"}},
//	})
//
//	res, _ := n.SearchJSON(ctx, []byte(`{
//	    "query":  "fast AND car",
//	    "filter": {"term": {"color": "red"}},
//	    "count":  10
//	}`))
//
// # Filters
//
// Filter documents have exactly one type key: ids, selection, range, term,
// path, terms, query, and, or, bool. See package filter for the parameters
// of each type.
//
// # Partitions
//
// Each partition has its own index unless partitions are grouped with
// config.PartitionGroups, in which case the group shares one index and one
// journal stream. Package node owns the lifecycle: Start brings every
// partition up or none, Close stops loaders before indexes.
//
// # Durability
//
// Events are durable once Index returns if the journal lives on disk
// (config.LoaderConfig.JournalDir). Index snapshots are written to the
// configured store every BatchDelay, on Flush and on Close, and restored on
// Start.
package sensei
