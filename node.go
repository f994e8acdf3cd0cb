package sensei

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/strategist922/sensei/blobstore"
	"github.com/strategist922/sensei/blobstore/minio"
	"github.com/strategist922/sensei/blobstore/s3"
	"github.com/strategist922/sensei/config"
	"github.com/strategist922/sensei/filter"
	"github.com/strategist922/sensei/index"
	"github.com/strategist922/sensei/internal/cache"
	"github.com/strategist922/sensei/internal/compress"
	"github.com/strategist922/sensei/internal/resource"
	"github.com/strategist922/sensei/loader"
	"github.com/strategist922/sensei/node"
	"github.com/strategist922/sensei/qparser"
	"github.com/strategist922/sensei/querybuilder"
	"github.com/strategist922/sensei/rtindex"
	"github.com/strategist922/sensei/search"
)

// ErrNoJournal is returned by Index when a custom loader factory replaced
// the journal loaders.
var ErrNoJournal = errors.New("sensei: node has no journal")

// SearchRequest is a search request: free-text query, filter document,
// partitions and page.
type SearchRequest = search.Request

// SearchResult is a page of hits.
type SearchResult = search.Result

// Node serves a set of partitions: it owns their indexes, the journal
// feeding them and the searcher reading them.
type Node struct {
	cfg  config.Config
	opts options
	log  *Logger

	rc       *resource.Controller
	store    blobstore.Store
	unlock   func() error
	journal  *loader.Journal
	indexes  *rtindex.Factory
	builders *querybuilder.JSONFactory
	manager  *node.Manager
	searcher *search.Searcher

	groupKey map[int]int
	served   map[int]bool

	releaseOnce sync.Once
	releaseErr  error
}

// Open validates cfg and wires a node. Nothing runs until Start.
func Open(ctx context.Context, cfg config.Config, optFns ...Option) (*Node, error) {
	if err := cfg.Validate(); err != nil {
		return nil, translateError(err)
	}
	o := applyOptions(optFns)
	n := &Node{
		cfg:      cfg,
		opts:     o,
		log:      o.logger.WithNode(cfg.NodeID),
		groupKey: map[int]int{},
		served:   map[int]bool{},
	}
	for _, p := range cfg.Partitions {
		n.served[p] = true
		n.groupKey[p] = p
	}
	for _, g := range cfg.PartitionGroups {
		for _, p := range g {
			n.groupKey[p] = g[0]
		}
	}

	n.rc = resource.NewController(resource.Config{
		MemoryLimitBytes:      cfg.Limits.MemoryBytes,
		MaxConcurrentSearches: cfg.Limits.MaxConcurrentSearches,
		MaxBackgroundWorkers:  cfg.Limits.SnapshotWorkers,
		EventsPerSecond:       int64(cfg.Limits.IngestEventsPerSec),
	})

	if err := n.openStore(ctx); err != nil {
		n.release()
		return nil, err
	}

	loaders := o.loaders
	if loaders == nil {
		j, err := loader.OpenJournal(cfg.Loader.JournalDir)
		if err != nil {
			n.release()
			return nil, err
		}
		n.journal = j
		loaders = loader.NewStreamFactory(
			func(p int) (loader.DataProvider, error) {
				return j.Provider(n.groupKey[p]), nil
			},
			loader.WithBatchSize(cfg.Loader.BatchSize),
			loader.WithPollInterval(cfg.Loader.PollInterval),
			loader.WithRate(cfg.Loader.EventsPerSec),
			loader.WithResources(n.rc),
			loader.WithLogger(n.log.Logger),
		)
	}

	idxOpts := []rtindex.Option{
		rtindex.WithBatchSize(cfg.Index.BatchSize),
		rtindex.WithBatchDelay(cfg.Index.BatchDelay),
		rtindex.WithMaxBatchSize(cfg.Index.MaxBatchSize),
		rtindex.WithRealtime(cfg.Index.Realtime),
		rtindex.WithFreshness(cfg.Index.Freshness),
		rtindex.WithCompression(compressionType(cfg.Index.Compression)),
		rtindex.WithLogger(n.log.Logger),
		rtindex.WithResources(n.rc),
		rtindex.WithMetrics(o.metricsCollector),
	}
	if n.store != nil {
		idxOpts = append(idxOpts, rtindex.WithStore(n.store, ""))
	}
	factoryOpts := []rtindex.FactoryOption{rtindex.WithIndexOptions(idxOpts...)}
	for _, g := range cfg.PartitionGroups {
		factoryOpts = append(factoryOpts, rtindex.WithPartitionGroup(g...))
	}
	n.indexes = rtindex.NewFactory(factoryOpts...)

	parser := qparser.New(qparser.WithDefaultField(cfg.DefaultQueryField))
	n.builders = querybuilder.NewJSONFactory(parser,
		filter.WithSchema(o.schema),
		filter.WithCodec(o.codec),
	)

	mgrOpts := []node.Option{
		node.WithLogger(n.log.Logger),
		node.WithAdminRegistry(o.registry),
		node.WithMetrics(o.metricsCollector),
		node.WithExtensionLoader(o.extLoader),
	}
	if cfg.ExtensionDir != "" {
		mgrOpts = append(mgrOpts, node.WithExtensionDir(cfg.ExtensionDir))
	}
	n.manager = node.NewManager(cfg.NodeID, cfg.Partitions, n.indexes, loaders, n.builders, mgrOpts...)

	n.searcher = search.New(n.manager,
		search.WithLogger(n.log.Logger),
		search.WithMetrics(o.metricsCollector),
		search.WithResources(n.rc),
	)
	return n, nil
}

func (n *Node) openStore(ctx context.Context) error {
	if n.opts.store != nil {
		n.store = n.opts.store
		return nil
	}
	sc := n.cfg.Store
	var (
		st  blobstore.Store
		err error
	)
	switch sc.Kind {
	case config.StoreNone:
		return nil
	case config.StoreMemory:
		st = blobstore.NewMemoryStore()
	case config.StoreLocal:
		var local *blobstore.LocalStore
		local, err = blobstore.NewLocalStore(filepath.Join(n.cfg.DataDir, sc.Prefix))
		if err == nil {
			n.unlock, err = local.Lock()
		}
		st = local
	case config.StoreS3:
		opts := []s3.Option{s3.WithPrefix(sc.Prefix)}
		if sc.Region != "" {
			opts = append(opts, s3.WithRegion(sc.Region))
		}
		if sc.Endpoint != "" {
			opts = append(opts, s3.WithEndpoint(sc.Endpoint))
		}
		if sc.CommitTable != "" {
			opts = append(opts, s3.WithCommitTable(sc.CommitTable))
		}
		st, err = s3.Open(ctx, sc.Bucket, opts...)
	case config.StoreMinIO:
		st, err = minio.Open(minio.Config{
			Endpoint:  sc.Endpoint,
			AccessKey: sc.AccessKey,
			SecretKey: sc.SecretKey,
			UseSSL:    sc.UseSSL,
			Bucket:    sc.Bucket,
			Prefix:    sc.Prefix,
		})
	}
	if err != nil {
		return fmt.Errorf("sensei: open %s store: %w", sc.Kind, err)
	}
	if sc.CacheBytes > 0 {
		st = blobstore.NewCachingStore(st, cache.NewLRU(sc.CacheBytes, n.rc))
	}
	n.store = st
	return nil
}

func compressionType(name string) compress.Type {
	switch name {
	case config.CompressionNone:
		return compress.None
	case config.CompressionLZ4:
		return compress.LZ4
	default:
		return compress.ZSTD
	}
}

// Config returns the configuration the node was opened with.
func (n *Node) Config() config.Config { return n.cfg }

// Manager returns the partition lifecycle manager.
func (n *Node) Manager() *node.Manager { return n.manager }

// State returns the lifecycle state of the node.
func (n *Node) State() node.State { return n.manager.State() }

// Start starts every partition index and its loader.
func (n *Node) Start(ctx context.Context) error {
	start := time.Now()
	err := translateError(n.manager.Start(ctx))
	n.log.LogLifecycle(ctx, "start", time.Since(start), err)
	return err
}

// Index appends events of partition to the journal; the partition's loader
// applies them to the index. Events must carry increasing versions.
func (n *Node) Index(ctx context.Context, partition int, events ...index.Event) error {
	if n.journal == nil {
		return ErrNoJournal
	}
	if !n.served[partition] {
		return fmt.Errorf("%w: partition %d is not served", ErrInvalidRequest, partition)
	}
	err := translateError(n.journal.Append(ctx, n.groupKey[partition], events...))
	n.log.LogIndex(ctx, partition, len(events), err)
	return err
}

// Flush applies buffered events of every index and writes snapshots when a
// store is configured. Journal entries covered by a written snapshot are
// dropped.
func (n *Node) Flush(ctx context.Context) error {
	if err := n.checkStarted(); err != nil {
		return err
	}
	var errs []error
	for _, idx := range n.indexes.Indexes() {
		if err := idx.Flush(ctx); err != nil {
			errs = append(errs, fmt.Errorf("partition %d: %w", idx.Partition(), err))
			continue
		}
		v := idx.SnapshotVersion()
		if n.store == nil || n.journal == nil || v == 0 {
			continue
		}
		if err := n.journal.Truncate(idx.Partition(), v); err != nil {
			errs = append(errs, fmt.Errorf("partition %d: truncate journal: %w", idx.Partition(), err))
		}
	}
	return translateError(errors.Join(errs...))
}

// CompileFilter compiles a JSON filter document.
func (n *Node) CompileFilter(data []byte) (filter.Predicate, error) {
	start := time.Now()
	p, err := n.builders.Compiler().CompileJSON(data)
	n.opts.metricsCollector.RecordCompile(time.Since(start), err)
	n.log.LogCompile(context.Background(), string(data), err)
	return p, translateError(err)
}

// Search runs req over the node's partitions.
func (n *Node) Search(ctx context.Context, req *SearchRequest) (*SearchResult, error) {
	if err := n.checkStarted(); err != nil {
		return nil, err
	}
	res, err := n.searcher.Search(ctx, req)
	err = translateError(err)

	query := ""
	if req != nil {
		query = req.Query
	}
	hits, took := 0, time.Duration(0)
	if res != nil {
		hits, took = res.TotalHits, res.Took
	}
	n.log.LogSearch(ctx, query, hits, took, err)
	return res, err
}

// SearchJSON decodes a JSON request and runs it.
func (n *Node) SearchJSON(ctx context.Context, data []byte) (*SearchResult, error) {
	var req SearchRequest
	if err := n.opts.codec.Unmarshal(data, &req); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	return n.Search(ctx, &req)
}

// Partitions returns the partitions the node serves, sorted.
func (n *Node) Partitions() []int {
	out := n.manager.Partitions()
	slices.Sort(out)
	return out
}

func (n *Node) checkStarted() error {
	switch n.manager.State() {
	case node.Started:
		return nil
	case node.Shutdown:
		return ErrClosed
	default:
		return ErrNotStarted
	}
}
