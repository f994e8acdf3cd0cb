package search

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/strategist922/sensei/index"
	"github.com/strategist922/sensei/internal/ident"
	"github.com/strategist922/sensei/internal/resource"
	"github.com/strategist922/sensei/metrics"
	"github.com/strategist922/sensei/querybuilder"
)

// DefaultCount is the page size when a request leaves Count at zero.
const DefaultCount = 10

var (
	// ErrInvalidRequest is returned for malformed pagination or queries.
	ErrInvalidRequest = errors.New("search: invalid request")
	// ErrNoPartitions is returned when nothing is served.
	ErrNoPartitions = errors.New("search: no partitions to search")
	// ErrAllPartitionsFailed is returned when no partition could be searched.
	ErrAllPartitionsFailed = errors.New("search: all partitions failed")
	// ErrNotServed is reported for a partition the node does not serve,
	// either because it is not owned or because the node is not started.
	ErrNotServed = errors.New("search: partition not served")
)

// Source resolves the per-partition collaborators. node.Manager
// implements it.
type Source interface {
	Partitions() []int
	IndexReaderFactory(partition int) (index.ReaderFactory, bool)
	QueryBuilderFactory(partition int) (querybuilder.Factory, bool)
}

// Request is a search request.
type Request struct {
	querybuilder.Request `msgpack:",inline"`

	// Partitions restricts the search. Empty means every served partition.
	Partitions []int `json:"partitions,omitempty" msgpack:"partitions,omitempty"`
	Offset     int   `json:"offset,omitempty" msgpack:"offset,omitempty"`
	// Count is the page size; zero means DefaultCount.
	Count int `json:"count,omitempty" msgpack:"count,omitempty"`
}

// Hit is one matching document.
type Hit struct {
	UID       int64 `json:"uid"`
	Partition int   `json:"partition"`
}

// Status summarizes how many partitions answered.
type Status string

const (
	StatusSuccess Status = "success"
	StatusPartial Status = "partial"
)

// PartitionError describes a partition that could not be searched.
type PartitionError struct {
	Partition int
	Err       error
}

func (e *PartitionError) Error() string {
	return fmt.Sprintf("search: partition %d: %v", e.Partition, e.Err)
}

func (e *PartitionError) Unwrap() error { return e.Err }

// Result is a page of hits plus totals.
type Result struct {
	Status    Status `json:"status"`
	TotalHits int    `json:"totalHits"`
	Hits      []Hit  `json:"hits"`
	// PartitionHits counts matches per searched partition. Partitions that
	// share an index are reported under the lowest of them.
	PartitionHits map[int]int       `json:"partitionHits"`
	Errors        []*PartitionError `json:"-"`
	Took          time.Duration     `json:"took"`
}

type options struct {
	logger      *slog.Logger
	metrics     metrics.Collector
	resources   *resource.Controller
	maxParallel int
	timeout     time.Duration
}

// Option configures a Searcher.
type Option func(*options)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithMetrics sets the metrics collector.
func WithMetrics(c metrics.Collector) Option {
	return func(o *options) {
		o.metrics = metrics.OrNoop(c)
	}
}

// WithResources bounds concurrent searches with rc.
func WithResources(rc *resource.Controller) Option {
	return func(o *options) {
		o.resources = rc
	}
}

// WithMaxParallel bounds the partitions evaluated at once per request.
func WithMaxParallel(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxParallel = n
		}
	}
}

// WithTimeout bounds each request.
func WithTimeout(d time.Duration) Option {
	return func(o *options) {
		o.timeout = d
	}
}

// Searcher executes requests. It is safe for concurrent use.
type Searcher struct {
	src  Source
	opts options
	log  *slog.Logger
}

// New creates a Searcher over src.
func New(src Source, opts ...Option) *Searcher {
	o := options{
		logger:      slog.Default(),
		metrics:     metrics.Noop{},
		maxParallel: 8,
	}
	for _, fn := range opts {
		fn(&o)
	}
	return &Searcher{src: src, opts: o, log: o.logger.With("component", "search")}
}

// group is the set of requested partitions backed by one reader factory.
type group struct {
	partition int // lowest partition of the group
	rf        index.ReaderFactory
	qf        querybuilder.Factory
	uids      []int64
	err       error
}

// Search runs req. A request that fails to compile fails as a whole; a
// partition that cannot be read is reported in Result.Errors and the
// search continues with the others.
func (s *Searcher) Search(ctx context.Context, req *Request) (res *Result, err error) {
	start := time.Now()
	searched := 0
	defer func() {
		hits := 0
		if res != nil {
			hits = res.TotalHits
		}
		s.opts.metrics.RecordSearch(searched, hits, time.Since(start), err)
	}()

	if req == nil {
		req = &Request{}
	}

	if req.Offset < 0 || req.Count < 0 {
		return nil, fmt.Errorf("%w: negative offset or count", ErrInvalidRequest)
	}
	if s.opts.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.timeout)
		defer cancel()
	}
	if err := s.opts.resources.AcquireSearch(ctx); err != nil {
		return nil, err
	}
	defer s.opts.resources.ReleaseSearch()

	partitions := req.Partitions
	if len(partitions) == 0 {
		partitions = s.src.Partitions()
	}
	if len(partitions) == 0 {
		return nil, ErrNoPartitions
	}

	groups, failed := s.resolve(partitions)
	searched = len(groups)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.maxParallel)
	for _, gr := range groups {
		g.Go(func() error {
			return s.searchGroup(gctx, gr, &req.Request)
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	res = &Result{
		Status:        StatusSuccess,
		PartitionHits: make(map[int]int, len(groups)),
		Errors:        failed,
	}
	var hits []Hit
	for _, gr := range groups {
		if gr.err != nil {
			res.Errors = append(res.Errors, &PartitionError{Partition: gr.partition, Err: gr.err})
			s.log.Warn("partition search failed", "partition", gr.partition, "error", gr.err)
			continue
		}
		res.PartitionHits[gr.partition] = len(gr.uids)
		for _, uid := range gr.uids {
			hits = append(hits, Hit{UID: uid, Partition: gr.partition})
		}
	}
	if len(res.PartitionHits) == 0 {
		return nil, fmt.Errorf("%w: %w", ErrAllPartitionsFailed, joinPartitionErrors(res.Errors))
	}
	if len(res.Errors) > 0 {
		res.Status = StatusPartial
	}

	slices.SortFunc(hits, func(a, b Hit) int {
		return cmp.Or(cmp.Compare(a.UID, b.UID), cmp.Compare(a.Partition, b.Partition))
	})
	res.TotalHits = len(hits)
	res.Hits = page(hits, req.Offset, req.Count)
	res.Took = time.Since(start)

	s.log.Debug("search done",
		"partitions", len(partitions),
		"hits", res.TotalHits,
		"status", res.Status,
		"took", res.Took,
	)
	return res, nil
}

// resolve groups partitions by reader factory identity (see ident.Of).
// Unknown or unserved partitions are returned as errors.
func (s *Searcher) resolve(partitions []int) ([]*group, []*PartitionError) {
	sorted := slices.Clone(partitions)
	slices.Sort(sorted)
	sorted = slices.Compact(sorted)

	var (
		groups []*group
		failed []*PartitionError
		byRF   = make(map[ident.Key]*group)
	)
	for _, p := range sorted {
		rf, ok := s.src.IndexReaderFactory(p)
		if !ok {
			failed = append(failed, &PartitionError{Partition: p, Err: ErrNotServed})
			continue
		}
		key, shared := ident.Of(rf)
		if _, seen := byRF[key]; shared && seen {
			continue
		}
		qf, ok := s.src.QueryBuilderFactory(p)
		if !ok {
			failed = append(failed, &PartitionError{Partition: p, Err: ErrNotServed})
			continue
		}
		gr := &group{partition: p, rf: rf, qf: qf}
		if shared {
			byRF[key] = gr
		}
		groups = append(groups, gr)
	}
	return groups, failed
}

// searchGroup evaluates one reader. Only request errors are returned; read
// failures are kept on the group.
func (s *Searcher) searchGroup(ctx context.Context, gr *group, req *querybuilder.Request) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b, err := gr.qf.NewBuilder(req)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	r, err := gr.rf.Reader()
	if err != nil {
		gr.err = err
		return nil
	}
	matches := querybuilder.Combined(b).Eval(r)

	uids := make([]int64, 0, matches.GetCardinality())
	it := matches.Iterator()
	for it.HasNext() {
		if uid, ok := r.UID(it.Next()); ok {
			uids = append(uids, uid)
		}
	}
	gr.uids = uids
	return nil
}

func page(hits []Hit, offset, count int) []Hit {
	if count == 0 {
		count = DefaultCount
	}
	if offset >= len(hits) {
		return []Hit{}
	}
	end := min(offset+count, len(hits))
	return hits[offset:end]
}

func joinPartitionErrors(errs []*PartitionError) error {
	out := make([]error, len(errs))
	for i, e := range errs {
		out[i] = e
	}
	return errors.Join(out...)
}
