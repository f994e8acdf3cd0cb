package search

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/strategist922/sensei/index"
	"github.com/strategist922/sensei/internal/resource"
	"github.com/strategist922/sensei/metrics"
	"github.com/strategist922/sensei/qparser"
	"github.com/strategist922/sensei/querybuilder"
	"github.com/strategist922/sensei/rtindex"
)

type source struct {
	partitions []int
	readers    map[int]index.ReaderFactory
	builders   map[int]querybuilder.Factory
}

func (s *source) Partitions() []int { return s.partitions }

func (s *source) IndexReaderFactory(p int) (index.ReaderFactory, bool) {
	rf, ok := s.readers[p]
	return rf, ok
}

func (s *source) QueryBuilderFactory(p int) (querybuilder.Factory, bool) {
	qf, ok := s.builders[p]
	return qf, ok
}

type brokenReader struct{}

func (brokenReader) Reader() (index.Reader, error) { return nil, errors.New("reader gone") }

// funcReader is a value-typed factory that cannot be used as a map key.
type funcReader struct {
	fn func() (index.Reader, error)
}

func (f funcReader) Reader() (index.Reader, error) { return f.fn() }

func doc(uid int64, color string) index.Event {
	return index.Event{
		UID:     uid,
		Version: uint64(uid),
		Fields: map[string][]string{
			"color":    {color},
			"contents": {"car", "number", fmt.Sprint(uid)},
		},
	}
}

// newSource builds partitions 0 and 1 holding four documents each.
func newSource(t *testing.T) *source {
	t.Helper()
	ctx := context.Background()
	qb := querybuilder.NewJSONFactory(qparser.New())
	src := &source{
		partitions: []int{0, 1},
		readers:    map[int]index.ReaderFactory{},
		builders:   map[int]querybuilder.Factory{},
	}
	for _, p := range src.partitions {
		idx := rtindex.New(p)
		require.NoError(t, idx.Start(ctx))
		t.Cleanup(func() { _ = idx.Shutdown(context.Background()) })

		base := int64(p * 10)
		require.NoError(t, idx.Consume(ctx, []index.Event{
			doc(base+1, "red"), doc(base+2, "blue"), doc(base+3, "red"), doc(base+4, "green"),
		}))
		src.readers[p] = idx
		src.builders[p] = qb
	}
	return src
}

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

func uidsOf(hits []Hit) []int64 {
	out := make([]int64, len(hits))
	for i, h := range hits {
		out[i] = h.UID
	}
	return out
}

func TestSearch_AllPartitions(t *testing.T) {
	basic := &metrics.Basic{}
	s := New(newSource(t), WithLogger(quiet), WithMetrics(basic))

	req := &Request{}
	req.Filter = map[string]any{"term": map[string]any{"color": "red"}}
	res, err := s.Search(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, StatusSuccess, res.Status)
	assert.Equal(t, 4, res.TotalHits)
	assert.Equal(t, []int64{1, 3, 11, 13}, uidsOf(res.Hits))
	assert.Equal(t, map[int]int{0: 2, 1: 2}, res.PartitionHits)
	assert.Equal(t, 1, res.Hits[2].Partition)
	assert.Empty(t, res.Errors)

	stats := basic.Stats()
	assert.Equal(t, int64(1), stats.SearchCount)
	assert.Equal(t, int64(4), stats.SearchHits)
}

func TestSearch_QueryAndFilter(t *testing.T) {
	s := New(newSource(t), WithLogger(quiet))

	req := &Request{Partitions: []int{1}}
	req.Query = "car AND 12"
	res, err := s.Search(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, []int64{12}, uidsOf(res.Hits))

	req.Query = "color:red OR color:green"
	req.Filter = map[string]any{"ids": map[string]any{"excludes": []any{13}}}
	res, err = s.Search(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, []int64{11, 14}, uidsOf(res.Hits))
	assert.Equal(t, map[int]int{1: 2}, res.PartitionHits)
}

func TestSearch_Pagination(t *testing.T) {
	s := New(newSource(t), WithLogger(quiet))
	ctx := context.Background()

	res, err := s.Search(ctx, &Request{Offset: 2, Count: 3})
	require.NoError(t, err)
	assert.Equal(t, 8, res.TotalHits)
	assert.Equal(t, []int64{3, 4, 11}, uidsOf(res.Hits))

	res, err = s.Search(ctx, &Request{Offset: 7, Count: 5})
	require.NoError(t, err)
	assert.Equal(t, []int64{14}, uidsOf(res.Hits))

	res, err = s.Search(ctx, &Request{Offset: 100})
	require.NoError(t, err)
	assert.Empty(t, res.Hits)
	assert.Equal(t, 8, res.TotalHits)

	res, err = s.Search(ctx, nil)
	require.NoError(t, err)
	assert.Len(t, res.Hits, 8)

	_, err = s.Search(ctx, &Request{Offset: -1})
	assert.ErrorIs(t, err, ErrInvalidRequest)
}

func TestSearch_DefaultCount(t *testing.T) {
	ctx := context.Background()
	idx := rtindex.New(0)
	require.NoError(t, idx.Start(ctx))
	defer func() { _ = idx.Shutdown(ctx) }()

	events := make([]index.Event, 25)
	for i := range events {
		events[i] = doc(int64(i+1), "red")
	}
	require.NoError(t, idx.Consume(ctx, events))

	src := &source{
		partitions: []int{0},
		readers:    map[int]index.ReaderFactory{0: idx},
		builders:   map[int]querybuilder.Factory{0: querybuilder.NewJSONFactory(qparser.New())},
	}
	res, err := New(src, WithLogger(quiet)).Search(ctx, &Request{})
	require.NoError(t, err)
	assert.Equal(t, 25, res.TotalHits)
	assert.Len(t, res.Hits, DefaultCount)
}

func TestSearch_SharedIndexEvaluatedOnce(t *testing.T) {
	src := newSource(t)
	src.partitions = []int{0, 1, 2}
	src.readers[2] = src.readers[0]
	src.builders[2] = src.builders[0]

	res, err := New(src, WithLogger(quiet)).Search(context.Background(), &Request{Count: 100})
	require.NoError(t, err)
	assert.Equal(t, 8, res.TotalHits)
	assert.Equal(t, map[int]int{0: 4, 1: 4}, res.PartitionHits)
}

func TestSearch_ValueReaderFactories(t *testing.T) {
	src := newSource(t)
	rf0, rf1 := src.readers[0], src.readers[1]
	src.readers[0] = funcReader{fn: rf0.Reader}
	src.readers[1] = funcReader{fn: rf1.Reader}

	var res *Result
	var err error
	require.NotPanics(t, func() {
		res, err = New(src, WithLogger(quiet)).Search(context.Background(), &Request{Count: 100})
	})
	require.NoError(t, err)
	assert.Equal(t, map[int]int{0: 4, 1: 4}, res.PartitionHits)

	// Equal values are separate factories, one per partition.
	src.readers[0] = brokenReader{}
	src.readers[1] = brokenReader{}
	_, err = New(src, WithLogger(quiet)).Search(context.Background(), &Request{})
	require.ErrorIs(t, err, ErrAllPartitionsFailed)
	var pe *PartitionError
	require.ErrorAs(t, err, &pe)
	assert.ErrorContains(t, err, "partition 0")
	assert.ErrorContains(t, err, "partition 1")
}

func TestSearch_PartialFailure(t *testing.T) {
	src := newSource(t)
	src.readers[1] = brokenReader{}

	res, err := New(src, WithLogger(quiet)).Search(context.Background(), &Request{Partitions: []int{0, 1, 9}})
	require.NoError(t, err)
	assert.Equal(t, StatusPartial, res.Status)
	assert.Equal(t, 4, res.TotalHits)
	require.Len(t, res.Errors, 2)

	byPartition := map[int]error{}
	for _, e := range res.Errors {
		byPartition[e.Partition] = e
	}
	assert.ErrorIs(t, byPartition[9], ErrNotServed)
	assert.EqualError(t, byPartition[1], "search: partition 1: reader gone")
}

func TestSearch_AllFailed(t *testing.T) {
	src := newSource(t)
	_, err := New(src, WithLogger(quiet)).Search(context.Background(), &Request{Partitions: []int{5, 6}})
	assert.ErrorIs(t, err, ErrAllPartitionsFailed)
	assert.ErrorIs(t, err, ErrNotServed)

	_, err = New(&source{}, WithLogger(quiet)).Search(context.Background(), &Request{})
	assert.ErrorIs(t, err, ErrNoPartitions)
}

func TestSearch_InvalidQuery(t *testing.T) {
	basic := &metrics.Basic{}
	s := New(newSource(t), WithLogger(quiet), WithMetrics(basic))

	req := &Request{}
	req.Filter = map[string]any{"nope": map[string]any{}}
	_, err := s.Search(context.Background(), req)
	assert.ErrorIs(t, err, ErrInvalidRequest)

	req = &Request{}
	req.Query = "color:(red"
	_, err = s.Search(context.Background(), req)
	assert.ErrorIs(t, err, ErrInvalidRequest)
	assert.ErrorIs(t, err, querybuilder.ErrInvalidRequest)

	assert.Equal(t, int64(2), basic.Stats().SearchErrors)
}

func TestSearch_ConcurrencyLimit(t *testing.T) {
	rc := resource.NewController(resource.Config{MaxConcurrentSearches: 1})
	s := New(newSource(t), WithLogger(quiet), WithResources(rc))

	require.NoError(t, rc.AcquireSearch(context.Background()))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := s.Search(ctx, &Request{})
	assert.ErrorIs(t, err, context.Canceled)

	rc.ReleaseSearch()
	_, err = s.Search(context.Background(), &Request{})
	assert.NoError(t, err)
}
