package metrics

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBasic(t *testing.T) {
	var b Basic
	var c Collector = &b

	c.RecordCompile(time.Millisecond, nil)
	c.RecordCompile(time.Millisecond, errors.New("bad"))
	c.RecordSearch(2, 10, 2*time.Millisecond, nil)
	c.RecordSearch(2, 0, 4*time.Millisecond, errors.New("bad"))
	c.RecordIndexBatch(0, 5, time.Millisecond, nil)
	c.RecordSnapshot(0, 128, time.Millisecond, nil)
	c.RecordLifecycle(OpStart, time.Millisecond, nil)
	c.RecordLifecycle(OpShutdown, time.Millisecond, errors.New("bad"))

	s := b.Stats()
	assert.Equal(t, int64(2), s.CompileCount)
	assert.Equal(t, int64(1), s.CompileErrors)
	assert.Equal(t, int64(2), s.SearchCount)
	assert.Equal(t, int64(1), s.SearchErrors)
	assert.Equal(t, int64(10), s.SearchHits)
	assert.Equal(t, (3 * time.Millisecond).Nanoseconds(), s.SearchAvgNanos)
	assert.Equal(t, int64(5), s.IndexEvents)
	assert.Equal(t, int64(128), s.SnapshotBytes)
	assert.Equal(t, int64(1), s.StartCount)
	assert.Equal(t, int64(1), s.ShutdownCount)
	assert.Equal(t, int64(1), s.LifecycleErrors)
}

func TestOrNoop(t *testing.T) {
	assert.Equal(t, Noop{}, OrNoop(nil))
	b := &Basic{}
	assert.Same(t, b, OrNoop(b))
}

func TestPrometheus(t *testing.T) {
	reg := prometheus.NewRegistry()
	p := NewPrometheus(reg)

	p.RecordIndexBatch(3, 7, time.Millisecond, nil)
	p.RecordIndexBatch(3, 1, time.Millisecond, errors.New("bad"))
	p.RecordSearch(1, 4, time.Millisecond, nil)

	expected := `
# HELP sensei_index_events_total Events applied to partition indexes.
# TYPE sensei_index_events_total counter
sensei_index_events_total{partition="3"} 7
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "sensei_index_events_total"))
	assert.Equal(t, 1.0, testutil.ToFloat64(p.ops.WithLabelValues("index_batch", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(p.ops.WithLabelValues("search", "ok")))
}
