package admin

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQualifiedName(t *testing.T) {
	assert.Equal(t, "docCount-1-0", QualifiedName("docCount", 1, 0))
	assert.Equal(t, "version-3-12", HookID{Base: "version", Node: 3, Partition: 12}.String())
}

func TestMetricName(t *testing.T) {
	assert.Equal(t, "sensei_index_doc_count", metricName("docCount"))
	assert.Equal(t, "sensei_index_last_flush_seconds", metricName("lastFlushSeconds"))
	assert.Equal(t, "sensei_index_a_b", metricName("a.b"))
}

func TestMemoryRegistry(t *testing.T) {
	r := NewMemoryRegistry()
	id := HookID{Base: "docCount", Node: 1, Partition: 0}

	require.NoError(t, r.Register(id, Hook{Name: "docCount", Value: func() float64 { return 42 }}))
	assert.ErrorIs(t, r.Register(id, Hook{Name: "docCount"}), ErrHookConflict)

	v, ok := r.Value(id)
	require.True(t, ok)
	assert.Equal(t, 42.0, v)

	require.NoError(t, r.Unregister(id))
	assert.ErrorIs(t, r.Unregister(id), ErrHookNotFound)
	assert.Zero(t, r.Len())
}

func TestPrometheusRegistry(t *testing.T) {
	reg := prometheus.NewPedanticRegistry()
	r := NewPrometheusRegistry(reg)

	count := 7.0
	id0 := HookID{Base: "docCount", Node: 1, Partition: 0}
	id1 := HookID{Base: "docCount", Node: 1, Partition: 1}

	require.NoError(t, r.Register(id0, Hook{Name: "docCount", Help: "Live documents.", Value: func() float64 { return count }}))
	require.NoError(t, r.Register(id1, Hook{Name: "docCount", Help: "Live documents.", Value: func() float64 { return 1 }}))

	expected := `
# HELP sensei_index_doc_count Live documents.
# TYPE sensei_index_doc_count gauge
sensei_index_doc_count{node="1",partition="0"} 7
sensei_index_doc_count{node="1",partition="1"} 1
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "sensei_index_doc_count"))

	// Same node and partition again.
	err := r.Register(id0, Hook{Name: "docCount", Help: "Live documents.", Value: func() float64 { return 0 }})
	assert.ErrorIs(t, err, ErrHookConflict)

	require.NoError(t, r.Unregister(id0))
	require.NoError(t, r.Unregister(id1))
	assert.ErrorIs(t, r.Unregister(id1), ErrHookNotFound)

	n, err := testutil.GatherAndCount(reg)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestPrometheusRegistry_NilValue(t *testing.T) {
	r := NewPrometheusRegistry(prometheus.NewRegistry())
	assert.Error(t, r.Register(HookID{Base: "x"}, Hook{Name: "x"}))
}
