package cache

import (
	"testing"

	"github.com/strategist922/sensei/internal/resource"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLRU_Eviction(t *testing.T) {
	c := NewLRU(10, nil)

	c.Set("a", []byte("1234"))
	c.Set("b", []byte("5678"))
	_, ok := c.Get("a") // a becomes most recent
	require.True(t, ok)

	c.Set("c", []byte("90ab"))

	_, ok = c.Get("b")
	assert.False(t, ok, "b should be evicted")
	v, ok := c.Get("a")
	assert.True(t, ok)
	assert.Equal(t, []byte("1234"), v)
	assert.Equal(t, int64(8), c.Size())

	hits, misses := c.Stats()
	assert.Equal(t, int64(2), hits)
	assert.Equal(t, int64(1), misses)
}

func TestLRU_OversizedNotCached(t *testing.T) {
	c := NewLRU(4, nil)
	c.Set("big", []byte("12345"))
	assert.Zero(t, c.Len())
}

func TestLRU_Replace(t *testing.T) {
	c := NewLRU(100, nil)
	c.Set("a", []byte("12"))
	c.Set("a", []byte("1234"))
	assert.Equal(t, int64(4), c.Size())
	assert.Equal(t, 1, c.Len())
}

func TestLRU_RemovePrefix(t *testing.T) {
	c := NewLRU(100, nil)
	c.Set("p0/snap-1", []byte("x"))
	c.Set("p0/snap-2", []byte("y"))
	c.Set("p1/snap-1", []byte("z"))

	c.RemovePrefix("p0/")
	assert.Equal(t, 1, c.Len())

	c.Remove("p1/snap-1")
	assert.Zero(t, c.Len())
	assert.Zero(t, c.Size())
}

func TestLRU_ResourceController(t *testing.T) {
	rc := resource.NewController(resource.Config{MemoryLimitBytes: 6})
	c := NewLRU(100, rc)

	c.Set("a", []byte("1234"))
	assert.Equal(t, int64(4), rc.MemoryUsage())

	// Denied by the node-wide limit.
	c.Set("b", []byte("1234"))
	_, ok := c.Get("b")
	assert.False(t, ok)

	c.Remove("a")
	assert.Zero(t, rc.MemoryUsage())
}
