package blobstore

import (
	"context"
	"testing"

	"github.com/strategist922/sensei/internal/cache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingStore struct {
	*MemoryStore
	gets int
}

func (c *countingStore) Get(ctx context.Context, name string) ([]byte, error) {
	c.gets++
	return c.MemoryStore.Get(ctx, name)
}

func TestCachingStore(t *testing.T) {
	ctx := context.Background()
	inner := &countingStore{MemoryStore: NewMemoryStore()}
	s := NewCachingStore(inner, cache.NewLRU(1<<20, nil))

	testStoreContract(t, s)

	require.NoError(t, s.Put(ctx, "snap.bin", []byte("v1")))
	inner.gets = 0

	for range 3 {
		got, err := s.Get(ctx, "snap.bin")
		require.NoError(t, err)
		assert.Equal(t, []byte("v1"), got)
	}
	assert.Equal(t, 1, inner.gets)

	// Writes invalidate.
	require.NoError(t, s.Put(ctx, "snap.bin", []byte("v2")))
	got, err := s.Get(ctx, "snap.bin")
	require.NoError(t, err)
	assert.Equal(t, []byte("v2"), got)
	assert.Equal(t, 2, inner.gets)
}

func TestCachingStore_PointerNotCached(t *testing.T) {
	ctx := context.Background()
	inner := &countingStore{MemoryStore: NewMemoryStore()}
	s := NewCachingStore(inner, cache.NewLRU(1<<20, nil))

	require.NoError(t, WriteCurrent(ctx, inner, "p0", "snap-1"))
	_, err := ReadCurrent(ctx, s, "p0")
	require.NoError(t, err)

	// Another writer moves the pointer behind the cache's back.
	require.NoError(t, WriteCurrent(ctx, inner, "p0", "snap-2"))
	cur, err := ReadCurrent(ctx, s, "p0")
	require.NoError(t, err)
	assert.Equal(t, "snap-2", cur)
}
