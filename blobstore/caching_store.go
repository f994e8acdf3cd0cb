package blobstore

import (
	"context"

	"github.com/strategist922/sensei/internal/cache"
)

// CachingStore wraps a Store and caches whole blobs read through it.
// Pointer blobs are never cached because another writer may move them.
type CachingStore struct {
	inner Store
	cache *cache.LRU
}

// NewCachingStore creates a new CachingStore.
func NewCachingStore(inner Store, c *cache.LRU) *CachingStore {
	return &CachingStore{
		inner: inner,
		cache: c,
	}
}

// Get returns the cached blob or reads it from the inner store.
func (s *CachingStore) Get(ctx context.Context, name string) ([]byte, error) {
	if IsCurrent(name) {
		return s.inner.Get(ctx, name)
	}
	if b, ok := s.cache.Get(name); ok {
		out := make([]byte, len(b))
		copy(out, b)
		return out, nil
	}
	b, err := s.inner.Get(ctx, name)
	if err != nil {
		return nil, err
	}
	cached := make([]byte, len(b))
	copy(cached, b)
	s.cache.Set(name, cached)
	return b, nil
}

// Put invalidates the cached entry and writes through.
func (s *CachingStore) Put(ctx context.Context, name string, data []byte) error {
	s.cache.Remove(name)
	return s.inner.Put(ctx, name, data)
}

// Delete invalidates the cached entry and deletes through.
func (s *CachingStore) Delete(ctx context.Context, name string) error {
	s.cache.Remove(name)
	return s.inner.Delete(ctx, name)
}

// List is passed through.
func (s *CachingStore) List(ctx context.Context, prefix string) ([]string, error) {
	return s.inner.List(ctx, prefix)
}
