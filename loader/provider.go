package loader

import (
	"context"
	"sort"
	"sync"

	"github.com/strategist922/sensei/index"
)

// DataProvider is a versioned source of events for one partition.
// Implementations must be safe for concurrent use.
type DataProvider interface {
	// Next returns up to max events with a version above after, in version
	// order. An empty result means nothing is available yet.
	Next(ctx context.Context, after uint64, max int) ([]index.Event, error)
}

// MemoryProvider is an in-memory DataProvider, mainly for tests and
// embedding.
type MemoryProvider struct {
	mu     sync.RWMutex
	events []index.Event
}

var _ DataProvider = (*MemoryProvider)(nil)

// NewMemoryProvider creates a provider holding events.
func NewMemoryProvider(events ...index.Event) *MemoryProvider {
	p := &MemoryProvider{}
	p.Append(events...)
	return p
}

// Append adds events. Events are kept ordered by version.
func (p *MemoryProvider) Append(events ...index.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, events...)
	sort.SliceStable(p.events, func(i, j int) bool {
		return p.events[i].Version < p.events[j].Version
	})
}

// Next implements DataProvider.
func (p *MemoryProvider) Next(_ context.Context, after uint64, max int) ([]index.Event, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	i := sort.Search(len(p.events), func(i int) bool {
		return p.events[i].Version > after
	})
	end := min(i+max, len(p.events))
	if i >= end {
		return nil, nil
	}
	out := make([]index.Event, end-i)
	copy(out, p.events[i:end])
	return out, nil
}
