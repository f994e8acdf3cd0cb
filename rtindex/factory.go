package rtindex

import (
	"fmt"
	"path"
	"sync"

	"github.com/strategist922/sensei/index"
)

// Factory creates partition indexes. Partitions of one group share a single
// index; every other partition gets its own.
type Factory struct {
	prefix string
	opts   []Option

	mu      sync.Mutex
	groups  map[int]int // partition -> group key
	indexes map[int]*Index
}

// FactoryOption configures a Factory.
type FactoryOption func(*Factory)

// WithSnapshotPrefix sets the store directory holding the partition
// directories. It defaults to "node-<id>".
func WithSnapshotPrefix(prefix string) FactoryOption {
	return func(f *Factory) {
		f.prefix = prefix
	}
}

// WithPartitionGroup makes the given partitions share one index.
// The group is keyed by its first partition.
func WithPartitionGroup(partitions ...int) FactoryOption {
	return func(f *Factory) {
		if len(partitions) == 0 {
			return
		}
		for _, p := range partitions {
			f.groups[p] = partitions[0]
		}
	}
}

// WithIndexOptions sets the options of every created index. WithStore is
// rewritten to point each index at its own directory below the prefix.
func WithIndexOptions(opts ...Option) FactoryOption {
	return func(f *Factory) {
		f.opts = append(f.opts, opts...)
	}
}

// NewFactory creates a Factory.
func NewFactory(opts ...FactoryOption) *Factory {
	f := &Factory{
		groups:  map[int]int{},
		indexes: map[int]*Index{},
	}
	for _, fn := range opts {
		fn(f)
	}
	return f
}

// Index returns the index serving partition of node nodeID, creating it on
// first use. An index that was shut down is replaced by a fresh one, so a
// node can start again after a failed start rolled it back.
func (f *Factory) Index(nodeID, partition int) (index.Instance, error) {
	if partition < 0 {
		return nil, fmt.Errorf("rtindex: invalid partition %d", partition)
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	key, ok := f.groups[partition]
	if !ok {
		key = partition
	}
	if idx, ok := f.indexes[key]; ok && !idx.Closed() {
		return idx, nil
	}

	opts := make([]Option, 0, len(f.opts)+1)
	opts = append(opts, f.opts...)
	prefix := f.prefix
	if prefix == "" {
		prefix = fmt.Sprintf("node-%d", nodeID)
	}
	opts = append(opts, func(o *Options) {
		if o.Store != nil {
			o.SnapshotDir = path.Join(prefix, o.SnapshotDir, fmt.Sprintf("partition-%d", key))
		}
	})
	idx := New(key, opts...)
	f.indexes[key] = idx
	return idx, nil
}

// Indexes returns the indexes created so far.
func (f *Factory) Indexes() []*Index {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*Index, 0, len(f.indexes))
	for _, idx := range f.indexes {
		out = append(out, idx)
	}
	return out
}
