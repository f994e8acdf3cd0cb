// Package loader feeds partition indexes from update streams.
package loader

import (
	"context"
	"fmt"

	"github.com/strategist922/sensei/index"
)

// Loader moves events from a source into an index until shut down.
type Loader interface {
	Start(ctx context.Context) error
	Shutdown(ctx context.Context) error
}

// Factory returns the loader of a partition. Partitions sharing one index
// may receive the same Loader.
type Factory interface {
	Loader(partition int, target index.Consumer) (Loader, error)
}

// ShutdownError reports a loader that did not stop cleanly.
type ShutdownError struct {
	Partition int
	Err       error
}

func (e *ShutdownError) Error() string {
	return fmt.Sprintf("loader: shutdown partition %d: %v", e.Partition, e.Err)
}

func (e *ShutdownError) Unwrap() error { return e.Err }

// NoopFactory hands out loaders that do nothing. Used when indexes are fed
// by other means, or not at all.
type NoopFactory struct{}

// Loader implements Factory.
func (NoopFactory) Loader(int, index.Consumer) (Loader, error) {
	return &noopLoader{}, nil
}

type noopLoader struct{}

func (*noopLoader) Start(context.Context) error    { return nil }
func (*noopLoader) Shutdown(context.Context) error { return nil }
