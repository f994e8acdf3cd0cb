package sensei

import (
	"errors"
	"fmt"

	"github.com/strategist922/sensei/config"
	"github.com/strategist922/sensei/filter"
	"github.com/strategist922/sensei/index"
	"github.com/strategist922/sensei/internal/resource"
	"github.com/strategist922/sensei/loader"
	"github.com/strategist922/sensei/node"
	"github.com/strategist922/sensei/querybuilder"
	"github.com/strategist922/sensei/search"
)

var (
	// ErrInvalidRequest is returned for requests whose query or filter
	// cannot be compiled, or whose pagination is invalid.
	ErrInvalidRequest = errors.New("sensei: invalid request")
	// ErrInvalidConfig is returned by Open for an unusable configuration.
	ErrInvalidConfig = errors.New("sensei: invalid config")
	// ErrNotStarted is returned by Search before Start.
	ErrNotStarted = errors.New("sensei: node not started")
	// ErrClosed is returned after Close.
	ErrClosed = errors.New("sensei: node closed")
	// ErrOverloaded is returned when a memory limit refuses new events.
	ErrOverloaded = errors.New("sensei: node overloaded")
)

// ErrStartFailed reports the partition resource that failed to start.
//
// The original underlying error can be accessed via errors.Unwrap.
type ErrStartFailed struct {
	Partition int
	Resource  string
	cause     error
}

func (e *ErrStartFailed) Error() string {
	return fmt.Sprintf("sensei: start %s of partition %d: %v", e.Resource, e.Partition, e.cause)
}

func (e *ErrStartFailed) Unwrap() error { return e.cause }

// translateError maps lower-layer errors to the errors of this package.
// The original error stays in the chain.
func translateError(err error) error {
	if err == nil {
		return nil
	}

	var rse *node.ResourceStartError
	if errors.As(err, &rse) {
		return &ErrStartFailed{Partition: rse.Partition, Resource: string(rse.Kind), cause: err}
	}

	switch {
	case errors.Is(err, filter.ErrMalformedFilter),
		errors.Is(err, filter.ErrUnsupportedFilterType),
		errors.Is(err, querybuilder.ErrInvalidRequest),
		errors.Is(err, search.ErrInvalidRequest):
		return fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	case errors.Is(err, config.ErrInvalidConfig):
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	case errors.Is(err, index.ErrClosed), errors.Is(err, loader.ErrJournalClosed):
		return fmt.Errorf("%w: %w", ErrClosed, err)
	case errors.Is(err, resource.ErrMemoryLimitExceeded):
		return fmt.Errorf("%w: %w", ErrOverloaded, err)
	}
	return err
}
