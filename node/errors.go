package node

import (
	"fmt"
)

// ResourceKind names the resource a partition failed to bring up.
type ResourceKind string

const (
	KindIndex  ResourceKind = "index"
	KindLoader ResourceKind = "loader"
)

// ResourceStartError reports a partition resource that could not be
// obtained or started. Start fails with it after rolling back.
type ResourceStartError struct {
	Partition int
	Kind      ResourceKind
	Err       error
}

func (e *ResourceStartError) Error() string {
	return fmt.Sprintf("node: start %s for partition %d: %v", e.Kind, e.Partition, e.Err)
}

func (e *ResourceStartError) Unwrap() error { return e.Err }
