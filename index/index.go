package index

import (
	"context"
	"errors"

	"github.com/strategist922/sensei/filter"
)

var (
	// ErrNotStarted is returned by operations that need a started index.
	ErrNotStarted = errors.New("index: not started")
	// ErrClosed is returned after Shutdown.
	ErrClosed = errors.New("index: closed")
)

// Event is one update of the document stream. A later event for the same
// UID replaces the document.
type Event struct {
	UID int64 `msgpack:"uid" json:"uid"`
	// Version orders events of one stream. Loaders resume after the
	// version reported by the index.
	Version uint64              `msgpack:"v" json:"version"`
	Delete  bool                `msgpack:"d,omitempty" json:"delete,omitempty"`
	Fields  map[string][]string `msgpack:"f,omitempty" json:"fields,omitempty"`
}

// Reader is an immutable point-in-time view of a partition index.
type Reader interface {
	filter.Reader
	// UID returns the external id of a live document.
	UID(doc uint32) (int64, bool)
	// NumDocs returns the number of live documents.
	NumDocs() int
	// Version returns the highest event version visible to the reader.
	Version() uint64
}

// ReaderFactory hands out current readers. Reader must not block.
type ReaderFactory interface {
	Reader() (Reader, error)
}

// Consumer accepts events.
type Consumer interface {
	Consume(ctx context.Context, events []Event) error
	// Version returns the highest event version accepted so far.
	Version() uint64
}

// Instance is a partition index with a lifecycle. Several partitions may
// share one instance.
type Instance interface {
	ReaderFactory
	Consumer
	Start(ctx context.Context) error
	Shutdown(ctx context.Context) error
}
