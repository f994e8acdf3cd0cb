package blobstore

import (
	"context"
	"os"
	"path"
)

// ErrNotFound is returned when a blob does not exist.
//
// Implementations should return an error that satisfies `errors.Is(err, ErrNotFound)`.
// The default maps to `os.ErrNotExist`.
var ErrNotFound = os.ErrNotExist

// CurrentName is the base name of the pointer blob that names the latest
// committed snapshot of a directory.
const CurrentName = "CURRENT"

// Store is an abstraction for reading and writing whole blobs.
// Implementations must be safe for concurrent use.
type Store interface {
	// Get returns the content of a blob.
	Get(ctx context.Context, name string) ([]byte, error)
	// Put writes a blob atomically, replacing any previous content.
	Put(ctx context.Context, name string, data []byte) error
	// Delete removes a blob. Deleting a missing blob is not an error.
	Delete(ctx context.Context, name string) error
	// List returns the sorted names of all blobs starting with prefix.
	List(ctx context.Context, prefix string) ([]string, error)
}

// CurrentPath returns the pointer blob name of dir.
func CurrentPath(dir string) string {
	return path.Join(dir, CurrentName)
}

// IsCurrent reports whether name is a pointer blob.
func IsCurrent(name string) bool {
	return path.Base(name) == CurrentName
}

// ReadCurrent returns the snapshot name recorded in dir's pointer blob.
func ReadCurrent(ctx context.Context, s Store, dir string) (string, error) {
	b, err := s.Get(ctx, CurrentPath(dir))
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// WriteCurrent records name as dir's latest snapshot.
func WriteCurrent(ctx context.Context, s Store, dir, name string) error {
	return s.Put(ctx, CurrentPath(dir), []byte(name))
}
