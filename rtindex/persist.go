package rtindex

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/strategist922/sensei/blobstore"
	"github.com/strategist922/sensei/codec"
	"github.com/strategist922/sensei/internal/compress"
	"github.com/strategist922/sensei/internal/hash"
	"github.com/strategist922/sensei/internal/resource"
)

const snapshotFormat = 1

type snapshotFile struct {
	Format  int         `msgpack:"format"`
	Version uint64      `msgpack:"version"`
	Docs    []storedDoc `msgpack:"docs"`
}

type storedDoc struct {
	UID    int64               `msgpack:"uid"`
	Fields map[string][]string `msgpack:"fields,omitempty"`
}

// ErrBadSnapshot is returned when a snapshot file cannot be decoded.
var ErrBadSnapshot = errors.New("rtindex: bad snapshot")

func snapshotName(dir string, version uint64) string {
	return path.Join(dir, fmt.Sprintf("snap-%020d.bin", version))
}

func encodeSnapshot(f *snapshotFile, t compress.Type) ([]byte, error) {
	data, err := codec.Snapshot.Marshal(f)
	if err != nil {
		return nil, fmt.Errorf("rtindex: encode snapshot: %w", err)
	}
	frame, err := compress.Encode(data, t)
	if err != nil {
		return nil, err
	}
	return hash.Seal(frame), nil
}

func decodeSnapshot(sealed []byte) (*snapshotFile, error) {
	frame, err := hash.Verify(sealed)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBadSnapshot, err)
	}
	data, err := compress.Decode(frame)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBadSnapshot, err)
	}
	var f snapshotFile
	if err := codec.Snapshot.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBadSnapshot, err)
	}
	if f.Format != snapshotFormat {
		return nil, fmt.Errorf("%w: unknown format %d", ErrBadSnapshot, f.Format)
	}
	return &f, nil
}

// writeSnapshot stores f, points CURRENT at it and removes older snapshots.
// It returns the number of bytes written.
func writeSnapshot(ctx context.Context, s blobstore.Store, rc *resource.Controller, dir string, f *snapshotFile, t compress.Type) (int, error) {
	frame, err := encodeSnapshot(f, t)
	if err != nil {
		return 0, err
	}
	if err := rc.AcquireIO(ctx, len(frame)); err != nil {
		return 0, err
	}
	name := snapshotName(dir, f.Version)
	if err := s.Put(ctx, name, frame); err != nil {
		return 0, fmt.Errorf("rtindex: put %s: %w", name, err)
	}
	if err := blobstore.WriteCurrent(ctx, s, dir, name); err != nil {
		return 0, fmt.Errorf("rtindex: publish %s: %w", name, err)
	}

	prefix := dir
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	names, err := s.List(ctx, prefix)
	if err != nil {
		return len(frame), nil
	}
	for _, old := range names {
		if old == name || blobstore.IsCurrent(old) || !strings.HasSuffix(old, ".bin") {
			continue
		}
		_ = s.Delete(ctx, old)
	}
	return len(frame), nil
}

// readSnapshot loads the snapshot CURRENT points at. It returns nil when the
// directory holds no snapshot yet.
func readSnapshot(ctx context.Context, s blobstore.Store, dir string) (*snapshotFile, error) {
	name, err := blobstore.ReadCurrent(ctx, s, dir)
	if errors.Is(err, blobstore.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("rtindex: read current: %w", err)
	}
	frame, err := s.Get(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("rtindex: get %s: %w", name, err)
	}
	return decodeSnapshot(frame)
}
