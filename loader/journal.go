package loader

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"strconv"

	"github.com/dgraph-io/badger/v4"

	"github.com/strategist922/sensei/codec"
	"github.com/strategist922/sensei/index"
)

// ErrJournalClosed is returned after Close.
var ErrJournalClosed = errors.New("loader: journal closed")

// Journal is a durable, badger backed event log partitioned like the node.
//
// Keys are "j/<partition>/" followed by the big-endian event version, so a
// prefix scan returns a partition's events in version order. Values are
// msgpack encoded events.
type Journal struct {
	db *badger.DB
}

// OpenJournal opens or creates a journal in dir. An empty dir keeps the
// journal in memory.
func OpenJournal(dir string) (*Journal, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	if dir == "" {
		opts = opts.WithInMemory(true)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	return &Journal{db: db}, nil
}

func journalPrefix(partition int) []byte {
	return []byte("j/" + strconv.Itoa(partition) + "/")
}

func journalKey(partition int, version uint64) []byte {
	k := journalPrefix(partition)
	return binary.BigEndian.AppendUint64(k, version)
}

// Append writes events of a partition. Events must carry a version;
// rewriting a version replaces the stored event.
func (j *Journal) Append(ctx context.Context, partition int, events ...index.Event) error {
	if j.db.IsClosed() {
		return ErrJournalClosed
	}
	wb := j.db.NewWriteBatch()
	defer wb.Cancel()
	for _, e := range events {
		if err := ctx.Err(); err != nil {
			return err
		}
		if e.Version == 0 {
			return fmt.Errorf("loader: journal event uid %d has no version", e.UID)
		}
		val, err := codec.Snapshot.Marshal(e)
		if err != nil {
			return fmt.Errorf("loader: encode event: %w", err)
		}
		if err := wb.Set(journalKey(partition, e.Version), val); err != nil {
			return err
		}
	}
	return wb.Flush()
}

// Truncate drops the events of a partition up to and including version.
func (j *Journal) Truncate(partition int, version uint64) error {
	if j.db.IsClosed() {
		return ErrJournalClosed
	}
	prefix := journalPrefix(partition)
	var keys [][]byte
	err := j.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			k := it.Item().KeyCopy(nil)
			if binary.BigEndian.Uint64(k[len(prefix):]) > version {
				break
			}
			keys = append(keys, k)
		}
		return nil
	})
	if err != nil {
		return err
	}
	wb := j.db.NewWriteBatch()
	defer wb.Cancel()
	for _, k := range keys {
		if err := wb.Delete(k); err != nil {
			return err
		}
	}
	return wb.Flush()
}

// Provider returns the DataProvider of one partition.
func (j *Journal) Provider(partition int) DataProvider {
	return &journalProvider{j: j, partition: partition}
}

// Close closes the underlying database.
func (j *Journal) Close() error {
	return j.db.Close()
}

type journalProvider struct {
	j         *Journal
	partition int
}

func (p *journalProvider) Next(ctx context.Context, after uint64, max int) ([]index.Event, error) {
	if p.j.db.IsClosed() {
		return nil, ErrJournalClosed
	}
	prefix := journalPrefix(p.partition)
	var out []index.Event
	err := p.j.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Seek(journalKey(p.partition, after+1)); it.ValidForPrefix(prefix) && len(out) < max; it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			var e index.Event
			if err := it.Item().Value(func(val []byte) error {
				return codec.Snapshot.Unmarshal(val, &e)
			}); err != nil {
				return fmt.Errorf("loader: decode event: %w", err)
			}
			out = append(out, e)
		}
		return nil
	})
	return out, err
}
