package storage

import (
	"fmt"

	"github.com/cockroachdb/pebble"
)

// DB wraps a Pebble database shared by the custody ledger, the liquidation
// bid book, and the rate-model config singletons. Each subsystem owns its
// key prefixes; all multi-key mutations go through a single Batch so one
// call commits all-or-nothing.
type DB struct {
	pdb *pebble.DB
}

// Open opens (or creates) the database at path.
func Open(path string) (*DB, error) {
	opts := &pebble.Options{
		Cache:                 pebble.NewCache(128 << 20), // 128MB cache
		MemTableSize:          64 << 20,                   // 64MB memtable
		L0CompactionThreshold: 2,
		L0StopWritesThreshold: 12,
		LBaseMaxBytes:         64 << 20,
		MaxOpenFiles:          1000,
		BytesPerSync:          512 << 10,
	}

	pdb, err := pebble.Open(path, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open pebble db at %s: %w", path, err)
	}
	return &DB{pdb: pdb}, nil
}

// Close closes the database.
func (db *DB) Close() error {
	return db.pdb.Close()
}

// Get returns the value stored under key, or (nil, nil) if the key is
// absent. The returned slice is a copy and safe to retain.
func (db *DB) Get(key []byte) ([]byte, error) {
	val, closer, err := db.pdb.Get(key)
	if err == pebble.ErrNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get %q: %w", key, err)
	}
	defer closer.Close()

	out := make([]byte, len(val))
	copy(out, val)
	return out, nil
}

// Set stores value under key with a synchronous write.
func (db *DB) Set(key, value []byte) error {
	if err := db.pdb.Set(key, value, pebble.Sync); err != nil {
		return fmt.Errorf("failed to set %q: %w", key, err)
	}
	return nil
}

// Delete removes key. Deleting an absent key is a no-op.
func (db *DB) Delete(key []byte) error {
	if err := db.pdb.Delete(key, pebble.Sync); err != nil {
		return fmt.Errorf("failed to delete %q: %w", key, err)
	}
	return nil
}

// NewIter returns an iterator over [lower, upper).
func (db *DB) NewIter(lower, upper []byte) (*pebble.Iterator, error) {
	return db.pdb.NewIter(&pebble.IterOptions{
		LowerBound: lower,
		UpperBound: upper,
	})
}

// NewBatch returns an indexed write batch. Commit with CommitBatch.
func (db *DB) NewBatch() *pebble.Batch {
	return db.pdb.NewBatch()
}

// CommitBatch commits a batch atomically with a synchronous write.
func (db *DB) CommitBatch(batch *pebble.Batch) error {
	if err := batch.Commit(pebble.Sync); err != nil {
		return fmt.Errorf("failed to commit batch: %w", err)
	}
	return nil
}
