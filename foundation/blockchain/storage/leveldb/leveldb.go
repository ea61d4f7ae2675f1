// Package leveldb implements the database storage interface on top of a
// goleveldb key value store.
package leveldb

import (
	"errors"
	"fmt"
	"os"

	"github.com/ardanlabs/utxoledger/foundation/blockchain/database"
	"github.com/syndtr/goleveldb/leveldb"
	ldberrors "github.com/syndtr/goleveldb/leveldb/errors"
	"github.com/syndtr/goleveldb/leveldb/filter"
	"github.com/syndtr/goleveldb/leveldb/iterator"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/storage"
	"github.com/syndtr/goleveldb/leveldb/util"
)

// Set of errors returned by the storage.
var (
	ErrCorrupted = errors.New("storage corrupted")
	ErrClosed    = errors.New("storage closed")
)

// syncWrites makes every write hit the disk before returning.
var syncWrites = opt.WriteOptions{Sync: true}

// LevelDB represents the storage implementation for reading and storing the
// ledger in leveldb. This implements the database.Storage interface.
type LevelDB struct {
	db *leveldb.DB
}

// Open loads, or creates when needed, the leveldb database at the path.
func Open(dbPath string) (*LevelDB, error) {
	if err := os.MkdirAll(dbPath, 0700); err != nil {
		return nil, err
	}

	opts := opt.Options{
		Strict:      opt.DefaultStrict,
		Compression: opt.NoCompression,
		Filter:      filter.NewBloomFilter(10),
	}

	db, err := leveldb.OpenFile(dbPath, &opts)
	if err != nil {
		return nil, convertLdbErr(err, "failed to open leveldb database")
	}

	return &LevelDB{db: db}, nil
}

// OpenMemory constructs a leveldb database that lives only in memory.
func OpenMemory() (*LevelDB, error) {
	db, err := leveldb.Open(storage.NewMemStorage(), nil)
	if err != nil {
		return nil, convertLdbErr(err, "failed to open leveldb memory database")
	}

	return &LevelDB{db: db}, nil
}

// Get returns the value for the key or database.ErrNotFound.
func (l *LevelDB) Get(key []byte) ([]byte, error) {
	value, err := l.db.Get(key, nil)
	if err != nil {
		if errors.Is(err, leveldb.ErrNotFound) {
			return nil, database.ErrNotFound
		}
		return nil, convertLdbErr(err, fmt.Sprintf("failed to get key %x", key))
	}

	return value, nil
}

// Insert writes the key and value.
func (l *LevelDB) Insert(key []byte, value []byte) error {
	if err := l.db.Put(key, value, &syncWrites); err != nil {
		return convertLdbErr(err, fmt.Sprintf("failed to put key %x", key))
	}

	return nil
}

// Remove deletes the key. Removing a key that does not exist is not an error.
func (l *LevelDB) Remove(key []byte) error {
	if err := l.db.Delete(key, &syncWrites); err != nil {
		return convertLdbErr(err, fmt.Sprintf("failed to delete key %x", key))
	}

	return nil
}

// Write applies every operation of the batch atomically.
func (l *LevelDB) Write(batch *database.Batch) error {
	var b leveldb.Batch
	for _, op := range batch.Ops() {
		if op.Delete {
			b.Delete(op.Key)
			continue
		}
		b.Put(op.Key, op.Value)
	}

	if err := l.db.Write(&b, &syncWrites); err != nil {
		return convertLdbErr(err, "failed to write batch")
	}

	return nil
}

// ForEach returns an iterator over the keys starting with the prefix, in
// key order.
func (l *LevelDB) ForEach(prefix []byte) database.Iterator {
	var slice *util.Range
	if prefix != nil {
		slice = util.BytesPrefix(prefix)
	}

	return &levelDBIterator{iter: l.db.NewIterator(slice, nil)}
}

// Flush has nothing to do since every write is synced to disk.
func (l *LevelDB) Flush() error {
	return nil
}

// Close closes the database.
func (l *LevelDB) Close() error {
	if err := l.db.Close(); err != nil {
		return convertLdbErr(err, "failed to close leveldb database")
	}

	return nil
}

// =============================================================================

// levelDBIterator represents the iteration implementation for walking a
// range of keys. This implements the database Iterator interface.
type levelDBIterator struct {
	iter iterator.Iterator
	done bool
}

// Next moves to the next key and returns a copy of the key and value.
func (li *levelDBIterator) Next() ([]byte, []byte, error) {
	if li.done {
		return nil, nil, nil
	}

	if !li.iter.Next() {
		li.done = true
		if err := li.iter.Error(); err != nil {
			return nil, nil, convertLdbErr(err, "failed to iterate")
		}
		return nil, nil, nil
	}

	key := append([]byte(nil), li.iter.Key()...)
	value := append([]byte(nil), li.iter.Value()...)

	return key, value, nil
}

// Done returns true once Next has walked past the last key.
func (li *levelDBIterator) Done() bool {
	return li.done
}

// Release releases the iterator and returns any iteration error.
func (li *levelDBIterator) Release() error {
	err := li.iter.Error()
	li.iter.Release()

	if err != nil {
		return convertLdbErr(err, "iterator failed")
	}

	return nil
}

// =============================================================================

// convertLdbErr wraps a leveldb error with the description and one of the
// package errors when it is recognized.
func convertLdbErr(ldbErr error, desc string) error {
	switch {
	case ldberrors.IsCorrupted(ldbErr):
		return fmt.Errorf("%w: %s: %v", ErrCorrupted, desc, ldbErr)

	case errors.Is(ldbErr, leveldb.ErrClosed):
		return fmt.Errorf("%w: %s: %v", ErrClosed, desc, ldbErr)
	}

	return fmt.Errorf("%s: %w", desc, ldbErr)
}
