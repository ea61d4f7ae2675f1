// Package memory implements the ability to read and write the ledger to
// memory using a map.
package memory

import (
	"bytes"
	"errors"
	"slices"
	"sync"

	"github.com/ardanlabs/utxoledger/foundation/blockchain/database"
)

// ErrClosed is returned for any use of the storage after Close.
var ErrClosed = errors.New("storage closed")

// Memory represents the storage implementation for reading and storing the
// ledger in memory using a map. This implements the database.Storage
// interface.
type Memory struct {
	mu     sync.RWMutex
	data   map[string][]byte
	closed bool
}

// New constructs an Memory value for use.
func New() (*Memory, error) {
	return &Memory{data: make(map[string][]byte)}, nil
}

// Get returns a copy of the value for the key or database.ErrNotFound.
func (m *Memory) Get(key []byte) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrClosed
	}

	value, exists := m.data[string(key)]
	if !exists {
		return nil, database.ErrNotFound
	}

	return bytes.Clone(value), nil
}

// Insert stores a copy of the key and value.
func (m *Memory) Insert(key []byte, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrClosed
	}

	m.data[string(key)] = bytes.Clone(value)
	return nil
}

// Remove deletes the key.
func (m *Memory) Remove(key []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrClosed
	}

	delete(m.data, string(key))
	return nil
}

// Write applies every operation of the batch under a single lock so readers
// never see part of it.
func (m *Memory) Write(batch *database.Batch) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrClosed
	}

	for _, op := range batch.Ops() {
		if op.Delete {
			delete(m.data, string(op.Key))
			continue
		}
		m.data[string(op.Key)] = bytes.Clone(op.Value)
	}

	return nil
}

// ForEach returns an iterator over a snapshot of the keys starting with the
// prefix, in key order.
func (m *Memory) ForEach(prefix []byte) database.Iterator {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var keys []string
	for key := range m.data {
		if bytes.HasPrefix([]byte(key), prefix) {
			keys = append(keys, key)
		}
	}
	slices.Sort(keys)

	values := make([][]byte, len(keys))
	for i, key := range keys {
		values[i] = bytes.Clone(m.data[key])
	}

	return &memoryIterator{keys: keys, values: values}
}

// Flush in this implementation has nothing to do since everything
// is in memory.
func (m *Memory) Flush() error {
	return nil
}

// Close releases the data. Any later use of the storage fails.
func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closed = true
	m.data = nil
	return nil
}

// =============================================================================

// memoryIterator represents the iteration implementation for walking
// through a snapshot of keys. This implements the database Iterator
// interface.
type memoryIterator struct {
	keys    []string
	values  [][]byte
	current int
	done    bool
}

// Next retrieves the next key and value.
func (mi *memoryIterator) Next() ([]byte, []byte, error) {
	if mi.done || mi.current >= len(mi.keys) {
		mi.done = true
		return nil, nil, nil
	}

	key, value := []byte(mi.keys[mi.current]), mi.values[mi.current]
	mi.current++

	return key, value, nil
}

// Done returns true once Next has walked past the last key.
func (mi *memoryIterator) Done() bool {
	return mi.done
}

// Release has nothing to release.
func (mi *memoryIterator) Release() error {
	return nil
}
