// Package mempool maintains the mempool for the blockchain.
package mempool

import (
	"slices"
	"sync"

	"github.com/ardanlabs/utxoledger/foundation/blockchain/database"
	"github.com/ardanlabs/utxoledger/foundation/blockchain/mempool/selector"
)

// Mempool represents a cache of transactions keyed by transaction id. The
// order transactions arrived in is kept for selection.
type Mempool struct {
	pool     map[database.Hash]database.Tx
	order    []database.Hash
	mu       sync.RWMutex
	selectFn selector.Func
}

// New constructs a new mempool using the default select strategy.
func New() (*Mempool, error) {
	return NewWithStrategy(selector.StrategyFIFO)
}

// NewWithStrategy constructs a new mempool with specified select strategy.
func NewWithStrategy(strategy string) (*Mempool, error) {
	selectFn, err := selector.Retrieve(strategy)
	if err != nil {
		return nil, err
	}

	mp := Mempool{
		pool:     make(map[database.Hash]database.Tx),
		selectFn: selectFn,
	}

	return &mp, nil
}

// Count returns the current number of transaction in the pool.
func (mp *Mempool) Count() int {
	mp.mu.RLock()
	defer mp.mu.RUnlock()

	return len(mp.pool)
}

// Upsert adds or replaces a transaction in the mempool. A replaced
// transaction keeps its place in the arrival order.
func (mp *Mempool) Upsert(tx database.Tx) int {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	txID := tx.ID()
	if _, exists := mp.pool[txID]; !exists {
		mp.order = append(mp.order, txID)
	}
	mp.pool[txID] = tx

	return len(mp.pool)
}

// Exists reports whether a transaction with the id is in the pool.
func (mp *Mempool) Exists(txID database.Hash) bool {
	mp.mu.RLock()
	defer mp.mu.RUnlock()

	_, exists := mp.pool[txID]
	return exists
}

// Delete removes a transaction from the mempool.
func (mp *Mempool) Delete(txID database.Hash) {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	mp.delete(txID)
}

// DeleteSpending removes every transaction spending one of the outpoints
// and returns the ids removed. It is used once a block consumed the
// outpoints, since those transactions can never be mined.
func (mp *Mempool) DeleteSpending(ops []database.OutPoint) []database.Hash {
	if len(ops) == 0 {
		return nil
	}

	spent := make(map[database.OutPoint]struct{}, len(ops))
	for _, op := range ops {
		spent[op] = struct{}{}
	}

	mp.mu.Lock()
	defer mp.mu.Unlock()

	var removed []database.Hash
	for _, txID := range slices.Clone(mp.order) {
		for _, in := range mp.pool[txID].Inputs {
			if _, exists := spent[in.OutPoint()]; exists {
				mp.delete(txID)
				removed = append(removed, txID)
				break
			}
		}
	}

	return removed
}

// Truncate clears all the transactions from the pool.
func (mp *Mempool) Truncate() {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	mp.pool = make(map[database.Hash]database.Tx)
	mp.order = nil
}

// Copy returns the transactions in the order they arrived.
func (mp *Mempool) Copy() []database.Tx {
	mp.mu.RLock()
	defer mp.mu.RUnlock()

	return mp.copy()
}

// PickBest uses the configured select strategy to return the next set of
// transactions for the next block. Pass -1 for as many as can be picked.
func (mp *Mempool) PickBest(howMany int) []database.Tx {
	mp.mu.RLock()
	trans := mp.copy()
	mp.mu.RUnlock()

	return mp.selectFn(trans, howMany)
}

// =============================================================================

func (mp *Mempool) copy() []database.Tx {
	trans := make([]database.Tx, 0, len(mp.order))
	for _, txID := range mp.order {
		trans = append(trans, mp.pool[txID])
	}
	return trans
}

func (mp *Mempool) delete(txID database.Hash) {
	if _, exists := mp.pool[txID]; !exists {
		return
	}

	delete(mp.pool, txID)
	if i := slices.Index(mp.order, txID); i >= 0 {
		mp.order = slices.Delete(mp.order, i, i+1)
	}
}
