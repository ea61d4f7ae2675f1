// Package selector provides different transaction selecting algorithms.
package selector

import (
	"fmt"

	"github.com/ardanlabs/utxoledger/foundation/blockchain/database"
)

// List of different select strategies.
const (
	StrategyFIFO = "fifo"
)

// Map of different select strategies with functions.
var strategies = map[string]Func{
	StrategyFIFO: fifoSelect,
}

// Func defines a function that takes the mempool transactions in arrival
// order and selects howMany of them for the next block. All selector
// functions MUST return a set of transactions that never spend the same
// outpoint twice. Receiving -1 for howMany must return every transaction the
// strategy is able to pick.
type Func func(transactions []database.Tx, howMany int) []database.Tx

// Retrieve returns the specified select strategy function.
func Retrieve(strategy string) (Func, error) {
	fn, exists := strategies[strategy]
	if !exists {
		return nil, fmt.Errorf("strategy %q does not exist", strategy)
	}
	return fn, nil
}
