package selector

import "github.com/ardanlabs/utxoledger/foundation/blockchain/database"

// fifoSelect picks transactions in the order they arrived. A transaction
// spending an outpoint already spent by an earlier pick is skipped, so the
// first transaction seen for a coin wins.
var fifoSelect = func(transactions []database.Tx, howMany int) []database.Tx {
	if howMany == -1 {
		howMany = len(transactions)
	}

	spent := make(map[database.OutPoint]struct{})
	final := make([]database.Tx, 0, min(howMany, len(transactions)))

next:
	for _, tx := range transactions {
		if len(final) == howMany {
			break
		}

		for _, in := range tx.Inputs {
			if _, exists := spent[in.OutPoint()]; exists {
				continue next
			}
		}

		for _, in := range tx.Inputs {
			spent[in.OutPoint()] = struct{}{}
		}
		final = append(final, tx)
	}

	return final
}
