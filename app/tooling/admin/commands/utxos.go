package commands

import (
	"fmt"

	"github.com/ardanlabs/utxoledger/foundation/blockchain/database"
)

// UTXOs prints the unspent outputs, optionally only those paying to an
// address.
func UTXOs(args []string, db *database.Database) error {
	fmt.Printf("LatestBlockHash: %s\n\n", db.LatestBlock().Hash())

	var (
		utxos []database.UTXO
		err   error
	)

	switch len(args) {
	case 3:
		address, perr := database.ToHash(args[2])
		if perr != nil {
			return perr
		}
		utxos, err = db.UTXOsByRecipient(address)
	default:
		utxos, err = db.UTXOs()
	}
	if err != nil {
		return err
	}

	var total uint64
	for _, u := range utxos {
		fmt.Printf("OutPoint: %s  Recipient: %s  Value: %d\n", u.OutPoint(), u.RecipientHash, u.Value)
		total += u.Value
	}
	fmt.Printf("\nTotal: %d\n", total)

	return nil
}
