package commands

import (
	"fmt"
	"strconv"

	"github.com/ardanlabs/utxoledger/foundation/blockchain/database"
)

// Blocks prints the blocks between two heights. With no heights every
// block is printed.
func Blocks(args []string, db *database.Database) error {
	from, to := uint32(0), db.Height()

	if len(args) > 2 {
		n, err := strconv.ParseUint(args[2], 10, 32)
		if err != nil {
			return err
		}
		from = uint32(n)
	}

	if len(args) > 3 {
		n, err := strconv.ParseUint(args[3], 10, 32)
		if err != nil {
			return err
		}
		to = uint32(n)
	}

	blocks, err := db.BlocksByHeight(from, to)
	if err != nil {
		return err
	}

	for _, block := range blocks {
		fmt.Printf("Height: %d  Hash: %s  Prev: %s  Trans: %d  Nonce: %d\n",
			block.Header.Height, block.Hash(), block.Header.PrevBlockHash, len(block.Values()), block.Header.Nonce)

		for _, tx := range block.Values() {
			fmt.Printf("    TxID: %s  Inputs: %d  Outputs: %d\n", tx.ID(), len(tx.Inputs), len(tx.Outputs))
		}
	}

	return nil
}
