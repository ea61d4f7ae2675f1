package state

import (
	"context"

	"github.com/ardanlabs/utxoledger/foundation/blockchain/database"
)

// MineNewBlock attempts to create a new block with a proper hash that can
// become the next block in the chain. A block with only the coinbase is
// mined when the mempool is empty so a new chain can mint its first coins.
// No lock is held while the work is performed, only the solved block is
// handed to ProcessBlock.
func (s *State) MineNewBlock(ctx context.Context) (database.Block, error) {
	s.evHandler("state: MineNewBlock: MINING: pick transactions: mempool[%d]", s.mempool.Count())

	trans := s.pickTransactions()

	s.evHandler("state: MineNewBlock: MINING: perform POW: trans[%d]", len(trans))

	// Attempt to create a new block by solving the POW puzzle. This can be cancelled.
	block, err := database.POW(ctx, database.POWArgs{
		Beneficiary: s.beneficiary,
		Difficulty:  s.genesis.Difficulty,
		Reward:      s.genesis.MiningReward,
		PrevBlock:   s.db.LatestBlock(),
		Trans:       trans,
		EvHandler:   s.evHandler,
	})
	if err != nil {
		return database.Block{}, err
	}

	// Just check one more time we were not cancelled.
	if ctx.Err() != nil {
		return database.Block{}, ctx.Err()
	}

	s.evHandler("state: MineNewBlock: MINING: validate and update database")

	if err := s.ProcessBlock(s.genesis.Difficulty, s.genesis.MiningReward, block); err != nil {
		return database.Block{}, err
	}

	return block, nil
}

// pickTransactions selects the mempool transactions for the next block and
// drops the ones that no longer validate against the chain.
func (s *State) pickTransactions() []database.Tx {
	view := database.NewUTXOView()

	var trans []database.Tx
	for _, tx := range s.mempool.PickBest(int(s.genesis.TransPerBlock)) {
		if err := s.db.ValidateTransaction(tx, view); err != nil {
			s.evHandler("state: pickTransactions: MINING: dropping tx[%s]: %s", tx.ID(), err)
			s.mempool.Delete(tx.ID())
			continue
		}
		trans = append(trans, tx)
	}

	return trans
}
