package state

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ardanlabs/utxoledger/foundation/blockchain/database"
)

// ProcessBlock validates the block against the consensus rules and the
// current chain and, if every rule passes, commits it as the new head. The
// block is checked in stages: header, coinbase and then every other
// transaction in order. Nothing is written unless every stage passes.
func (s *State) ProcessBlock(difficulty uint32, reward uint64, block database.Block) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.processBlock(difficulty, reward, block); err != nil {
		metricBlocksRejected.WithLabelValues(reason(err)).Inc()
		return err
	}

	metricBlocksAccepted.Inc()
	metricHeight.Set(float64(block.Header.Height))
	metricMempool.Set(float64(s.mempool.Count()))

	return nil
}

// ProcessProposedBlock takes a block received from outside the node,
// validates it with the genesis rules and if that passes, adds the block to
// the local blockchain.
func (s *State) ProcessProposedBlock(block database.Block) error {
	s.evHandler("state: ProcessProposedBlock: started: prevBlk[%s]: newBlk[%s]: numTrans[%d]", block.Header.PrevBlockHash, block.Hash(), len(block.Values()))
	defer s.evHandler("state: ProcessProposedBlock: completed: newBlk[%s]", block.Hash())

	if err := s.ProcessBlock(s.genesis.Difficulty, s.genesis.MiningReward, block); err != nil {
		return err
	}

	// If the runMiningOperation function is being executed it needs to stop
	// immediately since it is building on a block that is no longer the head.
	// The G executing runMiningOperation will not return from the function
	// until done is called.
	done := s.signalCancelMining()
	defer func() {
		s.evHandler("state: ProcessProposedBlock: signal runMiningOperation to terminate")
		done()
	}()

	return nil
}

// =============================================================================

// processBlock must be called while holding the state lock.
func (s *State) processBlock(difficulty uint32, reward uint64, block database.Block) error {
	hash := block.Hash()

	s.evHandler("state: processBlock: validate header: blk[%d]: hash[%s]", block.Header.Height, hash)

	if err := block.ValidateHeader(s.db.LatestBlock(), difficulty, s.evHandler); err != nil {
		return err
	}

	trans := block.Values()

	s.evHandler("state: processBlock: validate coinbase: blk[%d]", block.Header.Height)

	coinbase := trans[0]
	if !coinbase.IsValidCoinbase(block.Header.Height, reward) {
		return database.RuleError{
			Err:         database.ErrBadCoinbase,
			Description: fmt.Sprintf("first transaction of block %s is not a valid coinbase for height %d and reward %d", hash, block.Header.Height, reward),
		}
	}

	view := database.NewUTXOView()
	view.AddTx(coinbase)

	spent := make([]database.OutPoint, 0, len(trans))
	for _, tx := range trans[1:] {
		s.evHandler("state: processBlock: validate tx[%s]", tx.ID())

		if err := s.db.ValidateTransaction(tx, view); err != nil {
			return err
		}

		for _, in := range tx.Inputs {
			spent = append(spent, in.OutPoint())
		}
	}

	s.evHandler("state: processBlock: commit: blk[%d]: hash[%s]", block.Header.Height, hash)

	if err := s.db.Commit(block, view); err != nil {
		return err
	}

	s.evHandler("state: processBlock: remove mined transactions from mempool")

	for _, tx := range trans[1:] {
		s.mempool.Delete(tx.ID())
	}

	for _, txID := range s.mempool.DeleteSpending(spent) {
		s.evHandler("state: processBlock: evicted conflicting tx[%s]", txID)
	}

	s.blockEvent(block)

	return nil
}

// blockEvent provides a specific event about a new block in the chain for
// application specific support.
func (s *State) blockEvent(block database.Block) {
	blockHeaderJSON, err := json.Marshal(block.Header)
	if err != nil {
		blockHeaderJSON = []byte(fmt.Sprintf("%q", err.Error()))
	}

	blockTransJSON, err := json.Marshal(block.Values())
	if err != nil {
		blockTransJSON = []byte(fmt.Sprintf("%q", err.Error()))
	}

	s.evHandler(`viewer: block: {"hash":%q,"header":%s,"trans":%s}`, block.Hash(), string(blockHeaderJSON), string(blockTransJSON))
}

// reason returns the metric label for the error.
func reason(err error) string {
	var re database.RuleError
	if errors.As(err, &re) {
		var kind database.ErrorKind
		if errors.As(re.Err, &kind) {
			return string(kind)
		}
	}
	return "internal"
}
