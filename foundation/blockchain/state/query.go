package state

import (
	"errors"
	"fmt"

	"github.com/ardanlabs/utxoledger/foundation/blockchain/database"
	"github.com/ardanlabs/utxoledger/foundation/blockchain/merkle"
)

// QueryLatest represents to query the latest block in the chain.
const QueryLatest = ^uint32(0)

// MerkleProof is the set of hashes needed to prove a transaction is
// committed to by the merkle root of a block.
type MerkleProof struct {
	BlockHash  database.Hash   `json:"block_hash"`
	MerkleRoot database.Hash   `json:"merkle_root"`
	TxID       database.Hash   `json:"txid"`
	Hashes     []database.Hash `json:"hashes"`
	Order      []int64         `json:"order"`
}

// Verify checks the proof hashes the transaction id up to the merkle root.
func (mp MerkleProof) Verify() (bool, error) {
	proof := make([][]byte, len(mp.Hashes))
	for i := range mp.Hashes {
		proof[i] = mp.Hashes[i][:]
	}

	return merkle.VerifyProof(merkle.Blake3, mp.TxID[:], proof, mp.Order, mp.MerkleRoot[:])
}

// =============================================================================

// Height returns the height of the latest block.
func (s *State) Height() uint32 {
	return s.db.Height()
}

// LatestBlock returns a copy the current latest block.
func (s *State) LatestBlock() database.Block {
	return s.db.LatestBlock()
}

// QueryBlockByHash returns the block with the specified hash.
func (s *State) QueryBlockByHash(hash database.Hash) (database.Block, error) {
	return s.db.GetBlock(hash)
}

// QueryBlocksByHeight returns the set of blocks between the heights
// inclusive. QueryLatest can be used for either value.
func (s *State) QueryBlocksByHeight(from uint32, to uint32) ([]database.Block, error) {
	height := s.db.Height()

	if from == QueryLatest {
		from = height
	}
	if to == QueryLatest || to > height {
		to = height
	}

	if from > to {
		return nil, nil
	}

	return s.db.BlocksByHeight(from, to)
}

// QueryUTXO returns the unspent output for the outpoint.
func (s *State) QueryUTXO(op database.OutPoint) (database.UTXO, error) {
	return s.db.GetUTXO(op)
}

// QueryUTXOs returns the unspent outputs paying to the address. A zero
// address returns the whole set.
func (s *State) QueryUTXOs(address database.Hash) ([]database.UTXO, error) {
	if address.IsZero() {
		return s.db.UTXOs()
	}
	return s.db.UTXOsByRecipient(address)
}

// QueryBalance returns the sum of the unspent outputs paying to the address.
func (s *State) QueryBalance(address database.Hash) (uint64, error) {
	utxos, err := s.db.UTXOsByRecipient(address)
	if err != nil {
		return 0, err
	}

	var balance uint64
	for _, u := range utxos {
		balance += u.Value
	}

	return balance, nil
}

// QueryMempool returns a copy of the mempool in arrival order.
func (s *State) QueryMempool() []database.Tx {
	return s.mempool.Copy()
}

// QueryMempoolLength returns the current length of the mempool.
func (s *State) QueryMempoolLength() int {
	return s.mempool.Count()
}

// QueryMerkleProof builds the proof that the transaction is part of the block.
func (s *State) QueryMerkleProof(blockHash database.Hash, txID database.Hash) (MerkleProof, error) {
	block, err := s.db.GetBlock(blockHash)
	if err != nil {
		return MerkleProof{}, err
	}

	for _, tx := range block.Values() {
		if tx.ID() != txID {
			continue
		}

		hashes, order, err := block.Trans.Proof(tx)
		if err != nil {
			return MerkleProof{}, fmt.Errorf("building proof: %w", err)
		}

		mp := MerkleProof{
			BlockHash:  blockHash,
			MerkleRoot: block.Header.MerkleRoot,
			TxID:       txID,
			Hashes:     make([]database.Hash, len(hashes)),
			Order:      order,
		}
		for i, h := range hashes {
			mp.Hashes[i] = database.Hash(h)
		}

		return mp, nil
	}

	return MerkleProof{}, fmt.Errorf("tx %s in block %s: %w", txID, blockHash, database.ErrNotFound)
}

// IsNotFound reports whether the error says the requested value does not
// exist.
func IsNotFound(err error) bool {
	return errors.Is(err, database.ErrNotFound) || errors.Is(err, merkle.ErrNotFound)
}
