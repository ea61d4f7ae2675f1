package database

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	"github.com/ardanlabs/utxoledger/foundation/blockchain/merkle"
	"github.com/ardanlabs/utxoledger/foundation/blockchain/signature"
)

// BlockVersion is the version written into every block this node builds.
const BlockVersion = 1

// ErrNonceExhausted is returned by Mine when every nonce value has been
// tried without meeting the difficulty.
var ErrNonceExhausted = errors.New("nonce space exhausted")

// =============================================================================

// BlockHeader represents common information required for each block.
type BlockHeader struct {
	Version       uint32 `json:"version"`         // Version of the block rules.
	Height        uint32 `json:"height"`          // Position of the block in the chain, genesis is 0.
	PrevBlockHash Hash   `json:"prev_block_hash"` // Hash of the previous block in the chain.
	MerkleRoot    Hash   `json:"merkle_root"`     // Merkle tree root hash of the transactions in this block.
	TimeStamp     uint64 `json:"timestamp"`       // Time the block was built, in unix seconds.
	Difficulty    uint32 `json:"difficulty"`      // Number of leading zero bits needed to solve the hash solution.
	Nonce         uint32 `json:"nonce"`           // Value identified to solve the hash solution.
}

// Block represents a group of transactions batched together.
type Block struct {
	Header BlockHeader
	Trans  *merkle.Tree[Tx]
}

// NewBlock constructs a block over the transactions with the merkle root
// computed and a zero nonce. The block still needs to be mined.
func NewBlock(height uint32, prevBlockHash Hash, timeStamp uint64, difficulty uint32, trans []Tx) (Block, error) {
	tree, err := merkle.NewTree(trans)
	if err != nil {
		return Block{}, err
	}

	b := Block{
		Header: BlockHeader{
			Version:       BlockVersion,
			Height:        height,
			PrevBlockHash: prevBlockHash,
			MerkleRoot:    Hash(tree.MerkleRoot),
			TimeStamp:     timeStamp,
			Difficulty:    difficulty,
		},
		Trans: tree,
	}

	return b, nil
}

// POWArgs represents the set of arguments required to run POW.
type POWArgs struct {
	Beneficiary Hash
	Difficulty  uint32
	Reward      uint64
	PrevBlock   Block
	Trans       []Tx
	EvHandler   func(v string, args ...any)
}

// POW constructs a new block on top of the previous block with a coinbase
// paying the reward to the beneficiary followed by the transactions, and
// performs the work to find a nonce that solves the puzzle.
func POW(ctx context.Context, args POWArgs) (Block, error) {
	height := args.PrevBlock.Header.Height + 1

	trans := make([]Tx, 0, len(args.Trans)+1)
	trans = append(trans, NewCoinbaseTx(args.Reward, args.Beneficiary, height))
	trans = append(trans, args.Trans...)

	nb, err := NewBlock(height, args.PrevBlock.Hash(), uint64(time.Now().UTC().Unix()), args.Difficulty, trans)
	if err != nil {
		return Block{}, err
	}

	if err := nb.Mine(ctx, args.EvHandler); err != nil {
		return Block{}, err
	}

	return nb, nil
}

// Mine does the work of finding a nonce that makes the block hash meet the
// declared difficulty. Only the nonce is changed. The context is checked
// between attempts so the caller can stop the search.
func (b *Block) Mine(ctx context.Context, ev func(v string, args ...any)) error {
	if ev == nil {
		ev = func(string, ...any) {}
	}

	ev("database: Mine: MINING: started: blk[%d]", b.Header.Height)
	defer ev("database: Mine: MINING: completed: blk[%d]", b.Header.Height)

	for _, tx := range b.Values() {
		ev("database: Mine: MINING: tx[%s]", tx)
	}

	start := b.Header.Nonce

	var attempts uint64
	for {
		attempts++
		if attempts%1_000_000 == 0 {
			ev("database: Mine: MINING: attempts[%d]", attempts)
		}

		if ctx.Err() != nil {
			ev("database: Mine: MINING: CANCELLED")
			return ctx.Err()
		}

		hash := b.Hash()
		if MeetsDifficulty(hash, b.Header.Difficulty) {
			ev("database: Mine: MINING: SOLVED: prevBlk[%s]: newBlk[%s]: attempts[%d]", b.Header.PrevBlockHash, hash, attempts)
			return nil
		}

		b.Header.Nonce++
		if b.Header.Nonce == start {
			return ErrNonceExhausted
		}
	}
}

// Hash returns the unique hash for the block. Only the header is hashed, the
// transactions are committed through the merkle root and the height through
// the coinbase.
func (b Block) Hash() Hash {
	return b.Header.Hash()
}

// Hash returns the BLAKE3 hash of the fixed width little endian encoding of
// the header fields, excluding the height.
func (bh BlockHeader) Hash() Hash {
	data := make([]byte, 0, 84)
	data = binary.LittleEndian.AppendUint32(data, bh.Version)
	data = append(data, bh.PrevBlockHash[:]...)
	data = append(data, bh.MerkleRoot[:]...)
	data = binary.LittleEndian.AppendUint64(data, bh.TimeStamp)
	data = binary.LittleEndian.AppendUint32(data, bh.Difficulty)
	data = binary.LittleEndian.AppendUint32(data, bh.Nonce)

	return Hash(signature.Hash(data))
}

// Values returns the transactions of the block in order.
func (b Block) Values() []Tx {
	if b.Trans == nil {
		return nil
	}
	return b.Trans.Values()
}

// ValidateHeader takes a block and validates its header against the previous
// block and the difficulty the chain requires. It also checks the merkle
// root commits to the transactions and that there is at least one.
func (b Block) ValidateHeader(prevBlock Block, difficulty uint32, evHandler func(v string, args ...any)) error {
	if evHandler == nil {
		evHandler = func(string, ...any) {}
	}

	evHandler("database: ValidateHeader: validate: blk[%d]: check: parent hash does match parent block", b.Header.Height)

	if prevHash := prevBlock.Hash(); b.Header.PrevBlockHash != prevHash {
		return ruleError(ErrBadPrevHash, fmt.Sprintf("parent block hash doesn't match our known parent, got %s, exp %s", b.Header.PrevBlockHash, prevHash))
	}

	evHandler("database: ValidateHeader: validate: blk[%d]: check: block height is the next height", b.Header.Height)

	if nextHeight := prevBlock.Header.Height + 1; b.Header.Height != nextHeight {
		return ruleError(ErrBadHeight, fmt.Sprintf("this block is not the next height, got %d, exp %d", b.Header.Height, nextHeight))
	}

	evHandler("database: ValidateHeader: validate: blk[%d]: check: block difficulty is the same or greater than required", b.Header.Height)

	if b.Header.Difficulty < difficulty {
		return ruleError(ErrDifficultyTooLow, fmt.Sprintf("block difficulty is less than required difficulty, required %d, block %d", difficulty, b.Header.Difficulty))
	}

	evHandler("database: ValidateHeader: validate: blk[%d]: check: block hash has been solved", b.Header.Height)

	if hash := b.Hash(); !MeetsDifficulty(hash, b.Header.Difficulty) {
		return ruleError(ErrHighHash, fmt.Sprintf("block hash %s does not meet difficulty %d", hash, b.Header.Difficulty))
	}

	evHandler("database: ValidateHeader: validate: blk[%d]: check: merkle root does match transactions", b.Header.Height)

	root, err := merkleRoot(b.Values())
	if err != nil {
		return err
	}

	if b.Header.MerkleRoot != root {
		return ruleError(ErrBadMerkleRoot, fmt.Sprintf("merkle root does not match transactions, got %s, exp %s", b.Header.MerkleRoot, root))
	}

	evHandler("database: ValidateHeader: validate: blk[%d]: check: block has transactions", b.Header.Height)

	if len(b.Values()) == 0 {
		return ruleError(ErrNoTransactions, "block has no transactions")
	}

	return nil
}

// MeetsDifficulty reports whether the leading difficulty bits of the hash
// are all zero. Whole zero bytes are checked first and then the top bits of
// the next byte.
func MeetsDifficulty(hash Hash, difficulty uint32) bool {
	if difficulty > uint32(len(hash)*8) {
		return false
	}

	full := difficulty / 8
	for i := uint32(0); i < full; i++ {
		if hash[i] != 0 {
			return false
		}
	}

	rem := difficulty % 8
	if rem == 0 {
		return true
	}

	mask := byte(0xff << (8 - rem))
	return hash[full]&mask == 0
}

// merkleRoot recomputes the root for the transactions.
func merkleRoot(trans []Tx) (Hash, error) {
	tree, err := merkle.NewTree(trans)
	if err != nil {
		return Hash{}, err
	}

	return Hash(tree.MerkleRoot), nil
}

// =============================================================================

// BlockData represents what is written to storage for a block.
type BlockData struct {
	Hash   Hash        `json:"hash"`
	Header BlockHeader `json:"header"`
	Trans  []Tx        `json:"trans"`
}

// NewBlockData constructs the value to serialize to storage.
func NewBlockData(block Block) BlockData {
	return BlockData{
		Hash:   block.Hash(),
		Header: block.Header,
		Trans:  block.Values(),
	}
}

// ToBlock converts a BlockData into a Block. The stored hash must match the
// hash of the header.
func ToBlock(blockData BlockData) (Block, error) {
	tree, err := merkle.NewTree(blockData.Trans)
	if err != nil {
		return Block{}, err
	}

	b := Block{
		Header: blockData.Header,
		Trans:  tree,
	}

	if hash := b.Hash(); hash != blockData.Hash {
		return Block{}, fmt.Errorf("%w: block hash mismatch, got %s, exp %s", ErrDecode, hash, blockData.Hash)
	}

	return b, nil
}
