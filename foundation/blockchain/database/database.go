// Package database handles all the lower level support for maintaining the
// blocks, the chain head and the UTXO set in storage.
package database

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"math/bits"
	"sync"

	"github.com/ardanlabs/utxoledger/foundation/blockchain/genesis"
	"github.com/ardanlabs/utxoledger/foundation/blockchain/signature"
	"github.com/decred/dcrd/container/lru"
)

// Storage interface represents the behavior required to be implemented by any
// package providing support for storing and reading the ledger. Get must
// return ErrNotFound for a key that does not exist and Write must apply the
// batch atomically and durably.
type Storage interface {
	Get(key []byte) ([]byte, error)
	Insert(key []byte, value []byte) error
	Remove(key []byte) error
	ForEach(prefix []byte) Iterator
	Write(batch *Batch) error
	Flush() error
	Close() error
}

// Iterator interface represents the behavior required to be implemented by any
// package providing support to iterate over a range of keys in order.
type Iterator interface {
	Next() (key []byte, value []byte, err error)
	Done() bool
	Release() error
}

// =============================================================================

// BatchOp represents a single write inside a batch.
type BatchOp struct {
	Key    []byte
	Value  []byte
	Delete bool
}

// Batch collects a set of writes that are applied together.
type Batch struct {
	ops []BatchOp
}

// Put adds an insert of the key and value to the batch.
func (b *Batch) Put(key []byte, value []byte) {
	b.ops = append(b.ops, BatchOp{Key: key, Value: value})
}

// Delete adds a removal of the key to the batch.
func (b *Batch) Delete(key []byte) {
	b.ops = append(b.ops, BatchOp{Key: key, Delete: true})
}

// Ops returns the writes in the order they were added.
func (b *Batch) Ops() []BatchOp {
	return b.ops
}

// Len returns the number of writes in the batch.
func (b *Batch) Len() int {
	return len(b.ops)
}

// =============================================================================

// keySet represents a top level key set in storage. All keys start with a
// prefix made of the key set and the version of that key set.
type keySet uint8

// These constants define the available key sets.
const (
	keySetChainState keySet = iota + 1 // 1
	keySetBlocks                       // 2
	keySetHeights                      // 3
	keySetUTXOs                        // 4
)

// These variables define the serialized prefix for each key set.
var (
	prefixChainState = []byte{byte(keySetChainState), 1}
	prefixBlocks     = []byte{byte(keySetBlocks), 1}
	prefixHeights    = []byte{byte(keySetHeights), 1}
	prefixUTXOs      = []byte{byte(keySetUTXOs), 1}

	// headKey houses the hash of the block at the head of the chain.
	headKey = prefixedKey(prefixChainState, []byte("head"))
)

// prefixedKey returns a new byte slice that consists of the provided prefix
// appended with the provided key.
func prefixedKey(prefix []byte, key []byte) []byte {
	pk := make([]byte, len(prefix)+len(key))
	copy(pk, prefix)
	copy(pk[len(prefix):], key)
	return pk
}

func blockKey(hash Hash) []byte {
	return prefixedKey(prefixBlocks, hash[:])
}

func heightKey(height uint32) []byte {
	return prefixedKey(prefixHeights, binary.BigEndian.AppendUint32(nil, height))
}

func utxoKey(op OutPoint) []byte {
	return prefixedKey(prefixUTXOs, op.Key())
}

// =============================================================================

// DefaultBlockCacheSize is the number of blocks kept in memory when no
// size is configured.
const DefaultBlockCacheSize = 256

// Config represents the configuration required to start the database.
type Config struct {
	Genesis        genesis.Genesis
	Storage        Storage
	BlockCacheSize uint32
	EvHandler      func(v string, args ...any)
}

// Database manages the blocks, the head of the chain and the UTXO set. The
// head lives in memory next to storage and both are updated under the same
// write lock readers use.
type Database struct {
	mu sync.RWMutex

	genesis     genesis.Genesis
	latestBlock Block
	storage     Storage
	blocks      *lru.Map[Hash, Block]
	evHandler   func(v string, args ...any)
}

// New constructs a new database. An empty storage gets the genesis block
// written to it. Otherwise the head is loaded and the chain of parent hashes
// is walked back to make sure it ends at the configured genesis block.
func New(cfg Config) (*Database, error) {
	ev := cfg.EvHandler
	if ev == nil {
		ev = func(string, ...any) {}
	}

	cacheSize := cfg.BlockCacheSize
	if cacheSize == 0 {
		cacheSize = DefaultBlockCacheSize
	}

	db := Database{
		genesis:   cfg.Genesis,
		storage:   cfg.Storage,
		blocks:    lru.NewMap[Hash, Block](cacheSize),
		evHandler: ev,
	}

	genesisBlock, err := GenesisBlock(cfg.Genesis)
	if err != nil {
		return nil, err
	}

	head, err := db.storage.Get(headKey)
	switch {
	case errors.Is(err, ErrNotFound):
		ev("database: New: writing genesis block: blk[%s]", genesisBlock.Hash())

		if err := db.Commit(genesisBlock, NewUTXOView()); err != nil {
			return nil, fmt.Errorf("writing genesis block: %w", err)
		}

		return &db, nil

	case err != nil:
		return nil, fmt.Errorf("reading head: %w", err)
	}

	if len(head) != len(Hash{}) {
		return nil, fmt.Errorf("%w: head is %d bytes", ErrDecode, len(head))
	}

	latestBlock, err := db.GetBlock(Hash(head))
	if err != nil {
		return nil, fmt.Errorf("reading head block: %w", err)
	}

	if err := db.checkChain(latestBlock, genesisBlock); err != nil {
		return nil, err
	}

	db.latestBlock = latestBlock

	ev("database: New: loaded chain: height[%d]: head[%s]", latestBlock.Header.Height, latestBlock.Hash())

	return &db, nil
}

// checkChain walks the parent hashes from the head back to genesis.
func (db *Database) checkChain(head Block, genesisBlock Block) error {
	block := head
	for block.Header.Height > 0 {
		parent, err := db.GetBlock(block.Header.PrevBlockHash)
		if err != nil {
			return fmt.Errorf("broken chain at height %d: parent %s: %w", block.Header.Height, block.Header.PrevBlockHash, err)
		}

		if parent.Header.Height+1 != block.Header.Height {
			return fmt.Errorf("broken chain at height %d: parent height is %d", block.Header.Height, parent.Header.Height)
		}

		block = parent
	}

	if hash := block.Hash(); hash != genesisBlock.Hash() {
		return fmt.Errorf("stored genesis %s does not match configured genesis %s", hash, genesisBlock.Hash())
	}

	return nil
}

// GenesisBlock constructs the block at height zero described by the genesis
// values. It has no parent and no transactions, so the merkle root is zero.
func GenesisBlock(gen genesis.Genesis) (Block, error) {
	b, err := NewBlock(0, ZeroHash, gen.TimeStamp, gen.Difficulty, nil)
	if err != nil {
		return Block{}, err
	}

	if gen.Version != 0 {
		b.Header.Version = gen.Version
	}

	return b, nil
}

// Close flushes and closes the storage.
func (db *Database) Close() error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if err := db.storage.Flush(); err != nil {
		db.storage.Close()
		return err
	}

	return db.storage.Close()
}

// Genesis returns the genesis values the database was started with.
func (db *Database) Genesis() genesis.Genesis {
	return db.genesis
}

// LatestBlock returns the block at the head of the chain.
func (db *Database) LatestBlock() Block {
	db.mu.RLock()
	defer db.mu.RUnlock()

	return db.latestBlock
}

// Height returns the height of the block at the head of the chain.
func (db *Database) Height() uint32 {
	db.mu.RLock()
	defer db.mu.RUnlock()

	return db.latestBlock.Header.Height
}

// =============================================================================

// GetBlock returns the block stored under the hash.
func (db *Database) GetBlock(hash Hash) (Block, error) {
	if block, exists := db.blocks.Get(hash); exists {
		return block, nil
	}

	data, err := db.storage.Get(blockKey(hash))
	if err != nil {
		return Block{}, err
	}

	var blockData BlockData
	if err := json.Unmarshal(data, &blockData); err != nil {
		return Block{}, fmt.Errorf("%w: block %s: %s", ErrDecode, hash, err)
	}

	block, err := ToBlock(blockData)
	if err != nil {
		return Block{}, err
	}

	if block.Hash() != hash {
		return Block{}, fmt.Errorf("%w: block stored under %s hashes to %s", ErrDecode, hash, block.Hash())
	}

	db.blocks.Put(hash, block)

	return block, nil
}

// BlockHashByHeight returns the hash of the block at the specified height.
func (db *Database) BlockHashByHeight(height uint32) (Hash, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	if height > db.latestBlock.Header.Height {
		return Hash{}, ErrNotFound
	}

	data, err := db.storage.Get(heightKey(height))
	if err != nil {
		return Hash{}, err
	}

	if len(data) != len(Hash{}) {
		return Hash{}, fmt.Errorf("%w: height %d index is %d bytes", ErrDecode, height, len(data))
	}

	return Hash(data), nil
}

// BlocksByHeight returns the blocks between the two heights inclusive, in
// height order. Heights past the head are ignored.
func (db *Database) BlocksByHeight(from uint32, to uint32) ([]Block, error) {
	db.mu.RLock()
	head := db.latestBlock.Header.Height
	db.mu.RUnlock()

	if to > head {
		to = head
	}

	var blocks []Block
	if from > to {
		return blocks, nil
	}

	iter := db.storage.ForEach(prefixHeights)
	defer iter.Release()

	for key, value, err := iter.Next(); !iter.Done(); key, value, err = iter.Next() {
		if err != nil {
			return nil, err
		}

		if len(key) != len(prefixHeights)+4 || len(value) != len(Hash{}) {
			return nil, fmt.Errorf("%w: height index entry", ErrDecode)
		}

		height := binary.BigEndian.Uint32(key[len(prefixHeights):])
		if height < from {
			continue
		}
		if height > to {
			break
		}

		block, err := db.GetBlock(Hash(value))
		if err != nil {
			return nil, err
		}
		blocks = append(blocks, block)
	}

	return blocks, nil
}

// =============================================================================

// GetUTXO returns the unspent output for the outpoint from storage.
func (db *Database) GetUTXO(op OutPoint) (UTXO, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	return db.getUTXO(op)
}

func (db *Database) getUTXO(op OutPoint) (UTXO, error) {
	data, err := db.storage.Get(utxoKey(op))
	if err != nil {
		return UTXO{}, err
	}

	return decodeUTXO(op, data)
}

// UTXOs returns the full UTXO set in key order.
func (db *Database) UTXOs() ([]UTXO, error) {
	return db.filterUTXOs(func(UTXO) bool { return true })
}

// UTXOsByRecipient returns the unspent outputs paying to the address.
func (db *Database) UTXOsByRecipient(address Hash) ([]UTXO, error) {
	return db.filterUTXOs(func(u UTXO) bool { return u.RecipientHash == address })
}

func (db *Database) filterUTXOs(keep func(UTXO) bool) ([]UTXO, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	iter := db.storage.ForEach(prefixUTXOs)
	defer iter.Release()

	var utxos []UTXO
	for key, value, err := iter.Next(); !iter.Done(); key, value, err = iter.Next() {
		if err != nil {
			return nil, err
		}

		op, err := OutPointFromKey(key[len(prefixUTXOs):])
		if err != nil {
			return nil, err
		}

		u, err := decodeUTXO(op, value)
		if err != nil {
			return nil, err
		}

		if keep(u) {
			utxos = append(utxos, u)
		}
	}

	return utxos, nil
}

// =============================================================================

// ValidateTransaction checks a non-coinbase transaction against the UTXO set
// and the outputs created and spent earlier in the same block, as tracked by
// the view. On success the view records the spends and the new outputs. On
// failure the view is left as it was.
func (db *Database) ValidateTransaction(tx Tx, view *UTXOView) error {
	txID := tx.ID()

	if len(tx.Inputs) == 0 {
		return ruleError(ErrNoTxInputs, fmt.Sprintf("transaction %s has no inputs", txID))
	}

	totalOut, err := tx.OutputValue()
	if err != nil {
		return err
	}

	db.mu.RLock()
	defer db.mu.RUnlock()

	var totalIn uint64
	spends := make([]OutPoint, 0, len(tx.Inputs))
	seen := make(map[OutPoint]struct{}, len(tx.Inputs))

	for i, in := range tx.Inputs {
		if in.IsCoinbase() {
			return ruleError(ErrUnexpectedCoinbase, fmt.Sprintf("transaction %s input %d carries coinbase data", txID, i))
		}

		op := in.OutPoint()

		if _, exists := seen[op]; exists || view.IsSpent(op) {
			return ruleError(ErrDoubleSpend, fmt.Sprintf("transaction %s input %d spends %s which is already spent in this block", txID, i, op))
		}

		utxo, err := db.getUTXO(op)
		switch {
		case errors.Is(err, ErrNotFound):
			var exists bool
			if utxo, exists = view.Created(op); !exists {
				return ruleError(ErrMissingUTXO, fmt.Sprintf("transaction %s input %d references unknown output %s", txID, i, op))
			}

		case err != nil:
			return fmt.Errorf("reading utxo %s: %w", op, err)
		}

		// The spend is recorded before verification so a second input of
		// this transaction spending the same outpoint is caught.
		seen[op] = struct{}{}
		spends = append(spends, op)

		if in.PubKey.Address() != utxo.RecipientHash {
			return ruleError(ErrWrongOwner, fmt.Sprintf("transaction %s input %d public key does not own %s", txID, i, op))
		}

		ok, err := tx.VerifyInput(i, in.Signature, in.PubKey, SigHashAll)
		if err != nil {
			if errors.Is(err, signature.ErrInvalidPublicKey) {
				return ruleError(ErrBadPubKey, fmt.Sprintf("transaction %s input %d: %s", txID, i, err))
			}
			return err
		}
		if !ok {
			return ruleError(ErrBadSignature, fmt.Sprintf("transaction %s input %d has an invalid signature", txID, i))
		}

		var carry uint64
		if totalIn, carry = bits.Add64(totalIn, utxo.Value, 0); carry != 0 {
			return ruleError(ErrValueOverflow, fmt.Sprintf("transaction %s sum of input values overflows", txID))
		}
	}

	if totalIn < totalOut {
		return ruleError(ErrInsufficientInput, fmt.Sprintf("transaction %s spends %d but only has %d", txID, totalOut, totalIn))
	}

	view.spend(spends)
	view.AddTx(tx)

	return nil
}

// Commit writes the block, the new head and the changes recorded in the view
// to storage as a single batch. The in memory head moves only after storage
// accepted the batch.
func (db *Database) Commit(block Block, view *UTXOView) error {
	data, err := json.Marshal(NewBlockData(block))
	if err != nil {
		return fmt.Errorf("encoding block: %w", err)
	}

	hash := block.Hash()

	var batch Batch
	batch.Put(blockKey(hash), data)
	batch.Put(heightKey(block.Header.Height), hash[:])
	batch.Put(headKey, hash[:])

	for _, u := range view.Additions() {
		batch.Put(utxoKey(u.OutPoint()), encodeUTXO(u))
	}

	for _, op := range view.Removals() {
		batch.Delete(utxoKey(op))
	}

	db.mu.Lock()
	defer db.mu.Unlock()

	if err := db.storage.Write(&batch); err != nil {
		return fmt.Errorf("writing block %s: %w", hash, err)
	}

	db.latestBlock = block
	db.blocks.Put(hash, block)

	db.evHandler("database: Commit: blk[%d]: hash[%s]: added[%d]: removed[%d]", block.Header.Height, hash, len(view.Additions()), len(view.Removals()))

	return nil
}
