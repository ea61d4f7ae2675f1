package database_test

import (
	"errors"
	"math"
	"testing"

	"github.com/ardanlabs/utxoledger/foundation/blockchain/database"
	"github.com/ardanlabs/utxoledger/foundation/blockchain/genesis"
	"github.com/ardanlabs/utxoledger/foundation/blockchain/signature"
	"github.com/ardanlabs/utxoledger/foundation/blockchain/storage/leveldb"
	"github.com/ardanlabs/utxoledger/foundation/blockchain/storage/memory"
	"github.com/davecgh/go-spew/spew"
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
)

var testGenesis = genesis.Genesis{
	ChainID:       1,
	Version:       1,
	TransPerBlock: 10,
	Difficulty:    0,
	MiningReward:  50,
	TimeStamp:     1_700_000_000,
}

// =============================================================================

func Test_Genesis(t *testing.T) {
	t.Log("Given the need to start a database on empty storage.")
	{
		testID := 0
		t.Logf("\tTest %d:\tWhen opening the database.", testID)
		{
			db := newDatabase(t)

			latest := db.LatestBlock()
			if latest.Header.Height != 0 || !latest.Header.PrevBlockHash.IsZero() || !latest.Header.MerkleRoot.IsZero() {
				t.Logf("\t%s\tTest %d:\tgot: %s", failed, testID, spew.Sdump(latest.Header))
				t.Fatalf("\t%s\tTest %d:\tShould get the genesis block as the head.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould get the genesis block as the head.", success, testID)

			exp, err := database.GenesisBlock(testGenesis)
			if err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to build the genesis block: %v", failed, testID, err)
			}

			if latest.Hash() != exp.Hash() {
				t.Fatalf("\t%s\tTest %d:\tShould get the configured genesis block.", failed, testID)
			}

			if _, err := db.GetBlock(exp.Hash()); err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to read the genesis block back: %v", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould be able to read the genesis block back.", success, testID)

			utxos, err := db.UTXOs()
			if err != nil || len(utxos) != 0 {
				t.Fatalf("\t%s\tTest %d:\tShould start with an empty UTXO set: %v", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould start with an empty UTXO set.", success, testID)
		}
	}
}

func Test_Reopen(t *testing.T) {
	dir := t.TempDir()
	_, pk := loadKey(t, keyA)

	t.Log("Given the need to reload a chain from disk.")
	{
		testID := 0
		t.Logf("\tTest %d:\tWhen reopening a database with one block.", testID)
		{
			storage, err := leveldb.Open(dir)
			if err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to open storage: %v", failed, testID, err)
			}

			db, err := database.New(database.Config{Genesis: testGenesis, Storage: storage})
			if err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to open the database: %v", failed, testID, err)
			}

			block1 := commitCoinbase(t, db, pk)

			if err := db.Close(); err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to close the database: %v", failed, testID, err)
			}

			storage, err = leveldb.Open(dir)
			if err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to reopen storage: %v", failed, testID, err)
			}

			db, err = database.New(database.Config{Genesis: testGenesis, Storage: storage})
			if err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to reopen the database: %v", failed, testID, err)
			}

			if db.Height() != 1 || db.LatestBlock().Hash() != block1.Hash() {
				t.Fatalf("\t%s\tTest %d:\tShould load block 1 as the head.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould load block 1 as the head.", success, testID)

			utxos, err := db.UTXOsByRecipient(pk.Address())
			if err != nil || len(utxos) != 1 || utxos[0].Value != 50 {
				t.Fatalf("\t%s\tTest %d:\tShould load the coinbase output: %v", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould load the coinbase output.", success, testID)

			if err := db.Close(); err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to close the database: %v", failed, testID, err)
			}
		}

		testID = 1
		t.Logf("\tTest %d:\tWhen reopening with a different genesis.", testID)
		{
			storage, err := leveldb.Open(dir)
			if err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to open storage: %v", failed, testID, err)
			}
			defer storage.Close()

			other := testGenesis
			other.TimeStamp++

			if _, err := database.New(database.Config{Genesis: other, Storage: storage}); err == nil {
				t.Fatalf("\t%s\tTest %d:\tShould not be able to open a chain with another genesis.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould not be able to open a chain with another genesis.", success, testID)
		}
	}
}

func Test_ValidateTransaction(t *testing.T) {
	keyAPriv, pkA := loadKey(t, keyA)
	keyBPriv, pkB := loadKey(t, keyB)

	var badPK database.PublicKey
	for i := range badPK {
		badPK[i] = 0xff
	}

	type table struct {
		name  string
		build func(coinbase database.OutPoint, view *database.UTXOView) database.Tx
		err   error
	}

	tt := []table{
		{
			name: "valid",
			build: func(cb database.OutPoint, _ *database.UTXOView) database.Tx {
				return signedTx(t, keyAPriv, []database.OutPoint{cb}, payTo(pkB, 25, 25))
			},
			err: nil,
		},
		{
			name: "burns-surplus",
			build: func(cb database.OutPoint, _ *database.UTXOView) database.Tx {
				return signedTx(t, keyAPriv, []database.OutPoint{cb}, payTo(pkB, 10))
			},
			err: nil,
		},
		{
			name: "no-inputs",
			build: func(database.OutPoint, *database.UTXOView) database.Tx {
				return database.Tx{Version: 1, Outputs: payTo(pkB, 1)}
			},
			err: database.ErrNoTxInputs,
		},
		{
			name: "missing-utxo",
			build: func(database.OutPoint, *database.UTXOView) database.Tx {
				return signedTx(t, keyAPriv, []database.OutPoint{{TxID: database.Hash{0xde, 0xad}}}, payTo(pkB, 1))
			},
			err: database.ErrMissingUTXO,
		},
		{
			name: "double-spend-inside-tx",
			build: func(cb database.OutPoint, _ *database.UTXOView) database.Tx {
				return signedTx(t, keyAPriv, []database.OutPoint{cb, cb}, payTo(pkB, 100))
			},
			err: database.ErrDoubleSpend,
		},
		{
			name: "wrong-owner",
			build: func(cb database.OutPoint, _ *database.UTXOView) database.Tx {
				return signedTx(t, keyBPriv, []database.OutPoint{cb}, payTo(pkB, 50))
			},
			err: database.ErrWrongOwner,
		},
		{
			name: "bad-signature",
			build: func(cb database.OutPoint, _ *database.UTXOView) database.Tx {
				tx := signedTx(t, keyAPriv, []database.OutPoint{cb}, payTo(pkB, 50))
				tx.Outputs[0].Value = 49
				return tx
			},
			err: database.ErrBadSignature,
		},
		{
			name: "insufficient-input",
			build: func(cb database.OutPoint, _ *database.UTXOView) database.Tx {
				return signedTx(t, keyAPriv, []database.OutPoint{cb}, payTo(pkB, 30, 21))
			},
			err: database.ErrInsufficientInput,
		},
		{
			name: "output-overflow",
			build: func(cb database.OutPoint, _ *database.UTXOView) database.Tx {
				return signedTx(t, keyAPriv, []database.OutPoint{cb}, payTo(pkB, math.MaxUint64, 1))
			},
			err: database.ErrValueOverflow,
		},
		{
			name: "coinbase-input",
			build: func(database.OutPoint, *database.UTXOView) database.Tx {
				return database.NewCoinbaseTx(50, pkA.Address(), 2)
			},
			err: database.ErrUnexpectedCoinbase,
		},
		{
			name: "malformed-pubkey",
			build: func(_ database.OutPoint, view *database.UTXOView) database.Tx {
				funding := database.Tx{Version: 1, Outputs: []database.TxOut{{Value: 5, RecipientHash: badPK.Address()}}}
				view.AddTx(funding)

				return database.Tx{
					Version: 1,
					Inputs:  []database.TxIn{{PrevTxID: funding.ID(), PrevVout: 0, PubKey: badPK, Data: database.StandardInput{}}},
					Outputs: payTo(pkB, 5),
				}
			},
			err: database.ErrBadPubKey,
		},
	}

	t.Log("Given the need to validate transactions against the UTXO set.")
	{
		for testID, tst := range tt {
			t.Logf("\tTest %d:\tWhen handling a %s transaction.", testID, tst.name)
			{
				f := func(t *testing.T) {
					db := newDatabase(t)
					block1 := commitCoinbase(t, db, pkA)
					cb := database.OutPoint{TxID: block1.Values()[0].ID(), Vout: 0}

					view := database.NewUTXOView()
					tx := tst.build(cb, view)

					err := db.ValidateTransaction(tx, view)
					if !errors.Is(err, tst.err) {
						t.Logf("\t%s\tTest %d:\tgot: %v", failed, testID, err)
						t.Logf("\t%s\tTest %d:\texp: %v", failed, testID, tst.err)
						t.Fatalf("\t%s\tTest %d:\tShould get the expected result.", failed, testID)
					}
					t.Logf("\t%s\tTest %d:\tShould get the expected result.", success, testID)

					if tst.err != nil {
						if !database.IsRuleError(err) {
							t.Fatalf("\t%s\tTest %d:\tShould get a rule error: %T", failed, testID, err)
						}
						if view.IsSpent(cb) {
							t.Fatalf("\t%s\tTest %d:\tShould leave the view untouched.", failed, testID)
						}
						t.Logf("\t%s\tTest %d:\tShould leave the view untouched.", success, testID)
						return
					}

					if !view.IsSpent(cb) {
						t.Fatalf("\t%s\tTest %d:\tShould record the spend in the view.", failed, testID)
					}
					if _, exists := view.Created(database.OutPoint{TxID: tx.ID(), Vout: 0}); !exists {
						t.Fatalf("\t%s\tTest %d:\tShould record the new outputs in the view.", failed, testID)
					}
					t.Logf("\t%s\tTest %d:\tShould record the spend and new outputs in the view.", success, testID)
				}

				t.Run(tst.name, f)
			}
		}
	}
}

func Test_BlockView(t *testing.T) {
	keyAPriv, pkA := loadKey(t, keyA)
	keyBPriv, pkB := loadKey(t, keyB)

	t.Log("Given the need to validate several transactions in one block.")
	{
		db := newDatabase(t)
		block1 := commitCoinbase(t, db, pkA)
		cb := database.OutPoint{TxID: block1.Values()[0].ID(), Vout: 0}

		view := database.NewUTXOView()
		coinbase2 := database.NewCoinbaseTx(50, pkA.Address(), 2)
		view.AddTx(coinbase2)

		tx1 := signedTx(t, keyAPriv, []database.OutPoint{cb}, payTo(pkB, 25, 25))

		testID := 0
		t.Logf("\tTest %d:\tWhen the first transaction spends the coinbase.", testID)
		{
			if err := db.ValidateTransaction(tx1, view); err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould accept the transaction: %v", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould accept the transaction.", success, testID)
		}

		testID = 1
		t.Logf("\tTest %d:\tWhen a second transaction spends the same coinbase.", testID)
		{
			tx := signedTx(t, keyAPriv, []database.OutPoint{cb}, payTo(pkA, 50))
			if err := db.ValidateTransaction(tx, view); !errors.Is(err, database.ErrDoubleSpend) {
				t.Fatalf("\t%s\tTest %d:\tShould reject the double spend: %v", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould reject the double spend.", success, testID)
		}

		tx2 := signedTx(t, keyBPriv, []database.OutPoint{{TxID: tx1.ID(), Vout: 1}}, payTo(pkA, 20))

		testID = 2
		t.Logf("\tTest %d:\tWhen a transaction spends an output created in the block.", testID)
		{
			if err := db.ValidateTransaction(tx2, view); err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould accept the transaction: %v", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould accept the transaction.", success, testID)
		}

		testID = 3
		t.Logf("\tTest %d:\tWhen another transaction spends the same created output.", testID)
		{
			tx := signedTx(t, keyBPriv, []database.OutPoint{{TxID: tx1.ID(), Vout: 1}}, payTo(pkB, 25))
			if err := db.ValidateTransaction(tx, view); !errors.Is(err, database.ErrDoubleSpend) {
				t.Fatalf("\t%s\tTest %d:\tShould reject the double spend: %v", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould reject the double spend.", success, testID)
		}

		testID = 4
		t.Logf("\tTest %d:\tWhen committing the block.", testID)
		{
			block2, err := database.NewBlock(2, block1.Hash(), 2, 0, []database.Tx{coinbase2, tx1, tx2})
			if err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to build the block: %v", failed, testID, err)
			}

			if err := db.Commit(block2, view); err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to commit the block: %v", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould be able to commit the block.", success, testID)

			exp := map[database.OutPoint]uint64{
				{TxID: coinbase2.ID(), Vout: 0}: 50,
				{TxID: tx1.ID(), Vout: 0}:       25,
				{TxID: tx2.ID(), Vout: 0}:       20,
			}

			utxos, err := db.UTXOs()
			if err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to read the UTXO set: %v", failed, testID, err)
			}

			if len(utxos) != len(exp) {
				t.Logf("\t%s\tTest %d:\tgot: %s", failed, testID, spew.Sdump(utxos))
				t.Fatalf("\t%s\tTest %d:\tShould get %d UTXOs.", failed, testID, len(exp))
			}
			for _, u := range utxos {
				if value, exists := exp[u.OutPoint()]; !exists || value != u.Value {
					t.Fatalf("\t%s\tTest %d:\tShould not get UTXO %s worth %d.", failed, testID, u.OutPoint(), u.Value)
				}
			}
			t.Logf("\t%s\tTest %d:\tShould get the right UTXO set.", success, testID)

			if _, err := db.GetUTXO(cb); !errors.Is(err, database.ErrNotFound) {
				t.Fatalf("\t%s\tTest %d:\tShould remove the spent coinbase: %v", failed, testID, err)
			}
			if _, err := db.GetUTXO(database.OutPoint{TxID: tx1.ID(), Vout: 1}); !errors.Is(err, database.ErrNotFound) {
				t.Fatalf("\t%s\tTest %d:\tShould never store an output spent in the same block: %v", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould remove the spent outputs.", success, testID)

			blocks, err := db.BlocksByHeight(0, 10)
			if err != nil || len(blocks) != 3 {
				t.Fatalf("\t%s\tTest %d:\tShould get three blocks: %v", failed, testID, err)
			}
			for i, b := range blocks {
				if b.Header.Height != uint32(i) {
					t.Fatalf("\t%s\tTest %d:\tShould get the blocks in height order.", failed, testID)
				}
			}
			t.Logf("\t%s\tTest %d:\tShould get the blocks in height order.", success, testID)

			hash, err := db.BlockHashByHeight(2)
			if err != nil || hash != block2.Hash() {
				t.Fatalf("\t%s\tTest %d:\tShould index block 2 by height: %v", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould index block 2 by height.", success, testID)
		}
	}
}

// =============================================================================

func newDatabase(t *testing.T) *database.Database {
	t.Helper()

	storage, err := memory.New()
	if err != nil {
		t.Fatalf("Should be able to open storage: %v", err)
	}

	db, err := database.New(database.Config{Genesis: testGenesis, Storage: storage})
	if err != nil {
		t.Fatalf("Should be able to open the database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	return db
}

// commitCoinbase commits a block at height 1 paying the reward to the key.
func commitCoinbase(t *testing.T, db *database.Database, pk database.PublicKey) database.Block {
	t.Helper()

	coinbase := database.NewCoinbaseTx(testGenesis.MiningReward, pk.Address(), 1)

	block, err := database.NewBlock(1, db.LatestBlock().Hash(), 1, 0, []database.Tx{coinbase})
	if err != nil {
		t.Fatalf("Should be able to build block 1: %v", err)
	}

	view := database.NewUTXOView()
	view.AddTx(coinbase)

	if err := db.Commit(block, view); err != nil {
		t.Fatalf("Should be able to commit block 1: %v", err)
	}

	return block
}

// signedTx spends the outpoints with the key and signs every input.
func signedTx(t *testing.T, key *secp256k1.PrivateKey, ops []database.OutPoint, outs []database.TxOut) database.Tx {
	t.Helper()

	pk := database.PublicKey(signature.PublicKey(key))

	tx := database.Tx{Version: 1, Outputs: outs}
	for _, op := range ops {
		tx.Inputs = append(tx.Inputs, database.TxIn{
			PrevTxID: op.TxID,
			PrevVout: op.Vout,
			PubKey:   pk,
			Data:     database.StandardInput{},
		})
	}

	for i := range tx.Inputs {
		if err := tx.SignInput(i, key, database.SigHashAll); err != nil {
			t.Fatalf("Should be able to sign input %d: %v", i, err)
		}
	}

	return tx
}

func payTo(pk database.PublicKey, values ...uint64) []database.TxOut {
	outs := make([]database.TxOut, len(values))
	for i, v := range values {
		outs[i] = database.TxOut{Value: v, RecipientHash: pk.Address()}
	}
	return outs
}
