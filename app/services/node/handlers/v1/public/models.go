package public

import (
	"github.com/ardanlabs/utxoledger/foundation/blockchain/database"
	"github.com/ardanlabs/utxoledger/foundation/nameservice"
)

// submitTx is the transaction a wallet posts. Only standard inputs can be
// submitted, coinbase transactions are built by the miner.
type submitTx struct {
	Version  uint32  `json:"version"`
	Inputs   []txIn  `json:"inputs" validate:"required,min=1,dive"`
	Outputs  []txOut `json:"outputs" validate:"required,min=1,dive"`
	LockTime uint32  `json:"lock_time"`
}

type txIn struct {
	PrevTxID    database.Hash      `json:"prev_txid"`
	PrevVout    uint32             `json:"prev_vout"`
	PubKey      database.PublicKey `json:"pubkey" validate:"required"`
	Signature   database.Signature `json:"signature"`
	Kind        string             `json:"kind" validate:"omitempty,eq=standard"`
	BlockHeight *uint32            `json:"block_height,omitempty" validate:"isdefault"`
}

type txOut struct {
	Value         uint64        `json:"value"`
	RecipientHash database.Hash `json:"recipient_hash" validate:"required"`
}

func toDBTx(stx submitTx) database.Tx {
	tx := database.Tx{
		Version:  stx.Version,
		Inputs:   make([]database.TxIn, len(stx.Inputs)),
		Outputs:  make([]database.TxOut, len(stx.Outputs)),
		LockTime: stx.LockTime,
	}

	for i, in := range stx.Inputs {
		tx.Inputs[i] = database.TxIn{
			PrevTxID:  in.PrevTxID,
			PrevVout:  in.PrevVout,
			PubKey:    in.PubKey,
			Signature: in.Signature,
			Data:      database.StandardInput{},
		}
	}

	for i, out := range stx.Outputs {
		tx.Outputs[i] = database.TxOut{
			Value:         out.Value,
			RecipientHash: out.RecipientHash,
		}
	}

	return tx
}

// =============================================================================

type tx struct {
	TxID database.Hash `json:"txid"`
	database.Tx
}

func toTx(dbTx database.Tx) tx {
	return tx{
		TxID: dbTx.ID(),
		Tx:   dbTx,
	}
}

func toTxs(dbTxs []database.Tx) []tx {
	trans := make([]tx, len(dbTxs))
	for i, dbTx := range dbTxs {
		trans[i] = toTx(dbTx)
	}
	return trans
}

type block struct {
	Hash   database.Hash        `json:"hash"`
	Header database.BlockHeader `json:"header"`
	Trans  []tx                 `json:"trans"`
}

func toBlock(dbBlock database.Block) block {
	return block{
		Hash:   dbBlock.Hash(),
		Header: dbBlock.Header,
		Trans:  toTxs(dbBlock.Values()),
	}
}

type utxo struct {
	TxID          database.Hash `json:"txid"`
	Vout          uint32        `json:"vout"`
	Value         uint64        `json:"value"`
	RecipientHash database.Hash `json:"recipient_hash"`
	Name          string        `json:"name"`
}

type utxos struct {
	Address database.Hash `json:"address"`
	Name    string        `json:"name"`
	Balance uint64        `json:"balance"`
	UTXOs   []utxo        `json:"utxos"`
}

func toUTXOs(address database.Hash, dbUTXOs []database.UTXO, ns *nameservice.NameService) utxos {
	out := utxos{
		Address: address,
		Name:    ns.Lookup(address),
		UTXOs:   make([]utxo, len(dbUTXOs)),
	}

	for i, u := range dbUTXOs {
		out.Balance += u.Value
		out.UTXOs[i] = utxo{
			TxID:          u.TxID,
			Vout:          u.Vout,
			Value:         u.Value,
			RecipientHash: u.RecipientHash,
			Name:          ns.Lookup(u.RecipientHash),
		}
	}

	return out
}

type status struct {
	Height          uint32        `json:"height"`
	LatestBlock     database.Hash `json:"latest_block"`
	Uncommitted     int           `json:"uncommitted"`
	Beneficiary     database.Hash `json:"beneficiary"`
	BeneficiaryName string        `json:"beneficiary_name"`
}
