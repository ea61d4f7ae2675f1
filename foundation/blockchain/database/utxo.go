package database

import (
	"encoding/binary"
	"fmt"
)

// OutPointKeySize is the size of the storage key for an outpoint, the
// transaction id followed by the little endian output index.
const OutPointKeySize = 36

// utxoValueSize is the size of an encoded UTXO value, the little endian
// value followed by the recipient hash.
const utxoValueSize = 40

// OutPoint identifies a single output of a transaction.
type OutPoint struct {
	TxID Hash   `json:"txid"`
	Vout uint32 `json:"vout"`
}

// Key returns the 36 byte storage key for the outpoint.
func (op OutPoint) Key() []byte {
	key := make([]byte, 0, OutPointKeySize)
	key = append(key, op.TxID[:]...)
	return binary.LittleEndian.AppendUint32(key, op.Vout)
}

// OutPointFromKey decodes a storage key back into an outpoint.
func OutPointFromKey(key []byte) (OutPoint, error) {
	if len(key) != OutPointKeySize {
		return OutPoint{}, fmt.Errorf("%w: outpoint key is %d bytes, exp %d", ErrDecode, len(key), OutPointKeySize)
	}

	var op OutPoint
	copy(op.TxID[:], key[:32])
	op.Vout = binary.LittleEndian.Uint32(key[32:])

	return op, nil
}

// String implements the fmt.Stringer interface.
func (op OutPoint) String() string {
	return fmt.Sprintf("%s:%d", op.TxID, op.Vout)
}

// =============================================================================

// UTXO represents an unspent transaction output.
type UTXO struct {
	TxID          Hash   `json:"txid"`
	Vout          uint32 `json:"vout"`
	Value         uint64 `json:"value"`
	RecipientHash Hash   `json:"recipient_hash"`
}

// NewUTXO constructs the UTXO for the specified output of a transaction.
func NewUTXO(txID Hash, vout uint32, out TxOut) UTXO {
	return UTXO{
		TxID:          txID,
		Vout:          vout,
		Value:         out.Value,
		RecipientHash: out.RecipientHash,
	}
}

// OutPoint returns the outpoint that identifies the UTXO.
func (u UTXO) OutPoint() OutPoint {
	return OutPoint{TxID: u.TxID, Vout: u.Vout}
}

// encodeUTXO returns the stored value for a UTXO. The outpoint lives in the
// key so only the value and recipient are written.
func encodeUTXO(u UTXO) []byte {
	data := make([]byte, 0, utxoValueSize)
	data = binary.LittleEndian.AppendUint64(data, u.Value)
	return append(data, u.RecipientHash[:]...)
}

// decodeUTXO rebuilds a UTXO from its outpoint and stored value.
func decodeUTXO(op OutPoint, data []byte) (UTXO, error) {
	if len(data) != utxoValueSize {
		return UTXO{}, fmt.Errorf("%w: utxo %s value is %d bytes, exp %d", ErrDecode, op, len(data), utxoValueSize)
	}

	u := UTXO{
		TxID:  op.TxID,
		Vout:  op.Vout,
		Value: binary.LittleEndian.Uint64(data[:8]),
	}
	copy(u.RecipientHash[:], data[8:])

	return u, nil
}
