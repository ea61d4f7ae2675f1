package database

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"math/bits"
	"strings"

	"github.com/ardanlabs/utxoledger/foundation/blockchain/signature"
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
)

// NoInputIndex is passed when building a preimage that is not bound to a
// specific input, which is how the transaction id is calculated.
const NoInputIndex = -1

// Set of errors returned when a sighash preimage can't be constructed. These
// are caller errors and never fall back to another mode.
var (
	ErrSigHashIndexRequired = errors.New("sighash mode requires an input index")
	ErrSigHashIndexRange    = errors.New("sighash input index out of range")
)

// =============================================================================

// SigHashType selects which parts of a transaction a signature commits to.
type SigHashType uint8

// Set of supported signature hash modes.
const (
	SigHashAll SigHashType = iota
	SigHashNone
	SigHashSingle
	SigHashAllAnyoneCanPay
	SigHashNoneAnyoneCanPay
	SigHashSingleAnyoneCanPay
)

var sigHashNames = map[SigHashType]string{
	SigHashAll:                "all",
	SigHashNone:               "none",
	SigHashSingle:             "single",
	SigHashAllAnyoneCanPay:    "all|anyonecanpay",
	SigHashNoneAnyoneCanPay:   "none|anyonecanpay",
	SigHashSingleAnyoneCanPay: "single|anyonecanpay",
}

// ParseSigHashType converts the name of a mode into its value.
func ParseSigHashType(s string) (SigHashType, error) {
	for mode, name := range sigHashNames {
		if strings.EqualFold(s, name) {
			return mode, nil
		}
	}

	return 0, fmt.Errorf("unknown sighash type %q", s)
}

// String implements the fmt.Stringer interface.
func (m SigHashType) String() string {
	if name, exists := sigHashNames[m]; exists {
		return name
	}
	return fmt.Sprintf("unknown(%d)", uint8(m))
}

// AnyoneCanPay reports whether only the indexed input is committed to.
func (m SigHashType) AnyoneCanPay() bool {
	return m == SigHashAllAnyoneCanPay || m == SigHashNoneAnyoneCanPay || m == SigHashSingleAnyoneCanPay
}

func (m SigHashType) valid() bool {
	_, exists := sigHashNames[m]
	return exists
}

// =============================================================================

// TxInData identifies the kind of an input. The only two kinds are a standard
// input spending an existing output and a coinbase input minting the reward.
type TxInData interface {
	isTxInData()
}

// StandardInput marks an input spending a previous output.
type StandardInput struct{}

// CoinbaseInput marks the single input of a coinbase transaction. The height
// of the block is committed through it, which makes every coinbase unique.
type CoinbaseInput struct {
	BlockHeight uint32
}

func (StandardInput) isTxInData() {}
func (CoinbaseInput) isTxInData() {}

// =============================================================================

// TxIn references the output being spent and carries the authorization to
// spend it.
type TxIn struct {
	PrevTxID  Hash
	PrevVout  uint32
	PubKey    PublicKey
	Signature Signature
	Data      TxInData
}

// OutPoint returns the outpoint this input spends.
func (in TxIn) OutPoint() OutPoint {
	return OutPoint{TxID: in.PrevTxID, Vout: in.PrevVout}
}

// IsCoinbase reports whether the input carries coinbase data.
func (in TxIn) IsCoinbase() bool {
	_, ok := in.Data.(CoinbaseInput)
	return ok
}

type txInJSON struct {
	PrevTxID    Hash      `json:"prev_txid"`
	PrevVout    uint32    `json:"prev_vout"`
	PubKey      PublicKey `json:"pubkey"`
	Signature   Signature `json:"signature"`
	Kind        string    `json:"kind"`
	BlockHeight *uint32   `json:"block_height,omitempty"`
}

// MarshalJSON implements the json.Marshaler interface. The input kind is
// written as a tag next to the fields.
func (in TxIn) MarshalJSON() ([]byte, error) {
	v := txInJSON{
		PrevTxID:  in.PrevTxID,
		PrevVout:  in.PrevVout,
		PubKey:    in.PubKey,
		Signature: in.Signature,
		Kind:      "standard",
	}

	if cb, ok := in.Data.(CoinbaseInput); ok {
		height := cb.BlockHeight
		v.Kind = "coinbase"
		v.BlockHeight = &height
	}

	return json.Marshal(v)
}

// UnmarshalJSON implements the json.Unmarshaler interface.
func (in *TxIn) UnmarshalJSON(data []byte) error {
	var v txInJSON
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}

	*in = TxIn{
		PrevTxID:  v.PrevTxID,
		PrevVout:  v.PrevVout,
		PubKey:    v.PubKey,
		Signature: v.Signature,
	}

	switch v.Kind {
	case "standard":
		in.Data = StandardInput{}

	case "coinbase":
		if v.BlockHeight == nil {
			return fmt.Errorf("%w: coinbase input without block height", ErrDecode)
		}
		in.Data = CoinbaseInput{BlockHeight: *v.BlockHeight}

	default:
		return fmt.Errorf("%w: unknown input kind %q", ErrDecode, v.Kind)
	}

	return nil
}

// TxOut pays a value to the holder of the key whose address is the
// recipient hash.
type TxOut struct {
	Value         uint64 `json:"value"`
	RecipientHash Hash   `json:"recipient_hash"`
}

// =============================================================================

// Tx represents a transfer of value from a set of existing outputs to a set
// of new outputs.
type Tx struct {
	Version  uint32  `json:"version"`
	Inputs   []TxIn  `json:"inputs"`
	Outputs  []TxOut `json:"outputs"`
	LockTime uint32  `json:"lock_time"`
}

// NewCoinbaseTx constructs the transaction that mints the block reward for
// the block at the specified height.
func NewCoinbaseTx(reward uint64, recipient Hash, height uint32) Tx {
	return Tx{
		Version: 1,
		Inputs: []TxIn{
			{
				PrevTxID: ZeroHash,
				PrevVout: math.MaxUint32,
				Data:     CoinbaseInput{BlockHeight: height},
			},
		},
		Outputs: []TxOut{
			{
				Value:         reward,
				RecipientHash: recipient,
			},
		},
	}
}

// IsCoinbase reports whether the transaction has the shape of a coinbase.
func (tx Tx) IsCoinbase() bool {
	return len(tx.Inputs) == 1 && tx.Inputs[0].IsCoinbase()
}

// IsValidCoinbase checks that the transaction is exactly the coinbase that
// NewCoinbaseTx produces for the height and reward, other than the recipient.
func (tx Tx) IsValidCoinbase(height uint32, reward uint64) bool {
	if len(tx.Inputs) != 1 || len(tx.Outputs) != 1 {
		return false
	}

	in := tx.Inputs[0]
	cb, ok := in.Data.(CoinbaseInput)
	if !ok || cb.BlockHeight != height {
		return false
	}

	switch {
	case !in.PrevTxID.IsZero(), in.PrevVout != math.MaxUint32:
		return false
	case in.PubKey != (PublicKey{}), !in.Signature.IsZero():
		return false
	}

	return tx.Outputs[0].Value == reward
}

// OutputValue returns the sum of the output values.
func (tx Tx) OutputValue() (uint64, error) {
	var total uint64
	for _, out := range tx.Outputs {
		var carry uint64
		total, carry = bits.Add64(total, out.Value, 0)
		if carry != 0 {
			return 0, ruleError(ErrValueOverflow, "sum of output values overflows")
		}
	}

	return total, nil
}

// SigHashPreimage builds the bytes a signature for the specified input
// commits to. The layout is version, inputs section, outputs section and
// lock time with every integer in little endian.
func (tx Tx) SigHashPreimage(mode SigHashType, index int) ([]byte, error) {
	if !mode.valid() {
		return nil, fmt.Errorf("unknown sighash type %d", mode)
	}

	data := make([]byte, 0, 8+len(tx.Inputs)*72+len(tx.Outputs)*40)
	data = binary.LittleEndian.AppendUint32(data, tx.Version)

	switch {
	case mode.AnyoneCanPay():
		if index == NoInputIndex {
			return nil, fmt.Errorf("%w: %s", ErrSigHashIndexRequired, mode)
		}
		if index < 0 || index >= len(tx.Inputs) {
			return nil, fmt.Errorf("%w: %s: index %d, inputs %d", ErrSigHashIndexRange, mode, index, len(tx.Inputs))
		}
		data = appendInput(data, tx.Inputs[index])

	default:
		for _, in := range tx.Inputs {
			data = appendInput(data, in)
		}
	}

	switch mode {
	case SigHashAll, SigHashAllAnyoneCanPay:
		for _, out := range tx.Outputs {
			data = appendOutput(data, out)
		}

	case SigHashSingle, SigHashSingleAnyoneCanPay:
		if index == NoInputIndex {
			return nil, fmt.Errorf("%w: %s", ErrSigHashIndexRequired, mode)
		}
		if index < 0 || index >= len(tx.Outputs) {
			return nil, fmt.Errorf("%w: %s: index %d, outputs %d", ErrSigHashIndexRange, mode, index, len(tx.Outputs))
		}
		data = appendOutput(data, tx.Outputs[index])
	}

	data = binary.LittleEndian.AppendUint32(data, tx.LockTime)

	return data, nil
}

// ID returns the transaction id. Signatures never participate, so the id
// is known before any input is signed.
func (tx Tx) ID() Hash {

	// The SigHashAll preimage without an input index can't fail.
	preimage, _ := tx.SigHashPreimage(SigHashAll, NoInputIndex)

	return Hash(signature.Hash(preimage))
}

// SignInput signs the specified input with the private key. The input must
// already carry the public key of that private key since the key is part of
// what is being signed.
func (tx *Tx) SignInput(index int, privateKey *secp256k1.PrivateKey, mode SigHashType) error {
	if index < 0 || index >= len(tx.Inputs) {
		return fmt.Errorf("%w: index %d, inputs %d", ErrSigHashIndexRange, index, len(tx.Inputs))
	}

	if pk := PublicKey(signature.PublicKey(privateKey)); tx.Inputs[index].PubKey != pk {
		return fmt.Errorf("input %d public key %s does not match signing key %s", index, tx.Inputs[index].PubKey, pk)
	}

	preimage, err := tx.SigHashPreimage(mode, index)
	if err != nil {
		return err
	}

	sig, err := signature.Sign(signature.Hash(preimage), privateKey)
	if err != nil {
		return fmt.Errorf("signing input %d: %w", index, err)
	}

	tx.Inputs[index].Signature = SignatureFromBytes(sig)

	return nil
}

// VerifyInput checks the signature for the specified input against the
// public key. A signature that does not match returns false. An error is
// returned when the index or public key are structurally invalid.
func (tx Tx) VerifyInput(index int, sig Signature, pubKey PublicKey, mode SigHashType) (bool, error) {
	if index < 0 || index >= len(tx.Inputs) {
		return false, fmt.Errorf("%w: index %d, inputs %d", ErrSigHashIndexRange, index, len(tx.Inputs))
	}

	preimage, err := tx.SigHashPreimage(mode, index)
	if err != nil {
		return false, err
	}

	return signature.Verify(signature.Hash(preimage), sig.Bytes(), pubKey)
}

// Hash implements the merkle Hashable interface and returns the transaction
// id as the leaf hash.
func (tx Tx) Hash() ([]byte, error) {
	id := tx.ID()
	return id[:], nil
}

// Equals implements the merkle Hashable interface. Two transactions are the
// same if they have the same id and carry the same signatures.
func (tx Tx) Equals(otherTx Tx) bool {
	if tx.ID() != otherTx.ID() || len(tx.Inputs) != len(otherTx.Inputs) {
		return false
	}

	for i := range tx.Inputs {
		if tx.Inputs[i].Signature != otherTx.Inputs[i].Signature {
			return false
		}
	}

	return true
}

// String implements the fmt.Stringer interface for logging.
func (tx Tx) String() string {
	return fmt.Sprintf("%s:in[%d]:out[%d]", tx.ID(), len(tx.Inputs), len(tx.Outputs))
}

// =============================================================================

func appendInput(data []byte, in TxIn) []byte {
	data = append(data, in.PrevTxID[:]...)
	data = binary.LittleEndian.AppendUint32(data, in.PrevVout)
	data = append(data, in.PubKey[:]...)

	if cb, ok := in.Data.(CoinbaseInput); ok {
		data = binary.LittleEndian.AppendUint32(data, cb.BlockHeight)
	}

	return data
}

func appendOutput(data []byte, out TxOut) []byte {
	data = binary.LittleEndian.AppendUint64(data, out.Value)
	return append(data, out.RecipientHash[:]...)
}
