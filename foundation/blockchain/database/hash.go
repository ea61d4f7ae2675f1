package database

import (
	"fmt"

	"github.com/ardanlabs/utxoledger/foundation/blockchain/signature"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// Hash represents a 32 byte BLAKE3 digest. It is used for transaction ids,
// block hashes, merkle roots and the recipient commitment of an output.
type Hash [signature.HashSize]byte

// ZeroHash represents a hash with every byte set to zero. It marks the parent
// of the genesis block and the previous output of a coinbase input.
var ZeroHash Hash

// ToHash converts a 0x prefixed hex string into a hash.
func ToHash(s string) (Hash, error) {
	var h Hash
	if err := decodeFixed(h[:], s); err != nil {
		return Hash{}, err
	}

	return h, nil
}

// IsZero reports whether every byte of the hash is zero.
func (h Hash) IsZero() bool {
	return h == ZeroHash
}

// String implements the fmt.Stringer interface.
func (h Hash) String() string {
	return hexutil.Encode(h[:])
}

// MarshalText implements the encoding.TextMarshaler interface.
func (h Hash) MarshalText() ([]byte, error) {
	return []byte(h.String()), nil
}

// UnmarshalText implements the encoding.TextUnmarshaler interface.
func (h *Hash) UnmarshalText(data []byte) error {
	return decodeFixed(h[:], string(data))
}

// =============================================================================

// PublicKey represents a 32 byte x-only Schnorr public key.
type PublicKey [signature.PublicKeySize]byte

// String implements the fmt.Stringer interface.
func (pk PublicKey) String() string {
	return hexutil.Encode(pk[:])
}

// Address returns the recipient commitment an output pays to for this key.
func (pk PublicKey) Address() Hash {
	return Hash(signature.PubKeyToAddress(pk))
}

// MarshalText implements the encoding.TextMarshaler interface.
func (pk PublicKey) MarshalText() ([]byte, error) {
	return []byte(pk.String()), nil
}

// UnmarshalText implements the encoding.TextUnmarshaler interface.
func (pk *PublicKey) UnmarshalText(data []byte) error {
	return decodeFixed(pk[:], string(data))
}

// =============================================================================

// Signature represents a BIP-340 Schnorr signature split into its R and S
// halves.
type Signature struct {
	R [32]byte
	S [32]byte
}

// SignatureFromBytes splits a serialized 64 byte signature.
func SignatureFromBytes(b [signature.SignatureSize]byte) Signature {
	var sig Signature
	copy(sig.R[:], b[:32])
	copy(sig.S[:], b[32:])
	return sig
}

// Bytes returns the 64 byte serialized form of the signature.
func (sig Signature) Bytes() [signature.SignatureSize]byte {
	var b [signature.SignatureSize]byte
	copy(b[:32], sig.R[:])
	copy(b[32:], sig.S[:])
	return b
}

// IsZero reports whether the signature has never been set.
func (sig Signature) IsZero() bool {
	return sig == (Signature{})
}

// String implements the fmt.Stringer interface.
func (sig Signature) String() string {
	b := sig.Bytes()
	return hexutil.Encode(b[:])
}

// MarshalText implements the encoding.TextMarshaler interface.
func (sig Signature) MarshalText() ([]byte, error) {
	return []byte(sig.String()), nil
}

// UnmarshalText implements the encoding.TextUnmarshaler interface.
func (sig *Signature) UnmarshalText(data []byte) error {
	var b [signature.SignatureSize]byte
	if err := decodeFixed(b[:], string(data)); err != nil {
		return err
	}

	*sig = SignatureFromBytes(b)
	return nil
}

// =============================================================================

// decodeFixed decodes the hex string into dst, requiring an exact length.
func decodeFixed(dst []byte, s string) error {
	b, err := hexutil.Decode(s)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrDecode, err)
	}

	if len(b) != len(dst) {
		return fmt.Errorf("%w: expected %d bytes, got %d", ErrDecode, len(dst), len(b))
	}

	copy(dst, b)
	return nil
}
