// Package signature provides helper functions for handling the blockchain
// hashing and signature needs.
package signature

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"lukechampine.com/blake3"
)

// Sizes of the values produced and consumed by this package.
const (
	HashSize      = 32
	PublicKeySize = 32
	SignatureSize = 64
)

// ErrInvalidPublicKey is returned when public key bytes do not describe a
// valid x-only point on the curve.
var ErrInvalidPublicKey = errors.New("invalid public key")

// =============================================================================

// Hash returns the BLAKE3 digest of the concatenation of the provided data.
func Hash(data ...[]byte) [HashSize]byte {
	h := blake3.New(HashSize, nil)
	for _, d := range data {
		h.Write(d)
	}

	var out [HashSize]byte
	copy(out[:], h.Sum(nil))
	return out
}

// PubKeyToAddress converts an x-only public key into the 32 byte address
// outputs are paid to. The address is the double BLAKE3 of the key.
func PubKeyToAddress(pubKey [PublicKeySize]byte) [HashSize]byte {
	first := Hash(pubKey[:])
	return Hash(first[:])
}

// =============================================================================

// GenerateKey constructs a new random private key.
func GenerateKey() (*secp256k1.PrivateKey, error) {
	return secp256k1.GeneratePrivateKey()
}

// PrivateKeyFromHex decodes a 0x prefixed hex encoded private key.
func PrivateKeyFromHex(s string) (*secp256k1.PrivateKey, error) {
	b, err := hexutil.Decode(strings.TrimSpace(s))
	if err != nil {
		return nil, fmt.Errorf("decoding private key: %w", err)
	}

	if len(b) != secp256k1.PrivKeyBytesLen {
		return nil, fmt.Errorf("private key must be %d bytes, got %d", secp256k1.PrivKeyBytesLen, len(b))
	}

	return secp256k1.PrivKeyFromBytes(b), nil
}

// LoadKey reads a hex encoded private key from the specified file.
func LoadKey(path string) (*secp256k1.PrivateKey, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	return PrivateKeyFromHex(string(data))
}

// SaveKey writes the private key hex encoded to the specified file.
func SaveKey(path string, privateKey *secp256k1.PrivateKey) error {
	data := hexutil.Encode(privateKey.Serialize())
	return os.WriteFile(path, []byte(data), 0600)
}

// PublicKey returns the x-only public key for the private key.
func PublicKey(privateKey *secp256k1.PrivateKey) [PublicKeySize]byte {
	var pk [PublicKeySize]byte
	copy(pk[:], schnorr.SerializePubKey(privateKey.PubKey()))
	return pk
}

// =============================================================================

// Sign produces a BIP-340 Schnorr signature of the 32 byte digest.
func Sign(digest [HashSize]byte, privateKey *secp256k1.PrivateKey) ([SignatureSize]byte, error) {
	sig, err := schnorr.Sign(privateKey, digest[:])
	if err != nil {
		return [SignatureSize]byte{}, err
	}

	var out [SignatureSize]byte
	copy(out[:], sig.Serialize())
	return out, nil
}

// Verify checks the Schnorr signature of the digest against the x-only public
// key. A signature that does not verify returns false. An error is only
// returned when the public key bytes are malformed.
func Verify(digest [HashSize]byte, sig [SignatureSize]byte, pubKey [PublicKeySize]byte) (bool, error) {
	pk, err := schnorr.ParsePubKey(pubKey[:])
	if err != nil {
		return false, fmt.Errorf("%w: %s", ErrInvalidPublicKey, err)
	}

	// Values of r or s outside the field are just bad signatures.
	s, err := schnorr.ParseSignature(sig[:])
	if err != nil {
		return false, nil
	}

	return s.Verify(digest[:], pk), nil
}
