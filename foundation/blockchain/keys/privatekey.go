package keys

import (
	"crypto/ecdsa"

	"github.com/ethereum/go-ethereum/crypto"

	vcrypto "github.com/Coinversable/validana-core/foundation/blockchain/crypto"
)

// PrivateKeyLength is the length in bytes of the raw scalar backing a
// PrivateKey.
const PrivateKeyLength = 32

// PrivateKey is a secp256k1 scalar. It is never persisted by this
// package; callers own the WIF string once produced.
type PrivateKey struct {
	ecdsa *ecdsa.PrivateKey
}

// GeneratePrivateKey creates a new, randomly generated private key.
// This is the only place in the module that touches a real entropy
// source, and it must never be called from inside the sandbox.
func GeneratePrivateKey() (PrivateKey, error) {
	priv, err := crypto.GenerateKey()
	if err != nil {
		return PrivateKey{}, err
	}
	return PrivateKey{ecdsa: priv}, nil
}

// NewPrivateKeyFromBytes constructs a PrivateKey from a raw 32-byte
// scalar.
func NewPrivateKeyFromBytes(b []byte) (PrivateKey, error) {
	if len(b) != PrivateKeyLength {
		return PrivateKey{}, ErrInvalidPrivateKey
	}
	priv, err := crypto.ToECDSA(b)
	if err != nil {
		return PrivateKey{}, ErrInvalidPrivateKey
	}
	return PrivateKey{ecdsa: priv}, nil
}

// NewPrivateKeyFromWIF decodes a base58check WIF string, requiring the
// exact network byte and compressed-key flag this module defines.
func NewPrivateKeyFromWIF(wif string) (PrivateKey, error) {
	raw, err := vcrypto.Base58CheckDecode(wif)
	if err != nil {
		return PrivateKey{}, ErrInvalidWIF
	}
	if len(raw) != 1+PrivateKeyLength+1 || raw[0] != wifVersion || raw[len(raw)-1] != compressedFlag {
		return PrivateKey{}, ErrInvalidWIF
	}
	return NewPrivateKeyFromBytes(raw[1 : 1+PrivateKeyLength])
}

// Bytes returns the raw 32-byte scalar.
func (pk PrivateKey) Bytes() []byte {
	return crypto.FromECDSA(pk.ecdsa)
}

// WIF encodes the key as base58check(0x80 || priv || 0x01).
func (pk PrivateKey) WIF() string {
	payload := make([]byte, 0, 1+PrivateKeyLength+1)
	payload = append(payload, wifVersion)
	payload = append(payload, pk.Bytes()...)
	payload = append(payload, compressedFlag)
	return vcrypto.Base58CheckEncode(payload)
}

// PublicKey derives the compressed public key for this private key.
func (pk PrivateKey) PublicKey() PublicKey {
	compressed := crypto.CompressPubkey(&pk.ecdsa.PublicKey)
	var out PublicKey
	copy(out.raw[:], compressed)
	return out
}

// Address derives the address bound to this key's public key.
func (pk PrivateKey) Address() Address {
	return pk.PublicKey().Address()
}
