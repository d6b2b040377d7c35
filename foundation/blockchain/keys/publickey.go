package keys

import (
	"github.com/ethereum/go-ethereum/crypto"

	vcrypto "github.com/Coinversable/validana-core/foundation/blockchain/crypto"
)

// PublicKey is a 33-byte compressed secp256k1 point. Values are
// immutable once constructed: the constructor is the only place curve
// validation happens.
type PublicKey struct {
	raw [PublicKeyLength]byte
}

// NewPublicKey validates b as a compressed secp256k1 point and returns
// the corresponding PublicKey. It fails with ErrInvalidKey unless b
// decompresses to a point on the curve.
func NewPublicKey(b []byte) (PublicKey, error) {
	if len(b) != PublicKeyLength || (b[0] != 0x02 && b[0] != 0x03) {
		return PublicKey{}, ErrInvalidKey
	}

	if _, err := crypto.DecompressPubkey(b); err != nil {
		return PublicKey{}, ErrInvalidKey
	}

	var pk PublicKey
	copy(pk.raw[:], b)
	return pk, nil
}

// Bytes returns the 33-byte compressed encoding.
func (pk PublicKey) Bytes() []byte {
	out := make([]byte, PublicKeyLength)
	copy(out, pk.raw[:])
	return out
}

// Address derives the base58check address bound to this key.
func (pk PublicKey) Address() Address {
	h160 := vcrypto.Hash160(pk.raw[:])
	return NewAddressFromBuffer(h160[:])
}
