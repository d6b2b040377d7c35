package keys

import (
	vcrypto "github.com/Coinversable/validana-core/foundation/blockchain/crypto"
)

// Address is a base58check-encoded network address: 25 raw bytes
// (network byte || 20-byte HASH160), text length at most 35 characters.
type Address struct {
	raw [AddressLength]byte
}

// NewAddressFromBuffer builds an Address from a raw 20-byte HASH160.
func NewAddressFromBuffer(hash160 []byte) Address {
	var a Address
	a.raw[0] = addressVersion
	copy(a.raw[1:], hash160)
	return a
}

// NewAddressFromString decodes and checksum-verifies a base58check
// address string.
func NewAddressFromString(s string) (Address, error) {
	if len(s) > 35 {
		return Address{}, ErrInvalidAddress
	}
	raw, err := vcrypto.Base58CheckDecode(s)
	if err != nil {
		return Address{}, ErrInvalidAddress
	}
	if len(raw) != AddressLength || raw[0] != addressVersion {
		return Address{}, ErrInvalidAddress
	}
	var a Address
	copy(a.raw[:], raw)
	return a, nil
}

// IsValidAddress reports whether s decodes to a well-formed address.
func IsValidAddress(s string) bool {
	_, err := NewAddressFromString(s)
	return err == nil
}

// AsBuffer returns the raw 20-byte HASH160 payload (without the
// network byte).
func (a Address) AsBuffer() []byte {
	out := make([]byte, 20)
	copy(out, a.raw[1:])
	return out
}

// AsString returns the base58check text form.
func (a Address) AsString() string {
	return vcrypto.Base58CheckEncode(a.raw[:])
}

// String implements fmt.Stringer.
func (a Address) String() string {
	return a.AsString()
}

// Equal reports whether two addresses encode the same HASH160 payload.
func (a Address) Equal(other Address) bool {
	return a.raw == other.raw
}
