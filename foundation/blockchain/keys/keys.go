// Package keys implements secp256k1 key material, WIF encoding and
// base58check address derivation used throughout the wire codec and the
// transaction processor. It is a thin, spec-shaped layer over
// go-ethereum's secp256k1 bindings: only the field encodings differ from
// go-ethereum's own (Keccak-based) address scheme.
package keys

import (
	"errors"
)

// Sentinel construction errors, named to match the wire codec's own
// error taxonomy so callers can treat key errors the same way.
var (
	ErrInvalidKey        = errors.New("keys: invalid public key")
	ErrInvalidPrivateKey = errors.New("keys: invalid private key")
	ErrInvalidWIF        = errors.New("keys: invalid WIF")
	ErrInvalidAddress    = errors.New("keys: invalid address")
	ErrInvalidSignature  = errors.New("keys: invalid signature encoding")
)

// PublicKeyLength is the length in bytes of a compressed secp256k1
// public key: a one-byte parity prefix followed by the 32-byte X
// coordinate.
const PublicKeyLength = 33

// AddressLength is the length in bytes of the payload
// (network-byte || HASH160(pubkey)) an address encodes.
const AddressLength = 25

// wifVersion is the network byte prepended to a WIF-encoded private key.
const wifVersion = 0x80

// addressVersion is the network byte prepended to a HASH160 to form an
// address payload.
const addressVersion = 0x00

// compressedFlag is appended to a WIF payload to mark that the
// corresponding public key must be derived in compressed form.
const compressedFlag = 0x01
