package crypto

import (
	"encoding/binary"
	"errors"
)

// ErrOutOfRange is returned when a value or a decoded field falls
// outside the safe-integer range this codec guarantees round-trips.
var ErrOutOfRange = errors.New("crypto: value out of safe integer range")

// MaxSafeInteger is the largest integer value this module ever encodes
// or accepts on decode: 2^53 - 1, matching the safe-integer boundary
// the wire format inherits from the reference implementation.
const MaxSafeInteger = uint64(1<<53) - 1

// PutUint8 writes v as a single byte into dst, which must have length 1.
func PutUint8(dst []byte, v uint8) {
	dst[0] = v
}

// PutUint16 writes v little-endian into dst, which must have length 2.
func PutUint16(dst []byte, v uint16) {
	binary.LittleEndian.PutUint16(dst, v)
}

// PutUint32 writes v little-endian into dst, which must have length 4.
func PutUint32(dst []byte, v uint32) {
	binary.LittleEndian.PutUint32(dst, v)
}

// PutULong encodes v, a safe 53-bit unsigned integer, across 8
// little-endian bytes with the top 11 bits always zero. It returns
// ErrOutOfRange if v exceeds MaxSafeInteger.
func PutULong(dst []byte, v uint64) error {
	if v > MaxSafeInteger {
		return ErrOutOfRange
	}
	binary.LittleEndian.PutUint64(dst, v)
	return nil
}

// Uint8 reads a single byte.
func Uint8(src []byte) uint8 {
	return src[0]
}

// Uint16 reads a little-endian uint16.
func Uint16(src []byte) uint16 {
	return binary.LittleEndian.Uint16(src)
}

// Uint32 reads a little-endian uint32.
func Uint32(src []byte) uint32 {
	return binary.LittleEndian.Uint32(src)
}

// ULong reads an 8-byte little-endian integer and rejects any value
// outside the safe-integer range (equivalent to a failed
// Number.isSafeInteger check in the reference implementation).
func ULong(src []byte) (uint64, error) {
	v := binary.LittleEndian.Uint64(src)
	if v > MaxSafeInteger {
		return 0, ErrOutOfRange
	}
	return v, nil
}
