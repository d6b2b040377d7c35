package crypto

import (
	"encoding/base64"
	"encoding/hex"
	"errors"
	"math/big"
	"unicode/utf8"
)

// ErrInvalidEncoding is returned by any decoder when the input bytes
// are not a well-formed instance of the target encoding.
var ErrInvalidEncoding = errors.New("crypto: invalid encoding")

// base58Alphabet is the Bitcoin base58 alphabet: digits and letters with
// the visually ambiguous characters 0, O, I, l removed.
const base58Alphabet = "123456789ABCDEFGHJKLMNPQRSTUVWXYZabcdefghijkmnopqrstuvwxyz"

var base58Radix = big.NewInt(58)

// Base58Encode encodes data using the Bitcoin base58 alphabet.
func Base58Encode(data []byte) string {
	x := new(big.Int).SetBytes(data)
	mod := new(big.Int)

	var out []byte
	for x.Sign() > 0 {
		x.DivMod(x, base58Radix, mod)
		out = append(out, base58Alphabet[mod.Int64()])
	}

	// Reverse since we built the digits least-significant first.
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}

	// Preserve leading zero bytes as leading '1's, matching Bitcoin's
	// convention so that HASH160(pubkey) round-trips byte-exactly.
	for _, b := range data {
		if b != 0 {
			break
		}
		out = append([]byte{base58Alphabet[0]}, out...)
	}

	return string(out)
}

// Base58Decode decodes a base58 string back into bytes.
func Base58Decode(s string) ([]byte, error) {
	x := big.NewInt(0)
	for _, r := range s {
		idx := indexByte(base58Alphabet, byte(r))
		if idx < 0 {
			return nil, ErrInvalidEncoding
		}
		x.Mul(x, base58Radix)
		x.Add(x, big.NewInt(int64(idx)))
	}

	decoded := x.Bytes()

	// Restore leading zero bytes represented by leading '1's.
	leading := []byte{}
	for i := 0; i < len(s) && s[i] == base58Alphabet[0]; i++ {
		leading = append(leading, 0)
	}

	return append(leading, decoded...), nil
}

func indexByte(alphabet string, b byte) int {
	for i := 0; i < len(alphabet); i++ {
		if alphabet[i] == b {
			return i
		}
	}
	return -1
}

// Base58CheckEncode appends the first 4 bytes of HASH256(data) to data
// and base58-encodes the result.
func Base58CheckEncode(data []byte) string {
	checksum := Hash256(data)
	return Base58Encode(append(append([]byte{}, data...), checksum[:4]...))
}

// Base58CheckDecode reverses Base58CheckEncode, verifying the checksum.
func Base58CheckDecode(s string) ([]byte, error) {
	raw, err := Base58Decode(s)
	if err != nil {
		return nil, err
	}
	if len(raw) < 4 {
		return nil, ErrInvalidEncoding
	}

	payload, checksum := raw[:len(raw)-4], raw[len(raw)-4:]
	want := Hash256(payload)
	for i := 0; i < 4; i++ {
		if checksum[i] != want[i] {
			return nil, ErrInvalidEncoding
		}
	}

	return payload, nil
}

// HexEncode returns the lowercase hex encoding of data.
func HexEncode(data []byte) string {
	return hex.EncodeToString(data)
}

// HexDecode decodes a hex string, rejecting odd-length or non-hex input.
func HexDecode(s string) ([]byte, error) {
	if len(s)%2 != 0 {
		return nil, ErrInvalidEncoding
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, ErrInvalidEncoding
	}
	return b, nil
}

// IsHex reports whether s is a valid even-length hex string.
func IsHex(s string) bool {
	_, err := HexDecode(s)
	return err == nil
}

// Base64Encode returns the standard base64 encoding of data.
func Base64Encode(data []byte) string {
	return base64.StdEncoding.EncodeToString(data)
}

// Base64Decode decodes a standard base64 string.
func Base64Decode(s string) ([]byte, error) {
	b, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, ErrInvalidEncoding
	}
	return b, nil
}

// IsBase64 reports whether s is valid standard base64.
func IsBase64(s string) bool {
	_, err := Base64Decode(s)
	return err == nil
}

// IsValidUTF8 reports whether data is well-formed UTF-8.
func IsValidUTF8(data []byte) bool {
	return utf8.Valid(data)
}
