// Package crypto provides the deterministic hash, digest and encoding
// primitives every other package in this module builds on. Every function
// here is a pure transform over bytes: no clocks, no randomness, no
// host-dependent state.
package crypto

import (
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"

	"golang.org/x/crypto/ripemd160" //nolint:staticcheck // required for HASH160 compatibility
)

// SHA1 returns the SHA-1 digest of data.
func SHA1(data []byte) [20]byte {
	return sha1.Sum(data)
}

// SHA256 returns the SHA-256 digest of data.
func SHA256(data []byte) [32]byte {
	return sha256.Sum256(data)
}

// SHA512 returns the SHA-512 digest of data.
func SHA512(data []byte) [64]byte {
	return sha512.Sum512(data)
}

// MD5 returns the MD5 digest of data.
func MD5(data []byte) [16]byte {
	return md5.Sum(data)
}

// RIPEMD160 returns the RIPEMD-160 digest of data.
func RIPEMD160(data []byte) [20]byte {
	h := ripemd160.New()
	h.Write(data) //nolint:errcheck // hash.Hash.Write never fails

	var out [20]byte
	copy(out[:], h.Sum(nil))
	return out
}

// Hash160 returns RIPEMD160(SHA256(data)), the digest used to derive
// addresses from public keys.
func Hash160(data []byte) [20]byte {
	sha := SHA256(data)
	return RIPEMD160(sha[:])
}

// Hash256 returns SHA256(SHA256(data)), the digest used for block and
// transaction identifiers and for base58check checksums.
func Hash256(data []byte) [32]byte {
	first := SHA256(data)
	return SHA256(first[:])
}
