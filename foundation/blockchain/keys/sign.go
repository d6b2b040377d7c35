package keys

import (
	"github.com/ethereum/go-ethereum/crypto"

	vcrypto "github.com/Coinversable/validana-core/foundation/blockchain/crypto"
)

// SignatureLength is the fixed length of a repacked (r||s) signature.
const SignatureLength = 64

// Sign hashes message with SHA-256 and produces a fixed 64-byte
// signature: 32-byte big-endian r followed by 32-byte big-endian s.
// The only nondeterminism involved is ECDSA's own per-signature nonce.
func Sign(message []byte, priv PrivateKey) ([]byte, error) {
	digest := vcrypto.SHA256(message)

	sig, err := crypto.Sign(digest[:], priv.ecdsa)
	if err != nil {
		return nil, err
	}

	// go-ethereum's Sign returns 65 bytes: r(32) || s(32) || v(1).
	// The wire format only carries r||s; recovery is never needed
	// because the public key travels alongside the signature.
	out := make([]byte, SignatureLength)
	copy(out, sig[:SignatureLength])
	return out, nil
}

// Verify checks that signature is a valid signature of SHA-256(message)
// under pub. signature must be exactly SignatureLength bytes.
func Verify(message []byte, signature []byte, pub PublicKey) bool {
	if len(signature) != SignatureLength {
		return false
	}

	digest := vcrypto.SHA256(message)
	return crypto.VerifySignature(pub.Bytes(), digest[:], signature)
}
