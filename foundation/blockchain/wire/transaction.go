package wire

import (
	"github.com/google/uuid"

	"github.com/Coinversable/validana-core/foundation/blockchain/crypto"
	"github.com/Coinversable/validana-core/foundation/blockchain/keys"
)

// TransactionVersion is the only wire version this codec accepts.
const TransactionVersion = 1

// MaxPayloadLength bounds the UTF-8 payload carried by a transaction.
const MaxPayloadLength = 100_000

// fixedTxOverhead is every transaction field except the payload:
// version(1) + id(16) + contractHash(32) + validTill(8) + signature(64) + pubkey(33).
const fixedTxOverhead = 1 + 16 + 32 + 8 + 64 + 33

// Transaction is an immutable, byte-exact wire record. Values are only
// ever produced by FromBytes or NewTransaction; both validate every invariant
// before returning, so a live *Transaction is always well-formed.
type Transaction struct {
	data []byte // the exact wire bytes, length-prefixed

	version      uint8
	id           [16]byte
	contractHash [32]byte
	validTill    uint64
	payload      []byte
	signature    [64]byte
	publicKey    keys.PublicKey
}

// FromBytes decodes a length-prefixed Transaction from data. data must
// contain exactly one record; use Split to break a stream apart first.
func FromBytes(data []byte) (*Transaction, error) {
	if len(data) < 4 {
		return nil, ErrShortBuffer
	}

	totalLength := crypto.Uint32(data[0:4])
	if uint64(len(data)) != 4+uint64(totalLength) {
		return nil, ErrInvalidTxFraming
	}
	if totalLength < fixedTxOverhead {
		return nil, ErrShortBuffer
	}

	payloadLength := totalLength - fixedTxOverhead
	if payloadLength > MaxPayloadLength {
		return nil, ErrPayloadTooLarge
	}

	version := crypto.Uint8(data[4:5])
	if version != TransactionVersion {
		return nil, ErrUnsupportedVersion
	}

	var tx Transaction
	tx.version = version
	copy(tx.id[:], data[5:21])
	copy(tx.contractHash[:], data[21:53])

	validTill, err := crypto.ULong(data[53:61])
	if err != nil {
		return nil, ErrInvalidValidTill
	}
	tx.validTill = validTill

	payloadStart := 61
	payloadEnd := payloadStart + int(payloadLength)
	tx.payload = append([]byte{}, data[payloadStart:payloadEnd]...)
	if !crypto.IsValidUTF8(tx.payload) {
		return nil, ErrInvalidTxFraming
	}

	sigStart := payloadEnd
	copy(tx.signature[:], data[sigStart:sigStart+64])

	pubKeyStart := sigStart + 64
	pub, err := keys.NewPublicKey(data[pubKeyStart : pubKeyStart+33])
	if err != nil {
		return nil, ErrInvalidPublicKey
	}
	tx.publicKey = pub

	tx.data = append([]byte{}, data...)
	return &tx, nil
}

// NewTransactionID returns a fresh random transaction_id. The field is
// exactly 16 bytes wide, the same size as a UUID, so a random v4 UUID
// is a natural fit for the "caller-chosen unique identifier" this
// field serves as; callers are free to supply their own id to
// NewTransaction instead.
func NewTransactionID() [16]byte {
	return [16]byte(uuid.New())
}

// BuildTransactionPreimage returns the bytes a transaction's signature
// covers (version || id || contractHash || validTill || payload),
// without the leading length prefix or the trailing signature+pubkey.
// Callers sign this (prefixed with the network sign prefix) before
// calling NewTransaction with the resulting signature.
func BuildTransactionPreimage(id [16]byte, contractHash [32]byte, validTill uint64, payload []byte) ([]byte, error) {
	if validTill > crypto.MaxSafeInteger {
		return nil, ErrInvalidValidTill
	}
	if len(payload) > MaxPayloadLength {
		return nil, ErrPayloadTooLarge
	}

	preimage := make([]byte, 1+16+32+8+len(payload))
	crypto.PutUint8(preimage[0:1], TransactionVersion)
	copy(preimage[1:17], id[:])
	copy(preimage[17:49], contractHash[:])
	if err := crypto.PutULong(preimage[49:57], validTill); err != nil {
		return nil, ErrInvalidValidTill
	}
	copy(preimage[57:], payload)

	return preimage, nil
}

// NewTransaction builds a Transaction from typed fields, validating
// every invariant FromBytes would enforce, and encodes it to its
// canonical wire bytes.
func NewTransaction(id [16]byte, contractHash [32]byte, validTill uint64, payload []byte, signature [64]byte, pub keys.PublicKey) (*Transaction, error) {
	if validTill > crypto.MaxSafeInteger {
		return nil, ErrInvalidValidTill
	}
	if len(payload) > MaxPayloadLength {
		return nil, ErrPayloadTooLarge
	}
	if !crypto.IsValidUTF8(payload) {
		return nil, ErrInvalidTxFraming
	}

	tx := Transaction{
		version:      TransactionVersion,
		id:           id,
		contractHash: contractHash,
		validTill:    validTill,
		payload:      append([]byte{}, payload...),
		signature:    signature,
		publicKey:    pub,
	}

	totalLength := fixedTxOverhead + len(payload)
	data := make([]byte, 4+totalLength)
	crypto.PutUint32(data[0:4], uint32(totalLength))
	crypto.PutUint8(data[4:5], TransactionVersion)
	copy(data[5:21], id[:])
	copy(data[21:53], contractHash[:])
	if err := crypto.PutULong(data[53:61], validTill); err != nil {
		return nil, ErrInvalidValidTill
	}
	copy(data[61:61+len(payload)], payload)
	sigStart := 61 + len(payload)
	copy(data[sigStart:sigStart+64], signature[:])
	copy(data[sigStart+64:sigStart+64+33], pub.Bytes())

	tx.data = data
	return &tx, nil
}

// Bytes returns the exact wire encoding, including the leading length
// prefix.
func (tx *Transaction) Bytes() []byte {
	return append([]byte{}, tx.data...)
}

// Version returns the wire version, always TransactionVersion for a
// live value.
func (tx *Transaction) Version() uint8 { return tx.version }

// ID returns the transaction id.
func (tx *Transaction) ID() [16]byte { return tx.id }

// ContractHash returns the contract this transaction targets.
func (tx *Transaction) ContractHash() [32]byte { return tx.contractHash }

// ValidTill returns the expiry timestamp in ms since epoch, or 0 for
// no expiry.
func (tx *Transaction) ValidTill() uint64 { return tx.validTill }

// Payload returns the raw UTF-8 payload bytes.
func (tx *Transaction) Payload() []byte {
	return append([]byte{}, tx.payload...)
}

// Signature returns the 64-byte r||s signature.
func (tx *Transaction) Signature() [64]byte { return tx.signature }

// PublicKey returns the signer's compressed public key.
func (tx *Transaction) PublicKey() keys.PublicKey { return tx.publicKey }

// From derives the address bound to the signer's public key.
func (tx *Transaction) From() keys.Address {
	return tx.publicKey.Address()
}

// signedPreimage returns the byte range a signature covers: everything
// except the leading length prefix and the trailing signature+pubkey.
func (tx *Transaction) signedPreimage() []byte {
	sigOffset := len(tx.data) - 64 - 33
	return tx.data[4:sigOffset]
}

// Hash returns HASH256(signPrefix || data[4:-97]), the transaction
// identifier used by block hashing and replication.
func (tx *Transaction) Hash(signPrefix []byte) [32]byte {
	preimage := append(append([]byte{}, signPrefix...), tx.signedPreimage()...)
	return crypto.Hash256(preimage)
}

// VerifySignature reports whether the transaction's signature is a
// valid signature of SHA-256(signPrefix || signedPreimage) under its
// own public key.
func (tx *Transaction) VerifySignature(signPrefix []byte) bool {
	preimage := append(append([]byte{}, signPrefix...), tx.signedPreimage()...)
	return keys.Verify(preimage, tx.signature[:], tx.publicKey)
}
