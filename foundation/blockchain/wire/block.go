package wire

import (
	"github.com/Coinversable/validana-core/foundation/blockchain/crypto"
	"github.com/Coinversable/validana-core/foundation/blockchain/keys"
)

// BlockVersion is the only wire version this codec accepts.
const BlockVersion = 1

// fixedBlockOverhead is every block field except the transactions and
// the trailing signature: version(1) + id(8) + prevHash(32) + ts(8).
const fixedBlockOverhead = 1 + 8 + 32 + 8

// blockSignatureLength is the trailing signature length.
const blockSignatureLength = 64

// Block is an immutable, byte-exact wire record holding a batch of
// already-encoded Transaction records.
type Block struct {
	data []byte

	version            uint8
	id                 uint64
	previousBlockHash  [32]byte
	processedTimestamp uint64
	transactions       []*Transaction
	signature          [64]byte
}

// BlockFromBytes decodes a Block from data, walking length-prefixed
// transaction records until exactly blockSignatureLength bytes remain.
func BlockFromBytes(data []byte) (*Block, error) {
	if len(data) < 4 {
		return nil, ErrShortBuffer
	}

	totalLength := crypto.Uint32(data[0:4])
	if uint64(len(data)) != 4+uint64(totalLength) {
		return nil, ErrInvalidBlockFraming
	}
	if totalLength < fixedBlockOverhead+blockSignatureLength {
		return nil, ErrShortBuffer
	}

	version := crypto.Uint8(data[4:5])
	if version != BlockVersion {
		return nil, ErrUnsupportedVersion
	}

	var b Block
	b.version = version

	id, err := crypto.ULong(data[5:13])
	if err != nil {
		return nil, ErrInvalidBlockFraming
	}
	b.id = id

	copy(b.previousBlockHash[:], data[13:45])

	ts, err := crypto.ULong(data[45:53])
	if err != nil {
		return nil, ErrInvalidBlockFraming
	}
	b.processedTimestamp = ts

	// Walk transaction records until exactly the signature remains.
	txEnd := len(data) - blockSignatureLength
	cursor := 53
	for cursor < txEnd {
		if cursor+4 > txEnd {
			return nil, ErrInvalidBlockFraming
		}
		recordLen := crypto.Uint32(data[cursor : cursor+4])
		recordEnd := cursor + 4 + int(recordLen)
		if recordEnd > txEnd {
			return nil, ErrInvalidBlockFraming
		}

		tx, err := FromBytes(data[cursor:recordEnd])
		if err != nil {
			return nil, err
		}
		b.transactions = append(b.transactions, tx)
		cursor = recordEnd
	}
	if cursor != txEnd {
		return nil, ErrInvalidBlockFraming
	}

	copy(b.signature[:], data[txEnd:])

	b.data = append([]byte{}, data...)
	return &b, nil
}

// BuildBlockPreimage returns the bytes a block's signature and hash
// both cover (version || id || previousBlockHash || processedTimestamp
// || transactions), without the leading length prefix or the trailing
// signature. Callers sign this (prefixed with the network sign prefix)
// before calling NewBlock with the resulting signature.
func BuildBlockPreimage(id uint64, previousBlockHash [32]byte, processedTimestamp uint64, transactions []*Transaction) ([]byte, error) {
	if id > crypto.MaxSafeInteger || processedTimestamp > crypto.MaxSafeInteger {
		return nil, ErrInvalidBlockFraming
	}

	var txBytes []byte
	for _, tx := range transactions {
		txBytes = append(txBytes, tx.Bytes()...)
	}

	preimage := make([]byte, fixedBlockOverhead+len(txBytes))
	crypto.PutUint8(preimage[0:1], BlockVersion)
	if err := crypto.PutULong(preimage[1:9], id); err != nil {
		return nil, ErrInvalidBlockFraming
	}
	copy(preimage[9:41], previousBlockHash[:])
	if err := crypto.PutULong(preimage[41:49], processedTimestamp); err != nil {
		return nil, ErrInvalidBlockFraming
	}
	copy(preimage[49:], txBytes)

	return preimage, nil
}

// NewBlock builds a Block from typed fields and its already-encoded
// transactions, and encodes it to canonical wire bytes.
func NewBlock(id uint64, previousBlockHash [32]byte, processedTimestamp uint64, transactions []*Transaction, signature [64]byte) (*Block, error) {
	if id > crypto.MaxSafeInteger || processedTimestamp > crypto.MaxSafeInteger {
		return nil, ErrInvalidBlockFraming
	}

	var txBytes []byte
	for _, tx := range transactions {
		txBytes = append(txBytes, tx.Bytes()...)
	}

	totalLength := fixedBlockOverhead + len(txBytes) + blockSignatureLength
	data := make([]byte, 4+totalLength)
	crypto.PutUint32(data[0:4], uint32(totalLength))
	crypto.PutUint8(data[4:5], BlockVersion)
	if err := crypto.PutULong(data[5:13], id); err != nil {
		return nil, ErrInvalidBlockFraming
	}
	copy(data[13:45], previousBlockHash[:])
	if err := crypto.PutULong(data[45:53], processedTimestamp); err != nil {
		return nil, ErrInvalidBlockFraming
	}
	copy(data[53:53+len(txBytes)], txBytes)
	copy(data[53+len(txBytes):], signature[:])

	b := Block{
		version:            BlockVersion,
		id:                 id,
		previousBlockHash:  previousBlockHash,
		processedTimestamp: processedTimestamp,
		transactions:       transactions,
		signature:          signature,
		data:               data,
	}
	return &b, nil
}

// Bytes returns the exact wire encoding, including the leading length
// prefix.
func (b *Block) Bytes() []byte {
	return append([]byte{}, b.data...)
}

// Version returns the wire version.
func (b *Block) Version() uint8 { return b.version }

// ID returns the block number; genesis is 0.
func (b *Block) ID() uint64 { return b.id }

// PreviousBlockHash returns the hash this block links to.
func (b *Block) PreviousBlockHash() [32]byte { return b.previousBlockHash }

// ProcessedTimestamp returns the block's finalization time in ms.
func (b *Block) ProcessedTimestamp() uint64 { return b.processedTimestamp }

// Transactions returns the decoded transaction records in order.
func (b *Block) Transactions() []*Transaction {
	out := make([]*Transaction, len(b.transactions))
	copy(out, b.transactions)
	return out
}

// Signature returns the 64-byte block signature.
func (b *Block) Signature() [64]byte { return b.signature }

// signedPreimage returns data[4:-64], the byte range a block signature
// and hash both cover.
func (b *Block) signedPreimage() []byte {
	return b.data[4 : len(b.data)-blockSignatureLength]
}

// Hash returns HASH256(signPrefix || data[4:-64]).
func (b *Block) Hash(signPrefix []byte) [32]byte {
	preimage := append(append([]byte{}, signPrefix...), b.signedPreimage()...)
	return crypto.Hash256(preimage)
}

// VerifySignature reports whether the block's own signature is a valid
// signature of its pre-image under pub.
func (b *Block) VerifySignature(signPrefix []byte, pub keys.PublicKey) bool {
	preimage := append(append([]byte{}, signPrefix...), b.signedPreimage()...)
	return keys.Verify(preimage, b.signature[:], pub)
}

// VerifyWithPreviousBlock implements the chain-linkage check of
// spec §4.3. prev may be nil for the genesis block.
func (b *Block) VerifyWithPreviousBlock(signPrefix []byte, prev *Block) (bool, error) {
	var zero [32]byte

	if prev == nil {
		if b.id != 0 {
			return false, ErrNotPrevious
		}
		return b.previousBlockHash == zero, nil
	}

	if prev.id+1 != b.id {
		return false, ErrNotPrevious
	}

	wantHash := prev.Hash(signPrefix)
	if b.previousBlockHash != wantHash {
		return false, nil
	}

	return b.processedTimestamp > prev.processedTimestamp, nil
}
