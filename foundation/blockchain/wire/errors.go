// Package wire implements the byte-exact Transaction and Block codec:
// the on-the-wire and on-disk representation shared by the processor,
// the P2P replication layer (out of scope here) and the block-building
// loop (out of scope here).
package wire

import "errors"

// Construction errors. Every constructor that reads raw bytes returns
// one of these on malformed input; constructors that build a record
// from typed fields return the same sentinels for the same invariant
// violations.
var (
	ErrUnsupportedVersion  = errors.New("wire: unsupported version")
	ErrShortBuffer         = errors.New("wire: buffer too short")
	ErrInvalidValidTill    = errors.New("wire: invalid valid_till")
	ErrPayloadTooLarge     = errors.New("wire: payload too large")
	ErrInvalidPublicKey    = errors.New("wire: invalid public key")
	ErrInvalidTxFraming    = errors.New("wire: invalid transaction framing")
	ErrInvalidBlockFraming = errors.New("wire: invalid block framing")
	ErrInvalidStream       = errors.New("wire: invalid record stream")
	ErrNotPrevious         = errors.New("wire: block is not a successor of the given previous block")
)
