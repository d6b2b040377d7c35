package wire

import "github.com/Coinversable/validana-core/foundation/blockchain/crypto"

// Merge concatenates the wire bytes of every transaction, in order,
// into a single stream suitable for replication or storage.
func Merge(transactions []*Transaction) []byte {
	var out []byte
	for _, tx := range transactions {
		out = append(out, tx.Bytes()...)
	}
	return out
}

// Split reverses Merge: it reads the leading u32 length of each record
// to find its end, stopping exactly at the end of data. An empty
// stream splits into zero transactions; any trailing bytes that don't
// form a complete record make the whole stream invalid.
func Split(data []byte) ([]*Transaction, error) {
	if len(data) == 0 {
		return nil, nil
	}

	var out []*Transaction
	cursor := 0
	for cursor < len(data) {
		if cursor+4 > len(data) {
			return nil, ErrInvalidStream
		}
		recordLen := crypto.Uint32(data[cursor : cursor+4])
		recordEnd := cursor + 4 + int(recordLen)
		if recordEnd > len(data) {
			return nil, ErrInvalidStream
		}

		tx, err := FromBytes(data[cursor:recordEnd])
		if err != nil {
			return nil, ErrInvalidStream
		}
		out = append(out, tx)
		cursor = recordEnd
	}

	return out, nil
}
