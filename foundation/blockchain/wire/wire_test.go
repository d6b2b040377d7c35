package wire_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Coinversable/validana-core/foundation/blockchain/keys"
	"github.com/Coinversable/validana-core/foundation/blockchain/wire"
)

var signPrefix = []byte("bla")

func newSignedTx(t *testing.T, priv keys.PrivateKey, contractHash [32]byte, validTill uint64, payload []byte) *wire.Transaction {
	t.Helper()

	var id [16]byte
	id[0] = 1

	preimage, err := wire.BuildTransactionPreimage(id, contractHash, validTill, payload)
	require.NoError(t, err)

	sig, err := keys.Sign(append(append([]byte{}, signPrefix...), preimage...), priv)
	require.NoError(t, err)

	tx, err := wire.NewTransaction(id, contractHash, validTill, payload, [64]byte(sig), priv.PublicKey())
	require.NoError(t, err)
	return tx
}

func TestNewTransactionIDIsRandomAndSixteenBytes(t *testing.T) {
	a := wire.NewTransactionID()
	b := wire.NewTransactionID()
	require.Len(t, a, 16)
	require.NotEqual(t, a, b)
}

func TestTransactionRoundTrip(t *testing.T) {
	priv, err := keys.GeneratePrivateKey()
	require.NoError(t, err)

	tx := newSignedTx(t, priv, [32]byte{}, 0, []byte(`{"amount":3}`))

	decoded, err := wire.FromBytes(tx.Bytes())
	require.NoError(t, err)
	require.Equal(t, tx.Bytes(), decoded.Bytes())
	require.True(t, decoded.VerifySignature(signPrefix))
}

func TestTransactionSignatureFlipInvalidates(t *testing.T) {
	priv, err := keys.GeneratePrivateKey()
	require.NoError(t, err)

	tx := newSignedTx(t, priv, [32]byte{}, 0, []byte(`{}`))
	require.True(t, tx.VerifySignature(signPrefix))

	raw := tx.Bytes()
	// The signature sits right before the trailing 33-byte public key.
	sigByteIdx := len(raw) - 33 - 1
	raw[sigByteIdx] ^= 0xFF

	mutated, err := wire.FromBytes(raw)
	require.NoError(t, err)
	require.False(t, mutated.VerifySignature(signPrefix))
}

func TestSplitEmptyStream(t *testing.T) {
	txs, err := wire.Split(nil)
	require.NoError(t, err)
	require.Empty(t, txs)
}

func TestSplitRejectsShortJunk(t *testing.T) {
	_, err := wire.Split([]byte{1, 2, 3})
	require.ErrorIs(t, err, wire.ErrInvalidStream)
}

func TestMergeSplitIdentity(t *testing.T) {
	priv, err := keys.GeneratePrivateKey()
	require.NoError(t, err)

	tx1 := newSignedTx(t, priv, [32]byte{}, 0, []byte(`{"a":1}`))
	tx2 := newSignedTx(t, priv, [32]byte{}, 0, []byte(`{"a":2}`))

	merged := wire.Merge([]*wire.Transaction{tx1, tx2})
	split, err := wire.Split(merged)
	require.NoError(t, err)
	require.Len(t, split, 2)
	require.Equal(t, tx1.Bytes(), split[0].Bytes())
	require.Equal(t, tx2.Bytes(), split[1].Bytes())
}

func TestBlockRoundTripAndLinkage(t *testing.T) {
	priv, err := keys.GeneratePrivateKey()
	require.NoError(t, err)

	tx := newSignedTx(t, priv, [32]byte{}, 0, []byte(`{}`))

	var zero [32]byte
	genesisPre, err := wire.BuildBlockPreimage(0, zero, 1000, []*wire.Transaction{tx})
	require.NoError(t, err)
	genesisSig, err := keys.Sign(append(append([]byte{}, signPrefix...), genesisPre...), priv)
	require.NoError(t, err)
	genesis, err := wire.NewBlock(0, zero, 1000, []*wire.Transaction{tx}, [64]byte(genesisSig))
	require.NoError(t, err)

	decoded, err := wire.BlockFromBytes(genesis.Bytes())
	require.NoError(t, err)
	require.Equal(t, genesis.Bytes(), decoded.Bytes())

	ok, err := decoded.VerifyWithPreviousBlock(signPrefix, nil)
	require.NoError(t, err)
	require.True(t, ok)

	nextHash := genesis.Hash(signPrefix)
	nextPre, err := wire.BuildBlockPreimage(1, nextHash, 2000, nil)
	require.NoError(t, err)
	nextSig, err := keys.Sign(append(append([]byte{}, signPrefix...), nextPre...), priv)
	require.NoError(t, err)
	next, err := wire.NewBlock(1, nextHash, 2000, nil, [64]byte(nextSig))
	require.NoError(t, err)

	ok, err = next.VerifyWithPreviousBlock(signPrefix, genesis)
	require.NoError(t, err)
	require.True(t, ok)

	_, err = next.VerifyWithPreviousBlock(signPrefix, next)
	require.ErrorIs(t, err, wire.ErrNotPrevious)
}
