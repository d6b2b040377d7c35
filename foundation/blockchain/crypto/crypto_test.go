package crypto_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Coinversable/validana-core/foundation/blockchain/crypto"
)

func TestHash160AndHash256(t *testing.T) {
	data := []byte("validana")

	h160 := crypto.Hash160(data)
	require.Len(t, h160, 20)

	h256 := crypto.Hash256(data)
	require.Len(t, h256, 32)

	// Hash256 must equal SHA256(SHA256(data)).
	first := crypto.SHA256(data)
	second := crypto.SHA256(first[:])
	require.Equal(t, second, h256)
}

func TestBase58RoundTrip(t *testing.T) {
	inputs := [][]byte{
		{},
		{0x00},
		{0x00, 0x00, 0x01},
		[]byte("hello base58 world"),
	}

	for _, in := range inputs {
		enc := crypto.Base58Encode(in)
		dec, err := crypto.Base58Decode(enc)
		require.NoError(t, err)
		require.Equal(t, in, dec)
	}
}

func TestBase58CheckRejectsCorruption(t *testing.T) {
	enc := crypto.Base58CheckEncode([]byte{0x00, 1, 2, 3, 4, 5})

	_, err := crypto.Base58CheckDecode(enc)
	require.NoError(t, err)

	// Flip one visible character; the checksum must catch it.
	corrupted := []byte(enc)
	if corrupted[0] == 'a' {
		corrupted[0] = 'b'
	} else {
		corrupted[0] = 'a'
	}
	_, err = crypto.Base58CheckDecode(string(corrupted))
	require.Error(t, err)
}

func TestHexAndBase64(t *testing.T) {
	require.True(t, crypto.IsHex("abcd"))
	require.False(t, crypto.IsHex("abc"))  // odd length
	require.False(t, crypto.IsHex("agrt")) // not hex digits

	require.True(t, crypto.IsBase64("aGVsbG8="))
	require.False(t, crypto.IsBase64("not-base64!!"))
}

func TestBoundedIntegerCodec(t *testing.T) {
	buf := make([]byte, 8)
	require.NoError(t, crypto.PutULong(buf, crypto.MaxSafeInteger))

	got, err := crypto.ULong(buf)
	require.NoError(t, err)
	require.Equal(t, crypto.MaxSafeInteger, got)

	require.ErrorIs(t, crypto.PutULong(buf, crypto.MaxSafeInteger+1), crypto.ErrOutOfRange)
}
