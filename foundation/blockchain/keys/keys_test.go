package keys_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Coinversable/validana-core/foundation/blockchain/keys"
)

// wifSigner is the literal signer WIF used by the spec's S1 scenario.
const wifSigner = "KxLJSyM1111111111111111111111111111111111111119cskYz"

func TestSignAndVerifyRoundTrip(t *testing.T) {
	priv, err := keys.GeneratePrivateKey()
	require.NoError(t, err)

	msg := []byte("bla" + "transaction-payload")
	sig, err := keys.Sign(msg, priv)
	require.NoError(t, err)
	require.Len(t, sig, keys.SignatureLength)

	require.True(t, keys.Verify(msg, sig, priv.PublicKey()))
}

func TestVerifyFlipsOnAnyMutation(t *testing.T) {
	priv, err := keys.GeneratePrivateKey()
	require.NoError(t, err)
	other, err := keys.GeneratePrivateKey()
	require.NoError(t, err)

	msg := []byte("prefix|payload")
	sig, err := keys.Sign(msg, priv)
	require.NoError(t, err)

	require.True(t, keys.Verify(msg, sig, priv.PublicKey()))
	require.False(t, keys.Verify([]byte("prefix|payloadX"), sig, priv.PublicKey()))
	require.False(t, keys.Verify(msg, sig, other.PublicKey()))

	mutated := append([]byte{}, sig...)
	mutated[0] ^= 0xFF
	require.False(t, keys.Verify(msg, mutated, priv.PublicKey()))
}

func TestAddressRoundTrip(t *testing.T) {
	priv, err := keys.GeneratePrivateKey()
	require.NoError(t, err)

	addr := priv.Address()
	str := addr.AsString()

	require.True(t, keys.IsValidAddress(str))

	back, err := keys.NewAddressFromString(str)
	require.NoError(t, err)
	require.Equal(t, addr.AsBuffer(), back.AsBuffer())
	require.Equal(t, str, back.AsString())
}

func TestAddressChecksumCatchesBitFlip(t *testing.T) {
	priv, err := keys.GeneratePrivateKey()
	require.NoError(t, err)

	str := priv.Address().AsString()
	require.True(t, keys.IsValidAddress(str))

	mutated := []byte(str)
	// Flip a bit in the middle of the string; checksum must reject it
	// (unless the corrupted character happens to no longer be part of
	// the base58 alphabet, which also fails decoding).
	mutated[len(mutated)/2] ^= 0x01

	require.False(t, keys.IsValidAddress(string(mutated)))
}

func TestWIFRoundTrip(t *testing.T) {
	priv, err := keys.NewPrivateKeyFromWIF(wifSigner)
	require.NoError(t, err)
	require.Equal(t, wifSigner, priv.WIF())
}

func TestWIFRejectsWrongVersionOrFlag(t *testing.T) {
	priv, err := keys.GeneratePrivateKey()
	require.NoError(t, err)

	_, err = keys.NewPrivateKeyFromWIF(priv.Address().AsString())
	require.Error(t, err)
}
