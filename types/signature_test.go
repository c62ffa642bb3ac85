package types

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSignRoundTrip(t *testing.T) {
	ki, err := GenerateKey()
	require.NoError(t, err)
	addr, err := ki.Address()
	require.NoError(t, err)

	msg := []byte("pay for this write")
	sig, err := ki.Sign(msg)
	require.NoError(t, err)

	require.NoError(t, sig.Verify(addr, msg))

	// Tampered message fails verification.
	require.Error(t, sig.Verify(addr, []byte("pay for that write")))

	// Wrong signer fails verification.
	other, err := GenerateKey()
	require.NoError(t, err)
	otherAddr, err := other.Address()
	require.NoError(t, err)
	require.Error(t, sig.Verify(otherAddr, msg))
}

func TestSignatureBytesRoundTrip(t *testing.T) {
	ki, err := GenerateKey()
	require.NoError(t, err)

	sig, err := ki.Sign([]byte("msg"))
	require.NoError(t, err)

	b := append([]byte{byte(sig.TypeCode())}, sig.Data...)
	out, err := SignatureFromBytes(b)
	require.NoError(t, err)
	require.Equal(t, sig.Type, out.Type)
	require.Equal(t, sig.Data, out.Data)

	_, err = SignatureFromBytes([]byte{99})
	require.Error(t, err)

	// Oversized input is rejected before any parsing.
	_, err = SignatureFromBytes(make([]byte, SignatureMaxLength+1))
	require.Error(t, err)
}
