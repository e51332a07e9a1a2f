package crypto

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHashKnownVector(t *testing.T) {
	got, err := Hash([]byte("abc"), SHA256)
	require.NoError(t, err)
	require.Equal(t, "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad", got)
}

func TestContentAddressStreaming(t *testing.T) {
	got, err := ContentAddress(strings.NewReader("abc"), "")
	require.NoError(t, err)
	require.Equal(t, "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad", got)
}

func TestContentAddressWithExtension(t *testing.T) {
	got, err := ContentAddress(strings.NewReader("abc"), "txt")
	require.NoError(t, err)
	require.True(t, strings.HasSuffix(got, ".txt"))
}

func TestSignVerifyRoundTrip(t *testing.T) {
	signer, err := GenerateRSASigner(2048)
	require.NoError(t, err)

	data := []byte(`{"a":1}`)
	sig1, err := signer.Sign(data)
	require.NoError(t, err)
	sig2, err := signer.Sign(data)
	require.NoError(t, err)
	require.Equal(t, sig1, sig2, "deterministic fixed-length-salt PSS must repeat bit-for-bit")

	pub, err := signer.PublicKeyBytes()
	require.NoError(t, err)
	require.NoError(t, Verify(pub, sig1, data))
}

func TestVerifyRejectsTamperedData(t *testing.T) {
	signer, err := GenerateRSASigner(2048)
	require.NoError(t, err)

	sig, err := signer.Sign([]byte("original"))
	require.NoError(t, err)
	pub, err := signer.PublicKeyBytes()
	require.NoError(t, err)

	err = Verify(pub, sig, []byte("tampered"))
	require.Error(t, err)
}
