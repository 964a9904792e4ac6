package passkey_test

import (
	"crypto/ecdsa"
	"crypto/rand"
	"crypto/sha256"
	"testing"

	"github.com/stretchr/testify/require"

	"lazorkit/passkey"
)

// signRaw produces the fixed-width 64-byte (r||s) signature format the
// engine expects from the precompile record (spec.md §4.2).
func signRaw(t *testing.T, priv *ecdsa.PrivateKey, digest [32]byte) []byte {
	t.Helper()
	r, s, err := ecdsa.Sign(rand.Reader, priv, digest[:])
	require.NoError(t, err)
	out := make([]byte, 64)
	r.FillBytes(out[:32])
	s.FillBytes(out[32:])
	return out
}

func TestBuildSignedMessage(t *testing.T) {
	authData := []byte("authenticator-data")
	clientData := []byte(`{"type":"webauthn.get"}`)
	msg := passkey.BuildSignedMessage(authData, clientData)

	clientHash := sha256.Sum256(clientData)
	require.Equal(t, authData, msg[:len(authData)])
	require.Equal(t, clientHash[:], msg[len(authData):])
}

func TestVerifyRoundTrip(t *testing.T) {
	priv := genP256(t)
	pk, err := passkey.Compress(&priv.PublicKey)
	require.NoError(t, err)

	message := passkey.BuildSignedMessage([]byte("auth-data"), []byte(`{"challenge":"abc"}`))
	digest := sha256.Sum256(message)
	sig := signRaw(t, priv, digest)

	require.NoError(t, passkey.Verify(pk, message, sig))
}

func TestVerifyRejectsTamperedMessage(t *testing.T) {
	priv := genP256(t)
	pk, err := passkey.Compress(&priv.PublicKey)
	require.NoError(t, err)

	message := passkey.BuildSignedMessage([]byte("auth-data"), []byte(`{"challenge":"abc"}`))
	digest := sha256.Sum256(message)
	sig := signRaw(t, priv, digest)

	tampered := append([]byte(nil), message...)
	tampered[0] ^= 0xFF
	require.ErrorIs(t, passkey.Verify(pk, tampered, sig), passkey.ErrInvalidSignature)
}

func TestVerifyRejectsWrongKey(t *testing.T) {
	priv := genP256(t)
	other := genP256(t)
	otherPK, err := passkey.Compress(&other.PublicKey)
	require.NoError(t, err)

	message := passkey.BuildSignedMessage([]byte("auth-data"), []byte(`{"challenge":"abc"}`))
	digest := sha256.Sum256(message)
	sig := signRaw(t, priv, digest)

	require.ErrorIs(t, passkey.Verify(otherPK, message, sig), passkey.ErrInvalidSignature)
}

func TestVerifyRejectsWrongSignatureLength(t *testing.T) {
	priv := genP256(t)
	pk, err := passkey.Compress(&priv.PublicKey)
	require.NoError(t, err)

	require.ErrorIs(t, passkey.Verify(pk, []byte("msg"), make([]byte, 63)), passkey.ErrInvalidSignature)
}

func TestVerifyPrehashedRoundTrip(t *testing.T) {
	priv := genP256(t)
	pk, err := passkey.Compress(&priv.PublicKey)
	require.NoError(t, err)

	var digest [32]byte
	copy(digest[:], []byte("0123456789abcdef0123456789abcde"))
	sig := signRaw(t, priv, digest)

	require.NoError(t, passkey.VerifyPrehashed(pk, digest, sig))

	digest[0] ^= 0xFF
	require.ErrorIs(t, passkey.VerifyPrehashed(pk, digest, sig), passkey.ErrInvalidSignature)
}
