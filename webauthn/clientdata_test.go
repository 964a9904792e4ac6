package webauthn_test

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/require"

	"lazorkit/core/errors"
	"lazorkit/webauthn"
)

func envelope(challengeB64 string) []byte {
	return []byte(`{"type":"webauthn.get","challenge":"` + challengeB64 + `","origin":"https://example.com"}`)
}

func TestExtractChallengeRoundTrip(t *testing.T) {
	raw := []byte{1, 2, 3, 4, 5}
	b64 := base64.RawURLEncoding.EncodeToString(raw)

	got, err := webauthn.ExtractChallenge(envelope(b64))
	require.NoError(t, err)
	require.Equal(t, raw, got)
}

func TestExtractChallengeInvalidUTF8(t *testing.T) {
	bad := []byte{0xff, 0xfe, 0xfd}
	_, err := webauthn.ExtractChallenge(bad)
	require.ErrorIs(t, err, errors.ErrClientDataInvalidUTF8)
}

func TestExtractChallengeMalformedJSON(t *testing.T) {
	_, err := webauthn.ExtractChallenge([]byte(`{not json`))
	require.ErrorIs(t, err, errors.ErrClientDataJSONParse)
}

func TestExtractChallengeMissing(t *testing.T) {
	_, err := webauthn.ExtractChallenge([]byte(`{"type":"webauthn.get","origin":"https://example.com"}`))
	require.ErrorIs(t, err, errors.ErrChallengeMissing)
}

func TestExtractChallengeBadBase64(t *testing.T) {
	_, err := webauthn.ExtractChallenge(envelope("not-valid-base64url!!!"))
	require.ErrorIs(t, err, errors.ErrChallengeBase64Decode)
}

func TestExtractChallengeIgnoresUnknownFields(t *testing.T) {
	raw := []byte("hello-world")
	b64 := base64.RawURLEncoding.EncodeToString(raw)
	payload := []byte(`{"type":"webauthn.get","challenge":"` + b64 + `","origin":"https://example.com","crossOrigin":false,"extra":{"nested":true}}`)

	got, err := webauthn.ExtractChallenge(payload)
	require.NoError(t, err)
	require.Equal(t, raw, got)
}

func TestExtractChallengeRejectsPaddedBase64(t *testing.T) {
	// "aGVsbG8=" is standard base64 of "hello" with explicit padding;
	// RawURLEncoding must reject the trailing '='.
	_, err := webauthn.ExtractChallenge(envelope("aGVsbG8="))
	require.ErrorIs(t, err, errors.ErrChallengeBase64Decode)
}
