// Package webauthn parses the clientDataJSON envelope produced by a WebAuthn
// authenticator and extracts the engine's own challenge bytes from it
// (spec.md §4.1).
package webauthn

import (
	"encoding/base64"
	"encoding/json"
	"unicode/utf8"

	"lazorkit/core/errors"
)

// Envelope mirrors the subset of clientDataJSON fields the engine inspects.
// Other fields (type, origin, crossOrigin, ...) are passed through untouched
// by the caller and are not re-validated here beyond being valid JSON.
type Envelope struct {
	Type      string `json:"type"`
	Challenge string `json:"challenge"`
	Origin    string `json:"origin"`
}

// ExtractChallenge parses clientDataJSON and returns the challenge bytes it
// carries, decoded from their unpadded base64url form.
func ExtractChallenge(clientDataJSON []byte) ([]byte, error) {
	if !utf8.Valid(clientDataJSON) {
		return nil, errors.ErrClientDataInvalidUTF8
	}
	var env Envelope
	if err := json.Unmarshal(clientDataJSON, &env); err != nil {
		return nil, errors.ErrClientDataJSONParse
	}
	if env.Challenge == "" {
		return nil, errors.ErrChallengeMissing
	}
	decoded, err := base64.RawURLEncoding.DecodeString(env.Challenge)
	if err != nil {
		return nil, errors.ErrChallengeBase64Decode
	}
	return decoded, nil
}
