package passkey

import (
	"crypto/ecdsa"
	"crypto/sha256"
	"errors"
	"math/big"
)

// SignatureLen is the fixed byte width of the raw (r‖s) secp256r1 signature
// produced by a WebAuthn authenticator and embedded in the precompile record
// (spec.md §4.2).
const SignatureLen = 64

// ErrInvalidSignature is returned when the raw signature is malformed or does
// not verify against the supplied message and public key.
var ErrInvalidSignature = errors.New("passkey: invalid signature")

// BuildSignedMessage reconstructs the exact byte sequence a WebAuthn
// authenticator signs: authenticatorData ‖ SHA-256(clientDataJSON).
func BuildSignedMessage(authenticatorData, clientDataJSON []byte) []byte {
	clientHash := sha256.Sum256(clientDataJSON)
	msg := make([]byte, 0, len(authenticatorData)+len(clientHash))
	msg = append(msg, authenticatorData...)
	msg = append(msg, clientHash[:]...)
	return msg
}

// Verify checks a raw 64-byte (r‖s) secp256r1 signature over message against
// pub. Any malformed input is reported as ErrInvalidSignature rather than
// leaking the underlying parse error, matching the fail-closed posture
// spec.md §4.2 requires of the verifier.
func Verify(pub PubKey, message []byte, signature []byte) error {
	if len(signature) != SignatureLen {
		return ErrInvalidSignature
	}
	key, err := pub.Decompress()
	if err != nil {
		return ErrInvalidSignature
	}
	r := new(big.Int).SetBytes(signature[:32])
	s := new(big.Int).SetBytes(signature[32:])
	digest := sha256.Sum256(message)
	if !ecdsa.Verify(key, digest[:], r, s) {
		return ErrInvalidSignature
	}
	return nil
}

// VerifyPrehashed verifies a signature over an already-hashed digest, for
// callers that hold the SHA-256 digest rather than the message. The engine's
// authorization path does not call it; auth uses Verify on the full message.
func VerifyPrehashed(pub PubKey, digest [32]byte, signature []byte) error {
	if len(signature) != SignatureLen {
		return ErrInvalidSignature
	}
	key, err := pub.Decompress()
	if err != nil {
		return ErrInvalidSignature
	}
	r := new(big.Int).SetBytes(signature[:32])
	s := new(big.Int).SetBytes(signature[32:])
	if !ecdsa.Verify(key, digest[:], r, s) {
		return ErrInvalidSignature
	}
	return nil
}
