// Package passkey handles the WebAuthn/FIDO P-256 (secp256r1) keys that stand
// in for a conventional signing key on a smart wallet.
package passkey

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"fmt"
)

// PubKeyLen is the byte length of a compressed P-256 public key: one tag byte
// plus a 32-byte X coordinate.
const PubKeyLen = 33

// PubKey is a compressed secp256r1 public key as registered by a WebAuthn
// authenticator.
type PubKey [PubKeyLen]byte

// ErrInvalidFormat is returned when a claimed passkey is not a valid
// compressed P-256 point.
var ErrInvalidFormat = fmt.Errorf("passkey: invalid compressed point format")

// Validate checks that the leading tag byte is 0x02 or 0x03 (the only valid
// compressed-point prefixes) and that the point decompresses onto the P-256
// curve.
func (k PubKey) Validate() error {
	if k[0] != 0x02 && k[0] != 0x03 {
		return ErrInvalidFormat
	}
	if _, err := k.Decompress(); err != nil {
		return ErrInvalidFormat
	}
	return nil
}

// Decompress expands the compressed point into a full ecdsa.PublicKey on
// P-256, validating that it lies on the curve.
func (k PubKey) Decompress() (*ecdsa.PublicKey, error) {
	curve := elliptic.P256()
	x, y := elliptic.UnmarshalCompressed(curve, k[:])
	if x == nil {
		return nil, ErrInvalidFormat
	}
	return &ecdsa.PublicKey{Curve: curve, X: x, Y: y}, nil
}

// Compress re-compresses a P-256 public key, the inverse of Decompress.
func Compress(pub *ecdsa.PublicKey) (PubKey, error) {
	if pub == nil || pub.Curve != elliptic.P256() {
		return PubKey{}, ErrInvalidFormat
	}
	var out PubKey
	raw := elliptic.MarshalCompressed(pub.Curve, pub.X, pub.Y)
	if len(raw) != PubKeyLen {
		return PubKey{}, ErrInvalidFormat
	}
	copy(out[:], raw)
	return out, nil
}

// ParsePubKey validates and wraps a raw 33-byte slice as a PubKey.
func ParsePubKey(b []byte) (PubKey, error) {
	var out PubKey
	if len(b) != PubKeyLen {
		return out, ErrInvalidFormat
	}
	copy(out[:], b)
	if err := out.Validate(); err != nil {
		return out, err
	}
	return out, nil
}

func (k PubKey) Bytes() []byte {
	return append([]byte(nil), k[:]...)
}
