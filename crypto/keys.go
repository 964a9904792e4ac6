package crypto

import (
	"crypto/ecdsa"
	"crypto/rand"
	"crypto/sha256"
	"fmt"

	"github.com/btcsuite/btcutil/bech32"
	"github.com/ethereum/go-ethereum/crypto"
)

// AddressPrefix defines the different types of human-readable address
// prefixes minted by this engine. Each account kind in the §3 data model gets
// its own prefix so a bech32 string is self-describing about what it names.
type AddressPrefix string

const (
	// AuthorityPrefix marks addresses derived from a conventional signing
	// key (the Config admin authority, or an operator key).
	AuthorityPrefix AddressPrefix = "lzauth"
	// WalletPrefix marks a SmartWallet address.
	WalletPrefix AddressPrefix = "lzwlt"
	// DevicePrefix marks a WalletDevice address.
	DevicePrefix AddressPrefix = "lzdev"
	// SessionPrefix marks a TransactionSession address.
	SessionPrefix AddressPrefix = "lzses"
	// ProgramPrefix marks an address naming an executable policy program.
	ProgramPrefix AddressPrefix = "lzprog"
)

// Address represents a 32-byte engine account address tagged with a
// human-readable prefix, encoded/decoded with bech32 the same way the
// teacher's chain addresses are.
type Address struct {
	prefix AddressPrefix
	bytes  []byte
}

// Len is the fixed byte width of every address this engine derives. The
// account-based runtime this engine targets identifies accounts by 32-byte
// keys (unlike the teacher's 20-byte EVM-style addresses).
const Len = 32

func NewAddress(prefix AddressPrefix, b []byte) (Address, error) {
	if len(b) != Len {
		return Address{}, fmt.Errorf("crypto: address must be %d bytes, got %d", Len, len(b))
	}
	cloned := append([]byte(nil), b...)
	return Address{prefix: prefix, bytes: cloned}, nil
}

// MustNewAddress constructs an address and panics if the input is invalid.
func MustNewAddress(prefix AddressPrefix, b []byte) Address {
	addr, err := NewAddress(prefix, b)
	if err != nil {
		panic(err)
	}
	return addr
}

func (a Address) String() string {
	conv, err := bech32.ConvertBits(a.bytes, 8, 5, true)
	if err != nil {
		panic(err)
	}
	encoded, err := bech32.Encode(string(a.prefix), conv)
	if err != nil {
		panic(err)
	}
	return encoded
}

func (a Address) Bytes() []byte {
	return append([]byte(nil), a.bytes...)
}

// Array returns the address as a fixed-size array, convenient for use as a map
// key or struct field.
func (a Address) Array() [Len]byte {
	var out [Len]byte
	copy(out[:], a.bytes)
	return out
}

func (a Address) IsZero() bool {
	for _, b := range a.bytes {
		if b != 0 {
			return false
		}
	}
	return len(a.bytes) > 0
}

// Prefix returns the human-readable prefix associated with the address.
func (a Address) Prefix() AddressPrefix {
	return a.prefix
}

func DecodeAddress(addrStr string) (Address, error) {
	prefix, decoded, err := bech32.Decode(addrStr)
	if err != nil {
		return Address{}, fmt.Errorf("crypto: invalid bech32 string: %w", err)
	}
	conv, err := bech32.ConvertBits(decoded, 5, 8, false)
	if err != nil {
		return Address{}, fmt.Errorf("crypto: error converting bits: %w", err)
	}
	return NewAddress(AddressPrefix(prefix), conv)
}

// --- Deterministic (PDA-style) address derivation ---
//
// Every derived address is a pure function of its seeds; there is no
// directory to query, only a recomputation (spec.md §9, "no global registry
// of devices").

// DeriveWalletAddress derives the SmartWallet address from the fixed prefix
// and the wallet id, matching spec.md §3: `(fixed-prefix, wallet_id)`.
func DeriveWalletAddress(walletID uint64) Address {
	seed := make([]byte, 8)
	for i := 0; i < 8; i++ {
		seed[i] = byte(walletID >> (8 * i))
	}
	digest := sha256.Sum256(append([]byte("lazorkit/wallet/"), seed...))
	return MustNewAddress(WalletPrefix, digest[:])
}

// DeriveDeviceAddress derives a WalletDevice address from
// (prefix, wallet, H(passkey‖wallet)) per spec.md §3.
func DeriveDeviceAddress(wallet Address, passkeyPubkey []byte) Address {
	inner := sha256.Sum256(append(append([]byte(nil), passkeyPubkey...), wallet.Bytes()...))
	digest := sha256.Sum256(append(append([]byte("lazorkit/device/"), wallet.Bytes()...), inner[:]...))
	return MustNewAddress(DevicePrefix, digest[:])
}

// DeviceSeedHash computes H(passkey‖wallet), the binding seed embedded in a
// WalletDevice's address, exposed separately so callers can verify an address
// without reconstructing it end to end.
func DeviceSeedHash(wallet Address, passkeyPubkey []byte) [32]byte {
	return sha256.Sum256(append(append([]byte(nil), passkeyPubkey...), wallet.Bytes()...))
}

// DeriveSessionAddress derives a TransactionSession address from
// (prefix, wallet, last_nonce_le_bytes) per spec.md §3.
func DeriveSessionAddress(wallet Address, nonce uint64) Address {
	seed := make([]byte, 8)
	for i := 0; i < 8; i++ {
		seed[i] = byte(nonce >> (8 * i))
	}
	digest := sha256.Sum256(append(append([]byte("lazorkit/session/"), wallet.Bytes()...), seed...))
	return MustNewAddress(SessionPrefix, digest[:])
}

// --- Conventional key management (admin authority / operator keys) ---
//
// Passkeys (secp256r1) are handled by the sibling `passkey` package; this
// section covers the conventional secp256k1 authority key that signs admin
// instructions (initialize, update_config, register_policy_program), kept
// close to the teacher's own key-management shape.

type PrivateKey struct {
	*ecdsa.PrivateKey
}

type PublicKey struct {
	*ecdsa.PublicKey
}

func GeneratePrivateKey() (*PrivateKey, error) {
	key, err := ecdsa.GenerateKey(crypto.S256(), rand.Reader)
	if err != nil {
		return nil, err
	}
	return &PrivateKey{key}, nil
}

// Bytes returns the byte representation of the private key.
func (k *PrivateKey) Bytes() []byte {
	return crypto.FromECDSA(k.PrivateKey)
}

func (k *PrivateKey) PubKey() *PublicKey {
	return &PublicKey{&k.PrivateKey.PublicKey}
}

// Address derives the 32-byte authority address from the public key by
// hashing the uncompressed point, then tags it with AuthorityPrefix.
func (k *PublicKey) Address() Address {
	digest := sha256.Sum256(crypto.FromECDSAPub(k.PublicKey))
	return MustNewAddress(AuthorityPrefix, digest[:])
}

func PrivateKeyFromBytes(b []byte) (*PrivateKey, error) {
	key, err := crypto.ToECDSA(b)
	if err != nil {
		return nil, err
	}
	return &PrivateKey{key}, nil
}

// Sign produces a recoverable secp256k1 signature over a pre-hashed digest,
// used for admin-authority-signed instructions.
func (k *PrivateKey) Sign(digest [32]byte) ([]byte, error) {
	return crypto.Sign(digest[:], k.PrivateKey)
}

// VerifyAuthoritySignature checks a recoverable secp256k1 signature against
// the expected authority address.
func VerifyAuthoritySignature(expected Address, digest [32]byte, sig []byte) (bool, error) {
	if len(sig) != 65 {
		return false, fmt.Errorf("crypto: signature must be 65 bytes, got %d", len(sig))
	}
	pub, err := crypto.SigToPub(digest[:], sig)
	if err != nil {
		return false, err
	}
	recovered := (&PublicKey{pub}).Address()
	return recovered.Array() == expected.Array(), nil
}
