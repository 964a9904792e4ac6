package types

// WalletDevice records one passkey registered to a wallet (spec.md §3). Never
// mutated after creation; freeing is out of scope.
type WalletDevice struct {
	PasskeyPubkey [33]byte
	SmartWallet   [32]byte
	CredentialID  []byte
	Bump          uint8
}

// MaxCredentialIDLen bounds the opaque WebAuthn credential id.
const MaxCredentialIDLen = 256
