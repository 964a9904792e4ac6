// Package auth composes the authentication pipeline into the single
// Authorization Verifier spec.md §4.5 describes: passkey/device binding,
// precompile signature verification, challenge parsing, and the nonce and
// freshness guard. It returns a typed challenge only once every check has
// passed; nothing upstream of it is allowed to observe a partial success.
package auth

import (
	"lazorkit/core/errors"
	"lazorkit/core/types"
	"lazorkit/passkey"
	"lazorkit/runtime"
	"lazorkit/webauthn"
)

// MaxClockSkewSeconds bounds challenge freshness (spec.md §4.3).
const MaxClockSkewSeconds = 30

// Request bundles everything the verifier needs: the claimed device record,
// the wallet it should belong to, the caller's asserted passkey, the
// authenticator's signature and data, the precompile's location, and the
// wallet's current nonce.
type Request struct {
	Device           types.WalletDevice
	Wallet           [32]byte
	ClaimedPasskey   passkey.PubKey
	ClientDataJSON   []byte
	AuthenticatorData []byte
	Sysvar           *runtime.InstructionsSysvar
	VerifyIxIndex    uint16
	LastNonce        uint64
	Now              int64
}

// VerifyExecute runs the full pipeline and decodes the challenge as an
// ExecuteChallenge.
func VerifyExecute(req Request) (*types.ExecuteChallenge, error) {
	challengeBytes, err := verifyCommon(req)
	if err != nil {
		return nil, err
	}
	c, err := types.DecodeExecuteChallenge(challengeBytes)
	if err != nil {
		return nil, errors.ErrChallengeDeserialize
	}
	if err := c.Header.Validate(req.LastNonce, req.Now, MaxClockSkewSeconds); err != nil {
		return nil, err
	}
	return c, nil
}

// VerifyInvokePolicy runs the full pipeline and decodes the challenge as an
// InvokePolicyChallenge.
func VerifyInvokePolicy(req Request) (*types.InvokePolicyChallenge, error) {
	challengeBytes, err := verifyCommon(req)
	if err != nil {
		return nil, err
	}
	c, err := types.DecodeInvokePolicyChallenge(challengeBytes)
	if err != nil {
		return nil, errors.ErrChallengeDeserialize
	}
	if err := c.Header.Validate(req.LastNonce, req.Now, MaxClockSkewSeconds); err != nil {
		return nil, err
	}
	return c, nil
}

// VerifyUpdatePolicy runs the full pipeline and decodes the challenge as an
// UpdatePolicyChallenge.
func VerifyUpdatePolicy(req Request) (*types.UpdatePolicyChallenge, error) {
	challengeBytes, err := verifyCommon(req)
	if err != nil {
		return nil, err
	}
	c, err := types.DecodeUpdatePolicyChallenge(challengeBytes)
	if err != nil {
		return nil, errors.ErrChallengeDeserialize
	}
	if err := c.Header.Validate(req.LastNonce, req.Now, MaxClockSkewSeconds); err != nil {
		return nil, err
	}
	return c, nil
}

// VerifyCommit runs the full pipeline and decodes the challenge as a
// CommitChallenge.
func VerifyCommit(req Request) (*types.CommitChallenge, error) {
	challengeBytes, err := verifyCommon(req)
	if err != nil {
		return nil, err
	}
	c, err := types.DecodeCommitChallenge(challengeBytes)
	if err != nil {
		return nil, errors.ErrChallengeDeserialize
	}
	if err := c.Header.Validate(req.LastNonce, req.Now, MaxClockSkewSeconds); err != nil {
		return nil, err
	}
	return c, nil
}

// verifyCommon implements spec.md §4.5 steps 1-5, returning the raw
// challenge bytes for the caller to decode into its expected variant.
func verifyCommon(req Request) ([]byte, error) {
	// Step 1: device/passkey/wallet binding.
	if req.Device.PasskeyPubkey != [33]byte(req.ClaimedPasskey) {
		return nil, errors.ErrPasskeyMismatch
	}
	if req.Device.SmartWallet != req.Wallet {
		return nil, errors.ErrSmartWalletMismatch
	}
	if err := req.ClaimedPasskey.Validate(); err != nil {
		return nil, errors.ErrInvalidPasskeyFormat
	}

	// Step 2: load the precompile instruction from the sysvar.
	ix, err := req.Sysvar.At(req.VerifyIxIndex)
	if err != nil {
		return nil, err
	}
	record, err := runtime.ParseSecp256r1Record(ix)
	if err != nil {
		return nil, err
	}

	// Step 3: reconstruct the signed message and compare against the record.
	message := passkey.BuildSignedMessage(req.AuthenticatorData, req.ClientDataJSON)
	if record.Pubkey != [33]byte(req.ClaimedPasskey) {
		return nil, errors.ErrPasskeyMismatch
	}
	if string(record.Message) != string(message) {
		return nil, errors.ErrInvalidSignature
	}

	// Step 4: parse clientDataJSON to extract the challenge bytes.
	challengeBytes, err := webauthn.ExtractChallenge(req.ClientDataJSON)
	if err != nil {
		return nil, err
	}

	// Step 5: the precompile is the authority on P-256 validity (spec.md
	// §4.2); the engine additionally re-verifies here so a record that
	// merely looks byte-correct but was never actually checked by the host
	// cannot slip through in this in-process simulation.
	var sig [passkey.SignatureLen]byte
	copy(sig[:], record.Signature[:])
	if err := passkey.Verify(req.ClaimedPasskey, message, sig[:]); err != nil {
		return nil, errors.ErrInvalidSignature
	}

	return challengeBytes, nil
}
