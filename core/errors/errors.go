// Package errors enumerates the stable, externally visible failure modes of
// the authorization engine (spec.md §6, §7). Every handler returns one of
// these verbatim; none are wrapped or re-worded on the way out.
package errors

import stderrors "errors"

var (
	// Authentication pipeline (§4.1-§4.3)
	ErrClientDataInvalidUTF8   = stderrors.New("lazorkit: clientDataJSON is not valid utf-8")
	ErrClientDataJSONParse     = stderrors.New("lazorkit: clientDataJSON parse error")
	ErrChallengeMissing        = stderrors.New("lazorkit: clientDataJSON missing challenge field")
	ErrChallengeBase64Decode   = stderrors.New("lazorkit: challenge base64url decode error")
	ErrChallengeDeserialize    = stderrors.New("lazorkit: challenge deserialization error")
	ErrInvalidPasskeyFormat    = stderrors.New("lazorkit: invalid passkey format")
	ErrInvalidSignature        = stderrors.New("lazorkit: invalid signature")
	ErrPasskeyMismatch         = stderrors.New("lazorkit: passkey mismatch")
	ErrSmartWalletMismatch     = stderrors.New("lazorkit: smart wallet mismatch")
	ErrNonceMismatch           = stderrors.New("lazorkit: nonce mismatch")
	ErrNonceOverflow           = stderrors.New("lazorkit: nonce overflow")
	ErrTimestampTooOld         = stderrors.New("lazorkit: challenge timestamp too old")
	ErrTimestampTooNew         = stderrors.New("lazorkit: challenge timestamp too new")

	// Binding / instruction data (§4.4)
	ErrInvalidInstructionData = stderrors.New("lazorkit: invalid instruction data")
	ErrInvalidAccountData     = stderrors.New("lazorkit: invalid account data")
	ErrAccountSliceOutOfBounds = stderrors.New("lazorkit: account slice out of bounds")

	// Policy program lifecycle (§4.7-§4.9, §6)
	ErrPolicyProgramNotRegistered        = stderrors.New("lazorkit: policy program not registered")
	ErrInvalidProgramAddress             = stderrors.New("lazorkit: invalid program address")
	ErrProgramNotExecutable              = stderrors.New("lazorkit: program not executable")
	ErrReentrancyDetected                = stderrors.New("lazorkit: reentrant cpi into this program")
	ErrInvalidCheckPolicyDiscriminator   = stderrors.New("lazorkit: invalid check_policy discriminator")
	ErrInvalidDestroyDiscriminator       = stderrors.New("lazorkit: invalid destroy discriminator")
	ErrInvalidInitPolicyDiscriminator    = stderrors.New("lazorkit: invalid init_policy discriminator")
	ErrNoDefaultPolicyProgram            = stderrors.New("lazorkit: update must involve the default policy program")
	ErrPolicyProgramsIdentical           = stderrors.New("lazorkit: old and new policy programs are identical")
	ErrPolicyRegistryFull                = stderrors.New("lazorkit: policy program registry is full")

	// Fees / balances
	ErrInsufficientBalanceForFee = stderrors.New("lazorkit: insufficient balance for fee")

	// Global state
	ErrProgramPaused            = stderrors.New("lazorkit: program is paused")
	ErrAccountAlreadyInitialized = stderrors.New("lazorkit: account already initialized")

	// Wallet/device lifecycle
	ErrWalletIDZero          = stderrors.New("lazorkit: wallet id must be non-zero")
	ErrWalletAlreadyExists   = stderrors.New("lazorkit: wallet already exists")
	ErrWalletNotFound        = stderrors.New("lazorkit: wallet not found")
	ErrDeviceNotFound        = stderrors.New("lazorkit: device not found")
	ErrCredentialIDInvalid   = stderrors.New("lazorkit: credential id must be non-empty and at most 256 bytes")

	// Commit / deferred execution
	ErrSessionNotFound   = stderrors.New("lazorkit: transaction session not found")
	ErrSessionExists     = stderrors.New("lazorkit: transaction session already exists for this nonce")

	// Admin
	ErrUnauthorized      = stderrors.New("lazorkit: caller is not the config authority")
	ErrInvalidParameter  = stderrors.New("lazorkit: invalid configuration parameter")
)
