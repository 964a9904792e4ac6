package types

import (
	"encoding/binary"
	"fmt"

	"lazorkit/core/errors"
)

// ChallengeKind tags which of the four signed-message variants a decoded
// challenge carries (spec.md §3, §6 "Signed-challenge byte format").
type ChallengeKind byte

const (
	ChallengeExecute ChallengeKind = iota + 1
	ChallengeInvokePolicy
	ChallengeUpdatePolicy
	ChallengeCommit
)

// Header is shared by every challenge variant.
type Header struct {
	Nonce            uint64
	CurrentTimestamp int64
}

// ExecuteChallenge binds execute_transaction's policy CPI and target CPI.
type ExecuteChallenge struct {
	Header
	PolicyDataHash     [32]byte
	PolicyAccountsHash [32]byte
	CPIDataHash        [32]byte
	CPIAccountsHash    [32]byte
}

// InvokePolicyChallenge binds invoke_policy's single CPI, optionally
// enrolling a new device in the same action.
type InvokePolicyChallenge struct {
	Header
	PolicyDataHash     [32]byte
	PolicyAccountsHash [32]byte
	NewPasskey         *[33]byte
}

// UpdatePolicyChallenge binds update_policy's destroy-old/init-new pair.
type UpdatePolicyChallenge struct {
	Header
	OldPolicyDataHash     [32]byte
	OldPolicyAccountsHash [32]byte
	NewPolicyDataHash     [32]byte
	NewPolicyAccountsHash [32]byte
}

// CommitChallenge binds commit_cpi's policy check plus the deferred CPI.
type CommitChallenge struct {
	Header
	PolicyDataHash     [32]byte
	PolicyAccountsHash [32]byte
	CPIDataHash        [32]byte
	CPIAccountsHash    [32]byte
}

// --- stable little-endian record codec (spec.md §6) ---

func putU64(buf []byte, v uint64) []byte {
	tmp := make([]byte, 8)
	binary.LittleEndian.PutUint64(tmp, v)
	return append(buf, tmp...)
}

func putI64(buf []byte, v int64) []byte {
	return putU64(buf, uint64(v))
}

func readU64(b []byte) (uint64, []byte, error) {
	if len(b) < 8 {
		return 0, nil, errors.ErrChallengeDeserialize
	}
	return binary.LittleEndian.Uint64(b[:8]), b[8:], nil
}

func readI64(b []byte) (int64, []byte, error) {
	v, rest, err := readU64(b)
	return int64(v), rest, err
}

func read32(b []byte) ([32]byte, []byte, error) {
	var out [32]byte
	if len(b) < 32 {
		return out, nil, errors.ErrChallengeDeserialize
	}
	copy(out[:], b[:32])
	return out, b[32:], nil
}

// EncodeExecuteChallenge serializes an ExecuteChallenge per spec.md §6.
func EncodeExecuteChallenge(c *ExecuteChallenge) []byte {
	buf := make([]byte, 0, 8+8+32*4)
	buf = putU64(buf, c.Nonce)
	buf = putI64(buf, c.CurrentTimestamp)
	buf = append(buf, c.PolicyDataHash[:]...)
	buf = append(buf, c.PolicyAccountsHash[:]...)
	buf = append(buf, c.CPIDataHash[:]...)
	buf = append(buf, c.CPIAccountsHash[:]...)
	return buf
}

// DecodeExecuteChallenge deserializes bytes produced by EncodeExecuteChallenge.
func DecodeExecuteChallenge(b []byte) (*ExecuteChallenge, error) {
	nonce, b, err := readU64(b)
	if err != nil {
		return nil, err
	}
	ts, b, err := readI64(b)
	if err != nil {
		return nil, err
	}
	c := &ExecuteChallenge{Header: Header{Nonce: nonce, CurrentTimestamp: ts}}
	if c.PolicyDataHash, b, err = read32(b); err != nil {
		return nil, err
	}
	if c.PolicyAccountsHash, b, err = read32(b); err != nil {
		return nil, err
	}
	if c.CPIDataHash, b, err = read32(b); err != nil {
		return nil, err
	}
	if c.CPIAccountsHash, _, err = read32(b); err != nil {
		return nil, err
	}
	return c, nil
}

// EncodeInvokePolicyChallenge serializes an InvokePolicyChallenge.
func EncodeInvokePolicyChallenge(c *InvokePolicyChallenge) []byte {
	buf := make([]byte, 0, 8+8+32*2+1+33)
	buf = putU64(buf, c.Nonce)
	buf = putI64(buf, c.CurrentTimestamp)
	buf = append(buf, c.PolicyDataHash[:]...)
	buf = append(buf, c.PolicyAccountsHash[:]...)
	if c.NewPasskey != nil {
		buf = append(buf, 1)
		buf = append(buf, c.NewPasskey[:]...)
	} else {
		buf = append(buf, 0)
	}
	return buf
}

// DecodeInvokePolicyChallenge deserializes bytes produced by
// EncodeInvokePolicyChallenge.
func DecodeInvokePolicyChallenge(b []byte) (*InvokePolicyChallenge, error) {
	nonce, b, err := readU64(b)
	if err != nil {
		return nil, err
	}
	ts, b, err := readI64(b)
	if err != nil {
		return nil, err
	}
	c := &InvokePolicyChallenge{Header: Header{Nonce: nonce, CurrentTimestamp: ts}}
	if c.PolicyDataHash, b, err = read32(b); err != nil {
		return nil, err
	}
	if c.PolicyAccountsHash, b, err = read32(b); err != nil {
		return nil, err
	}
	if len(b) < 1 {
		return nil, errors.ErrChallengeDeserialize
	}
	has := b[0]
	b = b[1:]
	switch has {
	case 0:
		c.NewPasskey = nil
	case 1:
		if len(b) < 33 {
			return nil, errors.ErrChallengeDeserialize
		}
		var pk [33]byte
		copy(pk[:], b[:33])
		c.NewPasskey = &pk
	default:
		return nil, errors.ErrChallengeDeserialize
	}
	return c, nil
}

// EncodeUpdatePolicyChallenge serializes an UpdatePolicyChallenge.
func EncodeUpdatePolicyChallenge(c *UpdatePolicyChallenge) []byte {
	buf := make([]byte, 0, 8+8+32*4)
	buf = putU64(buf, c.Nonce)
	buf = putI64(buf, c.CurrentTimestamp)
	buf = append(buf, c.OldPolicyDataHash[:]...)
	buf = append(buf, c.OldPolicyAccountsHash[:]...)
	buf = append(buf, c.NewPolicyDataHash[:]...)
	buf = append(buf, c.NewPolicyAccountsHash[:]...)
	return buf
}

// DecodeUpdatePolicyChallenge deserializes bytes produced by
// EncodeUpdatePolicyChallenge.
func DecodeUpdatePolicyChallenge(b []byte) (*UpdatePolicyChallenge, error) {
	nonce, b, err := readU64(b)
	if err != nil {
		return nil, err
	}
	ts, b, err := readI64(b)
	if err != nil {
		return nil, err
	}
	c := &UpdatePolicyChallenge{Header: Header{Nonce: nonce, CurrentTimestamp: ts}}
	if c.OldPolicyDataHash, b, err = read32(b); err != nil {
		return nil, err
	}
	if c.OldPolicyAccountsHash, b, err = read32(b); err != nil {
		return nil, err
	}
	if c.NewPolicyDataHash, b, err = read32(b); err != nil {
		return nil, err
	}
	if c.NewPolicyAccountsHash, _, err = read32(b); err != nil {
		return nil, err
	}
	return c, nil
}

// EncodeCommitChallenge serializes a CommitChallenge. It shares the Execute
// layout (spec.md §3 table); kept as a distinct function/type per spec.md §9
// ("TransactionSession/CpiCommit are two names for the same concept" — the
// *challenge* variants, by contrast, remain four distinct wire shapes).
func EncodeCommitChallenge(c *CommitChallenge) []byte {
	return EncodeExecuteChallenge((*ExecuteChallenge)(c))
}

// DecodeCommitChallenge deserializes bytes produced by EncodeCommitChallenge.
func DecodeCommitChallenge(b []byte) (*CommitChallenge, error) {
	e, err := DecodeExecuteChallenge(b)
	if err != nil {
		return nil, err
	}
	c := CommitChallenge(*e)
	return &c, nil
}

// Validate enforces spec.md §4.3's nonce and freshness guard against the
// supplied wallet state and clock.
func (h Header) Validate(lastNonce uint64, now int64, maxSkew int64) error {
	if h.Nonce != lastNonce {
		return errors.ErrNonceMismatch
	}
	diff := h.CurrentTimestamp - now
	if diff > maxSkew {
		return errors.ErrTimestampTooNew
	}
	if diff < -maxSkew {
		return errors.ErrTimestampTooOld
	}
	return nil
}

// NextNonce computes last_nonce+1 with the checked-addition semantics spec.md
// §4.3 requires (failure = NonceOverflow).
func NextNonce(lastNonce uint64) (uint64, error) {
	if lastNonce == ^uint64(0) {
		return 0, errors.ErrNonceOverflow
	}
	return lastNonce + 1, nil
}

func (k ChallengeKind) String() string {
	switch k {
	case ChallengeExecute:
		return "execute"
	case ChallengeInvokePolicy:
		return "invoke_policy"
	case ChallengeUpdatePolicy:
		return "update_policy"
	case ChallengeCommit:
		return "commit"
	default:
		return fmt.Sprintf("unknown(%d)", byte(k))
	}
}
