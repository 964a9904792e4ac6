package events

import (
	"encoding/hex"
	"strconv"

	"github.com/google/uuid"

	"lazorkit/core/types"
)

const (
	TypeWalletCreated        = "wallet.created"
	TypeDeviceEnrolled       = "wallet.device_enrolled"
	TypeTransactionExecuted  = "wallet.transaction_executed"
	TypePolicyInvoked        = "wallet.policy_invoked"
	TypePolicyUpdated        = "wallet.policy_updated"
	TypeCpiCommitted         = "wallet.cpi_committed"
	TypeCpiRedeemed          = "wallet.cpi_redeemed"
	TypeActionRejected       = "wallet.action_rejected"
)

// stamp attaches a fresh random correlation id to every emitted event,
// mirroring how the teacher's gateway stamps request ids. The id is generated
// here and is not linked to the HTTP layer's request id.
func stamp(attrs map[string]string) map[string]string {
	attrs["correlationId"] = uuid.NewString()
	return attrs
}

func hexHash(h [32]byte) string {
	return "0x" + hex.EncodeToString(h[:])
}

// WalletCreated is emitted once create_smart_wallet succeeds.
type WalletCreated struct {
	Wallet  [32]byte
	WalletID uint64
	Device  [32]byte
	Policy  [32]byte
}

func (WalletCreated) EventType() string { return TypeWalletCreated }

func (e WalletCreated) Event() *types.Event {
	return &types.Event{Type: TypeWalletCreated, Attributes: stamp(map[string]string{
		"wallet":   hexHash(e.Wallet),
		"walletId": strconv.FormatUint(e.WalletID, 10),
		"device":   hexHash(e.Device),
		"policy":   hexHash(e.Policy),
	})}
}

// DeviceEnrolled is emitted whenever invoke_policy registers a new
// WalletDevice. create_smart_wallet reports its first device in
// WalletCreated instead.
type DeviceEnrolled struct {
	Wallet [32]byte
	Device [32]byte
}

func (DeviceEnrolled) EventType() string { return TypeDeviceEnrolled }

func (e DeviceEnrolled) Event() *types.Event {
	return &types.Event{Type: TypeDeviceEnrolled, Attributes: stamp(map[string]string{
		"wallet": hexHash(e.Wallet),
		"device": hexHash(e.Device),
	})}
}

// TransactionExecuted is emitted after a successful execute_transaction.
type TransactionExecuted struct {
	Wallet      [32]byte
	CPIProgram  [32]byte
	Nonce       uint64
	NativeTransfer bool
	Amount      uint64
}

func (TransactionExecuted) EventType() string { return TypeTransactionExecuted }

func (e TransactionExecuted) Event() *types.Event {
	attrs := map[string]string{
		"wallet":    hexHash(e.Wallet),
		"cpiProgram": hexHash(e.CPIProgram),
		"nonce":     strconv.FormatUint(e.Nonce, 10),
		"native":    strconv.FormatBool(e.NativeTransfer),
	}
	if e.NativeTransfer {
		attrs["amount"] = strconv.FormatUint(e.Amount, 10)
	}
	return &types.Event{Type: TypeTransactionExecuted, Attributes: stamp(attrs)}
}

// PolicyInvoked is emitted after a successful invoke_policy.
type PolicyInvoked struct {
	Wallet  [32]byte
	Policy  [32]byte
	Nonce   uint64
	NewDevice *[32]byte
}

func (PolicyInvoked) EventType() string { return TypePolicyInvoked }

func (e PolicyInvoked) Event() *types.Event {
	attrs := map[string]string{
		"wallet": hexHash(e.Wallet),
		"policy": hexHash(e.Policy),
		"nonce":  strconv.FormatUint(e.Nonce, 10),
	}
	if e.NewDevice != nil {
		attrs["newDevice"] = hexHash(*e.NewDevice)
	}
	return &types.Event{Type: TypePolicyInvoked, Attributes: stamp(attrs)}
}

// PolicyUpdated is emitted after a successful update_policy.
type PolicyUpdated struct {
	Wallet     [32]byte
	OldPolicy  [32]byte
	NewPolicy  [32]byte
	Nonce      uint64
}

func (PolicyUpdated) EventType() string { return TypePolicyUpdated }

func (e PolicyUpdated) Event() *types.Event {
	return &types.Event{Type: TypePolicyUpdated, Attributes: stamp(map[string]string{
		"wallet":    hexHash(e.Wallet),
		"oldPolicy": hexHash(e.OldPolicy),
		"newPolicy": hexHash(e.NewPolicy),
		"nonce":     strconv.FormatUint(e.Nonce, 10),
	})}
}

// CpiCommitted is emitted after a successful commit_cpi.
type CpiCommitted struct {
	Wallet    [32]byte
	Session   [32]byte
	Nonce     uint64
	ExpiresAt int64
}

func (CpiCommitted) EventType() string { return TypeCpiCommitted }

func (e CpiCommitted) Event() *types.Event {
	return &types.Event{Type: TypeCpiCommitted, Attributes: stamp(map[string]string{
		"wallet":    hexHash(e.Wallet),
		"session":   hexHash(e.Session),
		"nonce":     strconv.FormatUint(e.Nonce, 10),
		"expiresAt": strconv.FormatInt(e.ExpiresAt, 10),
	})}
}

// CpiRedeemed is emitted after execute_committed, whether it performed the
// bound CPI or gracefully no-op'd (spec.md §4.10).
type CpiRedeemed struct {
	Wallet  [32]byte
	Session [32]byte
	Ok      bool
	Reason  string
}

func (CpiRedeemed) EventType() string { return TypeCpiRedeemed }

func (e CpiRedeemed) Event() *types.Event {
	attrs := map[string]string{
		"wallet":  hexHash(e.Wallet),
		"session": hexHash(e.Session),
		"ok":      strconv.FormatBool(e.Ok),
	}
	if !e.Ok && e.Reason != "" {
		attrs["reason"] = e.Reason
	}
	return &types.Event{Type: TypeCpiRedeemed, Attributes: stamp(attrs)}
}

// ActionRejected describes an action the dispatcher short-circuited before
// any mutation. No engine handler emits it; a rejected action is reported
// only through the error its handler returns.
type ActionRejected struct {
	Wallet [32]byte
	Action string
	Reason string
}

func (ActionRejected) EventType() string { return TypeActionRejected }

func (e ActionRejected) Event() *types.Event {
	return &types.Event{Type: TypeActionRejected, Attributes: stamp(map[string]string{
		"wallet": hexHash(e.Wallet),
		"action": e.Action,
		"reason": e.Reason,
	})}
}
