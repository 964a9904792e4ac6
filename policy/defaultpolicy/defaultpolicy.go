// Package defaultpolicy is a minimal reference double for the
// `default_policy` / `default_rule` leaf programs (spec.md §1 scopes their
// own state machines out of the core). It exists only so the engine has a
// registered, executable policy program to exercise in tests; it is not a
// hardened product and enforces no spending logic beyond the one constraint
// `check_policy` originally had: the calling device must be the one the
// policy was initialised for.
package defaultpolicy

import (
	"lazorkit/core/errors"
	"lazorkit/policy"
	"lazorkit/runtime"
)

// Record mirrors original_source's `Policy{smart_wallet, wallet_device}`
// account: the one piece of state this reference program keeps per wallet.
type Record struct {
	SmartWallet  [32]byte
	WalletDevice [32]byte
}

// Program is a process-local, map-backed stand-in for the on-chain
// `default_policy` program. ProgramID identifies it in a runtime.Registry.
type Program struct {
	ProgramID [32]byte
	records   map[[32]byte]Record // keyed by smart wallet address
}

// New returns an empty reference policy program bound to programID.
func New(programID [32]byte) *Program {
	return &Program{ProgramID: programID, records: make(map[[32]byte]Record)}
}

var _ policy.Program = (*Program)(nil)

// Invoke implements runtime.Invoker, dispatching on the 8-byte discriminator
// exactly as original_source's Anchor `#[program]` module does.
func (p *Program) Invoke(ix runtime.Instruction, _ [][]byte) error {
	if len(ix.Data) < 8 {
		return errors.ErrInvalidInstructionData
	}
	disc := [8]byte(ix.Data[:8])
	switch disc {
	case policy.InitPolicyDiscriminator:
		return p.initPolicy(ix)
	case policy.CheckPolicyDiscriminator:
		return p.checkPolicy(ix)
	case policy.DestroyDiscriminator:
		return p.destroy(ix)
	case policy.AddDeviceDiscriminator:
		return p.addDevice(ix)
	default:
		return errors.ErrInvalidInstructionData
	}
}

// initPolicy mirrors init_policy.rs: accounts = [payer, smart_wallet,
// wallet_device(signer)]. Creates the Policy record keyed by smart_wallet.
func (p *Program) initPolicy(ix runtime.Instruction) error {
	if len(ix.Accounts) < 3 {
		return errors.ErrInvalidAccountData
	}
	smartWallet := ix.Accounts[1].Pubkey
	device := ix.Accounts[2].Pubkey
	if !ix.Accounts[2].IsSigner {
		return errors.ErrInvalidAccountData
	}
	if _, exists := p.records[smartWallet]; exists {
		return errors.ErrAccountAlreadyInitialized
	}
	p.records[smartWallet] = Record{SmartWallet: smartWallet, WalletDevice: device}
	return nil
}

// checkPolicy mirrors check_policy.rs's two constraints: the signing device
// must equal the record's wallet_device, and the record's smart_wallet must
// match. accounts = [wallet_device(signer), smart_wallet].
func (p *Program) checkPolicy(ix runtime.Instruction) error {
	if len(ix.Accounts) < 2 {
		return errors.ErrInvalidAccountData
	}
	device := ix.Accounts[0]
	smartWallet := ix.Accounts[1].Pubkey
	if !device.IsSigner {
		return errors.ErrUnauthorized
	}
	rec, ok := p.records[smartWallet]
	if !ok {
		return errors.ErrWalletNotFound
	}
	if rec.WalletDevice != device.Pubkey || rec.SmartWallet != smartWallet {
		return errors.ErrUnauthorized
	}
	return nil
}

// destroy drops the Policy record for the wallet named in accounts[1],
// mirroring update_policy's destroy-old-policy step (spec.md §4.9).
func (p *Program) destroy(ix runtime.Instruction) error {
	if len(ix.Accounts) < 2 {
		return errors.ErrInvalidAccountData
	}
	smartWallet := ix.Accounts[1].Pubkey
	if _, ok := p.records[smartWallet]; !ok {
		return errors.ErrWalletNotFound
	}
	delete(p.records, smartWallet)
	return nil
}

// addDevice mirrors default_rule's add_device.rs: re-key the policy record
// from the existing device to the new one, so the new device satisfies
// checkPolicy and the existing device no longer does.
func (p *Program) addDevice(ix runtime.Instruction) error {
	if len(ix.Accounts) < 2 {
		return errors.ErrInvalidAccountData
	}
	existingDevice := ix.Accounts[0].Pubkey
	newDevice := ix.Accounts[1].Pubkey
	for wallet, rec := range p.records {
		if rec.WalletDevice == existingDevice {
			rec.WalletDevice = newDevice
			p.records[wallet] = rec
			return nil
		}
	}
	return errors.ErrDeviceNotFound
}
