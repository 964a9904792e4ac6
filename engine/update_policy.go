package engine

import (
	"time"

	"lazorkit/auth"
	"lazorkit/core/errors"
	"lazorkit/core/events"
	"lazorkit/crypto"
	"lazorkit/policy"
	"lazorkit/runtime"
)

// UpdatePolicyParams is update_policy's full input (spec.md §4.9).
type UpdatePolicyParams struct {
	Auth              AuthEnvelope
	NewPolicyProgram  [32]byte
	OldPolicyData     []byte
	OldPolicyAccounts []runtime.AccountMeta
	NewPolicyData     []byte
	NewPolicyAccounts []runtime.AccountMeta
}

// UpdatePolicy implements spec.md §4.9: atomically swaps the wallet's policy
// program, subject to the default-program invariant (spec.md §8 invariant 5).
func (e *Engine) UpdatePolicy(p UpdatePolicyParams) (err error) {
	defer e.instrument("update_policy", time.Now(), &err)

	cfg, err := e.requireNotPaused()
	if err != nil {
		return err
	}
	device, data, err := e.loadWalletForAuth(p.Auth.Wallet, p.Auth.Device)
	if err != nil {
		return err
	}

	challenge, err := auth.VerifyUpdatePolicy(auth.Request{
		Device:            device,
		Wallet:            p.Auth.Wallet,
		ClaimedPasskey:    p.Auth.ClaimedPasskey,
		ClientDataJSON:    p.Auth.ClientDataJSON,
		AuthenticatorData: p.Auth.AuthenticatorData,
		Sysvar:            p.Auth.Sysvar,
		VerifyIxIndex:     p.Auth.VerifyIxIndex,
		LastNonce:         data.LastNonce,
		Now:               e.Now(),
	})
	if err != nil {
		return err
	}

	oldProgram := data.PolicyProgram
	newProgram := p.NewPolicyProgram
	if oldProgram == newProgram {
		return errors.ErrPolicyProgramsIdentical
	}

	registry, err := e.Store.GetRegistry()
	if err != nil {
		return err
	}
	if err := e.requirePolicyRegistered(registry, oldProgram); err != nil {
		return err
	}
	if err := e.requirePolicyRegistered(registry, newProgram); err != nil {
		return err
	}
	if oldProgram != cfg.DefaultPolicyProgram && newProgram != cfg.DefaultPolicyProgram {
		return errors.ErrNoDefaultPolicyProgram
	}

	if !policy.HasDiscriminator(p.OldPolicyData, policy.DestroyDiscriminator) {
		return errors.ErrInvalidDestroyDiscriminator
	}
	if !policy.HasDiscriminator(p.NewPolicyData, policy.InitPolicyDiscriminator) {
		return errors.ErrInvalidInitPolicyDiscriminator
	}
	if err := checkBindings(p.OldPolicyData, p.OldPolicyAccounts, oldProgram, challenge.OldPolicyDataHash, challenge.OldPolicyAccountsHash); err != nil {
		return err
	}
	if err := checkBindings(p.NewPolicyData, p.NewPolicyAccounts, newProgram, challenge.NewPolicyDataHash, challenge.NewPolicyAccountsHash); err != nil {
		return err
	}

	wallet, err := crypto.NewAddress(crypto.WalletPrefix, p.Auth.Wallet[:])
	if err != nil {
		return err
	}
	deviceSeeds := [][]byte{[]byte("device"), p.Auth.Wallet[:], crypto.DeviceSeedHash(wallet, device.PasskeyPubkey[:])[:]}

	destroyIx := runtime.Instruction{ProgramID: oldProgram, Accounts: p.OldPolicyAccounts, Data: p.OldPolicyData}
	if err := e.invokePolicyProgram(oldProgram, destroyIx, deviceSeeds); err != nil {
		return err
	}
	initIx := runtime.Instruction{ProgramID: newProgram, Accounts: p.NewPolicyAccounts, Data: p.NewPolicyData}
	if err := e.invokePolicyProgram(newProgram, initIx, deviceSeeds); err != nil {
		return err
	}

	data.PolicyProgram = newProgram
	if err := e.Store.PutSmartWalletData(p.Auth.Wallet, data); err != nil {
		return err
	}

	if cfg.ExecuteFee > 0 {
		if err := e.deductFee(wallet, cfg.ExecuteFee); err != nil {
			return err
		}
	}
	if err := e.bumpNonce(p.Auth.Wallet, data); err != nil {
		return err
	}

	e.Emitter.Emit(events.PolicyUpdated{Wallet: p.Auth.Wallet, OldPolicy: oldProgram, NewPolicy: newProgram, Nonce: challenge.Nonce})
	return nil
}
