package engine

import (
	"time"

	"lazorkit/auth"
	"lazorkit/core/errors"
	"lazorkit/core/events"
	"lazorkit/core/types"
	"lazorkit/crypto"
	"lazorkit/passkey"
	"lazorkit/runtime"
)

// InvokePolicyParams is invoke_policy's full input (spec.md §4.8).
type InvokePolicyParams struct {
	Auth           AuthEnvelope
	PolicyData     []byte
	PolicyAccounts []runtime.AccountMeta
	// NewDeviceAccount, when the challenge carries new_passkey, is the
	// address the enrolled device record is written to. It is passed apart
	// from PolicyAccounts, which go to the policy program whole, and must
	// equal the device address derived from the wallet and new_passkey.
	NewDeviceAccount   [32]byte
	NewDeviceCredential []byte
}

// InvokePolicy implements spec.md §4.8: a single policy-half binding, with
// optional device enrolment when the challenge carries a new_passkey.
func (e *Engine) InvokePolicy(p InvokePolicyParams) (err error) {
	defer e.instrument("invoke_policy", time.Now(), &err)

	cfg, err := e.requireNotPaused()
	if err != nil {
		return err
	}
	device, data, err := e.loadWalletForAuth(p.Auth.Wallet, p.Auth.Device)
	if err != nil {
		return err
	}

	challenge, err := auth.VerifyInvokePolicy(auth.Request{
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

	registry, err := e.Store.GetRegistry()
	if err != nil {
		return err
	}
	if err := e.requirePolicyRegistered(registry, data.PolicyProgram); err != nil {
		return err
	}
	if err := checkBindings(p.PolicyData, p.PolicyAccounts, data.PolicyProgram, challenge.PolicyDataHash, challenge.PolicyAccountsHash); err != nil {
		return err
	}

	var newDeviceAddr *[32]byte
	if challenge.NewPasskey != nil {
		owner, err := crypto.NewAddress(crypto.WalletPrefix, p.Auth.Wallet[:])
		if err != nil {
			return err
		}
		if crypto.DeriveDeviceAddress(owner, challenge.NewPasskey[:]).Array() != p.NewDeviceAccount {
			return errors.ErrInvalidAccountData
		}
		if _, ok, err := e.Store.GetWalletDevice(p.NewDeviceAccount); err != nil {
			return err
		} else if ok {
			return errors.ErrAccountAlreadyInitialized
		}
		if len(p.NewDeviceCredential) == 0 || len(p.NewDeviceCredential) > types.MaxCredentialIDLen {
			return errors.ErrCredentialIDInvalid
		}
		if _, err := passkey.ParsePubKey(challenge.NewPasskey[:]); err != nil {
			return errors.ErrInvalidPasskeyFormat
		}
		newDeviceAddr = &p.NewDeviceAccount
	}

	wallet, err := crypto.NewAddress(crypto.WalletPrefix, p.Auth.Wallet[:])
	if err != nil {
		return err
	}
	deviceSeeds := [][]byte{[]byte("device"), p.Auth.Wallet[:], crypto.DeviceSeedHash(wallet, device.PasskeyPubkey[:])[:]}
	ix := runtime.Instruction{ProgramID: data.PolicyProgram, Accounts: p.PolicyAccounts, Data: p.PolicyData}
	if err := e.invokePolicyProgram(data.PolicyProgram, ix, deviceSeeds); err != nil {
		return err
	}

	if newDeviceAddr != nil {
		var pk [33]byte
		copy(pk[:], challenge.NewPasskey[:])
		record := types.WalletDevice{PasskeyPubkey: pk, SmartWallet: p.Auth.Wallet, CredentialID: p.NewDeviceCredential}
		if err := e.Store.PutWalletDevice(*newDeviceAddr, record); err != nil {
			return err
		}
	}

	if cfg.ExecuteFee > 0 {
		if err := e.deductFee(wallet, cfg.ExecuteFee); err != nil {
			return err
		}
	}
	if err := e.bumpNonce(p.Auth.Wallet, data); err != nil {
		return err
	}

	e.Emitter.Emit(events.PolicyInvoked{Wallet: p.Auth.Wallet, Policy: data.PolicyProgram, Nonce: challenge.Nonce, NewDevice: newDeviceAddr})
	if newDeviceAddr != nil {
		e.Emitter.Emit(events.DeviceEnrolled{Wallet: p.Auth.Wallet, Device: *newDeviceAddr})
	}
	return nil
}
