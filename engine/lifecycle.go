package engine

import (
	"time"

	"lazorkit/core/errors"
	"lazorkit/core/events"
	"lazorkit/core/types"
	"lazorkit/crypto"
	"lazorkit/passkey"
	"lazorkit/runtime"
)

// CreateSmartWalletParams is the full input to CreateSmartWallet (spec.md
// §4.11 and §6's create_smart_wallet entry).
type CreateSmartWalletParams struct {
	Payer              [32]byte
	PasskeyPubkey      passkey.PubKey
	CredentialID       []byte
	WalletID           uint64
	InitPolicyData     []byte
	InitPolicyAccounts []runtime.AccountMeta
	PayForUser         bool
}

// CreateSmartWallet implements spec.md §4.11: validates inputs, creates the
// SmartWallet/SmartWalletData/WalletDevice triple, and CPIs the default
// policy program's init_policy with the device PDA as signer.
func (e *Engine) CreateSmartWallet(p CreateSmartWalletParams) (walletAddr [32]byte, deviceAddr [32]byte, err error) {
	defer e.instrument("create_smart_wallet", time.Now(), &err)

	cfg, err := e.requireNotPaused()
	if err != nil {
		return [32]byte{}, [32]byte{}, err
	}
	if p.WalletID == 0 {
		return [32]byte{}, [32]byte{}, errors.ErrWalletIDZero
	}
	if len(p.CredentialID) == 0 || len(p.CredentialID) > types.MaxCredentialIDLen {
		return [32]byte{}, [32]byte{}, errors.ErrCredentialIDInvalid
	}
	if err := p.PasskeyPubkey.Validate(); err != nil {
		return [32]byte{}, [32]byte{}, errors.ErrInvalidPasskeyFormat
	}

	wallet := crypto.DeriveWalletAddress(p.WalletID)
	wAddr := wallet.Array()
	if _, ok, err := e.Store.GetSmartWallet(wAddr); err != nil {
		return [32]byte{}, [32]byte{}, err
	} else if ok {
		return [32]byte{}, [32]byte{}, errors.ErrWalletAlreadyExists
	}

	device := crypto.DeriveDeviceAddress(wallet, p.PasskeyPubkey.Bytes())
	dAddr := device.Array()
	if _, ok, err := e.Store.GetWalletDevice(dAddr); err != nil {
		return [32]byte{}, [32]byte{}, err
	} else if ok {
		return [32]byte{}, [32]byte{}, errors.ErrAccountAlreadyInitialized
	}

	// CPI the default policy's init_policy with the device PDA as signer,
	// before any state is written (spec.md §7: no partial mutation before
	// the last fallible external call, and the nonce bump is last anyway).
	seeds := [][]byte{[]byte("device"), wallet.Bytes(), crypto.DeviceSeedHash(wallet, p.PasskeyPubkey.Bytes())[:]}
	ix := runtime.Instruction{
		ProgramID: cfg.DefaultPolicyProgram,
		Accounts:  p.InitPolicyAccounts,
		Data:      p.InitPolicyData,
	}
	if err := e.invokePolicyProgram(cfg.DefaultPolicyProgram, ix, seeds); err != nil {
		return [32]byte{}, [32]byte{}, err
	}

	if err := e.Store.PutSmartWallet(types.SmartWallet{Address: wAddr, Balance: 0}); err != nil {
		return [32]byte{}, [32]byte{}, err
	}
	data := types.SmartWalletData{WalletID: p.WalletID, PolicyProgram: cfg.DefaultPolicyProgram, LastNonce: 0}
	if err := e.Store.PutSmartWalletData(wAddr, data); err != nil {
		return [32]byte{}, [32]byte{}, err
	}
	var pk [33]byte
	copy(pk[:], p.PasskeyPubkey.Bytes())
	deviceRecord := types.WalletDevice{PasskeyPubkey: pk, SmartWallet: wAddr, CredentialID: p.CredentialID}
	if err := e.Store.PutWalletDevice(dAddr, deviceRecord); err != nil {
		return [32]byte{}, [32]byte{}, err
	}

	if !p.PayForUser && cfg.CreateWalletFee > 0 {
		if err := e.deductFee(wallet, cfg.CreateWalletFee); err != nil {
			return [32]byte{}, [32]byte{}, err
		}
	}

	e.Emitter.Emit(events.WalletCreated{Wallet: wAddr, WalletID: p.WalletID, Device: dAddr, Policy: cfg.DefaultPolicyProgram})
	return wAddr, dAddr, nil
}
