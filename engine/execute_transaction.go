package engine

import (
	"time"

	"lazorkit/auth"
	"lazorkit/binding"
	"lazorkit/core/errors"
	"lazorkit/core/events"
	"lazorkit/core/types"
	"lazorkit/crypto"
	"lazorkit/passkey"
	"lazorkit/policy"
	"lazorkit/runtime"
)

// AuthEnvelope bundles everything the dispatcher needs to run the
// Authorization Verifier, independent of which action it is authorizing
// (spec.md §4.5).
type AuthEnvelope struct {
	Wallet            [32]byte
	Device            [32]byte
	ClaimedPasskey    passkey.PubKey
	ClientDataJSON    []byte
	AuthenticatorData []byte
	Sysvar            *runtime.InstructionsSysvar
	VerifyIxIndex     uint16
}

// ExecuteTransactionParams is execute_transaction's full input (spec.md §4.7).
type ExecuteTransactionParams struct {
	Auth             AuthEnvelope
	PolicyData       []byte
	PolicyAccounts   []runtime.AccountMeta
	CPIProgram       [32]byte
	CPIData          []byte
	CPIAccounts      []runtime.AccountMeta
	TransferTo       [32]byte // destination when CPIProgram is the system program; must equal CPIAccounts[1]
}

// ExecuteTransaction implements spec.md §4.7: verify authorization, CPI the
// policy check, then either a native transfer or the target CPI, with the
// wallet-PDA signer.
func (e *Engine) ExecuteTransaction(p ExecuteTransactionParams) (err error) {
	defer e.instrument("execute_transaction", time.Now(), &err)

	cfg, err := e.requireNotPaused()
	if err != nil {
		return err
	}
	device, data, err := e.loadWalletForAuth(p.Auth.Wallet, p.Auth.Device)
	if err != nil {
		return err
	}

	challenge, err := auth.VerifyExecute(auth.Request{
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
	if !policy.HasDiscriminator(p.PolicyData, policy.CheckPolicyDiscriminator) {
		return errors.ErrInvalidCheckPolicyDiscriminator
	}
	if err := checkBindings(p.PolicyData, p.PolicyAccounts, data.PolicyProgram, challenge.PolicyDataHash, challenge.PolicyAccountsHash); err != nil {
		return err
	}
	if err := checkBindings(p.CPIData, p.CPIAccounts, p.CPIProgram, challenge.CPIDataHash, challenge.CPIAccountsHash); err != nil {
		return err
	}
	if p.CPIProgram == runtime.SystemProgramID && (len(p.CPIAccounts) < 2 || p.CPIAccounts[1].Pubkey != p.TransferTo) {
		return errors.ErrInvalidAccountData
	}

	wallet, err := crypto.NewAddress(crypto.WalletPrefix, p.Auth.Wallet[:])
	if err != nil {
		return err
	}
	deviceSeeds := [][]byte{[]byte("device"), p.Auth.Wallet[:], crypto.DeviceSeedHash(wallet, device.PasskeyPubkey[:])[:]}
	policyIx := runtime.Instruction{ProgramID: data.PolicyProgram, Accounts: p.PolicyAccounts, Data: p.PolicyData}
	if err := e.invokePolicyProgram(data.PolicyProgram, policyIx, deviceSeeds); err != nil {
		return err
	}

	walletSeeds := [][]byte{[]byte("wallet"), leUint64(data.WalletID)}
	var transferAmount uint64
	native := p.CPIProgram == runtime.SystemProgramID
	if native {
		transferAmount, err = e.nativeTransfer(p.Auth.Wallet, p.TransferTo, p.CPIData, cfg.ExecuteFee)
		if err != nil {
			return err
		}
	} else {
		cpiIx := runtime.Instruction{ProgramID: p.CPIProgram, Accounts: p.CPIAccounts, Data: p.CPIData}
		if err := e.Programs.Invoke(e.Self, cpiIx, walletSeeds); err != nil {
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

	e.Emitter.Emit(events.TransactionExecuted{
		Wallet: p.Auth.Wallet, CPIProgram: p.CPIProgram, Nonce: challenge.Nonce,
		NativeTransfer: native, Amount: transferAmount,
	})
	return nil
}

// nativeTransfer performs the direct lamport movement branch of §4.7 step 3:
// validates amount > 0, affordability (amount + fee), and destination !=
// wallet, then moves the balance directly between the two SmartWallet
// records (no runtime.SystemProgram CPI needed since both ledgers live in
// this engine's own store).
func (e *Engine) nativeTransfer(walletAddr, destAddr [32]byte, cpiData []byte, fee uint64) (uint64, error) {
	if len(cpiData) != 12 || [4]byte(cpiData[:4]) != runtime.NativeTransferDiscriminator {
		return 0, errors.ErrInvalidInstructionData
	}
	if destAddr == walletAddr {
		return 0, errors.ErrInvalidAccountData
	}
	amount := decodeU64LE(cpiData[4:12])
	if amount == 0 {
		return 0, errors.ErrInvalidInstructionData
	}
	sw, ok, err := e.Store.GetSmartWallet(walletAddr)
	if err != nil {
		return 0, err
	}
	if !ok || sw.Balance < amount+fee {
		return 0, errors.ErrInsufficientBalanceForFee
	}
	dest, _, err := e.Store.GetSmartWallet(destAddr)
	if err != nil {
		return 0, err
	}
	sw.Balance -= amount
	dest.Address = destAddr
	dest.Balance += amount
	if err := e.Store.PutSmartWallet(sw); err != nil {
		return 0, err
	}
	if err := e.Store.PutSmartWallet(dest); err != nil {
		return 0, err
	}
	return amount, nil
}

func decodeU64LE(b []byte) uint64 {
	var v uint64
	for i := 7; i >= 0; i-- {
		v = v<<8 | uint64(b[i])
	}
	return v
}

func leUint64(v uint64) []byte {
	out := make([]byte, 8)
	for i := 0; i < 8; i++ {
		out[i] = byte(v)
		v >>= 8
	}
	return out
}

// loadWalletForAuth fetches the device and wallet-data records every
// authorized action needs before it can even run the verifier.
func (e *Engine) loadWalletForAuth(walletAddr, deviceAddr [32]byte) (types.WalletDevice, types.SmartWalletData, error) {
	device, ok, err := e.Store.GetWalletDevice(deviceAddr)
	if err != nil {
		return types.WalletDevice{}, types.SmartWalletData{}, err
	}
	if !ok {
		return types.WalletDevice{}, types.SmartWalletData{}, errors.ErrDeviceNotFound
	}
	data, ok, err := e.Store.GetSmartWalletData(walletAddr)
	if err != nil {
		return types.WalletDevice{}, types.SmartWalletData{}, err
	}
	if !ok {
		return types.WalletDevice{}, types.SmartWalletData{}, errors.ErrWalletNotFound
	}
	return device, data, nil
}

// checkBindings re-derives the commitment hashes over the supplied
// instruction and verifies them against the signed challenge's (spec.md
// §4.4, §8 invariant 2).
func checkBindings(data []byte, accounts []runtime.AccountMeta, programID [32]byte, wantDataHash, wantAccountsHash [32]byte) error {
	accountsHash, dataHash := binding.InstructionHashes(runtime.Instruction{ProgramID: programID, Accounts: accounts, Data: data})
	if dataHash != wantDataHash {
		return errors.ErrInvalidInstructionData
	}
	if accountsHash != wantAccountsHash {
		return errors.ErrInvalidAccountData
	}
	return nil
}
