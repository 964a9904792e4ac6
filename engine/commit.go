package engine

import (
	"time"

	"lazorkit/auth"
	"lazorkit/binding"
	"lazorkit/core/errors"
	"lazorkit/core/events"
	"lazorkit/core/types"
	"lazorkit/crypto"
	"lazorkit/policy"
	"lazorkit/runtime"
)

// CommitParams is commit_cpi's full input (spec.md §4.10).
type CommitParams struct {
	Auth           AuthEnvelope
	PolicyData     []byte
	PolicyAccounts []runtime.AccountMeta
	CPIProgram     [32]byte
	CPIData        []byte
	CPIAccounts    []runtime.AccountMeta
	ExpiresAt      int64
	Payer          [32]byte
}

// Commit implements spec.md §4.10's first phase: verify authorization exactly
// like ExecuteTransaction (including the policy check), then persist a
// TransactionSession instead of performing the CPI.
func (e *Engine) Commit(p CommitParams) (sessionAddr [32]byte, err error) {
	defer e.instrument("commit_cpi", time.Now(), &err)

	cfg, err := e.requireNotPaused()
	if err != nil {
		return [32]byte{}, err
	}
	device, data, err := e.loadWalletForAuth(p.Auth.Wallet, p.Auth.Device)
	if err != nil {
		return [32]byte{}, err
	}

	challenge, err := auth.VerifyCommit(auth.Request{
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
		return [32]byte{}, err
	}

	registry, err := e.Store.GetRegistry()
	if err != nil {
		return [32]byte{}, err
	}
	if err := e.requirePolicyRegistered(registry, data.PolicyProgram); err != nil {
		return [32]byte{}, err
	}
	if !policy.HasDiscriminator(p.PolicyData, policy.CheckPolicyDiscriminator) {
		return [32]byte{}, errors.ErrInvalidCheckPolicyDiscriminator
	}
	if err := checkBindings(p.PolicyData, p.PolicyAccounts, data.PolicyProgram, challenge.PolicyDataHash, challenge.PolicyAccountsHash); err != nil {
		return [32]byte{}, err
	}
	if err := checkBindings(p.CPIData, p.CPIAccounts, p.CPIProgram, challenge.CPIDataHash, challenge.CPIAccountsHash); err != nil {
		return [32]byte{}, err
	}

	wallet, err := crypto.NewAddress(crypto.WalletPrefix, p.Auth.Wallet[:])
	if err != nil {
		return [32]byte{}, err
	}
	deviceSeeds := [][]byte{[]byte("device"), p.Auth.Wallet[:], crypto.DeviceSeedHash(wallet, device.PasskeyPubkey[:])[:]}
	policyIx := runtime.Instruction{ProgramID: data.PolicyProgram, Accounts: p.PolicyAccounts, Data: p.PolicyData}
	if err := e.invokePolicyProgram(data.PolicyProgram, policyIx, deviceSeeds); err != nil {
		return [32]byte{}, err
	}

	session := crypto.DeriveSessionAddress(wallet, data.LastNonce)
	sAddr := session.Array()
	if _, ok, err := e.Store.GetSession(sAddr); err != nil {
		return [32]byte{}, err
	} else if ok {
		return [32]byte{}, errors.ErrSessionExists
	}

	accountsHash, dataHash := cpiHashes(p.CPIProgram, p.CPIAccounts, p.CPIData)
	record := types.TransactionSession{
		OwnerWallet:     p.Auth.Wallet,
		DataHash:        dataHash,
		AccountsHash:    accountsHash,
		AuthorizedNonce: challenge.Nonce,
		ExpiresAt:       uint64(p.ExpiresAt),
		RentRefundTo:    p.Payer,
	}
	if err := e.Store.PutSession(sAddr, record); err != nil {
		return [32]byte{}, err
	}

	if cfg.ExecuteFee > 0 {
		if err := e.deductFee(wallet, cfg.ExecuteFee); err != nil {
			return [32]byte{}, err
		}
	}
	if err := e.bumpNonce(p.Auth.Wallet, data); err != nil {
		return [32]byte{}, err
	}

	e.Emitter.Emit(events.CpiCommitted{Wallet: p.Auth.Wallet, Session: sAddr, Nonce: challenge.Nonce, ExpiresAt: p.ExpiresAt})
	return sAddr, nil
}

// ExecuteCommittedParams is execute_committed's full input (spec.md §4.10).
// No passkey verification is required; the bound commitment hashes are the
// sole authorization.
type ExecuteCommittedParams struct {
	Session     [32]byte
	CPIProgram  [32]byte
	CPIData     []byte
	CPIAccounts []runtime.AccountMeta
	TransferTo  [32]byte
}

// ExecuteCommitted implements spec.md §4.10's second phase. It never returns
// an error for a binding mismatch or expiry: both are a graceful no-op, and
// the session is closed (rent refunded) either way (spec.md §7's one
// sanctioned silent-failure path, §8 invariant 6).
func (e *Engine) ExecuteCommitted(p ExecuteCommittedParams) (err error) {
	defer e.instrument("execute_committed", time.Now(), &err)

	if _, err := e.requireNotPaused(); err != nil {
		return err
	}
	record, ok, err := e.Store.GetSession(p.Session)
	if err != nil {
		return err
	}
	if !ok {
		return errors.ErrSessionNotFound
	}

	accountsHash, dataHash := cpiHashes(p.CPIProgram, p.CPIAccounts, p.CPIData)
	mismatched := dataHash != record.DataHash || accountsHash != record.AccountsHash
	expired := e.Now() > int64(record.ExpiresAt)

	if mismatched || expired {
		return e.closeSession(p.Session, record, false, noopReason(mismatched, expired))
	}

	native := p.CPIProgram == runtime.SystemProgramID
	if native {
		if len(p.CPIAccounts) < 2 || p.CPIAccounts[1].Pubkey != p.TransferTo {
			return e.closeSession(p.Session, record, false, errors.ErrInvalidAccountData.Error())
		}
		if _, err := e.nativeTransfer(record.OwnerWallet, p.TransferTo, p.CPIData, 0); err != nil {
			return e.closeSession(p.Session, record, false, err.Error())
		}
	} else {
		walletData, ok, err := e.Store.GetSmartWalletData(record.OwnerWallet)
		if err != nil {
			return err
		}
		if !ok {
			return e.closeSession(p.Session, record, false, errors.ErrWalletNotFound.Error())
		}
		walletSeeds := [][]byte{[]byte("wallet"), leUint64(walletData.WalletID)}
		cpiIx := runtime.Instruction{ProgramID: p.CPIProgram, Accounts: p.CPIAccounts, Data: p.CPIData}
		if err := e.Programs.Invoke(e.Self, cpiIx, walletSeeds); err != nil {
			return e.closeSession(p.Session, record, false, err.Error())
		}
	}

	return e.closeSession(p.Session, record, true, "")
}

// closeSession deletes the session record (refunding rent to RentRefundTo is
// the caller's payer-account bookkeeping, outside this engine's ledger) and
// emits the redemption outcome, succeeding regardless of ok so a commit can
// never be left stranded (spec.md §4.10).
func (e *Engine) closeSession(addr [32]byte, record types.TransactionSession, ok bool, reason string) error {
	if err := e.Store.DeleteSession(addr); err != nil {
		return err
	}
	e.Emitter.Emit(events.CpiRedeemed{Wallet: record.OwnerWallet, Session: addr, Ok: ok, Reason: reason})
	return nil
}

func noopReason(mismatched, expired bool) string {
	switch {
	case mismatched:
		return "binding mismatch"
	case expired:
		return "session expired"
	default:
		return ""
	}
}

func cpiHashes(programID [32]byte, accounts []runtime.AccountMeta, data []byte) (accountsHash, dataHash [32]byte) {
	return binding.InstructionHashes(runtime.Instruction{ProgramID: programID, Accounts: accounts, Data: data})
}
