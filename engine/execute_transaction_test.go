package engine_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"lazorkit/core/errors"
	"lazorkit/core/types"
	"lazorkit/engine"
	"lazorkit/runtime"
)

func TestExecuteTransactionS1HappyPathTransfer(t *testing.T) {
	h := newHarness(t)
	priv := genKey(t)
	wallet, device := h.createWallet(7, priv)
	h.fund(wallet, 10_000_000)
	dest := [32]byte{0x42}

	amount := uint64(1_000_000)
	policyData, policyAccounts := checkPolicyIx(device, wallet)
	cpiData := nativeTransferData(amount)
	cpiAccounts := []runtime.AccountMeta{
		{Pubkey: wallet, IsSigner: true, IsWritable: true},
		{Pubkey: dest, IsWritable: true},
	}

	policyAccountsHash, policyDataHash := hashIx(h.policyProgram, policyAccounts, policyData)
	cpiAccountsHash, cpiDataHash := hashIx(runtime.SystemProgramID, cpiAccounts, cpiData)

	challenge := &types.ExecuteChallenge{
		Header:             types.Header{Nonce: 0, CurrentTimestamp: h.clock.now()},
		PolicyDataHash:     policyDataHash,
		PolicyAccountsHash: policyAccountsHash,
		CPIDataHash:        cpiDataHash,
		CPIAccountsHash:    cpiAccountsHash,
	}
	auth := signedEnvelope(t, priv, wallet, device, types.EncodeExecuteChallenge(challenge))

	err := h.eng.ExecuteTransaction(engine.ExecuteTransactionParams{
		Auth:           auth,
		PolicyData:     policyData,
		PolicyAccounts: policyAccounts,
		CPIProgram:     runtime.SystemProgramID,
		CPIData:        cpiData,
		CPIAccounts:    cpiAccounts,
		TransferTo:     dest,
	})
	require.NoError(t, err)

	require.Equal(t, uint64(9_000_000), h.balance(wallet))
	require.Equal(t, uint64(1_000_000), h.balance(dest))
	require.Equal(t, uint64(1), h.nonce(wallet))
}

func TestExecuteTransactionS2ReplayRejected(t *testing.T) {
	h := newHarness(t)
	priv := genKey(t)
	wallet, device := h.createWallet(7, priv)
	h.fund(wallet, 10_000_000)
	dest := [32]byte{0x42}

	amount := uint64(1_000_000)
	policyData, policyAccounts := checkPolicyIx(device, wallet)
	cpiData := nativeTransferData(amount)
	cpiAccounts := []runtime.AccountMeta{
		{Pubkey: wallet, IsSigner: true, IsWritable: true},
		{Pubkey: dest, IsWritable: true},
	}
	policyAccountsHash, policyDataHash := hashIx(h.policyProgram, policyAccounts, policyData)
	cpiAccountsHash, cpiDataHash := hashIx(runtime.SystemProgramID, cpiAccounts, cpiData)
	challenge := &types.ExecuteChallenge{
		Header:             types.Header{Nonce: 0, CurrentTimestamp: h.clock.now()},
		PolicyDataHash:     policyDataHash,
		PolicyAccountsHash: policyAccountsHash,
		CPIDataHash:        cpiDataHash,
		CPIAccountsHash:    cpiAccountsHash,
	}
	encoded := types.EncodeExecuteChallenge(challenge)
	auth := signedEnvelope(t, priv, wallet, device, encoded)
	params := engine.ExecuteTransactionParams{
		Auth: auth, PolicyData: policyData, PolicyAccounts: policyAccounts,
		CPIProgram: runtime.SystemProgramID, CPIData: cpiData, CPIAccounts: cpiAccounts, TransferTo: dest,
	}
	require.NoError(t, h.eng.ExecuteTransaction(params))

	// Re-submit the identical transaction verbatim: last_nonce is now 1, but
	// the challenge still claims nonce 0.
	replayAuth := signedEnvelope(t, priv, wallet, device, encoded)
	params.Auth = replayAuth
	err := h.eng.ExecuteTransaction(params)
	require.ErrorIs(t, err, errors.ErrNonceMismatch)
}

func TestExecuteTransactionS3TamperedBindingRejected(t *testing.T) {
	h := newHarness(t)
	priv := genKey(t)
	wallet, device := h.createWallet(7, priv)
	h.fund(wallet, 10_000_000)
	dest := [32]byte{0x42}

	policyData, policyAccounts := checkPolicyIx(device, wallet)
	cpiAccounts := []runtime.AccountMeta{
		{Pubkey: wallet, IsSigner: true, IsWritable: true},
		{Pubkey: dest, IsWritable: true},
	}
	policyAccountsHash, policyDataHash := hashIx(h.policyProgram, policyAccounts, policyData)

	// Sign a challenge committing to a transfer of 2_000_000...
	signedCPIData := nativeTransferData(2_000_000)
	cpiAccountsHash, cpiDataHash := hashIx(runtime.SystemProgramID, cpiAccounts, signedCPIData)
	challenge := &types.ExecuteChallenge{
		Header:             types.Header{Nonce: 0, CurrentTimestamp: h.clock.now()},
		PolicyDataHash:     policyDataHash,
		PolicyAccountsHash: policyAccountsHash,
		CPIDataHash:        cpiDataHash,
		CPIAccountsHash:    cpiAccountsHash,
	}
	auth := signedEnvelope(t, priv, wallet, device, types.EncodeExecuteChallenge(challenge))

	// ...but submit CPI bytes for 1_000_000 instead.
	submittedCPIData := nativeTransferData(1_000_000)
	err := h.eng.ExecuteTransaction(engine.ExecuteTransactionParams{
		Auth: auth, PolicyData: policyData, PolicyAccounts: policyAccounts,
		CPIProgram: runtime.SystemProgramID, CPIData: submittedCPIData, CPIAccounts: cpiAccounts, TransferTo: dest,
	})
	require.ErrorIs(t, err, errors.ErrInvalidInstructionData)

	// No partial mutation: balance and nonce are untouched.
	require.Equal(t, uint64(10_000_000), h.balance(wallet))
	require.Equal(t, uint64(0), h.nonce(wallet))
}

func TestExecuteTransactionS4PolicyRejects(t *testing.T) {
	h := newHarness(t)
	priv := genKey(t)
	wallet, device := h.createWallet(7, priv)
	h.fund(wallet, 10_000_000)
	dest := [32]byte{0x42}

	// A device that never registered with the policy (wrong signer) makes
	// check_policy fail.
	impostorDevice := [32]byte{0x99}
	policyData, policyAccounts := checkPolicyIx(impostorDevice, wallet)
	cpiData := nativeTransferData(1_000_000)
	cpiAccounts := []runtime.AccountMeta{
		{Pubkey: wallet, IsSigner: true, IsWritable: true},
		{Pubkey: dest, IsWritable: true},
	}
	policyAccountsHash, policyDataHash := hashIx(h.policyProgram, policyAccounts, policyData)
	cpiAccountsHash, cpiDataHash := hashIx(runtime.SystemProgramID, cpiAccounts, cpiData)
	challenge := &types.ExecuteChallenge{
		Header:             types.Header{Nonce: 0, CurrentTimestamp: h.clock.now()},
		PolicyDataHash:     policyDataHash,
		PolicyAccountsHash: policyAccountsHash,
		CPIDataHash:        cpiDataHash,
		CPIAccountsHash:    cpiAccountsHash,
	}
	auth := signedEnvelope(t, priv, wallet, device, types.EncodeExecuteChallenge(challenge))

	err := h.eng.ExecuteTransaction(engine.ExecuteTransactionParams{
		Auth: auth, PolicyData: policyData, PolicyAccounts: policyAccounts,
		CPIProgram: runtime.SystemProgramID, CPIData: cpiData, CPIAccounts: cpiAccounts, TransferTo: dest,
	})
	require.ErrorIs(t, err, errors.ErrUnauthorized)
	require.Equal(t, uint64(10_000_000), h.balance(wallet))
	require.Equal(t, uint64(0), h.nonce(wallet))
}

func TestExecuteTransactionRejectsUnregisteredPolicyProgram(t *testing.T) {
	h := newHarness(t)
	priv := genKey(t)
	wallet, device := h.createWallet(7, priv)

	// Corrupt the wallet's policy pointer to an unregistered program.
	data, ok, err := h.store.GetSmartWalletData(wallet)
	require.NoError(t, err)
	require.True(t, ok)
	data.PolicyProgram = [32]byte{0xFF, 0xFF}
	require.NoError(t, h.store.PutSmartWalletData(wallet, data))

	policyData, policyAccounts := checkPolicyIx(device, wallet)
	cpiData := nativeTransferData(1)
	cpiAccounts := []runtime.AccountMeta{{Pubkey: wallet, IsSigner: true, IsWritable: true}, {Pubkey: [32]byte{0x42}, IsWritable: true}}
	policyAccountsHash, policyDataHash := hashIx(data.PolicyProgram, policyAccounts, policyData)
	cpiAccountsHash, cpiDataHash := hashIx(runtime.SystemProgramID, cpiAccounts, cpiData)
	challenge := &types.ExecuteChallenge{
		Header: types.Header{Nonce: 0, CurrentTimestamp: h.clock.now()}, PolicyDataHash: policyDataHash,
		PolicyAccountsHash: policyAccountsHash, CPIDataHash: cpiDataHash, CPIAccountsHash: cpiAccountsHash,
	}
	auth := signedEnvelope(t, priv, wallet, device, types.EncodeExecuteChallenge(challenge))
	err = h.eng.ExecuteTransaction(engine.ExecuteTransactionParams{
		Auth: auth, PolicyData: policyData, PolicyAccounts: policyAccounts,
		CPIProgram: runtime.SystemProgramID, CPIData: cpiData, CPIAccounts: cpiAccounts, TransferTo: [32]byte{0x42},
	})
	require.ErrorIs(t, err, errors.ErrPolicyProgramNotRegistered)
}

func TestExecuteTransactionRejectsWhenPaused(t *testing.T) {
	h := newHarness(t)
	priv := genKey(t)
	wallet, device := h.createWallet(7, priv)
	require.NoError(t, h.eng.UpdateConfig(h.authority, engine.ConfigParamPaused, 0, [32]byte{}, true))

	policyData, policyAccounts := checkPolicyIx(device, wallet)
	cpiData := nativeTransferData(1)
	cpiAccounts := []runtime.AccountMeta{{Pubkey: wallet, IsSigner: true, IsWritable: true}, {Pubkey: [32]byte{0x42}, IsWritable: true}}
	policyAccountsHash, policyDataHash := hashIx(h.policyProgram, policyAccounts, policyData)
	cpiAccountsHash, cpiDataHash := hashIx(runtime.SystemProgramID, cpiAccounts, cpiData)
	challenge := &types.ExecuteChallenge{
		Header: types.Header{Nonce: 0, CurrentTimestamp: h.clock.now()}, PolicyDataHash: policyDataHash,
		PolicyAccountsHash: policyAccountsHash, CPIDataHash: cpiDataHash, CPIAccountsHash: cpiAccountsHash,
	}
	auth := signedEnvelope(t, priv, wallet, device, types.EncodeExecuteChallenge(challenge))
	err := h.eng.ExecuteTransaction(engine.ExecuteTransactionParams{
		Auth: auth, PolicyData: policyData, PolicyAccounts: policyAccounts,
		CPIProgram: runtime.SystemProgramID, CPIData: cpiData, CPIAccounts: cpiAccounts, TransferTo: [32]byte{0x42},
	})
	require.ErrorIs(t, err, errors.ErrProgramPaused)
}

func TestExecuteTransactionRejectsReentrantCPI(t *testing.T) {
	h := newHarness(t)
	priv := genKey(t)
	wallet, device := h.createWallet(7, priv)
	h.fund(wallet, 1000)

	self := [32]byte{0xEE} // matches the harness's engine self id
	policyData, policyAccounts := checkPolicyIx(device, wallet)
	cpiData := []byte("arbitrary-cpi-payload")
	cpiAccounts := []runtime.AccountMeta{{Pubkey: wallet, IsSigner: true}}
	policyAccountsHash, policyDataHash := hashIx(h.policyProgram, policyAccounts, policyData)
	cpiAccountsHash, cpiDataHash := hashIx(self, cpiAccounts, cpiData)
	challenge := &types.ExecuteChallenge{
		Header: types.Header{Nonce: 0, CurrentTimestamp: h.clock.now()}, PolicyDataHash: policyDataHash,
		PolicyAccountsHash: policyAccountsHash, CPIDataHash: cpiDataHash, CPIAccountsHash: cpiAccountsHash,
	}
	auth := signedEnvelope(t, priv, wallet, device, types.EncodeExecuteChallenge(challenge))
	err := h.eng.ExecuteTransaction(engine.ExecuteTransactionParams{
		Auth: auth, PolicyData: policyData, PolicyAccounts: policyAccounts,
		CPIProgram: self, CPIData: cpiData, CPIAccounts: cpiAccounts,
	})
	require.ErrorIs(t, err, errors.ErrReentrancyDetected)
}
