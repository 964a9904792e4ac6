package engine_test

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/require"

	"lazorkit/binding"
	"lazorkit/core/state"
	"lazorkit/crypto"
	"lazorkit/engine"
	"lazorkit/passkey"
	"lazorkit/policy"
	"lazorkit/policy/defaultpolicy"
	"lazorkit/runtime"
	"lazorkit/storage"
	"lazorkit/storage/trie"
)

// clock is a mutable logical clock so tests can move time forward without
// sleeping, matching the deterministic, wall-clock-free testing style the
// rest of the repo uses.
type clock struct{ t int64 }

func (c *clock) now() int64 { return c.t }

// harness wires a real trie-backed core/state.Manager, a runtime.Registry
// holding one defaultpolicy.Program double, and an engine.Engine around them
// — enough to exercise every dispatcher action end to end the way
// spec.md §8's scenarios describe.
type harness struct {
	t             *testing.T
	eng           *engine.Engine
	store         *state.Manager
	registry      *runtime.Registry
	policyProgram [32]byte
	policy        *defaultpolicy.Program
	authority     [32]byte
	clock         *clock
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	tr, err := trie.NewTrie(storage.NewMemDB(), nil)
	require.NoError(t, err)
	store := state.NewManager(tr)

	programID := [32]byte{0xAA}
	prog := defaultpolicy.New(programID)
	registry := runtime.NewRegistry()
	registry.Register(programID, prog)

	self := [32]byte{0xEE}
	clk := &clock{t: 1_000_000}
	eng := engine.New(store, registry, nil, self, clk.now)

	authority := [32]byte{0x01}
	require.NoError(t, eng.Initialize(authority, programID, 0, 0))

	return &harness{
		t: t, eng: eng, store: store, registry: registry,
		policyProgram: programID, policy: prog, authority: authority, clock: clk,
	}
}

func genKey(t *testing.T) *ecdsa.PrivateKey {
	t.Helper()
	priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	return priv
}

func pubKeyOf(t *testing.T, priv *ecdsa.PrivateKey) passkey.PubKey {
	t.Helper()
	pk, err := passkey.Compress(&priv.PublicKey)
	require.NoError(t, err)
	return pk
}

// signedEnvelope signs challengeBytes with priv exactly as a WebAuthn
// authenticator would and wraps the result into an engine.AuthEnvelope ready
// to hand to a dispatcher action.
func signedEnvelope(t *testing.T, priv *ecdsa.PrivateKey, wallet, device [32]byte, challengeBytes []byte) engine.AuthEnvelope {
	t.Helper()
	pub := pubKeyOf(t, priv)

	clientDataJSON := []byte(`{"type":"webauthn.get","challenge":"` +
		base64.RawURLEncoding.EncodeToString(challengeBytes) +
		`","origin":"https://example.com"}`)
	authenticatorData := []byte("authenticator-data-flags-counter")

	message := passkey.BuildSignedMessage(authenticatorData, clientDataJSON)
	digest := sha256.Sum256(message)
	r, s, err := ecdsa.Sign(rand.Reader, priv, digest[:])
	require.NoError(t, err)
	var sig [64]byte
	r.FillBytes(sig[:32])
	s.FillBytes(sig[32:])

	var pubArr [33]byte
	copy(pubArr[:], pub.Bytes())
	precompileData := runtime.EncodeSecp256r1Record(pubArr, sig, message)
	sysvar := &runtime.InstructionsSysvar{Instructions: []runtime.Instruction{
		{ProgramID: runtime.Secp256r1ProgramID, Data: precompileData},
	}}

	return engine.AuthEnvelope{
		Wallet:            wallet,
		Device:            device,
		ClaimedPasskey:    pub,
		ClientDataJSON:    clientDataJSON,
		AuthenticatorData: authenticatorData,
		Sysvar:            sysvar,
		VerifyIxIndex:     0,
	}
}

// checkPolicyIx builds the discriminator-tagged check_policy instruction
// defaultpolicy.Program expects: accounts = [device(signer), smart_wallet].
func checkPolicyIx(device, wallet [32]byte) ([]byte, []runtime.AccountMeta) {
	data := append([]byte(nil), policy.CheckPolicyDiscriminator[:]...)
	accounts := []runtime.AccountMeta{
		{Pubkey: device, IsSigner: true},
		{Pubkey: wallet, IsWritable: true},
	}
	return data, accounts
}

// initPolicyIx builds init_policy's instruction: accounts = [payer,
// smart_wallet, wallet_device(signer)].
func initPolicyIx(payer, wallet, device [32]byte) ([]byte, []runtime.AccountMeta) {
	data := append([]byte(nil), policy.InitPolicyDiscriminator[:]...)
	accounts := []runtime.AccountMeta{
		{Pubkey: payer, IsSigner: true, IsWritable: true},
		{Pubkey: wallet, IsWritable: true},
		{Pubkey: device, IsSigner: true},
	}
	return data, accounts
}

// destroyIx builds destroy's instruction: accounts = [device, smart_wallet].
func destroyIx(device, wallet [32]byte) ([]byte, []runtime.AccountMeta) {
	data := append([]byte(nil), policy.DestroyDiscriminator[:]...)
	accounts := []runtime.AccountMeta{
		{Pubkey: device},
		{Pubkey: wallet, IsWritable: true},
	}
	return data, accounts
}

func hashIx(programID [32]byte, accounts []runtime.AccountMeta, data []byte) (accountsHash, dataHash [32]byte) {
	return binding.InstructionHashes(runtime.Instruction{ProgramID: programID, Accounts: accounts, Data: data})
}

// nativeTransferData builds the system program's native-transfer instruction
// data: discriminator(4) ‖ amount(8, little-endian), per spec.md §4.7 step 3.
func nativeTransferData(amount uint64) []byte {
	out := make([]byte, 12)
	copy(out[:4], runtime.NativeTransferDiscriminator[:])
	for i := 0; i < 8; i++ {
		out[4+i] = byte(amount)
		amount >>= 8
	}
	return out
}

// createWallet onboards a fresh wallet with one device, returning the
// derived wallet/device addresses ready for use in further actions.
func (h *harness) createWallet(walletID uint64, priv *ecdsa.PrivateKey) (wallet, device [32]byte) {
	h.t.Helper()
	pub := pubKeyOf(h.t, priv)
	walletAddr := crypto.DeriveWalletAddress(walletID)
	deviceAddr := crypto.DeriveDeviceAddress(walletAddr, pub.Bytes())
	wallet = walletAddr.Array()
	device = deviceAddr.Array()

	payer := [32]byte{0x77}
	data, accounts := initPolicyIx(payer, wallet, device)
	_, _, err := h.eng.CreateSmartWallet(engine.CreateSmartWalletParams{
		Payer:              payer,
		PasskeyPubkey:      pub,
		CredentialID:       []byte("credential-id"),
		WalletID:           walletID,
		InitPolicyData:     data,
		InitPolicyAccounts: accounts,
		PayForUser:         true,
	})
	require.NoError(h.t, err)
	return wallet, device
}

// fund credits the wallet's balance directly (standing in for the host
// runtime's value transfer into the account, out of this engine's scope).
func (h *harness) fund(wallet [32]byte, amount uint64) {
	h.t.Helper()
	sw, ok, err := h.store.GetSmartWallet(wallet)
	require.NoError(h.t, err)
	require.True(h.t, ok)
	sw.Balance += amount
	require.NoError(h.t, h.store.PutSmartWallet(sw))
}

func (h *harness) balance(wallet [32]byte) uint64 {
	h.t.Helper()
	sw, _, err := h.store.GetSmartWallet(wallet)
	require.NoError(h.t, err)
	return sw.Balance
}

func (h *harness) nonce(wallet [32]byte) uint64 {
	h.t.Helper()
	data, ok, err := h.store.GetSmartWalletData(wallet)
	require.NoError(h.t, err)
	require.True(h.t, ok)
	return data.LastNonce
}

// registerPolicy registers and wires up a fresh defaultpolicy.Program double
// under programID, for tests exercising update_policy across non-default
// policy programs (spec.md §8 invariant 5 / scenario S5).
func (h *harness) registerPolicy(programID [32]byte) *defaultpolicy.Program {
	h.t.Helper()
	require.NoError(h.t, h.eng.RegisterPolicyProgram(h.authority, programID))
	prog := defaultpolicy.New(programID)
	h.registry.Register(programID, prog)
	return prog
}
