package httpapi

import (
	"encoding/hex"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"lazorkit/crypto"
	"lazorkit/engine"
)

type handlers struct {
	engine *engine.Engine
	logger *slog.Logger
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func decodeBody(r *http.Request, v interface{}) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}

// getWallet renders the SmartWallet/SmartWalletData pair for an address, the
// one read-only lookup this façade exposes (spec.md §6 leaves read APIs
// external; this is a harness convenience, not a core operation).
func (h *handlers) getWallet(w http.ResponseWriter, r *http.Request) {
	addr, err := crypto.DecodeAddress(chi.URLParam(r, "address"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	wAddr := addr.Array()
	wallet, ok, err := h.engine.Store.GetSmartWallet(wAddr)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, errNotFound("wallet"))
		return
	}
	data, _, err := h.engine.Store.GetSmartWalletData(wAddr)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"address":        hex.EncodeToString(wallet.Address[:]),
		"balance":        wallet.Balance,
		"wallet_id":      data.WalletID,
		"policy_program": hex.EncodeToString(data.PolicyProgram[:]),
		"last_nonce":     data.LastNonce,
	})
}

type initializeRequest struct {
	Authority            string `json:"authority"`
	DefaultPolicyProgram string `json:"default_policy_program"`
	CreateWalletFee      uint64 `json:"create_wallet_fee"`
	ExecuteFee           uint64 `json:"execute_fee"`
}

func (h *handlers) postInitialize(w http.ResponseWriter, r *http.Request) {
	var req initializeRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	authority, err := decode32(req.Authority)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	defaultPolicy, err := decode32(req.DefaultPolicyProgram)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := h.engine.Initialize(authority, defaultPolicy, req.CreateWalletFee, req.ExecuteFee); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "initialized"})
}

type registerPolicyRequest struct {
	Caller  string `json:"caller"`
	Program string `json:"program"`
}

func (h *handlers) postRegisterPolicy(w http.ResponseWriter, r *http.Request) {
	var req registerPolicyRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	caller, err := decode32(req.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	program, err := decode32(req.Program)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := h.engine.RegisterPolicyProgram(caller, program); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "registered"})
}

type setPausedRequest struct {
	Caller string `json:"caller"`
	Paused bool   `json:"paused"`
}

func (h *handlers) postSetPaused(w http.ResponseWriter, r *http.Request) {
	var req setPausedRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	caller, err := decode32(req.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := h.engine.UpdateConfig(caller, engine.ConfigParamPaused, 0, [32]byte{}, req.Paused); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type createWalletRequest struct {
	Payer              string           `json:"payer"`
	PasskeyPubkey      string           `json:"passkey_pubkey"`
	CredentialID       string           `json:"credential_id"`
	WalletID           uint64           `json:"wallet_id"`
	InitPolicyData     string           `json:"init_policy_data"`
	InitPolicyAccounts []accountMetaDTO `json:"init_policy_accounts"`
	PayForUser         bool             `json:"pay_for_user"`
}

func (h *handlers) postCreateWallet(w http.ResponseWriter, r *http.Request) {
	var req createWalletRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	payer, err := decode32(req.Payer)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	pubRaw, err := decodeHex(req.PasskeyPubkey)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	pub, err := passkeyFromBytes(pubRaw)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	credentialID, err := decodeHex(req.CredentialID)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	policyData, err := decodeHex(req.InitPolicyData)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	policyAccounts, err := toAccountMetas(req.InitPolicyAccounts)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	walletAddr, deviceAddr, err := h.engine.CreateSmartWallet(engine.CreateSmartWalletParams{
		Payer:              payer,
		PasskeyPubkey:      pub,
		CredentialID:       credentialID,
		WalletID:           req.WalletID,
		InitPolicyData:     policyData,
		InitPolicyAccounts: policyAccounts,
		PayForUser:         req.PayForUser,
	})
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"wallet": hex.EncodeToString(walletAddr[:]),
		"device": hex.EncodeToString(deviceAddr[:]),
	})
}

type executeTransactionRequest struct {
	Auth           authEnvelopeDTO  `json:"auth"`
	PolicyData     string           `json:"policy_data"`
	PolicyAccounts []accountMetaDTO `json:"policy_accounts"`
	CPIProgram     string           `json:"cpi_program"`
	CPIData        string           `json:"cpi_data"`
	CPIAccounts    []accountMetaDTO `json:"cpi_accounts"`
	TransferTo     string           `json:"transfer_to"`
}

func (h *handlers) postExecuteTransaction(w http.ResponseWriter, r *http.Request) {
	var req executeTransactionRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	authEnv, err := buildAuthEnvelope(req.Auth)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	policyAccounts, cpiAccounts, policyData, cpiData, cpiProgram, transferTo, err := decodeCPIFields(
		req.PolicyAccounts, req.CPIAccounts, req.PolicyData, req.CPIData, req.CPIProgram, req.TransferTo)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	err = h.engine.ExecuteTransaction(engineExecuteParams(authEnv, policyData, policyAccounts, cpiProgram, cpiData, cpiAccounts, transferTo))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "executed"})
}

type invokePolicyRequest struct {
	Auth                authEnvelopeDTO  `json:"auth"`
	PolicyData          string           `json:"policy_data"`
	PolicyAccounts      []accountMetaDTO `json:"policy_accounts"`
	NewDeviceAccount    string           `json:"new_device_account"`
	NewDeviceCredential string           `json:"new_device_credential"`
}

func (h *handlers) postInvokePolicy(w http.ResponseWriter, r *http.Request) {
	var req invokePolicyRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	authEnv, err := buildAuthEnvelope(req.Auth)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	policyAccounts, err := toAccountMetas(req.PolicyAccounts)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	policyData, err := decodeHex(req.PolicyData)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	var newDeviceAccount [32]byte
	if req.NewDeviceAccount != "" {
		if newDeviceAccount, err = decode32(req.NewDeviceAccount); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
	}
	newDeviceCredential, err := decodeHex(req.NewDeviceCredential)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	err = h.engine.InvokePolicy(engine.InvokePolicyParams{
		Auth:                authEnv,
		PolicyData:          policyData,
		PolicyAccounts:      policyAccounts,
		NewDeviceAccount:    newDeviceAccount,
		NewDeviceCredential: newDeviceCredential,
	})
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type updatePolicyRequest struct {
	Auth              authEnvelopeDTO  `json:"auth"`
	NewPolicyProgram  string           `json:"new_policy_program"`
	OldPolicyData     string           `json:"old_policy_data"`
	OldPolicyAccounts []accountMetaDTO `json:"old_policy_accounts"`
	NewPolicyData     string           `json:"new_policy_data"`
	NewPolicyAccounts []accountMetaDTO `json:"new_policy_accounts"`
}

func (h *handlers) postUpdatePolicy(w http.ResponseWriter, r *http.Request) {
	var req updatePolicyRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	authEnv, err := buildAuthEnvelope(req.Auth)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	newProgram, err := decode32(req.NewPolicyProgram)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	oldAccounts, err := toAccountMetas(req.OldPolicyAccounts)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	newAccounts, err := toAccountMetas(req.NewPolicyAccounts)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	oldData, err := decodeHex(req.OldPolicyData)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	newData, err := decodeHex(req.NewPolicyData)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	err = h.engine.UpdatePolicy(engine.UpdatePolicyParams{
		Auth:              authEnv,
		NewPolicyProgram:  newProgram,
		OldPolicyData:     oldData,
		OldPolicyAccounts: oldAccounts,
		NewPolicyData:     newData,
		NewPolicyAccounts: newAccounts,
	})
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type commitRequest struct {
	Auth           authEnvelopeDTO  `json:"auth"`
	PolicyData     string           `json:"policy_data"`
	PolicyAccounts []accountMetaDTO `json:"policy_accounts"`
	CPIProgram     string           `json:"cpi_program"`
	CPIData        string           `json:"cpi_data"`
	CPIAccounts    []accountMetaDTO `json:"cpi_accounts"`
	ExpiresAt      int64            `json:"expires_at"`
	Payer          string           `json:"payer"`
}

func (h *handlers) postCommit(w http.ResponseWriter, r *http.Request) {
	var req commitRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	authEnv, err := buildAuthEnvelope(req.Auth)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	policyAccounts, cpiAccounts, policyData, cpiData, cpiProgram, _, err := decodeCPIFields(
		req.PolicyAccounts, req.CPIAccounts, req.PolicyData, req.CPIData, req.CPIProgram, "")
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	payer, err := decode32(req.Payer)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	sessionAddr, err := h.engine.Commit(engine.CommitParams{
		Auth:           authEnv,
		PolicyData:     policyData,
		PolicyAccounts: policyAccounts,
		CPIProgram:     cpiProgram,
		CPIData:        cpiData,
		CPIAccounts:    cpiAccounts,
		ExpiresAt:      req.ExpiresAt,
		Payer:          payer,
	})
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"session": hex.EncodeToString(sessionAddr[:])})
}

type executeCommittedRequest struct {
	Session     string           `json:"session"`
	CPIProgram  string           `json:"cpi_program"`
	CPIData     string           `json:"cpi_data"`
	CPIAccounts []accountMetaDTO `json:"cpi_accounts"`
	TransferTo  string           `json:"transfer_to"`
}

func (h *handlers) postExecuteCommitted(w http.ResponseWriter, r *http.Request) {
	var req executeCommittedRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	session, err := decode32(req.Session)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	cpiProgram, err := decode32(req.CPIProgram)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	cpiData, err := decodeHex(req.CPIData)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	cpiAccounts, err := toAccountMetas(req.CPIAccounts)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	var transferTo [32]byte
	if req.TransferTo != "" {
		if transferTo, err = decode32(req.TransferTo); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
	}

	if err := h.engine.ExecuteCommitted(engine.ExecuteCommittedParams{
		Session:     session,
		CPIProgram:  cpiProgram,
		CPIData:     cpiData,
		CPIAccounts: cpiAccounts,
		TransferTo:  transferTo,
	}); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
