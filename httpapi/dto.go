package httpapi

import (
	"encoding/hex"
	"fmt"

	"lazorkit/engine"
	"lazorkit/passkey"
	"lazorkit/runtime"
)

func errNotFound(what string) error {
	return fmt.Errorf("%s not found", what)
}

func passkeyFromBytes(raw []byte) (passkey.PubKey, error) {
	return passkey.ParsePubKey(raw)
}

// buildAuthEnvelope converts the wire DTO into the engine's AuthEnvelope.
func buildAuthEnvelope(d authEnvelopeDTO) (engine.AuthEnvelope, error) {
	wallet, device, pub, clientDataJSON, authenticatorData, sysvar, err := d.toAuthEnvelope()
	if err != nil {
		return engine.AuthEnvelope{}, err
	}
	return engine.AuthEnvelope{
		Wallet:            wallet,
		Device:            device,
		ClaimedPasskey:    pub,
		ClientDataJSON:    clientDataJSON,
		AuthenticatorData: authenticatorData,
		Sysvar:            sysvar,
		VerifyIxIndex:     d.VerifyIxIndex,
	}, nil
}

// decodeCPIFields decodes the shared policy/CPI account-and-data fields used
// by execute_transaction and commit_cpi (spec.md §4.7, §4.10 share the same
// policy-then-CPI binding shape).
func decodeCPIFields(policyAccountsDTO, cpiAccountsDTO []accountMetaDTO, policyDataHex, cpiDataHex, cpiProgramHex, transferToHex string) (
	policyAccounts, cpiAccounts []runtime.AccountMeta, policyData, cpiData []byte, cpiProgram, transferTo [32]byte, err error) {

	if policyAccounts, err = toAccountMetas(policyAccountsDTO); err != nil {
		return
	}
	if cpiAccounts, err = toAccountMetas(cpiAccountsDTO); err != nil {
		return
	}
	if policyData, err = decodeHex(policyDataHex); err != nil {
		return
	}
	if cpiData, err = decodeHex(cpiDataHex); err != nil {
		return
	}
	if cpiProgram, err = decode32(cpiProgramHex); err != nil {
		return
	}
	if transferToHex != "" {
		if transferTo, err = decode32(transferToHex); err != nil {
			return
		}
	}
	return
}

func engineExecuteParams(authEnv engine.AuthEnvelope, policyData []byte, policyAccounts []runtime.AccountMeta, cpiProgram [32]byte, cpiData []byte, cpiAccounts []runtime.AccountMeta, transferTo [32]byte) engine.ExecuteTransactionParams {
	return engine.ExecuteTransactionParams{
		Auth:           authEnv,
		PolicyData:     policyData,
		PolicyAccounts: policyAccounts,
		CPIProgram:     cpiProgram,
		CPIData:        cpiData,
		CPIAccounts:    cpiAccounts,
		TransferTo:     transferTo,
	}
}

// DTOs mirror the engine's wire types with hex-encoded byte fields, since
// spec.md §6 leaves the client SDK's own serialisation external — this is
// just the harness's JSON rendering of it.

type accountMetaDTO struct {
	Pubkey     string `json:"pubkey"`
	IsWritable bool   `json:"is_writable"`
	IsSigner   bool   `json:"is_signer"`
}

func (d accountMetaDTO) toAccountMeta() (runtime.AccountMeta, error) {
	pk, err := decode32(d.Pubkey)
	if err != nil {
		return runtime.AccountMeta{}, fmt.Errorf("pubkey: %w", err)
	}
	return runtime.AccountMeta{Pubkey: pk, IsWritable: d.IsWritable, IsSigner: d.IsSigner}, nil
}

func toAccountMetas(dtos []accountMetaDTO) ([]runtime.AccountMeta, error) {
	out := make([]runtime.AccountMeta, len(dtos))
	for i, d := range dtos {
		m, err := d.toAccountMeta()
		if err != nil {
			return nil, fmt.Errorf("account[%d]: %w", i, err)
		}
		out[i] = m
	}
	return out, nil
}

type instructionDTO struct {
	ProgramID string           `json:"program_id"`
	Accounts  []accountMetaDTO `json:"accounts"`
	Data      string           `json:"data"`
}

func (d instructionDTO) toInstruction() (runtime.Instruction, error) {
	pid, err := decode32(d.ProgramID)
	if err != nil {
		return runtime.Instruction{}, fmt.Errorf("program_id: %w", err)
	}
	accounts, err := toAccountMetas(d.Accounts)
	if err != nil {
		return runtime.Instruction{}, err
	}
	data, err := decodeHex(d.Data)
	if err != nil {
		return runtime.Instruction{}, fmt.Errorf("data: %w", err)
	}
	return runtime.Instruction{ProgramID: pid, Accounts: accounts, Data: data}, nil
}

type authEnvelopeDTO struct {
	Wallet            string           `json:"wallet"`
	Device            string           `json:"device"`
	ClaimedPasskey    string           `json:"claimed_passkey"`
	ClientDataJSON    string           `json:"client_data_json"`
	AuthenticatorData string           `json:"authenticator_data"`
	Instructions      []instructionDTO `json:"instructions"`
	VerifyIxIndex     uint16           `json:"verify_ix_index"`
}

func (d authEnvelopeDTO) toAuthEnvelope() (wallet, device [32]byte, pub passkey.PubKey, clientDataJSON, authenticatorData []byte, sysvar *runtime.InstructionsSysvar, err error) {
	if wallet, err = decode32(d.Wallet); err != nil {
		return
	}
	if device, err = decode32(d.Device); err != nil {
		return
	}
	pubRaw, err := decodeHex(d.ClaimedPasskey)
	if err != nil {
		return
	}
	pub, err = passkey.ParsePubKey(pubRaw)
	if err != nil {
		return
	}
	if clientDataJSON, err = decodeHex(d.ClientDataJSON); err != nil {
		return
	}
	if authenticatorData, err = decodeHex(d.AuthenticatorData); err != nil {
		return
	}
	ixs := make([]runtime.Instruction, len(d.Instructions))
	for i, ixDTO := range d.Instructions {
		ixs[i], err = ixDTO.toInstruction()
		if err != nil {
			return
		}
	}
	sysvar = &runtime.InstructionsSysvar{Instructions: ixs}
	return
}

func decode32(s string) ([32]byte, error) {
	var out [32]byte
	raw, err := decodeHex(s)
	if err != nil {
		return out, err
	}
	if len(raw) != 32 {
		return out, fmt.Errorf("expected 32 bytes, got %d", len(raw))
	}
	copy(out[:], raw)
	return out, nil
}

func decodeHex(s string) ([]byte, error) {
	if s == "" {
		return nil, nil
	}
	return hex.DecodeString(s)
}
