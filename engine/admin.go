package engine

import (
	"lazorkit/core/errors"
	"lazorkit/core/types"
)

// Initialize implements the admin `initialize` entry (spec.md §6): creates
// the Config and Registry singletons. A zero Authority is the sentinel for
// "never initialized" since Config is a singleton with no existence check of
// its own in Store; re-initializing is rejected.
func (e *Engine) Initialize(authority, defaultPolicyProgram [32]byte, createWalletFee, executeFee uint64) error {
	existing, err := e.Store.GetConfig()
	if err != nil {
		return err
	}
	if existing.Authority != ([32]byte{}) {
		return errors.ErrAccountAlreadyInitialized
	}
	cfg := types.Config{
		Authority:            authority,
		CreateWalletFee:      createWalletFee,
		ExecuteFee:           executeFee,
		DefaultPolicyProgram: defaultPolicyProgram,
	}
	if err := e.Store.PutConfig(cfg); err != nil {
		return err
	}
	reg := types.Registry{Programs: [][32]byte{defaultPolicyProgram}}
	return e.Store.PutRegistry(reg)
}

// ConfigParam tags which Config field update_config mutates (spec.md §6).
type ConfigParam byte

const (
	ConfigParamCreateWalletFee ConfigParam = iota + 1
	ConfigParamExecuteFee
	ConfigParamDefaultPolicyProgram
	ConfigParamPaused
	ConfigParamAuthority
)

// UpdateConfig implements the admin `update_config` entry: the caller must be
// the current authority; mutates exactly one field.
func (e *Engine) UpdateConfig(caller [32]byte, param ConfigParam, value uint64, programRef [32]byte, paused bool) error {
	cfg, err := e.Store.GetConfig()
	if err != nil {
		return err
	}
	if cfg.Authority != caller {
		return errors.ErrUnauthorized
	}
	switch param {
	case ConfigParamCreateWalletFee:
		cfg.CreateWalletFee = value
	case ConfigParamExecuteFee:
		cfg.ExecuteFee = value
	case ConfigParamDefaultPolicyProgram:
		cfg.DefaultPolicyProgram = programRef
	case ConfigParamPaused:
		cfg.Paused = paused
	case ConfigParamAuthority:
		cfg.Authority = programRef
	default:
		return errors.ErrInvalidParameter
	}
	return e.Store.PutConfig(cfg)
}

// RegisterPolicyProgram implements the admin `register_policy_program` entry:
// caller must be the authority; append is idempotent on duplicate (spec.md
// §3, §6).
func (e *Engine) RegisterPolicyProgram(caller [32]byte, candidate [32]byte) error {
	cfg, err := e.Store.GetConfig()
	if err != nil {
		return err
	}
	if cfg.Authority != caller {
		return errors.ErrUnauthorized
	}
	registry, err := e.Store.GetRegistry()
	if err != nil {
		return err
	}
	if _, err := registry.Append(candidate); err != nil {
		return err
	}
	return e.Store.PutRegistry(registry)
}
