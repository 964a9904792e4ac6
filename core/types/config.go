package types

import "lazorkit/core/errors"

// MaxRegistryEntries bounds the Policy Program Registry (spec.md §3).
const MaxRegistryEntries = 32

// Config is the process-wide singleton admin surface (spec.md §3).
type Config struct {
	Authority            [32]byte
	CreateWalletFee      uint64
	ExecuteFee           uint64
	DefaultPolicyProgram [32]byte
	Paused               bool
}

// Registry is the process-wide append-only set of policy programs allowed to
// mediate wallets (spec.md §3).
type Registry struct {
	Programs [][32]byte
}

// Contains reports whether programID is a registered policy program.
func (r *Registry) Contains(programID [32]byte) bool {
	if r == nil {
		return false
	}
	for _, p := range r.Programs {
		if p == programID {
			return true
		}
	}
	return false
}

// Append idempotently adds programID to the registry, enforcing the capacity
// bound. Returns true if the registry changed.
func (r *Registry) Append(programID [32]byte) (bool, error) {
	if r.Contains(programID) {
		return false, nil
	}
	if len(r.Programs) >= MaxRegistryEntries {
		return false, errors.ErrPolicyRegistryFull
	}
	r.Programs = append(r.Programs, programID)
	return true, nil
}
