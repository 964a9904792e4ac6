package runtime

import "lazorkit/core/errors"

// Invoker dispatches one CPI to its target program. Concrete programs
// (policy programs, the system program) implement this; the engine never
// talks to them directly, only through a Registry.
type Invoker interface {
	Invoke(ix Instruction, signerSeeds [][]byte) error
}

// Registry maps program ids to their Invoker, the runtime's analogue of the
// host's executable-account lookup.
type Registry struct {
	programs map[[32]byte]Invoker
}

// NewRegistry returns an empty program registry.
func NewRegistry() *Registry {
	return &Registry{programs: make(map[[32]byte]Invoker)}
}

// Register binds programID to inv, overwriting any previous binding.
func (r *Registry) Register(programID [32]byte, inv Invoker) {
	r.programs[programID] = inv
}

// Lookup returns the Invoker bound to programID, or false if none is
// registered (spec.md: invoking an unregistered program is always rejected).
func (r *Registry) Lookup(programID [32]byte) (Invoker, bool) {
	inv, ok := r.programs[programID]
	return inv, ok
}

// Invoke performs the CPI, applying the reentrancy guard (spec.md §6: a
// policy program must never be able to invoke this program itself) and the
// unregistered-program rejection before delegating to the target Invoker.
func (r *Registry) Invoke(self [32]byte, ix Instruction, signerSeeds [][]byte) error {
	if ix.ProgramID == self {
		return errors.ErrReentrancyDetected
	}
	inv, ok := r.Lookup(ix.ProgramID)
	if !ok {
		return errors.ErrPolicyProgramNotRegistered
	}
	return inv.Invoke(ix, signerSeeds)
}

// RequireExecutableAndNotSelf is a standalone form of the self-invocation
// guard plus an executable check, usable without a Registry. The engine's
// handlers do not call it: their CPIs go through Registry.Invoke, which
// applies the self check itself. Grounded on the host's own security.rs-style check that a CPI target is
// both executable and distinct from the invoking program.
func RequireExecutableAndNotSelf(self, target [32]byte, executable bool) error {
	if target == self {
		return errors.ErrReentrancyDetected
	}
	if !executable {
		return errors.ErrProgramNotExecutable
	}
	return nil
}
