package engine

import (
	stderrors "errors"
	"time"

	"lazorkit/core/errors"
	"lazorkit/core/events"
	"lazorkit/core/types"
	"lazorkit/crypto"
	"lazorkit/observability"
	"lazorkit/runtime"
)

// Engine is the dispatcher: one entry point per spec.md §4.6, holding the
// store, the CPI program registry, and the event emitter. Grounded on the
// teacher's escrow Engine{emitter} shape (native/escrow/engine.go),
// generalized from trade settlement to wallet-action dispatch.
type Engine struct {
	Store    Store
	Programs *runtime.Registry
	Emitter  events.Emitter
	Self     [32]byte // this program's own id, for the reentrancy guard
	Now      func() int64
}

// New constructs an Engine. self is this program's own address, used by the
// reentrancy guard (spec.md §5, §8 invariant 8).
func New(store Store, programs *runtime.Registry, emitter events.Emitter, self [32]byte, now func() int64) *Engine {
	if emitter == nil {
		emitter = events.NoopEmitter{}
	}
	return &Engine{Store: store, Programs: programs, Emitter: emitter, Self: self, Now: now}
}

// instrument records a dispatcher action's outcome and latency. Call as
// `defer e.instrument("execute_transaction", time.Now(), &err)` so err
// reflects the handler's final named return value.
func (e *Engine) instrument(action string, start time.Time, err *error) {
	var observed error
	if err != nil {
		observed = *err
	}
	observability.Dispatcher().Observe(action, observed, time.Since(start))
}

// requireNotPaused implements the Config.paused short-circuit shared by all
// four action families (spec.md §4.6).
func (e *Engine) requireNotPaused() (types.Config, error) {
	cfg, err := e.Store.GetConfig()
	if err != nil {
		return types.Config{}, err
	}
	if cfg.Paused {
		return types.Config{}, errors.ErrProgramPaused
	}
	return cfg, nil
}

// bumpNonce advances data.LastNonce by one (checked) and persists it. Called
// last among a handler's writes per spec.md §7 ("nonce bump is last").
func (e *Engine) bumpNonce(walletAddr [32]byte, data types.SmartWalletData) error {
	next, err := types.NextNonce(data.LastNonce)
	if err != nil {
		return err
	}
	data.LastNonce = next
	return e.Store.PutSmartWalletData(walletAddr, data)
}

// deductFee subtracts amount from the wallet's balance, failing closed with
// ErrInsufficientBalanceForFee if the wallet cannot afford it (spec.md §4.6).
func (e *Engine) deductFee(wallet crypto.Address, amount uint64) error {
	if amount == 0 {
		return nil
	}
	addr := wallet.Array()
	sw, ok, err := e.Store.GetSmartWallet(addr)
	if err != nil {
		return err
	}
	if !ok || sw.Balance < amount {
		return errors.ErrInsufficientBalanceForFee
	}
	sw.Balance -= amount
	return e.Store.PutSmartWallet(sw)
}

// invokePolicyProgram CPIs into a policy program (init_policy, check_policy,
// destroy, add_device), recording Policy() metrics for the call.
func (e *Engine) invokePolicyProgram(programID [32]byte, ix runtime.Instruction, signerSeeds [][]byte) error {
	err := e.Programs.Invoke(e.Self, ix, signerSeeds)
	if stderrors.Is(err, errors.ErrReentrancyDetected) {
		observability.Policy().RecordReentrancyRejection()
	}
	observability.Policy().RecordInvocation(crypto.MustNewAddress(crypto.ProgramPrefix, programID[:]).String(), err)
	return err
}

// requirePolicyRegistered enforces that programID is both registered and,
// per the runtime.Registry, executable (spec.md §4.7 precondition).
func (e *Engine) requirePolicyRegistered(registry types.Registry, programID [32]byte) error {
	if !registry.Contains(programID) {
		return errors.ErrPolicyProgramNotRegistered
	}
	if _, ok := e.Programs.Lookup(programID); !ok {
		return errors.ErrProgramNotExecutable
	}
	return nil
}
