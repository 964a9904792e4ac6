// Package engine implements the action dispatcher and its handlers. Each
// action is its own exported Engine method (ExecuteTransaction, InvokePolicy,
// UpdatePolicy, Commit/ExecuteCommitted, plus wallet creation and the admin
// actions); there is no single entry point that dispatches on an action tag.
// The handlers share the post-condition helpers in engine.go (spec.md §4.6). It is grounded on the teacher's
// escrow Engine{emitter}/manager.go load-mutate-store shape, generalized from
// escrow trades to wallet authorizations.
package engine

import (
	"lazorkit/core/types"
)

// Store is the persistence seam the dispatcher depends on. It is satisfied by
// core/state's Manager; tests use the same Manager over an in-memory
// storage.MemDB.
// Every method that mutates state is expected to be called only after every
// fallible precondition has already been checked, matching spec.md §7's "no
// partial mutation" rule.
type Store interface {
	GetConfig() (types.Config, error)
	PutConfig(types.Config) error

	GetRegistry() (types.Registry, error)
	PutRegistry(types.Registry) error

	GetSmartWallet(addr [32]byte) (types.SmartWallet, bool, error)
	PutSmartWallet(types.SmartWallet) error

	GetSmartWalletData(addr [32]byte) (types.SmartWalletData, bool, error)
	PutSmartWalletData(walletAddr [32]byte, data types.SmartWalletData) error

	GetWalletDevice(addr [32]byte) (types.WalletDevice, bool, error)
	PutWalletDevice(addr [32]byte, device types.WalletDevice) error

	GetSession(addr [32]byte) (types.TransactionSession, bool, error)
	PutSession(addr [32]byte, session types.TransactionSession) error
	DeleteSession(addr [32]byte) error
}
