// Package state persists the §3 data model (Config, Registry, SmartWallet,
// SmartWalletData, WalletDevice, TransactionSession) to a trie-backed
// key-value store, RLP-encoding every record the way the teacher's own
// Manager does for its account records. It is the concrete implementation of
// engine.Store.
package state

import (
	"github.com/ethereum/go-ethereum/rlp"

	"lazorkit/core/types"
	"lazorkit/storage/trie"
)

// Manager provides load/mutate/store access to every persisted account kind
// this engine defines. Grounded on the teacher's core/state.Manager{trie}
// shape, narrowed from a general ledger to this engine's six record kinds.
type Manager struct {
	trie *trie.Trie
}

// NewManager creates a state manager operating on the provided trie.
func NewManager(tr *trie.Trie) *Manager {
	return &Manager{trie: tr}
}

func (m *Manager) getRLP(key []byte, out interface{}) (bool, error) {
	raw, err := m.trie.Get(key)
	if err != nil {
		return false, err
	}
	if raw == nil {
		return false, nil
	}
	if err := rlp.DecodeBytes(raw, out); err != nil {
		return false, err
	}
	return true, nil
}

func (m *Manager) putRLP(key []byte, v interface{}) error {
	raw, err := rlp.EncodeToBytes(v)
	if err != nil {
		return err
	}
	return m.trie.Update(key, raw)
}

// --- Config ---

func (m *Manager) GetConfig() (types.Config, error) {
	var cfg types.Config
	if _, err := m.getRLP(configKey, &cfg); err != nil {
		return types.Config{}, err
	}
	return cfg, nil
}

func (m *Manager) PutConfig(cfg types.Config) error {
	return m.putRLP(configKey, &cfg)
}

// --- Registry ---

func (m *Manager) GetRegistry() (types.Registry, error) {
	var reg types.Registry
	if _, err := m.getRLP(registryKey, &reg); err != nil {
		return types.Registry{}, err
	}
	return reg, nil
}

func (m *Manager) PutRegistry(reg types.Registry) error {
	return m.putRLP(registryKey, &reg)
}

// --- SmartWallet ---

func smartWalletKey(addr [32]byte) []byte {
	return append(append([]byte(nil), smartWalletPrefix...), addr[:]...)
}

func (m *Manager) GetSmartWallet(addr [32]byte) (types.SmartWallet, bool, error) {
	var sw types.SmartWallet
	ok, err := m.getRLP(smartWalletKey(addr), &sw)
	return sw, ok, err
}

func (m *Manager) PutSmartWallet(sw types.SmartWallet) error {
	return m.putRLP(smartWalletKey(sw.Address), &sw)
}

// --- SmartWalletData ---

func walletDataKey(addr [32]byte) []byte {
	return append(append([]byte(nil), walletDataPrefix...), addr[:]...)
}

func (m *Manager) GetSmartWalletData(addr [32]byte) (types.SmartWalletData, bool, error) {
	var data types.SmartWalletData
	ok, err := m.getRLP(walletDataKey(addr), &data)
	return data, ok, err
}

func (m *Manager) PutSmartWalletData(walletAddr [32]byte, data types.SmartWalletData) error {
	return m.putRLP(walletDataKey(walletAddr), &data)
}

// --- WalletDevice ---

func deviceKey(addr [32]byte) []byte {
	return append(append([]byte(nil), devicePrefix...), addr[:]...)
}

func (m *Manager) GetWalletDevice(addr [32]byte) (types.WalletDevice, bool, error) {
	var dev types.WalletDevice
	ok, err := m.getRLP(deviceKey(addr), &dev)
	return dev, ok, err
}

func (m *Manager) PutWalletDevice(addr [32]byte, dev types.WalletDevice) error {
	return m.putRLP(deviceKey(addr), &dev)
}

// --- TransactionSession ---

func sessionKey(addr [32]byte) []byte {
	return append(append([]byte(nil), sessionPrefix...), addr[:]...)
}

func (m *Manager) GetSession(addr [32]byte) (types.TransactionSession, bool, error) {
	var sess types.TransactionSession
	ok, err := m.getRLP(sessionKey(addr), &sess)
	return sess, ok, err
}

func (m *Manager) PutSession(addr [32]byte, sess types.TransactionSession) error {
	return m.putRLP(sessionKey(addr), &sess)
}

// DeleteSession closes the session, tombstoning the record so a later
// GetSession reports it as not found (spec.md §4.10: a redeemed or expired
// session's rent is refunded and the account closed).
func (m *Manager) DeleteSession(addr [32]byte) error {
	return m.trie.Delete(sessionKey(addr))
}
