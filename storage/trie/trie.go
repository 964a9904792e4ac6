// Package trie provides the key-value abstraction core/state persists
// through. The teacher's original wrapper built a full go-ethereum
// Merkle-Patricia trie on top of storage.Database, keyed to a TrieDB()
// accessor storage.Database never actually exposed. This engine has no use
// for Merkle state-root proofs (spec.md §1 puts the host runtime's account
// model and rent discipline out of scope), so Trie is simplified to a direct
// KV wrapper: every key/value pair is stored as-is, and Hash reports a
// running digest of the keyspace for anyone who wants a cheap
// change-detection fingerprint, not a cryptographic state-root commitment.
package trie

import (
	"crypto/sha256"
	"sort"
	"sync"

	"lazorkit/storage"
)

// Trie is a thin, deterministic wrapper over storage.Database. Safe for
// concurrent use by multiple readers; writers should be serialised by the
// caller (the engine already runs single-threaded per wallet, spec.md §5).
type Trie struct {
	mu    sync.RWMutex
	store storage.Database
	keys  map[string]struct{}
}

// NewTrie opens a Trie over store. The root parameter is accepted for
// interface compatibility with the teacher's signature but unused: there is
// no Merkle root to resume from, only the store's own keyspace.
func NewTrie(store storage.Database, _ []byte) (*Trie, error) {
	return &Trie{store: store, keys: make(map[string]struct{})}, nil
}

// Get retrieves a value for key, or (nil, nil) if absent or deleted. A
// zero-length value is this wrapper's tombstone (storage.Database has no
// delete primitive of its own), so it reads back as "not found" too.
func (t *Trie) Get(key []byte) ([]byte, error) {
	v, err := t.store.Get(key)
	if err != nil || len(v) == 0 {
		return nil, nil
	}
	return v, nil
}

// Update inserts or overwrites key's value.
func (t *Trie) Update(key, value []byte) error {
	if err := t.store.Put(key, value); err != nil {
		return err
	}
	t.mu.Lock()
	t.keys[string(key)] = struct{}{}
	t.mu.Unlock()
	return nil
}

// Delete tombstones key by overwriting it with a zero-length value.
func (t *Trie) Delete(key []byte) error {
	if err := t.store.Put(key, []byte{}); err != nil {
		return err
	}
	t.mu.Lock()
	delete(t.keys, string(key))
	t.mu.Unlock()
	return nil
}

// Hash returns SHA-256 over the sorted set of keys this Trie instance has
// written since it was opened: a cheap, deterministic fingerprint of the
// mutations this process has made, not a recomputed Merkle root.
func (t *Trie) Hash() [32]byte {
	t.mu.RLock()
	defer t.mu.RUnlock()
	sorted := make([]string, 0, len(t.keys))
	for k := range t.keys {
		sorted = append(sorted, k)
	}
	sort.Strings(sorted)
	h := sha256.New()
	for _, k := range sorted {
		h.Write([]byte(k))
	}
	var out [32]byte
	h.Sum(out[:0])
	return out
}

// Store exposes the backing storage in case callers need to access it
// directly.
func (t *Trie) Store() storage.Database {
	return t.store
}
