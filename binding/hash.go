// Package binding computes the commitment hashes a signed challenge binds to:
// a digest of the account metadata a CPI will touch and a digest of its
// instruction data (spec.md §4.4). The engine recomputes these at dispatch
// time and rejects the action if they disagree with the values embedded in
// the authenticator-signed challenge, which is what turns a generic passkey
// signature into an authorization for one specific on-chain effect.
package binding

import (
	"crypto/sha256"
	"encoding/binary"

	"lazorkit/runtime"
)

// AccountsHash returns SHA-256(program_id ‖ for each account: pubkey ‖
// is_writable ‖ is_signer), in account order (spec.md §4.4).
func AccountsHash(programID [32]byte, accounts []runtime.AccountMeta) [32]byte {
	h := sha256.New()
	h.Write(programID[:])
	for _, a := range accounts {
		h.Write(a.Pubkey[:])
		h.Write(boolByte(a.IsWritable))
		h.Write(boolByte(a.IsSigner))
	}
	var out [32]byte
	h.Sum(out[:0])
	return out
}

// DataHash returns SHA-256(instruction_bytes) (spec.md §4.4).
func DataHash(data []byte) [32]byte {
	return sha256.Sum256(data)
}

// InstructionHashes is a convenience wrapper computing both commitment hashes
// for a single instruction in one call.
func InstructionHashes(ix runtime.Instruction) (accountsHash, dataHash [32]byte) {
	return AccountsHash(ix.ProgramID, ix.Accounts), DataHash(ix.Data)
}

func boolByte(b bool) []byte {
	if b {
		return []byte{1}
	}
	return []byte{0}
}

// Discriminator returns the 8-byte Anchor-style instruction discriminator
// SHA-256("global:<name>")[:8] (spec.md §4.9), used by policy programs to tag
// their entrypoints.
func Discriminator(name string) [8]byte {
	sum := sha256.Sum256([]byte("global:" + name))
	var out [8]byte
	copy(out[:], sum[:8])
	return out
}

// LenPrefixedAppend appends a uint32-length-prefixed byte slice, the shared
// framing primitive for variable-length fields in instruction data (spec.md
// §4.9's discriminator-prefixed instruction encodings).
func LenPrefixedAppend(dst []byte, b []byte) []byte {
	var lenBuf [4]byte
	binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(b)))
	dst = append(dst, lenBuf[:]...)
	return append(dst, b...)
}
