// Package runtime is the minimal in-process double for the account-based
// execution environment spec.md §1 and §6 describe as an external
// collaborator: typed account sets, cross-program invocation, an instruction
// sysvar carrying a secp256r1 precompile record, and the system program's
// native value transfer. None of this package's concerns are specified by
// spec.md itself (they are "out of scope" host-runtime plumbing); it exists
// so the engine in `engine` can be exercised and tested end to end.
package runtime

// AccountMeta describes one account in a CPI's account set, exactly the
// triple spec.md §4.4 hashes: pubkey, is_writable, is_signer.
type AccountMeta struct {
	Pubkey     [32]byte
	IsWritable bool
	IsSigner   bool
}

// Instruction is a fully-specified cross-program invocation: a target
// program, its account set, and its opaque instruction data.
type Instruction struct {
	ProgramID [32]byte
	Accounts  []AccountMeta
	Data      []byte
}

// SystemProgramID is the well-known address of the native value-transfer
// program, analogous to a runtime's system program.
var SystemProgramID = [32]byte{0xFF}

// NativeTransferDiscriminator is the 4-byte tag identifying a native lamport
// transfer instruction within the system program (spec.md §4.7 step 3).
var NativeTransferDiscriminator = [4]byte{'x', 'f', 'e', 'r'}
