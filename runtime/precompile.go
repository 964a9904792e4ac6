package runtime

import (
	"encoding/binary"

	"lazorkit/core/errors"
)

// Secp256r1ProgramID is the well-known address of the host's secp256r1
// signature-verification precompile (spec.md §4.2). The precompile's own
// P-256 validity check is out of scope (spec.md §1); this package only
// shapes and parses its instruction record so the engine can bind to it.
var Secp256r1ProgramID = [32]byte{0xFE}

const (
	precompileHeaderLen  = 16
	precompilePubkeyLen  = 33
	precompileSigLen     = 64
	precompileNumSigs    = 1
)

// Secp256r1Record is the parsed, byte-exact layout of a secp256r1 precompile
// instruction: a fixed 16-byte offset header (one signature, all offsets
// pointing within this same instruction's data) followed by the signature,
// pubkey, and signed message (spec.md §4.2).
type Secp256r1Record struct {
	Pubkey    [33]byte
	Signature [64]byte
	Message   []byte
}

// EncodeSecp256r1Record builds the precompile instruction data for one
// signature: header ‖ signature(64) ‖ pubkey(33) ‖ message.
//
// Header layout (little-endian, offsets relative to this instruction's
// data start):
//
//	byte 0:      num_signatures (always 1)
//	byte 1:      padding
//	u16 2..4:    signature_offset
//	u16 4..6:    signature_instruction_index (0xFFFF = this instruction)
//	u16 6..8:    pubkey_offset
//	u16 8..10:   pubkey_instruction_index
//	u16 10..12:  message_data_offset
//	u16 12..14:  message_data_size
//	u16 14..16:  message_instruction_index
func EncodeSecp256r1Record(pubkey [33]byte, signature [64]byte, message []byte) []byte {
	sigOffset := uint16(precompileHeaderLen)
	pubkeyOffset := uint16(precompileHeaderLen + precompileSigLen)
	msgOffset := uint16(precompileHeaderLen + precompileSigLen + precompilePubkeyLen)

	out := make([]byte, precompileHeaderLen+precompileSigLen+precompilePubkeyLen+len(message))
	out[0] = precompileNumSigs
	out[1] = 0
	binary.LittleEndian.PutUint16(out[2:4], sigOffset)
	binary.LittleEndian.PutUint16(out[4:6], 0xFFFF)
	binary.LittleEndian.PutUint16(out[6:8], pubkeyOffset)
	binary.LittleEndian.PutUint16(out[8:10], 0xFFFF)
	binary.LittleEndian.PutUint16(out[10:12], msgOffset)
	binary.LittleEndian.PutUint16(out[12:14], uint16(len(message)))
	binary.LittleEndian.PutUint16(out[14:16], 0xFFFF)
	copy(out[sigOffset:], signature[:])
	copy(out[pubkeyOffset:], pubkey[:])
	copy(out[msgOffset:], message)
	return out
}

// ParseSecp256r1Record validates and decodes a precompile instruction,
// rejecting anything that does not match spec.md §4.2's byte-exact shape:
// wrong program id, nonzero accounts, a data length other than
// 16+33+64+|message|, or an offset header declaring anything but the single
// self-referential signature this engine expects.
func ParseSecp256r1Record(ix Instruction) (*Secp256r1Record, error) {
	if ix.ProgramID != Secp256r1ProgramID {
		return nil, errors.ErrInvalidInstructionData
	}
	if len(ix.Accounts) != 0 {
		return nil, errors.ErrInvalidAccountData
	}
	data := ix.Data
	if len(data) < precompileHeaderLen {
		return nil, errors.ErrInvalidInstructionData
	}
	if data[0] != precompileNumSigs {
		return nil, errors.ErrInvalidInstructionData
	}
	sigOffset := binary.LittleEndian.Uint16(data[2:4])
	sigIxIdx := binary.LittleEndian.Uint16(data[4:6])
	pubkeyOffset := binary.LittleEndian.Uint16(data[6:8])
	pubkeyIxIdx := binary.LittleEndian.Uint16(data[8:10])
	msgOffset := binary.LittleEndian.Uint16(data[10:12])
	msgSize := binary.LittleEndian.Uint16(data[12:14])
	msgIxIdx := binary.LittleEndian.Uint16(data[14:16])

	wantLen := precompileHeaderLen + precompileSigLen + precompilePubkeyLen + int(msgSize)
	if len(data) != wantLen {
		return nil, errors.ErrInvalidInstructionData
	}
	if sigIxIdx != 0xFFFF || pubkeyIxIdx != 0xFFFF || msgIxIdx != 0xFFFF {
		return nil, errors.ErrInvalidInstructionData
	}
	if int(sigOffset) != precompileHeaderLen ||
		int(pubkeyOffset) != precompileHeaderLen+precompileSigLen ||
		int(msgOffset) != precompileHeaderLen+precompileSigLen+precompilePubkeyLen {
		return nil, errors.ErrInvalidInstructionData
	}

	rec := &Secp256r1Record{}
	copy(rec.Signature[:], data[sigOffset:sigOffset+precompileSigLen])
	copy(rec.Pubkey[:], data[pubkeyOffset:pubkeyOffset+precompilePubkeyLen])
	rec.Message = append([]byte(nil), data[msgOffset:msgOffset+uint16(msgSize)]...)
	return rec, nil
}

// InstructionsSysvar is the runtime double for the transaction's instruction
// sysvar: the ordered list of every instruction in the enclosing transaction,
// indexable by the caller-supplied verify-ix index (spec.md §4.5 step 2).
type InstructionsSysvar struct {
	Instructions []Instruction
}

// At returns the instruction at idx, or ErrAccountSliceOutOfBounds if idx is
// out of range.
func (s *InstructionsSysvar) At(idx uint16) (Instruction, error) {
	if int(idx) >= len(s.Instructions) {
		return Instruction{}, errors.ErrAccountSliceOutOfBounds
	}
	return s.Instructions[idx], nil
}
