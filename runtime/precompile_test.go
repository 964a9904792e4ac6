package runtime_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"lazorkit/core/errors"
	"lazorkit/runtime"
)

func sampleRecordBytes() (pubkey [33]byte, sig [64]byte, message []byte) {
	pubkey[0] = 0x02
	for i := 1; i < 33; i++ {
		pubkey[i] = byte(i)
	}
	for i := range sig {
		sig[i] = byte(i + 1)
	}
	message = []byte("authenticatorData||clientDataHash")
	return
}

func TestEncodeParseSecp256r1RoundTrip(t *testing.T) {
	pubkey, sig, message := sampleRecordBytes()
	data := runtime.EncodeSecp256r1Record(pubkey, sig, message)

	ix := runtime.Instruction{ProgramID: runtime.Secp256r1ProgramID, Data: data}
	rec, err := runtime.ParseSecp256r1Record(ix)
	require.NoError(t, err)
	require.Equal(t, pubkey, rec.Pubkey)
	require.Equal(t, sig, rec.Signature)
	require.Equal(t, message, rec.Message)
}

func TestParseRejectsWrongProgramID(t *testing.T) {
	pubkey, sig, message := sampleRecordBytes()
	data := runtime.EncodeSecp256r1Record(pubkey, sig, message)
	ix := runtime.Instruction{ProgramID: [32]byte{9, 9, 9}, Data: data}
	_, err := runtime.ParseSecp256r1Record(ix)
	require.ErrorIs(t, err, errors.ErrInvalidInstructionData)
}

func TestParseRejectsNonEmptyAccounts(t *testing.T) {
	pubkey, sig, message := sampleRecordBytes()
	data := runtime.EncodeSecp256r1Record(pubkey, sig, message)
	ix := runtime.Instruction{
		ProgramID: runtime.Secp256r1ProgramID,
		Accounts:  []runtime.AccountMeta{{Pubkey: [32]byte{1}}},
		Data:      data,
	}
	_, err := runtime.ParseSecp256r1Record(ix)
	require.ErrorIs(t, err, errors.ErrInvalidAccountData)
}

func TestParseRejectsTruncatedHeader(t *testing.T) {
	ix := runtime.Instruction{ProgramID: runtime.Secp256r1ProgramID, Data: make([]byte, 10)}
	_, err := runtime.ParseSecp256r1Record(ix)
	require.ErrorIs(t, err, errors.ErrInvalidInstructionData)
}

func TestParseRejectsWrongDataLength(t *testing.T) {
	pubkey, sig, message := sampleRecordBytes()
	data := runtime.EncodeSecp256r1Record(pubkey, sig, message)
	// Truncate the message without updating the declared length field.
	truncated := data[:len(data)-1]
	ix := runtime.Instruction{ProgramID: runtime.Secp256r1ProgramID, Data: truncated}
	_, err := runtime.ParseSecp256r1Record(ix)
	require.ErrorIs(t, err, errors.ErrInvalidInstructionData)
}

func TestParseRejectsBadInstructionIndex(t *testing.T) {
	pubkey, sig, message := sampleRecordBytes()
	data := runtime.EncodeSecp256r1Record(pubkey, sig, message)
	// Point the signature at a different instruction (not 0xFFFF self-ref).
	data[4] = 0x00
	data[5] = 0x00
	ix := runtime.Instruction{ProgramID: runtime.Secp256r1ProgramID, Data: data}
	_, err := runtime.ParseSecp256r1Record(ix)
	require.ErrorIs(t, err, errors.ErrInvalidInstructionData)
}

func TestParseRejectsBadOffset(t *testing.T) {
	pubkey, sig, message := sampleRecordBytes()
	data := runtime.EncodeSecp256r1Record(pubkey, sig, message)
	// Corrupt the signature offset field to point somewhere else.
	data[2] = 0xAB
	data[3] = 0xCD
	ix := runtime.Instruction{ProgramID: runtime.Secp256r1ProgramID, Data: data}
	_, err := runtime.ParseSecp256r1Record(ix)
	require.ErrorIs(t, err, errors.ErrInvalidInstructionData)
}

func TestParseRejectsWrongNumSignatures(t *testing.T) {
	pubkey, sig, message := sampleRecordBytes()
	data := runtime.EncodeSecp256r1Record(pubkey, sig, message)
	data[0] = 2
	ix := runtime.Instruction{ProgramID: runtime.Secp256r1ProgramID, Data: data}
	_, err := runtime.ParseSecp256r1Record(ix)
	require.ErrorIs(t, err, errors.ErrInvalidInstructionData)
}

func TestInstructionsSysvarAt(t *testing.T) {
	sysvar := &runtime.InstructionsSysvar{Instructions: []runtime.Instruction{
		{ProgramID: [32]byte{1}},
		{ProgramID: [32]byte{2}},
	}}
	ix, err := sysvar.At(1)
	require.NoError(t, err)
	require.Equal(t, [32]byte{2}, ix.ProgramID)

	_, err = sysvar.At(5)
	require.ErrorIs(t, err, errors.ErrAccountSliceOutOfBounds)
}
