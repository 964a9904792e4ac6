package runtime_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"lazorkit/core/errors"
	"lazorkit/runtime"
)

type recordingInvoker struct {
	called bool
	err    error
}

func (r *recordingInvoker) Invoke(ix runtime.Instruction, seeds [][]byte) error {
	r.called = true
	return r.err
}

func TestRegistryInvokeRejectsReentrancy(t *testing.T) {
	self := [32]byte{1}
	reg := runtime.NewRegistry()
	inv := &recordingInvoker{}
	reg.Register(self, inv)

	err := reg.Invoke(self, runtime.Instruction{ProgramID: self}, nil)
	require.ErrorIs(t, err, errors.ErrReentrancyDetected)
	require.False(t, inv.called, "a reentrant target must never be invoked")
}

func TestRegistryInvokeRejectsUnregistered(t *testing.T) {
	reg := runtime.NewRegistry()
	err := reg.Invoke([32]byte{1}, runtime.Instruction{ProgramID: [32]byte{2}}, nil)
	require.ErrorIs(t, err, errors.ErrPolicyProgramNotRegistered)
}

func TestRegistryInvokeDelegates(t *testing.T) {
	reg := runtime.NewRegistry()
	target := [32]byte{9}
	inv := &recordingInvoker{}
	reg.Register(target, inv)

	err := reg.Invoke([32]byte{1}, runtime.Instruction{ProgramID: target}, nil)
	require.NoError(t, err)
	require.True(t, inv.called)
}

func TestRequireExecutableAndNotSelf(t *testing.T) {
	self := [32]byte{1}
	require.ErrorIs(t, runtime.RequireExecutableAndNotSelf(self, self, true), errors.ErrReentrancyDetected)
	require.ErrorIs(t, runtime.RequireExecutableAndNotSelf(self, [32]byte{2}, false), errors.ErrProgramNotExecutable)
	require.NoError(t, runtime.RequireExecutableAndNotSelf(self, [32]byte{2}, true))
}
