// Copyright 2024 The symbex Authors
// This file is part of the symbex library.

package harness

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/symbex-labs/symbex/environment"
	"github.com/symbex-labs/symbex/vm"
)

func pathWithHalt(h *vm.Halt, cheat *environment.CheatState) *vm.Path {
	if cheat == nil {
		cheat = environment.NewCheatState()
	}
	return &vm.Path{Halt: h, Cheat: cheat}
}

func TestClassifyVerified(t *testing.T) {
	p := pathWithHalt(&vm.Halt{Kind: vm.HaltReturned}, nil)
	require.Equal(t, clsVerified, classify(p))
}

func TestClassifyAssertionFailed(t *testing.T) {
	p := pathWithHalt(&vm.Halt{Kind: vm.HaltAssertionFailed}, nil)
	require.Equal(t, clsAssertionFailed, classify(p))
}

func TestClassifyUnexpectedRevertByDefault(t *testing.T) {
	p := pathWithHalt(&vm.Halt{Kind: vm.HaltReverted}, nil)
	require.Equal(t, clsUnexpectedRevert, classify(p))
}

func TestClassifyExpectRevertUnfiredOverridesEverything(t *testing.T) {
	cheat := environment.NewCheatState()
	cheat.ArmExpectRevert(environment.RevertMatcher{Any: true})

	// Even a Returned halt is a violation if the expectation it armed
	// never fired.
	p := pathWithHalt(&vm.Halt{Kind: vm.HaltReturned}, cheat)
	require.Equal(t, clsExpectRevertUnfired, classify(p))
}

func TestClassifyConsumedExpectRevertIsNotAViolation(t *testing.T) {
	cheat := environment.NewCheatState()
	cheat.ArmExpectRevert(environment.RevertMatcher{Any: true})
	cheat.ConsumeExpectRevert() // simulates the matched sub-call path in vm.popFrameWithResult

	p := pathWithHalt(&vm.Halt{Kind: vm.HaltReturned}, cheat)
	require.Equal(t, clsVerified, classify(p))
}

func TestClassifyPruned(t *testing.T) {
	p := pathWithHalt(&vm.Halt{Kind: vm.HaltPruned}, nil)
	require.Equal(t, clsPruned, classify(p))
}

func TestClassifyUnknown(t *testing.T) {
	p := pathWithHalt(&vm.Halt{Kind: vm.HaltUnknown, Unknown: vm.UnknownDepthBound}, nil)
	require.Equal(t, clsUnknown, classify(p))
}

func TestStatusString(t *testing.T) {
	require.Equal(t, "PASS", Pass.String())
	require.Equal(t, "FAIL", Fail.String())
	require.Equal(t, "UNKNOWN", Unknown.String())
}

func TestWitnessFormatTrace(t *testing.T) {
	w := &Witness{Trace: []vm.TraceEntry{
		{FrameDepth: 0, PC: 0, Op: "PUSH1"},
		{FrameDepth: 1, PC: 10, Op: "SSTORE"},
	}}
	out := w.FormatTrace()
	require.Contains(t, out, "PUSH1")
	require.Contains(t, out, " [pc=10] SSTORE")
}
