// Copyright 2024 The symbex Authors
// This file is part of the symbex library.

package vm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/symbex-labs/symbex/bytebuf"
	"github.com/symbex-labs/symbex/common"
	"github.com/symbex-labs/symbex/environment"
	"github.com/symbex-labs/symbex/evmimage"
	"github.com/symbex-labs/symbex/solver"
	"github.com/symbex-labs/symbex/storage"
	"github.com/symbex-labs/symbex/word"
)

func newTestPath(t *testing.T, code []byte, calldata *bytebuf.Buffer) (*Path, *Interpreter) {
	t.Helper()
	ctx, err := solver.NewContext(solver.DefaultConfig)
	require.NoError(t, err)
	t.Cleanup(ctx.Close)

	img := evmimage.New(code)
	addr := common.HexToAddress("0xaa")
	origin := common.HexToAddress("0xbb")
	if calldata == nil {
		calldata = bytebuf.New(nil)
	}
	f := NewFrame(img, addr, origin, word.Zero, calldata, false, 0)

	p := &Path{
		ID:     1,
		Frames: []*Frame{f},
		Store:  storage.NewStore(),
		Env:    environment.New(origin),
		Cheat:  environment.NewCheatState(),
		Solver: ctx.NewSolver(),
	}

	images := map[common.Address]*evmimage.Image{addr: img}
	var pending []*Path
	ip := New(context.Background(), DefaultLimits, images, func(child *Path) {
		pending = append(pending, child)
	})
	return p, ip
}

func runToHalt(t *testing.T, ip *Interpreter, p *Path) *Halt {
	t.Helper()
	for i := 0; i < 10_000; i++ {
		res, err := ip.Step(p)
		require.NoError(t, err)
		if res.Kind == StepHalt {
			return res.Halt
		}
		if res.Kind == StepBranch {
			t.Fatalf("unexpected branch in a program with no symbolic input")
		}
	}
	t.Fatal("program did not halt within step budget")
	return nil
}

// PUSH1 3 PUSH1 4 ADD PUSH1 0 MSTORE PUSH1 32 PUSH1 0 RETURN
func TestConcreteAdditionReturnsSum(t *testing.T) {
	code := []byte{
		0x60, 0x03, // PUSH1 3
		0x60, 0x04, // PUSH1 4
		0x01,       // ADD
		0x60, 0x00, // PUSH1 0
		0x52,       // MSTORE
		0x60, 0x20, // PUSH1 32
		0x60, 0x00, // PUSH1 0
		0xf3, // RETURN
	}
	p, ip := newTestPath(t, code, nil)
	h := runToHalt(t, ip, p)
	require.Equal(t, HaltReturned, h.Kind)
	require.Equal(t, uint64(7), word.FromBytes(h.Data).Uint256().Uint64())
}

// PUSH1 0 PUSH1 0 REVERT with no data reverts with Raw reason.
func TestRevertNoDataIsRawReason(t *testing.T) {
	code := []byte{0x60, 0x00, 0x60, 0x00, 0xfd}
	p, ip := newTestPath(t, code, nil)
	h := runToHalt(t, ip, p)
	require.Equal(t, HaltReverted, h.Kind)
	require.Equal(t, RevertRaw, h.Reason)
}

func TestSstoreSloadRoundTrip(t *testing.T) {
	code := []byte{
		0x60, 0x2a, // PUSH1 42
		0x60, 0x01, // PUSH1 1 (slot)
		0x55,       // SSTORE
		0x60, 0x01, // PUSH1 1
		0x54,       // SLOAD
		0x60, 0x00, // PUSH1 0
		0x52, // MSTORE
		0x60, 0x20,
		0x60, 0x00,
		0xf3,
	}
	p, ip := newTestPath(t, code, nil)
	h := runToHalt(t, ip, p)
	require.Equal(t, HaltReturned, h.Kind)
	require.Equal(t, uint64(42), word.FromBytes(h.Data).Uint256().Uint64())
}

func TestSstoreUnderStaticCallReverts(t *testing.T) {
	code := []byte{0x60, 0x01, 0x60, 0x01, 0x55}
	p, ip := newTestPath(t, code, nil)
	p.Frames[0].Static = true
	h := runToHalt(t, ip, p)
	require.Equal(t, HaltReverted, h.Kind)
}

// A symbolic calldata word feeding ISZERO/JUMPI forks the path: the
// interpreter must report StepBranch rather than silently picking a side.
func TestJumpiOnSymbolicConditionReportsBranch(t *testing.T) {
	code := []byte{
		0x60, 0x00, // PUSH1 0
		0x35,       // CALLDATALOAD -> symbolic word
		0x60, 0x07, // PUSH1 7 (dest, JUMPDEST below)
		0x57, // JUMPI
		0x00, // STOP (false branch falls through here)
		0x5b, // JUMPDEST @ pc=7
		0x00, // STOP
	}
	calldata := bytebuf.NewSymbolicLength("arg", 32)
	p, ip := newTestPath(t, code, calldata)

	var res StepResult
	var err error
	for i := 0; i < 10; i++ {
		res, err = ip.Step(p)
		require.NoError(t, err)
		if res.Kind == StepBranch {
			break
		}
	}
	require.Equal(t, StepBranch, res.Kind)
	require.Equal(t, uint64(7), res.Branch.TruePC)
}

func TestPanicSelectorClassifiesArithmeticOverflow(t *testing.T) {
	var data [36]byte
	copy(data[:4], []byte{0x4e, 0x48, 0x7b, 0x71})
	data[35] = 0x11
	h := classifyRevert(data[:])
	require.Equal(t, RevertSolidityPanic, h.Reason)
	require.Equal(t, PanicArithmeticOverflow, h.Panic)
	require.Equal(t, HaltAssertionFailed, h.Kind)
}

func TestErrorStringSelectorIsNotAssertionFailure(t *testing.T) {
	var data [4]byte
	copy(data[:], []byte{0x08, 0xc3, 0x79, 0xa0})
	h := classifyRevert(data[:])
	require.Equal(t, RevertRequireString, h.Reason)
	require.Equal(t, HaltReverted, h.Kind)
}

func TestStackCloneIsIndependent(t *testing.T) {
	s := newStack()
	s.push(word.FromUint64(1))
	c := s.clone()
	c.push(word.FromUint64(2))
	require.Equal(t, 1, s.len())
	require.Equal(t, 2, c.len())
}
