// Copyright 2024 The symbex Authors
// This file is part of the symbex library.

package environment

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/symbex-labs/symbex/common"
	"github.com/symbex-labs/symbex/solver"
	"github.com/symbex-labs/symbex/storage"
	"github.com/symbex-labs/symbex/word"
)

func newTestSolver(t *testing.T) *solver.Solver {
	t.Helper()
	ctx, err := solver.NewContext(solver.DefaultConfig)
	require.NoError(t, err)
	t.Cleanup(ctx.Close)
	return ctx.NewSolver()
}

func TestDealOverwritesBalance(t *testing.T) {
	env := New(common.HexToAddress("0x01"))
	cheat := NewCheatState()
	store := storage.NewStore()
	slv := newTestSolver(t)

	addr := common.HexToAddress("0x02")
	var addrWord [32]byte
	copy(addrWord[12:], addr.Bytes())

	_, err := Dispatch(env, cheat, store, slv, Call{
		Selector: selDeal,
		Args:     []word.Word{word.FromBytes(addrWord[:]), word.FromUint64(500)},
	})
	require.NoError(t, err)
	require.Equal(t, uint64(500), env.BalanceOf(addr).Uint256().Uint64())
}

func TestPrankIsOneShot(t *testing.T) {
	env := New(common.HexToAddress("0x01"))
	cheat := NewCheatState()
	addr := common.HexToAddress("0x03")
	var addrWord [32]byte
	copy(addrWord[12:], addr.Bytes())

	_, err := Dispatch(env, cheat, storage.NewStore(), newTestSolver(t), Call{
		Selector: selPrank,
		Args:     []word.Word{word.FromBytes(addrWord[:])},
	})
	require.NoError(t, err)

	fallback := common.HexToAddress("0x99")
	require.Equal(t, addr, cheat.Prank.NextSender(fallback))
	require.Equal(t, fallback, cheat.Prank.NextSender(fallback), "one-shot prank consumed after first use")
}

func TestExpectRevertMatchers(t *testing.T) {
	cheat := NewCheatState()
	cheat.ArmExpectRevert(RevertMatcher{Any: true})
	m := cheat.ConsumeExpectRevert()
	require.True(t, m.Matches([]byte("anything")))
	require.Nil(t, cheat.ExpectRevert, "consuming clears the armed expectation")

	sel := [4]byte{0xde, 0xad, 0xbe, 0xef}
	cheat.ArmExpectRevert(RevertMatcher{Selector: &sel})
	m2 := cheat.ConsumeExpectRevert()
	require.True(t, m2.Matches([]byte{0xde, 0xad, 0xbe, 0xef, 0x01}))
	require.False(t, m2.Matches([]byte{0x00, 0x00, 0x00, 0x00}))
}

func TestAssumePrunesInfeasiblePath(t *testing.T) {
	env := New(common.HexToAddress("0x01"))
	cheat := NewCheatState()
	slv := newTestSolver(t)

	zero := word.FromUint64(0)
	outcome, err := Dispatch(env, cheat, storage.NewStore(), slv, Call{
		Selector: selAssume,
		Args:     []word.Word{zero},
	})
	require.NoError(t, err)
	require.True(t, outcome.Prune, "assume(false) must prune the path")
}

func TestAddrDerivesDeterministicAddress(t *testing.T) {
	env := New(common.HexToAddress("0x01"))
	cheat := NewCheatState()
	var key [32]byte
	key[31] = 1

	out1, err := Dispatch(env, cheat, storage.NewStore(), newTestSolver(t), Call{Selector: selAddr, Args: []word.Word{word.FromBytes(key[:])}})
	require.NoError(t, err)
	out2, err := Dispatch(env, cheat, storage.NewStore(), newTestSolver(t), Call{Selector: selAddr, Args: []word.Word{word.FromBytes(key[:])}})
	require.NoError(t, err)
	require.Equal(t, out1.ReturnData, out2.ReturnData)
}

func TestEnvCloneIsolatesBalances(t *testing.T) {
	env := New(common.HexToAddress("0x01"))
	addr := common.HexToAddress("0x04")
	env.SetBalance(addr, word.FromUint64(1))

	clone := env.Clone()
	clone.SetBalance(addr, word.FromUint64(2))

	require.Equal(t, uint64(1), env.BalanceOf(addr).Uint256().Uint64())
	require.Equal(t, uint64(2), clone.BalanceOf(addr).Uint256().Uint64())
}
