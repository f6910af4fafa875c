// Copyright 2024 The symbex Authors
// This file is part of the symbex library.

package word

import (
	"context"
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	"github.com/symbex-labs/symbex/solver"
)

func TestConcreteArithmeticFastPath(t *testing.T) {
	a := FromUint64(10)
	b := FromUint64(3)

	require.True(t, Add(a, b).IsConcrete())
	require.Equal(t, uint64(13), Add(a, b).Uint256().Uint64())
	require.Equal(t, uint64(7), Sub(a, b).Uint256().Uint64())
	require.Equal(t, uint64(30), Mul(a, b).Uint256().Uint64())
	require.Equal(t, uint64(3), Div(a, b).Uint256().Uint64())
	require.Equal(t, uint64(1), Mod(a, b).Uint256().Uint64())
}

func TestDivModByZeroReturnsZero(t *testing.T) {
	a := FromUint64(10)
	z := Zero
	require.True(t, Div(a, z).IsConcrete())
	require.True(t, Div(a, z).Uint256().IsZero())
	require.True(t, Mod(a, z).Uint256().IsZero())
	require.True(t, SDiv(a, z).Uint256().IsZero())
	require.True(t, SMod(a, z).Uint256().IsZero())
}

func TestSymbolicFallsBackToTerm(t *testing.T) {
	x := NewSymbolic("x")
	require.False(t, x.IsConcrete())

	sum := Add(x, FromUint64(1))
	require.False(t, sum.IsConcrete())
	require.Equal(t, solver.Add(x.Term(), solver.NewConst(uint256.NewInt(1), 256)).Fingerprint(), sum.Term().Fingerprint())
}

func TestIsZeroPredicate(t *testing.T) {
	require.Equal(t, solver.NewConst(uint256.NewInt(1), 1).Fingerprint(), IsZeroPredicate(Zero).Fingerprint())
	require.Equal(t, solver.NewConst(uint256.NewInt(0), 1).Fingerprint(), IsZeroPredicate(FromUint64(5)).Fingerprint())

	x := NewSymbolic("x")
	require.Equal(t, solver.IsZero(x.Term()).Fingerprint(), IsZeroPredicate(x).Fingerprint())
}

func TestByteAndSignExtend(t *testing.T) {
	x := FromBig(uint256.NewInt(0x1234))
	require.Equal(t, uint64(0x34), Byte(FromUint64(31), x).Uint256().Uint64())
	require.True(t, Byte(FromUint64(0), x).Uint256().IsZero())

	neg := SignExtend(FromUint64(0), FromUint64(0xff))
	require.Equal(t, "0xffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffff", neg.Uint256().Hex())
}

func TestExpPanicsOnSymbolicExponent(t *testing.T) {
	defer func() {
		require.NotNil(t, recover())
	}()
	Exp(FromUint64(2), NewSymbolic("e"))
}

func TestConcretizePassthroughForConcreteWord(t *testing.T) {
	values, exhausted, err := Concretize(context.Background(), nil, FromUint64(7), 4)
	require.NoError(t, err)
	require.True(t, exhausted)
	require.Len(t, values, 1)
	require.Equal(t, uint64(7), values[0].Uint256().Uint64())
}
