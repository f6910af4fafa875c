// Copyright 2024 The symbex Authors
// This file is part of the symbex library.

package solver

import (
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"
)

func TestFingerprintStableAndDistinct(t *testing.T) {
	a := NewVar("x", 256)
	b := NewVar("x", 256)
	require.Equal(t, a.Fingerprint(), b.Fingerprint(), "same name/width must fingerprint identically")

	c := NewVar("y", 256)
	require.NotEqual(t, a.Fingerprint(), c.Fingerprint())

	sum1 := Add(a, NewConst(uint256.NewInt(1), 256))
	sum2 := Add(b, NewConst(uint256.NewInt(1), 256))
	require.Equal(t, sum1.Fingerprint(), sum2.Fingerprint())

	sum3 := Add(NewConst(uint256.NewInt(1), 256), a)
	require.NotEqual(t, sum1.Fingerprint(), sum3.Fingerprint(), "operand order matters")
}

func TestIsConst(t *testing.T) {
	require.True(t, NewConst(uint256.NewInt(5), 256).IsConst())
	require.False(t, NewVar("x", 256).IsConst())
	require.False(t, Add(NewVar("x", 256), NewConst(uint256.NewInt(1), 256)).IsConst())
}
