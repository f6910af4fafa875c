// Copyright 2024 The symbex Authors
// This file is part of the symbex library.

package abi

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSignatureAndSelector(t *testing.T) {
	m := Method{Name: "check_transfer", Inputs: []Argument{
		{Name: "to", Type: Address()},
		{Name: "amount", Type: Uint(256)},
	}}
	require.Equal(t, "check_transfer(address,uint256)", m.Signature())
	sel := m.Selector()
	require.Len(t, sel, 4)
}

func TestHasPrefix(t *testing.T) {
	m := Method{Name: "test_balance_invariant"}
	require.True(t, m.HasPrefix([]string{"test_", "check_"}))
	require.False(t, m.HasPrefix([]string{"invariant_"}))
}

func TestCanonicalArrayType(t *testing.T) {
	require.Equal(t, "address[]", Array(Address()).Canonical())
	require.Equal(t, "bytes32", BytesN(32).Canonical())
}
