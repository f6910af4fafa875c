// Copyright 2024 The symbex Authors
// This file is part of the symbex library.

package abi

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseTypeScalars(t *testing.T) {
	cases := map[string]Type{
		"address": Address(),
		"bool":    Bool(),
		"uint256": Uint(256),
		"uint8":   Uint(8),
		"uint":    Uint(256),
		"int128":  Int(128),
		"bytes32": BytesN(32),
		"bytes":   Bytes(),
		"string":  String(),
	}
	for s, want := range cases {
		got, err := ParseType(s)
		require.NoError(t, err, s)
		require.Equal(t, want, got, s)
	}
}

func TestParseTypeArray(t *testing.T) {
	got, err := ParseType("uint256[]")
	require.NoError(t, err)
	require.Equal(t, KindArray, got.Kind)
	require.Equal(t, "uint256[]", got.Canonical())
}

func TestParseTypeRejectsTuple(t *testing.T) {
	_, err := ParseType("tuple")
	require.Error(t, err)
}

func TestParseTypeRejectsGarbage(t *testing.T) {
	_, err := ParseType("uint7")
	require.Error(t, err)
	_, err = ParseType("frobnicate")
	require.Error(t, err)
}
