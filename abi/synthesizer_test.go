// Copyright 2024 The symbex Authors
// This file is part of the symbex library.

package abi

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSynthesizeFixedArgsLayout(t *testing.T) {
	m := Method{Name: "check_transfer", Inputs: []Argument{
		{Name: "to", Type: Address()},
		{Name: "amount", Type: Uint(256)},
	}}
	s := NewCalldataSynthesizer(DefaultConfig)
	res, err := s.Synthesize(m)
	require.NoError(t, err)
	require.Len(t, res.ArgWords, 2)
	require.False(t, res.ArgWords[0].IsConcrete())
	// address argument gets a range assumption, uint256 does not.
	require.Len(t, res.Assumptions, 1)
}

func TestSynthesizeDynamicArgAppendsTail(t *testing.T) {
	m := Method{Name: "check_name", Inputs: []Argument{
		{Name: "label", Type: String()},
	}}
	s := NewCalldataSynthesizer(Config{DynamicLenBound: 8})
	res, err := s.Synthesize(m)
	require.NoError(t, err)
	require.Len(t, res.ArgWords, 1)
	require.True(t, res.ArgWords[0].IsConcrete(), "length word is fixed at the bound")
	require.Equal(t, uint64(8), res.ArgWords[0].Uint256().Uint64())
}

func TestSynthesizeArrayArgFixesLengthAndSynthesizesElements(t *testing.T) {
	m := Method{Name: "check_many", Inputs: []Argument{
		{Name: "xs", Type: Array(Uint(256))},
	}}
	s := NewCalldataSynthesizer(Config{DynamicLenBound: 3})
	res, err := s.Synthesize(m)
	require.NoError(t, err)
	require.Len(t, res.ArgWords, 1)
	require.True(t, res.ArgWords[0].IsConcrete(), "array length is fixed at the bound")
	require.Equal(t, uint64(3), res.ArgWords[0].Uint256().Uint64())
	// no per-element range assumption for uint256 elements.
	require.Empty(t, res.Assumptions)
}

func TestSynthesizeArrayElementsGetRangeAssumptions(t *testing.T) {
	m := Method{Name: "check_many", Inputs: []Argument{
		{Name: "xs", Type: Array(Uint(8))},
	}}
	s := NewCalldataSynthesizer(Config{DynamicLenBound: 2})
	res, err := s.Synthesize(m)
	require.NoError(t, err)
	require.Len(t, res.Assumptions, 2) // one uint8 range assumption per element
}

func TestSynthesizeRejectsArrayOfDynamicElementType(t *testing.T) {
	m := Method{Name: "check_many", Inputs: []Argument{
		{Name: "xs", Type: Array(String())},
	}}
	s := NewCalldataSynthesizer(DefaultConfig)
	_, err := s.Synthesize(m)
	require.Error(t, err)
}
