// Copyright 2024 The symbex Authors
// This file is part of the symbex library.

package main

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/symbex-labs/symbex/common"
)

func TestSoleArrayLengthBoundAgreement(t *testing.T) {
	require.Equal(t, 0, soleArrayLengthBound(nil))
	require.Equal(t, 3, soleArrayLengthBound(map[string]int{"a": 3, "b": 3}))
	require.Equal(t, 0, soleArrayLengthBound(map[string]int{"a": 3, "b": 4}))
}

func TestParseArrayLengths(t *testing.T) {
	got := parseArrayLengths([]string{"names=5", "bad", "values=2"})
	require.Equal(t, map[string]int{"names": 5, "values": 2}, got)
}

func TestHarnessConfigDefaultsToSingleDeployerSender(t *testing.T) {
	cfg := defaultRunConfig
	alice := common.BytesToAddress([]byte{0xaa})
	bob := common.BytesToAddress([]byte{0xbb})
	hcfg := cfg.harnessConfig(alice, []common.Address{bob})
	require.Equal(t, []common.Address{alice}, hcfg.SenderCandidates)
}

func TestHarnessConfigSymbolicSenderAddsCandidates(t *testing.T) {
	cfg := defaultRunConfig
	cfg.SymbolicMsgSender = true
	alice := common.BytesToAddress([]byte{0xaa})
	bob := common.BytesToAddress([]byte{0xbb})
	hcfg := cfg.harnessConfig(alice, []common.Address{bob})
	require.Equal(t, []common.Address{alice, bob}, hcfg.SenderCandidates)
}
