// Copyright 2024 The symbex Authors
// This file is part of the symbex library.

package harness

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAddressForNameIsDeterministicAndDistinct(t *testing.T) {
	a1 := AddressForName("Counter")
	a2 := AddressForName("Counter")
	a3 := AddressForName("Vault")
	require.Equal(t, a1, a2)
	require.NotEqual(t, a1, a3)
}

func TestNewFillsDefaultSenderCandidate(t *testing.T) {
	d := New(Config{})
	require.Len(t, d.cfg.SenderCandidates, 1)
	require.Equal(t, defaultDeployer, d.cfg.SenderCandidates[0])
}

func TestDefaultConfigPrefixesCoverSpecVocabulary(t *testing.T) {
	names := map[string]bool{}
	for _, p := range DefaultConfig.PropertyPrefixes {
 names[p] = true
	}
	require.True(t, names["test_"])
	require.True(t, names["check_"])
	require.True(t, names["invariant_"])
	require.True(t, names["fuzz_"])
}
