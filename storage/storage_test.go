// Copyright 2024 The symbex Authors
// This file is part of the symbex library.

package storage

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/symbex-labs/symbex/common"
	"github.com/symbex-labs/symbex/word"
)

var testAddr = common.HexToAddress("0x0000000000000000000000000000000000000001")

func TestColdDefaultsToZero(t *testing.T) {
	m := New(testAddr)
	require.True(t, m.Load(word.FromUint64(5)).Uint256().IsZero())
}

func TestSeedColdThenOverlayShadows(t *testing.T) {
	m := New(testAddr)
	m.SeedCold(word.FromUint64(1), word.FromUint64(100))
	require.Equal(t, uint64(100), m.Load(word.FromUint64(1)).Uint256().Uint64())

	m.Store(word.FromUint64(1), word.FromUint64(200))
	require.Equal(t, uint64(200), m.Load(word.FromUint64(1)).Uint256().Uint64())
}

func TestOverlayReadAfterWriteOrdering(t *testing.T) {
	m := New(testAddr)
	m.Store(word.FromUint64(1), word.FromUint64(1))
	m.Store(word.FromUint64(1), word.FromUint64(2))
	m.Store(word.FromUint64(1), word.FromUint64(3))
	require.Equal(t, uint64(3), m.Load(word.FromUint64(1)).Uint256().Uint64())
}

func TestCloneIsCopyOnWrite(t *testing.T) {
	m := New(testAddr)
	m.SeedCold(word.FromUint64(1), word.FromUint64(1))
	m.Store(word.FromUint64(1), word.FromUint64(2))

	child := m.Clone()
	child.Store(word.FromUint64(1), word.FromUint64(3))

	require.Equal(t, uint64(2), m.Load(word.FromUint64(1)).Uint256().Uint64(), "parent unaffected by child write")
	require.Equal(t, uint64(3), child.Load(word.FromUint64(1)).Uint256().Uint64())
}

func TestMarkSymbolicFallsBackToArraySelect(t *testing.T) {
	m := New(testAddr)
	m.SeedCold(word.FromUint64(1), word.FromUint64(42))
	m.MarkSymbolic()

	got := m.Load(word.FromUint64(2))
	require.False(t, got.IsConcrete(), "uncached slot in symbolic mode resolves through the array select")
}

func TestStoreClonePerAccountIsolation(t *testing.T) {
	s := NewStore()
	s.Account(testAddr).Store(word.FromUint64(0), word.FromUint64(7))

	clone := s.Clone()
	clone.Account(testAddr).Store(word.FromUint64(0), word.FromUint64(9))

	require.Equal(t, uint64(7), s.Account(testAddr).Load(word.FromUint64(0)).Uint256().Uint64())
	require.Equal(t, uint64(9), clone.Account(testAddr).Load(word.FromUint64(0)).Uint256().Uint64())
}
