// Copyright 2024 The symbex Authors
// This file is part of the symbex library.

package bytebuf

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/symbex-labs/symbex/word"
)

func TestDenseReadWriteByte(t *testing.T) {
	b := New(nil)
	b.WriteByte(word.FromUint64(0), word.FromUint64(0xAB))
	require.False(t, b.IsPromoted())
	require.Equal(t, uint64(0xAB), b.ReadByte(word.FromUint64(0)).Uint256().Uint64())
	require.True(t, b.ReadByte(word.FromUint64(5)).Uint256().IsZero())
}

func TestWriteWordRoundTrip(t *testing.T) {
	b := New(nil)
	w := word.FromUint64(0x1122334455)
	b.WriteWord(word.FromUint64(0), w)
	got := b.ReadWord(word.FromUint64(0))
	require.True(t, got.IsConcrete())
	require.Equal(t, w.Uint256().Hex(), got.Uint256().Hex())
}

func TestSymbolicOffsetPromotes(t *testing.T) {
	b := New([]byte{1, 2, 3})
	require.False(t, b.IsPromoted())
	b.WriteByte(word.NewSymbolic("off"), word.FromUint64(9))
	require.True(t, b.IsPromoted())

	got := b.ReadByte(word.FromUint64(0))
	require.False(t, got.IsConcrete(), "reads after promotion are symbolic selects")
}

func TestCopyPreservesSymbolicBytes(t *testing.T) {
	src := New(nil)
	src.WriteByte(word.FromUint64(0), word.NewSymbolic("b0"))
	dst := New(nil)
	dst.Copy(word.FromUint64(0), src, word.FromUint64(0), 1)

	got := dst.ReadByte(word.FromUint64(0))
	require.False(t, got.IsConcrete())
}

func TestSymbolicLengthBufferTailIsZero(t *testing.T) {
	b := NewSymbolicLength("calldata", 4)
	require.Equal(t, 4, b.LenBound())
	require.False(t, b.Len().IsConcrete())
	v := b.ReadByte(word.FromUint64(0))
	require.False(t, v.IsConcrete(), "read under a symbolic length is itself symbolic (ite on in-bounds)")
}

func TestGrowDenseExtendsLength(t *testing.T) {
	b := New(nil)
	b.WriteByte(word.FromUint64(31), word.FromUint64(1))
	require.Equal(t, uint64(32), b.Len().Uint256().Uint64())
}
