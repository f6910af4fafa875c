// Copyright 2024 The symbex Authors
// This file is part of the symbex library.

package evmimage

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestJumpdestInsidePushDataIsInvalid(t *testing.T) {
	// PUSH2 0x5b5b JUMPDEST
	code := []byte{byte(PUSH1 + 1), 0x5b, 0x5b, byte(JUMPDEST)}
	img := New(code)
	require.False(t, img.ValidJumpdest(1), "0x5b at pc=1 is PUSH2 immediate data")
	require.False(t, img.ValidJumpdest(2), "0x5b at pc=2 is PUSH2 immediate data")
	require.True(t, img.ValidJumpdest(3))
}

func TestPushDataZeroPadsPastCodeEnd(t *testing.T) {
	code := []byte{byte(PUSH32)} // no immediate bytes at all
	img := New(code)
	data := img.PushData(0)
	require.Len(t, data, 32)
	for _, b := range data {
		require.Equal(t, byte(0), b)
	}
}

func TestOpAtPastEndIsInvalid(t *testing.T) {
	img := New([]byte{byte(STOP)})
	require.Equal(t, INVALID, img.OpAt(5))
}

func TestOpcodeStringers(t *testing.T) {
	require.Equal(t, "PUSH1", PUSH1.String())
	require.Equal(t, "DUP3", (DUP1 + 2).String())
	require.Equal(t, "SWAP2", (SWAP1 + 1).String())
	require.Equal(t, "LOG2", (LOG0 + 2).String())
}
