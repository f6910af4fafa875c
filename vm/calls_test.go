// Copyright 2024 The symbex Authors
// This file is part of the symbex library.

package vm

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/symbex-labs/symbex/common"
	"github.com/symbex-labs/symbex/crypto"
	"github.com/symbex-labs/symbex/word"
)

// A CALL to the cheatcode address with deal(address,uint256) must apply
// synchronously and push success=1 without opening a new frame.
func TestCallToCheatcodeAddressDealsBalance(t *testing.T) {
	beneficiary := common.HexToAddress("0xcc")
	var argBuf [68]byte
	sel := dealSelectorForTest()
	copy(argBuf[:4], sel[:])
	copy(argBuf[4+12:4+32], beneficiary.Bytes())
	amount := word.FromUint64(900).Bytes32()
	copy(argBuf[36:68], amount[:])

	code := []byte{0x00} // STOP; the call is driven directly via handleCall below
	p, ip := newTestPath(t, code, nil)

	spec := &CallSpec{
		Kind:     CallRegular,
		Target:   cheatcodeAddress,
		ArgsOff:  word.Zero,
		ArgsSize: len(argBuf),
		RetOff:   word.Zero,
		RetSize:  0,
	}
	p.Frames[0].Memory.WriteBytes(word.Zero, bytesToWordsForTest(argBuf[:]))

	err := ip.handleCall(p, spec)
	require.NoError(t, err)
	require.Equal(t, 1, len(p.Frames), "cheatcode calls never open a new frame")
	require.Equal(t, uint64(900), p.Env.BalanceOf(beneficiary).Uint256().Uint64())
	require.Equal(t, uint64(1), p.Frames[0].Stack.peek(0).Uint256().Uint64())
}

func TestCallToUnmodeledAddressSucceedsWithZeroedReturn(t *testing.T) {
	code := []byte{0x00}
	p, ip := newTestPath(t, code, nil)

	spec := &CallSpec{
		Kind:     CallRegular,
		Target:   common.HexToAddress("0xdeadbeef"),
		ArgsOff:  word.Zero,
		ArgsSize: 0,
		RetOff:   word.Zero,
		RetSize:  32,
	}
	err := ip.handleCall(p, spec)
	require.NoError(t, err)
	require.Equal(t, 1, len(p.Frames))
	require.Equal(t, uint64(1), p.Frames[0].Stack.peek(0).Uint256().Uint64())
}

func TestCreateDeploysRuntimeCodeFromReturnData(t *testing.T) {
	// init code: PUSH1 1 PUSH1 0 MSTORE8 PUSH1 1 PUSH1 0 RETURN
	// (deploys a single-byte contract: 0x01, an invalid-as-code marker
	// byte used only to confirm the returned data became the image)
	initCode := []byte{
		0x60, 0x01,
		0x60, 0x00,
		0x53,
		0x60, 0x01,
		0x60, 0x00,
		0xf3,
	}
	p, ip := newTestPath(t, []byte{0xf0, 0x00}, nil) // CREATE; STOP
	caller := p.Frames[0]
	caller.Memory.WriteBytes(word.Zero, bytesToWordsForTest(initCode))

	spec := &CallSpec{Kind: CallCreate, Value: word.Zero, ArgsOff: word.Zero, ArgsSize: len(initCode)}
	require.NoError(t, ip.handleCreate(p, spec))
	require.Equal(t, 2, len(p.Frames), "CREATE opens a constructor frame")

	h := runToHalt(t, ip, p)
	require.Equal(t, HaltReturned, h.Kind)
	require.Equal(t, 1, len(p.Frames), "constructor frame pops back to the deployer on halt")

	deployed := p.Frames[0].Stack.peek(0)
	require.True(t, deployed.IsConcrete())
	addr := wordToAddr(deployed)
	img, ok := ip.images[addr]
	require.True(t, ok)
	require.Equal(t, []byte{0x01}, img.Code)
}

func bytesToWordsForTest(b []byte) []word.Word { return bytesToWords(b) }

func dealSelectorForTest() [4]byte {
	h := crypto.Keccak256([]byte("deal(address,uint256)"))
	var s [4]byte
	copy(s[:], h[:4])
	return s
}
