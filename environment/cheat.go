// Copyright 2024 The symbex Authors
// This file is part of the symbex library.
//
// The symbex library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The symbex library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.

package environment

import (
	"context"
	"fmt"

	"github.com/symbex-labs/symbex/common"
	"github.com/symbex-labs/symbex/crypto"
	"github.com/symbex-labs/symbex/solver"
	"github.com/symbex-labs/symbex/storage"
	"github.com/symbex-labs/symbex/word"
)

// CheatcodeAddress is the well-known magic address the interpreter
// intercepts ahead of ordinary CALL dispatch, the same
// address forge-std's own Vm interface is deployed at.
var CheatcodeAddress = [20]byte{
	0x71, 0x09, 0x70, 0x9E, 0xCf, 0xa9, 0x1a, 0x80, 0x62, 0x6f,
	0xF3, 0x98, 0x9D, 0x68, 0xf6, 0x7F, 0x5b, 0x1D, 0xD1, 0x2D,
}

// selector computes the 4-byte function selector the exact way the
// ABI's method dispatch does: the first four bytes of
// keccak256(canonical-signature).
func selector(sig string) [4]byte {
	h := crypto.Keccak256([]byte(sig))
	var s [4]byte
	copy(s[:], h[:4])
	return s
}

var (
	selAssume         = selector("assume(bool)")
	selPrank          = selector("prank(address)")
	selStartPrank     = selector("startPrank(address)")
	selStopPrank      = selector("stopPrank()")
	selDeal           = selector("deal(address,uint256)")
	selRoll           = selector("roll(uint256)")
	selWarp           = selector("warp(uint256)")
	selExpectRevert0  = selector("expectRevert()")
	selExpectRevertB  = selector("expectRevert(bytes)")
	selExpectRevertS4 = selector("expectRevert(bytes4)")
	selStore          = selector("store(address,bytes32,bytes32)")
	selLoad           = selector("load(address,bytes32)")
	selAddr           = selector("addr(uint256)")
)

// Name returns the human-readable cheatcode name for a recognized
// selector, empty string otherwise — used for trace/log output.
func Name(sel [4]byte) string {
	switch sel {
	case selAssume:
		return "assume"
	case selPrank:
		return "prank"
	case selStartPrank:
		return "startPrank"
	case selStopPrank:
		return "stopPrank"
	case selDeal:
		return "deal"
	case selRoll:
		return "roll"
	case selWarp:
		return "warp"
	case selExpectRevert0, selExpectRevertB, selExpectRevertS4:
		return "expectRevert"
	case selStore:
		return "store"
	case selLoad:
		return "load"
	case selAddr:
		return "addr"
	default:
		return ""
	}
}

// IsRecognized reports whether sel is a cheatcode this engine implements.
func IsRecognized(sel [4]byte) bool { return Name(sel) != "" }

var errUnrecognizedCheatcode = fmt.Errorf("environment: unrecognized cheatcode selector")

// Call is one decoded cheatcode invocation: the selector plus its
// already word-decoded arguments (every recognized cheatcode's
// parameters fit in whole 32-byte words — address, uint256, bytes32 —
// except the bytes/bytes4 forms of expectRevert, whose raw payload is
// passed separately since it is not fixed-width).
type Call struct {
	Selector [4]byte
	Args     []word.Word
	RawTail  []byte // ABI-encoded bytes/bytes4 payload for expectRevert variants
}

// Outcome is what the interpreter should do after a cheatcode call: it
// always behaves like a CALL that returned successfully (cheatcodes
// never themselves revert the frame), carrying
// whatever return data the cheatcode produces (empty for the void ones).
type Outcome struct {
	ReturnData []byte
	// Prune, when true, means vm.assume's condition became UNSAT under
	// the current path condition and the caller must silently drop this
	// path rather than continue executing it.
	Prune bool
}

// Dispatch executes one recognized cheatcode call against env/cheat/the
// account store, asserting any path-condition consequence (assume) on
// slv. store and load act on the account named by their first argument,
// exactly as given.
func Dispatch(env *Env, cheat *CheatState, store *storage.Store, slv *solver.Solver, call Call) (Outcome, error) {
	switch call.Selector {
	case selAssume:
		cond := call.Args[0]
		nonZero := solver.BoolNot(solver.IsZero(cond.Term()))
		if slv.Feasible(context.Background(), nonZero) == solver.Unsat {
			return Outcome{Prune: true}, nil
		}
		slv.Assert(nonZero)
		cheat.Assumptions = append(cheat.Assumptions, &cond)
		return Outcome{}, nil

	case selPrank:
		addr := addressFromWord(call.Args[0])
		cheat.Prank.Once = &addr
		return Outcome{}, nil

	case selStartPrank:
		addr := addressFromWord(call.Args[0])
		cheat.Prank.Persistent = &addr
		return Outcome{}, nil

	case selStopPrank:
		cheat.Prank.Persistent = nil
		return Outcome{}, nil

	case selDeal:
		addr := addressFromWord(call.Args[0])
		env.SetBalance(addr, call.Args[1])
		return Outcome{}, nil

	case selRoll:
		env.BlockNumber = call.Args[0]
		return Outcome{}, nil

	case selWarp:
		env.BlockTimestamp = call.Args[0]
		return Outcome{}, nil

	case selExpectRevert0:
		cheat.ArmExpectRevert(RevertMatcher{Any: true})
		return Outcome{}, nil

	case selExpectRevertB:
		payload := make([]byte, len(call.RawTail))
		copy(payload, call.RawTail)
		cheat.ArmExpectRevert(RevertMatcher{Payload: payload})
		return Outcome{}, nil

	case selExpectRevertS4:
		var sel [4]byte
		copy(sel[:], call.RawTail)
		cheat.ArmExpectRevert(RevertMatcher{Selector: &sel})
		return Outcome{}, nil

	case selStore:
		addr := addressFromWord(call.Args[0])
		slot, val := call.Args[1], call.Args[2]
		store.Account(addr).Store(slot, val)
		return Outcome{}, nil

	case selLoad:
		addr := addressFromWord(call.Args[0])
		slot := call.Args[1]
		v := store.Account(addr).Load(slot)
		if !v.IsConcrete() {
			return Outcome{ReturnData: nil}, fmt.Errorf("environment: load of symbolic slot value has no byte encoding yet; caller must keep it symbolic (unsupported path)")
		}
		b := v.Bytes32()
		return Outcome{ReturnData: b[:]}, nil

	case selAddr:
		if !call.Args[0].IsConcrete() {
			return Outcome{}, fmt.Errorf("environment: addr requires a concrete private key")
		}
		buf := call.Args[0].Bytes32()
		pk, err := crypto.PrivateKeyFromBytes(buf[:])
		if err != nil {
			return Outcome{}, err
		}
		addr := pk.PublicKey()
		var padded [32]byte
		copy(padded[12:], addr.Bytes())
		return Outcome{ReturnData: padded[:]}, nil
	}
	return Outcome{}, errUnrecognizedCheatcode
}

func addressFromWord(w word.Word) common.Address {
	b := w.Bytes32()
	return common.BytesToAddress(b[12:])
}
