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

package vm

import (
	"fmt"

	"github.com/symbex-labs/symbex/bytebuf"
	"github.com/symbex-labs/symbex/common"
	"github.com/symbex-labs/symbex/environment"
	"github.com/symbex-labs/symbex/evmimage"
	"github.com/symbex-labs/symbex/word"
)

var cheatcodeAddress = common.Address(environment.CheatcodeAddress)

// handleCall resolves one CALL/CALLCODE/DELEGATECALL/STATICCALL: the
// cheatcode address is intercepted and answered synchronously (it never
// opens a real frame); a call into a modeled contract opens a new Frame
// the interpreter's own Step loop then drives to completion; a call to
// an address this engine has no image for is treated as an opaque,
// always-succeeding external call with fully zeroed return data,
// conservatively approximating an uninstrumented dependency.
func (ip *Interpreter) handleCall(p *Path, spec *CallSpec) error {
	caller := p.Active()
	argData := concreteOrNil(caller, spec.ArgsOff, word.FromUint64(uint64(spec.ArgsSize)))
	if argData == nil {
		return fmt.Errorf("vm: call argument data at pc=%d must be concrete", caller.PC)
	}

	if spec.Target == cheatcodeAddress {
		return ip.dispatchCheatcode(p, caller, spec, argData)
	}

	img, ok := ip.images[spec.Target]
	if !ok {
		return ip.completeCall(p, caller, spec, []byte{}, true)
	}

	calldata := bytebuf.New(argData)
	sender := caller.Address
	value := spec.Value
	addr := spec.Target
	static := spec.IsStatic

	switch spec.Kind {
	case CallRegular, CallStatic:
		sender = p.Cheat.Prank.NextSender(caller.Address)
	case CallCode:
		sender = p.Cheat.Prank.NextSender(caller.Address)
		addr = caller.Address
	case CallDelegate:
		sender = caller.Caller
		value = caller.Value
		addr = caller.Address
	}
	if value.IsConcrete() && !value.Uint256().IsZero() {
		p.Env.SetBalance(sender, word.Sub(p.Env.BalanceOf(sender), value))
		p.Env.SetBalance(addr, word.Add(p.Env.BalanceOf(addr), value))
	}

	f := NewFrame(img, addr, sender, value, calldata, static, caller.Depth()+1)
	f.retOff, f.retSize, f.callKind = spec.RetOff, spec.RetSize, spec.Kind
	p.PushFrame(f)
	return nil
}

// dispatchCheatcode decodes argData per the recognized cheatcode's fixed
// layout (selector + 32-byte-word arguments, with expectRevert's
// bytes/bytes4 forms carrying their payload as a raw tail after the
// head) and applies it synchronously against the current path, pushing
// a success result onto the caller's stack exactly as a real CALL would.
func (ip *Interpreter) dispatchCheatcode(p *Path, caller *Frame, spec *CallSpec, argData []byte) error {
	if len(argData) < 4 {
		return ip.completeCall(p, caller, spec, nil, true)
	}
	var sel [4]byte
	copy(sel[:], argData[:4])
	call := environment.Call{Selector: sel}
	body := argData[4:]
	switch environment.Name(sel) {
	case "expectRevert":
		call.RawTail = decodeExpectRevertTail(sel, body)
	default:
		for off := 0; off+32 <= len(body); off += 32 {
			call.Args = append(call.Args, word.FromBytes(body[off:off+32]))
		}
	}
	outcome, err := environment.Dispatch(p.Env, p.Cheat, p.Store, p.Solver, call)
	if err != nil {
		return fmt.Errorf("vm: cheatcode %s: %w", environment.Name(sel), err)
	}
	if outcome.Prune {
		p.Halt = &Halt{Kind: HaltPruned}
		return nil
	}
	return ip.completeCall(p, caller, spec, outcome.ReturnData, true)
}

// completeCall is the synchronous-completion path (cheatcodes and calls
// to unmodeled addresses): write the return payload into the caller's
// memory and returndata buffer and push the success flag, without ever
// opening a new Frame.
func (ip *Interpreter) completeCall(p *Path, caller *Frame, spec *CallSpec, data []byte, success bool) error {
	caller.ReturnData = bytebuf.New(data)
	caller.Memory.WriteBytes(spec.RetOff, truncateOrPad(data, spec.RetSize))
	if success {
		caller.Stack.push(word.FromUint64(1))
	} else {
		caller.Stack.push(word.Zero)
	}
	caller.PC++
	return nil
}

// decodeExpectRevertTail distinguishes expectRevert's three overloads by
// their encoded body shape (no selector-level distinction survives past
// environment.Name, which collapses all three to "expectRevert"):
// no-argument calls arrive with an empty body, the bytes4 overload with
// exactly one right-padded word, and the dynamic bytes overload with the
// standard ABI offset+length+data encoding.
func decodeExpectRevertTail(sel [4]byte, body []byte) []byte {
	switch len(body) {
	case 0:
		return nil
	case 32:
		return append([]byte{}, body[:4]...)
	default:
		if len(body) < 64 {
			return nil
		}
		length := word.FromBytes(body[32:64])
		if !length.IsConcrete() {
			return nil
		}
		n := length.Uint256().Uint64()
		if 64+n > uint64(len(body)) {
			n = uint64(len(body)) - 64
		}
		return append([]byte{}, body[64:64+n]...)
	}
}

func truncateOrPad(data []byte, n int) []word.Word {
	out := make([]word.Word, n)
	for i := 0; i < n; i++ {
		if i < len(data) {
			out[i] = word.FromUint64(uint64(data[i]))
		} else {
			out[i] = word.Zero
		}
	}
	return out
}

// handleCreate resolves CREATE/CREATE2: the init code is taken from the
// caller's memory (must be concrete), executed as its own frame against
// a fresh address, and the deployed image is registered for subsequent
// CALL/EXTCODE* resolution once that frame returns. Address derivation
// is simplified to a deterministic counter-based scheme rather than the
// real keccak(rlp(sender,nonce)) or
// keccak(0xff‖sender‖salt‖keccak(initcode)) formulas, since no
// property-test harness in this engine's scope depends on the exact
// deployed address value.
func (ip *Interpreter) handleCreate(p *Path, spec *CallSpec) error {
	caller := p.Active()
	initCode := concreteOrNil(caller, spec.ArgsOff, word.FromUint64(uint64(spec.ArgsSize)))
	if initCode == nil {
		return fmt.Errorf("vm: CREATE init code at pc=%d must be concrete", caller.PC)
	}
	addr := ip.deriveCreateAddress(caller.Address)
	img := evmimage.New(initCode)

	if spec.Value.IsConcrete() && !spec.Value.Uint256().IsZero() {
		p.Env.SetBalance(caller.Address, word.Sub(p.Env.BalanceOf(caller.Address), spec.Value))
		p.Env.SetBalance(addr, word.Add(p.Env.BalanceOf(addr), spec.Value))
	}

	f := NewFrame(img, addr, caller.Address, spec.Value, bytebuf.New(nil), false, caller.Depth()+1)
	f.retOff, f.retSize, f.callKind = word.Zero, 0, spec.Kind
	p.PushFrame(f)
	return nil
}

func (ip *Interpreter) deriveCreateAddress(deployer common.Address) common.Address {
	ip.nextID++
	var raw [20]byte
	copy(raw[:], deployer.Bytes())
	raw[19] ^= byte(ip.nextID)
	raw[18] ^= byte(ip.nextID >> 8)
	return common.BytesToAddress(raw[:])
}

// popFrameWithResult is invoked when a non-root frame halts: it folds
// the sub-call's outcome back into its caller exactly as completeCall
// does for a synchronous cheatcode result, additionally consulting any
// armed expectRevert on the caller.
func (ip *Interpreter) popFrameWithResult(p *Path, h *Halt) {
	done := p.PopFrame()
	caller := p.Active()

	if matcher := p.Cheat.ConsumeExpectRevert(); matcher != nil {
		reverted := h.Kind == HaltReverted || h.Kind == HaltAssertionFailed
		if !reverted || !matcher.Matches(h.Data) {
			p.Halt = &Halt{Kind: HaltAssertionFailed, Reason: RevertRaw}
			return
		}
	}

	success := h.Kind == HaltReturned
	caller.ReturnData = bytebuf.New(h.Data)

	if done.callKind == CallCreate || done.callKind == CallCreate2 {
		if success {
			ip.images[done.Address] = evmimage.New(h.Data)
			caller.Stack.push(addrWord(done.Address))
		} else {
			caller.Stack.push(word.Zero)
		}
		caller.PC++
		return
	}

	caller.Memory.WriteBytes(done.retOff, truncateOrPad(h.Data, done.retSize))
	if success {
		caller.Stack.push(word.FromUint64(1))
	} else {
		caller.Stack.push(word.Zero)
	}
	caller.PC++
}
