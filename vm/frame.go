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
	"github.com/symbex-labs/symbex/bytebuf"
	"github.com/symbex-labs/symbex/common"
	"github.com/symbex-labs/symbex/evmimage"
	"github.com/symbex-labs/symbex/word"
)

// Frame is one call's execution state: pc, stack, memory, and the
// per-call addressing context, pulled out of a single Go stack frame's
// local variables into an explicit, forkable struct so a Path can be
// cloned and suspended mid-call by the scheduler.
type Frame struct {
	Image *evmimage.Image // shared by handle, never copied

	Address  common.Address // the executing contract's own address
	Caller   common.Address
	Value    word.Word
	CallData *bytebuf.Buffer
	Static   bool // STATICCALL frame: state-modifying opcodes must revert

	PC     uint64
	Stack  *Stack
	Memory *bytebuf.Buffer

	ReturnData *bytebuf.Buffer // last sub-call's returndata, visible to RETURNDATACOPY/RETURNDATASIZE

	GasTracked uint64 // informational only, never a termination criterion

	// LoopCounts tracks how many times this frame has reached each
	// JUMPDEST, used for per-frame loop-bound accounting.
	LoopCounts map[uint64]uint64

	depth int

	// retOff/retSize/callKind are set on a frame opened by CALL/CREATE
	// dispatch, recording where its caller wants the result written once
	// this frame halts and is popped (calls.go's popFrameWithResult).
	retOff   word.Word
	retSize  int
	callKind CallKind
}

func NewFrame(img *evmimage.Image, addr, caller common.Address, value word.Word, calldata *bytebuf.Buffer, static bool, depth int) *Frame {
	return &Frame{
		Image:      img,
		Address:    addr,
		Caller:     caller,
		Value:      value,
		CallData:   calldata,
		Static:     static,
		Stack:      newStack(),
		Memory:     bytebuf.New(nil),
		ReturnData: bytebuf.New(nil),
		LoopCounts: make(map[uint64]uint64),
		depth:      depth,
	}
}

// Clone deep-copies everything mutable so sibling paths never share a
// stack or memory buffer; Image is the one field intentionally shared.
func (f *Frame) Clone() *Frame {
	c := *f
	c.Stack = f.Stack.clone()
	c.Memory = f.Memory.Clone()
	c.ReturnData = f.ReturnData.Clone()
	c.LoopCounts = make(map[uint64]uint64, len(f.LoopCounts))
	for k, v := range f.LoopCounts {
		c.LoopCounts[k] = v
	}
	return &c
}

// Depth reports the call stack depth this frame was opened at, used for
// call/create depth bound checks.
func (f *Frame) Depth() int { return f.depth }

// SetPC repositions this frame's program counter — used by the
// scheduler when committing a JUMPI child to the branch side the
// oracle found feasible.
func (f *Frame) SetPC(pc uint64) { f.PC = pc }
