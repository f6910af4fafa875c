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

import "github.com/holiman/uint256"

// Solidity's two well-known revert-data encodings: Error(string), used
// by require/revert("msg"), and Panic(uint256), used by the compiler's
// own generated checks (assert, arithmetic overflow, array
// out-of-bounds, division by zero, and friends). Any other 4-byte
// prefix is a user-defined custom error.
var (
	errorStringSelector = [4]byte{0x08, 0xc3, 0x79, 0xa0}
	panicSelector       = [4]byte{0x4e, 0x48, 0x7b, 0x71}
)

// classifyRevert inspects a REVERT's return data and tags the resulting
// Halt with the revert reason the harness needs to distinguish an
// ordinary require failure from a compiler-inserted Panic (which the
// harness treats as a counterexample to an implicit property, not just
// the property under test reverting).
func classifyRevert(data []byte) *Halt {
	h := &Halt{Kind: HaltReverted, Reason: RevertRaw, Data: data}
	if len(data) < 4 {
		return h
	}
	var sel [4]byte
	copy(sel[:], data[:4])
	switch sel {
	case errorStringSelector:
		h.Reason = RevertRequireString
	case panicSelector:
		h.Reason = RevertSolidityPanic
		if len(data) >= 36 {
			h.Panic = PanicCategory(new(uint256.Int).SetBytes(data[4:36]).Uint64())
		}
		if isAssertionPanic(h.Panic) {
			h.Kind = HaltAssertionFailed
		}
	default:
		h.Reason = RevertCustomError
	}
	return h
}

// isAssertionPanic reports whether code is a panic category that
// represents a genuine assertion violation rather than an
// implementation-detail guard (the generic 0x00 panic is excluded;
// enum/storage-encoding and arithmetic/bounds panics all qualify).
func isAssertionPanic(code PanicCategory) bool {
	switch code {
	case PanicAssertFailed, PanicArithmeticOverflow, PanicDivisionByZero,
		PanicInvalidEnumValue, PanicStorageByteArrayEncoding, PanicEmptyArrayPop,
		PanicArrayOutOfBounds, PanicOutOfMemory, PanicInvalidInternalFunction:
		return true
	default:
		return false
	}
}
