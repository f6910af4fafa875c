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

// HaltKind classifies the terminal state of a Path.
type HaltKind int

const (
	HaltReturned HaltKind = iota
	HaltReverted
	HaltAssertionFailed
	HaltUnknown // solver timeout / concretization bound exceeded / other inconclusive stop
	HaltPruned  // vm.assume's condition was UNSAT under the path condition; excluded from verdict aggregation entirely
)

func (k HaltKind) String() string {
	switch k {
	case HaltReturned:
		return "Returned"
	case HaltReverted:
		return "Reverted"
	case HaltAssertionFailed:
		return "AssertionFailed"
	case HaltPruned:
		return "Pruned"
	default:
		return "Unknown"
	}
}

// RevertReason tags why a Reverted halt happened, distinguishing a
// plain revert from one carrying a recognized Solidity panic or a
// require-style error string.
type RevertReason int

const (
	RevertRaw RevertReason = iota
	RevertRequireString
	RevertCustomError
	RevertSolidityPanic
)

// PanicCategory enumerates the Solidity compiler's built-in Panic(uint256)
// codes this engine recognizes as assertion violations rather than
// ordinary reverts.
type PanicCategory uint64

const (
	PanicGeneric                  PanicCategory = 0x00
	PanicAssertFailed             PanicCategory = 0x01
	PanicArithmeticOverflow       PanicCategory = 0x11
	PanicDivisionByZero           PanicCategory = 0x12
	PanicInvalidEnumValue         PanicCategory = 0x21
	PanicStorageByteArrayEncoding PanicCategory = 0x22
	PanicEmptyArrayPop            PanicCategory = 0x31
	PanicArrayOutOfBounds         PanicCategory = 0x32
	PanicOutOfMemory              PanicCategory = 0x41
	PanicInvalidInternalFunction  PanicCategory = 0x51
)

// UnknownReason records why a path ended Unknown instead of reaching a
// definite halt, so the harness can surface it in the attestation's
// diagnostic trail.
type UnknownReason int

const (
	UnknownDepthBound UnknownReason = iota
	UnknownWidthBound
	UnknownLoopBound
	UnknownWallTime
	UnknownSolverTimeout
	UnknownConcretization
)

func (r UnknownReason) String() string {
	switch r {
	case UnknownDepthBound:
		return "depth-bound"
	case UnknownWidthBound:
		return "width-bound"
	case UnknownLoopBound:
		return "loop-bound"
	case UnknownWallTime:
		return "wall-time"
	case UnknownSolverTimeout:
		return "solver-timeout"
	default:
		return "concretization"
	}
}

// Halt is the terminal record attached to a Path once the interpreter
// or scheduler stops advancing it.
type Halt struct {
	Kind    HaltKind
	Reason  RevertReason
	Panic   PanicCategory // valid iff Reason == RevertSolidityPanic
	Data    []byte        // raw return/revert data, concrete bytes only
	Unknown UnknownReason // valid iff Kind == HaltUnknown
}
