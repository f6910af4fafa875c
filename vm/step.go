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
	"github.com/symbex-labs/symbex/common"
	"github.com/symbex-labs/symbex/solver"
	"github.com/symbex-labs/symbex/word"
)

// StepKind tags the shape of one step's result. Opcode handlers may
// produce StepCall or StepCreate, but Interpreter.Step resolves those
// itself, so the worklist scheduler, which owns path lifetime, only
// sees StepAdvance, StepBranch and StepHalt.
type StepKind int

const (
	StepAdvance StepKind = iota
	StepBranch
	StepCall
	StepCreate
	StepHalt
)

// BranchSpec describes the two children a JUMPI fork produces — each a
// predicate to assert plus the frame PC that child should resume at.
// Cond is the "branch taken" predicate (condition != 0); the false side
// asserts its negation. Interpreter.Step fills TrueFeasible/FalseFeasible
// by querying the branch oracle before handing this back to the
// scheduler.
type BranchSpec struct {
	TruePC, FalsePC uint64
	Cond *solver.Term
	TrueFeasible, FalseFeasible bool
}

// CallSpec carries everything needed to open (or, for a cheatcode,
// simulate) a new frame; makeCall and makeCreate in instructions.go
// fill this in, and Interpreter.Step resolves every call inline
// (handleCall / handleCreate in calls.go), cheatcode or real sub-call.
type CallSpec struct {
	Kind CallKind
	Target common.Address
	Value word.Word
	ArgsOff word.Word
	ArgsSize int
	RetOff word.Word
	RetSize int
	Gas word.Word
	IsStatic bool
	Salt word.Word // valid iff Kind == CallCreate2
}

type CallKind int

const (
	CallRegular CallKind = iota
	CallCode
	CallDelegate
	CallStatic
	CallCreate
	CallCreate2
)

// StepResult is the outcome of one Interpreter.Step call.
type StepResult struct {
	Kind StepKind
	Branch *BranchSpec
	Call *CallSpec
	Halt *Halt
}
