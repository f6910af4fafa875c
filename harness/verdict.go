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

package harness

import (
	"fmt"
	"strings"

	"github.com/symbex-labs/symbex/vm"
)

// Status is a property function's aggregate verdict.
type Status int

const (
	Pass Status = iota
	Fail
	Unknown
)

func (s Status) String() string {
	switch s {
	case Pass:
		return "PASS"
	case Fail:
		return "FAIL"
	default:
		return "UNKNOWN"
	}
}

// ArgValue renders one witness argument in both decimal and hex, the
// user-visible surface.
type ArgValue struct {
	Dec string
	Hex string
}

// Witness is a failing path's counterexample: one concrete value per
// top-level property-function argument plus the trace that reached the
// violation.
type Witness struct {
	Args       map[string]ArgValue
	RevertData []byte
	Trace      []vm.TraceEntry
}

// FormatTrace renders Trace as the user-visible surface: one
// CALL/SSTORE/SLOAD/REVERT-shaped line per recorded step, indented by
// call depth.
func (w *Witness) FormatTrace() string {
	var b strings.Builder
	for _, e := range w.Trace {
		fmt.Fprintf(&b, "%s[pc=%d] %s\n", strings.Repeat(" ", e.FrameDepth), e.PC, e.Op)
	}
	return b.String()
}

// Verdict is one property function's final result.
type Verdict struct {
	Function string
	Status   Status
	Reason   string   // e.g. "assertion-failed", "unexpected-revert", "expected-revert-unfired", "depth-bound", "engine"
	Witness  *Witness // non-nil only for Fail

	PathsExplored int
	PathsPruned   int
}

// classification is the per-path verdict contribution computed from a
// terminal vm.Path, before aggregation across a function's whole path
// set.
type classification int

const (
	clsVerified classification = iota
	clsAssertionFailed
	clsUnexpectedRevert
	clsExpectRevertUnfired
	clsUnknown
	clsPruned
)

// classify applies a default "safety property" policy to one terminal
// path. vm's own panic detector already reclassifies assert/overflow/
// bounds panics to HaltAssertionFailed, and popFrameWithResult already
// turns a mismatched expectRevert into HaltAssertionFailed; what
// remains here is the policy the harness itself assigns: an
// expectRevert still armed when its path halts is a violation in its
// own right (a test that arms an expectation the path never exercises
// proves nothing), and for a path with no pending expectation any
// other top-level Reverted halt is a violation too. Because this
// engine resolves expectRevert synchronously against the very next
// external call, "armed" and "unfired by the time the path halts"
// coincide.
func classify(p *vm.Path) classification {
	if p.Halt.Kind == vm.HaltPruned {
		return clsPruned
	}
	if p.Cheat.ExpectRevert != nil {
		return clsExpectRevertUnfired
	}
	switch p.Halt.Kind {
	case vm.HaltAssertionFailed:
		return clsAssertionFailed
	case vm.HaltReverted:
		return clsUnexpectedRevert
	case vm.HaltUnknown:
		return clsUnknown
	default: // HaltReturned
		return clsVerified
	}
}
