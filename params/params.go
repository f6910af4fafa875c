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

// Package params holds the constants shared across the engine: the
// cheatcode magic address, a property-name prefix list, and a set of
// default exploration bounds. The CLI and the harness carry their own
// prefix and bound defaults and do not read the latter two.
package params

import "github.com/symbex-labs/symbex/common"

// CheatcodeAddress is the well-known address the cheatcode layer
// intercepts. Calls to this address are never executed as
// bytecode; they are dispatched to the environment's cheat handlers.
var CheatcodeAddress = common.HexToAddress("0x7109709ECfa91a80626fF3989D68f67F5b1DD12D")

// DefaultPropertyPrefixes is a name-prefix set for recognizing property
// functions. Nothing in the engine reads it: the CLI and
// harness.DefaultConfig use their own list, which also has "fuzz_".
var DefaultPropertyPrefixes = []string{"test_", "check_", "invariant_"}

// Bounds collects per-run exploration limits. Neither the CLI nor the
// worker-mode input document uses this type; each has its own fields.
type Bounds struct {
	DepthBound uint64 // max instructions executed on a single path
	WidthBound int // max live paths at once
	LoopBound uint64 // max JUMPDEST revisits under a strictly-subsuming condition
	SolverTimeoutMS uint64 // per-query SMT timeout
	SolverMaxMemoryMB uint64
	ConcretizationBound int // max enumerated models for a symbolic jump target / exponent
	PathWallTimeMS uint64
	FunctionWallTimeMS uint64
}

// DefaultBounds mirrors the defaults a fuzzing/verification harness in this
// family would ship (generous enough to finish small property functions,
// tight enough to bound a CI run).
var DefaultBounds = Bounds{
	DepthBound: 200_000,
	WidthBound: 4096,
	LoopBound: 16,
	SolverTimeoutMS: 2_000,
	SolverMaxMemoryMB: 1024,
	ConcretizationBound: 16,
	PathWallTimeMS: 30_000,
	FunctionWallTimeMS: 120_000,
}
