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

package main

import (
	"encoding/json"

	"github.com/symbex-labs/symbex/abi"
	"github.com/symbex-labs/symbex/common"
	"github.com/symbex-labs/symbex/harness"
	"github.com/symbex-labs/symbex/scheduler"
	"github.com/symbex-labs/symbex/solver"
	"github.com/symbex-labs/symbex/vm"
)

// runConfig is the union of "CLI surface" flags and the
// worker-mode JSON document's "config" object — one struct feeds both
// entry points (run/file mode and worker mode) into the same
// harness.Config, a single flags-to-struct translation ahead of the
// real work.
type runConfig struct {
	LoopBound uint64 `json:"loop_bound"`
	WidthBound int `json:"width_bound"`
	DepthBound uint64 `json:"depth_bound"`
	SolverTimeoutMS int `json:"solver_timeout_ms"`
	SolverMaxMemoryMB int `json:"solver_max_memory_mb"`
	SymbolicStorage bool `json:"symbolic_storage"`
	SymbolicMsgSender bool `json:"symbolic_msg_sender"`
	ArrayLengths map[string]int `json:"array_lengths"`
}

var defaultRunConfig = runConfig{
	LoopBound:         vm.DefaultLimits.LoopBound,
	WidthBound:        scheduler.DefaultBounds.WidthBound,
	DepthBound:        scheduler.DefaultBounds.DepthBound,
	SolverTimeoutMS:   solver.DefaultConfig.TimeoutMS,
	SolverMaxMemoryMB: solver.DefaultConfig.MaxMemoryMB,
}

// harnessConfig translates the CLI/worker-mode configuration into a
// harness.Config. array_lengths is consulted only to size the default
// dynamic-length bound when every entry agrees; 's synthesizer
// fixes one bound per run rather than per argument name, so a
// per-contract override table would need a richer abi.Config than the
// one the synthesizer actually exposes — see DESIGN.md.
//
// symbolic_msg_sender widens senders beyond the single deployer
// address the harness otherwise defaults to (harness.DefaultConfig);
// see DESIGN.md for why this engine approximates a free symbolic
// sender with an enumerated candidate list instead.
func (c runConfig) harnessConfig(deployer common.Address, extraSenders []common.Address) harness.Config {
	cfg := harness.DefaultConfig
	cfg.InterpLimits = vm.Limits{
 ConcretizationBound: vm.DefaultLimits.ConcretizationBound,
 LoopBound: c.LoopBound,
	}
	cfg.Bounds = scheduler.Bounds{
 DepthBound: c.DepthBound,
 WidthBound: c.WidthBound,
 PathWallTime: scheduler.DefaultBounds.PathWallTime,
	}
	cfg.SolverConfig = solver.Config{
 TimeoutMS: c.SolverTimeoutMS,
 MaxMemoryMB: c.SolverMaxMemoryMB,
 Incremental: solver.DefaultConfig.Incremental,
 CacheSizeMB: solver.DefaultConfig.CacheSizeMB,
	}
	cfg.SymbolicStorage = c.SymbolicStorage
	if bound := soleArrayLengthBound(c.ArrayLengths); bound > 0 {
 cfg.Synth = abi.Config{DynamicLenBound: bound}
	} else {
 cfg.Synth = abi.DefaultConfig
	}
	cfg.SenderCandidates = []common.Address{deployer}
	if c.SymbolicMsgSender {
 cfg.SenderCandidates = append(cfg.SenderCandidates, extraSenders...)
	}
	return cfg
}

func soleArrayLengthBound(m map[string]int) int {
	if len(m) == 0 {
 return 0
	}
	bound := -1
	for _, v := range m {
 if bound == -1 {
 bound = v
 continue
 }
 if v != bound {
 return 0
 }
	}
	return bound
}

// jobInput is the worker-mode request document.
type jobInput struct {
	Contracts []contractDoc `json:"contracts"`
	Config runConfig `json:"config"`
	JobID string `json:"job_id"`
	Timestamp int64 `json:"timestamp"`
}

// contractDoc mirrors artifact.Doc's on-the-wire field names; it is
// kept distinct from artifact.Doc itself so the artifact package does
// not need to know about job_id/timestamp envelope fields it has no
// use for.
type contractDoc struct {
	Name string `json:"name"`
	DeployedBytecode string `json:"deployed_bytecode"`
	ABI json.RawMessage `json:"abi"`
	TestFunctions []string `json:"test_functions,omitempty"`
}

// jobOutput is the worker-mode response document.
type jobOutput struct {
	Tests []testResult `json:"tests"`
	Summary summary `json:"summary"`
}

type testResult struct {
	Name string `json:"name"`
	Passed bool `json:"passed"`
	ReturnData string `json:"return_data"`
	Trace string `json:"trace"`
	Counterexample map[string]string `json:"counterexample,omitempty"`
}

type summary struct {
	Total int `json:"total"`
	Passed int `json:"passed"`
	Failed int `json:"failed"`
	ExecutionTimeMS int64 `json:"execution_time_ms"`
}
