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
	"context"
	"fmt"

	"github.com/symbex-labs/symbex/abi"
	"github.com/symbex-labs/symbex/common"
	"github.com/symbex-labs/symbex/crypto"
	"github.com/symbex-labs/symbex/harness"
)

// deployer is the address every run deploys contracts under and, absent
// symbolic_msg_sender, the sole candidate msg.sender (harness.Config's
// own default, re-derived here so the CLI can log it).
var deployer = common.BytesToAddress(crypto.Keccak256([]byte("symbex:deployer"))[12:])

// extraSenders is the small, fixed candidate set symbolic_msg_sender
// enumerates over in place of a genuinely free symbolic sender word
// (see harnessConfig's doc comment and DESIGN.md).
var extraSenders = []common.Address{
	common.BytesToAddress(crypto.Keccak256([]byte("symbex:sender:1"))[12:]),
	common.BytesToAddress(crypto.Keccak256([]byte("symbex:sender:2"))[12:]),
}

// runResult is one spec contract's full set of verdicts, paired with
// its property functions' signatures for rendering.
type runResult struct {
	contractName string
	verdicts []harness.Verdict
	signatures map[string]string
}

// runAll drives the harness once per matching spec contract and
// collects every verdict. contracts is the full universe of loaded
// artifacts (targets and specs alike) — each spec contract's run gets
// the same universe, so its property functions can call into
// sibling-deployed target contracts.
func runAll(ctx context.Context, art loadedArtifacts, specNames []string, cfg runConfig, prefixes []string) ([]runResult, error) {
	hcfg := cfg.harnessConfig(deployer, extraSenders)
	hcfg.PropertyPrefixes = prefixes
	driver := harness.New(hcfg)

	var results []runResult
	for _, name := range specNames {
 verdicts, err := driver.Run(ctx, name, art.contracts, art.allow[name])
 if err != nil {
 return nil, fmt.Errorf("running spec contract %s: %w", name, err)
 }
 sigs := signatureIndex(art.contracts[name].PropertyFunctions(prefixes, art.allow[name]))
 results = append(results, runResult{contractName: name, verdicts: verdicts, signatures: sigs})
	}
	return results, nil
}

func signatureIndex(methods []abi.Method) map[string]string {
	out := make(map[string]string, len(methods))
	for _, m := range methods {
		out[m.Name] = m.Signature()
	}
	return out
}

// overallExitCode implements exit-status rule: 0 if every
// verdict passed, 1 if any failed (UNKNOWN does not by itself fail the
// run), 2 is reserved for engine errors raised before verdicts exist
// at all (see main.go).
func overallExitCode(results []runResult) int {
	anyFail := false
	for _, r := range results {
 for _, v := range r.verdicts {
 if v.Status == harness.Fail {
 anyFail = true
 }
 }
	}
	if anyFail {
 return 1
	}
	return 0
}
