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

// Package artifact decodes the compiled-artifact JSON documents that
// make up this engine's one consumer interface onto an external build
// tool: deployed bytecode, an ABI array, and the optional
// storage-layout/source-map side files. Unknown JSON fields are
// ignored, the same tolerant-decode posture a node's genesis and
// chain-config loaders take (encoding/json, never a generated decoder).
package artifact

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/symbex-labs/symbex/abi"
	"github.com/symbex-labs/symbex/evmimage"
)

// entry is one element of a standard Solidity ABI JSON array. Only the
// fields this engine needs are named; everything else is simply
// dropped on decode.
type entry struct {
	Type            string  `json:"type"`
	Name            string  `json:"name"`
	Inputs          []param `json:"inputs"`
	Outputs         []param `json:"outputs"`
	StateMutability string  `json:"stateMutability"`
}

type param struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// Doc is the on-disk shape of one contract's compiled artifact.
type Doc struct {
	Name             string            `json:"name"`
	DeployedBytecode string            `json:"deployed_bytecode"`
	ABI              json.RawMessage   `json:"abi"`
	StorageLayout    json.RawMessage   `json:"storage_layout,omitempty"`
	SourceMap        map[string]srcLoc `json:"source_map,omitempty"`
	TestFunctions    []string          `json:"test_functions,omitempty"`
}

type srcLoc struct {
	File   string `json:"file"`
	Line   int    `json:"line"`
	Length int    `json:"length"`
}

// Contract is this engine's in-memory view of one compiled artifact: a
// ready-to-run evmimage.Image plus the decoded Method table the
// calldata synthesizer and property-prefix filter both consume.
type Contract struct {
	Name    string
	Image   *evmimage.Image
	Methods []abi.Method
}

// Decode parses one artifact document. Malformed bytecode or an ABI
// entry whose type this engine can't synthesize calldata for is a
// load-time error.
func Decode(raw []byte) (Contract, error) {
	var doc Doc
	if err := json.Unmarshal(raw, &doc); err != nil {
		return Contract{}, fmt.Errorf("artifact: invalid JSON: %w", err)
	}
	return FromDoc(doc)
}

// FromDoc converts an already-unmarshaled Doc, used directly by a
// worker-mode input document that embeds artifacts inline rather than
// as standalone files.
func FromDoc(doc Doc) (Contract, error) {
	code, err := decodeHex(doc.DeployedBytecode)
	if err != nil {
		return Contract{}, fmt.Errorf("artifact %s: deployed_bytecode: %w", doc.Name, err)
	}

	var entries []entry
	if len(doc.ABI) > 0 {
		if err := json.Unmarshal(doc.ABI, &entries); err != nil {
			return Contract{}, fmt.Errorf("artifact %s: abi: %w", doc.Name, err)
		}
	}

	methods := make([]abi.Method, 0, len(entries))
	for _, e := range entries {
		if e.Type != "" && e.Type != "function" {
			continue // constructor/event/error/fallback/receive: not invocable property functions
		}
		m, err := toMethod(e)
		if err != nil {
			return Contract{}, fmt.Errorf("artifact %s: function %s: %w", doc.Name, e.Name, err)
		}
		methods = append(methods, m)
	}

	img := evmimage.New(code)
	if len(doc.SourceMap) > 0 {
		sm := make(map[int]evmimage.SourceLocation, len(doc.SourceMap))
		for pcStr, loc := range doc.SourceMap {
			var pc int
			if _, err := fmt.Sscanf(pcStr, "%d", &pc); err != nil {
				continue
			}
			sm[pc] = evmimage.SourceLocation{File: loc.File, Line: loc.Line, Length: loc.Length}
		}
		img = img.WithSourceMap(sm)
	}

	return Contract{Name: doc.Name, Image: img, Methods: methods}, nil
}

func toMethod(e entry) (abi.Method, error) {
	args := make([]abi.Argument, len(e.Inputs))
	for i, in := range e.Inputs {
		t, err := abi.ParseType(in.Type)
		if err != nil {
			return abi.Method{}, err
		}
		args[i] = abi.Argument{Name: in.Name, Type: t}
	}
	return abi.Method{Name: e.Name, Inputs: args}, nil
}

func decodeHex(s string) ([]byte, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "0x")
	if len(s)%2 != 0 {
		return nil, fmt.Errorf("odd-length hex string")
	}
	return hex.DecodeString(s)
}

// PropertyFunctions returns the subset of c's methods whose names begin
// with one of prefixes, further narrowed to an explicit allowlist when
// one is supplied (a worker-mode input document's explicit
// test_functions field takes precedence over prefix matching when both
// are present).
func (c Contract) PropertyFunctions(prefixes []string, allow []string) []abi.Method {
	var allowSet map[string]bool
	if len(allow) > 0 {
		allowSet = make(map[string]bool, len(allow))
		for _, n := range allow {
			allowSet[n] = true
		}
	}
	var out []abi.Method
	for _, m := range c.Methods {
		if allowSet != nil {
			if allowSet[m.Name] {
				out = append(out, m)
			}
			continue
		}
		if m.HasPrefix(prefixes) {
			out = append(out, m)
		}
	}
	return out
}

// SetUp returns the contract's setUp method, if it declares one.
func (c Contract) SetUp() (abi.Method, bool) {
	for _, m := range c.Methods {
		if m.Name == "setUp" && len(m.Inputs) == 0 {
			return m, true
		}
	}
	return abi.Method{}, false
}
