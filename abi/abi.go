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

// Package abi holds the minimal ABI descriptor types this engine needs
// — Argument/Method and selector derivation — and hosts the
// CalldataSynthesizer.
package abi

import (
	"fmt"
	"strings"

	"github.com/symbex-labs/symbex/crypto"
)

// Kind enumerates the Solidity ABI type families this engine can
// synthesize symbolic calldata for. Tuples/structs and nested arrays
// are not supported: a tuple parameter is rejected when the artifact is
// loaded, and an array of dynamic elements makes calldata synthesis
// fail, which the harness reports as UNKNOWN with an engine reason.
type Kind int

const (
	KindUint Kind = iota
	KindInt
	KindAddress
	KindBool
	KindBytesN // fixed-size bytes1..bytes32
	KindBytes  // dynamic bytes
	KindString // dynamic string (treated like bytes for synthesis purposes)
	KindArray  // dynamic array of a single Elem type
)

// Type describes one Solidity ABI parameter type.
type Type struct {
	Kind Kind
	Bits int   // for KindUint/KindInt: 8..256
	N    int   // for KindBytesN: 1..32
	Elem *Type // for KindArray
}

func Uint(bits int) Type         { return Type{Kind: KindUint, Bits: bits} }
func Int(bits int) Type          { return Type{Kind: KindInt, Bits: bits} }
func Address() Type              { return Type{Kind: KindAddress} }
func Bool() Type                 { return Type{Kind: KindBool} }
func BytesN(n int) Type          { return Type{Kind: KindBytesN, N: n} }
func Bytes() Type                { return Type{Kind: KindBytes} }
func String() Type               { return Type{Kind: KindString} }
func Array(elem Type) Type       { return Type{Kind: KindArray, Elem: &elem} }

// IsDynamic reports whether t occupies a tail slot in ABI head/tail
// encoding.
func (t Type) IsDynamic() bool {
	return t.Kind == KindBytes || t.Kind == KindString || t.Kind == KindArray
}

// Canonical renders the type the way a function signature names it,
// e.g. "uint256", "bytes32", "address[]".
func (t Type) Canonical() string {
	switch t.Kind {
	case KindUint:
		return fmt.Sprintf("uint%d", t.Bits)
	case KindInt:
		return fmt.Sprintf("int%d", t.Bits)
	case KindAddress:
		return "address"
	case KindBool:
		return "bool"
	case KindBytesN:
		return fmt.Sprintf("bytes%d", t.N)
	case KindBytes:
		return "bytes"
	case KindString:
		return "string"
	case KindArray:
		return t.Elem.Canonical() + "[]"
	default:
		return "unknown"
	}
}

// Argument is one parameter of a Method.
type Argument struct {
	Name string
	Type Type
}

// Method describes one callable function of a deployed contract or
// specification contract.
type Method struct {
	Name   string
	Inputs []Argument
}

// Signature renders the canonical "name(type1,type2)" form the
// selector is derived from.
func (m Method) Signature() string {
	parts := make([]string, len(m.Inputs))
	for i, a := range m.Inputs {
		parts[i] = a.Type.Canonical()
	}
	return m.Name + "(" + strings.Join(parts, ",") + ")"
}

// Selector returns the first four bytes of keccak256(signature), the
// same derivation the cheatcode table's own selectors use.
func (m Method) Selector() [4]byte {
	h := crypto.Keccak256([]byte(m.Signature()))
	var s [4]byte
	copy(s[:], h[:4])
	return s
}

// HasPrefix reports whether m.Name begins with any of prefixes — the
// property-function discovery rule driven by a configured prefix set.
func (m Method) HasPrefix(prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(m.Name, p) {
			return true
		}
	}
	return false
}
