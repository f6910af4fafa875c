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

package abi

import (
	"fmt"

	"github.com/holiman/uint256"

	"github.com/symbex-labs/symbex/bytebuf"
	"github.com/symbex-labs/symbex/solver"
	"github.com/symbex-labs/symbex/word"
)

// Config bounds the calldata synthesizer's enumeration of dynamic-type
// lengths.
type Config struct {
	DynamicLenBound int // max bytes/string/array element count considered
}

var DefaultConfig = Config{DynamicLenBound: 4}

// CalldataSynthesizer builds symbolic calldata for a property function:
// selector || head (one 32-byte word per argument, or an offset word
// for dynamic arguments) || tail (dynamic argument contents), exactly
// the standard ABI head/tail layout, with every scalar slot a fresh
// solver variable and a recorded range-constraint assumption per typed
// slot.
type CalldataSynthesizer struct {
	cfg Config
}

func NewCalldataSynthesizer(cfg Config) *CalldataSynthesizer {
	return &CalldataSynthesizer{cfg: cfg}
}

// Result is the synthesized calldata plus the range assumptions the
// harness must Assert on the root path's solver before exploring it.
type Result struct {
	Calldata    *bytebuf.Buffer
	Assumptions []*solver.Term
	// ArgWords are the head-slot symbolic words per top-level argument,
	// exposed so a counterexample witness can name each argument's
	// concrete model value by name instead of only by raw calldata
	// bytes.
	ArgWords []word.Word
}

// Synthesize produces fully symbolic calldata for m, scoped with the
// variable name prefix fn.argN so sibling property functions never
// collide on fingerprint.
func (s *CalldataSynthesizer) Synthesize(m Method) (Result, error) {
	sel := m.Selector()
	buf := bytebuf.New(sel[:])

	var assumptions []*solver.Term
	argWords := make([]word.Word, len(m.Inputs))

	headSlots := len(m.Inputs)
	headEnd := 4 + headSlots*32
	tailOffset := headEnd

	for i, arg := range m.Inputs {
		name := fmt.Sprintf("%s.%s", m.Name, argOrIndexName(arg, i))
		if arg.Type.Kind == KindArray {
			lenWord, elems, elemAssumptions, err := s.synthesizeArray(name, *arg.Type.Elem)
			if err != nil {
				return Result{}, err
			}
			offsetWord := word.FromUint64(uint64(tailOffset - 4))
			buf.WriteWord(word.FromUint64(uint64(4+i*32)), offsetWord)
			buf.WriteWord(word.FromUint64(uint64(tailOffset)), lenWord)
			elemsOffset := tailOffset + 32
			for j, ew := range elems {
				buf.WriteWord(word.FromUint64(uint64(elemsOffset+j*32)), ew)
			}
			tailOffset = elemsOffset + len(elems)*32
			assumptions = append(assumptions, elemAssumptions...)
			argWords[i] = lenWord
			continue
		}
		if arg.Type.IsDynamic() {
			lenWord, content, err := s.synthesizeDynamic(name, arg.Type)
			if err != nil {
				return Result{}, err
			}
			// offsets in ABI encoding are relative to the start of the
			// args block, i.e. right after the selector.
			offsetWord := word.FromUint64(uint64(tailOffset - 4))
			buf.WriteWord(word.FromUint64(uint64(4+i*32)), offsetWord)
			buf.WriteWord(word.FromUint64(uint64(tailOffset)), lenWord)
			buf.WriteBytes(word.FromUint64(uint64(tailOffset+32)), content)
			tailOffset += 32 + len(content)
			argWords[i] = lenWord
			continue
		}
		w, assumption := s.synthesizeScalar(name, arg.Type)
		buf.WriteWord(word.FromUint64(uint64(4+i*32)), w)
		if assumption != nil {
			assumptions = append(assumptions, assumption)
		}
		argWords[i] = w
	}

	return Result{Calldata: buf, Assumptions: assumptions, ArgWords: argWords}, nil
}

func argOrIndexName(arg Argument, i int) string {
	if arg.Name != "" {
		return arg.Name
	}
	return fmt.Sprintf("arg%d", i)
}

// synthesizeScalar returns a fresh symbolic word for a head-slot type
// plus the range constraint (nil if the type already spans the full
// 256-bit domain, e.g. uint256/bytes32).
func (s *CalldataSynthesizer) synthesizeScalar(name string, t Type) (word.Word, *solver.Term) {
	w := word.NewSymbolic(name)
	switch t.Kind {
	case KindUint:
		if t.Bits >= 256 {
			return w, nil
		}
		bound := new(uint256.Int).Lsh(uint256.NewInt(1), uint(t.Bits))
		return w, solver.Lt(w.Term(), solver.NewConst(bound, 256))
	case KindInt:
		if t.Bits >= 256 {
			return w, nil
		}
		half := new(uint256.Int).Lsh(uint256.NewInt(1), uint(t.Bits-1))
		// -2^(bits-1) <= x < 2^(bits-1), both sides expressed as signed
		// comparisons over the two's-complement domain.
		lowerConst := new(uint256.Int).Sub(&uint256.Int{}, half) // 2^256 - 2^(bits-1), i.e. -2^(bits-1) mod 2^256
		notBelowLower := solver.BoolNot(nonZeroPred(solver.Slt(w.Term(), solver.NewConst(lowerConst, 256))))
		belowUpper := nonZeroPred(solver.Slt(w.Term(), solver.NewConst(half, 256)))
		return w, solver.BoolAnd(notBelowLower, belowUpper)
	case KindAddress:
		bound := new(uint256.Int).Lsh(uint256.NewInt(1), 160)
		return w, solver.Lt(w.Term(), solver.NewConst(bound, 256))
	case KindBool:
		return w, solver.Lt(w.Term(), solver.NewConst(uint256.NewInt(2), 256))
	case KindBytesN:
		// bytesN values are left-aligned within the word; the unused
		// low bytes are conventionally zero but callers rarely rely on
		// that, so no range constraint is emitted here.
		return w, nil
	default:
		return w, nil
	}
}

// nonZeroPred turns a 256-bit 0/1 comparison word into a width-1
// boolean usable inside BoolAnd.
func nonZeroPred(cmpWord *solver.Term) *solver.Term {
	return solver.BoolNot(solver.IsZero(cmpWord))
}

// synthesizeArray returns a fixed-length sequence of fresh symbolic
// head-slot words for a dynamic array's elements, bounded by
// s.cfg.DynamicLenBound the same way synthesizeDynamic fixes a
// bytes/string argument's length at the bound rather than enumerating
// every shorter length as a distinct path. Arrays of a dynamic element
// type (nested arrays, bytes[], string[]) are rejected: their tail
// layout needs a second, per-element offset table this synthesizer
// does not build.
func (s *CalldataSynthesizer) synthesizeArray(name string, elem Type) (lenWord word.Word, elems []word.Word, assumptions []*solver.Term, err error) {
	if elem.IsDynamic() {
		return word.Word{}, nil, nil, fmt.Errorf("abi: arrays of a dynamic element type are not supported")
	}
	bound := s.cfg.DynamicLenBound
	if bound <= 0 {
		return word.Word{}, nil, nil, fmt.Errorf("abi: dynamic length bound must be positive")
	}

	lenWord = word.FromUint64(uint64(bound))
	elems = make([]word.Word, bound)
	for i := 0; i < bound; i++ {
		w, assumption := s.synthesizeScalar(fmt.Sprintf("%s[%d]", name, i), elem)
		elems[i] = w
		if assumption != nil {
			assumptions = append(assumptions, assumption)
		}
	}
	return lenWord, elems, assumptions, nil
}

// synthesizeDynamic returns the tail encoding of a bytes/string
// argument: a length word followed by ceil(len/32)*32 bytes of content,
// bounded by s.cfg.DynamicLenBound elements/bytes. The length itself is
// left concrete at the bound (rather than a free variable): enumerating
// every shorter length as a separate top-level path multiplies path
// count without deepening coverage of the property function's
// branching, so the synthesizer instead fixes length at the bound and
// leaves content bytes free — still exercises every content-dependent
// branch.
func (s *CalldataSynthesizer) synthesizeDynamic(name string, t Type) (lenWord word.Word, content []word.Word, err error) {
	bound := s.cfg.DynamicLenBound
	if bound <= 0 {
		return word.Word{}, nil, fmt.Errorf("abi: dynamic length bound must be positive")
	}

	lenWord = word.FromUint64(uint64(bound))
	padded := ((bound + 31) / 32) * 32
	content = make([]word.Word, padded)
	for i := 0; i < bound; i++ {
		content[i] = word.NewSymbolic(fmt.Sprintf("%s[%d]", name, i))
	}
	for i := bound; i < padded; i++ {
		content[i] = word.Zero
	}
	return lenWord, content, nil
}
