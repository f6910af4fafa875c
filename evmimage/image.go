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

// Package evmimage is the immutable, shared-by-handle contract image:
// bytecode, a decoded instruction index, the valid-jump-destination set,
// and an optional source map. One Image is built once per deployed
// contract and referenced by every frame/path that executes it — never
// copied.
package evmimage

import "fmt"

// SourceLocation is one entry of an optional PC→source mapping, as
// produced by a Solidity compiler's sourcemap output and consumed, not
// produced, by this engine.
type SourceLocation struct {
	File   string
	Line   int
	Length int
}

// Image is the immutable decoded form of one contract's deployed
// bytecode.
type Image struct {
	Code      []byte
	jumpdests map[int]bool
	sourceMap map[int]SourceLocation // indexed by pc, optional
	opAt      map[int]OpCode
}

// New decodes code once: classifies every byte as either an opcode or
// PUSH immediate data, and records the set of PCs that are both a
// JUMPDEST opcode and not inside another instruction's immediate data
// (a 0x5b byte inside PUSH data is never a valid jump target).
func New(code []byte) *Image {
	img := &Image{
		Code:      code,
		jumpdests: make(map[int]bool),
		opAt:      make(map[int]OpCode),
	}
	for pc := 0; pc < len(code); {
		op := OpCode(code[pc])
		img.opAt[pc] = op
		if op == JUMPDEST {
			img.jumpdests[pc] = true
		}
		if op.IsPush() {
			pc += 1 + op.PushSize()
		} else {
			pc++
		}
	}
	return img
}

// WithSourceMap attaches a PC→source mapping, used when the artifact
// decoder supplied one.
func (img *Image) WithSourceMap(m map[int]SourceLocation) *Image {
	img.sourceMap = m
	return img
}

// OpAt returns the opcode at pc, or INVALID past the end or inside a
// PUSH's immediate data.
func (img *Image) OpAt(pc int) OpCode {
	if op, ok := img.opAt[pc]; ok {
		return op
	}
	return INVALID
}

// Len returns the code length in bytes.
func (img *Image) Len() int { return len(img.Code) }

// PushData returns the immediate bytes of a PUSHn instruction at pc,
// zero-padded if the code ends mid-immediate (EVM semantics: trailing
// PUSH data past code end reads as zero).
func (img *Image) PushData(pc int) []byte {
	op := img.OpAt(pc)
	n := op.PushSize()
	out := make([]byte, n)
	start := pc + 1
	for i := 0; i < n; i++ {
		if start+i < len(img.Code) {
			out[i] = img.Code[start+i]
		}
	}
	return out
}

// ValidJumpdest reports whether pc is a legal JUMP/JUMPI target.
func (img *Image) ValidJumpdest(pc int) bool {
	if pc < 0 || pc >= len(img.Code) {
		return false
	}
	return img.jumpdests[pc]
}

// SourceAt returns the source location for pc, if a source map was
// attached.
func (img *Image) SourceAt(pc int) (SourceLocation, bool) {
	if img.sourceMap == nil {
		return SourceLocation{}, false
	}
	loc, ok := img.sourceMap[pc]
	return loc, ok
}

func (img *Image) String() string {
	return fmt.Sprintf("evmimage.Image{%d bytes, %d jumpdests}", len(img.Code), len(img.jumpdests))
}
