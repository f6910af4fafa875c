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

// Package bytebuf implements the symbolic byte buffer used for memory,
// calldata and returndata. A Buffer starts out in a dense []word.Word
// representation and is promoted once, permanently, to an array-theory
// representation on its first symbolic-offset access — after which every
// access goes through the solver as select/store.
package bytebuf

import (
	"fmt"

	"github.com/holiman/uint256"

	"github.com/symbex-labs/symbex/solver"
	"github.com/symbex-labs/symbex/word"
)

// Buffer is a byte-addressable, possibly symbolic-length region. The
// zero value is not usable; construct with New or NewSymbolicLength.
type Buffer struct {
	dense    []word.Word // byte-granularity cells; nil once promoted
	arr      *solver.Term
	arrName  string
	promoted bool

	// length is concrete for memory and returndata (it only ever grows
	// by concrete amounts the interpreter computes) and may be symbolic
	// for calldata synthesized against a dynamic-type length bound.
	length    word.Word
	boundHint int // upper bound on a symbolic length, for enumeration callers
}

// New constructs a dense buffer pre-seeded with initial bytes, used for
// memory (starts empty) and for calldata/returndata when their content
// is wholly concrete.
func New(initial []byte) *Buffer {
	cells := make([]word.Word, len(initial))
	for i, bb := range initial {
		cells[i] = word.FromUint64(uint64(bb))
	}
	return &Buffer{dense: cells, length: word.FromUint64(uint64(len(initial)))}
}

// NewSymbolicLength constructs a buffer whose logical length is a fresh
// bounded free variable — the calldata synthesizer's representation for
// a property function argument of dynamic type. Content cells are
// likewise fresh variables named name+"[i]".
func NewSymbolicLength(name string, bound int) *Buffer {
	cells := make([]word.Word, bound)
	for i := range cells {
		cells[i] = word.NewSymbolic(fmt.Sprintf("%s[%d]", name, i))
	}
	lenVar := word.NewSymbolic(name + ".len")
	return &Buffer{dense: cells, length: lenVar, boundHint: bound}
}

// LenBound returns the declared upper bound for a symbolic-length
// buffer's backing storage (the concrete length for a dense buffer of
// fixed length), used by callers that must cap reads into the tail.
func (b *Buffer) LenBound() int {
	if b.promoted || !b.length.IsConcrete() {
		return b.boundHint
	}
	return int(b.length.Uint256().Uint64())
}

func (b *Buffer) Len() word.Word    { return b.length }
func (b *Buffer) IsPromoted() bool { return b.promoted }

// Clone deep-copies the buffer so a forked path's writes never alias
// the parent's, matching the copy-on-clone discipline of storage.Map.
func (b *Buffer) Clone() *Buffer {
	c := &Buffer{
		promoted:  b.promoted,
		arr:       b.arr,
		arrName:   b.arrName,
		length:    b.length,
		boundHint: b.boundHint,
	}
	if b.dense != nil {
		c.dense = make([]word.Word, len(b.dense))
		copy(c.dense, b.dense)
	}
	return c
}

// promote converts the dense representation into an array-theory term,
// seeding it with a Store per known concrete cell. Idempotent.
func (b *Buffer) promote() {
	if b.promoted {
		return
	}
	b.arrName = fmt.Sprintf("buf%p", b)
	arr := solver.NewArray(b.arrName, 8)
	for i, cell := range b.dense {
		arr = solver.Store(arr, solver.NewConst(uint256.NewInt(uint64(i)), 256), cell.Term())
	}
	b.arr = arr
	b.dense = nil
	b.promoted = true
}

// ReadByte returns the byte at offset, zero if offset falls at or past
// the logical length of a buffer whose length is itself symbolic or
// whose offset is symbolic past the known dense extent.
func (b *Buffer) ReadByte(offset word.Word) word.Word {
	if !b.promoted && offset.IsConcrete() {
		idx := offset.Uint256().Uint64()
		if b.length.IsConcrete() && idx >= b.length.Uint256().Uint64() {
			return word.Zero
		}
		if int(idx) < len(b.dense) {
			if b.length.IsConcrete() {
				return b.dense[idx]
			}
			inBounds := solver.BoolNot(solver.IsZero(solver.Lt(offset.Term(), b.length.Term())))
			return word.Sym(solver.Ite(inBounds, b.dense[idx].Term(), word.Zero.Term()))
		}
		return word.Zero
	}
	b.promote()
	sel := word.Sym(solver.Select(b.arr, offset.Term()))
	if b.length.IsConcrete() {
		return sel
	}
	// Symbolic length: reads past the logical length read as zero
	// regardless of what the backing array holds there.
	inBounds := solver.BoolNot(solver.IsZero(solver.Lt(offset.Term(), b.length.Term())))
	return word.Sym(solver.Ite(inBounds, sel.Term(), word.Zero.Term()))
}

// ReadWord reads 32 consecutive bytes starting at offset, big-endian,
// EVM's MLOAD/CALLDATALOAD semantics.
func (b *Buffer) ReadWord(offset word.Word) word.Word {
	if offset.IsConcrete() && !b.promoted {
		start := offset.Uint256().Uint64()
		var buf [32]byte
		for i := 0; i < 32; i++ {
			cell := b.ReadByte(word.FromUint64(start + uint64(i)))
			if !cell.IsConcrete() {
				return b.readWordSymbolic(offset)
			}
			buf[i] = byte(cell.Uint256().Uint64())
		}
		return word.FromBytes(buf[:])
	}
	return b.readWordSymbolic(offset)
}

func (b *Buffer) readWordSymbolic(offset word.Word) word.Word {
	// Build the 256-bit word as repeated shift-and-or of the 32 byte
	// selects/reads, most significant byte first.
	acc := word.Zero
	for i := 0; i < 32; i++ {
		off := word.Add(offset, word.FromUint64(uint64(i)))
		byteVal := b.ReadByte(off)
		acc = word.Or(word.Shl(word.FromUint64(8), acc), byteVal)
	}
	return acc
}

// WriteByte stores val's low byte at offset. A symbolic offset promotes
// the buffer to array-theory representation permanently.
func (b *Buffer) WriteByte(offset word.Word, val word.Word) {
	if offset.IsConcrete() && !b.promoted {
		idx := offset.Uint256().Uint64()
		b.growDense(idx + 1)
		b.dense[idx] = maskByte(val)
		return
	}
	b.promote()
	b.arr = solver.Store(b.arr, offset.Term(), maskByte(val).Term())
}

func maskByte(val word.Word) word.Word {
	if val.IsConcrete() {
		return word.FromUint64(val.Uint256().Uint64() & 0xff)
	}
	return word.Sym(solver.And(val.Term(), solver.NewConst(uint256.NewInt(0xff), 256)))
}

// WriteWord stores val as 32 big-endian bytes starting at offset.
func (b *Buffer) WriteWord(offset word.Word, val word.Word) {
	if val.IsConcrete() {
		buf := val.Bytes32()
		for i, bb := range buf {
			b.WriteByte(word.Add(offset, word.FromUint64(uint64(i))), word.FromUint64(uint64(bb)))
		}
		return
	}
	for i := 0; i < 32; i++ {
		shiftBy := (31 - i) * 8
		shifted := word.Shr(word.FromUint64(uint64(shiftBy)), val)
		b.WriteByte(word.Add(offset, word.FromUint64(uint64(i))), maskByte(shifted))
	}
}

// growDense extends the dense backing with zero cells up to n bytes,
// and widens the concrete logical length to match (EVM MSTORE/MSTORE8
// semantics: memory grows to fit the write).
func (b *Buffer) growDense(n uint64) {
	for uint64(len(b.dense)) < n {
		b.dense = append(b.dense, word.Zero)
	}
	if b.length.IsConcrete() && b.length.Uint256().Uint64() < n {
		b.length = word.FromUint64(n)
	}
}

// WriteBytes writes a contiguous run of byte-words starting at offset,
// the shape CALLDATACOPY/CODECOPY/EXTCODECOPY/RETURNDATACOPY all share,
// generalized to possibly-symbolic elements.
func (b *Buffer) WriteBytes(offset word.Word, data []word.Word) {
	for i, cell := range data {
		b.WriteByte(word.Add(offset, word.FromUint64(uint64(i))), cell)
	}
}

// ReadBytes returns size consecutive byte-words starting at offset. size
// must be concrete (callers concretize a symbolic copy length before
// calling).
func (b *Buffer) ReadBytes(offset word.Word, size int) []word.Word {
	out := make([]word.Word, size)
	for i := 0; i < size; i++ {
		out[i] = b.ReadByte(word.Add(offset, word.FromUint64(uint64(i))))
	}
	return out
}

// Copy implements *COPY-family semantics: src's bytes starting at
// srcOffset, size bytes, written into b at destOffset. Copying symbolic
// source bytes into a concrete destination preserves the symbolic terms;
// a symbolic destination promotes b.
func (b *Buffer) Copy(destOffset word.Word, src *Buffer, srcOffset word.Word, size int) {
	b.WriteBytes(destOffset, src.ReadBytes(srcOffset, size))
}
