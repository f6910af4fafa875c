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

// Package word implements the 256-bit word algebra: a tagged union of a
// concrete uint256.Int and a symbolic solver.Term, with every operation
// taking the concrete fast path whenever all of its inputs are concrete
// and falling back to building an expression tree otherwise.
package word

import (
	"context"
	"fmt"

	"github.com/holiman/uint256"

	"github.com/symbex-labs/symbex/solver"
)

// Word is exactly one of concrete or symbolic, never both.
type Word struct {
	conc *uint256.Int
	sym  *solver.Term
}

// Zero is the concrete zero word, EVM's default value for uninitialized
// stack slots, storage slots and calldata tails.
var Zero = FromUint64(0)

func FromBig(v *uint256.Int) Word { return Word{conc: v.Clone()} }

func FromUint64(v uint64) Word { return Word{conc: uint256.NewInt(v)} }

// FromBytes interprets b as a big-endian, left-padded 256-bit integer.
func FromBytes(b []byte) Word {
	return Word{conc: new(uint256.Int).SetBytes(b)}
}

// Sym wraps a solver.Term of width 256 as a fully symbolic word.
func Sym(t *solver.Term) Word { return Word{sym: t} }

// NewSymbolic creates a fresh free variable, used by the ABI calldata
// synthesizer and the environment package to seed unconstrained inputs.
func NewSymbolic(name string) Word {
	return Word{sym: solver.NewVar(name, 256)}
}

func (w Word) IsConcrete() bool { return w.conc != nil }

// Uint256 returns the concrete value; callers must have checked
// IsConcrete first (concretization happens in the interpreter, not here).
func (w Word) Uint256() *uint256.Int {
	if w.conc == nil {
		panic("word: Uint256 called on a symbolic Word")
	}
	return w.conc
}

// Term returns the solver representation of w, lifting a concrete word
// into a KConst term on demand so mixed expressions can be built without
// the caller branching on IsConcrete everywhere.
func (w Word) Term() *solver.Term {
	if w.sym != nil {
		return w.sym
	}
	return solver.NewConst(w.conc, 256)
}

func (w Word) Bytes32() [32]byte {
	if w.conc == nil {
		panic("word: Bytes32 called on a symbolic Word")
	}
	var out [32]byte
	w.conc.WriteToSlice(out[:])
	return out
}

func (w Word) String() string {
	if w.conc != nil {
		return w.conc.Hex()
	}
	return fmt.Sprintf("sym(%s)", w.sym.Fingerprint())
}

func binConc(op func(z, x, y *uint256.Int) *uint256.Int, a, b Word) (Word, bool) {
	if a.conc == nil || b.conc == nil {
		return Word{}, false
	}
	var z uint256.Int
	op(&z, a.conc, b.conc)
	return Word{conc: &z}, true
}

func binSym(kind func(a, b *solver.Term) *solver.Term, a, b Word) Word {
	return Word{sym: kind(a.Term(), b.Term())}
}

func Add(a, b Word) Word {
	if r, ok := binConc(func(z, x, y *uint256.Int) *uint256.Int { return z.Add(x, y) }, a, b); ok {
		return r
	}
	return binSym(solver.Add, a, b)
}

func Sub(a, b Word) Word {
	if r, ok := binConc(func(z, x, y *uint256.Int) *uint256.Int { return z.Sub(x, y) }, a, b); ok {
		return r
	}
	return binSym(solver.Sub, a, b)
}

func Mul(a, b Word) Word {
	if r, ok := binConc(func(z, x, y *uint256.Int) *uint256.Int { return z.Mul(x, y) }, a, b); ok {
		return r
	}
	return binSym(solver.Mul, a, b)
}

// Div is EVM DIV: unsigned, division by zero yields zero.
func Div(a, b Word) Word {
	if a.conc != nil && b.conc != nil {
		if b.conc.IsZero() {
			return Zero
		}
		var z uint256.Int
		z.Div(a.conc, b.conc)
		return Word{conc: &z}
	}
	if b.IsConcrete() && b.Uint256().IsZero() {
		return Zero
	}
	return binSym(solver.UDiv, a, b)
}

// SDiv is EVM SDIV: two's-complement signed division, division by zero
// yields zero, and MinInt256/-1 yields MinInt256 (overflow wraps).
func SDiv(a, b Word) Word {
	if a.conc != nil && b.conc != nil {
		if b.conc.IsZero() {
			return Zero
		}
		var z uint256.Int
		z.SDiv(a.conc, b.conc)
		return Word{conc: &z}
	}
	if b.IsConcrete() && b.Uint256().IsZero() {
		return Zero
	}
	return binSym(solver.SDiv, a, b)
}

func Mod(a, b Word) Word {
	if a.conc != nil && b.conc != nil {
		if b.conc.IsZero() {
			return Zero
		}
		var z uint256.Int
		z.Mod(a.conc, b.conc)
		return Word{conc: &z}
	}
	if b.IsConcrete() && b.Uint256().IsZero() {
		return Zero
	}
	return binSym(solver.UMod, a, b)
}

func SMod(a, b Word) Word {
	if a.conc != nil && b.conc != nil {
		if b.conc.IsZero() {
			return Zero
		}
		var z uint256.Int
		z.SMod(a.conc, b.conc)
		return Word{conc: &z}
	}
	if b.IsConcrete() && b.Uint256().IsZero() {
		return Zero
	}
	return binSym(solver.SMod, a, b)
}

func And(a, b Word) Word {
	if r, ok := binConc(func(z, x, y *uint256.Int) *uint256.Int { return z.And(x, y) }, a, b); ok {
		return r
	}
	return binSym(solver.And, a, b)
}

func Or(a, b Word) Word {
	if r, ok := binConc(func(z, x, y *uint256.Int) *uint256.Int { return z.Or(x, y) }, a, b); ok {
		return r
	}
	return binSym(solver.Or, a, b)
}

func Xor(a, b Word) Word {
	if r, ok := binConc(func(z, x, y *uint256.Int) *uint256.Int { return z.Xor(x, y) }, a, b); ok {
		return r
	}
	return binSym(solver.Xor, a, b)
}

func Not(a Word) Word {
	if a.conc != nil {
		var z uint256.Int
		z.Not(a.conc)
		return Word{conc: &z}
	}
	return Word{sym: solver.Not(a.Term())}
}

// Shl/Shr/Sar take (shift, value) in EVM operand order.
func Shl(shift, a Word) Word {
	if r, ok := binConc(func(z, x, y *uint256.Int) *uint256.Int { return z.Lsh(y, uint(clampShift(x))) }, shift, a); ok {
		return r
	}
	return Word{sym: solver.Shl(a.Term(), shift.Term())}
}

func Shr(shift, a Word) Word {
	if r, ok := binConc(func(z, x, y *uint256.Int) *uint256.Int { return z.Rsh(y, uint(clampShift(x))) }, shift, a); ok {
		return r
	}
	return Word{sym: solver.Shr(a.Term(), shift.Term())}
}

func Sar(shift, a Word) Word {
	if shift.conc != nil && a.conc != nil {
		n := clampShift(shift.conc)
		var z uint256.Int
		if a.conc.Sign() >= 0 {
			z.Rsh(a.conc, uint(n))
		} else if n >= 256 {
			z.SetAllOne()
		} else {
			z.SRsh(a.conc, uint(n))
		}
		return Word{conc: &z}
	}
	return Word{sym: solver.Sar(a.Term(), shift.Term())}
}

func clampShift(x *uint256.Int) int {
	if x.GtUint64(256) {
		return 256
	}
	return int(x.Uint64())
}

// Eq/Lt/Gt/Slt/Sgt return a 256-bit 0/1 word — comparison is not
// boolean-typed at this layer; IsZeroPredicate is the boolean door.
func Eq(a, b Word) Word {
	if r, ok := binConc(func(z, x, y *uint256.Int) *uint256.Int { return boolWord(z, x.Eq(y)) }, a, b); ok {
		return r
	}
	return binSym(solver.Eq, a, b)
}

func Lt(a, b Word) Word {
	if r, ok := binConc(func(z, x, y *uint256.Int) *uint256.Int { return boolWord(z, x.Lt(y)) }, a, b); ok {
		return r
	}
	return binSym(solver.Lt, a, b)
}

func Gt(a, b Word) Word {
	if r, ok := binConc(func(z, x, y *uint256.Int) *uint256.Int { return boolWord(z, x.Gt(y)) }, a, b); ok {
		return r
	}
	return binSym(solver.Gt, a, b)
}

func Slt(a, b Word) Word {
	if r, ok := binConc(func(z, x, y *uint256.Int) *uint256.Int { return boolWord(z, x.Slt(y)) }, a, b); ok {
		return r
	}
	return binSym(solver.Slt, a, b)
}

func Sgt(a, b Word) Word {
	if r, ok := binConc(func(z, x, y *uint256.Int) *uint256.Int { return boolWord(z, x.Sgt(y)) }, a, b); ok {
		return r
	}
	return binSym(solver.Sgt, a, b)
}

func boolWord(z *uint256.Int, b bool) *uint256.Int {
	if b {
		return z.SetOne()
	}
	return z.Clear()
}

// IsZeroPredicate returns a first-class solver boolean (width-1 term),
// used directly by JUMPI so the interpreter never round-trips through a
// 256-bit comparison just to fork a branch.
func IsZeroPredicate(a Word) *solver.Term {
	if a.conc != nil {
		return solver.NewConst(boolConst(a.conc.IsZero()), 1)
	}
	return solver.IsZero(a.sym)
}

func boolConst(b bool) *uint256.Int {
	if b {
		return uint256.NewInt(1)
	}
	return uint256.NewInt(0)
}

func IsZero(a Word) Word {
	if a.conc != nil {
		return Word{conc: boolConst(a.conc.IsZero())}
	}
	return Word{sym: solver.IsZero(a.sym)}
}

// SignExtend implements EVM SIGNEXTEND(byteNum, x): sign-extends x from
// the (byteNum+1)-th byte (0-indexed from the least significant byte).
func SignExtend(byteNum, x Word) Word {
	if byteNum.conc != nil && x.conc != nil {
		if byteNum.conc.GtUint64(31) {
			return x
		}
		var z uint256.Int
		z.ExtendSign(x.conc, byteNum.conc)
		return Word{conc: &z}
	}
	return binSym(solver.SignExtend, byteNum, x)
}

// Byte implements EVM BYTE(i, x): the i-th byte of x counting from the
// most significant byte, or zero if i >= 32.
func Byte(i, x Word) Word {
	if i.conc != nil && x.conc != nil {
		if i.conc.GtUint64(31) {
			return Zero
		}
		idx := i.conc.Uint64()
		b := x.conc.Byte(uint(idx))
		return FromUint64(uint64(b))
	}
	return binSym(solver.Byte, i, x)
}

// Exp implements EVM EXP. A fully symbolic exponent is refused outright:
// the caller must concretize it first via Concretize and fork once per
// admissible value, recording the equality as an assumption on each
// resulting branch.
func Exp(base, exp Word) Word {
	if base.conc != nil && exp.conc != nil {
		var z uint256.Int
		z.Exp(base.conc, exp.conc)
		return Word{conc: &z}
	}
	if exp.conc != nil {
		result, b := FromUint64(1), base
		for e := new(uint256.Int).Set(exp.conc); !e.IsZero(); e.Rsh(e, 1) {
			if e.Uint64()&1 == 1 {
				result = Mul(result, b)
			}
			b = Mul(b, b)
		}
		return result
	}
	panic("word: Exp requires a concrete exponent; concretize via Concretize first")
}

// Concretize enumerates admissible concrete values for a symbolic word
// under the solver's current path condition. bound caps the number of
// models requested; exhausted==false with len(values)==bound means the
// caller must halt the path UNKNOWN(concretization).
func Concretize(ctx context.Context, s *solver.Solver, w Word, bound int) (values []Word, exhausted bool, err error) {
	if w.conc != nil {
		return []Word{w}, true, nil
	}
	raw, exhausted, err := s.Concretize(ctx, w.sym, bound)
	if err != nil {
		return nil, false, err
	}
	out := make([]Word, len(raw))
	for i, v := range raw {
		out[i] = Word{conc: v}
	}
	return out, exhausted, nil
}

// EqualsAssumption builds the equality predicate w==v, asserted by the
// caller as the path-forking assumption accompanying one concretized
// branch.
func EqualsAssumption(w, v Word) *solver.Term {
	return solver.IsZero(solver.Sub(w.Term(), v.Term()))
}
