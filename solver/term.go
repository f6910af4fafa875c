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

// Package solver is a small expression IR shared by the
// word/bytebuf/storage packages, compiled lazily into Z3 terms only when a
// query actually needs the SMT backend (branch feasibility, model
// extraction, concretization). Concrete-only expression trees never touch
// Z3 at all.
package solver

import (
	"fmt"
	"sync"

	"github.com/holiman/uint256"
)

// Kind identifies the shape of a Term node.
type Kind int

const (
	KConst Kind = iota
	KVar
	KAdd
	KSub
	KMul
	KUDiv
	KSDiv
	KUMod
	KSMod
	KAnd
	KOr
	KXor
	KNot
	KShl
	KShr
	KSar
	KEq
	KLt
	KGt
	KSlt
	KSgt
	KIsZero
	KSignExtend
	KByte
	KIte
	KBoolAnd
	KBoolOr
	KBoolNot
	KArraySelect
	KArrayStore
	KArrayConst
)

// Term is a node in the symbolic expression tree. Width is 256 for words
// and array elements, 1 for boolean-shaped terms (path predicates), and
// unconstrained for KArrayConst/KArraySelect/KArrayStore nodes (those carry
// the element width of the array they model).
type Term struct {
	Kind  Kind
	Width int
	Args  []*Term
	Const *uint256.Int // KConst
	Name  string       // KVar

	mu  sync.Mutex
	key string // memoized canonical fingerprint, see Fingerprint
}

func NewConst(v *uint256.Int, width int) *Term {
	return &Term{Kind: KConst, Width: width, Const: v.Clone()}
}

func NewVar(name string, width int) *Term {
	return &Term{Kind: KVar, Width: width, Name: name}
}

func bin(k Kind, width int, a, b *Term) *Term {
	return &Term{Kind: k, Width: width, Args: []*Term{a, b}}
}

func Add(a, b *Term) *Term  { return bin(KAdd, 256, a, b) }
func Sub(a, b *Term) *Term  { return bin(KSub, 256, a, b) }
func Mul(a, b *Term) *Term  { return bin(KMul, 256, a, b) }
func UDiv(a, b *Term) *Term { return bin(KUDiv, 256, a, b) }
func SDiv(a, b *Term) *Term { return bin(KSDiv, 256, a, b) }
func UMod(a, b *Term) *Term { return bin(KUMod, 256, a, b) }
func SMod(a, b *Term) *Term { return bin(KSMod, 256, a, b) }
func And(a, b *Term) *Term  { return bin(KAnd, 256, a, b) }
func Or(a, b *Term) *Term   { return bin(KOr, 256, a, b) }
func Xor(a, b *Term) *Term  { return bin(KXor, 256, a, b) }
func Shl(a, b *Term) *Term  { return bin(KShl, 256, a, b) }
func Shr(a, b *Term) *Term  { return bin(KShr, 256, a, b) }
func Sar(a, b *Term) *Term  { return bin(KSar, 256, a, b) }
func Byte(i, x *Term) *Term { return bin(KByte, 256, i, x) }

func Not(a *Term) *Term { return &Term{Kind: KNot, Width: 256, Args: []*Term{a}} }

// Eq/Lt/Gt/Slt/Sgt return a 256-bit 0/1 word, matching the EVM's own
// comparison opcodes rather than a boolean result.
func Eq(a, b *Term) *Term  { return bin(KEq, 256, a, b) }
func Lt(a, b *Term) *Term  { return bin(KLt, 256, a, b) }
func Gt(a, b *Term) *Term  { return bin(KGt, 256, a, b) }
func Slt(a, b *Term) *Term { return bin(KSlt, 256, a, b) }
func Sgt(a, b *Term) *Term { return bin(KSgt, 256, a, b) }

func SignExtend(byteNum, x *Term) *Term { return bin(KSignExtend, 256, byteNum, x) }

// IsZero returns a first-class boolean predicate (width 1), used directly
// by branch conditions to avoid a 256-bit comparison round trip.
func IsZero(a *Term) *Term {
	return &Term{Kind: KIsZero, Width: 1, Args: []*Term{a}}
}

func BoolAnd(a, b *Term) *Term { return &Term{Kind: KBoolAnd, Width: 1, Args: []*Term{a, b}} }
func BoolOr(a, b *Term) *Term  { return &Term{Kind: KBoolOr, Width: 1, Args: []*Term{a, b}} }
func BoolNot(a *Term) *Term    { return &Term{Kind: KBoolNot, Width: 1, Args: []*Term{a}} }

func Ite(cond, t, f *Term) *Term {
	return &Term{Kind: KIte, Width: t.Width, Args: []*Term{cond, t, f}}
}

// NewArray creates an uninterpreted array-theory term over 256-bit keys and
// the given element width, used by storage's symbolic-storage fallback
// and bytebuf's symbolic-offset promotion.
func NewArray(name string, elemWidth int) *Term {
	return &Term{Kind: KArrayConst, Width: elemWidth, Name: name}
}

func Select(arr, idx *Term) *Term {
	return &Term{Kind: KArraySelect, Width: arr.Width, Args: []*Term{arr, idx}}
}

func Store(arr, idx, val *Term) *Term {
	return &Term{Kind: KArrayStore, Width: arr.Width, Args: []*Term{arr, idx, val}}
}

// IsConst reports whether t folds to a known constant without consulting
// the solver — the concrete-fast-path gate every word.Word operation
// checks first.
func (t *Term) IsConst() bool { return t.Kind == KConst }

// Fingerprint returns a canonical string key used by the solver facade's
// result cache. It is memoized since the same sub-term is frequently
// re-queried across sibling paths.
func (t *Term) Fingerprint() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.key != "" {
		return t.key
	}
	switch t.Kind {
	case KConst:
		t.key = fmt.Sprintf("c%d:%s", t.Width, t.Const.Hex())
	case KVar:
		t.key = fmt.Sprintf("v%d:%s", t.Width, t.Name)
	case KArrayConst:
		t.key = fmt.Sprintf("a%d:%s", t.Width, t.Name)
	default:
		s := fmt.Sprintf("%d/%d(", t.Kind, t.Width)
		for _, a := range t.Args {
			s += a.Fingerprint() + ","
		}
		t.key = s + ")"
	}
	return t.key
}
