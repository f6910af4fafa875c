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

package solver

import (
	"context"
	"fmt"
	"time"

	"github.com/aclements/go-z3/z3"
	"github.com/holiman/uint256"
)

// z3Backend owns the Z3 context. One per solver.Context.
type z3Backend struct {
	cfg *z3.Config
	ctx *z3.Context
}

func newZ3Backend() (*z3Backend, error) {
	cfg := z3.NewContextConfig()
	ctx := z3.NewContext(cfg)
	return &z3Backend{cfg: cfg, ctx: ctx}, nil
}

func (b *z3Backend) close() {
	// z3.Context has no explicit Close in the upstream binding; the
	// underlying C context is released by the Go finalizer.
}

func (b *z3Backend) newSolver() *z3Solver {
	return &z3Solver{
		s:     z3.NewSolver(b.ctx),
		cache: map[string]z3.Value{},
	}
}

// z3Solver wraps a live z3.Solver plus a per-Term-fingerprint AST cache so
// that re-asserting or re-querying the same sub-expression across sibling
// branches doesn't re-walk the tree.
type z3Solver struct {
	s     *z3.Solver
	cache map[string]z3.Value
}

func (zs *z3Solver) push() { zs.s.Push() }
func (zs *z3Solver) pop()  { zs.s.Pop(1) }

func (zs *z3Solver) assert(b *z3Backend, t *Term) {
	ast := zs.compile(b, t)
	if bv, ok := ast.(z3.Bool); ok {
		zs.s.Assert(bv)
		return
	}
	// width-1 BV used as a boolean predicate: compare against zero.
	bv := ast.(z3.BV)
	zs.s.Assert(bv.NE(b.ctx.FromInt(0, bv.Sort()).(z3.BV)))
}

func (zs *z3Solver) checkSat(ctx context.Context, timeout time.Duration) Verdict {
	done := make(chan z3.Sat, 1)
	go func() {
		sat, err := zs.s.Check()
		if err != nil {
			done <- z3.Unknown
			return
		}
		done <- sat
	}()
	select {
	case sat := <-done:
		switch sat {
		case z3.Sat:
			return Sat
		case z3.Unsat:
			return Unsat
		default:
			return Unknown
		}
	case <-time.After(timeout):
		return Unknown
	case <-ctx.Done():
		return Unknown
	}
}

func (zs *z3Solver) model(b *z3Backend, terms []*Term) (map[string]*uint256.Int, error) {
	m := zs.s.Model()
	if m == nil {
		return nil, fmt.Errorf("solver: no model available (stack not Sat)")
	}
	out := make(map[string]*uint256.Int, len(terms))
	for _, t := range terms {
		ast := zs.compile(b, t)
		bv, ok := ast.(z3.BV)
		if !ok {
			continue
		}
		val := m.Eval(bv, true).(z3.BV)
		big, isLit := val.AsBigUnsigned()
		if !isLit {
			return nil, fmt.Errorf("solver: model term %s did not evaluate to a literal", t.Name)
		}
		u, overflow := uint256.FromBig(big)
		if overflow {
			u = &uint256.Int{}
		}
		out[t.Fingerprint()] = u
	}
	return out, nil
}

// compile lazily lowers a Term tree into a Z3 AST, memoized by fingerprint
// for the lifetime of this solver (and therefore of the path that owns
// it — a forked child gets a fresh z3Solver, with the parent's
// assertions replayed into it, instead of sharing this cache across
// paths).
func (zs *z3Solver) compile(b *z3Backend, t *Term) z3.Value {
	key := t.Fingerprint()
	if v, ok := zs.cache[key]; ok {
		return v
	}
	v := zs.compileUncached(b, t)
	zs.cache[key] = v
	return v
}

func (zs *z3Solver) compileUncached(b *z3Backend, t *Term) z3.Value {
	ctx := b.ctx
	switch t.Kind {
	case KConst:
		sort := ctx.BVSort(t.Width)
		return ctx.FromBigInt(t.Const.ToBig(), sort)
	case KVar:
		return ctx.Const(t.Name, ctx.BVSort(t.Width)).(z3.BV)
	case KArrayConst:
		sort := ctx.ArraySort(ctx.BVSort(256), ctx.BVSort(t.Width))
		return ctx.Const(t.Name, sort)
	case KArraySelect:
		arr := zs.compile(b, t.Args[0]).(z3.Array)
		idx := zs.compile(b, t.Args[1]).(z3.BV)
		return arr.Select(idx)
	case KArrayStore:
		arr := zs.compile(b, t.Args[0]).(z3.Array)
		idx := zs.compile(b, t.Args[1]).(z3.BV)
		val := zs.compile(b, t.Args[2]).(z3.BV)
		return arr.Store(idx, val)
	}

	a := zs.compile(b, t.Args[0])
	switch t.Kind {
	case KNot:
		return a.(z3.BV).Not()
	case KIsZero:
		av := a.(z3.BV)
		zero := ctx.FromInt(0, av.Sort()).(z3.BV)
		return boolToBV(ctx, av.Eq(zero), t.Width)
	case KBoolNot:
		// Bool-shaped terms are always represented as width-1 BVs, not
		// z3.Bool, so every KBool* node composes uniformly with KIsZero
		// and the comparison operators without a Bool/BV split.
		return a.(z3.BV).Not()
	}

	bv0 := zs.compile(b, t.Args[1])
	switch t.Kind {
	case KAdd:
		return a.(z3.BV).Add(bv0.(z3.BV))
	case KSub:
		return a.(z3.BV).Sub(bv0.(z3.BV))
	case KMul:
		return a.(z3.BV).Mul(bv0.(z3.BV))
	case KUDiv:
		return a.(z3.BV).UDiv(bv0.(z3.BV))
	case KSDiv:
		return a.(z3.BV).SDiv(bv0.(z3.BV))
	case KUMod:
		return a.(z3.BV).URem(bv0.(z3.BV))
	case KSMod:
		return a.(z3.BV).SRem(bv0.(z3.BV))
	case KAnd:
		return a.(z3.BV).And(bv0.(z3.BV))
	case KOr:
		return a.(z3.BV).Or(bv0.(z3.BV))
	case KXor:
		return a.(z3.BV).Xor(bv0.(z3.BV))
	case KShl:
		return a.(z3.BV).Lsh(bv0.(z3.BV))
	case KShr:
		return a.(z3.BV).URsh(bv0.(z3.BV))
	case KSar:
		return a.(z3.BV).SRsh(bv0.(z3.BV))
	case KEq:
		return boolToBV(ctx, a.(z3.BV).Eq(bv0.(z3.BV)), t.Width)
	case KLt:
		return boolToBV(ctx, a.(z3.BV).ULT(bv0.(z3.BV)), t.Width)
	case KGt:
		return boolToBV(ctx, a.(z3.BV).UGT(bv0.(z3.BV)), t.Width)
	case KSlt:
		return boolToBV(ctx, a.(z3.BV).SLT(bv0.(z3.BV)), t.Width)
	case KSgt:
		return boolToBV(ctx, a.(z3.BV).SGT(bv0.(z3.BV)), t.Width)
	case KSignExtend:
		n, x := a.(z3.BV), bv0.(z3.BV)
		sort := x.Sort()
		shift := ctx.FromInt(31, sort).(z3.BV).Sub(n).Mul(ctx.FromInt(8, sort).(z3.BV))
		return n.ULT(ctx.FromInt(31, sort).(z3.BV)).IfThenElse(x.Lsh(shift).SRsh(shift), x)
	case KByte:
		i, x := a.(z3.BV), bv0.(z3.BV)
		sort := x.Sort()
		shift := ctx.FromInt(31, sort).(z3.BV).Sub(i).Mul(ctx.FromInt(8, sort).(z3.BV))
		val := x.URsh(shift).And(ctx.FromInt(0xff, sort).(z3.BV))
		return i.ULT(ctx.FromInt(32, sort).(z3.BV)).IfThenElse(val, ctx.FromInt(0, sort).(z3.BV))
	case KBoolAnd:
		return a.(z3.BV).And(bv0.(z3.BV))
	case KBoolOr:
		return a.(z3.BV).Or(bv0.(z3.BV))
	}

	// Ite is the one ternary shape; its condition is a width-1 BV, so it
	// is first compared against zero to get the z3.Bool IfThenElse wants.
	if t.Kind == KIte {
		condBV := a.(z3.BV)
		zero := ctx.FromInt(0, condBV.Sort()).(z3.BV)
		cond := condBV.NE(zero)
		then := zs.compile(b, t.Args[1]).(z3.BV)
		els := zs.compile(b, t.Args[2]).(z3.BV)
		return cond.IfThenElse(then, els)
	}
	panic(fmt.Sprintf("solver: unreachable term kind %d", t.Kind))
}

func boolToBV(ctx *z3.Context, cond z3.Bool, width int) z3.BV {
	one := ctx.FromInt(1, ctx.BVSort(width)).(z3.BV)
	zero := ctx.FromInt(0, ctx.BVSort(width)).(z3.BV)
	return cond.IfThenElse(one, zero)
}
