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
	"crypto/sha256"
	"fmt"
	"time"

	"github.com/VictoriaMetrics/fastcache"
	"github.com/holiman/uint256"

	symlog "github.com/symbex-labs/symbex/log"
)

// Verdict is the outcome of a branch-oracle or check-sat query.
type Verdict int

const (
	Unsat Verdict = iota
	Sat
	Unknown
)

func (v Verdict) String() string {
	switch v {
	case Sat:
		return "sat"
	case Unsat:
		return "unsat"
	default:
		return "unknown"
	}
}

// Config are the facade's tunables.
type Config struct {
	TimeoutMS   uint64
	MaxMemoryMB uint64
	Incremental bool
	CacheSizeMB int
}

var DefaultConfig = Config{TimeoutMS: 2000, MaxMemoryMB: 1024, Incremental: true, CacheSizeMB: 64}

// Context owns one Z3 backend instance and the result cache shared by every
// Solver spun off it. A Context (and everything derived from it) is owned
// exclusively by a single worker goroutine.
type Context struct {
	cfg     Config
	backend *z3Backend
	cache   *fastcache.Cache
	log     symlog.Logger
}

func NewContext(cfg Config) (*Context, error) {
	backend, err := newZ3Backend()
	if err != nil {
		return nil, fmt.Errorf("solver: starting z3 backend: %w", err)
	}
	return &Context{
		cfg:     cfg,
		backend: backend,
		cache:   fastcache.New(cfg.CacheSizeMB * 1024 * 1024),
		log:     symlog.New("pkg", "solver"),
	}, nil
}

func (c *Context) Close() {
	c.backend.close()
	c.cache.Reset()
}

// NewSolver opens an assertion stack. The returned Solver is not safe for
// concurrent use, matching the single-worker-per-path-tree model this
// engine drives each path with.
func (c *Context) NewSolver() *Solver {
	return &Solver{
		ctx:      c,
		z3:       c.backend.newSolver(),
		assumed:  []*Term{},
		stackSum: sha256.Sum256(nil),
	}
}

// Solver is one worker's assertion stack plus the fingerprint accumulator
// used for result caching.
type Solver struct {
	ctx      *Context
	z3       *z3Solver
	assumed  []*Term  // flat log of every asserted term since the last full reset
	stackSum [32]byte // rolling hash of the current assertion stack
}

// Fork returns an independent Solver over the same Context (sharing its
// result cache) whose assertion stack replays every term asserted on s
// so far. A true incremental fork would instead share the live Z3
// assertion stack across siblings; this implementation always takes the
// simpler full-replay path and relies on the Context-level result cache to
// absorb the redundant work, which is sound but not maximally fast.
func (s *Solver) Fork() *Solver {
	child := s.ctx.NewSolver()
	for _, t := range s.assumed {
		child.Assert(t)
	}
	return child
}

func (s *Solver) Push() {
	s.z3.push()
}

func (s *Solver) Pop() {
	s.z3.pop()
}

// Assert adds pred (a width-1 boolean term) as a hard constraint.
func (s *Solver) Assert(pred *Term) {
	s.assumed = append(s.assumed, pred)
	s.stackSum = sha256.Sum256(append(s.stackSum[:], []byte(pred.Fingerprint())...))
	s.z3.assert(s.ctx.backend, pred)
}

// CheckSat runs a bounded satisfiability check of the current assertion
// stack, honoring the per-query timeout. A cancelled ctx aborts the query
// and reports Unknown.
func (s *Solver) CheckSat(ctx context.Context) Verdict {
	timeout := time.Duration(s.ctx.cfg.TimeoutMS) * time.Millisecond
	return s.z3.checkSat(ctx, timeout)
}

// Feasible is the branch oracle: does pred hold under the current path
// condition? Results are cached by a canonical fingerprint of (assertion
// stack, predicate). Unknown is treated as Sat for safety (the caller
// still explores that side) but the caller should tag any terminal halt on
// that branch with SolverTimeout if no concrete model surfaces.
func (s *Solver) Feasible(ctx context.Context, pred *Term) Verdict {
	key := append(append([]byte{}, s.stackSum[:]...), []byte(pred.Fingerprint())...)
	if cached, ok := s.ctx.cache.HasGet(nil, key); ok {
		return Verdict(cached[0])
	}
	s.Push()
	s.Assert(pred)
	v := s.CheckSat(ctx)
	s.Pop()
	// Undo the bookkeeping Assert performed for the trial predicate; it was
	// never meant to join the permanent stack.
	s.assumed = s.assumed[:len(s.assumed)-1]
	s.stackSum = rollingSum(s.assumed)

	effective := v
	if v == Unknown {
		effective = Sat
	}
	s.ctx.cache.Set(key, []byte{byte(effective)})
	return v
}

func rollingSum(terms []*Term) [32]byte {
	h := sha256.Sum256(nil)
	for _, t := range terms {
		h = sha256.Sum256(append(h[:], []byte(t.Fingerprint())...))
	}
	return h
}

// Model extracts a concrete value per requested term under the current
// assertion stack. Callers must have already established Sat via CheckSat
// or Feasible.
func (s *Solver) Model(ctx context.Context, terms ...*Term) (map[string]*uint256.Int, error) {
	return s.z3.model(s.ctx.backend, terms)
}

// Concretize enumerates up to bound admissible concrete values for a
// symbolic term under the current path condition: it repeatedly solves,
// records the model value, and excludes it before resolving again.
// Exceeding the bound without exhausting feasibility means the caller
// should halt the path Bounded(concretization).
func (s *Solver) Concretize(ctx context.Context, t *Term, bound int) ([]*uint256.Int, bool, error) {
	savedLen, savedSum := len(s.assumed), s.stackSum
	var values []*uint256.Int
	for i := 0; i < bound; i++ {
		s.Push()
		for _, excluded := range values {
			s.Assert(BoolNot(IsZero(Sub(t, NewConst(excluded, 256)))))
		}
		verdict := s.CheckSat(ctx)
		if verdict != Sat {
			s.Pop()
			s.assumed = s.assumed[:savedLen]
			s.stackSum = savedSum
			return values, true, nil
		}
		model, err := s.Model(ctx, t)
		s.Pop()
		// Undo the bookkeeping Assert calls performed for the exclusion
		// predicates; they were scratch terms for this enumeration loop,
		// never meant to join the permanent stack that Fork and Feasible's
		// cache key both rely on.
		s.assumed = s.assumed[:savedLen]
		s.stackSum = savedSum
		if err != nil {
			return values, false, err
		}
		val, ok := model[t.Fingerprint()]
		if !ok {
			return values, false, fmt.Errorf("solver: model missing value for %s", t.Fingerprint())
		}
		values = append(values, val)
	}
	return values, false, nil
}
