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

// Package scheduler drives one property function's tree of symbolic
// paths to completion on a single worker, enforcing the bounds
// assigned to that worker — a worklist of vm.Path values whose
// children are not known up front, since unlike a fixed batch of jobs
// a path's children are discovered by stepping it.
package scheduler

import (
	"container/list"
	"context"
	"time"

	mapset "github.com/deckarep/golang-set/v2"

	symlog "github.com/symbex-labs/symbex/log"
	"github.com/symbex-labs/symbex/solver"
	"github.com/symbex-labs/symbex/vm"
)

// Order selects the worklist's pop discipline. DFS is the default:
// pop the most recently pushed path, so sibling forks
// from the same branch point are explored back-to-back and the live
// set stays shallow. FIFO explores breadth-first instead; both orders
// are deterministic.
type Order int

const (
	DFS Order = iota
	FIFO
)

// Bounds are the three limits a worker enforces on one property
// function's exploration, independent of vm.Limits' interpreter-local
// concretization/loop bounds.
type Bounds struct {
	DepthBound   uint64        // max instructions executed on a single path
	WidthBound   int           // max live paths at any instant
	PathWallTime time.Duration // per-path wall-clock budget; zero disables it
}

var DefaultBounds = Bounds{DepthBound: 100_000, WidthBound: 4096, PathWallTime: 30 * time.Second}

// Scheduler drives exactly one property function's exploration on the
// calling goroutine: a single function's paths are single-threaded
// cooperative on one worker; concurrency across functions is the
// harness's concern (one Scheduler per worker goroutine, each with its
// own Interpreter and solver.Context).
type Scheduler struct {
	ip     *vm.Interpreter
	bounds Bounds
	order  Order
	log    symlog.Logger

	worklist *list.List      // of *vm.Path
	live     mapset.Set[int] // path IDs currently in the worklist or being stepped

	onHalt func(*vm.Path) // the aggregator callback passed to the in-flight Run
}

func New(ip *vm.Interpreter, bounds Bounds, order Order) *Scheduler {
	return &Scheduler{
		ip:       ip,
		bounds:   bounds,
		order:    order,
		log:      symlog.New("pkg", "scheduler"),
		worklist: list.New(),
		live:     mapset.NewSet[int](),
	}
}

// Spawn is the vm.Interpreter's spawn hook: a forked sibling path is
// admitted to the worklist unless doing so would exceed the width
// bound, in which case it is halted Bounded(width) immediately and
// still delivered to onHalt so the harness sees it.
func (s *Scheduler) spawn(onHalt func(*vm.Path)) func(*vm.Path) {
	return func(child *vm.Path) {
		if s.live.Cardinality() >= s.bounds.WidthBound {
			child.Halt = &vm.Halt{Kind: vm.HaltUnknown, Unknown: vm.UnknownWidthBound}
			onHalt(child)
			return
		}
		s.live.Add(child.ID)
		s.push(child)
	}
}

func (s *Scheduler) push(p *vm.Path) {
	if s.order == FIFO {
		s.worklist.PushBack(p)
	} else {
		s.worklist.PushBack(p) // DFS pops from the back too; see pop
	}
}

func (s *Scheduler) pop() *vm.Path {
	var e *list.Element
	if s.order == DFS {
		e = s.worklist.Back()
	} else {
		e = s.worklist.Front()
	}
	s.worklist.Remove(e)
	return e.Value.(*vm.Path)
}

// Run pumps root and every path it forks until the worklist is empty
// or ctx is cancelled (the harness's per-function wall-time budget).
// onHalt is invoked exactly once per terminal path, including paths
// pruned at birth by the width bound and paths abandoned on
// cancellation (tagged UnknownWallTime). Cancellation is checked at
// each worklist pop, so it is prompt within one step rather than one
// solver-query boundary when the interpreter itself is mid-query.
func (s *Scheduler) Run(ctx context.Context, root *vm.Path, onHalt func(*vm.Path)) {
	s.onHalt = onHalt
	spawn := s.spawn(onHalt)
	s.ip.SetSpawn(spawn)

	s.live.Add(root.ID)
	s.push(root)

	for s.worklist.Len() > 0 {
		select {
		case <-ctx.Done():
			s.drainAsUnknown(onHalt, vm.UnknownWallTime)
			return
		default:
		}

		p := s.pop()
		s.live.Remove(p.ID)

		deadline := ctx
		var cancel context.CancelFunc
		if s.bounds.PathWallTime > 0 {
			deadline, cancel = context.WithTimeout(ctx, s.bounds.PathWallTime)
		}
		halt := s.drive(deadline, p)
		if cancel != nil {
			cancel()
		}
		if halt != nil {
			p.Halt = halt
			onHalt(p)
		}
	}
}

// drive steps p until it halts, the depth bound is exceeded, or the
// path's own wall-time deadline expires. A nil return means p forked
// (StepBranch) and is no longer this function's concern — p's own
// continuation was pushed back onto the worklist and the other child
// was handed to spawn.
func (s *Scheduler) drive(ctx context.Context, p *vm.Path) *vm.Halt {
	for {
		select {
		case <-ctx.Done():
			return &vm.Halt{Kind: vm.HaltUnknown, Unknown: vm.UnknownWallTime}
		default:
		}

		if p.Steps() >= s.bounds.DepthBound {
			return &vm.Halt{Kind: vm.HaltUnknown, Unknown: vm.UnknownDepthBound}
		}

		res, err := s.ip.StepWithContext(ctx, p)
		if err != nil {
			s.log.Error("interpreter error, degrading path to engine-unknown", "path", p.ID, "err", err)
			return &vm.Halt{Kind: vm.HaltUnknown, Unknown: vm.UnknownSolverTimeout}
		}
		p.IncSteps()

		switch res.Kind {
		case vm.StepHalt:
			return res.Halt
		case vm.StepBranch:
			s.forkBranch(p, res.Branch)
			return nil
		default:
			// StepAdvance: the interpreter already absorbed any
			// StepCall/StepCreate/non-root StepHalt internally.
		}
	}
}

// forkBranch applies the true/false branch oracle verdicts the
// interpreter already computed (vm.Interpreter.Step resolves
// feasibility before returning StepBranch) by assuming each feasible
// side on its own path and admitting both to the worklist; an
// infeasible side is simply dropped, never halted or reported, per
// branch-oracle contract.
func (s *Scheduler) forkBranch(p *vm.Path, b *vm.BranchSpec) {
	spawn := s.spawn(s.onHalt)

	if b.TrueFeasible && b.FalseFeasible {
		falseChild := p.Fork(s.ip.NextPathID())
		falseChild.Solver.Assert(solver.BoolNot(b.Cond))
		falseChild.Active().SetPC(b.FalsePC)
		p.Solver.Assert(b.Cond)
		p.Active().SetPC(b.TruePC)
		s.live.Add(p.ID)
		s.push(p)
		spawn(falseChild)
		return
	}
	if b.TrueFeasible {
		p.Solver.Assert(b.Cond)
		p.Active().SetPC(b.TruePC)
	} else {
		p.Solver.Assert(solver.BoolNot(b.Cond))
		p.Active().SetPC(b.FalsePC)
	}
	s.live.Add(p.ID)
	s.push(p)
}

// drainAsUnknown empties the worklist on a cancelled context,
// reporting every still-live path UnknownWallTime rather than
// silently dropping it.
func (s *Scheduler) drainAsUnknown(onHalt func(*vm.Path), reason vm.UnknownReason) {
	for s.worklist.Len() > 0 {
		p := s.pop()
		s.live.Remove(p.ID)
		p.Halt = &vm.Halt{Kind: vm.HaltUnknown, Unknown: reason}
		onHalt(p)
	}
}
