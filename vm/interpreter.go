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

// Package vm generalizes a concrete EVM interpreter into one that,
// instead of executing a single transaction to completion, advances
// one Path by exactly one instruction per Step call and hands control
// back to a scheduler that owns everything about which path runs next
// and how branches fork.
package vm

import (
	"context"
	"fmt"

	"github.com/symbex-labs/symbex/common"
	"github.com/symbex-labs/symbex/evmimage"
	"github.com/symbex-labs/symbex/solver"
	"github.com/symbex-labs/symbex/word"

	symlog "github.com/symbex-labs/symbex/log"
)

// Limits are the interpreter-local bounds, independent of the
// scheduler's own path-count/wall-time bounds: how many admissible
// values a single concretization may enumerate and how many times one
// frame may revisit the same JUMPDEST before the path is abandoned as
// an unrolled loop.
type Limits struct {
	ConcretizationBound int
	LoopBound           uint64
}

var DefaultLimits = Limits{ConcretizationBound: 4, LoopBound: 64}

// Interpreter is the stateless (per-Step) instruction dispatcher; all
// mutable exploration state lives on the Path it is given. One
// Interpreter is shared by every Path a worker goroutine advances.
type Interpreter struct {
	ctx    context.Context
	table  *JumpTable
	limits Limits
	images map[common.Address]*evmimage.Image // deployed contracts visible to EXTCODE*/CALL target resolution
	log    symlog.Logger

	nextID int
	spawn  func(*Path) // scheduler hook: enqueue a newly forked sibling path
}

func New(ctx context.Context, limits Limits, images map[common.Address]*evmimage.Image, spawn func(*Path)) *Interpreter {
	return &Interpreter{
		ctx:    ctx,
		table:  &defaultJumpTable,
		limits: limits,
		images: images,
		log:    symlog.New("pkg", "vm"),
		spawn:  spawn,
	}
}

func (ip *Interpreter) nextPathID() int {
	ip.nextID++
	return ip.nextID
}

// NextPathID hands out a fresh path identifier to a caller outside this
// package — the scheduler, when it forks a JUMPI child itself rather
// than through concretizeJump/maybeConcretizeExp.
func (ip *Interpreter) NextPathID() int { return ip.nextPathID() }

// SetSpawn installs the scheduler's fork hook. One Interpreter is owned
// by exactly one worker goroutine, so this is only ever called once,
// right after New and before the first Step.
func (ip *Interpreter) SetSpawn(spawn func(*Path)) { ip.spawn = spawn }

// StepWithContext is Step with the query context overridden for the
// duration of the call — the scheduler's per-path wall-time deadline
// rather than the interpreter's own background context. Safe because an
// Interpreter is never driven by more than one goroutine at a time.
func (ip *Interpreter) StepWithContext(ctx context.Context, p *Path) (StepResult, error) {
	prev := ip.ctx
	ip.ctx = ctx
	defer func() { ip.ctx = prev }()
	return ip.Step(p)
}

// Step advances p until either a scheduler-relevant event occurs
// (StepAdvance within the still-active top frame, StepBranch at a
// symbolic JUMPI, or the root frame halting) or an error occurs. A
// sub-call/create opened by CALL/CREATE and the eventual halt of a
// non-root frame are both resolved internally — from the scheduler's
// point of view a call that stays within modeled contracts is invisible
// plumbing, framing Call/Create as "a new frame", not as an event the
// worklist itself must branch on.
func (ip *Interpreter) Step(p *Path) (StepResult, error) {
	for {
		res, err := ip.stepOnce(p)
		if err != nil {
			return StepResult{}, err
		}
		switch res.Kind {
		case StepCall:
			if err := ip.handleCall(p, res.Call); err != nil {
				return StepResult{}, err
			}
			continue
		case StepCreate:
			if err := ip.handleCreate(p, res.Call); err != nil {
				return StepResult{}, err
			}
			continue
		case StepHalt:
			if len(p.Frames) > 1 {
				ip.popFrameWithResult(p, res.Halt)
				continue
			}
			p.Halt = res.Halt
			return res, nil
		case StepBranch:
			ip.resolveBranch(p, res.Branch)
			return res, nil
		default:
			return res, nil
		}
	}
}

// stepOnce fetches and dispatches exactly one opcode in p's active
// frame: fetch the opcode, check stack depth against the operation's
// declared bounds, special-case the two spots where a purely symbolic
// operand forces the concretize-and-fork protocol (JUMP target, EXP
// exponent; a symbolic JUMPI target is an error), then dispatch to the
// operation's handler.
func (ip *Interpreter) stepOnce(p *Path) (StepResult, error) {
	f := p.Active()
	op := f.Image.OpAt(int(f.PC))
	o := ip.table[op]

	if o.execute == nil {
		return StepResult{Kind: StepHalt, Halt: &Halt{Kind: HaltReverted, Reason: RevertRaw}}, nil
	}
	if f.Stack.len() < o.minStack {
		return StepResult{Kind: StepHalt, Halt: &Halt{Kind: HaltReverted, Reason: RevertRaw}}, nil
	}
	if f.Stack.len() > o.maxStack {
		return StepResult{Kind: StepHalt, Halt: &Halt{Kind: HaltReverted, Reason: RevertRaw}}, nil
	}
	if o.writes && f.Static {
		return StepResult{Kind: StepHalt, Halt: &Halt{Kind: HaltReverted, Reason: RevertRaw}}, nil
	}

	if op == evmimage.JUMPDEST {
		f.LoopCounts[f.PC]++
		if f.LoopCounts[f.PC] > ip.limits.LoopBound {
			return StepResult{Kind: StepHalt, Halt: &Halt{Kind: HaltUnknown, Unknown: UnknownLoopBound}}, nil
		}
	}

	if op == evmimage.EXP {
		if res, handled, err := ip.maybeConcretizeExp(f, p); handled {
			return res, err
		}
	}

	res, delta, err := o.execute(ip, f, p)
	if err != nil {
		return StepResult{}, fmt.Errorf("vm: step at pc=%d op=%s: %w", f.PC, op, err)
	}
	if res.Kind == StepAdvance && !o.jumps {
		f.PC += uint64(delta)
	}
	p.Trace = append(p.Trace, TraceEntry{FrameDepth: f.Depth(), PC: f.PC, Op: op.String()})
	return res, nil
}

// resolveBranch is the branch oracle: ask feasibility of each side
// under p's current path condition before the scheduler commits to
// forking. Querying both sides here, once, means the scheduler itself
// never talks to the solver directly.
func (ip *Interpreter) resolveBranch(p *Path, b *BranchSpec) {
	b.TrueFeasible = p.Solver.Feasible(ip.ctx, b.Cond) != solver.Unsat
	b.FalseFeasible = p.Solver.Feasible(ip.ctx, solver.BoolNot(b.Cond)) != solver.Unsat
}

// concretizeJump implements JUMP's symbolic-target path: enumerate
// admissible concrete destinations under the current path condition,
// advance p onto the first and fork one sibling path per remaining
// value with the corresponding equality assumption asserted. Exhausting
// the bound without exhausting feasibility halts the path
// Unknown(concretization).
func (ip *Interpreter) concretizeJump(f *Frame, p *Path, dest word.Word) (StepResult, int, error) {
	values, exhausted, err := word.Concretize(ip.ctx, p.Solver, dest, ip.limits.ConcretizationBound)
	if err != nil {
		return StepResult{}, 0, err
	}
	if len(values) == 0 {
		return StepResult{Kind: StepHalt, Halt: &Halt{Kind: HaltUnknown, Unknown: UnknownConcretization}}, 0, nil
	}
	if !exhausted {
		return StepResult{Kind: StepHalt, Halt: &Halt{Kind: HaltUnknown, Unknown: UnknownConcretization}}, 0, nil
	}
	for _, v := range values[1:] {
		child := p.Fork(ip.nextPathID())
		child.Solver.Assert(word.EqualsAssumption(dest, v))
		cf := child.Active()
		pc := v.Uint256().Uint64()
		if !cf.Image.ValidJumpdest(int(pc)) {
			child.Halt = &Halt{Kind: HaltReverted, Reason: RevertRaw}
		} else {
			cf.PC = pc
		}
		ip.spawn(child)
	}
	first := values[0]
	p.Solver.Assert(word.EqualsAssumption(dest, first))
	pc := first.Uint256().Uint64()
	if !f.Image.ValidJumpdest(int(pc)) {
		return StepResult{Kind: StepHalt, Halt: &Halt{Kind: HaltReverted, Reason: RevertRaw}}, 0, nil
	}
	f.PC = pc
	return StepResult{Kind: StepAdvance}, 0, nil
}

// maybeConcretizeExp peeks EXP's exponent operand (the second stack
// item, since EXP has not popped anything yet) and, if it is symbolic,
// runs the same concretize-and-fork protocol as concretizeJump before
// handing control back to opExp on each resulting path with a
// now-concrete exponent.
func (ip *Interpreter) maybeConcretizeExp(f *Frame, p *Path) (StepResult, bool, error) {
	exp := f.Stack.peek(1)
	if exp.IsConcrete() {
		return StepResult{}, false, nil
	}
	values, exhausted, err := word.Concretize(ip.ctx, p.Solver, exp, ip.limits.ConcretizationBound)
	if err != nil {
		return StepResult{}, true, err
	}
	if len(values) == 0 {
		return StepResult{Kind: StepHalt, Halt: &Halt{Kind: HaltUnknown, Unknown: UnknownConcretization}}, true, nil
	}
	if !exhausted {
		return StepResult{Kind: StepHalt, Halt: &Halt{Kind: HaltUnknown, Unknown: UnknownConcretization}}, true, nil
	}
	base := f.Stack.peek(0)
	for _, v := range values[1:] {
		child := p.Fork(ip.nextPathID())
		child.Solver.Assert(word.EqualsAssumption(exp, v))
		cf := child.Active()
		cf.Stack.pop()
		cf.Stack.pop()
		cf.Stack.push(word.Exp(base, v))
		cf.PC++
		ip.spawn(child)
	}
	first := values[0]
	p.Solver.Assert(word.EqualsAssumption(exp, first))
	f.Stack.pop()
	f.Stack.pop()
	f.Stack.push(word.Exp(base, first))
	f.PC++
	return StepResult{Kind: StepAdvance}, true, nil
}
