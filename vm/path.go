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

package vm

import (
	"github.com/symbex-labs/symbex/environment"
	"github.com/symbex-labs/symbex/solver"
	"github.com/symbex-labs/symbex/storage"
)

// TraceEntry is one interpreter step recorded for witness/debug output.
type TraceEntry struct {
	FrameDepth int
	PC         uint64
	Op         string
}

// Path is the unit of exploration: an ordered frame stack plus the
// path-condition handle (the solver.Solver already carries the
// accumulated assertion stack) and a trace buffer. Paths never merge —
// forking always produces two independent Path values sharing no
// mutable state.
type Path struct {
	ID int

	Frames []*Frame // Frames[len-1] is the active frame; Frames[0] is the entry frame
	Store  *storage.Store
	Env    *environment.Env
	Cheat  *environment.CheatState

	Solver *solver.Solver

	Halt *Halt // nil while still live

	Trace []TraceEntry

	depthSteps int // total interpreter steps taken, the scheduler's depth bound
}

func (p *Path) Active() *Frame     { return p.Frames[len(p.Frames)-1] }
func (p *Path) PushFrame(f *Frame) { p.Frames = append(p.Frames, f) }

func (p *Path) PopFrame() *Frame {
	n := len(p.Frames) - 1
	f := p.Frames[n]
	p.Frames = p.Frames[:n]
	return f
}

func (p *Path) IsLive() bool { return p.Halt == nil }

// Steps reports how many interpreter steps this path has executed so
// far, the scheduler's depth-bound accounting.
func (p *Path) Steps() uint64 { return uint64(p.depthSteps) }

// IncSteps records one more executed step.
func (p *Path) IncSteps() { p.depthSteps++ }

// Fork creates a child Path whose solver starts with this path's
// assertions up to this point (Solver.Fork replays them into a fresh
// solver, so the child and any sibling are independent) and deep-copies every other piece of mutable
// state, consistent with storage.Map / bytebuf.Buffer / environment.Env
// all exposing their own Clone.
func (p *Path) Fork(newID int) *Path {
	frames := make([]*Frame, len(p.Frames))
	for i, f := range p.Frames {
		frames[i] = f.Clone()
	}
	return &Path{
		ID:         newID,
		Frames:     frames,
		Store:      p.Store.Clone(),
		Env:        p.Env.Clone(),
		Cheat:      p.Cheat.Clone(),
		Solver:     p.Solver.Fork(),
		Trace:      append([]TraceEntry{}, p.Trace...),
		depthSteps: p.depthSteps,
	}
}
