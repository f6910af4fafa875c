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

// Package harness generalizes a one-shot "build an interpreter, feed it
// a transaction, print the result" driver into per-property-function
// orchestration: deploy every supplied contract, run setUp, synthesize
// calldata for each discovered property function, pump the scheduler
// over every resulting path, and fold the terminal records into one
// Verdict per function.
package harness

import (
	"context"
	"fmt"
	"sort"

	"github.com/symbex-labs/symbex/abi"
	"github.com/symbex-labs/symbex/artifact"
	"github.com/symbex-labs/symbex/bytebuf"
	"github.com/symbex-labs/symbex/common"
	"github.com/symbex-labs/symbex/crypto"
	"github.com/symbex-labs/symbex/environment"
	"github.com/symbex-labs/symbex/evmimage"
	symlog "github.com/symbex-labs/symbex/log"
	"github.com/symbex-labs/symbex/scheduler"
	"github.com/symbex-labs/symbex/solver"
	"github.com/symbex-labs/symbex/storage"
	"github.com/symbex-labs/symbex/vm"
	"github.com/symbex-labs/symbex/word"
)

// Config bounds and shapes one Driver.Run call, gathering the
// per-run knobs the CLI surface and worker-mode config document both
// expose.
type Config struct {
	Bounds       scheduler.Bounds
	Order        scheduler.Order
	InterpLimits vm.Limits
	SolverConfig solver.Config
	Synth        abi.Config

	PropertyPrefixes []string // e.g. {"test_", "check_", "invariant_", "fuzz_"}

	// SymbolicStorage marks every deployed account's storage
	// array-theory-symbolic instead of cold-concrete-zero.
	SymbolicStorage bool

	// SenderCandidates approximates a genuinely symbolic msg.sender:
	// this engine's Env.MsgSender is a concrete common.Address, not a
	// free symbolic word, so a symbolic sender is approximated by
	// running every property function once per candidate address
	// instead of once with a free variable. A single deployer address
	// is used when this is empty.
	SenderCandidates []common.Address
}

var defaultDeployer = common.BytesToAddress(crypto.Keccak256([]byte("symbex:deployer"))[12:])

// DefaultConfig mirrors scheduler.DefaultBounds/vm.DefaultLimits/
// solver.DefaultConfig/abi.DefaultConfig, narrowed to the property
// prefixes forge-std's own naming convention uses.
var DefaultConfig = Config{
	Bounds:           scheduler.DefaultBounds,
	Order:            scheduler.DFS,
	InterpLimits:     vm.DefaultLimits,
	SolverConfig:     solver.DefaultConfig,
	Synth:            abi.DefaultConfig,
	PropertyPrefixes: []string{"test_", "check_", "invariant_", "fuzz_"},
	SenderCandidates: []common.Address{defaultDeployer},
}

// Driver runs every property function of one specification contract
// against a fixed set of deployed contracts. A Driver (and the
// solver.Context/vm.Interpreter it owns) belongs to a single worker
// goroutine; running several specification contracts concurrently
// means one Driver per goroutine.
type Driver struct {
	cfg Config
	log symlog.Logger
}

func New(cfg Config) *Driver {
	if len(cfg.SenderCandidates) == 0 {
		cfg.SenderCandidates = []common.Address{defaultDeployer}
	}
	return &Driver{cfg: cfg, log: symlog.New("pkg", "harness")}
}

// AddressForName derives the deterministic deployment address this
// harness uses for a named contract, so property functions can address
// it by value without this engine ever executing a real CREATE for it.
func AddressForName(name string) common.Address {
	return common.BytesToAddress(crypto.Keccak256([]byte("contract:" + name))[12:])
}

// Run executes every discovered property function of contracts[specName]
// against the full contracts set and returns one Verdict per function,
// sorted by name for deterministic output.
func (d *Driver) Run(ctx context.Context, specName string, contracts map[string]artifact.Contract, allow []string) ([]Verdict, error) {
	spec, ok := contracts[specName]
	if !ok {
		return nil, fmt.Errorf("harness: no contract named %q in the supplied artifact set", specName)
	}

	images := make(map[common.Address]*evmimage.Image, len(contracts))
	addrs := make(map[string]common.Address, len(contracts))
	for name, c := range contracts {
		addr := AddressForName(name)
		addrs[name] = addr
		images[addr] = c.Image
	}
	specAddr := addrs[specName]

	solverCtx, err := solver.NewContext(d.cfg.SolverConfig)
	if err != nil {
		return nil, fmt.Errorf("harness: starting solver: %w", err)
	}
	defer solverCtx.Close()

	interp := vm.New(ctx, d.cfg.InterpLimits, images, func(*vm.Path) {})
	sched := scheduler.New(interp, d.cfg.Bounds, d.cfg.Order)

	roots, err := d.runSetUp(ctx, interp, sched, solverCtx, spec, specAddr, images)
	if err != nil {
		return nil, err
	}

	synth := abi.NewCalldataSynthesizer(d.cfg.Synth)
	functions := spec.PropertyFunctions(d.cfg.PropertyPrefixes, allow)

	verdicts := make([]Verdict, 0, len(functions))
	for _, m := range functions {
		v, err := d.runFunction(ctx, sched, spec.Image, specAddr, m, synth, roots)
		if err != nil {
			return nil, fmt.Errorf("harness: running %s: %w", m.Name, err)
		}
		verdicts = append(verdicts, v)
	}
	sort.Slice(verdicts, func(i, j int) bool { return verdicts[i].Function < verdicts[j].Function })
	return verdicts, nil
}

// runSetUp executes the specification contract's setUp, if it
// declares one, and returns the set of post-setUp root paths the
// property functions each fork from. setUp is expected to settle on a
// single concrete path; if the scheduler forks it anyway, every
// surviving fork becomes an independent root. A fork that itself fails
// (reverts or is classified an assertion failure) cannot establish
// usable state and is dropped with a warning rather than silently
// producing an all-zero-storage root.
func (d *Driver) runSetUp(ctx context.Context, interp *vm.Interpreter, sched *scheduler.Scheduler, solverCtx *solver.Context, spec artifact.Contract, specAddr common.Address, images map[common.Address]*evmimage.Image) ([]*vm.Path, error) {
	base := d.newRootPath(0, solverCtx, defaultDeployer)
	if d.cfg.SymbolicStorage {
		for addr := range images {
			base.Store.Account(addr).MarkSymbolic()
		}
	}

	setUp, ok := spec.SetUp()
	if !ok {
		return []*vm.Path{base}, nil
	}

	sel := setUp.Selector()
	frame := vm.NewFrame(spec.Image, specAddr, defaultDeployer, word.Zero, bytebuf.New(sel[:]), false, 0)
	base.PushFrame(frame)

	var halted []*vm.Path
	sched.Run(ctx, base, func(p *vm.Path) { halted = append(halted, p) })

	var roots []*vm.Path
	for _, p := range halted {
		switch p.Halt.Kind {
		case vm.HaltReturned:
			if len(p.Frames) > 0 {
				p.PopFrame()
			}
			roots = append(roots, p)
		case vm.HaltUnknown:
			d.log.Warn("setUp ended Unknown, using its state as a root anyway", "reason", p.Halt.Unknown.String())
			if len(p.Frames) > 0 {
				p.PopFrame()
			}
			roots = append(roots, p)
		default:
			d.log.Warn("setUp fork failed, dropping it as a property root", "halt", p.Halt.Kind.String())
		}
	}
	if len(roots) == 0 {
		return nil, fmt.Errorf("harness: setUp produced no usable root path")
	}
	return roots, nil
}

// runFunction synthesizes calldata for m against every (root ×
// sender-candidate) pair, drives each to completion, and aggregates
// the resulting terminal paths into one Verdict.
func (d *Driver) runFunction(ctx context.Context, sched *scheduler.Scheduler, specImage *evmimage.Image, specAddr common.Address, m abi.Method, synth *abi.CalldataSynthesizer, roots []*vm.Path) (Verdict, error) {
	result, err := synth.Synthesize(m)
	if err != nil {
		return Verdict{Function: m.Name, Status: Unknown, Reason: "engine: " + err.Error()}, nil
	}

	var terminal []*vm.Path
	var nextID int
	for _, root := range roots {
		for _, sender := range d.cfg.SenderCandidates {
			nextID++
			child := root.Fork(nextID)
			for _, a := range result.Assumptions {
				child.Solver.Assert(a)
			}
			child.Env.MsgSender = sender
			child.Env.TxOrigin = sender
			child.PushFrame(vm.NewFrame(specImage, specAddr, sender, word.Zero, result.Calldata, false, 0))
			sched.Run(ctx, child, func(p *vm.Path) { terminal = append(terminal, p) })
		}
	}

	return d.aggregate(ctx, m, result, terminal), nil
}

// aggregate folds terminal paths into one verdict: a pruned path
// contributes nothing; any Fail-classified path wins outright, with
// the first one found (in deterministic root/sender iteration order)
// supplying the attached witness; absent a failure, any Unknown path
// degrades the verdict; otherwise every path Verified and the function
// Passes.
func (d *Driver) aggregate(ctx context.Context, m abi.Method, result abi.Result, terminal []*vm.Path) Verdict {
	v := Verdict{Function: m.Name}
	var firstFailPath *vm.Path
	var firstFailReason string
	var sawUnknown bool
	var unknownReason string
	explored, pruned := 0, 0

	for _, p := range terminal {
		switch classify(p) {
		case clsPruned:
			pruned++
			continue
		case clsAssertionFailed:
			explored++
			if firstFailPath == nil {
				firstFailPath, firstFailReason = p, "assertion-failed"
			}
		case clsUnexpectedRevert:
			explored++
			if firstFailPath == nil {
				firstFailPath, firstFailReason = p, "unexpected-revert"
			}
		case clsExpectRevertUnfired:
			explored++
			if firstFailPath == nil {
				firstFailPath, firstFailReason = p, "expected-revert-unfired"
			}
		case clsUnknown:
			explored++
			sawUnknown = true
			unknownReason = p.Halt.Unknown.String()
		default: // clsVerified
			explored++
		}
	}

	v.PathsExplored, v.PathsPruned = explored, pruned

	if firstFailPath != nil {
		v.Status = Fail
		v.Reason = firstFailReason
		v.Witness = buildWitness(ctx, firstFailPath, m, result)
		return v
	}
	if sawUnknown {
		v.Status = Unknown
		v.Reason = unknownReason
		return v
	}
	v.Status = Pass
	return v
}

func (d *Driver) newRootPath(id int, solverCtx *solver.Context, origin common.Address) *vm.Path {
	return &vm.Path{
		ID:     id,
		Store:  storage.NewStore(),
		Env:    environment.New(origin),
		Cheat:  environment.NewCheatState(),
		Solver: solverCtx.NewSolver(),
	}
}
