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

// Package environment holds the block/transaction context and the
// cheatcode dispatch table addressed at the well-known magic address,
// recognized by the interpreter ahead of ordinary call dispatch.
package environment

import (
	"github.com/symbex-labs/symbex/common"
	"github.com/symbex-labs/symbex/word"
)

// Env is the mutable block/transaction context a Path carries. Every
// field is independently overridable by a cheatcode, and every
// override is path-local — forking a Path clones Env by value.
type Env struct {
	BlockNumber    word.Word
	BlockTimestamp word.Word
	Coinbase       common.Address
	PrevRandao     word.Word
	BaseFee        word.Word

	TxOrigin  common.Address
	MsgSender common.Address // effective sender of the current frame
	MsgValue  word.Word      // effective value of the current frame

	Balances map[common.Address]word.Word
}

func New(origin common.Address) *Env {
	return &Env{
		BlockNumber:    word.FromUint64(1),
		BlockTimestamp: word.FromUint64(1),
		PrevRandao:     word.Zero,
		BaseFee:        word.FromUint64(1_000_000_000),
		TxOrigin:       origin,
		MsgSender:      origin,
		MsgValue:       word.Zero,
		Balances:       make(map[common.Address]word.Word),
	}
}

// Clone produces a path-local copy; the Balances map is the one
// reference-typed field and is copied explicitly so sibling paths never
// observe each other's deal calls.
func (e *Env) Clone() *Env {
	c := *e
	c.Balances = make(map[common.Address]word.Word, len(e.Balances))
	for k, v := range e.Balances {
		c.Balances[k] = v
	}
	return &c
}

func (e *Env) BalanceOf(addr common.Address) word.Word {
	if v, ok := e.Balances[addr]; ok {
		return v
	}
	return word.Zero
}

func (e *Env) SetBalance(addr common.Address, v word.Word) {
	e.Balances[addr] = v
}

// PrankState tracks the one-shot and persistent forms of vm.prank,
// consumed by the interpreter immediately before dispatching the next
// external CALL/DELEGATECALL/STATICCALL/CALLCODE from the frame that
// armed them.
type PrankState struct {
	Once       *common.Address
	Persistent *common.Address
}

// NextSender returns the sender CALL should use, consuming the one-shot
// prank if armed.
func (p *PrankState) NextSender(fallback common.Address) common.Address {
	if p.Once != nil {
		addr := *p.Once
		p.Once = nil
		return addr
	}
	if p.Persistent != nil {
		return *p.Persistent
	}
	return fallback
}

func (p *PrankState) Clone() *PrankState {
	c := &PrankState{}
	if p.Once != nil {
		v := *p.Once
		c.Once = &v
	}
	if p.Persistent != nil {
		v := *p.Persistent
		c.Persistent = &v
	}
	return c
}

// RevertMatcher describes what the next external call's revert payload
// must match for an armed expectRevert to be satisfied.
type RevertMatcher struct {
	Any      bool // expectRevert with no argument: any revert satisfies it
	Payload  []byte // expectRevert(bytes): exact revert data match
	Selector *[4]byte
}

// CheatState is the armed-expectation and assumption bookkeeping the
// cheatcode layer mutates, cloned alongside Env on every path fork.
type CheatState struct {
	Prank        PrankState
	ExpectRevert *RevertMatcher // nil unless armed
	Assumptions  []*word.Word   // recorded vm.assume predicates, for trace/debugging only; enforcement happens via solver.Assert at call time
}

func NewCheatState() *CheatState { return &CheatState{} }

func (c *CheatState) Clone() *CheatState {
	clone := &CheatState{
		Prank:       *c.Prank.Clone(),
		Assumptions: append([]*word.Word{}, c.Assumptions...),
	}
	if c.ExpectRevert != nil {
		m := *c.ExpectRevert
		clone.ExpectRevert = &m
	}
	return clone
}

// ArmExpectRevert records a pending expectation; matched against the
// next external call's terminal outcome by the caller (vm package).
func (c *CheatState) ArmExpectRevert(m RevertMatcher) {
	c.ExpectRevert = &m
}

// ConsumeExpectRevert clears and returns the armed matcher, if any.
func (c *CheatState) ConsumeExpectRevert() *RevertMatcher {
	m := c.ExpectRevert
	c.ExpectRevert = nil
	return m
}

// Matches reports whether a call that reverted with data satisfies this
// matcher.
func (m *RevertMatcher) Matches(data []byte) bool {
	if m.Any {
		return true
	}
	if m.Selector != nil {
		return len(data) >= 4 && [4]byte{data[0], data[1], data[2], data[3]} == *m.Selector
	}
	if m.Payload != nil {
		return string(data) == string(m.Payload)
	}
	return false
}
