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

// Package storage implements the per-account storage model: a
// cold-default concrete layer, a path-local ordered overlay
// (read-after-write consistent, used for replay/debugging), and an
// array-theory symbolic-storage fallback for accounts whose full slot
// set cannot be enumerated concretely.
package storage

import (
	"fmt"

	"github.com/symbex-labs/symbex/common"
	"github.com/symbex-labs/symbex/solver"
	"github.com/symbex-labs/symbex/word"
)

type write struct {
	slot word.Word
	val  word.Word
}

// Map is one account's storage. The zero value is a valid cold account
// (every slot reads as zero).
type Map struct {
	addr     common.Address
	cold     map[[32]byte]word.Word // constructor-written / genesis-seeded concrete slots
	overlay  []write                // path-local ordered write log
	symbolic bool
	arr      *solver.Term // valid iff symbolic
}

func New(addr common.Address) *Map {
	return &Map{addr: addr, cold: make(map[[32]byte]word.Word)}
}

// SeedCold installs a constructor-time concrete value, bypassing the
// overlay — used once at deployment, before any path forks.
func (m *Map) SeedCold(slot, val word.Word) {
	if !slot.IsConcrete() {
		panic("storage: SeedCold requires a concrete slot")
	}
	m.cold[slot.Bytes32()] = val
}

// MarkSymbolic switches the account into array-theory fallback mode,
// used when the harness cannot enumerate the account's full slot set
// (e.g. a dependency contract whose storage layout is unknown).
func (m *Map) MarkSymbolic() {
	if m.symbolic {
		return
	}
	m.symbolic = true
	m.arr = solver.NewArray(fmt.Sprintf("storage[%s]", m.addr.Hex()), 256)
	for k, v := range m.cold {
		slot := word.FromBytes(k[:])
		m.arr = solver.Store(m.arr, slot.Term(), v.Term())
	}
}

// Load returns the Word at slot: the most recent overlay write if any,
// else select(array, slot) in symbolic mode, else the cold initializer
// (zero if never seeded).
func (m *Map) Load(slot word.Word) word.Word {
	if slot.IsConcrete() {
		key := slot.Bytes32()
		for i := len(m.overlay) - 1; i >= 0; i-- {
			if m.overlay[i].slot.IsConcrete() && m.overlay[i].slot.Bytes32() == key {
				return m.overlay[i].val
			}
		}
	} else {
		// A symbolic slot may alias any prior write, concrete or not;
		// build an Ite chain over the overlay so the most recent
		// matching write wins, matching the interpreter's execution
		// order.
		if v, ok := m.loadFromSymbolicOverlay(slot); ok {
			return v
		}
	}
	if m.symbolic {
		return word.Sym(solver.Select(m.arr, slot.Term()))
	}
	if slot.IsConcrete() {
		if v, ok := m.cold[slot.Bytes32()]; ok {
			return v
		}
	}
	return word.Zero
}

func (m *Map) loadFromSymbolicOverlay(slot word.Word) (word.Word, bool) {
	if len(m.overlay) == 0 {
		return word.Word{}, false
	}
	// Seed the chain with what Load falls back to for a symbolic slot:
	// select(array, slot) in symbolic mode, zero otherwise. Oldest write
	// innermost, so the most recent matching write wins.
	result := word.Zero.Term()
	if m.symbolic {
		result = solver.Select(m.arr, slot.Term())
	}
	for _, w := range m.overlay {
		result = solver.Ite(word.EqualsAssumption(slot, w.slot), w.val.Term(), result)
	}
	return word.Sym(result), true
}

// Store appends a write to the path-local overlay; it never mutates the
// cold layer or the symbolic array directly; those are only consulted
// by Load as a fallback.
func (m *Map) Store(slot, val word.Word) {
	m.overlay = append(m.overlay, write{slot: slot, val: val})
}

// Clone is a lightweight, copy-on-write handle: cloning a Map for a
// forked path copies this slice header only; the first write on either
// branch reallocates, so siblings never observe each other's stores.
func (m *Map) Clone() *Map {
	clone := &Map{
		addr:     m.addr,
		cold:     m.cold,                                       // cold never mutates post-deployment, safe to share
		overlay:  m.overlay[:len(m.overlay):len(m.overlay)], // cap pin forces a copy on next append
		symbolic: m.symbolic,
		arr:      m.arr,
	}
	return clone
}

// Store is the whole-state view the harness/vm packages hold: one Map
// per contract address, cloned as a unit when a path forks.
type Store struct {
	accounts map[common.Address]*Map
}

func NewStore() *Store {
	return &Store{accounts: make(map[common.Address]*Map)}
}

func (s *Store) Account(addr common.Address) *Map {
	m, ok := s.accounts[addr]
	if !ok {
		m = New(addr)
		s.accounts[addr] = m
	}
	return m
}

// Clone copies-on-write every account Map, used when the scheduler
// forks a Path at JUMPI or before a call/create frame that might revert
// and must not leak state back to the parent.
func (s *Store) Clone() *Store {
	clone := &Store{accounts: make(map[common.Address]*Map, len(s.accounts))}
	for addr, m := range s.accounts {
		clone.accounts[addr] = m.Clone()
	}
	return clone
}
