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

import "github.com/symbex-labs/symbex/word"

// Stack is the EVM's 1024-deep operand stack, holding symbolic
// word.Word cells.
type Stack struct {
	data []word.Word
}

func newStack() *Stack { return &Stack{data: make([]word.Word, 0, 16)} }

func (st *Stack) push(w word.Word) { st.data = append(st.data, w) }

func (st *Stack) pop() word.Word {
	n := len(st.data) - 1
	w := st.data[n]
	st.data = st.data[:n]
	return w
}

func (st *Stack) len() int             { return len(st.data) }
func (st *Stack) peek(n int) word.Word { return st.data[len(st.data)-1-n] }

func (st *Stack) swap(n int) {
	top := len(st.data) - 1
	st.data[top], st.data[top-n] = st.data[top-n], st.data[top]
}

func (st *Stack) dup(n int) { st.push(st.peek(n - 1)) }

func (st *Stack) clone() *Stack {
	c := make([]word.Word, len(st.data))
	copy(c, st.data)
	return &Stack{data: c}
}
