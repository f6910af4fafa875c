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

package harness

import (
	"context"
	"fmt"

	"github.com/holiman/uint256"

	"github.com/symbex-labs/symbex/abi"
	"github.com/symbex-labs/symbex/solver"
	"github.com/symbex-labs/symbex/vm"
	"github.com/symbex-labs/symbex/word"
)

// buildWitness extracts a concrete counterexample from a failing path:
// every free symbolic argument word is resolved against the path's own
// assertion stack via Solver.Model, named by the property function's
// own parameter names rather than raw calldata offsets. A
// model-extraction failure degrades gracefully to an empty argument
// set rather than losing the rest of the witness (trace, revert data),
// since the witness is already best-effort diagnostic output, not
// something the verdict itself depends on.
func buildWitness(ctx context.Context, p *vm.Path, m abi.Method, result abi.Result) *Witness {
	w := &Witness{
		Args:       make(map[string]ArgValue, len(m.Inputs)),
		RevertData: p.Halt.Data,
		Trace:      p.Trace,
	}

	var terms []*solver.Term
	for _, argWord := range result.ArgWords {
		if !argWord.IsConcrete() {
			terms = append(terms, argWord.Term())
		}
	}

	var model map[string]*uint256.Int
	if len(terms) > 0 {
		if p.Solver.CheckSat(ctx) == solver.Sat {
			if m2, err := p.Solver.Model(ctx, terms...); err == nil {
				model = m2
			}
		}
	}

	for i, argWord := range result.ArgWords {
		name := argName(m, i)
		w.Args[name] = renderArgValue(argWord, model)
	}
	return w
}

func argName(m abi.Method, i int) string {
	if i < len(m.Inputs) && m.Inputs[i].Name != "" {
		return m.Inputs[i].Name
	}
	return fmt.Sprintf("arg%d", i)
}

func renderArgValue(w word.Word, model map[string]*uint256.Int) ArgValue {
	if w.IsConcrete() {
		return toArgValue(w.Uint256())
	}
	if model != nil {
		if v, ok := model[w.Term().Fingerprint()]; ok {
			return toArgValue(v)
		}
	}
	return ArgValue{Dec: "?", Hex: "?"}
}

func toArgValue(v *uint256.Int) ArgValue {
	big := v.ToBig()
	return ArgValue{Dec: big.String(), Hex: fmt.Sprintf("0x%x", big)}
}
