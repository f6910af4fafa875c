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

package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/symbex-labs/symbex/harness"
)

// renderHuman writes user-visible surface: one
// `PASS sig`, `FAIL(reason) sig` or `UNKNOWN(reason) sig` line per
// property function, followed by the witness whenever the verdict
// carries one.
func renderHuman(w io.Writer, results []runResult) {
	for _, r := range results {
 fmt.Fprintf(w, "== %s ==\n", r.contractName)
 for _, v := range r.verdicts {
 sig := r.signatures[v.Function]
 if sig == "" {
 sig = v.Function + ""
 }
 switch v.Status {
 case harness.Pass:
 fmt.Fprintf(w, "PASS %s\n", sig)
 case harness.Unknown:
 fmt.Fprintf(w, "UNKNOWN(%s) %s\n", v.Reason, sig)
 default:
 fmt.Fprintf(w, "FAIL(%s) %s\n", v.Reason, sig)
 }
 if v.Witness != nil {
 renderWitness(w, v.Witness)
 }
 }
	}
}

func renderWitness(w io.Writer, witness *harness.Witness) {
	for name, val := range witness.Args {
 fmt.Fprintf(w, " %s = %s (%s)\n", name, val.Dec, val.Hex)
	}
	trace := witness.FormatTrace()
	if trace != "" {
 fmt.Fprint(w, indent(trace, " "))
	}
}

func indent(s, prefix string) string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	for i, l := range lines {
 lines[i] = prefix + l
	}
	return strings.Join(lines, "\n") + "\n"
}

// toJobOutput assembles worker-mode response document
// from every spec contract's verdicts, flattened into a single tests
// array (the document has no notion of "which contract a test belongs
// to" beyond the test's own name).
func toJobOutput(results []runResult, elapsedMS int64) jobOutput {
	out := jobOutput{}
	for _, r := range results {
 for _, v := range r.verdicts {
 out.Tests = append(out.Tests, toTestResult(v))
 }
	}
	out.Summary = summary{
 Total: len(out.Tests),
 ExecutionTimeMS: elapsedMS,
	}
	for _, t := range out.Tests {
 if t.Passed {
 out.Summary.Passed++
 } else {
 out.Summary.Failed++
 }
	}
	return out
}

func toTestResult(v harness.Verdict) testResult {
	tr := testResult{
 Name: v.Function,
 Passed: v.Status == harness.Pass,
	}
	if v.Witness == nil {
 return tr
	}
	tr.ReturnData = fmt.Sprintf("0x%x", v.Witness.RevertData)
	tr.Trace = v.Witness.FormatTrace()
	if len(v.Witness.Args) > 0 {
 tr.Counterexample = make(map[string]string, len(v.Witness.Args))
 for name, val := range v.Witness.Args {
 tr.Counterexample[name] = val.Hex
 }
	}
	return tr
}
