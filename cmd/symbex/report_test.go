// Copyright 2024 The symbex Authors
// This file is part of the symbex library.

package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/symbex-labs/symbex/harness"
)

var sampleResults = []runResult{
	{
		contractName: "Counter",
		signatures:   map[string]string{"check_leq": "check_leq(uint256)"},
		verdicts: []harness.Verdict{
			{Function: "check_leq", Status: harness.Pass},
			{
				Function: "check_lt",
				Status:   harness.Fail,
				Reason:   "assertion-failed",
				Witness: &harness.Witness{
					Args: map[string]harness.ArgValue{"x": {Dec: "100", Hex: "0x64"}},
				},
			},
		},
	},
}

func TestRenderHumanIncludesPassAndFailLines(t *testing.T) {
	var buf bytes.Buffer
	renderHuman(&buf, sampleResults)
	out := buf.String()
	require.Contains(t, out, "PASS check_leq(uint256)")
	require.Contains(t, out, "FAIL(assertion-failed) check_lt")
	require.Contains(t, out, "x = 100 (0x64)")
}

func TestToJobOutputSummary(t *testing.T) {
	out := toJobOutput(sampleResults, 42)
	require.Equal(t, 2, out.Summary.Total)
	require.Equal(t, 1, out.Summary.Passed)
	require.Equal(t, 1, out.Summary.Failed)
	require.Equal(t, int64(42), out.Summary.ExecutionTimeMS)

	var fail testResult
	for _, tr := range out.Tests {
 if tr.Name == "check_lt" {
 fail = tr
 }
	}
	require.False(t, fail.Passed)
	require.Equal(t, "0x64", fail.Counterexample["x"])
}

func TestOverallExitCode(t *testing.T) {
	require.Equal(t, 1, overallExitCode(sampleResults))

	allPass := []runResult{{verdicts: []harness.Verdict{{Status: harness.Pass}}}}
	require.Equal(t, 0, overallExitCode(allPass))
}
