// Copyright 2024 The symbex Authors
// This file is part of the symbex library.

package attestation

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/symbex-labs/symbex/common"
	"github.com/symbex-labs/symbex/crypto"
)

func testKey(t *testing.T) *crypto.PrivateKey {
	t.Helper()
	var raw [32]byte
	raw[31] = 0x42
	key, err := crypto.PrivateKeyFromBytes(raw[:])
	require.NoError(t, err)
	return key
}

func TestResultRecordHashIsDeterministic(t *testing.T) {
	r := ResultRecord{
		FunctionName: "check_leq",
		Verdict:      "PASS",
		BoundsUsed:   BoundsUsed{DepthBound: 1000, WidthBound: 16, LoopBound: 64, PathsExplored: 3},
	}
	h1, err := r.Hash()
	require.NoError(t, err)
	h2, err := r.Hash()
	require.NoError(t, err)
	require.Equal(t, h1, h2)

	other := r
	other.Verdict = "FAIL"
	h3, err := other.Hash()
	require.NoError(t, err)
	require.NotEqual(t, h1, h3)
}

func TestProduceAndVerifyRoundTrip(t *testing.T) {
	key := testKey(t)
	record := ResultRecord{FunctionName: "check_lt", Verdict: "FAIL"}
	bytecodeHash := crypto.Keccak256Hash([]byte{0x60, 0x01})
	specHash := crypto.Keccak256Hash([]byte{0x60, 0x02})

	att, err := Produce(record, false, bytecodeHash, specHash, 1_700_000_000, key)
	require.NoError(t, err)
	require.Equal(t, key.PublicKey(), att.ProverAddress)
	require.True(t, att.Verify())
}

func TestVerifyRejectsTamperedPassedFlag(t *testing.T) {
	key := testKey(t)
	record := ResultRecord{FunctionName: "check_lt", Verdict: "PASS"}
	bytecodeHash := crypto.Keccak256Hash([]byte{0x01})
	specHash := crypto.Keccak256Hash([]byte{0x02})

	att, err := Produce(record, true, bytecodeHash, specHash, 1_700_000_000, key)
	require.NoError(t, err)

	att.Passed = false
	require.False(t, att.Verify())
}

func TestJSONRoundTrip(t *testing.T) {
	key := testKey(t)
	record := ResultRecord{FunctionName: "invariant_balance", Verdict: "UNKNOWN"}
	att, err := Produce(record, false, common.Hash{}, common.Hash{}, 42, key)
	require.NoError(t, err)

	raw, err := json.Marshal(att)
	require.NoError(t, err)
	require.Contains(t, string(raw), `"result_hash"`)
	require.Contains(t, string(raw), `"prover_address"`)

	var back Attestation
	require.NoError(t, json.Unmarshal(raw, &back))
	require.Equal(t, att.ResultHash, back.ResultHash)
	require.Equal(t, att.ProverAddress, back.ProverAddress)
	require.Equal(t, att.Signature, back.Signature)
	require.True(t, back.Verify())
}
