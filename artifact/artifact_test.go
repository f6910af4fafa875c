// Copyright 2024 The symbex Authors
// This file is part of the symbex library.

package artifact

import (
	"testing"

	"github.com/stretchr/testify/require"
)

const sampleDoc = `{
 "name": "Counter",
 "deployed_bytecode": "0x6001600101600055",
 "abi": [
 {"type":"function","name":"setUp","inputs":[],"outputs":[],"stateMutability":"nonpayable"},
 {"type":"function","name":"invariant_neverNegative","inputs":[],"outputs":[{"type":"bool"}],"stateMutability":"view"},
 {"type":"function","name":"fuzz_addsUp","inputs":[{"name":"x","type":"uint256"},{"name":"y","type":"uint256[]"}],"outputs":[]},
 {"type":"event","name":"Bumped","inputs":[{"name":"by","type":"uint256"}]},
 {"type":"constructor","inputs":[{"name":"start","type":"uint256"}]}
 ],
 "test_functions": ["invariant_neverNegative"]
}`

func TestDecodeBasic(t *testing.T) {
	c, err := Decode([]byte(sampleDoc))
	require.NoError(t, err)
	require.Equal(t, "Counter", c.Name)
	require.NotNil(t, c.Image)

	require.Len(t, c.Methods, 3) // setUp, invariant_neverNegative, fuzz_addsUp — event/constructor excluded

	setUp, ok := c.SetUp()
	require.True(t, ok)
	require.Equal(t, "setUp", setUp.Name)
}

func TestDecodeRejectsBadBytecode(t *testing.T) {
	_, err := Decode([]byte(`{"name":"Bad","deployed_bytecode":"0xzz","abi":[]}`))
	require.Error(t, err)
}

func TestDecodeRejectsBadABIType(t *testing.T) {
	doc := `{"name":"Bad","deployed_bytecode":"0x00","abi":[
 {"type":"function","name":"f","inputs":[{"name":"x","type":"tuple"}]}
	]}`
	_, err := Decode([]byte(doc))
	require.Error(t, err)
}

func TestPropertyFunctionsPrefixFiltering(t *testing.T) {
	c, err := Decode([]byte(sampleDoc))
	require.NoError(t, err)

	got := c.PropertyFunctions([]string{"invariant_", "fuzz_"}, nil)
	require.Len(t, got, 2)

	names := map[string]bool{}
	for _, m := range got {
 names[m.Name] = true
	}
	require.True(t, names["invariant_neverNegative"])
	require.True(t, names["fuzz_addsUp"])
	require.False(t, names["setUp"])
}

func TestPropertyFunctionsExplicitAllowlist(t *testing.T) {
	c, err := Decode([]byte(sampleDoc))
	require.NoError(t, err)

	got := c.PropertyFunctions([]string{"fuzz_"}, []string{"invariant_neverNegative"})
	require.Len(t, got, 1)
	require.Equal(t, "invariant_neverNegative", got[0].Name)
}
