// Copyright 2024 The symbex Authors
// This file is part of the symbex library.

package common

import "testing"

func TestBytesToHash(t *testing.T) {
	h := BytesToHash([]byte{5})
	var exp Hash
	exp[31] = 5
	if h != exp {
		t.Errorf("expected %x got %x", exp, h)
	}
}

func TestIsHexAddress(t *testing.T) {
	tests := []struct {
		str string
		exp bool
	}{
		{"0x5aaeb6053f3e94c9b9a09f33669435e7ef1beaed", true},
		{"5aaeb6053f3e94c9b9a09f33669435e7ef1beaed", true},
		{"0x5aaeb6053f3e94c9b9a09f33669435e7ef1beaed1", false},
		{"0xxaaeb6053f3e94c9b9a09f33669435e7ef1beae", false},
	}
	for _, test := range tests {
		if result := IsHexAddress(test.str); result != test.exp {
			t.Errorf("IsHexAddress(%s) == %v; expected %v", test.str, result, test.exp)
		}
	}
}

func TestAddressRoundTrip(t *testing.T) {
	a := HexToAddress("0x5aaeb6053f3e94c9b9a09f33669435e7ef1beaed")
	if a.Hex() != "0x5aaeb6053f3e94c9b9a09f33669435e7ef1beaed" {
		t.Errorf("round trip mismatch: %s", a.Hex())
	}
}
