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

package crypto

import (
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	btcecdsa "github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"golang.org/x/crypto/sha3"

	"github.com/symbex-labs/symbex/common"
)

const (
	DigestLength    = 32
	SignatureLength = 64 + 1 // r || s || v
)

var errInvalidPrivkey = errors.New("invalid private key")

// Keccak256 calculates and returns the Keccak256 hash of the input
// data, used throughout this engine for selector and address
// derivation.
func Keccak256(data ...[]byte) []byte {
	d := sha3.NewLegacyKeccak256()
	for _, b := range data {
		d.Write(b)
	}
	return d.Sum(nil)
}

// Keccak256Hash calculates the Keccak256 hash of the input data, returning it
// as a common.Hash.
func Keccak256Hash(data ...[]byte) (h common.Hash) {
	d := sha3.NewLegacyKeccak256()
	for _, b := range data {
		d.Write(b)
	}
	d.Sum(h[:0])
	return h
}

// CreateAddress derives the address a CREATE would assign, given the
// sender and its nonce at creation time. The reference scheme hashes
// rlp([sender, nonce]); since this engine never needs real RLP interop (no
// transaction or block encoding lives here), the nonce is instead encoded as
// a fixed 8-byte big-endian suffix, which is deterministic and collision-free
// for the concrete-nonce case and is concretized like any other symbolic
// value before a CREATE can proceed.
func CreateAddress(sender common.Address, nonce uint64) common.Address {
	buf := make([]byte, 8)
	for i := 0; i < 8; i++ {
		buf[7-i] = byte(nonce >> (8 * i))
	}
	h := Keccak256(sender.Bytes(), buf)
	return common.BytesToAddress(h[12:])
}

// CreateAddress2 derives the address a CREATE2 would assign:
// keccak256(0xff ++ sender ++ salt ++ keccak256(init_code))[12:].
func CreateAddress2(sender common.Address, salt common.Hash, codeHash []byte) common.Address {
	h := Keccak256([]byte{0xff}, sender.Bytes(), salt.Bytes(), codeHash)
	return common.BytesToAddress(h[12:])
}

// PrivateKey wraps a secp256k1 signing key used only by the attestation
// producer; it is never involved in bytecode interpretation.
type PrivateKey struct {
	key *btcec.PrivateKey
}

func (p *PrivateKey) PublicKey() common.Address {
	pub := p.key.PubKey()
	h := Keccak256(pub.SerializeUncompressed()[1:])
	return common.BytesToAddress(h[12:])
}

// HexToECDSA parses a hex-encoded secp256k1 private key, the prover-mode
// signing key taken from an environment variable.
func HexToECDSA(hexkey string) (*PrivateKey, error) {
	b, err := hex.DecodeString(hexkey)
	if err != nil {
		return nil, fmt.Errorf("invalid hex string: %w", err)
	}
	return PrivateKeyFromBytes(b)
}

// PrivateKeyFromBytes wraps a raw 32-byte scalar, used directly by the
// cheatcode layer's pure vm.addr(privkey) derivation so it doesn't need
// to round-trip through hex encoding.
func PrivateKeyFromBytes(b []byte) (*PrivateKey, error) {
	if len(b) != 32 {
		return nil, errInvalidPrivkey
	}
	key, _ := btcec.PrivKeyFromBytes(b)
	return &PrivateKey{key: key}, nil
}

// Sign produces a 65-byte [R || S || V] signature over hash, the shape any
// EVM-compatible on-chain verifier expects.
func Sign(hash []byte, prv *PrivateKey) ([]byte, error) {
	if len(hash) != DigestLength {
		return nil, errors.New("hash is not 32 bytes")
	}
	sig, err := btcecdsa.SignCompact(prv.key, hash, false)
	if err != nil {
		return nil, err
	}
	// btcec's compact format is [recovery-id || R || S]; the attestation
	// format wants [R || S || V], so rotate the leading byte to the end.
	out := make([]byte, SignatureLength)
	copy(out, sig[1:])
	out[64] = sig[0] - 27
	return out, nil
}

// VerifySignature checks that signature (in [R || S || V] form) was produced
// over hash by the holder of the private key behind addr.
func VerifySignature(addr common.Address, hash, signature []byte) bool {
	if len(signature) != SignatureLength {
		return false
	}
	compact := make([]byte, SignatureLength)
	compact[0] = signature[64] + 27
	copy(compact[1:], signature[:64])
	pub, _, err := btcecdsa.RecoverCompact(compact, hash)
	if err != nil {
		return false
	}
	h := Keccak256(pub.SerializeUncompressed()[1:])
	return common.BytesToAddress(h[12:]) == addr
}
