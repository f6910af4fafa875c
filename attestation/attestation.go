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

// Package attestation produces and verifies signed verdict records: a
// canonical hash of one property function's result record, signed over
// together with the target and specification bytecode hashes, in the
// 65-byte r‖s‖v shape an EVM-style on-chain registry expects.
package attestation

import (
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/symbex-labs/symbex/common"
	"github.com/symbex-labs/symbex/crypto"
)

// BoundsUsed records the scheduler/interpreter bounds the harness ran
// under, the part of the result record the hash must cover.
type BoundsUsed struct {
	DepthBound    uint64 `json:"depth_bound"`
	WidthBound    int    `json:"width_bound"`
	LoopBound     uint64 `json:"loop_bound"`
	PathsExplored int    `json:"paths_explored"`
}

// ResultRecord is the "result record" hashed ahead of signing:
// `{function_name, verdict, bounds_used}`. encoding/json already
// serializes a fixed struct's fields in declaration order — a
// deterministic canonical form needs nothing fancier than that (a
// bespoke canonical encoder is worth reaching for only where a
// consensus-critical wire format is involved, e.g. RLP; nothing here
// is consensus-critical, only reproducible).
type ResultRecord struct {
	FunctionName string     `json:"function_name"`
	Verdict      string     `json:"verdict"`
	BoundsUsed   BoundsUsed `json:"bounds_used"`
}

// Hash canonically serializes r and keccak256-hashes the result.
func (r ResultRecord) Hash() (common.Hash, error) {
	enc, err := json.Marshal(r)
	if err != nil {
		return common.Hash{}, fmt.Errorf("attestation: encoding result record: %w", err)
	}
	return crypto.Keccak256Hash(enc), nil
}

// Attestation is the signed verdict record.
type Attestation struct {
	ResultHash    common.Hash
	Passed        bool
	BytecodeHash  common.Hash // keccak256 of the target contract's deployed bytecode
	SpecHash      common.Hash // keccak256 of the specification contract's deployed bytecode
	Timestamp     int64       // seconds since epoch
	ProverAddress common.Address
	Signature     [65]byte // r || s || v, crypto.Sign's output shape
}

// SigningDigest is the exact payload Produce signs:
// keccak256(abi.encode(result_hash, passed, bytecode_hash)). abi.encode
// of three fixed-size head values (bytes32, bool, bytes32) is simply
// their 32-byte-padded concatenation — no offsets are needed because
// none of the three is a dynamic type — so this is produced directly
// rather than by routing through the abi package's calldata encoder,
// which exists to synthesize symbolic arguments, not to encode a
// handful of already-concrete attestation fields.
func SigningDigest(resultHash common.Hash, passed bool, bytecodeHash common.Hash) common.Hash {
	var passedWord [32]byte
	if passed {
		passedWord[31] = 1
	}
	return crypto.Keccak256Hash(resultHash.Bytes(), passedWord[:], bytecodeHash.Bytes())
}

// Produce signs a result record's attestation with prv, stamping
// timestamp verbatim — the caller supplies it, since the attestation's
// own clock is not this package's concern.
func Produce(record ResultRecord, passed bool, bytecodeHash, specHash common.Hash, timestamp int64, prv *crypto.PrivateKey) (*Attestation, error) {
	resultHash, err := record.Hash()
	if err != nil {
		return nil, err
	}
	digest := SigningDigest(resultHash, passed, bytecodeHash)
	sig, err := crypto.Sign(digest.Bytes(), prv)
	if err != nil {
		return nil, fmt.Errorf("attestation: signing: %w", err)
	}
	a := &Attestation{
		ResultHash:    resultHash,
		Passed:        passed,
		BytecodeHash:  bytecodeHash,
		SpecHash:      specHash,
		Timestamp:     timestamp,
		ProverAddress: prv.PublicKey(),
	}
	copy(a.Signature[:], sig)
	return a, nil
}

// Verify checks a's signature recovers to its own ProverAddress over
// the same digest Produce signed, the one piece of fraud-resistance
// this package offers independent of a downstream on-chain registry
// actually re-deriving the same check.
func (a *Attestation) Verify() bool {
	digest := SigningDigest(a.ResultHash, a.Passed, a.BytecodeHash)
	return crypto.VerifySignature(a.ProverAddress, digest.Bytes(), a.Signature[:])
}

// wireFormat is the exact JSON shape an Attestation serializes to.
type wireFormat struct {
	ResultHash    string `json:"result_hash"`
	Passed        bool   `json:"passed"`
	BytecodeHash  string `json:"bytecode_hash"`
	SpecHash      string `json:"spec_hash"`
	Timestamp     int64  `json:"timestamp"`
	ProverAddress string `json:"prover_address"`
	Signature     string `json:"signature"`
}

func (a *Attestation) MarshalJSON() ([]byte, error) {
	return json.Marshal(wireFormat{
		ResultHash:    a.ResultHash.Hex(),
		Passed:        a.Passed,
		BytecodeHash:  a.BytecodeHash.Hex(),
		SpecHash:      a.SpecHash.Hex(),
		Timestamp:     a.Timestamp,
		ProverAddress: a.ProverAddress.Hex(),
		Signature:     "0x" + hex.EncodeToString(a.Signature[:]),
	})
}

func (a *Attestation) UnmarshalJSON(data []byte) error {
	var w wireFormat
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	a.ResultHash = common.BytesToHash(common.FromHex(w.ResultHash))
	a.Passed = w.Passed
	a.BytecodeHash = common.BytesToHash(common.FromHex(w.BytecodeHash))
	a.SpecHash = common.BytesToHash(common.FromHex(w.SpecHash))
	a.Timestamp = w.Timestamp
	a.ProverAddress = common.HexToAddress(w.ProverAddress)
	sig := common.FromHex(w.Signature)
	if len(sig) != 65 {
		return fmt.Errorf("attestation: signature must be 65 bytes, got %d", len(sig))
	}
	copy(a.Signature[:], sig)
	return nil
}
