// Copyright 2024 The symbex Authors
// This file is part of the symbex library.

package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

const counterDoc = `{
	"name": "Counter",
	"deployed_bytecode": "0x6000",
	"abi": [
 {"type":"function","name":"invariant_neverNegative","inputs":[],"outputs":[],"stateMutability":"nonpayable"},
 {"type":"function","name":"helper","inputs":[],"outputs":[],"stateMutability":"view"}
	]
}`

func writeDoc(t *testing.T, dir, name, contents string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(contents), 0o644))
}

func TestLoadArtifactDirDecodesAllJSONFiles(t *testing.T) {
	dir := t.TempDir()
	writeDoc(t, dir, "Counter.json", counterDoc)
	writeDoc(t, dir, "notes.txt", "ignore me")

	art, err := loadArtifactDir(dir)
	require.NoError(t, err)
	require.Len(t, art.contracts, 1)
	require.Contains(t, art.contracts, "Counter")
}

func TestLoadArtifactDirRejectsMalformedDoc(t *testing.T) {
	dir := t.TempDir()
	writeDoc(t, dir, "Bad.json", `{"name":"Bad","deployed_bytecode":"zz"}`)

	_, err := loadArtifactDir(dir)
	require.Error(t, err)
}

func TestLoadArtifactDirRejectsEmptyDir(t *testing.T) {
	dir := t.TempDir()
	_, err := loadArtifactDir(dir)
	require.Error(t, err)
}

func TestMatchingSpecContractsFiltersByPropertyFunction(t *testing.T) {
	dir := t.TempDir()
	writeDoc(t, dir, "Counter.json", counterDoc)
	art, err := loadArtifactDir(dir)
	require.NoError(t, err)

	names, err := matchingSpecContracts(art, "", []string{"invariant_"})
	require.NoError(t, err)
	require.Equal(t, []string{"Counter"}, names)

	names, err = matchingSpecContracts(art, "", []string{"fuzz_"})
	require.NoError(t, err)
	require.Empty(t, names)
}

func TestMatchingSpecContractsHonorsMatchContractRegex(t *testing.T) {
	dir := t.TempDir()
	writeDoc(t, dir, "Counter.json", counterDoc)
	art, err := loadArtifactDir(dir)
	require.NoError(t, err)

	names, err := matchingSpecContracts(art, "^Vault$", []string{"invariant_"})
	require.NoError(t, err)
	require.Empty(t, names)

	names, err = matchingSpecContracts(art, "^Count", []string{"invariant_"})
	require.NoError(t, err)
	require.Equal(t, []string{"Counter"}, names)
}

func TestMatchingSpecContractsRejectsBadRegex(t *testing.T) {
	dir := t.TempDir()
	writeDoc(t, dir, "Counter.json", counterDoc)
	art, err := loadArtifactDir(dir)
	require.NoError(t, err)

	_, err = matchingSpecContracts(art, "(", []string{"invariant_"})
	require.Error(t, err)
}
