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
	"encoding/json"
	"fmt"
	"io/ioutil"
	"path/filepath"
	"regexp"
	"sort"

	"github.com/symbex-labs/symbex/artifact"
)

// loadedArtifacts is the decoded form of one artifact source (a
// directory of files, or a worker-mode job document): the contracts
// themselves plus each one's explicit test_functions allowlist, which
// artifact.Contract does not retain on its own.
type loadedArtifacts struct {
	contracts map[string]artifact.Contract
	allow map[string][]string
}

// loadArtifactDir decodes every *.json file directly under dir as one
// compiled-artifact document, keyed by contract name. A malformed document fails the
// whole load rather than being silently skipped, per "rejected at
// load time."
func loadArtifactDir(dir string) (loadedArtifacts, error) {
	entries, err := ioutil.ReadDir(dir)
	if err != nil {
 return loadedArtifacts{}, fmt.Errorf("reading artifact directory %s: %w", dir, err)
	}
	out := loadedArtifacts{contracts: map[string]artifact.Contract{}, allow: map[string][]string{}}
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".json" {
			continue
		}
		path := filepath.Join(dir, e.Name())
 raw, err := ioutil.ReadFile(path)
 if err != nil {
 return loadedArtifacts{}, fmt.Errorf("reading %s: %w", path, err)
 }
 var doc artifact.Doc
 if err := json.Unmarshal(raw, &doc); err != nil {
 return loadedArtifacts{}, fmt.Errorf("decoding %s: %w", path, err)
 }
 c, err := artifact.FromDoc(doc)
 if err != nil {
 return loadedArtifacts{}, fmt.Errorf("decoding %s: %w", path, err)
 }
 out.contracts[c.Name] = c
 out.allow[c.Name] = doc.TestFunctions
	}
	if len(out.contracts) == 0 {
 return loadedArtifacts{}, fmt.Errorf("no artifact documents found under %s", dir)
	}
	return out, nil
}

// matchingSpecContracts returns, in deterministic order, the names of
// the loaded contracts that (a) match matchContract (empty matches
// everything) and (b) expose at least one property function under the
// given prefixes/allowlist — the intersection open
// question on --match-contract/--function leaves to the core's
// discretion.
func matchingSpecContracts(art loadedArtifacts, matchContract string, prefixes []string) ([]string, error) {
	var re *regexp.Regexp
	if matchContract != "" {
 var err error
 re, err = regexp.Compile(matchContract)
 if err != nil {
 return nil, fmt.Errorf("invalid --match-contract pattern: %w", err)
 }
	}

	var names []string
	for name, c := range art.contracts {
 if re != nil && !re.MatchString(name) {
 continue
 }
 if len(c.PropertyFunctions(prefixes, art.allow[name])) == 0 {
 continue
 }
 names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}
