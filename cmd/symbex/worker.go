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
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/symbex-labs/symbex/artifact"

	symlog "github.com/symbex-labs/symbex/log"
)

// runWorkerJob decodes a single worker-mode request document
// from r, runs every contract's property functions against the same
// artifact universe, and writes the response document to w. It returns
// the process exit code the caller should use (0/1/2), never an error
// by itself — an engine error is reported as exit 2 plus a best-effort
// diagnostic on stderr, matching "engine errors... fail to
// UNKNOWN(engine)" posture at the level of a single job rather than a
// single property function.
func runWorkerJob(ctx context.Context, r io.Reader, w io.Writer, errw io.Writer) int {
	log := symlog.New("pkg", "cmd/symbex", "mode", "worker")

	var job jobInput
	if err := json.NewDecoder(r).Decode(&job); err != nil {
		fmt.Fprintf(errw, "symbex: invalid job document: %v\n", err)
		return 2
	}
	if job.JobID == "" {
		job.JobID = uuid.NewString()
	}
	log.Info("job received", "job_id", job.JobID, "contracts", len(job.Contracts))

	art := loadedArtifacts{contracts: map[string]artifact.Contract{}, allow: map[string][]string{}}
	for _, cd := range job.Contracts {
		doc := artifact.Doc{Name: cd.Name, DeployedBytecode: cd.DeployedBytecode, ABI: cd.ABI, TestFunctions: cd.TestFunctions}
		c, err := artifact.FromDoc(doc)
		if err != nil {
			fmt.Fprintf(errw, "symbex: contract %s: %v\n", cd.Name, err)
			return 2
		}
		art.contracts[c.Name] = c
		art.allow[c.Name] = cd.TestFunctions
	}

	cfg := job.Config
	specNames, err := matchingSpecContracts(art, "", defaultPrefixes)
	if err != nil {
		fmt.Fprintf(errw, "symbex: %v\n", err)
		return 2
	}
	if len(specNames) == 0 {
		fmt.Fprintf(errw, "symbex: no contract in the job exposes a property function\n")
		return 2
	}

	start := time.Now()
	results, err := runAll(ctx, art, specNames, cfg, defaultPrefixes)
	if err != nil {
		fmt.Fprintf(errw, "symbex: %v\n", err)
		return 2
	}
	elapsed := time.Since(start)

	out := toJobOutput(results, elapsed.Milliseconds())
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		fmt.Fprintf(errw, "symbex: encoding job output: %v\n", err)
		return 2
	}
	return overallExitCode(results)
}
