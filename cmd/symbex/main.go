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

// symbex is the command line interface to the symbolic execution
// engine: it loads compiled-artifact documents, deploys them against a
// specification contract's property functions, and reports verdicts
// either as a human-readable transcript (run) or a worker-mode JSON
// document (worker).
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"gopkg.in/urfave/cli.v1"

	"github.com/symbex-labs/symbex/attestation"
	"github.com/symbex-labs/symbex/crypto"
	"github.com/symbex-labs/symbex/harness"
	symlog "github.com/symbex-labs/symbex/log"
)

var gitTag = ""
var gitCommit = ""

// exitError carries an explicit process exit code alongside an error
// message, letting main distinguish "all passed" from "some failed"
// from "engine error".
type exitError struct {
	msg  string
	code int
}

func (e *exitError) Error() string { return e.msg }
func (e *exitError) Code() int     { return e.code }

func exitf(code int, format string, args ...interface{}) error {
	return &exitError{msg: fmt.Sprintf(format, args...), code: code}
}

// defaultPrefixes mirrors harness.DefaultConfig.PropertyPrefixes;
// kept as its own literal here rather than imported so --function can
// override it without reaching into the harness package's defaults.
var defaultPrefixes = []string{"test_", "check_", "invariant_", "fuzz_"}

var (
	rootFlag = cli.StringFlag{
		Name:  "root",
		Usage: "directory of compiled-artifact JSON documents",
	}
	configFlag = cli.StringFlag{
		Name:  "config",
		Usage: "TOML file overlaying the default exploration bounds before flags are applied",
	}
	matchContractFlag = cli.StringFlag{
		Name:  "match-contract",
		Usage: "regular expression narrowing which loaded contracts are run as specifications",
	}
	functionFlag = cli.StringSliceFlag{
		Name:  "function",
		Usage: "property-function name prefix (repeatable); default test_,check_,invariant_,fuzz_",
	}
	loopBoundFlag = cli.Uint64Flag{
		Name:  "loop-bound",
		Usage: "max JUMPDEST revisits under a strictly subsuming path condition before Bounded(loop)",
	}
	depthBoundFlag = cli.Uint64Flag{
		Name:  "depth-bound",
		Usage: "max instructions executed on a single path before Bounded(depth)",
	}
	widthBoundFlag = cli.IntFlag{
		Name:  "width-bound",
		Usage: "max live paths at any instant before Bounded(width)",
	}
	solverTimeoutFlag = cli.IntFlag{
		Name:  "solver-timeout-ms",
		Usage: "per-query solver timeout in milliseconds",
	}
	solverMaxMemFlag = cli.IntFlag{
		Name:  "solver-max-memory-mb",
		Usage: "solver memory ceiling in megabytes",
	}
	symbolicStorageFlag = cli.BoolFlag{
		Name:  "symbolic-storage",
		Usage: "seed every deployed contract's storage as fully symbolic rather than its declared initial values",
	}
	symbolicSenderFlag = cli.BoolFlag{
		Name:  "symbolic-msg-sender",
		Usage: "run every property function once per candidate sender address instead of a single fixed deployer",
	}
	arrayLengthFlag = cli.StringSliceFlag{
		Name:  "array-length",
		Usage: "name=bound override for a dynamic array/bytes/string argument's synthesized length (repeatable)",
	}
	proveFlag = cli.BoolFlag{
		Name:  "prove",
		Usage: "sign an attestation for the run's verdicts",
	}
	privateKeyFlag = cli.StringFlag{
		Name:   "private-key",
		Usage:  "hex-encoded signing key used with --prove",
		EnvVar: "SYMBEX_PRIVATE_KEY",
	}
	verbosityFlag = cli.IntFlag{
		Name:  "verbosity",
		Usage: "0=crit 1=error 2=warn 3=info 4=debug 5=trace",
		Value: 3,
	}
	jsonOutFlag = cli.BoolFlag{
		Name:  "json",
		Usage: "write the worker-mode result document to stdout instead of the human-readable transcript",
	}
)

func main() {
	app := cli.NewApp()
	app.Name = "symbex"
	app.Usage = "symbolic execution engine for verifying Forge-style property functions"
	app.Version = version()
	app.Flags = []cli.Flag{
		rootFlag, configFlag, matchContractFlag, functionFlag,
		loopBoundFlag, depthBoundFlag, widthBoundFlag,
		solverTimeoutFlag, solverMaxMemFlag,
		symbolicStorageFlag, symbolicSenderFlag, arrayLengthFlag,
		proveFlag, privateKeyFlag, verbosityFlag, jsonOutFlag,
	}
	app.Commands = []cli.Command{runCommand, workerCommand}
	app.Action = runCmd

	if err := app.Run(os.Args); err != nil {
		code := 2
		if ee, ok := err.(*exitError); ok {
			code = ee.Code()
			if ee.Error() != "" {
				fmt.Fprintln(os.Stderr, "symbex:", ee.Error())
			}
		} else {
			fmt.Fprintln(os.Stderr, "symbex:", err)
		}
		os.Exit(code)
	}
}

func version() string {
	if gitTag != "" {
		return gitTag
	}
	if gitCommit != "" {
		return gitCommit
	}
	return "dev"
}

var runCommand = cli.Command{
	Name:   "run",
	Usage:  "load artifacts from --root and report verdicts on stdout",
	Action: runCmd,
	Flags: []cli.Flag{
		rootFlag, configFlag, matchContractFlag, functionFlag,
		loopBoundFlag, depthBoundFlag, widthBoundFlag,
		solverTimeoutFlag, solverMaxMemFlag,
		symbolicStorageFlag, symbolicSenderFlag, arrayLengthFlag,
		proveFlag, privateKeyFlag, verbosityFlag, jsonOutFlag,
	},
}

var workerCommand = cli.Command{
	Name:   "worker",
	Usage:  "read one job document from stdin and write the result document to stdout",
	Action: workerCmd,
	Flags:  []cli.Flag{verbosityFlag},
}

func setVerbosity(ctx *cli.Context) {
	lvl := symlog.Level(ctx.Int(verbosityFlag.Name))
	if lvl < symlog.LvlCrit {
		lvl = symlog.LvlCrit
	}
	if lvl > symlog.LvlTrace {
		lvl = symlog.LvlTrace
	}
	symlog.SetLevel(lvl)
}

func runCmd(ctx *cli.Context) error {
	setVerbosity(ctx)

	root := ctx.String(rootFlag.Name)
	if root == "" {
		root = os.Getenv("SYMBEX_ARTIFACTS_DIR")
	}
	if root == "" {
		return exitf(2, "--root or SYMBEX_ARTIFACTS_DIR is required")
	}

	art, err := loadArtifactDir(root)
	if err != nil {
		return exitf(2, "%v", err)
	}

	prefixes := defaultPrefixes
	if fs := []string(ctx.StringSlice(functionFlag.Name)); len(fs) > 0 {
		prefixes = fs
	}

	specNames, err := matchingSpecContracts(art, ctx.String(matchContractFlag.Name), prefixes)
	if err != nil {
		return exitf(2, "%v", err)
	}
	if len(specNames) == 0 {
		return exitf(2, "no contract under --root exposes a matching property function")
	}

	cfg, err := cliRunConfig(ctx)
	if err != nil {
		return exitf(2, "%v", err)
	}
	results, err := runAll(context.Background(), art, specNames, cfg, prefixes)
	if err != nil {
		return exitf(2, "%v", err)
	}

	if ctx.Bool(jsonOutFlag.Name) {
		out := toJobOutput(results, 0)
		if err := writeJSON(os.Stdout, out); err != nil {
			return exitf(2, "%v", err)
		}
	} else {
		renderHuman(os.Stdout, results)
	}

	if ctx.Bool(proveFlag.Name) {
		if err := attestAll(ctx, art, results); err != nil {
			return exitf(2, "%v", err)
		}
	}

	return &exitError{code: overallExitCode(results)}
}

func workerCmd(ctx *cli.Context) error {
	setVerbosity(ctx)
	code := runWorkerJob(context.Background(), os.Stdin, os.Stdout, os.Stderr)
	return &exitError{code: code}
}

func cliRunConfig(ctx *cli.Context) (runConfig, error) {
	cfg := defaultRunConfig
	if file := ctx.String(configFlag.Name); file != "" {
		if err := loadConfigFile(file, &cfg); err != nil {
			return runConfig{}, fmt.Errorf("loading --config: %w", err)
		}
	}
	if ctx.IsSet(loopBoundFlag.Name) {
		cfg.LoopBound = ctx.Uint64(loopBoundFlag.Name)
	}
	if ctx.IsSet(depthBoundFlag.Name) {
		cfg.DepthBound = ctx.Uint64(depthBoundFlag.Name)
	}
	if ctx.IsSet(widthBoundFlag.Name) {
		cfg.WidthBound = ctx.Int(widthBoundFlag.Name)
	}
	if ctx.IsSet(solverTimeoutFlag.Name) {
		cfg.SolverTimeoutMS = ctx.Int(solverTimeoutFlag.Name)
	}
	if ctx.IsSet(solverMaxMemFlag.Name) {
		cfg.SolverMaxMemoryMB = ctx.Int(solverMaxMemFlag.Name)
	}
	if ctx.IsSet(symbolicStorageFlag.Name) {
		cfg.SymbolicStorage = ctx.Bool(symbolicStorageFlag.Name)
	}
	if ctx.IsSet(symbolicSenderFlag.Name) {
		cfg.SymbolicMsgSender = ctx.Bool(symbolicSenderFlag.Name)
	}
	if lens := parseArrayLengths(ctx.StringSlice(arrayLengthFlag.Name)); len(lens) > 0 {
		cfg.ArrayLengths = lens
	}
	return cfg, nil
}

func parseArrayLengths(entries []string) map[string]int {
	if len(entries) == 0 {
		return nil
	}
	out := make(map[string]int, len(entries))
	for _, e := range entries {
		name, boundStr, ok := strings.Cut(e, "=")
		if !ok {
			continue
		}
		var bound int
		if _, err := fmt.Sscanf(boundStr, "%d", &bound); err != nil {
			continue
		}
		out[name] = bound
	}
	return out
}

// attestAll signs one attestation per verdict, writing each to stdout
// as an indented JSON document. bytecode_hash/spec_hash both refer to the same
// deployed-bytecode hash this run already computed the contract's
// address from, since this engine's artifact set carries no separate
// "target under test" vs "specification" bytecode distinction beyond
// which contract's property functions were actually exercised.
func attestAll(ctx *cli.Context, art loadedArtifacts, results []runResult) error {
	hexKey := ctx.String(privateKeyFlag.Name)
	if hexKey == "" {
		return fmt.Errorf("--prove requires --private-key (or SYMBEX_PRIVATE_KEY)")
	}
	prv, err := crypto.HexToECDSA(hexKey)
	if err != nil {
		return fmt.Errorf("invalid --private-key: %w", err)
	}

	for _, r := range results {
		bytecodeHash := crypto.Keccak256Hash(art.contracts[r.contractName].Image.Code)
		for _, v := range r.verdicts {
			record := attestation.ResultRecord{
				FunctionName: v.Function,
				Verdict:      v.Status.String(),
				BoundsUsed: attestation.BoundsUsed{
					PathsExplored: v.PathsExplored,
				},
			}
			att, err := attestation.Produce(record, v.Status == harness.Pass, bytecodeHash, bytecodeHash, time.Now().Unix(), prv)
			if err != nil {
				return err
			}
			if err := writeJSON(os.Stdout, att); err != nil {
				return err
			}
		}
	}
	return nil
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
