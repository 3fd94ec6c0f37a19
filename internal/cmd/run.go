// Copyright (c) 2026 dotandev
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package cmd

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"

	"github.com/dotandev/wasmprune/internal/cache"
	"github.com/dotandev/wasmprune/internal/db"
	"github.com/dotandev/wasmprune/internal/dce"
	"github.com/dotandev/wasmprune/internal/moduleio"
	"github.com/dotandev/wasmprune/internal/wasm"
	"github.com/dotandev/wasmprune/internal/wasmopt"
	"github.com/spf13/cobra"
)

var (
	runOutput        string
	runKeepDeadFuncs bool
	runQuiet         bool
)

var runCmd = &cobra.Command{
	Use:   "run <module>",
	Short: "Prune dead code from a WASM module",
	Long: `Run strips unreachable code from a WASM module in two stages:

  1. A whole-module call-graph pass removes functions unreachable from the
     module's exports, start function, and element segments (skip with
     --keep-dead-functions).
  2. A per-function tree pass removes unreachable expressions within every
     surviving function body.

The module may be binary (.wasm) or text (.wast/.wat); the output format is
chosen the same way, by the destination's suffix. Without -o, performs a
dry run and prints statistics only.

Examples:
  wasmprune run ./module.wasm -o ./module-pruned.wasm
  wasmprune run ./module.wast`,
	Args: cobra.ExactArgs(1),
	RunE: runExec,
}

func runExec(cmd *cobra.Command, args []string) error {
	inputPath := args[0]
	originalPath := inputPath

	originalRaw, err := os.ReadFile(inputPath)
	if err != nil {
		return fmt.Errorf("reading module: %w", err)
	}
	moduleHash := hashModule(originalRaw)
	cacheKey := moduleHash
	if runKeepDeadFuncs {
		cacheKey += "-keepdead"
	}
	cacheMgr := cache.NewManager(getCacheDir(), cache.DefaultConfig())

	if cached, ok, err := cacheMgr.Get(cacheKey); err == nil && ok {
		return runFromCache(cached, originalPath, originalRaw, moduleHash)
	}

	functionsBefore := -1
	if !runKeepDeadFuncs {
		pruned, didRun, report, err := runWholeModulePass(inputPath)
		if err != nil {
			return fmt.Errorf("whole-module pass: %w", err)
		}
		if didRun {
			functionsBefore = report.OriginalDefinedFunctions
			tmpPath, err := writeTempModule(pruned)
			if err != nil {
				return err
			}
			defer os.Remove(tmpPath)
			inputPath = tmpPath
		}
	}

	mod, _, err := moduleio.Load(inputPath)
	if err != nil {
		return fmt.Errorf("reading module: %w", err)
	}
	if functionsBefore < 0 {
		functionsBefore = len(mod.Functions)
	}

	bodies := make([]*wasm.Expression, len(mod.Functions))
	for i, fn := range mod.Functions {
		bodies[i] = fn.Body
	}

	results := dce.RunModule(bodies)
	totalBefore, totalAfter := 0, 0
	for i, res := range results {
		if res.Err != nil {
			return fmt.Errorf("function %s: %w", mod.Functions[i].Name, res.Err)
		}
		totalBefore += countNodes(mod.Functions[i].Body)
		mod.Functions[i].Body = res.Body
		totalAfter += countNodes(res.Body)
	}

	if !runQuiet {
		fmt.Printf("Tree pass: %d functions, %d -> %d expression nodes\n", len(mod.Functions), totalBefore, totalAfter)
	}

	out, err := moduleio.EncodeBinary(mod)
	if err != nil {
		return fmt.Errorf("encoding pruned module for recording: %w", err)
	}
	recordRun(moduleHash, originalPath, functionsBefore, len(mod.Functions), len(originalRaw), len(out))

	if err := cacheMgr.Put(cacheKey, out); err != nil && !runQuiet {
		fmt.Fprintf(os.Stderr, "warning: failed to write cache entry: %v\n", err)
	}

	if runOutput == "" {
		return nil
	}
	if err := moduleio.Save(runOutput, mod); err != nil {
		return fmt.Errorf("writing output: %w", err)
	}
	fmt.Printf("Written to: %s\n", runOutput)
	return nil
}

// runFromCache serves a previously pruned module straight from the
// artifact cache, skipping both the whole-module and tree passes entirely.
func runFromCache(cached []byte, originalPath string, originalRaw []byte, moduleHash string) error {
	mod, err := moduleio.ParseBinary(cached)
	if err != nil {
		return fmt.Errorf("decoding cached module: %w", err)
	}

	functionsBefore := len(mod.Functions)
	if origMod, _, err := moduleio.Load(originalPath); err == nil {
		functionsBefore = len(origMod.Functions)
	}

	if !runQuiet {
		fmt.Printf("Cache hit: reusing pruned module for %s\n", moduleHash)
	}
	recordRun(moduleHash, originalPath, functionsBefore, len(mod.Functions), len(originalRaw), len(cached))

	if runOutput == "" {
		return nil
	}
	if err := moduleio.Save(runOutput, mod); err != nil {
		return fmt.Errorf("writing output: %w", err)
	}
	fmt.Printf("Written to: %s\n", runOutput)
	return nil
}

// runWholeModulePass runs the call-graph pass on binary input only; a
// text module has no section layout for wasmopt to operate on, so the
// tree pass alone still applies to it.
func runWholeModulePass(path string) (pruned []byte, didRun bool, report wasmopt.Report, err error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, false, wasmopt.Report{}, err
	}
	if moduleio.DetectFormat(path, raw) != moduleio.FormatBinary {
		return nil, false, wasmopt.Report{}, nil
	}
	out, report, err := wasmopt.EliminateDeadCode(raw)
	if err != nil {
		return nil, false, wasmopt.Report{}, err
	}
	if !runQuiet {
		fmt.Printf("Whole-module pass: removed %d/%d functions, kept %d\n",
			report.RemovedDefinedFunctions, report.OriginalDefinedFunctions, report.KeptDefinedFunctions)
	}
	return out, true, report, nil
}

// hashModule returns the hex-encoded SHA-256 digest of a module's original
// bytes, used as the join key for past-runs lookups.
func hashModule(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// recordRun best-effort persists a run's outcome to the local run
// history database; a failure to open or write the database never fails
// the command itself, since recording history is a convenience, not a
// correctness requirement of pruning.
func recordRun(moduleHash, modulePath string, functionsBefore, functionsAfter, bytesBefore, bytesAfter int) {
	store, err := db.InitDB()
	if err != nil {
		return
	}
	defer store.Close()

	run := &db.Run{
		ModuleHash:      moduleHash,
		ModulePath:      modulePath,
		FunctionsBefore: functionsBefore,
		FunctionsAfter:  functionsAfter,
		BytesBefore:     bytesBefore,
		BytesAfter:      bytesAfter,
		Status:          "ok",
	}
	_ = store.SaveRun(run)
}

func writeTempModule(data []byte) (string, error) {
	tmp, err := os.CreateTemp("", "wasmprune-run-*.wasm")
	if err != nil {
		return "", err
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return "", err
	}
	if err := tmp.Close(); err != nil {
		return "", err
	}
	return tmp.Name(), nil
}

// countNodes walks e and every reachable descendant, mirroring
// internal/moduleio's child enumeration (kept as its own copy here rather
// than exported from wasm.Expression, which keeps that enumeration private
// to its own TypeUpdater use).
func countNodes(e *wasm.Expression) int {
	if e == nil {
		return 0
	}
	n := 1
	switch e.Kind {
	case wasm.KindBlock, wasm.KindLoop:
		for _, c := range e.Children {
			n += countNodes(c)
		}
	case wasm.KindIf:
		n += countNodes(e.Condition) + countNodes(e.IfTrue) + countNodes(e.IfFalse)
	case wasm.KindBreak:
		n += countNodes(e.BreakValue) + countNodes(e.BreakCondition)
	case wasm.KindSwitch:
		n += countNodes(e.BreakValue) + countNodes(e.Condition)
	case wasm.KindCall, wasm.KindCallImport, wasm.KindHost:
		for _, op := range e.Operands {
			n += countNodes(op)
		}
	case wasm.KindCallIndirect:
		for _, op := range e.Operands {
			n += countNodes(op)
		}
		n += countNodes(e.CallIndex)
	case wasm.KindSetLocal, wasm.KindSetGlobal:
		n += countNodes(e.Value)
	case wasm.KindLoad:
		n += countNodes(e.Ptr)
	case wasm.KindStore:
		n += countNodes(e.Ptr) + countNodes(e.Stored)
	case wasm.KindUnary:
		n += countNodes(e.Left)
	case wasm.KindBinary:
		n += countNodes(e.Left) + countNodes(e.Right)
	case wasm.KindSelect:
		n += countNodes(e.IfTrueVal) + countNodes(e.IfFalseVal) + countNodes(e.SelectCond)
	case wasm.KindDrop:
		n += countNodes(e.Operand)
	case wasm.KindReturn:
		n += countNodes(e.ReturnValue)
	}
	return n
}

func init() {
	runCmd.Flags().StringVarP(&runOutput, "output", "o", "", "Output file path (omit for dry run)")
	runCmd.Flags().BoolVar(&runKeepDeadFuncs, "keep-dead-functions", false, "Skip the whole-module call-graph pass")
	runCmd.Flags().BoolVarP(&runQuiet, "quiet", "q", false, "Suppress statistics output")
	rootCmd.AddCommand(runCmd)
}
