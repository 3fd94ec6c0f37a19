// Copyright 2025 dotandev
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/dotandev/wasmprune/internal/cmd"
	"github.com/dotandev/wasmprune/internal/config"
	"github.com/dotandev/wasmprune/internal/crashreport"
)

// Build-time variables injected via -ldflags.
var (
	version   = "dev"
	commitSHA = "unknown"
)

// run executes the command, translates its result into a process exit code,
// and writes any failure to stderr. Split out from main so the exit-code
// logic can be tested without calling os.Exit.
func run(execute func() error, stderr io.Writer) int {
	if err := execute(); err != nil {
		if errors.Is(err, cmd.ErrInterrupted) {
			fmt.Fprintln(stderr, "Interrupted. Shutting down...")
			return cmd.InterruptExitCode
		}
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

// realMain wires up config and the crash reporter, then runs the command.
// It returns the process exit code rather than calling os.Exit itself, so
// the deferred panic handler still gets to run on the way out.
func realMain() int {
	ctx := context.Background()

	// Load config to determine whether crash reporting is opted in.
	cfg, err := config.Load()
	if err != nil {
		// Non-fatal: fall back to a reporter that is disabled by default.
		cfg = config.DefaultConfig()
	}

	reporter := crashreport.New(crashreport.Config{
		Enabled:   cfg.CrashReporting,
		SentryDSN: cfg.CrashSentryDSN,
		Endpoint:  cfg.CrashEndpoint,
		Version:   version,
		CommitSHA: commitSHA,
	})

	cmd.Version = version

	// Catch any unrecovered panic, report it, then re-panic.
	defer reporter.HandlePanic(ctx, "wasmprune")

	return run(cmd.Execute, os.Stderr)
}

func main() {
	os.Exit(realMain())
}
