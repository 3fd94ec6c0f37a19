// Copyright 2025 dotandev
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"time"

	"github.com/dotandev/wasmprune/internal/shutdown"
	"github.com/dotandev/wasmprune/internal/updater"
	"github.com/spf13/cobra"
)

// Version is set by main from the build-time ldflags value.
var Version = "dev"

// shutdownGrace bounds how long registered shutdown hooks get to run once
// an interrupt is received.
const shutdownGrace = 5 * time.Second

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "wasmprune",
	Short: "Dead-code elimination for WebAssembly modules",
	Long: `wasmprune is a WebAssembly optimizer: point it at a .wasm or .wast
module and it strips unreachable code, both whole functions (via a
call-graph pass rooted at the module's exports) and unreachable
expressions within each surviving function body (via a typed tree walk).

Examples:
  wasmprune run ./module.wasm -o ./module-pruned.wasm   Prune a binary module
  wasmprune run ./module.wast                           Dry run over text input
  wasmprune inspect ./module.wasm add                   Print a function's decoded tree
  wasmprune serve --port 8080                           Run the pruner as a daemon
  wasmprune cache status                                Check the artifact cache

Get started with 'wasmprune run --help' or visit the documentation.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		checkForUpdatesAsync()
		return nil
	},
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and runs it under
// signal-aware cancellation, so long-running subcommands (serve) get a
// chance to shut down cleanly on Ctrl-C instead of being killed outright.
func Execute() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt)
	defer signal.Stop(sigCh)

	coordinator := shutdown.NewCoordinator()

	return executeWithSignals(ctx, cancel, sigCh, coordinator, func(execCtx context.Context) error {
		rootCmd.SetContext(execCtx)
		return rootCmd.Execute()
	})
}

// executeWithSignals runs exec under ctx, cancelling it (and reporting
// ErrInterrupted) the moment a signal arrives on sigCh, then running every
// registered shutdown hook before returning. Split out from Execute so it
// can be driven by a synthetic signal channel in tests.
func executeWithSignals(ctx context.Context, cancel context.CancelFunc, sigCh chan os.Signal, coordinator *shutdown.Coordinator, exec func(context.Context) error) error {
	done := make(chan error, 1)
	go func() { done <- exec(ctx) }()

	var result error
	select {
	case <-sigCh:
		cancel()
		result = <-done
	case err := <-done:
		result = err
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer shutdownCancel()
	_ = coordinator.Shutdown(shutdownCtx)

	if errors.Is(result, context.Canceled) {
		return ErrInterrupted
	}
	return result
}

// IsInterrupted reports whether err represents a user-initiated interrupt
// rather than a genuine command failure.
func IsInterrupted(err error) bool {
	return errors.Is(err, ErrInterrupted) || errors.Is(err, context.Canceled)
}

// checkForUpdatesAsync runs the update check in a goroutine to not block CLI startup
func checkForUpdatesAsync() {
	go func() {
		checker := updater.NewChecker(Version)
		checker.CheckForUpdates()
	}()
}
