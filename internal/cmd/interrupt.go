// Copyright 2025 dotandev
// SPDX-License-Identifier: Apache-2.0

package cmd

import "errors"

// ErrInterrupted is returned by Execute when a command was cancelled by an
// interrupt signal (SIGINT) rather than failing outright, so main can print
// a quiet shutdown message instead of a raw error.
var ErrInterrupted = errors.New("interrupted")

// InterruptExitCode follows the shell convention of 128+signal for SIGINT.
const InterruptExitCode = 130
