// Copyright 2025 dotandev
// SPDX-License-Identifier: Apache-2.0

// Package shutdown runs a set of named cleanup hooks when the process is
// asked to stop, generalizing the ad hoc SIGINT handling the daemon command
// used to do inline.
package shutdown

import (
	"context"
	"fmt"
	"sync"
)

type hook struct {
	name string
	fn   func(context.Context) error
}

// Coordinator collects shutdown hooks and runs them in registration order.
type Coordinator struct {
	mu    sync.Mutex
	hooks []hook
}

// NewCoordinator returns an empty Coordinator.
func NewCoordinator() *Coordinator {
	return &Coordinator{}
}

// Register adds a named hook to run on Shutdown. Hooks run in the order
// they were registered.
func (c *Coordinator) Register(name string, fn func(context.Context) error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.hooks = append(c.hooks, hook{name: name, fn: fn})
}

// Shutdown runs every registered hook, collecting (not stopping on) errors.
// It returns the first error encountered, if any, after every hook has run.
func (c *Coordinator) Shutdown(ctx context.Context) error {
	c.mu.Lock()
	hooks := append([]hook(nil), c.hooks...)
	c.mu.Unlock()

	var firstErr error
	for _, h := range hooks {
		if err := h.fn(ctx); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("shutdown hook %q: %w", h.name, err)
		}
	}
	return firstErr
}
