// Package trigger implements the one-shot gate separating "environment
// ready" from "test started". The signal is persisted as a file so it
// survives observation and restarts of the polling side, and so an external
// actor can raise it out-of-band by creating the file.
package trigger

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Gate is a monotonic boolean signal: once present it never reverts for the
// lifetime of the run. Reads are idempotent.
type Gate struct {
	path string

	mu  sync.Mutex
	set bool
}

// New returns a gate persisted at path.
func New(path string) *Gate {
	return &Gate{path: path}
}

// Set raises the signal. Idempotent: raising an already-present gate is a
// no-op.
func (g *Gate) Set() error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.set {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(g.path), 0o755); err != nil {
		return fmt.Errorf("creating trigger dir: %w", err)
	}
	if err := os.WriteFile(g.path, nil, 0o644); err != nil {
		return fmt.Errorf("raising trigger: %w", err)
	}
	g.set = true
	return nil
}

// Present reports whether the signal has been raised, either through this
// gate or externally by creating the trigger file.
func (g *Gate) Present() bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.set {
		return true
	}
	if _, err := os.Stat(g.path); err == nil {
		g.set = true
	}
	return g.set
}

// Wait polls until the signal is present or the context is cancelled. The
// poll interval bounds observation latency; cancellation is the operator's
// abort path.
func (g *Gate) Wait(ctx context.Context, interval time.Duration) error {
	if g.Present() {
		return nil
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if g.Present() {
				return nil
			}
		}
	}
}
