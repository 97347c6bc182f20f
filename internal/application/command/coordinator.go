// Package command contains write operations (CQRS - Commands). The sync run,
// the weekly reset and the startup cache warm-up all live here, serialized
// through a single run coordinator.
package command

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/mikaelzzzz/flexge-notion-sync/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// RUN COORDINATOR
// ══════════════════════════════════════════════════════════════════════════════

// JobKind names the mutually exclusive job types.
type JobKind string

const (
	JobSync  JobKind = "sync"
	JobReset JobKind = "weekly-reset"
)

// RunCoordinator guarantees that at most one job runs at a time. There is no
// queue: a trigger that finds the lock held is rejected with shared.ErrBusy
// and the caller decides whether to care. Rejection is not an error condition
// of the running job.
type RunCoordinator struct {
	mu sync.Mutex

	stateMu sync.Mutex
	running JobKind
	since   time.Time
}

// NewRunCoordinator creates a RunCoordinator.
func NewRunCoordinator() *RunCoordinator {
	return &RunCoordinator{}
}

// TryAcquire attempts to take the run lock for a job. It never blocks.
func (c *RunCoordinator) TryAcquire(kind JobKind) error {
	if !c.mu.TryLock() {
		c.stateMu.Lock()
		holder := c.running
		c.stateMu.Unlock()
		return shared.WrapError("coordinator", "TryAcquire", shared.ErrBusy,
			fmt.Sprintf("%s rejected: %s is running", kind, holder), nil)
	}

	c.stateMu.Lock()
	c.running = kind
	c.since = time.Now()
	c.stateMu.Unlock()
	return nil
}

// Release returns the run lock. Must only be called after a successful
// TryAcquire.
func (c *RunCoordinator) Release() {
	c.stateMu.Lock()
	c.running = ""
	c.since = time.Time{}
	c.stateMu.Unlock()

	c.mu.Unlock()
}

// Running returns the kind of the currently running job, or "" when idle.
func (c *RunCoordinator) Running() JobKind {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()
	return c.running
}

// Run executes fn under the run lock. The lock is released on every exit
// path; a panic inside fn is converted into an error instead of taking the
// process down with the lock held.
func (c *RunCoordinator) Run(ctx context.Context, kind JobKind, fn func(context.Context) error) (err error) {
	if acqErr := c.TryAcquire(kind); acqErr != nil {
		return acqErr
	}
	defer c.Release()

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%s panicked: %v", kind, r)
		}
	}()

	return fn(ctx)
}
