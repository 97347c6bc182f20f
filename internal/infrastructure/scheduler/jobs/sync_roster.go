// Package jobs contains the scheduled job implementations. Each job is a
// thin adapter between the scheduler and an application command, plus the
// busy-rejection policy: a firing that loses the run lock is dropped, never
// queued.
package jobs

import (
	"context"
	"errors"
	"log/slog"

	"github.com/mikaelzzzz/flexge-notion-sync/internal/application/command"
	"github.com/mikaelzzzz/flexge-notion-sync/internal/domain/shared"
)

// SyncRosterJob runs the periodic roster reconciliation.
type SyncRosterJob struct {
	coordinator *command.RunCoordinator
	handler     *command.SyncRosterHandler
	status      *command.RunStatus
	logger      *slog.Logger
}

// NewSyncRosterJob creates the job.
func NewSyncRosterJob(
	coordinator *command.RunCoordinator,
	handler *command.SyncRosterHandler,
	status *command.RunStatus,
	logger *slog.Logger,
) *SyncRosterJob {
	if logger == nil {
		logger = slog.Default()
	}
	return &SyncRosterJob{
		coordinator: coordinator,
		handler:     handler,
		status:      status,
		logger:      logger,
	}
}

// Name returns the unique name of the job.
func (j *SyncRosterJob) Name() string {
	return "sync-roster"
}

// Description returns a human-readable description of the job.
func (j *SyncRosterJob) Description() string {
	return "Reconciles the weekly study-time roster into the report database"
}

// Run executes one sync run under the coordinator. A busy rejection means
// another run (or the weekly reset) is in flight; this firing is skipped.
func (j *SyncRosterJob) Run(ctx context.Context) error {
	err := j.coordinator.Run(ctx, command.JobSync, func(ctx context.Context) error {
		record, runErr := j.handler.Handle(ctx)
		if record != nil {
			j.status.SetLastRun(record)
		}
		return runErr
	})

	if errors.Is(err, shared.ErrBusy) {
		j.logger.Info("sync firing skipped, run lock held", "holder", string(j.coordinator.Running()))
		return nil
	}
	return err
}
