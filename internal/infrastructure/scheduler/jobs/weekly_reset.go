package jobs

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/mikaelzzzz/flexge-notion-sync/internal/application/command"
	"github.com/mikaelzzzz/flexge-notion-sync/internal/domain/shared"
)

// WeeklyResetJob closes the finished week. It fires shortly after the Monday
// 00:00 UTC boundary; the exact offset is configured at wiring time.
type WeeklyResetJob struct {
	coordinator *command.RunCoordinator
	handler     *command.WeeklyResetHandler
	status      *command.RunStatus
	logger      *slog.Logger

	// retryDelay is how long to wait before one retry when the reset
	// loses the lock to a sync run.
	retryDelay time.Duration
}

// NewWeeklyResetJob creates the job.
func NewWeeklyResetJob(
	coordinator *command.RunCoordinator,
	handler *command.WeeklyResetHandler,
	status *command.RunStatus,
	logger *slog.Logger,
) *WeeklyResetJob {
	if logger == nil {
		logger = slog.Default()
	}
	return &WeeklyResetJob{
		coordinator: coordinator,
		handler:     handler,
		status:      status,
		logger:      logger,
		retryDelay:  30 * time.Second,
	}
}

// Name returns the unique name of the job.
func (j *WeeklyResetJob) Name() string {
	return "weekly-reset"
}

// Description returns a human-readable description of the job.
func (j *WeeklyResetJob) Description() string {
	return "Archives last week's report pages, clears dedup state and advances the epoch"
}

// Run executes the reset under the coordinator. Unlike the sync job, a busy
// rejection gets one delayed retry: the reset fires once a week, and losing
// that single firing to an overlapping sync run would postpone the epoch
// advance until an operator notices.
func (j *WeeklyResetJob) Run(ctx context.Context) error {
	err := j.tryOnce(ctx)
	if !errors.Is(err, shared.ErrBusy) {
		return err
	}

	j.logger.Info("weekly reset lost the run lock, retrying once",
		"holder", string(j.coordinator.Running()), "delay", j.retryDelay.String())

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(j.retryDelay):
	}

	err = j.tryOnce(ctx)
	if errors.Is(err, shared.ErrBusy) {
		j.logger.Warn("weekly reset skipped, run lock still held")
		return nil
	}
	return err
}

func (j *WeeklyResetJob) tryOnce(ctx context.Context) error {
	return j.coordinator.Run(ctx, command.JobReset, func(ctx context.Context) error {
		record, resetErr := j.handler.Handle(ctx)
		if record != nil {
			j.status.SetLastReset(record)
		}
		return resetErr
	})
}
