package command

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/mikaelzzzz/flexge-notion-sync/internal/domain/shared"
	"github.com/mikaelzzzz/flexge-notion-sync/internal/domain/student"
	syncdomain "github.com/mikaelzzzz/flexge-notion-sync/internal/domain/sync"
)

// ══════════════════════════════════════════════════════════════════════════════
// SYNC ROSTER COMMAND
// One full reconciliation pass: fetch the roster snapshot, then decide
// create / update / skip per student against the dedup cache.
// ══════════════════════════════════════════════════════════════════════════════

// SyncRosterHandler executes one sync run. It must be invoked under the run
// coordinator; nothing here takes locks of its own.
type SyncRosterHandler struct {
	source syncdomain.SourceProvider
	target syncdomain.TargetProvider
	cache  *syncdomain.DedupCache
	keeper *syncdomain.Keeper
	logger *slog.Logger

	now func() time.Time
}

// NewSyncRosterHandler creates a new SyncRosterHandler.
func NewSyncRosterHandler(
	source syncdomain.SourceProvider,
	target syncdomain.TargetProvider,
	cache *syncdomain.DedupCache,
	keeper *syncdomain.Keeper,
	logger *slog.Logger,
) *SyncRosterHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &SyncRosterHandler{
		source: source,
		target: target,
		cache:  cache,
		keeper: keeper,
		logger: logger,
		now:    time.Now,
	}
}

// Handle executes the sync run and returns its record. The record is always
// non-nil, even when the run failed outright.
//
// Failure containment: one student's failure never stops the others. The
// only run-fatal conditions are a roster fetch failure and a credential
// rejection from either provider.
func (h *SyncRosterHandler) Handle(ctx context.Context) (*syncdomain.RunRecord, error) {
	epoch := h.keeper.Current()
	record := syncdomain.NewRunRecord(epoch, h.now().UTC())

	h.logger.Info("sync run started", "run_id", record.RunID, "epoch", epoch.Label())

	roster, err := h.source.FetchCurrentRoster(ctx)
	if err != nil {
		record.Finalize(h.now().UTC(), true)
		h.logger.Error("roster fetch failed", "run_id", record.RunID, "error", err)
		return record, shared.WrapError("sync", "FetchRoster", shared.ErrExternalService,
			"roster fetch failed", err)
	}
	record.Total = len(roster)

	for _, rec := range roster {
		if err := ctx.Err(); err != nil {
			// Shutdown mid-run: finalize what we have. Processed
			// students are already reflected in cache and target.
			record.Finalize(h.now().UTC(), false)
			return record, err
		}

		if err := h.processStudent(ctx, rec, epoch, record); err != nil {
			if shared.IsAuthError(err) {
				record.Finalize(h.now().UTC(), true)
				h.logger.Error("credentials rejected, aborting run",
					"run_id", record.RunID, "error", err)
				return record, err
			}
			record.RecordFailure(rec.ID, rec.Name, err)
			h.logger.Warn("student failed",
				"run_id", record.RunID, "student_id", rec.ID.String(), "error", err)
		}
	}

	record.Finalize(h.now().UTC(), false)
	h.logger.Info("sync run finished",
		"run_id", record.RunID,
		"outcome", string(record.Outcome),
		"created", record.Created,
		"updated", record.Updated,
		"skipped", record.Skipped,
		"failed", record.Failed,
	)
	return record, nil
}

// processStudent applies the per-student decision table. The cache is only
// written after the target confirmed the write, so a failed call leaves the
// previous state in place and the student is retried next run.
func (h *SyncRosterHandler) processStudent(
	ctx context.Context,
	rec student.Record,
	epoch syncdomain.Epoch,
	record *syncdomain.RunRecord,
) error {
	if err := rec.Validate(); err != nil {
		return err
	}

	fp := student.ComputeFingerprint(rec)

	entry, ok := h.cache.Lookup(rec.ID, epoch)
	if ok && entry.Fingerprint == fp {
		record.RecordSkipped()
		return nil
	}

	if ok {
		if err := h.target.UpdatePage(ctx, entry.PageRef, rec); err != nil {
			return fmt.Errorf("update page: %w", err)
		}
		h.cache.Put(rec.ID, syncdomain.CacheEntry{
			PageRef:     entry.PageRef,
			Fingerprint: fp,
			Epoch:       epoch,
		})
		record.RecordUpdated()
		return nil
	}

	ref, err := h.target.CreatePage(ctx, rec, epoch)
	if err != nil {
		return fmt.Errorf("create page: %w", err)
	}
	h.cache.Put(rec.ID, syncdomain.CacheEntry{
		PageRef:     ref,
		Fingerprint: fp,
		Epoch:       epoch,
	})
	record.RecordCreated()
	return nil
}
