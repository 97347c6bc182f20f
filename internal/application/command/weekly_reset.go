package command

import (
	"context"
	"log/slog"
	"time"

	syncdomain "github.com/mikaelzzzz/flexge-notion-sync/internal/domain/sync"
)

// ══════════════════════════════════════════════════════════════════════════════
// WEEKLY RESET COMMAND
// Close the finished week: archive its pages, drop the dedup state, advance
// the epoch. Fires Monday 00:00 UTC (scheduled at a small offset).
// ══════════════════════════════════════════════════════════════════════════════

// WeeklyResetConfig contains configuration for the reset handler.
type WeeklyResetConfig struct {
	// GuardWindow is how recently the epoch must have advanced for a
	// second trigger to be treated as a duplicate.
	GuardWindow time.Duration

	// BoundaryWindow is how far past the Monday boundary a firing may
	// find the current epoch already at the wall-clock week and treat
	// the week as already closed. It must cover the cron offset of the
	// scheduled firing.
	BoundaryWindow time.Duration

	// Clock overrides the wall clock. Nil means time.Now.
	Clock func() time.Time
}

// DefaultWeeklyResetConfig returns default configuration.
func DefaultWeeklyResetConfig() WeeklyResetConfig {
	return WeeklyResetConfig{
		GuardWindow:    time.Hour,
		BoundaryWindow: 6 * time.Hour,
	}
}

// WeeklyResetHandler executes the weekly reset. Must run under the run
// coordinator.
type WeeklyResetHandler struct {
	target syncdomain.TargetProvider
	cache  *syncdomain.DedupCache
	keeper *syncdomain.Keeper
	config WeeklyResetConfig
	logger *slog.Logger

	now func() time.Time
}

// NewWeeklyResetHandler creates a new WeeklyResetHandler.
func NewWeeklyResetHandler(
	target syncdomain.TargetProvider,
	cache *syncdomain.DedupCache,
	keeper *syncdomain.Keeper,
	config WeeklyResetConfig,
	logger *slog.Logger,
) *WeeklyResetHandler {
	defaults := DefaultWeeklyResetConfig()
	if config.GuardWindow <= 0 {
		config.GuardWindow = defaults.GuardWindow
	}
	if config.BoundaryWindow <= 0 {
		config.BoundaryWindow = defaults.BoundaryWindow
	}
	if config.Clock == nil {
		config.Clock = time.Now
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &WeeklyResetHandler{
		target: target,
		cache:  cache,
		keeper: keeper,
		config: config,
		logger: logger,
		now:    config.Clock,
	}
}

// Handle executes the reset and returns its record.
//
// Archiving is best effort: a page that fails to archive is logged and left
// behind, and the reset still clears the cache and advances the epoch. An
// unarchived leftover is cosmetic; a skipped epoch advance would make the
// next week's pages collide with the old ones.
func (h *WeeklyResetHandler) Handle(ctx context.Context) (*syncdomain.ResetRecord, error) {
	now := h.now().UTC()
	closing := h.keeper.Current()
	record := syncdomain.NewResetRecord(closing, now)

	// The closing week has only just begun (or has not started): the
	// epoch is already at or ahead of the wall clock, which happens when
	// the process restarts between the Monday boundary and the scheduled
	// firing. Archiving now would destroy the live week's pages, and
	// advancing would leave the epoch a week ahead of the wall clock for
	// good.
	if now.Sub(closing.StartsAt) < h.config.BoundaryWindow {
		record.NoOp = true
		record.NewEpoch = closing
		record.FinishedAt = h.now().UTC()
		h.logger.Info("weekly reset fired inside a freshly started week, nothing to close",
			"run_id", record.RunID, "epoch", closing.Label())
		return record, nil
	}

	// Duplicate trigger: the cache is already empty and the epoch moved
	// moments ago. Advancing again would silently skip a week.
	if h.cache.Len() == 0 && h.keeper.AdvancedWithin(now, h.config.GuardWindow) {
		record.NoOp = true
		record.NewEpoch = closing
		record.FinishedAt = h.now().UTC()
		h.logger.Info("weekly reset duplicate trigger, nothing to do",
			"run_id", record.RunID, "epoch", closing.Label())
		return record, nil
	}

	h.logger.Info("weekly reset started", "run_id", record.RunID, "closing", closing.Label())

	for ref := range h.pagesToArchive(ctx, closing) {
		if err := ctx.Err(); err != nil {
			record.FinishedAt = h.now().UTC()
			return record, err
		}
		if err := h.target.ArchivePage(ctx, ref); err != nil {
			record.ArchiveErrors = append(record.ArchiveErrors, err.Error())
			h.logger.Warn("archive failed, leaving page behind",
				"run_id", record.RunID, "page_ref", ref.String(), "error", err)
			continue
		}
		record.Archived++
	}

	h.cache.Clear()
	record.NewEpoch = h.keeper.Advance(now)
	record.FinishedAt = h.now().UTC()

	h.logger.Info("weekly reset finished",
		"run_id", record.RunID,
		"archived", record.Archived,
		"archive_errors", len(record.ArchiveErrors),
		"new_epoch", record.NewEpoch.Label(),
	)
	return record, nil
}

// pagesToArchive unions the cached page refs with a live listing, so pages
// created before a restart (and never warmed back in) are still swept.
func (h *WeeklyResetHandler) pagesToArchive(ctx context.Context, epoch syncdomain.Epoch) map[syncdomain.PageRef]struct{} {
	refs := make(map[syncdomain.PageRef]struct{})
	for _, entry := range h.cache.Snapshot() {
		refs[entry.PageRef] = struct{}{}
	}

	snaps, err := h.target.ListCurrentEpochPages(ctx, epoch)
	if err != nil {
		// Fall back to the cached view; the next reset sweeps stragglers.
		h.logger.Warn("page listing failed, archiving cached refs only", "error", err)
		return refs
	}
	for _, snap := range snaps {
		refs[snap.Ref] = struct{}{}
	}
	return refs
}
