package command

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mikaelzzzz/flexge-notion-sync/internal/domain/student"
	syncdomain "github.com/mikaelzzzz/flexge-notion-sync/internal/domain/sync"
)

// ══════════════════════════════════════════════════════════════════════════════
// CACHE WARMER
// One-shot at startup: rebuild dedup entries from the pages that already
// exist for the current week, so a restart does not re-create every page.
// ══════════════════════════════════════════════════════════════════════════════

// CacheWarmer rebuilds the dedup cache from the target provider.
type CacheWarmer struct {
	target syncdomain.TargetProvider
	cache  *syncdomain.DedupCache
	keeper *syncdomain.Keeper
	logger *slog.Logger
}

// NewCacheWarmer creates a new CacheWarmer.
func NewCacheWarmer(
	target syncdomain.TargetProvider,
	cache *syncdomain.DedupCache,
	keeper *syncdomain.Keeper,
	logger *slog.Logger,
) *CacheWarmer {
	if logger == nil {
		logger = slog.Default()
	}
	return &CacheWarmer{target: target, cache: cache, keeper: keeper, logger: logger}
}

// Warm lists the current epoch's pages and seeds a cache entry per student,
// with the fingerprint recomputed from the page's visible properties. A
// warm-up failure is not fatal to the service: the cache simply starts empty
// and the first run recreates the skip-state at the cost of extra updates.
func (w *CacheWarmer) Warm(ctx context.Context) (int, error) {
	epoch := w.keeper.Current()

	snaps, err := w.target.ListCurrentEpochPages(ctx, epoch)
	if err != nil {
		return 0, fmt.Errorf("warm cache: %w", err)
	}

	seeded := 0
	for _, snap := range snaps {
		if !snap.Student.ID.IsValid() {
			continue
		}
		w.cache.Put(snap.Student.ID, syncdomain.CacheEntry{
			PageRef:     snap.Ref,
			Fingerprint: student.ComputeFingerprint(snap.Student),
			Epoch:       epoch,
		})
		seeded++
	}

	w.logger.Info("dedup cache warmed", "epoch", epoch.Label(), "entries", seeded)
	return seeded, nil
}
