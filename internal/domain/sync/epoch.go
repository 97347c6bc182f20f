// Package sync contains the domain model of the idempotent synchronization
// core: the week epoch, the dedup cache, the run record and the contracts of
// the two remote providers.
package sync

import (
	"fmt"
	"sync"
	"time"

	"github.com/mikaelzzzz/flexge-notion-sync/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// WEEK EPOCH
// ══════════════════════════════════════════════════════════════════════════════

// Epoch identifies one week window. Exactly one epoch is current at any
// time; advancing it is the only bulk invalidation of dedup state.
type Epoch struct {
	// Seq is a monotonically increasing identifier: the number of whole
	// weeks between the base Monday (1969-12-29 UTC) and StartsAt.
	Seq int64 `json:"seq"`

	// StartsAt is the UTC Monday 00:00 the week begins at.
	StartsAt time.Time `json:"starts_at"`
}

// baseMonday is the Monday of the week containing the Unix epoch.
var baseMonday = time.Date(1969, time.December, 29, 0, 0, 0, 0, time.UTC)

// EpochAt returns the epoch of the week containing t.
func EpochAt(t time.Time) Epoch {
	start := timeutil.StartOfWeekUTC(t)
	return Epoch{
		Seq:      int64(start.Sub(baseMonday) / (7 * 24 * time.Hour)),
		StartsAt: start,
	}
}

// Next returns the epoch of the following week.
func (e Epoch) Next() Epoch {
	return Epoch{Seq: e.Seq + 1, StartsAt: e.StartsAt.AddDate(0, 0, 7)}
}

// Equal reports whether two epochs identify the same week.
func (e Epoch) Equal(other Epoch) bool {
	return e.Seq == other.Seq
}

// IsZero reports whether the epoch is unset.
func (e Epoch) IsZero() bool {
	return e.StartsAt.IsZero()
}

// Label renders the epoch as an ISO week label ("2026-W34"). This is the
// value carried on every target page so pages stay attributable to a week
// even after the cache is gone.
func (e Epoch) Label() string {
	year, week := e.StartsAt.ISOWeek()
	return fmt.Sprintf("%d-W%02d", year, week)
}

// ══════════════════════════════════════════════════════════════════════════════
// EPOCH KEEPER
// ══════════════════════════════════════════════════════════════════════════════

// Keeper owns the current epoch. Advancement only ever moves forward; the
// keeper also remembers when it last advanced so a duplicated weekly reset
// trigger can be detected and turned into a no-op.
type Keeper struct {
	mu         sync.RWMutex
	current    Epoch
	advancedAt time.Time
}

// NewKeeper creates a Keeper whose current epoch is the week containing now.
func NewKeeper(now time.Time) *Keeper {
	return &Keeper{current: EpochAt(now)}
}

// Current returns the current epoch.
func (k *Keeper) Current() Epoch {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return k.current
}

// Advance moves to the epoch after the current one and records the moment.
// When the wall clock has already crossed into a later week (e.g. the
// process slept through several resets), it jumps straight to the week
// containing now instead of replaying the missed weeks one by one.
func (k *Keeper) Advance(now time.Time) Epoch {
	k.mu.Lock()
	defer k.mu.Unlock()

	next := k.current.Next()
	if wall := EpochAt(now); wall.Seq > next.Seq {
		next = wall
	}
	k.current = next
	k.advancedAt = now
	return next
}

// AdvancedWithin reports whether the epoch was advanced within the given
// window before now. Used as the duplicate-trigger tie-break for the weekly
// reset: a just-advanced epoch plus an empty cache means there is nothing
// left to reset.
func (k *Keeper) AdvancedWithin(now time.Time, window time.Duration) bool {
	k.mu.RLock()
	defer k.mu.RUnlock()
	if k.advancedAt.IsZero() {
		return false
	}
	return now.Sub(k.advancedAt) <= window
}
