package sync

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestEpochAt(t *testing.T) {
	wed := time.Date(2026, 8, 19, 15, 30, 0, 0, time.UTC)
	e := EpochAt(wed)
	assert.Equal(t, time.Date(2026, 8, 17, 0, 0, 0, 0, time.UTC), e.StartsAt)
	assert.Equal(t, "2026-W34", e.Label())

	// Any instant in the same week maps to the same epoch.
	sun := time.Date(2026, 8, 23, 23, 0, 0, 0, time.UTC)
	assert.True(t, e.Equal(EpochAt(sun)))

	// The next week is exactly one sequence step later.
	mon := time.Date(2026, 8, 24, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, e.Seq+1, EpochAt(mon).Seq)
	assert.True(t, e.Next().Equal(EpochAt(mon)))
}

func TestKeeperAdvance(t *testing.T) {
	now := time.Date(2026, 8, 23, 23, 50, 0, 0, time.UTC) // Sunday night
	k := NewKeeper(now)
	initial := k.Current()

	resetAt := time.Date(2026, 8, 24, 2, 0, 0, 0, time.UTC) // Monday 02:00
	advanced := k.Advance(resetAt)
	assert.Equal(t, initial.Seq+1, advanced.Seq)
	assert.Equal(t, advanced, k.Current())
	assert.True(t, k.AdvancedWithin(resetAt.Add(10*time.Minute), time.Hour))
	assert.False(t, k.AdvancedWithin(resetAt.Add(2*time.Hour), time.Hour))
}

func TestKeeperAdvanceSkipsMissedWeeks(t *testing.T) {
	start := time.Date(2026, 8, 19, 12, 0, 0, 0, time.UTC)
	k := NewKeeper(start)

	// The process slept through three reset firings; one Advance lands on
	// the wall-clock week instead of replaying each missed week.
	threeWeeksLater := start.AddDate(0, 0, 21)
	advanced := k.Advance(threeWeeksLater)
	assert.True(t, advanced.Equal(EpochAt(threeWeeksLater)))
}

func TestKeeperNeverMovesBackwards(t *testing.T) {
	now := time.Date(2026, 8, 24, 2, 0, 0, 0, time.UTC)
	k := NewKeeper(now)
	first := k.Advance(now)

	// A duplicate advance with the same wall clock still moves forward.
	second := k.Advance(now.Add(time.Minute))
	assert.Equal(t, first.Seq+1, second.Seq)
}
