package command

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mikaelzzzz/flexge-notion-sync/internal/domain/student"
	syncdomain "github.com/mikaelzzzz/flexge-notion-sync/internal/domain/sync"
)

func TestWarmRebuildsSkipState(t *testing.T) {
	target := newFakeTarget()
	keeper := syncdomain.NewKeeper(testNow)

	// Pages created by a previous process life.
	_, err := target.CreatePage(context.Background(), rec("s1", "Érica", 60), keeper.Current())
	require.NoError(t, err)
	_, err = target.CreatePage(context.Background(), rec("s2", "Bruno", 30), keeper.Current())
	require.NoError(t, err)
	writesBefore := target.writeCalls()

	// Fresh process: empty cache, warm start, then a sync run.
	cache := syncdomain.NewDedupCache()
	warmer := NewCacheWarmer(target, cache, keeper, nil)
	seeded, err := warmer.Warm(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, seeded)
	assert.Equal(t, 2, cache.Len())

	source := &fakeSource{roster: []student.Record{rec("s1", "Érica", 60), rec("s2", "Bruno", 30)}}
	h := NewSyncRosterHandler(source, target, cache, keeper, nil)
	record, err := h.Handle(context.Background())
	require.NoError(t, err)

	// No duplicates, no writes: warm start restored the skip-state.
	assert.Equal(t, 2, record.Skipped)
	assert.Equal(t, 0, record.Created)
	assert.Equal(t, writesBefore, target.writeCalls())
	assert.Len(t, target.pages, 2)
}

func TestWarmFailureLeavesCacheEmpty(t *testing.T) {
	target := newFakeTarget()
	target.listErr = errors.New("query failed")
	cache := syncdomain.NewDedupCache()
	keeper := syncdomain.NewKeeper(testNow)

	warmer := NewCacheWarmer(target, cache, keeper, nil)
	seeded, err := warmer.Warm(context.Background())
	assert.Error(t, err)
	assert.Equal(t, 0, seeded)
	assert.Equal(t, 0, cache.Len())
}

func TestWarmSkipsPagesWithoutIdentity(t *testing.T) {
	target := newFakeTarget()
	keeper := syncdomain.NewKeeper(testNow)

	_, err := target.CreatePage(context.Background(), rec("s1", "Érica", 60), keeper.Current())
	require.NoError(t, err)
	_, err = target.CreatePage(context.Background(), student.Record{Name: "No ID"}, keeper.Current())
	require.NoError(t, err)

	cache := syncdomain.NewDedupCache()
	warmer := NewCacheWarmer(target, cache, keeper, nil)
	seeded, err := warmer.Warm(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, seeded)
}

func TestRunStatusTracksLastRecords(t *testing.T) {
	status := NewRunStatus()
	assert.Nil(t, status.LastRun())
	assert.Nil(t, status.LastReset())

	run := syncdomain.NewRunRecord(syncdomain.EpochAt(testNow), testNow)
	run.Finalize(testNow, false)
	status.SetLastRun(run)
	require.NotNil(t, status.LastRun())
	assert.Equal(t, run.RunID, status.LastRun().RunID)

	reset := syncdomain.NewResetRecord(syncdomain.EpochAt(testNow), testNow)
	status.SetLastReset(reset)
	require.NotNil(t, status.LastReset())
	assert.Equal(t, reset.RunID, status.LastReset().RunID)
}
