package command

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mikaelzzzz/flexge-notion-sync/internal/domain/shared"
	"github.com/mikaelzzzz/flexge-notion-sync/internal/domain/student"
	syncdomain "github.com/mikaelzzzz/flexge-notion-sync/internal/domain/sync"
)

// ══════════════════════════════════════════════════════════════════════════════
// FAKES
// ══════════════════════════════════════════════════════════════════════════════

type fakeSource struct {
	roster []student.Record
	err    error
	calls  int
}

func (f *fakeSource) FetchCurrentRoster(ctx context.Context) ([]student.Record, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	out := make([]student.Record, len(f.roster))
	copy(out, f.roster)
	return out, nil
}

type fakeTarget struct {
	mu sync.Mutex

	pages    map[syncdomain.PageRef]student.Record
	epochs   map[syncdomain.PageRef]syncdomain.Epoch
	archived map[syncdomain.PageRef]bool
	nextID   int

	creates  int
	updates  int
	archives int
	lists    int

	createErr  map[student.ID]error
	updateErr  map[syncdomain.PageRef]error
	archiveErr map[syncdomain.PageRef]error
	listErr    error
}

func newFakeTarget() *fakeTarget {
	return &fakeTarget{
		pages:      make(map[syncdomain.PageRef]student.Record),
		epochs:     make(map[syncdomain.PageRef]syncdomain.Epoch),
		archived:   make(map[syncdomain.PageRef]bool),
		createErr:  make(map[student.ID]error),
		updateErr:  make(map[syncdomain.PageRef]error),
		archiveErr: make(map[syncdomain.PageRef]error),
	}
}

func (f *fakeTarget) CreatePage(ctx context.Context, rec student.Record, epoch syncdomain.Epoch) (syncdomain.PageRef, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.creates++
	if err := f.createErr[rec.ID]; err != nil {
		return "", err
	}
	f.nextID++
	ref := syncdomain.PageRef(fmt.Sprintf("page-%d", f.nextID))
	f.pages[ref] = rec
	f.epochs[ref] = epoch
	return ref, nil
}

func (f *fakeTarget) UpdatePage(ctx context.Context, ref syncdomain.PageRef, rec student.Record) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates++
	if err := f.updateErr[ref]; err != nil {
		return err
	}
	if _, ok := f.pages[ref]; !ok {
		return errors.New("page not found")
	}
	f.pages[ref] = rec
	return nil
}

func (f *fakeTarget) ArchivePage(ctx context.Context, ref syncdomain.PageRef) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.archives++
	if err := f.archiveErr[ref]; err != nil {
		return err
	}
	f.archived[ref] = true
	return nil
}

func (f *fakeTarget) ListCurrentEpochPages(ctx context.Context, epoch syncdomain.Epoch) ([]syncdomain.PageSnapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lists++
	if f.listErr != nil {
		return nil, f.listErr
	}
	var snaps []syncdomain.PageSnapshot
	for ref, rec := range f.pages {
		if f.archived[ref] || !f.epochs[ref].Equal(epoch) {
			continue
		}
		snaps = append(snaps, syncdomain.PageSnapshot{Ref: ref, Student: rec})
	}
	return snaps, nil
}

func (f *fakeTarget) writeCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.creates + f.updates + f.archives
}

// ══════════════════════════════════════════════════════════════════════════════
// HELPERS
// ══════════════════════════════════════════════════════════════════════════════

var testNow = time.Date(2026, 8, 19, 12, 0, 0, 0, time.UTC) // Wednesday

func rec(id, name string, minutes int) student.Record {
	return student.Record{
		ID:             student.ID(id),
		Name:           name,
		Level:          student.LevelB1,
		StudiedMinutes: student.StudyMinutes(minutes),
		FetchedAt:      testNow,
	}
}

func newHandler(source *fakeSource, target *fakeTarget) (*SyncRosterHandler, *syncdomain.DedupCache, *syncdomain.Keeper) {
	cache := syncdomain.NewDedupCache()
	keeper := syncdomain.NewKeeper(testNow)
	h := NewSyncRosterHandler(source, target, cache, keeper, nil)
	h.now = func() time.Time { return testNow }
	return h, cache, keeper
}

// ══════════════════════════════════════════════════════════════════════════════
// TESTS
// ══════════════════════════════════════════════════════════════════════════════

func TestSyncCreatesPagesOnFirstRun(t *testing.T) {
	source := &fakeSource{roster: []student.Record{rec("s1", "Érica", 60), rec("s2", "Bruno", 30)}}
	target := newFakeTarget()
	h, cache, _ := newHandler(source, target)

	record, err := h.Handle(context.Background())
	require.NoError(t, err)

	assert.Equal(t, syncdomain.OutcomeSuccess, record.Outcome)
	assert.Equal(t, 2, record.Created)
	assert.Equal(t, 0, record.Updated)
	assert.Equal(t, 2, cache.Len())
	assert.Len(t, target.pages, 2)
}

func TestSyncIsIdempotent(t *testing.T) {
	source := &fakeSource{roster: []student.Record{rec("s1", "Érica", 60), rec("s2", "Bruno", 30)}}
	target := newFakeTarget()
	h, _, _ := newHandler(source, target)

	_, err := h.Handle(context.Background())
	require.NoError(t, err)
	writesAfterFirst := target.writeCalls()

	// Unchanged roster: the second run must not touch the target at all.
	record, err := h.Handle(context.Background())
	require.NoError(t, err)

	assert.Equal(t, syncdomain.OutcomeSuccess, record.Outcome)
	assert.Equal(t, 2, record.Skipped)
	assert.Equal(t, writesAfterFirst, target.writeCalls())
}

func TestSyncUpdatesOnVisibleChange(t *testing.T) {
	source := &fakeSource{roster: []student.Record{rec("s1", "Érica", 60)}}
	target := newFakeTarget()
	h, _, _ := newHandler(source, target)

	_, err := h.Handle(context.Background())
	require.NoError(t, err)

	// More study time: same page gets updated, no second page appears.
	source.roster = []student.Record{rec("s1", "Érica", 95)}
	record, err := h.Handle(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 0, record.Created)
	assert.Equal(t, 1, record.Updated)
	assert.Len(t, target.pages, 1)
	for _, page := range target.pages {
		assert.Equal(t, student.StudyMinutes(95), page.StudiedMinutes)
	}
}

func TestSyncFetchedAtChangeDoesNotUpdate(t *testing.T) {
	source := &fakeSource{roster: []student.Record{rec("s1", "Érica", 60)}}
	target := newFakeTarget()
	h, _, _ := newHandler(source, target)

	_, err := h.Handle(context.Background())
	require.NoError(t, err)

	// Only the fetch timestamp differs; the page content is identical.
	changed := rec("s1", "Érica", 60)
	changed.FetchedAt = testNow.Add(10 * time.Minute)
	source.roster = []student.Record{changed}

	record, err := h.Handle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, record.Skipped)
	assert.Equal(t, 0, record.Updated)
}

func TestSyncPerStudentFailureIsIsolated(t *testing.T) {
	source := &fakeSource{roster: []student.Record{rec("s1", "Érica", 60), rec("s2", "Bruno", 30)}}
	target := newFakeTarget()
	target.createErr["s1"] = errors.New("boom")
	h, cache, keeper := newHandler(source, target)

	record, err := h.Handle(context.Background())
	require.NoError(t, err)

	assert.Equal(t, syncdomain.OutcomePartial, record.Outcome)
	assert.Equal(t, 1, record.Created)
	assert.Equal(t, 1, record.Failed)
	require.Len(t, record.Errors, 1)
	assert.Equal(t, student.ID("s1"), record.Errors[0].StudentID)

	// The failed student must not be cached, so the next run retries.
	_, ok := cache.Lookup("s1", keeper.Current())
	assert.False(t, ok)

	delete(target.createErr, "s1")
	record, err = h.Handle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, record.Created)
	assert.Equal(t, 1, record.Skipped)
}

func TestSyncInvalidRecordIsPerStudentFailure(t *testing.T) {
	bad := rec("", "No ID", 10)
	source := &fakeSource{roster: []student.Record{bad, rec("s2", "Bruno", 30)}}
	target := newFakeTarget()
	h, _, _ := newHandler(source, target)

	record, err := h.Handle(context.Background())
	require.NoError(t, err)

	assert.Equal(t, syncdomain.OutcomePartial, record.Outcome)
	assert.Equal(t, 1, record.Failed)
	assert.Equal(t, 1, record.Created)
}

func TestSyncRosterFetchFailureFailsRun(t *testing.T) {
	source := &fakeSource{err: errors.New("connection refused")}
	target := newFakeTarget()
	h, _, _ := newHandler(source, target)

	record, err := h.Handle(context.Background())
	require.Error(t, err)
	assert.Equal(t, syncdomain.OutcomeFailed, record.Outcome)
	assert.Equal(t, 0, target.writeCalls())
}

func TestSyncAuthErrorAbortsRun(t *testing.T) {
	source := &fakeSource{roster: []student.Record{rec("s1", "Érica", 60), rec("s2", "Bruno", 30)}}
	target := newFakeTarget()
	target.createErr["s1"] = shared.WrapError("notion", "request", shared.ErrUnauthorized, "token rejected", nil)
	h, _, _ := newHandler(source, target)

	record, err := h.Handle(context.Background())
	require.Error(t, err)
	assert.True(t, shared.IsAuthError(err))
	assert.Equal(t, syncdomain.OutcomeFailed, record.Outcome)

	// The run stops at the auth error: the second student is never tried.
	assert.Equal(t, 1, target.creates)
}

func TestSyncDuplicateRosterEntriesCollapse(t *testing.T) {
	// The same student twice in one snapshot must still end up with one page.
	source := &fakeSource{roster: []student.Record{rec("s1", "Érica", 60), rec("s1", "Érica", 60)}}
	target := newFakeTarget()
	h, _, _ := newHandler(source, target)

	record, err := h.Handle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, record.Created)
	assert.Equal(t, 1, record.Skipped)
	assert.Len(t, target.pages, 1)
}
