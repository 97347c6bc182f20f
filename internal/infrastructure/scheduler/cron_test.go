package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCronExpression(t *testing.T) {
	tests := []struct {
		expr    string
		wantErr bool
	}{
		{"0 2 * * 1", false},
		{"*/10 * * * *", false},
		{"0 0 1 1 *", false},
		{"0,30 9-17 * * 1-5", false},
		{"* * * *", true},       // 4 fields
		{"60 * * * *", true},    // minute out of range
		{"* 24 * * *", true},    // hour out of range
		{"* * * * seven", true}, // not a number
	}

	for _, tt := range tests {
		_, err := ParseCronExpression(tt.expr)
		if tt.wantErr {
			assert.Error(t, err, tt.expr)
		} else {
			assert.NoError(t, err, tt.expr)
		}
	}
}

func TestCronNextWeeklyReset(t *testing.T) {
	// Monday 02:00 UTC - the weekly reset schedule.
	ce := MustParseCron("0 2 * * 1")

	// Wednesday afternoon: next firing is the following Monday.
	wed := time.Date(2026, 8, 19, 15, 30, 0, 0, time.UTC)
	next := ce.Next(wed)
	assert.Equal(t, time.Date(2026, 8, 24, 2, 0, 0, 0, time.UTC), next)

	// Monday 01:59: fires one minute later.
	mon := time.Date(2026, 8, 24, 1, 59, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2026, 8, 24, 2, 0, 0, 0, time.UTC), ce.Next(mon))

	// Exactly at the firing instant: next is a week out.
	at := time.Date(2026, 8, 24, 2, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2026, 8, 31, 2, 0, 0, 0, time.UTC), ce.Next(at))
}

func TestCronNextEveryTenMinutes(t *testing.T) {
	ce := MustParseCron("*/10 * * * *")

	now := time.Date(2026, 8, 19, 12, 3, 45, 0, time.UTC)
	assert.Equal(t, time.Date(2026, 8, 19, 12, 10, 0, 0, time.UTC), ce.Next(now))

	// Chained firings are exactly 10 minutes apart.
	first := ce.Next(now)
	assert.Equal(t, first.Add(10*time.Minute), ce.Next(first))
}

func TestIntervalScheduleNext(t *testing.T) {
	s := NewIntervalSchedule(10 * time.Minute)
	now := time.Date(2026, 8, 19, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, now.Add(10*time.Minute), s.Next(now))
	assert.Equal(t, "@every 10m0s", s.String())
}

func TestSchedulerRegisterRejectsDuplicates(t *testing.T) {
	s := NewScheduler(nil)
	job := &fakeJob{name: "j1"}

	require.NoError(t, s.Register(job, NewIntervalSchedule(time.Minute)))
	err := s.Register(job, NewIntervalSchedule(time.Minute))
	assert.ErrorIs(t, err, ErrJobAlreadyExists)

	assert.Error(t, s.Register(nil, NewIntervalSchedule(time.Minute)))
	assert.Error(t, s.Register(&fakeJob{name: "j2"}, nil))
}

func TestSchedulerLifecycle(t *testing.T) {
	s := NewScheduler(nil)
	assert.ErrorIs(t, s.Stop(), ErrSchedulerNotRunning)

	require.NoError(t, s.Start(context.Background()))
	assert.True(t, s.IsRunning())
	assert.ErrorIs(t, s.Start(context.Background()), ErrSchedulerAlreadyRunning)

	require.NoError(t, s.Stop())
	assert.False(t, s.IsRunning())
}

func TestSchedulerRunsDueJobs(t *testing.T) {
	s := NewScheduler(nil)
	s.tick = 5 * time.Millisecond

	done := make(chan struct{})
	job := &fakeJob{name: "j1", onRun: func() { close(done) }}
	require.NoError(t, s.Register(job, NewIntervalSchedule(10*time.Millisecond)))

	require.NoError(t, s.Start(context.Background()))
	defer s.Stop()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("job never fired")
	}

	infos := s.ListJobs()
	require.Len(t, infos, 1)
	assert.Equal(t, "j1", infos[0].Name)
	assert.GreaterOrEqual(t, infos[0].RunCount, int64(1))
}

type fakeJob struct {
	name  string
	onRun func()
	once  sync.Once
}

func (f *fakeJob) Name() string        { return f.name }
func (f *fakeJob) Description() string { return "test job" }
func (f *fakeJob) Run(ctx context.Context) error {
	if f.onRun != nil {
		f.once.Do(f.onRun)
	}
	return nil
}
