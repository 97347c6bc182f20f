package sync

import (
	"time"

	"github.com/google/uuid"

	"github.com/mikaelzzzz/flexge-notion-sync/internal/domain/student"
)

// ══════════════════════════════════════════════════════════════════════════════
// SYNC RUN RECORD
// ══════════════════════════════════════════════════════════════════════════════

// Outcome classifies a finished sync run.
type Outcome string

const (
	// OutcomeSuccess - every student was created, updated or skipped.
	OutcomeSuccess Outcome = "success"

	// OutcomePartial - some students failed, the rest were processed.
	OutcomePartial Outcome = "partial"

	// OutcomeFailed - the roster fetch itself failed (or credentials were
	// rejected); no per-student work happened.
	OutcomeFailed Outcome = "failed"
)

// StudentError is one per-student failure inside a run.
type StudentError struct {
	StudentID student.ID `json:"student_id"`
	Name      string     `json:"name,omitempty"`
	Reason    string     `json:"reason"`
}

// RunRecord is the summary of one sync engine invocation. It exists only for
// the duration of the run plus whatever its caller does with it (log it,
// return it over HTTP); nothing persists it.
type RunRecord struct {
	RunID      string         `json:"run_id"`
	Epoch      Epoch          `json:"epoch"`
	StartedAt  time.Time      `json:"started_at"`
	FinishedAt time.Time      `json:"finished_at"`
	Outcome    Outcome        `json:"outcome"`
	Total      int            `json:"total"`
	Created    int            `json:"created"`
	Updated    int            `json:"updated"`
	Skipped    int            `json:"skipped"`
	Failed     int            `json:"failed"`
	Errors     []StudentError `json:"errors,omitempty"`
}

// NewRunRecord starts a record for a run over the given epoch.
func NewRunRecord(epoch Epoch, now time.Time) *RunRecord {
	return &RunRecord{
		RunID:     uuid.NewString(),
		Epoch:     epoch,
		StartedAt: now,
		Errors:    make([]StudentError, 0),
	}
}

// RecordCreated counts a successful page create.
func (r *RunRecord) RecordCreated() { r.Created++ }

// RecordUpdated counts a successful page update.
func (r *RunRecord) RecordUpdated() { r.Updated++ }

// RecordSkipped counts a student whose page was already up to date.
func (r *RunRecord) RecordSkipped() { r.Skipped++ }

// RecordFailure counts a per-student failure and keeps its reason.
func (r *RunRecord) RecordFailure(id student.ID, name string, err error) {
	r.Failed++
	r.Errors = append(r.Errors, StudentError{StudentID: id, Name: name, Reason: err.Error()})
}

// Finalize stamps the end time and derives the outcome from the counters.
// fetchFailed marks runs where the roster never arrived.
func (r *RunRecord) Finalize(now time.Time, fetchFailed bool) {
	r.FinishedAt = now
	switch {
	case fetchFailed:
		r.Outcome = OutcomeFailed
	case r.Failed > 0:
		r.Outcome = OutcomePartial
	default:
		r.Outcome = OutcomeSuccess
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// WEEKLY RESET RECORD
// ══════════════════════════════════════════════════════════════════════════════

// ResetRecord summarizes one weekly reset invocation.
type ResetRecord struct {
	RunID         string    `json:"run_id"`
	StartedAt     time.Time `json:"started_at"`
	FinishedAt    time.Time `json:"finished_at"`
	ClosedEpoch   Epoch     `json:"closed_epoch"`
	NewEpoch      Epoch     `json:"new_epoch"`
	Archived      int       `json:"archived"`
	ArchiveErrors []string  `json:"archive_errors,omitempty"`

	// NoOp is set when the invocation detected a duplicate trigger (cache
	// already empty, epoch freshly advanced) and did nothing.
	NoOp bool `json:"no_op"`
}

// NewResetRecord starts a record for a reset closing the given epoch.
func NewResetRecord(closing Epoch, now time.Time) *ResetRecord {
	return &ResetRecord{
		RunID:       uuid.NewString(),
		StartedAt:   now,
		ClosedEpoch: closing,
	}
}
