package command

import (
	"sync"

	syncdomain "github.com/mikaelzzzz/flexge-notion-sync/internal/domain/sync"
)

// ══════════════════════════════════════════════════════════════════════════════
// RUN STATUS TRACKER
// ══════════════════════════════════════════════════════════════════════════════

// RunStatus keeps the records of the most recent sync run and reset for the
// health and status endpoints. Purely in-memory, like everything else here.
type RunStatus struct {
	mu        sync.RWMutex
	lastRun   *syncdomain.RunRecord
	lastReset *syncdomain.ResetRecord
}

// NewRunStatus creates an empty tracker.
func NewRunStatus() *RunStatus {
	return &RunStatus{}
}

// SetLastRun stores the record of a finished sync run.
func (s *RunStatus) SetLastRun(record *syncdomain.RunRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastRun = record
}

// LastRun returns the most recent sync run record, or nil.
func (s *RunStatus) LastRun() *syncdomain.RunRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastRun
}

// SetLastReset stores the record of a finished weekly reset.
func (s *RunStatus) SetLastReset(record *syncdomain.ResetRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastReset = record
}

// LastReset returns the most recent reset record, or nil.
func (s *RunStatus) LastReset() *syncdomain.ResetRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastReset
}
