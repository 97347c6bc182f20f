package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/mikaelzzzz/flexge-notion-sync/internal/application/command"
	"github.com/mikaelzzzz/flexge-notion-sync/internal/domain/shared"
	"github.com/mikaelzzzz/flexge-notion-sync/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// HEALTH & STATUS HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleRoot serves the root endpoint with basic API information.
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	info := map[string]interface{}{
		"name":        "Flexge-Notion Sync API",
		"version":     "v1",
		"description": "Control surface for the weekly study-time sync engine",
		"endpoints": map[string]string{
			"health":     "/health",
			"sync":       "/api/v1/sync",
			"reset":      "/api/v1/reset",
			"status":     "/api/v1/status",
			"last_run":   "/api/v1/runs/last",
			"last_reset": "/api/v1/resets/last",
		},
	}

	writeJSON(w, http.StatusOK, info)
}

// healthResponse is the flat health document: overall verdict, the last run
// the engine finished, and the individual dependency checks.
type healthResponse struct {
	OK             bool                   `json:"ok"`
	Epoch          string                 `json:"epoch,omitempty"`
	LastRunAt      *time.Time             `json:"last_run_at,omitempty"`
	LastRunOutcome string                 `json:"last_run_outcome,omitempty"`
	Checks         map[string]interface{} `json:"checks,omitempty"`
	Uptime         string                 `json:"uptime,omitempty"`
}

// handleHealth handles the health check endpoint. Unlike the API endpoints
// the document is flat, not wrapped: probes and uptime monitors read it.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{
		OK:     true,
		Uptime: s.Uptime().Round(time.Second).String(),
	}

	if s.deps.Keeper != nil {
		resp.Epoch = s.deps.Keeper.Current().Label()
	}

	if s.deps.Status != nil {
		if last := s.deps.Status.LastRun(); last != nil {
			finished := last.FinishedAt
			resp.LastRunAt = &finished
			resp.LastRunOutcome = string(last.Outcome)
		}
	}

	if s.deps.HealthChecker != nil {
		status := s.deps.HealthChecker.Check(r.Context())
		resp.OK = status.OK
		resp.Checks = make(map[string]interface{}, len(status.Checks))
		for name, result := range status.Checks {
			resp.Checks[name] = result
		}
	}

	code := http.StatusOK
	if !resp.OK {
		code = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(resp)
}

// handleStatus handles GET /api/v1/status - the operator's one-stop view.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	status := map[string]interface{}{
		"epoch":         s.deps.Keeper.Current().Label(),
		"running_job":   string(s.deps.Coordinator.Running()),
		"cache_entries": s.deps.Cache.Len(),
		"uptime":        s.Uptime().Round(time.Second).String(),
	}

	if last := s.deps.Status.LastRun(); last != nil {
		status["last_run"] = last
	}
	if last := s.deps.Status.LastReset(); last != nil {
		status["last_reset"] = last
	}

	writeJSON(w, http.StatusOK, status)
}

// handleLastRun handles GET /api/v1/runs/last
func (s *Server) handleLastRun(w http.ResponseWriter, r *http.Request) {
	last := s.deps.Status.LastRun()
	if last == nil {
		writeJSONError(w, http.StatusNotFound, "not_found", "No sync run has finished yet")
		return
	}

	writeJSON(w, http.StatusOK, last)
}

// handleLastReset handles GET /api/v1/resets/last
func (s *Server) handleLastReset(w http.ResponseWriter, r *http.Request) {
	last := s.deps.Status.LastReset()
	if last == nil {
		writeJSONError(w, http.StatusNotFound, "not_found", "No weekly reset has finished yet")
		return
	}

	writeJSON(w, http.StatusOK, last)
}

// ══════════════════════════════════════════════════════════════════════════════
// TRIGGER HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleTriggerSync handles POST /api/v1/sync - a manual sync run through the
// same coordinator the scheduler uses. A run already in flight means 409; the
// caller retries later, nothing is queued.
func (s *Server) handleTriggerSync(w http.ResponseWriter, r *http.Request) {
	if !s.authorize(w, r) {
		return
	}

	if s.deps.SyncHandler == nil {
		writeJSONError(w, http.StatusNotImplemented, "not_implemented", "Sync handler not configured")
		return
	}

	var record interface{}
	err := s.deps.Coordinator.Run(r.Context(), command.JobSync, func(ctx context.Context) error {
		rec, runErr := s.deps.SyncHandler.Handle(ctx)
		if rec != nil {
			record = rec
			s.deps.Status.SetLastRun(rec)
		}
		return runErr
	})

	if errors.Is(err, shared.ErrBusy) {
		writeJSONError(w, http.StatusConflict, "busy",
			"Another run is in progress: "+string(s.deps.Coordinator.Running()))
		return
	}

	if record == nil {
		s.logger.Error("manual sync produced no record", logger.Err(err))
		writeJSONError(w, http.StatusInternalServerError, "internal_error", "Sync run failed to start")
		return
	}

	// Fetch failures and partial runs still return the record; its outcome
	// field tells the operator what happened.
	if err != nil {
		s.logger.Warn("manual sync finished with errors", logger.Err(err))
	}

	writeJSON(w, http.StatusOK, record)
}

// handleTriggerReset handles POST /api/v1/reset - the operational escape
// hatch for a missed weekly reset.
func (s *Server) handleTriggerReset(w http.ResponseWriter, r *http.Request) {
	if !s.authorize(w, r) {
		return
	}

	if s.deps.ResetHandler == nil {
		writeJSONError(w, http.StatusNotImplemented, "not_implemented", "Reset handler not configured")
		return
	}

	var record interface{}
	err := s.deps.Coordinator.Run(r.Context(), command.JobReset, func(ctx context.Context) error {
		rec, resetErr := s.deps.ResetHandler.Handle(ctx)
		if rec != nil {
			record = rec
			s.deps.Status.SetLastReset(rec)
		}
		return resetErr
	})

	if errors.Is(err, shared.ErrBusy) {
		writeJSONError(w, http.StatusConflict, "busy",
			"Another run is in progress: "+string(s.deps.Coordinator.Running()))
		return
	}

	if record == nil {
		s.logger.Error("manual reset produced no record", logger.Err(err))
		writeJSONError(w, http.StatusInternalServerError, "internal_error", "Reset failed to start")
		return
	}

	if err != nil {
		s.logger.Warn("manual reset finished with errors", logger.Err(err))
	}

	writeJSON(w, http.StatusOK, record)
}
