package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mikaelzzzz/flexge-notion-sync/internal/application/command"
	"github.com/mikaelzzzz/flexge-notion-sync/internal/domain/student"
	syncdomain "github.com/mikaelzzzz/flexge-notion-sync/internal/domain/sync"
	"github.com/mikaelzzzz/flexge-notion-sync/internal/interface/http/handlers"
	"github.com/mikaelzzzz/flexge-notion-sync/pkg/logger"
)

var serverTestNow = time.Date(2026, 8, 19, 12, 0, 0, 0, time.UTC)

type stubSource struct {
	roster []student.Record
	err    error
}

func (s *stubSource) FetchCurrentRoster(ctx context.Context) ([]student.Record, error) {
	return s.roster, s.err
}

type stubTarget struct{ creates, archives int }

func (s *stubTarget) CreatePage(ctx context.Context, rec student.Record, epoch syncdomain.Epoch) (syncdomain.PageRef, error) {
	s.creates++
	return syncdomain.PageRef("page-1"), nil
}
func (s *stubTarget) UpdatePage(ctx context.Context, ref syncdomain.PageRef, rec student.Record) error {
	return nil
}
func (s *stubTarget) ArchivePage(ctx context.Context, ref syncdomain.PageRef) error {
	s.archives++
	return nil
}
func (s *stubTarget) ListCurrentEpochPages(ctx context.Context, epoch syncdomain.Epoch) ([]syncdomain.PageSnapshot, error) {
	return nil, nil
}

type testServer struct {
	server      *Server
	coordinator *command.RunCoordinator
	status      *command.RunStatus
	cache       *syncdomain.DedupCache
}

func newTestServer(t *testing.T, config Config) *testServer {
	t.Helper()

	coordinator := command.NewRunCoordinator()
	cache := syncdomain.NewDedupCache()
	keeper := syncdomain.NewKeeper(serverTestNow)
	status := command.NewRunStatus()

	source := &stubSource{roster: []student.Record{{
		ID: "s1", Name: "Érica", Level: student.LevelB1, StudiedMinutes: 60, FetchedAt: serverTestNow,
	}}}
	target := &stubTarget{}

	resetConfig := command.DefaultWeeklyResetConfig()
	resetConfig.Clock = func() time.Time { return serverTestNow }

	deps := Dependencies{
		Coordinator:  coordinator,
		SyncHandler:  command.NewSyncRosterHandler(source, target, cache, keeper, nil),
		ResetHandler: command.NewWeeklyResetHandler(target, cache, keeper, resetConfig, nil),
		Status:       status,
		Keeper:       keeper,
		Cache:        cache,
		Logger:       logger.New(logger.Options{Output: io.Discard}),
	}

	return &testServer{
		server:      NewServer(config, deps),
		coordinator: coordinator,
		status:      status,
		cache:       cache,
	}
}

func (ts *testServer) do(method, path string, header map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	ts.server.httpServer.Handler.ServeHTTP(rec, req)
	return rec
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) (JSONResponse, map[string]interface{}) {
	t.Helper()
	var resp JSONResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	data, _ := resp.Data.(map[string]interface{})
	return resp, data
}

func TestTriggerSyncReturnsRunRecord(t *testing.T) {
	ts := newTestServer(t, DefaultConfig())

	rec := ts.do(http.MethodPost, "/api/v1/sync", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	resp, data := decodeEnvelope(t, rec)
	assert.True(t, resp.Success)
	assert.Equal(t, "success", data["outcome"])
	assert.EqualValues(t, 1, data["created"])
	assert.NotEmpty(t, data["run_id"])

	require.NotNil(t, ts.status.LastRun())
	assert.Equal(t, 1, ts.cache.Len())
}

func TestTriggerSyncBusyReturns409(t *testing.T) {
	ts := newTestServer(t, DefaultConfig())

	require.NoError(t, ts.coordinator.TryAcquire(command.JobReset))
	defer ts.coordinator.Release()

	rec := ts.do(http.MethodPost, "/api/v1/sync", nil)
	require.Equal(t, http.StatusConflict, rec.Code)

	resp, _ := decodeEnvelope(t, rec)
	assert.False(t, resp.Success)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "busy", resp.Error.Code)
}

func TestTriggerReset(t *testing.T) {
	ts := newTestServer(t, DefaultConfig())

	// Seed some dedup state so the reset has something to archive.
	rec := ts.do(http.MethodPost, "/api/v1/sync", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = ts.do(http.MethodPost, "/api/v1/reset", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	_, data := decodeEnvelope(t, rec)
	assert.EqualValues(t, 1, data["archived"])
	assert.Equal(t, 0, ts.cache.Len())
	require.NotNil(t, ts.status.LastReset())
}

func TestTriggerEndpointsRequireAPIKey(t *testing.T) {
	config := DefaultConfig()
	config.APIKeys = []string{"sekrit"}
	ts := newTestServer(t, config)

	rec := ts.do(http.MethodPost, "/api/v1/sync", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = ts.do(http.MethodPost, "/api/v1/sync", map[string]string{"X-API-Key": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = ts.do(http.MethodPost, "/api/v1/sync", map[string]string{"X-API-Key": "sekrit"})
	assert.Equal(t, http.StatusOK, rec.Code)

	// Read-only endpoints stay open.
	rec = ts.do(http.MethodGet, "/api/v1/status", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestLastRunNotFoundThenFound(t *testing.T) {
	ts := newTestServer(t, DefaultConfig())

	rec := ts.do(http.MethodGet, "/api/v1/runs/last", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)

	require.Equal(t, http.StatusOK, ts.do(http.MethodPost, "/api/v1/sync", nil).Code)

	rec = ts.do(http.MethodGet, "/api/v1/runs/last", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	_, data := decodeEnvelope(t, rec)
	assert.Equal(t, "success", data["outcome"])
}

func TestHealthReportsLastRunAndChecks(t *testing.T) {
	config := DefaultConfig()
	ts := newTestServer(t, config)

	checker := handlers.NewCompositeHealthChecker()
	checker.AddCheck("flexge", func(ctx context.Context) error { return nil })
	ts.server.deps.HealthChecker = checker

	rec := ts.do(http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var health map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &health))
	assert.Equal(t, true, health["ok"])
	assert.Equal(t, "2026-W34", health["epoch"])
	assert.Contains(t, health["checks"], "flexge")

	// A finished run shows up in the health document.
	require.Equal(t, http.StatusOK, ts.do(http.MethodPost, "/api/v1/sync", nil).Code)
	rec = ts.do(http.MethodGet, "/health", nil)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &health))
	assert.Equal(t, "success", health["last_run_outcome"])
	assert.NotEmpty(t, health["last_run_at"])
}

func TestHealthFailingCheckReturns503(t *testing.T) {
	ts := newTestServer(t, DefaultConfig())

	checker := handlers.NewCompositeHealthChecker()
	checker.AddCheck("notion", func(ctx context.Context) error { return errors.New("connection refused") })
	ts.server.deps.HealthChecker = checker

	rec := ts.do(http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var health map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &health))
	assert.Equal(t, false, health["ok"])
}

func TestStatusEndpoint(t *testing.T) {
	ts := newTestServer(t, DefaultConfig())

	rec := ts.do(http.MethodGet, "/api/v1/status", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	_, data := decodeEnvelope(t, rec)
	assert.Equal(t, "2026-W34", data["epoch"])
	assert.Equal(t, "", data["running_job"])
	assert.EqualValues(t, 0, data["cache_entries"])
}

func TestRequestIDEchoedAndGenerated(t *testing.T) {
	ts := newTestServer(t, DefaultConfig())

	rec := ts.do(http.MethodGet, "/api/v1/status", map[string]string{"X-Request-ID": "req-42"})
	assert.Equal(t, "req-42", rec.Header().Get("X-Request-ID"))

	rec = ts.do(http.MethodGet, "/api/v1/status", nil)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestRateLimitRejectsAfterBudget(t *testing.T) {
	config := DefaultConfig()
	config.RateLimitPerMinute = 3
	ts := newTestServer(t, config)

	for i := 0; i < 3; i++ {
		require.Equal(t, http.StatusOK, ts.do(http.MethodGet, "/api/v1/status", nil).Code)
	}

	rec := ts.do(http.MethodGet, "/api/v1/status", nil)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))
}

func TestHealthCheckProviderAdapter(t *testing.T) {
	check := handlers.NewProviderCheck("flexge", healthyProvider{healthy: false})
	assert.Error(t, check(context.Background()))

	check = handlers.NewProviderCheck("flexge", healthyProvider{healthy: true})
	assert.NoError(t, check(context.Background()))
}

type healthyProvider struct{ healthy bool }

func (p healthyProvider) IsHealthy(ctx context.Context) bool { return p.healthy }
