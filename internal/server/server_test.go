package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/arena/internal/clients/alpaca"
	"github.com/aristath/arena/internal/config"
	"github.com/aristath/arena/internal/database"
	"github.com/aristath/arena/internal/modules/agents"
	"github.com/aristath/arena/internal/modules/portfolio"
	"github.com/aristath/arena/internal/modules/prices"
	"github.com/aristath/arena/internal/modules/results"
	"github.com/aristath/arena/internal/modules/scoring"
)

// fakeFetcher serves canned bars so run tests never hit the network
type fakeFetcher struct {
	bars portfolio.PriceMap
}

func (f *fakeFetcher) FetchDailyBars(_ context.Context, _ string, _ []string) (portfolio.PriceMap, error) {
	return f.bars, nil
}

type testEnv struct {
	server *Server
	agents *agents.Repository
	db     *database.DB
}

func newTestEnv(t *testing.T, adminToken string) *testEnv {
	t.Helper()
	log := zerolog.Nop()

	db, err := database.New(database.Config{
		Path: filepath.Join(t.TempDir(), "arena.db"),
		Name: "arena",
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, db.Migrate())

	cfg := &config.Config{
		Port:           0,
		AdminToken:     adminToken,
		SymbolUniverse: []string{"AAPL", "MSFT", "GOOG"},
		NominalCapital: 10000,
	}

	agentsRepo := agents.NewRepository(db.Conn(), log)
	pricesRepo := prices.NewRepository(db.Conn(), log)
	resultsRepo := results.NewRepository(db.Conn(), log)
	invoker := scoring.NewInvoker(0, log)

	fetcher := &fakeFetcher{bars: portfolio.PriceMap{
		"AAPL": {Open: 100, Close: 105},
		"MSFT": {Open: 200, Close: 198},
		"GOOG": {Open: 50, Close: 50},
	}}

	orch := scoring.NewOrchestrator(
		cfg.SymbolUniverse,
		fetcher,
		pricesRepo,
		agentsRepo,
		resultsRepo,
		invoker,
		log,
	)

	srv := New(Config{
		Log:          log,
		DB:           db,
		Config:       cfg,
		AgentsRepo:   agentsRepo,
		ResultsRepo:  resultsRepo,
		Orchestrator: orch,
		Invoker:      invoker,
		Alpaca:       alpaca.NewClient(config.AlpacaConfig{BaseURL: "http://localhost:1", Feed: "iex", AuthMode: "trading"}, log),
	})

	return &testEnv{server: srv, agents: agentsRepo, db: db}
}

func (e *testEnv) request(t *testing.T, method, path string, body interface{}, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	e.server.Router().ServeHTTP(rec, req)
	return rec
}

func TestHealthEndpoint(t *testing.T) {
	env := newTestEnv(t, "")

	rec := env.request(t, http.MethodGet, "/api/health", nil, nil)

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, "ok", body["db"])
}

func TestLeaderboardEmptyAndBadDate(t *testing.T) {
	env := newTestEnv(t, "")

	rec := env.request(t, http.MethodGet, "/api/public/v1/leaderboard?date=2025-06-09", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		TradeDate   string                   `json:"trade_date"`
		Leaderboard []map[string]interface{} `json:"leaderboard"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "2025-06-09", body.TradeDate)
	assert.Empty(t, body.Leaderboard)

	rec = env.request(t, http.MethodGet, "/api/public/v1/leaderboard?date=june-9", nil, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAdminAuthGuard(t *testing.T) {
	env := newTestEnv(t, "secret-token")

	rec := env.request(t, http.MethodGet, "/api/admin/v1/agents", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.request(t, http.MethodGet, "/api/admin/v1/agents", nil, map[string]string{"X-Admin-Token": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.request(t, http.MethodGet, "/api/admin/v1/agents", nil, map[string]string{"X-Admin-Token": "secret-token"})
	assert.Equal(t, http.StatusOK, rec.Code)

	// Public routes stay open
	rec = env.request(t, http.MethodGet, "/api/public/v1/leaderboard?date=2025-06-09", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAdminAuthOpenWithoutToken(t *testing.T) {
	env := newTestEnv(t, "")

	rec := env.request(t, http.MethodGet, "/api/admin/v1/agents", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAgentCRUDLifecycle(t *testing.T) {
	env := newTestEnv(t, "")

	rec := env.request(t, http.MethodPost, "/api/admin/v1/agents", map[string]interface{}{
		"name":   "momentum",
		"prompt": "Buy what went up.",
	}, nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	var created map[string]int64
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	id := created["id"]
	require.NotZero(t, id)

	rec = env.request(t, http.MethodGet, "/api/admin/v1/agents", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list []agents.Agent
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list, 1)
	assert.Equal(t, "momentum", list[0].Name)
	assert.Equal(t, agents.DefaultModel, list[0].Model)

	rec = env.request(t, http.MethodGet, fmt.Sprintf("/api/public/v1/agents/%d", id), nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var detail struct {
		Agent  map[string]interface{}   `json:"agent"`
		Recent []map[string]interface{} `json:"recent"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &detail))
	assert.Equal(t, "momentum", detail.Agent["name"])
	assert.Empty(t, detail.Recent)

	newName := "momentum-v2"
	rec = env.request(t, http.MethodPut, fmt.Sprintf("/api/admin/v1/agents/%d", id), map[string]interface{}{
		"name": newName,
	}, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.request(t, http.MethodDelete, fmt.Sprintf("/api/admin/v1/agents/%d", id), nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.request(t, http.MethodGet, fmt.Sprintf("/api/public/v1/agents/%d", id), nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.request(t, http.MethodDelete, "/api/admin/v1/agents/999", nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.request(t, http.MethodGet, "/api/public/v1/agents/abc", nil, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRunStartScoresAgentsAndFeedsLeaderboard(t *testing.T) {
	env := newTestEnv(t, "")

	// No credential in the environment, so the agent degrades to the
	// default all-cash portfolio with a zero day return.
	_, err := env.agents.Create(agents.CreateParams{
		Name:      "no-key-agent",
		Prompt:    strPtr("Hold everything."),
		APIKeyEnv: strPtr("ARENA_TEST_MISSING_KEY"),
	})
	require.NoError(t, err)

	rec := env.request(t, http.MethodPost, "/api/admin/v1/run/start", map[string]interface{}{
		"date": "2025-06-09",
	}, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var report scoring.RunReport
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.True(t, report.OK)
	assert.Equal(t, "2025-06-09", report.TradeDate)
	assert.Equal(t, 1, report.AgentsProcessed)
	assert.NotEmpty(t, report.RunID)

	rec = env.request(t, http.MethodGet, "/api/public/v1/leaderboard?date=2025-06-09", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Leaderboard []results.LeaderboardRow `json:"leaderboard"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Leaderboard, 1)
	assert.Equal(t, "no-key-agent", body.Leaderboard[0].AgentName)
	assert.Equal(t, 1, body.Leaderboard[0].Rank)
	assert.Equal(t, 0.0, body.Leaderboard[0].DayReturn)
}

func TestRunStartEmptyBody(t *testing.T) {
	env := newTestEnv(t, "")

	req := httptest.NewRequest(http.MethodPost, "/api/admin/v1/run/start", nil)
	rec := httptest.NewRecorder()
	env.server.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var report scoring.RunReport
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.True(t, report.OK)
}

func TestDiagAlpacaWithoutCredentials(t *testing.T) {
	env := newTestEnv(t, "")

	rec := env.request(t, http.MethodGet, "/api/admin/v1/diag/alpaca?symbol=aapl&date=2025-06-09", nil, nil)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, false, body["ok"])
	assert.Equal(t, "2025-06-09", body["date"])
	assert.Equal(t, "iex", body["feed"])
}

func TestDiagAgentWithoutCredentials(t *testing.T) {
	env := newTestEnv(t, "")

	rec := env.request(t, http.MethodGet, "/api/admin/v1/diag/agent?provider=openai&api_key_env=ARENA_TEST_MISSING_KEY", nil, nil)

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, false, body["ok"])
	assert.Equal(t, string(scoring.StatusNoCredential), body["status"])
	assert.Equal(t, "openai", body["provider"])
}

func strPtr(s string) *string { return &s }
