package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/arena/internal/clients/alpaca"
	"github.com/aristath/arena/internal/domain"
	"github.com/aristath/arena/internal/modules/agents"
	"github.com/aristath/arena/internal/modules/prices"
	"github.com/aristath/arena/internal/modules/scoring"
)

// diagPrompt is the fallback prompt for agent diagnostics: it asks for the
// trivial all-cash portfolio so the round trip can be verified cheaply.
const diagPrompt = `Return strictly this JSON: {"cash":1, "positions":[]}`

// SystemHandlers provides run control and diagnostic endpoints
type SystemHandlers struct {
	log          zerolog.Logger
	orchestrator *scoring.Orchestrator
	invoker      *scoring.Invoker
	alpaca       *alpaca.Client
	agentsRepo   *agents.Repository
}

// NewSystemHandlers creates system handlers
func NewSystemHandlers(
	log zerolog.Logger,
	orchestrator *scoring.Orchestrator,
	invoker *scoring.Invoker,
	alpacaClient *alpaca.Client,
	agentsRepo *agents.Repository,
) *SystemHandlers {
	return &SystemHandlers{
		log:          log.With().Str("handler", "system").Logger(),
		orchestrator: orchestrator,
		invoker:      invoker,
		alpaca:       alpacaClient,
		agentsRepo:   agentsRepo,
	}
}

// HandleRunStart handles POST /api/admin/v1/run/start. The body may
// override the trade date, the symbol universe and every agent's prompt;
// an empty body runs with defaults.
func (h *SystemHandlers) HandleRunStart(w http.ResponseWriter, r *http.Request) {
	var req scoring.RunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	report, err := h.orchestrator.Run(r.Context(), req)
	if err != nil {
		h.log.Error().Err(err).Msg("Run failed")
		status := http.StatusInternalServerError
		if domain.IsConfigError(err) {
			status = http.StatusBadRequest
		}
		writeJSONTo(w, status, map[string]interface{}{
			"ok":    false,
			"error": err.Error(),
		})
		return
	}

	writeJSONTo(w, http.StatusOK, report)
}

// HandleDiagAlpaca handles GET /api/admin/v1/diag/alpaca: a single-symbol
// fetch that verifies credentials, the configured feed and the auth mode
// without touching the database.
func (h *SystemHandlers) HandleDiagAlpaca(w http.ResponseWriter, r *http.Request) {
	symbol := strings.ToUpper(strings.TrimSpace(r.URL.Query().Get("symbol")))
	if symbol == "" {
		symbol = "AAPL"
	}
	date := prices.ResolveTradeDate(r.URL.Query().Get("date"), time.Now())

	bars, err := h.alpaca.FetchDailyBars(r.Context(), date, []string{symbol})
	if err != nil {
		status := http.StatusBadGateway
		if domain.IsConfigError(err) {
			status = http.StatusBadRequest
		}
		writeJSONTo(w, status, map[string]interface{}{
			"ok":    false,
			"base":  h.alpaca.BaseURL(),
			"feed":  h.alpaca.Feed(),
			"mode":  h.alpaca.AuthMode(),
			"date":  date,
			"error": err.Error(),
		})
		return
	}

	writeJSONTo(w, http.StatusOK, map[string]interface{}{
		"ok":     true,
		"base":   h.alpaca.BaseURL(),
		"feed":   h.alpaca.Feed(),
		"mode":   h.alpaca.AuthMode(),
		"date":   date,
		"symbol": symbol,
		"prices": bars,
	})
}

// HandleDiagAgent handles GET /api/admin/v1/diag/agent: one LLM round trip
// for a stored agent (?id=) or an ad-hoc provider/model combination, with
// the reply run through the portfolio validator.
func (h *SystemHandlers) HandleDiagAgent(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var agent agents.Agent
	if rawID := q.Get("id"); rawID != "" {
		id, err := strconv.ParseInt(rawID, 10, 64)
		if err != nil || id <= 0 {
			http.Error(w, "Invalid id", http.StatusBadRequest)
			return
		}
		stored, err := h.agentsRepo.GetByID(id)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				http.Error(w, "Not found", http.StatusNotFound)
				return
			}
			h.log.Error().Err(err).Int64("id", id).Msg("Failed to get agent")
			http.Error(w, "Failed to get agent", http.StatusInternalServerError)
			return
		}
		agent = *stored
	} else {
		agent = agents.Agent{
			Name:      "diag",
			Provider:  q.Get("provider"),
			Model:     q.Get("model"),
			APIKeyEnv: q.Get("api_key_env"),
			Active:    true,
		}
		if agent.Provider == "" {
			agent.Provider = agents.DefaultProvider
		}
		if agent.Model == "" {
			agent.Model = agents.DefaultModel
		}
		if baseURL := q.Get("base_url"); baseURL != "" {
			agent.BaseURL = &baseURL
		}
	}

	promptText := q.Get("prompt")
	if strings.TrimSpace(promptText) == "" {
		promptText = diagPrompt
	}

	symbols := []string{}
	if raw := q.Get("symbols"); raw != "" {
		for _, s := range strings.Split(raw, ",") {
			if s = strings.ToUpper(strings.TrimSpace(s)); s != "" {
				symbols = append(symbols, s)
			}
		}
	}

	outcome := h.invoker.Invoke(r.Context(), agent, promptText, scoring.MarketContext{Symbols: symbols})

	response := map[string]interface{}{
		"ok":       outcome.OK(),
		"status":   outcome.Status,
		"provider": agent.Provider,
		"model":    agent.Model,
	}
	if outcome.Portfolio != nil {
		response["portfolio"] = outcome.Portfolio
	}
	if outcome.Err != nil {
		response["error"] = outcome.Err.Error()
	}

	writeJSONTo(w, http.StatusOK, response)
}

func writeJSONTo(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}
