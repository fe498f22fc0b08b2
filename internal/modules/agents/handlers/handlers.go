// Package handlers provides HTTP handlers for agent management and the
// public agent detail endpoint.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/aristath/arena/internal/domain"
	"github.com/aristath/arena/internal/modules/agents"
	"github.com/aristath/arena/internal/modules/results"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// recentHistoryLimit caps the public agent detail history window
const recentHistoryLimit = 14

// ResultsReader provides the recent history shown on the agent page
type ResultsReader interface {
	RecentForAgent(agentID int64, limit int, nominalCapital float64) ([]results.HistoryRow, error)
}

// Handler provides HTTP handlers for agent endpoints
type Handler struct {
	repo           *agents.Repository
	results        ResultsReader
	nominalCapital float64
	log            zerolog.Logger
}

// NewHandler creates a new agents handler
func NewHandler(repo *agents.Repository, resultsReader ResultsReader, nominalCapital float64, log zerolog.Logger) *Handler {
	return &Handler{
		repo:           repo,
		results:        resultsReader,
		nominalCapital: nominalCapital,
		log:            log.With().Str("handler", "agents").Logger(),
	}
}

// HandleList handles GET /api/admin/v1/agents
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	list, err := h.repo.List()
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list agents")
		http.Error(w, "Failed to list agents", http.StatusInternalServerError)
		return
	}
	if list == nil {
		list = []agents.Agent{}
	}
	writeJSON(w, http.StatusOK, list)
}

// HandleCreate handles POST /api/admin/v1/agents
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var params agents.CreateParams
	if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if params.Name == "" {
		http.Error(w, "name required", http.StatusBadRequest)
		return
	}

	id, err := h.repo.Create(params)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to create agent")
		http.Error(w, "Failed to create agent", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]int64{"id": id})
}

// HandleUpdate handles PUT /api/admin/v1/agents/{id}
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	var params agents.UpdateParams
	if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if err := h.repo.Update(id, params); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			http.Error(w, "Not found", http.StatusNotFound)
			return
		}
		h.log.Error().Err(err).Int64("id", id).Msg("Failed to update agent")
		http.Error(w, "Failed to update agent", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// HandleDelete handles DELETE /api/admin/v1/agents/{id}
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	if err := h.repo.Delete(id); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			http.Error(w, "Not found", http.StatusNotFound)
			return
		}
		h.log.Error().Err(err).Int64("id", id).Msg("Failed to delete agent")
		http.Error(w, "Failed to delete agent", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// publicAgent is the reduced agent view exposed publicly
type publicAgent struct {
	ID     int64   `json:"id"`
	Name   string  `json:"name"`
	Prompt *string `json:"prompt"`
}

// HandleGetPublic handles GET /api/public/v1/agents/{id}: the agent plus
// its recent scoring history.
func (h *Handler) HandleGetPublic(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	agent, err := h.repo.GetByID(id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			http.Error(w, "Not found", http.StatusNotFound)
			return
		}
		h.log.Error().Err(err).Int64("id", id).Msg("Failed to get agent")
		http.Error(w, "Failed to get agent", http.StatusInternalServerError)
		return
	}

	recent, err := h.results.RecentForAgent(id, recentHistoryLimit, h.nominalCapital)
	if err != nil {
		h.log.Error().Err(err).Int64("id", id).Msg("Failed to get agent history")
		http.Error(w, "Failed to get agent history", http.StatusInternalServerError)
		return
	}
	if recent == nil {
		recent = []results.HistoryRow{}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"agent":  publicAgent{ID: agent.ID, Name: agent.Name, Prompt: agent.Prompt},
		"recent": recent,
	})
}

func parseID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		http.Error(w, "Invalid id", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
