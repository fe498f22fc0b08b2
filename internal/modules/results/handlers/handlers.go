// Package handlers provides the public leaderboard HTTP handler.
package handlers

import (
	"encoding/json"
	"net/http"
	"regexp"
	"time"

	"github.com/aristath/arena/internal/modules/prices"
	"github.com/aristath/arena/internal/modules/results"
	"github.com/rs/zerolog"
)

var dateRe = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// LeaderboardReader provides ranked results for a trade date
type LeaderboardReader interface {
	Leaderboard(tradeDate string, nominalCapital float64) ([]results.LeaderboardRow, error)
}

// Handler provides the leaderboard handler
type Handler struct {
	repo           LeaderboardReader
	nominalCapital float64
	log            zerolog.Logger
}

// NewHandler creates a new results handler
func NewHandler(repo LeaderboardReader, nominalCapital float64, log zerolog.Logger) *Handler {
	return &Handler{
		repo:           repo,
		nominalCapital: nominalCapital,
		log:            log.With().Str("handler", "results").Logger(),
	}
}

// HandleLeaderboard handles GET /api/public/v1/leaderboard?date=YYYY-MM-DD.
// Without a date it serves the latest completed trade date.
func (h *Handler) HandleLeaderboard(w http.ResponseWriter, r *http.Request) {
	date := r.URL.Query().Get("date")
	if date == "" {
		date = prices.TradeDate(time.Now())
	} else if !dateRe.MatchString(date) {
		http.Error(w, "Invalid date, expected YYYY-MM-DD", http.StatusBadRequest)
		return
	}

	rows, err := h.repo.Leaderboard(date, h.nominalCapital)
	if err != nil {
		h.log.Error().Err(err).Str("trade_date", date).Msg("Failed to load leaderboard")
		http.Error(w, "Failed to load leaderboard", http.StatusInternalServerError)
		return
	}
	if rows == nil {
		rows = []results.LeaderboardRow{}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"trade_date":  date,
		"leaderboard": rows,
	})
}
