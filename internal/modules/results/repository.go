package results

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/aristath/arena/internal/modules/portfolio"
	"github.com/rs/zerolog"
)

// Repository handles the results table
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new results repository
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repository", "results").Logger(),
	}
}

// Upsert stores one agent's result for a trade date. The write is keyed on
// (trade_date, agent_id): the last writer wins and re-runs never create
// duplicate rows.
func (r *Repository) Upsert(tradeDate string, agentID int64, p portfolio.Portfolio, dayReturn float64) error {
	serialized, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("failed to serialize portfolio for agent %d: %w", agentID, err)
	}

	_, err = r.db.Exec(`
		INSERT INTO results (trade_date, agent_id, portfolio, day_return)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (trade_date, agent_id) DO UPDATE SET
			portfolio = excluded.portfolio,
			day_return = excluded.day_return
	`, tradeDate, agentID, string(serialized), dayReturn)
	if err != nil {
		return fmt.Errorf("failed to upsert result for agent %d on %s: %w", agentID, tradeDate, err)
	}
	return nil
}

// Leaderboard returns the ranked rows for a trade date, sorted by day
// return descending. DayPnL converts the return into a display P&L against
// the configured nominal capital.
func (r *Repository) Leaderboard(tradeDate string, nominalCapital float64) ([]LeaderboardRow, error) {
	rows, err := r.db.Query(`
		SELECT a.id, a.name, a.provider, a.model, r.day_return
		FROM results r
		JOIN agents a ON a.id = r.agent_id
		WHERE r.trade_date = ?
		ORDER BY r.day_return DESC
	`, tradeDate)
	if err != nil {
		return nil, fmt.Errorf("failed to query leaderboard for %s: %w", tradeDate, err)
	}
	defer rows.Close()

	var out []LeaderboardRow
	for rows.Next() {
		var row LeaderboardRow
		if err := rows.Scan(&row.AgentID, &row.AgentName, &row.Provider, &row.Model, &row.DayReturn); err != nil {
			return nil, fmt.Errorf("failed to scan leaderboard row: %w", err)
		}
		row.Rank = len(out) + 1
		row.DayPnL = row.DayReturn * nominalCapital
		out = append(out, row)
	}
	return out, rows.Err()
}

// RecentForAgent returns an agent's most recent results, newest first
func (r *Repository) RecentForAgent(agentID int64, limit int, nominalCapital float64) ([]HistoryRow, error) {
	rows, err := r.db.Query(`
		SELECT trade_date, day_return, portfolio
		FROM results
		WHERE agent_id = ?
		ORDER BY trade_date DESC
		LIMIT ?
	`, agentID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query results for agent %d: %w", agentID, err)
	}
	defer rows.Close()

	var out []HistoryRow
	for rows.Next() {
		var row HistoryRow
		var serialized string
		if err := rows.Scan(&row.TradeDate, &row.DayReturn, &serialized); err != nil {
			return nil, fmt.Errorf("failed to scan result row: %w", err)
		}
		row.Portfolio = json.RawMessage(serialized)
		row.DayPnL = row.DayReturn * nominalCapital
		out = append(out, row)
	}
	return out, rows.Err()
}
