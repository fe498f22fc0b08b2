// Package results stores per-agent daily scores and serves the leaderboard
// read model.
package results

import "encoding/json"

// LeaderboardRow is one ranked leaderboard entry for a trade date
type LeaderboardRow struct {
	Rank      int     `json:"rank"`
	AgentID   int64   `json:"agent_id"`
	AgentName string  `json:"agent_name"`
	Provider  string  `json:"provider"`
	Model     string  `json:"model"`
	DayReturn float64 `json:"day_return"`
	DayPnL    float64 `json:"day_pnl"`
}

// HistoryRow is one entry of an agent's recent scoring history
type HistoryRow struct {
	TradeDate string          `json:"trade_date"`
	DayReturn float64         `json:"day_return"`
	DayPnL    float64         `json:"day_pnl"`
	Portfolio json.RawMessage `json:"portfolio"`
}
