package results

import (
	"database/sql"
	"testing"

	"github.com/aristath/arena/internal/modules/portfolio"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"
)

func setupResultsTestDB(t *testing.T) *sql.DB {
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec(`
		CREATE TABLE agents (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL,
			provider TEXT NOT NULL DEFAULT 'openai',
			model TEXT NOT NULL DEFAULT 'gpt-4o-mini'
		);
		CREATE TABLE results (
			trade_date TEXT NOT NULL,
			agent_id INTEGER NOT NULL,
			portfolio TEXT NOT NULL,
			day_return REAL NOT NULL,
			PRIMARY KEY (trade_date, agent_id)
		);
	`)
	require.NoError(t, err)

	return db
}

func insertAgent(t *testing.T, db *sql.DB, name string) int64 {
	t.Helper()
	res, err := db.Exec("INSERT INTO agents (name) VALUES (?)", name)
	require.NoError(t, err)
	id, err := res.LastInsertId()
	require.NoError(t, err)
	return id
}

func TestRepository_UpsertOverwrites(t *testing.T) {
	db := setupResultsTestDB(t)
	repo := NewRepository(db, zerolog.Nop())
	agentID := insertAgent(t, db, "alpha")

	p := portfolio.Portfolio{
		Cash:      0.5,
		Positions: []portfolio.Position{{Ticker: "AAPL", TargetWeight: 0.5}},
	}
	require.NoError(t, repo.Upsert("2025-06-09", agentID, p, 0.05))
	require.NoError(t, repo.Upsert("2025-06-09", agentID, portfolio.Default(), 0))

	var count int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM results").Scan(&count))
	assert.Equal(t, 1, count)

	history, err := repo.RecentForAgent(agentID, 14, 10000)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, 0.0, history[0].DayReturn)
	assert.JSONEq(t, `{"cash":1,"positions":[]}`, string(history[0].Portfolio))
}

func TestRepository_LeaderboardRanksByReturnDescending(t *testing.T) {
	db := setupResultsTestDB(t)
	repo := NewRepository(db, zerolog.Nop())

	a := insertAgent(t, db, "a")
	b := insertAgent(t, db, "b")
	c := insertAgent(t, db, "c")

	require.NoError(t, repo.Upsert("2025-06-09", a, portfolio.Default(), 0.02))
	require.NoError(t, repo.Upsert("2025-06-09", b, portfolio.Default(), -0.01))
	require.NoError(t, repo.Upsert("2025-06-09", c, portfolio.Default(), 0.05))

	rows, err := repo.Leaderboard("2025-06-09", 10000)
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, []int64{c, a, b}, []int64{rows[0].AgentID, rows[1].AgentID, rows[2].AgentID})
	assert.Equal(t, []int{1, 2, 3}, []int{rows[0].Rank, rows[1].Rank, rows[2].Rank})
	assert.InDelta(t, 500.0, rows[0].DayPnL, 1e-9)
	assert.InDelta(t, -100.0, rows[2].DayPnL, 1e-9)
}

func TestRepository_LeaderboardScopedToDate(t *testing.T) {
	db := setupResultsTestDB(t)
	repo := NewRepository(db, zerolog.Nop())
	a := insertAgent(t, db, "a")

	require.NoError(t, repo.Upsert("2025-06-09", a, portfolio.Default(), 0.02))

	rows, err := repo.Leaderboard("2025-06-10", 10000)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestRepository_RecentForAgentNewestFirst(t *testing.T) {
	db := setupResultsTestDB(t)
	repo := NewRepository(db, zerolog.Nop())
	a := insertAgent(t, db, "a")

	require.NoError(t, repo.Upsert("2025-06-06", a, portfolio.Default(), 0.01))
	require.NoError(t, repo.Upsert("2025-06-09", a, portfolio.Default(), 0.02))
	require.NoError(t, repo.Upsert("2025-06-10", a, portfolio.Default(), 0.03))

	history, err := repo.RecentForAgent(a, 2, 10000)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "2025-06-10", history[0].TradeDate)
	assert.Equal(t, "2025-06-09", history[1].TradeDate)
}
