// Package prices provides the daily price bar store and resolution of the
// trade date and the symbol universe for a scoring run.
package prices

import (
	"database/sql"
	"fmt"

	"github.com/aristath/arena/internal/modules/portfolio"
	"github.com/rs/zerolog"
)

// Repository handles the prices table. Bars are fetched fresh each run and
// upserted; at most one row exists per (trade_date, ticker).
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new prices repository
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repository", "prices").Logger(),
	}
}

// UpsertDaily stores the fetched bars for a trade date, overwriting any
// existing rows for the same (trade_date, ticker) keys.
func (r *Repository) UpsertDaily(tradeDate string, bars portfolio.PriceMap) error {
	if len(bars) == 0 {
		return nil
	}

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin price upsert: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.Prepare(`
		INSERT INTO prices (trade_date, ticker, open, close)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (trade_date, ticker) DO UPDATE SET
			open = excluded.open,
			close = excluded.close
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare price upsert: %w", err)
	}
	defer stmt.Close()

	for ticker, bar := range bars {
		if _, err := stmt.Exec(tradeDate, ticker, bar.Open, bar.Close); err != nil {
			return fmt.Errorf("failed to upsert price for %s: %w", ticker, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit price upsert: %w", err)
	}

	r.log.Debug().Str("trade_date", tradeDate).Int("bars", len(bars)).Msg("Prices stored")
	return nil
}

// GetForDate returns all stored bars for a trade date keyed by ticker
func (r *Repository) GetForDate(tradeDate string) (portfolio.PriceMap, error) {
	rows, err := r.db.Query(
		"SELECT ticker, open, close FROM prices WHERE trade_date = ?",
		tradeDate,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query prices for %s: %w", tradeDate, err)
	}
	defer rows.Close()

	out := portfolio.PriceMap{}
	for rows.Next() {
		var ticker string
		var bar portfolio.Bar
		if err := rows.Scan(&ticker, &bar.Open, &bar.Close); err != nil {
			return nil, fmt.Errorf("failed to scan price row: %w", err)
		}
		out[ticker] = bar
	}
	return out, rows.Err()
}
