package scheduler

import (
	"context"
	"time"

	"github.com/aristath/arena/internal/modules/scoring"
	"github.com/rs/zerolog"
)

// runTimeout bounds one scheduled scoring pass end to end
const runTimeout = 30 * time.Minute

// DailyRunJob triggers the daily scoring run with no overrides: yesterday's
// trade date and the configured universe.
type DailyRunJob struct {
	orchestrator *scoring.Orchestrator
	log          zerolog.Logger
}

// NewDailyRunJob creates the scheduled daily scoring job
func NewDailyRunJob(orchestrator *scoring.Orchestrator, log zerolog.Logger) *DailyRunJob {
	return &DailyRunJob{
		orchestrator: orchestrator,
		log:          log.With().Str("job", "daily_run").Logger(),
	}
}

// Name returns the job name
func (j *DailyRunJob) Name() string {
	return "daily_run"
}

// Run executes one scoring pass. Failures are returned to the scheduler
// for logging; the run is safe to retry wholesale because every write is
// an idempotent upsert.
func (j *DailyRunJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
	defer cancel()

	report, err := j.orchestrator.Run(ctx, scoring.RunRequest{})
	if err != nil {
		return err
	}

	j.log.Info().
		Str("trade_date", report.TradeDate).
		Int("agents_processed", report.AgentsProcessed).
		Msg("Daily scoring run completed")
	return nil
}
