package scoring

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/aristath/arena/internal/modules/agents"
	"github.com/aristath/arena/internal/modules/portfolio"
	"github.com/aristath/arena/internal/modules/prices"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// PriceFetcher fetches daily bars from the market-data provider
type PriceFetcher interface {
	FetchDailyBars(ctx context.Context, tradeDate string, symbols []string) (portfolio.PriceMap, error)
}

// PriceStore persists fetched bars
type PriceStore interface {
	UpsertDaily(tradeDate string, bars portfolio.PriceMap) error
}

// AgentSource lists the agents eligible for scoring
type AgentSource interface {
	ListActive() ([]agents.Agent, error)
}

// ResultStore persists per-agent daily results
type ResultStore interface {
	Upsert(tradeDate string, agentID int64, p portfolio.Portfolio, dayReturn float64) error
}

// AgentInvoker turns one agent's LLM reply into an Outcome
type AgentInvoker interface {
	Invoke(ctx context.Context, agent agents.Agent, promptText string, mc MarketContext) Outcome
}

// SymbolList decodes from either a JSON array of strings or a single
// comma-separated string, the two override shapes the run API accepts.
type SymbolList []string

// UnmarshalJSON implements the flexible decoding
func (s *SymbolList) UnmarshalJSON(data []byte) error {
	var arr []string
	if err := json.Unmarshal(data, &arr); err == nil {
		*s = arr
		return nil
	}
	var single string
	if err := json.Unmarshal(data, &single); err != nil {
		return err
	}
	*s = strings.Split(single, ",")
	return nil
}

// RunRequest carries the optional per-run overrides
type RunRequest struct {
	Date    string     `json:"date"`
	Symbols SymbolList `json:"symbols"`
	Prompt  string     `json:"prompt"`
}

// RunReport summarizes a completed run
type RunReport struct {
	OK              bool   `json:"ok"`
	RunID           string `json:"run_id"`
	TradeDate       string `json:"trade_date"`
	AgentsProcessed int    `json:"agents_processed"`
}

/// Orchestrator sequences one daily scoring pass: prices in, one result row
// per active agent out. It holds no state between runs; every write is an
// idempotent upsert, so re-running a date (or racing a concurrent run) is
// safe.
type Orchestrator struct {
	defaultUniverse []string
	fetcher         PriceFetcher
	priceStore      PriceStore
	agentSource     AgentSource
	resultStore     ResultStore
	invoker         AgentInvoker
	log             zerolog.Logger
	now             func() time.Time
}

// NewOrchestrator wires a daily run orchestrator
func NewOrchestrator(
	defaultUniverse []string,
	fetcher PriceFetcher,
	priceStore PriceStore,
	agentSource AgentSource,
	resultStore ResultStore,
	invoker AgentInvoker,
	log zerolog.Logger,
) *Orchestrator {
	return &Orchestrator{
		defaultUniverse: defaultUniverse,
		fetcher:         fetcher,
		priceStore:      priceStore,
		agentSource:     agentSource,
		resultStore:     resultStore,
		invoker:         invoker,
		log:             log.With().Str("component", "orchestrator").Logger(),
		now:             time.Now,
	}
}

// Run executes one scoring pass. Errors in shared setup (date/universe
// resolution, price fetch, persistence of prices) fail the whole run;
// everything that can go wrong for a single agent degrades that agent to
// the default portfolio and processing continues.
func (o *Orchestrator) Run(ctx context.Context, req RunRequest) (*RunReport, error) {
	runID := uuid.New().String()
	log := o.log.With().Str("run_id", runID).Logger()

	tradeDate := prices.ResolveTradeDate(req.Date, o.now())
	universe, err := prices.ResolveUniverse(req.Symbols, o.defaultUniverse)
	if err != nil {
		return nil, err
	}

	log.Info().Str("trade_date", tradeDate).Int("symbols", len(universe)).Msg("Run started")

	bars, err := o.fetcher.FetchDailyBars(ctx, tradeDate, universe)
	if err != nil {
		return nil, err
	}
	log.Info().Int("bars", len(bars)).Msg("Fetched prices")

	if err := o.priceStore.UpsertDaily(tradeDate, bars); err != nil {
		return nil, err
	}

	activeAgents, err := o.agentSource.ListActive()
	if err != nil {
		return nil, err
	}
	log.Info().Int("agents", len(activeAgents)).Msg("Loaded active agents")

	mc := MarketContext{
		Symbols: universe,
		Market:  MarketSnapshot{TradeDate: tradeDate, Prices: bars},
	}

	for _, agent := range activeAgents {
		o.scoreAgent(ctx, log, tradeDate, agent, req.Prompt, mc, bars)
	}

	log.Info().Msg("Run finished")
	return &RunReport{
		OK:              true,
		RunID:           runID,
		TradeDate:       tradeDate,
		AgentsProcessed: len(activeAgents),
	}, nil
}

// scoreAgent invokes, scores and persists one agent. Invocation failures
// fall back to the default portfolio; only the result write is reported,
// and even that is logged rather than propagated.
func (o *Orchestrator) scoreAgent(
	ctx context.Context,
	log zerolog.Logger,
	tradeDate string,
	agent agents.Agent,
	promptOverride string,
	mc MarketContext,
	bars portfolio.PriceMap,
) {
	promptText := strings.TrimSpace(promptOverride)
	if promptText == "" {
		promptText = agent.PromptText()
	}

	outcome := o.invoker.Invoke(ctx, agent, promptText, mc)
	if !outcome.OK() {
		log.Info().
			Str("agent", agent.Name).
			Str("status", string(outcome.Status)).
			Msg("Agent degraded to default portfolio")
	}

	scored := outcome.PortfolioOrDefault()
	dayReturn := portfolio.DayReturn(scored, bars)

	if err := o.resultStore.Upsert(tradeDate, agent.ID, scored, dayReturn); err != nil {
		log.Error().
			Err(err).
			Str("agent", agent.Name).
			Msg("Failed to store result")
		return
	}

	log.Info().
		Str("agent", agent.Name).
		Float64("day_return", dayReturn).
		Msg("Agent scored")
}
