package scoring

import (
	"context"
	"encoding/json"
	"os"
	"strings"

	"github.com/aristath/arena/internal/clients/llm"
	"github.com/aristath/arena/internal/modules/agents"
	"github.com/aristath/arena/internal/modules/portfolio"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// systemPrompt is the fixed instruction sent with every invocation. It
// pins the output contract the validator expects.
const systemPrompt = `You are a quantitative investment AI. Based on the given symbols and the previous day's market information, output a target-weight portfolio. Return JSON in this format:
{
  "cash": 0.1,
  "positions": [
    {"ticker": "AAPL", "target_weight": 0.4},
    {"ticker": "MSFT", "target_weight": 0.5}
  ]
}
Requirement: cash + sum of target_weight = 1.`

// MarketContext is the snapshot serialized into the user message
type MarketContext struct {
	Symbols []string       `json:"symbols"`
	Market  MarketSnapshot `json:"market"`
}

// MarketSnapshot holds the trade date and per-symbol daily bars
type MarketSnapshot struct {
	TradeDate string             `json:"trade_date"`
	Prices    portfolio.PriceMap `json:"prices"`
}

// Invoker calls an agent's configured LLM and turns the reply into a
// validated portfolio. It never returns an error to the caller; every
// failure mode is an Outcome status so one broken agent cannot take down
// a run.
type Invoker struct {
	limiter     *rate.Limiter
	log         zerolog.Logger
	providerFor func(name string) llm.Provider
	lookupEnv   func(key string) string
}

// NewInvoker creates an invoker. ratePerMin bounds LLM calls across a run;
// zero or negative disables the limit.
func NewInvoker(ratePerMin int, log zerolog.Logger) *Invoker {
	limit := rate.Inf
	if ratePerMin > 0 {
		limit = rate.Limit(float64(ratePerMin) / 60.0)
	}
	return &Invoker{
		limiter:     rate.NewLimiter(limit, 1),
		log:         log.With().Str("component", "invoker").Logger(),
		providerFor: llm.ForName,
		lookupEnv:   os.Getenv,
	}
}

// Invoke runs one agent against the market context, using promptText as
// the strategy prompt (callers may override the agent's stored prompt).
func (inv *Invoker) Invoke(ctx context.Context, agent agents.Agent, promptText string, mc MarketContext) Outcome {
	if strings.TrimSpace(promptText) == "" {
		return Outcome{Status: StatusNotInvoked}
	}

	provider := inv.providerFor(agent.Provider)

	keyEnv := agent.APIKeyEnv
	if keyEnv == "" {
		keyEnv = provider.DefaultKeyEnv()
	}
	apiKey := inv.lookupEnv(keyEnv)
	if apiKey == "" {
		// A missing credential degrades this one agent, never the run
		inv.log.Warn().
			Str("agent", agent.Name).
			Str("provider", provider.Name()).
			Str("key_env", keyEnv).
			Msg("API key not set")
		return Outcome{Status: StatusNoCredential}
	}

	contextJSON, err := json.Marshal(mc)
	if err != nil {
		return Outcome{Status: StatusProviderError, Err: err}
	}
	userPrompt := promptText + "\n\nMarketContext(JSON):\n" + string(contextJSON)

	if err := inv.limiter.Wait(ctx); err != nil {
		return Outcome{Status: StatusProviderError, Err: err}
	}

	text, err := provider.Complete(ctx, llm.Request{
		Model:   agent.Model,
		BaseURL: agent.BaseURLText(),
		APIKey:  apiKey,
		System:  systemPrompt,
		User:    userPrompt,
	})
	if err != nil {
		inv.log.Warn().
			Err(err).
			Str("agent", agent.Name).
			Str("provider", provider.Name()).
			Str("model", agent.Model).
			Msg("LLM call failed")
		return Outcome{Status: StatusProviderError, Err: err}
	}

	raw := extractJSON(text)
	if raw == "" || !json.Valid([]byte(raw)) {
		inv.log.Warn().
			Str("agent", agent.Name).
			Str("provider", provider.Name()).
			Str("model", agent.Model).
			Msg("No JSON object in LLM reply")
		return Outcome{Status: StatusNoJSON}
	}

	validated := portfolio.Validate(json.RawMessage(raw))
	if validated == nil {
		inv.log.Warn().
			Str("agent", agent.Name).
			Str("provider", provider.Name()).
			Str("model", agent.Model).
			Msg("LLM reply failed portfolio validation")
		return Outcome{Status: StatusInvalid}
	}

	return Outcome{Status: StatusOK, Portfolio: validated}
}

// extractJSON returns the first balanced JSON object substring of text,
// or "" when none exists. Brace counting skips braces inside strings.
func extractJSON(text string) string {
	startIdx := strings.Index(text, "{")
	if startIdx == -1 {
		return ""
	}

	braceCount := 0
	inString := false
	escaped := false

	for i := startIdx; i < len(text); i++ {
		ch := text[i]

		if escaped {
			escaped = false
			continue
		}
		if ch == '\\' {
			escaped = true
			continue
		}
		if ch == '"' {
			inString = !inString
			continue
		}

		if !inString {
			if ch == '{' {
				braceCount++
			} else if ch == '}' {
				braceCount--
				if braceCount == 0 {
					return text[startIdx : i+1]
				}
			}
		}
	}

	return ""
}
