package portfolio

import (
	"encoding/json"
	"math"
	"strings"
)

// sumTolerance is how far cash + Σ target_weight may drift from 1.0
const sumTolerance = 1e-6

// rawPortfolio mirrors the expected JSON shape with pointer fields so that
// missing keys can be told apart from zero values.
type rawPortfolio struct {
	Cash      *float64      `json:"cash"`
	Positions []rawPosition `json:"positions"`
}

type rawPosition struct {
	Ticker       *string  `json:"ticker"`
	TargetWeight *float64 `json:"target_weight"`
}

// Validate checks a decoded JSON value against the portfolio schema and the
// sum invariant. On success it returns a normalized copy (tickers
// uppercased); on any failure it returns nil. Failure here is an expected
// outcome, not an error - callers substitute Default().
func Validate(raw json.RawMessage) *Portfolio {
	var rp rawPortfolio
	if err := json.Unmarshal(raw, &rp); err != nil {
		return nil
	}
	if rp.Cash == nil || rp.Positions == nil {
		return nil
	}

	p := Portfolio{Cash: *rp.Cash, Positions: make([]Position, len(rp.Positions))}
	for i, pos := range rp.Positions {
		if pos.Ticker == nil || pos.TargetWeight == nil {
			return nil
		}
		p.Positions[i] = Position{Ticker: *pos.Ticker, TargetWeight: *pos.TargetWeight}
	}
	return ValidateParsed(p)
}

// ValidateParsed applies the invariant checks to an already decoded
// portfolio. Does not mutate its input.
func ValidateParsed(p Portfolio) *Portfolio {
	if p.Cash < 0 || math.IsNaN(p.Cash) || math.IsInf(p.Cash, 0) {
		return nil
	}

	sum := p.Cash
	for _, pos := range p.Positions {
		if math.IsNaN(pos.TargetWeight) || math.IsInf(pos.TargetWeight, 0) {
			return nil
		}
		sum += pos.TargetWeight
	}

	// Weight magnitudes are intentionally unbounded; only the aggregate
	// balance against cash is enforced.
	if math.Abs(sum-1) >= sumTolerance {
		return nil
	}

	normalized := Portfolio{
		Cash:      p.Cash,
		Positions: make([]Position, len(p.Positions)),
	}
	for i, pos := range p.Positions {
		normalized.Positions[i] = Position{
			Ticker:       strings.ToUpper(pos.Ticker),
			TargetWeight: pos.TargetWeight,
		}
	}
	return &normalized
}
