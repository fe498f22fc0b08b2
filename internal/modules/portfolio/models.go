// Package portfolio provides the target-weight portfolio model, validation
// and daily return calculation.
package portfolio

// Position is a single target-weight allocation. Weights may be negative to
// express a short; only the aggregate sum invariant is enforced.
type Position struct {
	Ticker       string  `json:"ticker"`
	TargetWeight float64 `json:"target_weight"`
}

// Portfolio is an agent's proposed allocation for a trade date.
// Invariant: Cash + Σ TargetWeight == 1 within tolerance.
type Portfolio struct {
	Cash      float64    `json:"cash"`
	Positions []Position `json:"positions"`
}

// Default returns the fallback portfolio used whenever an agent produces
// no usable allocation: everything in cash.
func Default() Portfolio {
	return Portfolio{Cash: 1, Positions: []Position{}}
}

// Bar holds one symbol's daily open and close
type Bar struct {
	Open  float64 `json:"o"`
	Close float64 `json:"c"`
}

// PriceMap maps an uppercase ticker to its daily bar
type PriceMap map[string]Bar
