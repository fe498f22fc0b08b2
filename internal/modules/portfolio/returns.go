package portfolio

// DayReturn computes the portfolio's one-day return from daily bars.
// Each position contributes target_weight * (close/open - 1). Positions
// whose ticker has no bar, or whose bar has a zero open, contribute
// nothing - an untradeable pick is a no-op exposure, not a fault.
// Cash earns zero.
func DayReturn(p Portfolio, prices PriceMap) float64 {
	r := 0.0
	for _, pos := range p.Positions {
		bar, ok := prices[pos.Ticker]
		if !ok || bar.Open == 0 {
			continue
		}
		daily := bar.Close/bar.Open - 1
		r += pos.TargetWeight * daily
	}
	return r
}
