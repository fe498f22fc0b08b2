package prices

import (
	"regexp"
	"time"
)

// exchangeTZ is the exchange's reference timezone for trade dates
const exchangeTZ = "America/New_York"

var dateRe = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// TradeDate returns the trading date for "now": the previous calendar day
// in the exchange timezone, formatted YYYY-MM-DD. Pure - fix now in tests.
func TradeDate(now time.Time) string {
	loc, err := time.LoadLocation(exchangeTZ)
	if err != nil {
		// The tzdata for New York ships with the platform; if it is
		// somehow missing, an explicit EST offset is the closest match.
		loc = time.FixedZone("EST", -5*60*60)
	}
	return now.In(loc).AddDate(0, 0, -1).Format("2006-01-02")
}

// ResolveTradeDate applies an explicit YYYY-MM-DD override when present and
// well-formed, otherwise derives the date from now via TradeDate.
func ResolveTradeDate(override string, now time.Time) string {
	if dateRe.MatchString(override) {
		return override
	}
	return TradeDate(now)
}
