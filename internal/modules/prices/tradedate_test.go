package prices

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTradeDate_PreviousDayInNewYork(t *testing.T) {
	tests := []struct {
		name string
		now  time.Time
		want string
	}{
		{
			name: "midday UTC",
			now:  time.Date(2025, 3, 14, 12, 0, 0, 0, time.UTC),
			want: "2025-03-13",
		},
		{
			// 02:00 UTC is still the previous evening in New York, so the
			// trade date steps back two calendar days from the UTC date.
			name: "early UTC morning",
			now:  time.Date(2025, 3, 15, 2, 0, 0, 0, time.UTC),
			want: "2025-03-13",
		},
		{
			name: "month boundary",
			now:  time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
			want: "2025-02-28",
		},
		{
			name: "year boundary",
			now:  time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC),
			want: "2024-12-31",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, TradeDate(tt.now))
		})
	}
}

func TestTradeDate_IndependentOfCallerZone(t *testing.T) {
	instant := time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)
	tokyo := time.FixedZone("JST", 9*60*60)

	assert.Equal(t, TradeDate(instant), TradeDate(instant.In(tokyo)))
}

func TestResolveTradeDate(t *testing.T) {
	now := time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)

	assert.Equal(t, "2024-02-29", ResolveTradeDate("2024-02-29", now))
	assert.Equal(t, "2025-06-09", ResolveTradeDate("", now))
	assert.Equal(t, "2025-06-09", ResolveTradeDate("not-a-date", now))
	assert.Equal(t, "2025-06-09", ResolveTradeDate("2025/06/01", now))
}
