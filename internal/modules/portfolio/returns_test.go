package portfolio

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDayReturn(t *testing.T) {
	prices := PriceMap{
		"AAPL": {Open: 100, Close: 110},
		"MSFT": {Open: 200, Close: 190},
	}

	tests := []struct {
		name      string
		portfolio Portfolio
		want      float64
	}{
		{
			name:      "all cash earns zero",
			portfolio: Default(),
			want:      0,
		},
		{
			name: "single long position",
			portfolio: Portfolio{
				Cash:      0.5,
				Positions: []Position{{Ticker: "AAPL", TargetWeight: 0.5}},
			},
			want: 0.5 * (110.0/100.0 - 1),
		},
		{
			name: "long and short",
			portfolio: Portfolio{
				Cash: 0,
				Positions: []Position{
					{Ticker: "AAPL", TargetWeight: 1.5},
					{Ticker: "MSFT", TargetWeight: -0.5},
				},
			},
			want: 1.5*(110.0/100.0-1) - 0.5*(190.0/200.0-1),
		},
		{
			name: "missing ticker contributes zero",
			portfolio: Portfolio{
				Cash: 0,
				Positions: []Position{
					{Ticker: "AAPL", TargetWeight: 0.5},
					{Ticker: "TSLA", TargetWeight: 0.5},
				},
			},
			want: 0.5 * (110.0/100.0 - 1),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DayReturn(tt.portfolio, prices)
			assert.InDelta(t, tt.want, got, 1e-12)
		})
	}
}

func TestDayReturn_ZeroOpenSkipped(t *testing.T) {
	prices := PriceMap{"AAPL": {Open: 0, Close: 10}}
	p := Portfolio{
		Cash:      0,
		Positions: []Position{{Ticker: "AAPL", TargetWeight: 1}},
	}
	assert.Equal(t, 0.0, DayReturn(p, prices))
}

func TestDayReturn_LinearInWeights(t *testing.T) {
	prices := PriceMap{"AAPL": {Open: 100, Close: 105}}

	half := DayReturn(Portfolio{
		Cash:      0.5,
		Positions: []Position{{Ticker: "AAPL", TargetWeight: 0.5}},
	}, prices)
	full := DayReturn(Portfolio{
		Cash:      0,
		Positions: []Position{{Ticker: "AAPL", TargetWeight: 1}},
	}, prices)

	assert.InDelta(t, full/2, half, 1e-12)
}
