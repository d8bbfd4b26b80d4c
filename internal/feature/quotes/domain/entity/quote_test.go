package entity

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func nd(s string) decimal.NullDecimal {
	return decimal.NewNullDecimal(decimal.RequireFromString(s))
}

func TestComputeMetrics(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name          string
		event         QuoteEvent
		wantChange    string // "" は未定義
		wantChangePct string
	}{
		{
			name:          "success: gain over previous close",
			event:         QuoteEvent{Close: nd("105"), PrevClose: nd("100")},
			wantChange:    "5",
			wantChangePct: "5",
		},
		{
			name:          "success: loss over previous close",
			event:         QuoteEvent{Close: nd("90"), PrevClose: nd("100")},
			wantChange:    "-10",
			wantChangePct: "-10",
		},
		{
			name:          "success: fractional prices",
			event:         QuoteEvent{Close: nd("100"), PrevClose: nd("90")},
			wantChange:    "10",
			wantChangePct: "11.111111",
		},
		{
			name:  "edge case: no previous close leaves both undefined",
			event: QuoteEvent{Close: nd("105")},
		},
		{
			name:       "edge case: zero previous close leaves percent undefined",
			event:      QuoteEvent{Close: nd("3"), PrevClose: nd("0")},
			wantChange: "3",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			m := ComputeMetrics(tt.event)

			if tt.wantChange == "" {
				assert.False(t, m.Change.Valid, "change should be undefined")
			} else {
				assert.True(t, m.Change.Valid)
				assert.True(t, decimal.RequireFromString(tt.wantChange).Equal(m.Change.Decimal),
					"change: want %s, got %s", tt.wantChange, m.Change.Decimal)
			}
			if tt.wantChangePct == "" {
				assert.False(t, m.ChangePercent.Valid, "changePercent should be undefined")
			} else {
				assert.True(t, m.ChangePercent.Valid)
				assert.True(t, decimal.RequireFromString(tt.wantChangePct).Equal(m.ChangePercent.Decimal.Round(6)),
					"changePercent: want %s, got %s", tt.wantChangePct, m.ChangePercent.Decimal)
			}
		})
	}
}

func TestNewDashboardState(t *testing.T) {
	t.Parallel()

	vol := int64(1500)
	entry := HistoryEntry{
		QuoteEvent: QuoteEvent{
			Symbol:    "ACME",
			TradeDate: "2024-01-03",
			Open:      nd("101"),
			Close:     nd("105"),
			Volume:    &vol,
			PrevClose: nd("100"),
		},
	}
	entry.Metrics = ComputeMetrics(entry.QuoteEvent)

	s := NewDashboardState(entry)

	assert.Equal(t, "ACME", s.Symbol)
	assert.Equal(t, "2024-01-03", s.LatestDate)
	assert.Equal(t, "105", s.TodayPrice.String())
	assert.Equal(t, "5", s.PriceChange.Decimal.String())
	assert.Equal(t, int64(1500), s.Volume)
	assert.Equal(t, "100", s.PrevClose.Decimal.String())
}
