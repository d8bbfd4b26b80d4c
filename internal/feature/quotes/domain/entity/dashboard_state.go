package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// DashboardState is the latest known state of one symbol, keyed by Symbol.
// It is replaced wholesale on every accepted write and never deleted.
type DashboardState struct {
	Symbol        string
	LatestDate    string
	TodayPrice    decimal.Decimal
	PriceChange   decimal.NullDecimal
	ChangePercent decimal.NullDecimal
	Volume        int64
	PrevClose     decimal.NullDecimal
	FetchedAt     time.Time
	UpdatedAt     time.Time
}

// NewDashboardState projects a history entry onto the per-symbol dashboard document.
// The entry must have passed validation (Close and Volume present).
func NewDashboardState(e HistoryEntry) DashboardState {
	var volume int64
	if e.Volume != nil {
		volume = *e.Volume
	}
	return DashboardState{
		Symbol:        e.Symbol,
		LatestDate:    e.TradeDate,
		TodayPrice:    e.Close.Decimal,
		PriceChange:   e.Change,
		ChangePercent: e.ChangePercent,
		Volume:        volume,
		PrevClose:     e.PrevClose,
		FetchedAt:     e.FetchedAt,
		UpdatedAt:     e.IngestedAt,
	}
}
