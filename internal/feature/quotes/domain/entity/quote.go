// Package entity defines the domain models for the quotes feature.
package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// TradeDateLayout is the ISO calendar date layout used for trade dates.
// Lexicographic order of dates in this layout equals chronological order.
const TradeDateLayout = "2006-01-02"

// QuoteEvent is one day's trading snapshot for one symbol as emitted by the upstream producer.
// Fields the producer may omit are nullable so that validation can tell "missing" from zero.
type QuoteEvent struct {
	Symbol    string              // Stock ticker symbol (e.g., "AAPL")
	TradeDate string              // Trading day, YYYY-MM-DD
	Open      decimal.NullDecimal // Opening price
	Close     decimal.NullDecimal // Closing price
	Volume    *int64              // Trading volume
	PrevClose decimal.NullDecimal // Previous trading day's close, absent on first observation
	FetchedAt time.Time           // When the upstream producer observed the quote
}

// Metrics holds the values derived from a single QuoteEvent.
// Both fields are undefined (Valid == false) when the event carries no previous close.
type Metrics struct {
	Change        decimal.NullDecimal
	ChangePercent decimal.NullDecimal
}

var hundred = decimal.NewFromInt(100)

// ComputeMetrics derives change and changePercent from close and prevClose.
// change is defined only when prevClose is present; changePercent additionally
// requires a non-zero prevClose.
func ComputeMetrics(e QuoteEvent) Metrics {
	var m Metrics
	if !e.PrevClose.Valid || !e.Close.Valid {
		return m
	}
	change := e.Close.Decimal.Sub(e.PrevClose.Decimal)
	m.Change = decimal.NewNullDecimal(change)
	if !e.PrevClose.Decimal.IsZero() {
		m.ChangePercent = decimal.NewNullDecimal(change.Div(e.PrevClose.Decimal).Mul(hundred))
	}
	return m
}
