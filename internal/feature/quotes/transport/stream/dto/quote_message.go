// Package dto defines the wire format of inbound quote records.
package dto

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"stock_dashboard/internal/feature/quotes/domain/entity"
)

// QuoteMessage is the JSON value of one inbound stream record (key = symbol).
type QuoteMessage struct {
	Symbol    string              `json:"symbol"`
	Date      string              `json:"date"`      // YYYY-MM-DD
	Open      decimal.NullDecimal `json:"open"`      // 始値
	Close     decimal.NullDecimal `json:"close"`     // 終値
	Volume    *int64              `json:"volume"`    // 出来高
	PrevClose decimal.NullDecimal `json:"prevClose"` // 前日終値（初回はnull）
	FetchedAt string              `json:"fetchedAt"` // ISO-8601
}

// ErrInvalidFetchedAt is returned by ToEntity when fetchedAt is present but not RFC 3339.
var ErrInvalidFetchedAt = errors.New("fetchedAt is not an RFC 3339 timestamp")

// ToEntity converts the message to a QuoteEvent.
// An unparsable fetchedAt still yields the event, with a zero FetchedAt and ErrInvalidFetchedAt,
// so the caller decides how to report it. fetchedAt is not required for aggregation.
func (m QuoteMessage) ToEntity() (entity.QuoteEvent, error) {
	var (
		fetchedAt time.Time
		err       error
	)
	if m.FetchedAt != "" {
		t, perr := time.Parse(time.RFC3339Nano, m.FetchedAt)
		if perr != nil {
			err = fmt.Errorf("%w: %q", ErrInvalidFetchedAt, m.FetchedAt)
		} else {
			fetchedAt = t.UTC()
		}
	}
	return entity.QuoteEvent{
		Symbol:    m.Symbol,
		TradeDate: m.Date,
		Open:      m.Open,
		Close:     m.Close,
		Volume:    m.Volume,
		PrevClose: m.PrevClose,
		FetchedAt: fetchedAt,
	}, err
}
