package usecase

import (
	"strconv"

	"github.com/shopspring/decimal"
)

var (
	thousand = decimal.NewFromInt(1_000)
	million  = decimal.NewFromInt(1_000_000)
	billion  = decimal.NewFromInt(1_000_000_000)
)

// formatCurrency は "$" + 小数2桁（四捨五入）
func formatCurrency(v decimal.Decimal) string {
	return "$" + v.StringFixed(2)
}

// formatPercent は小数2桁 + "%"
func formatPercent(v decimal.Decimal) string {
	return v.StringFixed(2) + "%"
}

// formatVolume abbreviates v with K/M/B suffixes and two decimals. Values below 1,000 are printed as-is.
func formatVolume(v int64) string {
	d := decimal.NewFromInt(v)
	switch {
	case v >= 1_000_000_000:
		return d.Div(billion).StringFixed(2) + "B"
	case v >= 1_000_000:
		return d.Div(million).StringFixed(2) + "M"
	case v >= 1_000:
		return d.Div(thousand).StringFixed(2) + "K"
	default:
		return strconv.FormatInt(v, 10)
	}
}

func formatNullCurrency(v decimal.NullDecimal) *string {
	if !v.Valid {
		return nil
	}
	s := formatCurrency(v.Decimal)
	return &s
}

func formatNullPercent(v decimal.NullDecimal) *string {
	if !v.Valid {
		return nil
	}
	s := formatPercent(v.Decimal)
	return &s
}
