// Package usecase derives the dashboard views from the per-symbol projection.
package usecase

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/shopspring/decimal"

	"stock_dashboard/internal/feature/quotes/domain"
	"stock_dashboard/internal/feature/quotes/domain/entity"
)

const (
	// DefaultMarket はマーケット名の既定値です。
	DefaultMarket = "United States"
	// ActiveStocksLimit は上昇・下落ランキングの最大件数です。
	ActiveStocksLimit = 5
)

// StateReader は射影ストアの読み取りを抽象化します。
// Goの慣例に従い、インターフェースは利用者（usecase）側で定義します。
type StateReader interface {
	FindAll(ctx context.Context) ([]entity.DashboardState, error)
	FindBySymbol(ctx context.Context, symbol string) (*entity.DashboardState, error)
}

// MarketInfo is the headline of the dashboard.
// Top and worst fields are nil when no symbol has a changePercent.
type MarketInfo struct {
	Market               string
	Leader               string
	TopStock             *string
	TopStockPercentage   *string
	WorstStock           *string
	WorstStockPercentage *string
}

// SummaryRow is one formatted row of the market summary.
type SummaryRow struct {
	CompanyName string
	TodayPrice  string
	PriceChange *string
	Change      *string
}

// ActiveStock is one entry of the gainers or losers list.
type ActiveStock struct {
	CompanyName   string
	Price         decimal.Decimal
	ChangePercent string
	Change        decimal.NullDecimal
	Volume        string
}

// ActiveStocks holds the top movers in both directions.
type ActiveStocks struct {
	BiggestGainers []ActiveStock
	BiggestLosers  []ActiveStock
}

type dashboardUsecase struct {
	states StateReader
	market string
}

// NewDashboardUsecase はdashboardUsecaseの新しいインスタンスを生成します。
func NewDashboardUsecase(states StateReader, market string) *dashboardUsecase {
	if market == "" {
		market = DefaultMarket
	}
	return &dashboardUsecase{states: states, market: market}
}

// snapshot は全銘柄をシンボル昇順で返す
func (u *dashboardUsecase) snapshot(ctx context.Context) ([]entity.DashboardState, error) {
	all, err := u.states.FindAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("load dashboard states: %w", err)
	}
	out := slices.Clone(all)
	slices.SortStableFunc(out, func(a, b entity.DashboardState) int {
		return strings.Compare(a.Symbol, b.Symbol)
	})
	return out, nil
}

// GetMarketInfo returns the leader (highest price) and the top and worst movers.
// Symbols are scanned in ascending order and the first candidate wins ties.
// It returns nil when the projection is empty.
func (u *dashboardUsecase) GetMarketInfo(ctx context.Context) (*MarketInfo, error) {
	all, err := u.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	if len(all) == 0 {
		return nil, nil
	}

	leader := 0
	top, worst := -1, -1
	for i, s := range all {
		if s.TodayPrice.GreaterThan(all[leader].TodayPrice) {
			leader = i
		}
		if !s.ChangePercent.Valid {
			continue
		}
		if top < 0 || s.ChangePercent.Decimal.GreaterThan(all[top].ChangePercent.Decimal) {
			top = i
		}
		if worst < 0 || s.ChangePercent.Decimal.LessThan(all[worst].ChangePercent.Decimal) {
			worst = i
		}
	}

	info := &MarketInfo{Market: u.market, Leader: all[leader].Symbol}
	if top >= 0 {
		info.TopStock = &all[top].Symbol
		info.TopStockPercentage = formatNullPercent(all[top].ChangePercent)
	}
	if worst >= 0 {
		info.WorstStock = &all[worst].Symbol
		info.WorstStockPercentage = formatNullPercent(all[worst].ChangePercent)
	}
	return info, nil
}

// GetMarketSummary returns one formatted row per symbol, ordered by symbol.
func (u *dashboardUsecase) GetMarketSummary(ctx context.Context) ([]SummaryRow, error) {
	all, err := u.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	rows := make([]SummaryRow, 0, len(all))
	for _, s := range all {
		rows = append(rows, SummaryRow{
			CompanyName: s.Symbol,
			TodayPrice:  formatCurrency(s.TodayPrice),
			PriceChange: formatNullCurrency(s.PriceChange),
			Change:      formatNullPercent(s.ChangePercent),
		})
	}
	return rows, nil
}

// GetActiveStocks returns up to five gainers (changePercent descending) and
// five losers (ascending). Symbols without changePercent are excluded; ties keep symbol order.
func (u *dashboardUsecase) GetActiveStocks(ctx context.Context) (*ActiveStocks, error) {
	all, err := u.snapshot(ctx)
	if err != nil {
		return nil, err
	}

	movers := make([]entity.DashboardState, 0, len(all))
	for _, s := range all {
		if s.ChangePercent.Valid {
			movers = append(movers, s)
		}
	}

	gainers := slices.Clone(movers)
	slices.SortStableFunc(gainers, func(a, b entity.DashboardState) int {
		return b.ChangePercent.Decimal.Cmp(a.ChangePercent.Decimal)
	})
	losers := slices.Clone(movers)
	slices.SortStableFunc(losers, func(a, b entity.DashboardState) int {
		return a.ChangePercent.Decimal.Cmp(b.ChangePercent.Decimal)
	})

	return &ActiveStocks{
		BiggestGainers: toActiveStocks(gainers),
		BiggestLosers:  toActiveStocks(losers),
	}, nil
}

// GetStock returns the projection document of one symbol.
func (u *dashboardUsecase) GetStock(ctx context.Context, symbol string) (*entity.DashboardState, error) {
	symbol = strings.TrimSpace(symbol)
	if symbol == "" {
		return nil, ErrStockNotFound
	}
	st, err := u.states.FindBySymbol(ctx, symbol)
	if errors.Is(err, domain.ErrStateNotFound) {
		return nil, ErrStockNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load dashboard state %s: %w", symbol, err)
	}
	return st, nil
}

func toActiveStocks(states []entity.DashboardState) []ActiveStock {
	if len(states) > ActiveStocksLimit {
		states = states[:ActiveStocksLimit]
	}
	out := make([]ActiveStock, 0, len(states))
	for _, s := range states {
		out = append(out, ActiveStock{
			CompanyName:   s.Symbol,
			Price:         s.TodayPrice,
			ChangePercent: formatPercent(s.ChangePercent.Decimal),
			Change:        s.PriceChange,
			Volume:        formatVolume(s.Volume),
		})
	}
	return out
}
