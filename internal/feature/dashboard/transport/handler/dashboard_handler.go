// Package handler はdashboardフィーチャーのHTTPハンドラーを提供します。
package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"stock_dashboard/internal/api"
	"stock_dashboard/internal/feature/dashboard/transport/http/dto"
	"stock_dashboard/internal/feature/dashboard/usecase"
	"stock_dashboard/internal/feature/quotes/domain/entity"
)

// DashboardUsecase はダッシュボード表示用のユースケースインターフェースを定義します。
// Goの慣例に従い、インターフェースは利用者（handler）側で定義します。
type DashboardUsecase interface {
	GetMarketInfo(ctx context.Context) (*usecase.MarketInfo, error)
	GetMarketSummary(ctx context.Context) ([]usecase.SummaryRow, error)
	GetActiveStocks(ctx context.Context) (*usecase.ActiveStocks, error)
	GetStock(ctx context.Context, symbol string) (*entity.DashboardState, error)
}

// DashboardHandler は /stock-api 配下のリクエストを処理します。
type DashboardHandler struct {
	uc     DashboardUsecase
	logger *zap.Logger
}

// NewDashboardHandler はDashboardHandlerの新しいインスタンスを生成します。
func NewDashboardHandler(uc DashboardUsecase, logger *zap.Logger) *DashboardHandler {
	return &DashboardHandler{uc: uc, logger: logger}
}

// GetInfo はマーケット概要を返します。データがなければ {} を返します。
//
// エンドポイント例:
// GET /stock-api/info
func (h *DashboardHandler) GetInfo(c *gin.Context) {
	info, err := h.uc.GetMarketInfo(c.Request.Context())
	if err != nil {
		h.internalError(c, "get market info", err)
		return
	}
	if info == nil {
		c.JSON(http.StatusOK, gin.H{})
		return
	}
	c.JSON(http.StatusOK, dto.MarketInfoResponse{
		Market:               info.Market,
		Leader:               info.Leader,
		TopStock:             info.TopStock,
		TopStockPercentage:   info.TopStockPercentage,
		WorstStock:           info.WorstStock,
		WorstStockPercentage: info.WorstStockPercentage,
	})
}

// GetMarketSummary は銘柄ごとの整形済みサマリーを返します。
//
// GET /stock-api/market-summary
func (h *DashboardHandler) GetMarketSummary(c *gin.Context) {
	rows, err := h.uc.GetMarketSummary(c.Request.Context())
	if err != nil {
		h.internalError(c, "get market summary", err)
		return
	}
	out := make([]dto.SummaryRowResponse, 0, len(rows))
	for _, r := range rows {
		out = append(out, dto.SummaryRowResponse{
			CompanyName: r.CompanyName,
			TodayPrice:  r.TodayPrice,
			PriceChange: r.PriceChange,
			Change:      r.Change,
		})
	}
	c.JSON(http.StatusOK, out)
}

// GetActiveStocks は上昇・下落ランキングを返します。
//
// GET /stock-api/active-stocks
func (h *DashboardHandler) GetActiveStocks(c *gin.Context) {
	active, err := h.uc.GetActiveStocks(c.Request.Context())
	if err != nil {
		h.internalError(c, "get active stocks", err)
		return
	}
	c.JSON(http.StatusOK, dto.ActiveStocksResponse{
		BiggestGainers: toActiveStockResponses(active.BiggestGainers),
		BiggestLosers:  toActiveStockResponses(active.BiggestLosers),
	})
}

// GetStock は1銘柄の射影ドキュメントを返します。
//
// GET /stock-api/stocks/:symbol
func (h *DashboardHandler) GetStock(c *gin.Context) {
	s, err := h.uc.GetStock(c.Request.Context(), c.Param("symbol"))
	if errors.Is(err, usecase.ErrStockNotFound) {
		c.JSON(http.StatusNotFound, api.ErrorResponse{Error: "stock not found"})
		return
	}
	if err != nil {
		h.internalError(c, "get stock", err)
		return
	}
	c.JSON(http.StatusOK, dto.StockResponse{
		Symbol:        s.Symbol,
		LatestDate:    s.LatestDate,
		TodayPrice:    s.TodayPrice.InexactFloat64(),
		PriceChange:   nullFloat(s.PriceChange),
		ChangePercent: nullFloat(s.ChangePercent),
		Volume:        s.Volume,
		PrevClose:     nullFloat(s.PrevClose),
		FetchedAt:     dto.FormatTime(s.FetchedAt),
		UpdatedAt:     dto.FormatTime(s.UpdatedAt),
	})
}

func (h *DashboardHandler) internalError(c *gin.Context, op string, err error) {
	h.logger.Error(op+" failed", zap.Error(err))
	c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "failed to load dashboard"})
}

func toActiveStockResponses(list []usecase.ActiveStock) []dto.ActiveStockResponse {
	out := make([]dto.ActiveStockResponse, 0, len(list))
	for _, s := range list {
		out = append(out, dto.ActiveStockResponse{
			CompanyName:   s.CompanyName,
			Price:         s.Price.InexactFloat64(),
			ChangePercent: s.ChangePercent,
			Change:        nullFloat(s.Change),
			Volume:        s.Volume,
		})
	}
	return out
}

func nullFloat(v decimal.NullDecimal) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Decimal.InexactFloat64()
	return &f
}
