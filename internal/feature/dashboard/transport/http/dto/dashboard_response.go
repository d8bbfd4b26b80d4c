package dto

import "time"

// MarketInfoResponse は /stock-api/info のレスポンスDTOです。
type MarketInfoResponse struct {
	Market               string  `json:"market"`
	Leader               string  `json:"leader"`               // 最高値の銘柄
	TopStock             *string `json:"topStock"`             // 上昇率トップ
	TopStockPercentage   *string `json:"topStockPercentage"`   // "x.xx%"
	WorstStock           *string `json:"worstStock"`           // 下落率トップ
	WorstStockPercentage *string `json:"worstStockPercentage"` // "x.xx%"
}

// SummaryRowResponse は /stock-api/market-summary の1行です。
type SummaryRowResponse struct {
	CompanyName string  `json:"companyName"`
	TodayPrice  string  `json:"todayPrice"`
	PriceChange *string `json:"priceChange"`
	Change      *string `json:"change"`
}

// ActiveStockResponse は上昇・下落ランキングの1件です。rvol, float, marketCap は常にnull。
type ActiveStockResponse struct {
	CompanyName   string   `json:"companyName"`
	Price         float64  `json:"price"`
	ChangePercent string   `json:"changePercent"`
	Change        *float64 `json:"change"`
	Volume        string   `json:"volume"`
	RVol          *float64 `json:"rvol"`
	Float         *float64 `json:"float"`
	MarketCap     *float64 `json:"marketCap"`
}

// ActiveStocksResponse は /stock-api/active-stocks のレスポンスDTOです。
type ActiveStocksResponse struct {
	BiggestGainers []ActiveStockResponse `json:"biggestGainers"`
	BiggestLosers  []ActiveStockResponse `json:"biggestLosers"`
}

// StockResponse は1銘柄の射影ドキュメントです。
type StockResponse struct {
	Symbol        string   `json:"symbol"`
	LatestDate    string   `json:"latestDate"`
	TodayPrice    float64  `json:"todayPrice"`
	PriceChange   *float64 `json:"priceChange"`
	ChangePercent *float64 `json:"changePercent"`
	Volume        int64    `json:"volume"`
	PrevClose     *float64 `json:"prevClose"`
	FetchedAt     string   `json:"fetchedAt"`
	UpdatedAt     string   `json:"updatedAt"`
}

// FormatTime は RFC3339 (UTC) 文字列に変換する
func FormatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}
