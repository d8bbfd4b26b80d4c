package router

import (
	"slices"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	dashboardhandler "stock_dashboard/internal/feature/dashboard/transport/handler"
	quoteshandler "stock_dashboard/internal/feature/quotes/transport/handler"
	"stock_dashboard/internal/platform/config"
	platformhandler "stock_dashboard/internal/platform/http/handler"
	"stock_dashboard/internal/platform/http/middleware"
	jwtmw "stock_dashboard/internal/platform/jwt"
	"stock_dashboard/internal/shared/ratelimiter"
)

// NewRouter はルーティングを組み立てる。batches がnilなら管理APIは登録しない
func NewRouter(
	logger *zap.Logger,
	httpCfg config.HTTPConfig,
	jwtCfg config.JWTConfig,
	dashboard *dashboardhandler.DashboardHandler,
	batches *quoteshandler.BatchHandler,
	checks ...platformhandler.Check,
) *gin.Engine {
	r := gin.New()
	r.Use(middleware.Recovery(logger), middleware.RequestLogger(logger))
	// ブラウザのダッシュボードから呼ばれるためCORSを許可
	r.Use(cors.New(corsConfig(httpCfg.CORSOrigins)))

	// 導通確認用
	health := platformhandler.Health(checks...)
	r.GET("/healthz", health)
	r.HEAD("/healthz", health)

	// ダッシュボード（認証不要）
	api := r.Group("/stock-api")
	{
		api.GET("/info", dashboard.GetInfo)
		api.GET("/market-summary", dashboard.GetMarketSummary)
		api.GET("/active-stocks", dashboard.GetActiveStocks)
		api.GET("/stocks/:symbol", dashboard.GetStock)
	}

	// 管理API（JWT必須、再投入の頻度を制限）
	if batches != nil {
		admin := r.Group("/admin")
		admin.Use(
			jwtmw.AuthRequired(jwtCfg.Secret, jwtmw.ScopeAdmin),
			middleware.RateLimit(ratelimiter.NewRateLimiter(httpCfg.AdminRateLimit, time.Minute)),
		)
		{
			admin.POST("/batches", batches.SubmitBatch)
		}
	}

	return r
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.DefaultConfig()
	cfg.AllowMethods = []string{"GET", "HEAD", "POST", "OPTIONS"}
	cfg.AllowHeaders = []string{"Origin", "Content-Type", "Authorization"}
	if len(origins) == 0 || slices.Contains(origins, "*") {
		cfg.AllowAllOrigins = true
		return cfg
	}
	cfg.AllowOrigins = origins
	return cfg
}
