package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"stock_dashboard/internal/app/di"
	"stock_dashboard/internal/app/router"
	dashboardhandler "stock_dashboard/internal/feature/dashboard/transport/handler"
	dashboardusecase "stock_dashboard/internal/feature/dashboard/usecase"
	quoteshandler "stock_dashboard/internal/feature/quotes/transport/handler"
	"stock_dashboard/internal/platform/config"
	"stock_dashboard/internal/platform/logger"
	platformredis "stock_dashboard/internal/platform/redis"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	lg, err := logger.New(cfg.App.Env)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = lg.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// db
	db, err := di.NewDatabase(cfg.DB, lg)
	if err != nil {
		lg.Fatal("database unavailable", zap.Error(err))
	}

	// Redis（失敗してもキャッシュなしで起動）
	rdb, err := platformredis.NewRedisClient(ctx, cfg.Redis, lg)
	if err != nil {
		lg.Warn("redis unavailable; running without cache", zap.Error(err))
		rdb = nil
	}
	if rdb != nil {
		defer func() { _ = rdb.Close() }()
	}

	// Repository / Usecase
	store := di.NewStateStore(db, rdb, cfg.Redis.CacheTTL)
	pipeline := di.NewPipeline(cfg.Aggregator, db, store, lg)
	dashboardUC := dashboardusecase.NewDashboardUsecase(store, cfg.App.Market)

	// Handler
	dashboardH := dashboardhandler.NewDashboardHandler(dashboardUC, lg)
	batchH := quoteshandler.NewBatchHandler(pipeline, lg)

	if cfg.JWT.Secret == "" {
		lg.Warn("JWT_SECRET is not set; admin endpoints will reject every request")
	}

	r := router.NewRouter(lg, cfg.HTTP, cfg.JWT, dashboardH, batchH, di.NewHealthChecks(db, rdb)...)
	srv := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := pipeline.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		lg.Info("http server listening", zap.String("addr", cfg.HTTP.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		lg.Fatal("server stopped with error", zap.Error(err))
	}
	lg.Info("server stopped")
}
