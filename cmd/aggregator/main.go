package main

import (
	"context"
	"errors"
	"log"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"stock_dashboard/internal/app/di"
	"stock_dashboard/internal/feature/quotes/transport/stream"
	"stock_dashboard/internal/platform/config"
	platformkafka "stock_dashboard/internal/platform/kafka"
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

	db, err := di.NewDatabase(cfg.DB, lg)
	if err != nil {
		lg.Fatal("database unavailable", zap.Error(err))
	}

	// キャッシュ無効化のためにRedisへ接続（任意）
	rdb, err := platformredis.NewRedisClient(ctx, cfg.Redis, lg)
	if err != nil {
		lg.Warn("redis unavailable; dashboard cache will expire by TTL only", zap.Error(err))
		rdb = nil
	}
	if rdb != nil {
		defer func() { _ = rdb.Close() }()
	}

	reader, err := platformkafka.NewReader(cfg.Kafka)
	if err != nil {
		lg.Fatal("kafka reader", zap.Error(err))
	}
	defer func() { _ = reader.Close() }()

	store := di.NewStateStore(db, rdb, cfg.Redis.CacheTTL)
	pipeline := di.NewPipeline(cfg.Aggregator, db, store, lg)
	consumer := stream.NewConsumer(reader, pipeline, cfg.Aggregator.MaxBatchSize, cfg.Aggregator.BatchWindow, lg)

	lg.Info("aggregator starting",
		zap.Strings("brokers", cfg.Kafka.Brokers),
		zap.String("topic", cfg.Kafka.Topic),
		zap.String("group_id", cfg.Kafka.GroupID),
	)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(runCtx)
	g.Go(func() error {
		if err := pipeline.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		// コンシューマが止まればパイプラインも止める
		defer cancel()
		return consumer.Run(gctx)
	})

	if err := g.Wait(); err != nil {
		lg.Fatal("aggregator stopped with error", zap.Error(err))
	}
	lg.Info("aggregator stopped")
}
