// Package di provides dependency injection factories for creating application components.
package di

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"stock_dashboard/internal/feature/quotes/adapters"
	"stock_dashboard/internal/feature/quotes/usecase"
	"stock_dashboard/internal/platform/cache"
	"stock_dashboard/internal/platform/config"
	dbx "stock_dashboard/internal/platform/db"
	platformhandler "stock_dashboard/internal/platform/http/handler"
)

// NewDatabase opens PostgreSQL and applies migrations when db.run_migrations is set.
func NewDatabase(cfg config.DBConfig, logger *zap.Logger) (*gorm.DB, error) {
	db, err := dbx.Open(cfg, logger)
	if err != nil {
		return nil, err
	}
	if cfg.RunMigrations {
		if err := adapters.Migrate(db); err != nil {
			return nil, fmt.Errorf("migrate: %w", err)
		}
		logger.Info("database migrated")
	}
	return db, nil
}

// NewStateStore wraps the gorm projection store with the Redis cache. rdb may be nil.
func NewStateStore(db *gorm.DB, rdb *redis.Client, ttl time.Duration) *cache.CachingStateRepository {
	return cache.NewCachingStateRepository(rdb, ttl, adapters.NewStateRepository(db), "dashboard")
}

// NewPipeline assembles aggregator, history writer and projection store into a batch pipeline.
func NewPipeline(cfg config.AggregatorConfig, db *gorm.DB, states usecase.StateRepository, logger *zap.Logger) *usecase.Pipeline {
	aggregator := usecase.NewAggregator(cfg.Workers, time.Now)
	history := adapters.NewHistoryRepository(db, cfg.HistoryDedupe)
	processor := usecase.NewProcessor(aggregator, history, states, logger)
	return usecase.NewPipeline(processor, usecase.PipelineConfig{
		QueueSize:     cfg.QueueSize,
		RetryAttempts: cfg.RetryAttempts,
		RetryBackoff:  cfg.RetryBackoff,
	}, logger)
}

// NewHealthChecks returns readiness checks for the datastore and, when configured, Redis.
func NewHealthChecks(db *gorm.DB, rdb *redis.Client) []platformhandler.Check {
	checks := []platformhandler.Check{{
		Name: "database",
		Ping: func(ctx context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		},
	}}
	if rdb != nil {
		checks = append(checks, platformhandler.Check{
			Name: "redis",
			Ping: func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
		})
	}
	return checks
}
