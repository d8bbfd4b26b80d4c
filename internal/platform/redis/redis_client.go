package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"stock_dashboard/internal/platform/config"
)

// NewRedisClient は接続確認済みのクライアントを返す。Addrが空ならnil（キャッシュ無効）
func NewRedisClient(ctx context.Context, cfg config.RedisConfig, logger *zap.Logger) (*redis.Client, error) {
	if cfg.Addr == "" {
		logger.Info("redis disabled; projection cache bypassed")
		return nil, nil
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	// 接続確認
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		logger.Error("redis connection failed", zap.String("address", cfg.Addr), zap.Error(err))
		return nil, fmt.Errorf("redis ping %s: %w", cfg.Addr, err)
	}

	logger.Info("redis connection successful", zap.String("address", cfg.Addr))
	return rdb, nil
}
