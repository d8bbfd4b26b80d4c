// Package db opens the PostgreSQL connection used by the gorm adapters.
package db

import (
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"stock_dashboard/internal/platform/config"
)

const retryInterval = 3 * time.Second

// Opener opens a gorm connection for a DSN. Swappable for tests.
type Opener func(dsn string) (*gorm.DB, error)

// PostgresOpener opens a PostgreSQL connection through the pgx-based gorm driver.
func PostgresOpener(dsn string) (*gorm.DB, error) {
	return gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
}

// BuildDSN builds a PostgreSQL key/value DSN.
// When InstanceName is set the Cloud SQL unix socket directory is used as host.
func BuildDSN(cfg config.DBConfig) string {
	host, port := cfg.Host, cfg.Port
	if cfg.InstanceName != "" {
		host = "/cloudsql/" + cfg.InstanceName
		port = ""
	}
	sslmode := cfg.SSLMode
	if sslmode == "" {
		sslmode = "disable"
	}

	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s", host, cfg.User, cfg.Password, cfg.Name)
	if port != "" {
		dsn += " port=" + port
	}
	return dsn + " sslmode=" + sslmode + " TimeZone=UTC"
}

// ConnectWithRetry calls opener until it succeeds or timeout elapses.
func ConnectWithRetry(dsn string, timeout time.Duration, opener Opener, logger *zap.Logger) (*gorm.DB, error) {
	deadline := time.Now().Add(timeout)
	for {
		db, err := opener(dsn)
		if err == nil {
			return db, nil
		}
		if time.Now().After(deadline) {
			return nil, fmt.Errorf("DB connect failed after %s: %w", timeout, err)
		}
		logger.Warn("DB connect failed, retrying", zap.Duration("interval", retryInterval), zap.Error(err))
		time.Sleep(retryInterval)
	}
}

// Open connects to PostgreSQL using cfg.
func Open(cfg config.DBConfig, logger *zap.Logger) (*gorm.DB, error) {
	wait := cfg.ConnectWait
	if wait <= 0 {
		wait = 60 * time.Second
	}
	return ConnectWithRetry(BuildDSN(cfg), wait, PostgresOpener, logger)
}
