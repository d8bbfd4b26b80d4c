package adapters

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"stock_dashboard/internal/feature/quotes/domain/entity"
)

// setupTestDB prepares an in-memory SQLite database for testing.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Discard})
	require.NoError(t, err, "failed to initialize test database")

	// :memory: はコネクションごとに別DBになるため1本に固定
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, Migrate(db), "failed to migrate tables")
	return db
}

func nd(s string) decimal.NullDecimal {
	return decimal.NewNullDecimal(decimal.RequireFromString(s))
}

// historyEntry はテスト用のHistoryEntryを生成します。
func historyEntry(batchID uuid.UUID, symbol, date, closePrice, prevClose string, volume int64) entity.HistoryEntry {
	e := entity.HistoryEntry{
		QuoteEvent: entity.QuoteEvent{
			Symbol:    symbol,
			TradeDate: date,
			Open:      nd(closePrice),
			Close:     nd(closePrice),
			Volume:    &volume,
			FetchedAt: time.Date(2024, 1, 3, 20, 0, 0, 0, time.UTC),
		},
		BatchID:    batchID,
		IngestedAt: time.Date(2024, 1, 3, 21, 0, 0, 0, time.UTC),
	}
	if prevClose != "" {
		e.PrevClose = nd(prevClose)
	}
	e.Metrics = entity.ComputeMetrics(e.QuoteEvent)
	return e
}

func dashboardState(symbol, date, price string, volume int64) entity.DashboardState {
	return entity.NewDashboardState(historyEntry(uuid.New(), symbol, date, price, "100", volume))
}
