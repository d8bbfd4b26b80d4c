// Package adapters provides the gorm-backed history log and projection store for quotes.
package adapters

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"stock_dashboard/internal/feature/quotes/domain/entity"
)

// HistoryModel is one row of the append-only history log.
// DedupeKey is NULL unless history deduplication is enabled; NULLs never conflict.
type HistoryModel struct {
	ID        uint      `gorm:"primaryKey"`
	BatchID   uuid.UUID `gorm:"type:varchar(36);not null;index"`
	Symbol    string    `gorm:"size:32;not null;index:history_sym_date,priority:1"`
	TradeDate string    `gorm:"size:10;not null;index:history_sym_date,priority:2"`

	Open          decimal.NullDecimal `gorm:"type:decimal(20,6)"`
	Close         decimal.Decimal     `gorm:"type:decimal(20,6);not null"`
	Volume        int64               `gorm:"not null;default:0"`
	PrevClose     decimal.NullDecimal `gorm:"type:decimal(20,6)"`
	Change        decimal.NullDecimal `gorm:"type:decimal(20,6)"`
	ChangePercent decimal.NullDecimal `gorm:"type:decimal(20,6)"`

	FetchedAt  time.Time
	IngestedAt time.Time `gorm:"not null"`
	DedupeKey  *string   `gorm:"size:48;uniqueIndex"`
}

func (HistoryModel) TableName() string {
	return "stock_history"
}

// DashboardStateModel is the projection document of one symbol.
type DashboardStateModel struct {
	Symbol        string              `gorm:"primaryKey;size:32"`
	LatestDate    string              `gorm:"size:10;not null"`
	TodayPrice    decimal.Decimal     `gorm:"type:decimal(20,6);not null"`
	PriceChange   decimal.NullDecimal `gorm:"type:decimal(20,6)"`
	ChangePercent decimal.NullDecimal `gorm:"type:decimal(20,6)"`
	Volume        int64               `gorm:"not null;default:0"`
	PrevClose     decimal.NullDecimal `gorm:"type:decimal(20,6)"`
	FetchedAt     time.Time
	UpdatedAt     time.Time `gorm:"autoUpdateTime:false;not null"`
}

func (DashboardStateModel) TableName() string {
	return "dashboard_states"
}

// Migrate creates or updates the quotes tables.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(&HistoryModel{}, &DashboardStateModel{})
}

func toHistoryModel(e entity.HistoryEntry, dedupe bool) HistoryModel {
	m := HistoryModel{
		BatchID:       e.BatchID,
		Symbol:        e.Symbol,
		TradeDate:     e.TradeDate,
		Open:          e.Open,
		Close:         e.Close.Decimal,
		PrevClose:     e.PrevClose,
		Change:        e.Change,
		ChangePercent: e.ChangePercent,
		FetchedAt:     e.FetchedAt,
		IngestedAt:    e.IngestedAt,
	}
	if e.Volume != nil {
		m.Volume = *e.Volume
	}
	if dedupe {
		key := e.Symbol + "|" + e.TradeDate
		m.DedupeKey = &key
	}
	return m
}

func toStateModel(s entity.DashboardState) DashboardStateModel {
	return DashboardStateModel{
		Symbol:        s.Symbol,
		LatestDate:    s.LatestDate,
		TodayPrice:    s.TodayPrice,
		PriceChange:   s.PriceChange,
		ChangePercent: s.ChangePercent,
		Volume:        s.Volume,
		PrevClose:     s.PrevClose,
		FetchedAt:     s.FetchedAt,
		UpdatedAt:     s.UpdatedAt,
	}
}

func toStateEntity(m DashboardStateModel) entity.DashboardState {
	return entity.DashboardState{
		Symbol:        m.Symbol,
		LatestDate:    m.LatestDate,
		TodayPrice:    m.TodayPrice,
		PriceChange:   m.PriceChange,
		ChangePercent: m.ChangePercent,
		Volume:        m.Volume,
		PrevClose:     m.PrevClose,
		FetchedAt:     m.FetchedAt,
		UpdatedAt:     m.UpdatedAt,
	}
}
