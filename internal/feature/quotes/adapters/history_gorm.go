package adapters

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"stock_dashboard/internal/feature/quotes/domain/entity"
	"stock_dashboard/internal/feature/quotes/usecase"
)

const historyInsertChunk = 500

type historyGorm struct {
	db     *gorm.DB
	dedupe bool
}

var _ usecase.HistoryRepository = (*historyGorm)(nil)

// NewHistoryRepository creates the history log. With dedupe enabled, a second entry
// for the same (symbol, tradeDate) is silently skipped.
func NewHistoryRepository(db *gorm.DB, dedupe bool) *historyGorm {
	return &historyGorm{db: db, dedupe: dedupe}
}

// Append inserts all entries in one transaction and returns the number of rows written.
func (r *historyGorm) Append(ctx context.Context, entries []entity.HistoryEntry) (int, error) {
	if len(entries) == 0 {
		return 0, nil
	}
	ms := make([]HistoryModel, 0, len(entries))
	for _, e := range entries {
		ms = append(ms, toHistoryModel(e, r.dedupe))
	}

	var written int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if r.dedupe {
			tx = tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "dedupe_key"}},
				DoNothing: true,
			})
		}
		res := tx.CreateInBatches(&ms, historyInsertChunk)
		written = res.RowsAffected
		return res.Error
	})
	if err != nil {
		return 0, classify("append history", err)
	}
	return int(written), nil
}
