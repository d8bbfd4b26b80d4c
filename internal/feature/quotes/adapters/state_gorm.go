package adapters

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"stock_dashboard/internal/feature/quotes/domain"
	"stock_dashboard/internal/feature/quotes/domain/entity"
	"stock_dashboard/internal/feature/quotes/usecase"
)

// stateColumns are replaced in full on every accepted write.
var stateColumns = []string{
	"latest_date", "today_price", "price_change", "change_percent",
	"volume", "prev_close", "fetched_at", "updated_at",
}

// notNewer guards the replace so a stored document never moves back in trade date.
var notNewer = clause.Where{Exprs: []clause.Expression{
	clause.Expr{SQL: "dashboard_states.latest_date <= excluded.latest_date"},
}}

type stateGorm struct {
	db *gorm.DB
}

var _ usecase.StateRepository = (*stateGorm)(nil)

// NewStateRepository creates the projection store.
func NewStateRepository(db *gorm.DB) *stateGorm {
	return &stateGorm{db: db}
}

// Upsert writes each state with a single conditional INSERT ... ON CONFLICT statement,
// which is atomic per symbol. A state older than the stored one affects no rows and
// is reported as not applied.
func (r *stateGorm) Upsert(ctx context.Context, states []entity.DashboardState) []usecase.UpsertResult {
	out := make([]usecase.UpsertResult, 0, len(states))
	for _, s := range states {
		m := toStateModel(s)
		res := r.db.WithContext(ctx).Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "symbol"}},
			DoUpdates: clause.AssignmentColumns(stateColumns),
			Where:     notNewer,
		}).Create(&m)

		result := usecase.UpsertResult{Symbol: s.Symbol}
		switch {
		case res.Error != nil:
			result.Err = classify("upsert dashboard state", res.Error)
		case res.RowsAffected > 0:
			result.Applied = true
		}
		out = append(out, result)
	}
	return out
}

// FindAll returns every projection document ordered by symbol.
func (r *stateGorm) FindAll(ctx context.Context) ([]entity.DashboardState, error) {
	var rows []DashboardStateModel
	if err := r.db.WithContext(ctx).Order("symbol ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]entity.DashboardState, 0, len(rows))
	for _, m := range rows {
		out = append(out, toStateEntity(m))
	}
	return out, nil
}

// FindBySymbol returns the projection document of one symbol or domain.ErrStateNotFound.
func (r *stateGorm) FindBySymbol(ctx context.Context, symbol string) (*entity.DashboardState, error) {
	var m DashboardStateModel
	err := r.db.WithContext(ctx).Where("symbol = ?", symbol).Take(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrStateNotFound
	}
	if err != nil {
		return nil, err
	}
	s := toStateEntity(m)
	return &s, nil
}
