package adapters

import (
	"fmt"

	"stock_dashboard/internal/feature/quotes/usecase"
	dbx "stock_dashboard/internal/platform/db"
)

// classify tags a store error as transient or as a persistence failure.
func classify(op string, err error) error {
	if dbx.IsTransient(err) {
		return fmt.Errorf("%s: %w: %w", op, usecase.ErrTransientIO, err)
	}
	return fmt.Errorf("%s: %w: %w", op, usecase.ErrPersistence, err)
}
