package usecase

import "errors"

// ErrStockNotFound is returned when the projection holds no document for a symbol.
var ErrStockNotFound = errors.New("stock not found")
