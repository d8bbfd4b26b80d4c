package entity

import (
	"time"

	"github.com/google/uuid"
)

// HistoryEntry is an immutable record of one processed QuoteEvent and its metrics.
// Entries are appended once and never updated or deleted.
type HistoryEntry struct {
	QuoteEvent
	Metrics
	BatchID    uuid.UUID // Batch the entry was processed in
	IngestedAt time.Time // Processing timestamp
}
