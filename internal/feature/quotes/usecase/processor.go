package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"stock_dashboard/internal/feature/quotes/domain/entity"
)

// HistoryRepository is the append-only log of processed events.
// Following Go convention: interfaces are defined by the consumer (usecase), not the provider (adapters).
type HistoryRepository interface {
	// Append writes all entries of one batch atomically and returns the number of rows written.
	Append(ctx context.Context, entries []entity.HistoryEntry) (int, error)
}

// StateRepository is the per-symbol projection store.
type StateRepository interface {
	// Upsert replaces the document of each symbol unless the stored latestDate is newer.
	// It returns one result per input state.
	Upsert(ctx context.Context, states []entity.DashboardState) []UpsertResult
}

// UpsertResult is the outcome of one per-symbol write.
// Applied is false with a nil Err when the store already holds a newer trade date.
type UpsertResult struct {
	Symbol  string
	Applied bool
	Err     error
}

// Stale reports whether the write was refused because it would regress latestDate.
func (r UpsertResult) Stale() bool { return !r.Applied && r.Err == nil }

// BatchReport summarizes the processing of one batch.
type BatchReport struct {
	BatchID         uuid.UUID `json:"batchId"`
	Received        int       `json:"received"`
	Accepted        int       `json:"accepted"`
	Rejected        int       `json:"rejected"`
	HistoryAppended int       `json:"historyAppended"`
	StatesApplied   int       `json:"statesApplied"`
	StatesStale     int       `json:"statesStale"`
}

// Processor aggregates a batch and applies it to the history log and the projection.
type Processor struct {
	aggregator *Aggregator
	history    HistoryRepository
	states     StateRepository
	logger     *zap.Logger
}

// NewProcessor creates a Processor.
func NewProcessor(aggregator *Aggregator, history HistoryRepository, states StateRepository, logger *zap.Logger) *Processor {
	return &Processor{aggregator: aggregator, history: history, states: states, logger: logger}
}

// Prepare runs the pure aggregation step for a batch.
func (p *Processor) Prepare(b Batch) Aggregation {
	return p.aggregator.Aggregate(b)
}

// ProcessBatch aggregates b and applies the result.
func (p *Processor) ProcessBatch(ctx context.Context, b Batch) (BatchReport, error) {
	return p.Apply(ctx, p.Prepare(b))
}

// Apply appends every entry to history, then upserts the winners.
// Applying the same Aggregation again converges the projection to the same state.
func (p *Processor) Apply(ctx context.Context, agg Aggregation) (BatchReport, error) {
	report := BatchReport{
		BatchID:  agg.BatchID,
		Received: agg.Received,
		Accepted: len(agg.Entries),
		Rejected: len(agg.Rejected),
	}
	for _, verr := range agg.Rejected {
		p.logger.Warn("dropped invalid quote event",
			zap.String("batch_id", agg.BatchID.String()),
			zap.Int("index", verr.Index),
			zap.String("symbol", verr.Symbol),
			zap.String("field", verr.Field),
			zap.String("reason", verr.Reason),
		)
	}
	if len(agg.Entries) == 0 {
		return report, nil
	}

	n, err := p.history.Append(ctx, agg.Entries)
	if err != nil {
		return report, fmt.Errorf("append history: %w", err)
	}
	report.HistoryAppended = n

	states := make([]entity.DashboardState, 0, len(agg.Winners))
	for _, w := range agg.Winners {
		states = append(states, entity.NewDashboardState(w))
	}

	var errs []error
	for _, r := range p.states.Upsert(ctx, states) {
		switch {
		case r.Err != nil:
			errs = append(errs, fmt.Errorf("upsert %s: %w", r.Symbol, r.Err))
		case r.Applied:
			report.StatesApplied++
		default:
			report.StatesStale++
			p.logger.Warn("skipped out-of-order dashboard state",
				zap.String("batch_id", agg.BatchID.String()),
				zap.String("symbol", r.Symbol),
			)
		}
	}
	if len(errs) > 0 {
		return report, errors.Join(errs...)
	}
	return report, nil
}
