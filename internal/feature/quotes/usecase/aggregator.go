package usecase

import (
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"stock_dashboard/internal/feature/quotes/domain/entity"
)

// Batch is a bounded group of quote events processed together.
// Events are in arrival order; that order breaks ties between equal trade dates.
type Batch struct {
	ID     uuid.UUID
	Events []entity.QuoteEvent
}

// Aggregation is the deterministic result of aggregating one batch.
type Aggregation struct {
	BatchID    uuid.UUID
	IngestedAt time.Time
	Received   int
	Entries    []entity.HistoryEntry // one per valid event, arrival order
	Winners    []entity.HistoryEntry // one per distinct symbol, symbol ascending
	Rejected   []*ValidationError
}

// Aggregator computes derived metrics and reduces a batch to its latest record per symbol.
type Aggregator struct {
	workers int
	now     func() time.Time
}

// NewAggregator creates an Aggregator that evaluates at most workers symbol groups concurrently.
// If now is nil, time.Now is used.
func NewAggregator(workers int, now func() time.Time) *Aggregator {
	if workers <= 0 {
		workers = 1
	}
	if now == nil {
		now = time.Now
	}
	return &Aggregator{workers: workers, now: now}
}

// Aggregate validates the batch, attaches metrics to every valid event, and selects
// one winner per symbol. Within a symbol the winner is the last event, in arrival order,
// whose trade date is greater than or equal to every earlier one.
func (a *Aggregator) Aggregate(b Batch) Aggregation {
	agg := Aggregation{
		BatchID:    b.ID,
		IngestedAt: a.now().UTC(),
		Received:   len(b.Events),
	}
	if agg.BatchID == uuid.Nil {
		agg.BatchID = uuid.New()
	}

	// 銘柄ごとに到着順でグループ化
	groups := make(map[string][]int)
	var symbols []string
	valid := make([]int, 0, len(b.Events))
	for i, e := range b.Events {
		if verr := validate(i, e); verr != nil {
			agg.Rejected = append(agg.Rejected, verr)
			continue
		}
		if _, ok := groups[e.Symbol]; !ok {
			symbols = append(symbols, e.Symbol)
		}
		groups[e.Symbol] = append(groups[e.Symbol], i)
		valid = append(valid, i)
	}
	sort.Strings(symbols)

	entries := make([]entity.HistoryEntry, len(b.Events))
	winners := make([]entity.HistoryEntry, len(symbols))

	var g errgroup.Group
	g.SetLimit(a.workers)
	for slot, sym := range symbols {
		idx := groups[sym]
		g.Go(func() error {
			var winner *entity.HistoryEntry
			for _, i := range idx {
				entries[i] = entity.HistoryEntry{
					QuoteEvent: b.Events[i],
					Metrics:    entity.ComputeMetrics(b.Events[i]),
					BatchID:    agg.BatchID,
					IngestedAt: agg.IngestedAt,
				}
				if winner == nil || entries[i].TradeDate >= winner.TradeDate {
					winner = &entries[i]
				}
			}
			winners[slot] = *winner
			return nil
		})
	}
	// closures never fail; Wait only joins them
	g.Wait()

	agg.Entries = make([]entity.HistoryEntry, 0, len(valid))
	for _, i := range valid {
		agg.Entries = append(agg.Entries, entries[i])
	}
	agg.Winners = winners
	return agg
}

func validate(i int, e entity.QuoteEvent) *ValidationError {
	verr := &ValidationError{Index: i, Symbol: e.Symbol}
	switch {
	case strings.TrimSpace(e.Symbol) == "":
		verr.Field, verr.Reason = "symbol", "is missing"
	case e.TradeDate == "":
		verr.Field, verr.Reason = "tradeDate", "is missing"
	case !e.Close.Valid:
		verr.Field, verr.Reason = "close", "is missing"
	case e.Volume == nil:
		verr.Field, verr.Reason = "volume", "is missing"
	case *e.Volume < 0:
		verr.Field, verr.Reason = "volume", "is negative"
	default:
		if _, err := time.Parse(entity.TradeDateLayout, e.TradeDate); err != nil {
			verr.Field, verr.Reason = "tradeDate", "is not a YYYY-MM-DD date"
			return verr
		}
		return nil
	}
	return verr
}
