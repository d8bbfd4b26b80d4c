// Package stream consumes quote records from Kafka and feeds them to the batch pipeline.
package stream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"stock_dashboard/internal/feature/quotes/domain/entity"
	"stock_dashboard/internal/feature/quotes/transport/stream/dto"
	"stock_dashboard/internal/feature/quotes/usecase"
)

// Reader abstracts the Kafka consumer-group reader.
type Reader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Submitter accepts batches for processing.
type Submitter interface {
	Submit(ctx context.Context, b usecase.Batch, ack usecase.Ack) error
}

// Consumer groups stream records into batches of at most maxBatch records or one window of time,
// whichever comes first. Offsets are committed only after the batch is acknowledged,
// so delivery is at-least-once.
type Consumer struct {
	reader   Reader
	pipeline Submitter
	maxBatch int
	window   time.Duration
	logger   *zap.Logger
}

// NewConsumer creates a Consumer.
func NewConsumer(reader Reader, pipeline Submitter, maxBatch int, window time.Duration, logger *zap.Logger) *Consumer {
	if maxBatch <= 0 {
		maxBatch = 1
	}
	return &Consumer{reader: reader, pipeline: pipeline, maxBatch: maxBatch, window: window, logger: logger}
}

// Run consumes until ctx is done or a batch fails. A failed batch stops the consumer
// without committing its offsets or those of any batch queued after it,
// so the records are redelivered after restart.
func (c *Consumer) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	c.logger.Info("stream consumer started", zap.Int("max_batch", c.maxBatch), zap.Duration("window", c.window))
	for {
		msgs, err := c.collect(ctx)
		if ctx.Err() != nil {
			return stopCause(ctx)
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			c.logger.Error("kafka read error", zap.Error(err))
			if len(msgs) == 0 {
				continue
			}
		}

		batch := c.decode(msgs)
		ack := func(_ usecase.BatchReport, err error) {
			if err != nil {
				cancel(fmt.Errorf("batch %s failed: %w", batch.ID, err))
				return
			}
			// Kafka commits are per-partition high-water marks: committing a batch queued
			// behind a failed or uncommitted one would skip the earlier records for good.
			// Acks run in submission order on the single writer, so an earlier failure
			// is always visible here.
			if context.Cause(ctx) != nil {
				c.logger.Warn("skipped offset commit after consumer stopped",
					zap.String("batch_id", batch.ID.String()),
					zap.Int("records", len(msgs)),
				)
				return
			}
			if err := c.reader.CommitMessages(context.WithoutCancel(ctx), msgs...); err != nil {
				cancel(fmt.Errorf("commit offsets of batch %s: %w", batch.ID, err))
			}
		}
		if err := c.pipeline.Submit(ctx, batch, ack); err != nil {
			return stopCause(ctx)
		}
	}
}

// collect blocks for the first record, then gathers more until the batch is full or the window elapses.
func (c *Consumer) collect(ctx context.Context) ([]kafka.Message, error) {
	first, err := c.reader.FetchMessage(ctx)
	if err != nil {
		return nil, err
	}
	msgs := []kafka.Message{first}

	wctx, cancel := context.WithTimeout(ctx, c.window)
	defer cancel()
	for len(msgs) < c.maxBatch {
		m, err := c.reader.FetchMessage(wctx)
		if err != nil {
			if wctx.Err() != nil && ctx.Err() == nil {
				break
			}
			return msgs, err
		}
		msgs = append(msgs, m)
	}
	return msgs, nil
}

// decode turns records into a batch in arrival order. Undecodable records are dropped and logged.
func (c *Consumer) decode(msgs []kafka.Message) usecase.Batch {
	batch := usecase.Batch{ID: uuid.New(), Events: make([]entity.QuoteEvent, 0, len(msgs))}
	for _, m := range msgs {
		var qm dto.QuoteMessage
		if err := json.Unmarshal(m.Value, &qm); err != nil {
			c.logger.Warn("dropped undecodable quote record",
				zap.String("batch_id", batch.ID.String()),
				zap.String("key", string(m.Key)),
				zap.Int("partition", m.Partition),
				zap.Int64("offset", m.Offset),
				zap.Error(err),
			)
			continue
		}
		e, err := qm.ToEntity()
		if err != nil {
			c.logger.Warn("quote record has invalid fetchedAt",
				zap.String("batch_id", batch.ID.String()),
				zap.String("key", string(m.Key)),
				zap.Int("partition", m.Partition),
				zap.Int64("offset", m.Offset),
				zap.Error(err),
			)
		}
		batch.Events = append(batch.Events, e)
	}
	return batch
}

func stopCause(ctx context.Context) error {
	cause := context.Cause(ctx)
	if errors.Is(cause, context.Canceled) {
		return nil
	}
	return cause
}
