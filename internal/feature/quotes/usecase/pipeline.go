package usecase

import (
	"context"
	"time"

	"go.uber.org/zap"
)

const (
	defaultQueueSize     = 16
	defaultRetryAttempts = 3
	defaultRetryBackoff  = 500 * time.Millisecond
)

// Ack receives the outcome of a submitted batch once it has been processed.
type Ack func(report BatchReport, err error)

// PipelineConfig tunes the batch pipeline.
type PipelineConfig struct {
	QueueSize     int           // Capacity of the batch queue
	RetryAttempts int           // Attempts per batch for transient failures
	RetryBackoff  time.Duration // Wait before the first retry, doubled on each further retry
}

type envelope struct {
	batch Batch
	ack   Ack
}

// Pipeline delivers batches through a bounded queue to a single writer,
// so the history append and projection upsert of one batch never interleave with another's.
type Pipeline struct {
	processor *Processor
	queue     chan envelope
	cfg       PipelineConfig
	logger    *zap.Logger
	wait      func(ctx context.Context, d time.Duration) error
}

// NewPipeline creates a Pipeline. Zero config values fall back to defaults.
func NewPipeline(processor *Processor, cfg PipelineConfig, logger *zap.Logger) *Pipeline {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = defaultQueueSize
	}
	if cfg.RetryAttempts <= 0 {
		cfg.RetryAttempts = defaultRetryAttempts
	}
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = defaultRetryBackoff
	}
	return &Pipeline{
		processor: processor,
		queue:     make(chan envelope, cfg.QueueSize),
		cfg:       cfg,
		logger:    logger,
		wait:      sleepCtx,
	}
}

// Submit enqueues a batch. It blocks while the queue is full and returns ctx.Err()
// if ctx ends first. ack may be nil.
func (pl *Pipeline) Submit(ctx context.Context, b Batch, ack Ack) error {
	select {
	case pl.queue <- envelope{batch: b, ack: ack}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run processes queued batches one at a time until ctx is done.
// Batches still queued at shutdown are not acknowledged.
func (pl *Pipeline) Run(ctx context.Context) error {
	pl.logger.Info("batch pipeline started", zap.Int("queue_size", pl.cfg.QueueSize))
	for {
		select {
		case <-ctx.Done():
			pl.logger.Info("batch pipeline stopped")
			return ctx.Err()
		case env := <-pl.queue:
			report, err := pl.process(ctx, env.batch)
			if env.ack != nil {
				env.ack(report, err)
			}
		}
	}
}

// process aggregates once and retries the apply step on transient failures,
// so every attempt writes identical records.
func (pl *Pipeline) process(ctx context.Context, b Batch) (BatchReport, error) {
	agg := pl.processor.Prepare(b)
	backoff := pl.cfg.RetryBackoff

	var (
		report BatchReport
		err    error
	)
	for attempt := 1; ; attempt++ {
		report, err = pl.processor.Apply(ctx, agg)
		if err == nil {
			pl.logger.Info("batch processed",
				zap.String("batch_id", report.BatchID.String()),
				zap.Int("received", report.Received),
				zap.Int("rejected", report.Rejected),
				zap.Int("history_appended", report.HistoryAppended),
				zap.Int("states_applied", report.StatesApplied),
				zap.Int("states_stale", report.StatesStale),
			)
			return report, nil
		}
		if !IsRetryable(err) || attempt >= pl.cfg.RetryAttempts {
			break
		}
		pl.logger.Warn("batch failed, retrying",
			zap.String("batch_id", agg.BatchID.String()),
			zap.Int("attempt", attempt),
			zap.Duration("backoff", backoff),
			zap.Error(err),
		)
		if werr := pl.wait(ctx, backoff); werr != nil {
			return report, werr
		}
		backoff *= 2
	}

	pl.logger.Error("batch failed",
		zap.String("batch_id", agg.BatchID.String()),
		zap.Bool("retryable", IsRetryable(err)),
		zap.Error(err),
	)
	return report, err
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
