// Package handler はquotesフィーチャーの管理用HTTPハンドラーを提供します。
package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"stock_dashboard/internal/api"
	"stock_dashboard/internal/feature/quotes/domain/entity"
	"stock_dashboard/internal/feature/quotes/transport/stream/dto"
	"stock_dashboard/internal/feature/quotes/usecase"
)

// BatchSubmitter はバッチをパイプラインに投入します。
type BatchSubmitter interface {
	Submit(ctx context.Context, b usecase.Batch, ack usecase.Ack) error
}

// BatchHandler は運用者によるバッチ再投入を処理します。
type BatchHandler struct {
	pipeline BatchSubmitter
	logger   *zap.Logger
}

// NewBatchHandler はBatchHandlerの新しいインスタンスを生成します。
func NewBatchHandler(pipeline BatchSubmitter, logger *zap.Logger) *BatchHandler {
	return &BatchHandler{pipeline: pipeline, logger: logger}
}

type outcome struct {
	report usecase.BatchReport
	err    error
}

// SubmitBatch は受信レコードの配列を1バッチとして処理し、結果のレポートを返します。
//
// エンドポイント例:
// POST /admin/batches
func (h *BatchHandler) SubmitBatch(c *gin.Context) {
	var records []dto.QuoteMessage
	if err := c.ShouldBindJSON(&records); err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "invalid request"})
		return
	}
	if len(records) == 0 {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "batch is empty"})
		return
	}

	batch := usecase.Batch{ID: uuid.New(), Events: make([]entity.QuoteEvent, 0, len(records))}
	for i, r := range records {
		e, err := r.ToEntity()
		if err != nil {
			h.logger.Warn("quote record has invalid fetchedAt",
				zap.String("batch_id", batch.ID.String()),
				zap.Int("index", i),
				zap.String("symbol", r.Symbol),
				zap.Error(err),
			)
		}
		batch.Events = append(batch.Events, e)
	}

	ctx := c.Request.Context()
	done := make(chan outcome, 1)
	if err := h.pipeline.Submit(ctx, batch, func(report usecase.BatchReport, err error) {
		done <- outcome{report: report, err: err}
	}); err != nil {
		c.JSON(http.StatusServiceUnavailable, api.ErrorResponse{Error: "pipeline unavailable"})
		return
	}

	select {
	case <-ctx.Done():
		c.JSON(http.StatusServiceUnavailable, api.ErrorResponse{Error: "request canceled before batch completed"})
	case o := <-done:
		if o.err != nil {
			h.logger.Error("admin batch failed", zap.String("batch_id", batch.ID.String()), zap.Error(o.err))
			c.JSON(statusFor(o.err), api.ErrorResponse{Error: "batch " + batch.ID.String() + " failed"})
			return
		}
		c.JSON(http.StatusOK, o.report)
	}
}

// statusFor は再試行可能な失敗を503、それ以外を500に対応付ける
func statusFor(err error) int {
	if usecase.IsRetryable(err) {
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}
