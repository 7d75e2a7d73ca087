package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/edumesh/edumesh-api/internal/models"
)

// BatchItemFunc performs one independent sub-operation, including its own
// validation and persistence. Each item commits on its own; the engine never
// wraps the batch in a transaction.
type BatchItemFunc func(ctx context.Context, index int) models.BatchItemResult

type batchMetrics interface {
	ObserveBatchItem(outcome string)
}

// BatchEngine applies N independent sub-operations with isolated failure
// domains: item i failing never prevents item i+1 from running and never
// rolls back items already committed.
type BatchEngine struct {
	logger  *zap.Logger
	metrics batchMetrics
}

// NewBatchEngine constructs the engine. Metrics may be nil.
func NewBatchEngine(logger *zap.Logger, metrics batchMetrics) *BatchEngine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BatchEngine{logger: logger, metrics: metrics}
}

// Run executes total items in order. Results preserve input order and the
// counts always satisfy successful+failed+skipped == total. Per-item failures
// are returned as data, never as an error; a panicking item is converted into
// a failed result and the loop continues.
func (e *BatchEngine) Run(ctx context.Context, batchID string, total int, fn BatchItemFunc) models.BatchResponse {
	response := models.BatchResponse{
		BatchID:        batchID,
		TotalRequested: total,
		Results:        make([]models.BatchItemResult, 0, total),
	}

	for i := 0; i < total; i++ {
		result := e.runItem(ctx, i, fn)

		switch {
		case result.Success && result.WasDuplicate:
			response.Skipped++
			e.observe("skipped")
		case result.Success:
			response.Successful++
			e.observe("successful")
		default:
			response.Failed++
			e.observe("failed")
			e.logger.Warn("batch item failed",
				zap.String("batch_id", batchID),
				zap.Int("index", i),
				zap.String("error", result.Error),
			)
		}
		response.Results = append(response.Results, result)
	}

	e.logger.Info("batch completed",
		zap.String("batch_id", batchID),
		zap.Int("total", response.TotalRequested),
		zap.Int("successful", response.Successful),
		zap.Int("failed", response.Failed),
		zap.Int("skipped", response.Skipped),
	)
	return response
}

func (e *BatchEngine) runItem(ctx context.Context, index int, fn BatchItemFunc) (result models.BatchItemResult) {
	defer func() {
		if p := recover(); p != nil {
			result.Success = false
			result.WasDuplicate = false
			result.Error = fmt.Sprintf("unexpected failure: %v", p)
		}
	}()
	return fn(ctx, index)
}

func (e *BatchEngine) observe(outcome string) {
	if e.metrics != nil {
		e.metrics.ObserveBatchItem(outcome)
	}
}
