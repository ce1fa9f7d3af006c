package pipeline

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hildanuzulul/Ulcare/internal/model"
)

// DefaultConcurrency is the default number of photos processed at once.
const DefaultConcurrency = 4

// BatchProcessor handles concurrent classification of multiple photos.
// It uses errgroup to manage goroutines and respect concurrency limits.
//
// Design decision: We use a separate BatchProcessor rather than adding batch
// functionality to Pipeline because:
// 1. It keeps the Pipeline focused on single-photo execution
// 2. Decoding runs in parallel while the shared Runner serializes inference
// 3. It provides cleaner separation of concerns
type BatchProcessor struct {
	// pipelineFactory creates a new pipeline for each photo.
	// We use a factory to ensure each photo gets a fresh pipeline instance.
	pipelineFactory func() *Pipeline

	// concurrency is the maximum number of concurrent classifications.
	concurrency int

	// logger is used for batch-level logging.
	logger *slog.Logger

	// results stores completed classifications.
	// Access is synchronized via mutex.
	results []*model.Classification
	mu      sync.Mutex

	// progress is called by ProcessBatch after each photo.
	progress func(result *model.Classification, index int)
}

// BatchOption configures a BatchProcessor.
type BatchOption func(*BatchProcessor)

// WithBatchLogger sets a custom logger for batch processing.
func WithBatchLogger(logger *slog.Logger) BatchOption {
	return func(b *BatchProcessor) {
		b.logger = logger
	}
}

// WithProgress sets a function ProcessBatch calls after each photo with
// the result and its request index. It may be called concurrently.
func WithProgress(fn func(result *model.Classification, index int)) BatchOption {
	return func(b *BatchProcessor) {
		b.progress = fn
	}
}

// WithConcurrency sets the maximum number of concurrent classifications.
// Default is DefaultConcurrency if not specified.
func WithConcurrency(n int) BatchOption {
	return func(b *BatchProcessor) {
		if n > 0 {
			b.concurrency = n
		}
	}
}

// NewBatchProcessor creates a new BatchProcessor.
//
// The pipelineFactory function is called for each photo to create a fresh
// pipeline instance. Pipelines built for the same Runner share its cached
// model.
func NewBatchProcessor(pipelineFactory func() *Pipeline, opts ...BatchOption) *BatchProcessor {
	bp := &BatchProcessor{
		pipelineFactory: pipelineFactory,
		concurrency:     DefaultConcurrency,
		results:         make([]*model.Classification, 0),
	}

	for _, opt := range opts {
		opt(bp)
	}

	if bp.logger == nil {
		bp.logger = slog.Default()
	}

	return bp
}

// ProcessBatch classifies multiple photos concurrently.
// It respects the configured concurrency limit and context cancellation.
//
// Design decision: We use errgroup.SetLimit rather than a worker pool
// because it's simpler and errgroup handles the concurrency correctly.
// Each photo gets its own goroutine, but only 'concurrency' goroutines
// run simultaneously.
//
// Returns results in request order, including failed ones (Error set).
// Entries for requests never started because of cancellation are nil. The
// error return is non-nil only when the batch was cancelled.
func (bp *BatchProcessor) ProcessBatch(ctx context.Context, requests []Request) ([]*model.Classification, error) {
	startTime := time.Now()

	// Pre-allocate results slice to maintain order
	bp.results = make([]*model.Classification, len(requests))

	err := bp.ProcessBatchWithCallback(ctx, requests, func(result *model.Classification, index int) {
		bp.mu.Lock()
		bp.results[index] = result
		bp.mu.Unlock()

		if bp.progress != nil {
			bp.progress(result, index)
		}
	})
	if err == nil {
		err = ctx.Err()
	}

	bp.logger.Info("batch classification complete",
		"total_photos", len(requests),
		"elapsed", time.Since(startTime),
	)

	return bp.results, err
}

// ProcessBatchWithCallback classifies multiple photos and calls a callback
// for each completed classification. This is useful for streaming results.
//
// The callback receives the result and the index of the request in the
// original slice. The callback is called from the goroutine that completed
// the classification, so it should be thread-safe if it accesses shared
// state.
func (bp *BatchProcessor) ProcessBatchWithCallback(
	ctx context.Context,
	requests []Request,
	callback func(result *model.Classification, index int),
) error {
	bp.logger.Info("starting batch classification",
		"total_photos", len(requests),
		"concurrency", bp.concurrency,
	)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(bp.concurrency)

	for i, req := range requests {
		g.Go(func() error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}

			bp.logger.Debug("classifying photo",
				"index", i+1,
				"total", len(requests),
			)

			job := req.NewJob()
			if err := bp.pipelineFactory().Execute(ctx, job); err != nil {
				// The error is stored in the result. One bad photo must
				// not stop the others.
				bp.logger.Warn("classification failed",
					"image", job.Result.Image,
					"error", err,
				)
			}

			callback(job.Result, i)

			return nil
		})
	}

	return g.Wait()
}
