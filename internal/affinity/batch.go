package affinity

import (
	"context"
	"errors"
	"fmt"

	"github.com/benvon/toptag/internal/metrics"
	"github.com/benvon/toptag/internal/models"
)

// DefaultBatchSize is used when no batch size is configured
const DefaultBatchSize = 500

// ErrInvalidBatchSize is returned when a non-positive batch size is requested
var ErrInvalidBatchSize = errors.New("batch size must be positive")

// BatchSaver persists one chunk of affinity entries atomically
type BatchSaver interface {
	SaveBatch(ctx context.Context, entries []models.AffinityEntry) error
}

// BatchWriter splits staged entries into fixed-size chunks and saves them in order
type BatchWriter struct {
	saver BatchSaver
}

// NewBatchWriter creates a new batch writer
func NewBatchWriter(saver BatchSaver) *BatchWriter {
	return &BatchWriter{saver: saver}
}

// Flush issues one SaveBatch call per chunk of batchSize entries (the last chunk may be smaller)
// and returns the number of calls that succeeded. The first failing chunk aborts the flush;
// failed chunks are not retried.
func (w *BatchWriter) Flush(ctx context.Context, entries []models.AffinityEntry, batchSize int) (int, error) {
	if batchSize <= 0 {
		return 0, ErrInvalidBatchSize
	}
	calls := 0
	for start := 0; start < len(entries); start += batchSize {
		end := min(start+batchSize, len(entries))
		if err := w.saver.SaveBatch(ctx, entries[start:end]); err != nil {
			metrics.AffinityBatchWrites.WithLabelValues(metrics.OutcomeFailure).Inc()
			return calls, fmt.Errorf("failed to save affinity batch %d (entries %d-%d): %w", calls+1, start, end-1, err)
		}
		metrics.AffinityBatchWrites.WithLabelValues(metrics.OutcomeSuccess).Inc()
		metrics.AffinityEntriesWritten.Add(float64(end - start))
		calls++
	}
	return calls, nil
}
