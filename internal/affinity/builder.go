// Package affinity builds the materialized tag affinity matrix.
//
// A rebuild clears the store, reads the full tag/post index once and, for every pair of tags
// (a, b) with a < b, stores |posts(a) ∩ posts(b)| / |posts(a)| when the overlap is non-empty.
// Only the lower-id direction is computed. Readers are not isolated from a running rebuild:
// between the clear and the last batch they may observe an empty or partially populated store.
package affinity

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync/atomic"
	"time"

	"github.com/benvon/toptag/internal/metrics"
	"github.com/benvon/toptag/internal/models"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

// ErrRebuildInProgress is returned when another rebuild holds the rebuild guard
var ErrRebuildInProgress = errors.New("affinity rebuild already in progress")

// ErrLockLost is returned when the cross-process lock stops being ours mid-rebuild.
// The rebuild stops writing as soon as the loss is observed.
var ErrLockLost = errors.New("affinity rebuild lock lost")

// TagPostIndex is a read-only snapshot of tag id -> post ids
type TagPostIndex interface {
	AllTagPostSets(ctx context.Context) (map[int64][]int64, error)
}

// Store is the mutable side of the affinity store used by rebuilds
type Store interface {
	BatchSaver
	Clear(ctx context.Context) error
}

// Locker guards rebuilds across processes. TryLock reports ok=false when another holder exists.
type Locker interface {
	TryLock(ctx context.Context) (lease Lease, ok bool, err error)
}

// Lease is a held lock. Lost is closed when ownership can no longer be guaranteed.
type Lease interface {
	Lost() <-chan struct{}
	Release(ctx context.Context) error
}

// RebuildStats summarizes a completed (or aborted) rebuild
type RebuildStats struct {
	Tags         int           `json:"tags"`
	SkippedEmpty int           `json:"skipped_empty"`
	Entries      int           `json:"entries"`
	Batches      int           `json:"batches"`
	Duration     time.Duration `json:"duration"`
}

// Builder computes the sparse pairwise score set and writes it to the store in batches
type Builder struct {
	index     TagPostIndex
	store     Store
	writer    *BatchWriter
	locker    Locker
	batchSize int
	scale     int32
	logger    *zap.Logger
	running   atomic.Bool
}

// BuilderOption configures a Builder
type BuilderOption func(*Builder)

// WithBatchSize sets the number of entries per store call
func WithBatchSize(size int) BuilderOption {
	return func(b *Builder) {
		if size > 0 {
			b.batchSize = size
		}
	}
}

// WithScoreScale sets the number of fractional digits kept in scores
func WithScoreScale(scale int32) BuilderOption {
	return func(b *Builder) {
		if scale > 0 {
			b.scale = scale
		}
	}
}

// WithLocker adds a cross-process rebuild lock on top of the in-process guard
func WithLocker(l Locker) BuilderOption {
	return func(b *Builder) {
		b.locker = l
	}
}

// NewBuilder creates a new affinity matrix builder
func NewBuilder(index TagPostIndex, store Store, logger *zap.Logger, opts ...BuilderOption) *Builder {
	if logger == nil {
		logger = zap.NewNop()
	}
	b := &Builder{
		index:     index,
		store:     store,
		writer:    NewBatchWriter(store),
		batchSize: DefaultBatchSize,
		scale:     DefaultScoreScale,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Running reports whether a rebuild is in progress in this process
func (b *Builder) Running() bool {
	return b.running.Load()
}

// Rebuild clears and recomputes the affinity store
func (b *Builder) Rebuild(ctx context.Context) error {
	_, err := b.RebuildWithStats(ctx)
	return err
}

// RebuildWithStats clears and recomputes the affinity store, returning what was written.
// It fails fast with ErrRebuildInProgress when another rebuild holds the guard. A store failure
// aborts the rebuild and leaves whatever the last successful batch produced. Losing the
// cross-process lock cancels the rebuild context and returns ErrLockLost.
func (b *Builder) RebuildWithStats(ctx context.Context) (RebuildStats, error) {
	if !b.running.CompareAndSwap(false, true) {
		metrics.AffinityRebuildsTotal.WithLabelValues(metrics.OutcomeRejected).Inc()
		return RebuildStats{}, ErrRebuildInProgress
	}
	defer b.running.Store(false)
	metrics.AffinityRebuildInProgress.Set(1)
	defer metrics.AffinityRebuildInProgress.Set(0)

	if b.locker != nil {
		lease, ok, err := b.locker.TryLock(ctx)
		if err != nil {
			metrics.AffinityRebuildsTotal.WithLabelValues(metrics.OutcomeFailure).Inc()
			return RebuildStats{}, fmt.Errorf("failed to acquire rebuild lock: %w", err)
		}
		if !ok {
			metrics.AffinityRebuildsTotal.WithLabelValues(metrics.OutcomeRejected).Inc()
			return RebuildStats{}, ErrRebuildInProgress
		}
		defer func() {
			// The rebuild context may already be done; release on a fresh one.
			releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := lease.Release(releaseCtx); err != nil {
				b.logger.Warn("failed_to_release_rebuild_lock", zap.Error(err))
			}
		}()

		var cancel context.CancelCauseFunc
		ctx, cancel = context.WithCancelCause(ctx)
		defer cancel(nil)
		go func() {
			select {
			case <-lease.Lost():
				b.logger.Error("affinity_rebuild_lock_lost")
				cancel(ErrLockLost)
			case <-ctx.Done():
			}
		}()
	}

	ctx, span := otel.Tracer("github.com/benvon/toptag/internal/affinity").Start(ctx, "affinity.rebuild")
	defer span.End()

	start := time.Now()
	b.logger.Info("affinity_rebuild_started",
		zap.Int("batch_size", b.batchSize),
		zap.Int32("score_scale", b.scale),
	)

	stats, err := b.rebuild(ctx)
	if err != nil && !errors.Is(err, ErrLockLost) && errors.Is(context.Cause(ctx), ErrLockLost) {
		err = fmt.Errorf("%w: %v", ErrLockLost, err)
	}
	stats.Duration = time.Since(start)
	span.SetAttributes(
		attribute.Int("affinity.tags", stats.Tags),
		attribute.Int("affinity.entries", stats.Entries),
		attribute.Int("affinity.batches", stats.Batches),
	)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "rebuild failed")
		metrics.AffinityRebuildsTotal.WithLabelValues(metrics.OutcomeFailure).Inc()
		b.logger.Error("affinity_rebuild_failed",
			zap.Int("tags", stats.Tags),
			zap.Int("entries_written", stats.Entries),
			zap.Int("batches_written", stats.Batches),
			zap.Duration("duration", stats.Duration),
			zap.Error(err),
		)
		return stats, err
	}

	metrics.AffinityRebuildsTotal.WithLabelValues(metrics.OutcomeSuccess).Inc()
	metrics.AffinityRebuildDuration.Observe(stats.Duration.Seconds())
	b.logger.Info("affinity_rebuild_completed",
		zap.Int("tags", stats.Tags),
		zap.Int("skipped_empty", stats.SkippedEmpty),
		zap.Int("entries", stats.Entries),
		zap.Int("batches", stats.Batches),
		zap.Duration("duration", stats.Duration),
	)
	return stats, nil
}

func (b *Builder) rebuild(ctx context.Context) (RebuildStats, error) {
	var stats RebuildStats

	if err := b.store.Clear(ctx); err != nil {
		return stats, fmt.Errorf("failed to clear affinity store: %w", err)
	}

	index, err := b.index.AllTagPostSets(ctx)
	if err != nil {
		return stats, fmt.Errorf("failed to load tag post index: %w", err)
	}

	tags, sets := snapshot(index)
	stats.Tags = len(tags)

	for i, source := range tags {
		if ctx.Err() != nil {
			return stats, context.Cause(ctx)
		}
		total := len(sets[i])
		if total == 0 {
			stats.SkippedEmpty++
			continue
		}
		staged := b.scoreRow(i, tags, sets)
		b.logger.Debug("affinity_tag_scored",
			zap.Int64("tag_id", source),
			zap.Int("posts", total),
			zap.Int("entries", len(staged)),
		)
		calls, err := b.writer.Flush(ctx, staged, b.batchSize)
		stats.Batches += calls
		stats.Entries += min(calls*b.batchSize, len(staged))
		if err != nil {
			return stats, fmt.Errorf("failed to write affinity entries for tag %d: %w", source, err)
		}
	}
	return stats, nil
}

// scoreRow stages entries (tags[i], tags[j]) for every j > i with a non-empty overlap
func (b *Builder) scoreRow(i int, tags []int64, sets []map[int64]struct{}) []models.AffinityEntry {
	total := len(sets[i])
	var staged []models.AffinityEntry
	for j := i + 1; j < len(tags); j++ {
		overlap := overlapCount(sets[i], sets[j])
		if overlap == 0 {
			continue
		}
		staged = append(staged, models.AffinityEntry{
			TagA:  tags[i],
			TagB:  tags[j],
			Score: Score(overlap, total, b.scale),
		})
	}
	return staged
}

// snapshot fixes an ascending tag order and converts post lists into sets.
// Duplicate post ids within a tag are counted once.
func snapshot(index map[int64][]int64) ([]int64, []map[int64]struct{}) {
	tags := make([]int64, 0, len(index))
	for id := range index {
		tags = append(tags, id)
	}
	slices.Sort(tags)

	sets := make([]map[int64]struct{}, len(tags))
	for i, id := range tags {
		posts := index[id]
		set := make(map[int64]struct{}, len(posts))
		for _, p := range posts {
			set[p] = struct{}{}
		}
		sets[i] = set
	}
	return tags, sets
}
