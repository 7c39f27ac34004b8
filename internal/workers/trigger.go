package workers

import (
	"context"
	"errors"

	"github.com/benvon/toptag/internal/affinity"
	"go.uber.org/zap"
)

// Rebuilder recomputes the affinity store
type Rebuilder interface {
	Rebuild(ctx context.Context) error
	Running() bool
}

// Submitter accepts background tasks without blocking
type Submitter interface {
	Submit(ctx context.Context, name string, task Task) error
}

// RebuildTrigger starts affinity rebuilds in the background
type RebuildTrigger struct {
	builder Rebuilder
	pool    Submitter
	logger  *zap.Logger
}

// NewRebuildTrigger creates a trigger running builder on pool
func NewRebuildTrigger(builder Rebuilder, pool Submitter, logger *zap.Logger) *RebuildTrigger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RebuildTrigger{builder: builder, pool: pool, logger: logger}
}

// TriggerRebuild queues a rebuild and returns once it is accepted. No completion signal is
// given. It returns affinity.ErrRebuildInProgress when this process is already rebuilding,
// or the pool's rejection.
func (t *RebuildTrigger) TriggerRebuild(ctx context.Context, source string) error {
	if t.builder.Running() {
		return affinity.ErrRebuildInProgress
	}

	err := t.pool.Submit(ctx, "affinity_rebuild", func(taskCtx context.Context) {
		err := t.builder.Rebuild(taskCtx)
		switch {
		case err == nil:
		case errors.Is(err, affinity.ErrRebuildInProgress):
			t.logger.Info("affinity_rebuild_skipped",
				zap.String("source", source),
				zap.String("reason", "already_running"),
			)
		default:
			// the builder logs the failure details
			t.logger.Warn("triggered_rebuild_failed", zap.String("source", source))
		}
	})
	if err != nil {
		return err
	}

	t.logger.Info("affinity_rebuild_accepted", zap.String("source", source))
	return nil
}
