package workers

import (
	"context"
	"errors"
	"fmt"

	"github.com/benvon/toptag/internal/affinity"
	logpkg "github.com/benvon/toptag/internal/logger"
	"github.com/benvon/toptag/internal/queue"
	"github.com/benvon/toptag/internal/telemetry"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// JobProcessor handles one decoded job
type JobProcessor func(ctx context.Context, job *queue.Job) error

type processorEntry struct {
	proc JobProcessor
	// requeue reports whether a failed job should go back on the queue instead of the DLQ
	requeue func(err error) bool
}

// Dispatcher routes queue messages to the processor registered for their job type
type Dispatcher struct {
	logger   *zap.Logger
	registry map[queue.JobType]processorEntry
}

// NewDispatcher creates a dispatcher with the affinity_rebuild processor registered
func NewDispatcher(trigger *RebuildTrigger, logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	d := &Dispatcher{
		logger:   logger,
		registry: make(map[queue.JobType]processorEntry),
	}
	if trigger != nil {
		d.RegisterProcessor(queue.JobTypeAffinityRebuild, rebuildProcessor(trigger, logger), isPoolPressure)
	}
	return d
}

// RegisterProcessor registers a processor for a job type. requeue may be nil.
func (d *Dispatcher) RegisterProcessor(typ queue.JobType, proc JobProcessor, requeue func(error) bool) {
	d.registry[typ] = processorEntry{proc: proc, requeue: requeue}
}

// rebuildProcessor hands the job to the pool. A rebuild already running in this process
// absorbs the request.
func rebuildProcessor(trigger *RebuildTrigger, logger *zap.Logger) JobProcessor {
	return func(ctx context.Context, job *queue.Job) error {
		err := trigger.TriggerRebuild(ctx, job.Source())
		if errors.Is(err, affinity.ErrRebuildInProgress) {
			logger.Info("affinity_rebuild_coalesced",
				zap.String("job_id", logpkg.SanitizeID(job.ID.String())),
				zap.String("source", job.Source()),
			)
			return nil
		}
		return err
	}
}

// isPoolPressure reports pool rejections a later delivery may get past
func isPoolPressure(err error) bool {
	return errors.Is(err, ErrQueueFull) || errors.Is(err, ErrPoolStopped)
}

// ProcessJob processes a job based on its type using the processor registry
func (d *Dispatcher) ProcessJob(ctx context.Context, msg queue.MessageInterface) error {
	job := msg.GetJob()
	jobID := logpkg.SanitizeID(job.ID.String())

	if !job.ShouldProcess() {
		if job.IsExpired() {
			d.nack(msg, jobID, false)
			return fmt.Errorf("job %s expired", jobID)
		}
		d.logger.Debug("job_not_ready", zap.String("job_id", jobID))
		d.nack(msg, jobID, true)
		return nil
	}

	ent, ok := d.registry[job.Type]
	if !ok {
		d.nack(msg, jobID, false)
		return fmt.Errorf("unknown job type: %s", logpkg.SanitizeString(string(job.Type), 64))
	}

	ctx, span := otel.Tracer("github.com/benvon/toptag/internal/workers").Start(
		telemetry.ExtractMap(ctx, job.Trace),
		"job."+string(job.Type),
		trace.WithSpanKind(trace.SpanKindConsumer),
		trace.WithAttributes(
			attribute.String("job.id", jobID),
			attribute.String("job.source", job.Source()),
		),
	)
	defer span.End()

	if err := ent.proc(ctx, job); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "job failed")
		requeue := ent.requeue != nil && ent.requeue(err)
		d.logger.Warn("job_failed",
			zap.String("job_id", jobID),
			zap.String("job_type", string(job.Type)),
			zap.Bool("requeue", requeue),
			zap.String("error", logpkg.SanitizeError(err)),
		)
		d.nack(msg, jobID, requeue)
		return fmt.Errorf("%s job failed: %w", job.Type, err)
	}

	if err := msg.Ack(); err != nil {
		return fmt.Errorf("failed to ack %s job: %w", job.Type, err)
	}
	return nil
}

func (d *Dispatcher) nack(msg queue.MessageInterface, jobID string, requeue bool) {
	if err := msg.Nack(requeue); err != nil {
		d.logger.Warn("failed_to_nack_job",
			zap.String("job_id", jobID),
			zap.Bool("requeue", requeue),
			zap.String("error", logpkg.SanitizeError(err)),
		)
	}
}

// Run consumes messages from q until ctx is cancelled or the delivery channel closes
func (d *Dispatcher) Run(ctx context.Context, q queue.JobQueue, prefetch int) error {
	msgs, errs, err := q.Consume(ctx, prefetch)
	if err != nil {
		return fmt.Errorf("failed to start consuming: %w", err)
	}
	d.logger.Info("job_consumer_started", zap.Int("prefetch", prefetch))

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err, ok := <-errs:
			if ok && err != nil {
				return fmt.Errorf("consumer stopped: %w", err)
			}
			errs = nil
		case msg, ok := <-msgs:
			if !ok {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				return errors.New("message channel closed")
			}
			if err := d.ProcessJob(ctx, msg); err != nil {
				d.logger.Debug("job_processing_error", zap.String("error", logpkg.SanitizeError(err)))
			}
		}
	}
}
