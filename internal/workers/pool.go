package workers

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/benvon/toptag/internal/metrics"
	"go.uber.org/zap"
)

const (
	// DefaultPoolSize is the number of background workers
	DefaultPoolSize = 3
	// DefaultQueueCapacity is the number of tasks that may wait for a worker
	DefaultQueueCapacity = 600
)

var (
	// ErrQueueFull is returned by Submit when every queue slot is taken
	ErrQueueFull = errors.New("worker pool queue is full")
	// ErrPoolStopped is returned by Submit after Stop
	ErrPoolStopped = errors.New("worker pool is stopped")
)

// Task is a unit of background work. Its context carries the submitter's values but
// is never cancelled by the submitter.
type Task func(ctx context.Context)

type poolTask struct {
	name string
	ctx  context.Context
	run  Task
}

// Pool is a fixed set of workers draining a bounded task queue
type Pool struct {
	size    int
	tasks   chan poolTask
	logger  *zap.Logger
	wg      sync.WaitGroup
	mu      sync.RWMutex // guards started, stopped and sends on tasks
	started bool
	stopped bool
}

// NewPool creates a pool; call Start before submitting work
func NewPool(size, capacity int, logger *zap.Logger) *Pool {
	if size <= 0 {
		size = DefaultPoolSize
	}
	if capacity < 0 {
		capacity = DefaultQueueCapacity
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pool{
		size:   size,
		tasks:  make(chan poolTask, capacity),
		logger: logger,
	}
}

// Start launches the workers. Calling Start more than once has no effect.
func (p *Pool) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started || p.stopped {
		return
	}
	p.started = true
	for i := 0; i < p.size; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
	p.logger.Info("worker_pool_started",
		zap.Int("workers", p.size),
		zap.Int("queue_capacity", cap(p.tasks)),
	)
}

// Submit queues task without blocking. It returns ErrQueueFull when the queue is at
// capacity and ErrPoolStopped once Stop has been called.
func (p *Pool) Submit(ctx context.Context, name string, task Task) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.stopped {
		metrics.WorkerPoolRejected.WithLabelValues("stopped").Inc()
		return ErrPoolStopped
	}

	select {
	case p.tasks <- poolTask{name: name, ctx: context.WithoutCancel(ctx), run: task}:
		metrics.WorkerPoolQueueDepth.Set(float64(len(p.tasks)))
		return nil
	default:
		metrics.WorkerPoolRejected.WithLabelValues("queue_full").Inc()
		p.logger.Warn("worker_pool_queue_full",
			zap.String("task", name),
			zap.Int("queue_capacity", cap(p.tasks)),
		)
		return ErrQueueFull
	}
}

// Stop rejects new tasks, lets workers finish queued ones and waits for them or ctx
func (p *Pool) Stop(ctx context.Context) error {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return nil
	}
	p.stopped = true
	close(p.tasks)
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.logger.Info("worker_pool_stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("worker pool did not drain: %w", ctx.Err())
	}
}

// QueueDepth returns the number of tasks waiting for a worker
func (p *Pool) QueueDepth() int {
	return len(p.tasks)
}

func (p *Pool) worker(id int) {
	defer p.wg.Done()
	for t := range p.tasks {
		metrics.WorkerPoolQueueDepth.Set(float64(len(p.tasks)))
		p.run(id, t)
	}
}

func (p *Pool) run(id int, t poolTask) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("worker_task_panicked",
				zap.Int("worker", id),
				zap.String("task", t.name),
				zap.Any("panic", r),
			)
		}
	}()
	p.logger.Debug("worker_task_started", zap.Int("worker", id), zap.String("task", t.name))
	t.run(t.ctx)
}
