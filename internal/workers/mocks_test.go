package workers

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/benvon/toptag/internal/queue"
)

// mockRebuilder is a mock Rebuilder with call tracking
type mockRebuilder struct {
	rebuildFunc func(ctx context.Context) error
	running     atomic.Bool

	mu    sync.Mutex
	calls int
	done  chan struct{}
}

func newMockRebuilder() *mockRebuilder {
	return &mockRebuilder{done: make(chan struct{}, 10)}
}

func (m *mockRebuilder) Rebuild(ctx context.Context) error {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	defer func() { m.done <- struct{}{} }()
	if m.rebuildFunc != nil {
		return m.rebuildFunc(ctx)
	}
	return nil
}

func (m *mockRebuilder) Running() bool {
	return m.running.Load()
}

func (m *mockRebuilder) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// mockSubmitter runs tasks inline or rejects them
type mockSubmitter struct {
	err error

	mu    sync.Mutex
	names []string
}

func (m *mockSubmitter) Submit(ctx context.Context, name string, task Task) error {
	m.mu.Lock()
	m.names = append(m.names, name)
	m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	task(context.WithoutCancel(ctx))
	return nil
}

// mockMessage is a mock queue message recording acks and nacks
type mockMessage struct {
	job *queue.Job

	mu       sync.Mutex
	acked    bool
	nacked   bool
	requeued bool
}

func (m *mockMessage) Ack() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.acked = true
	return nil
}

func (m *mockMessage) Nack(requeue bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nacked = true
	m.requeued = requeue
	return nil
}

func (m *mockMessage) GetJob() *queue.Job {
	return m.job
}
