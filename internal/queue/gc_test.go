package queue

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// mockDLQPurger returns a fixed result and records the retention of every call
type mockDLQPurger struct {
	purged int
	err    error

	mu         sync.Mutex
	retentions []time.Duration
}

func (m *mockDLQPurger) PurgeOlderThan(ctx context.Context, retention time.Duration) (int, error) {
	m.mu.Lock()
	m.retentions = append(m.retentions, retention)
	m.mu.Unlock()
	return m.purged, m.err
}

func (m *mockDLQPurger) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.retentions)
}

func TestGarbageCollector_Collect(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		purger     *mockDLQPurger
		wantErr    bool
		wantPurged int64
		wantLogged bool
	}{
		{name: "nil purger is a no-op"},
		{name: "purged messages are logged", purger: &mockDLQPurger{purged: 3}, wantPurged: 3, wantLogged: true},
		{name: "empty purge stays quiet", purger: &mockDLQPurger{}},
		{name: "purge failure is returned", purger: &mockDLQPurger{err: errors.New("channel closed")}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			core, logs := observer.New(zapcore.InfoLevel)
			var purger DLQPurger
			if tt.purger != nil {
				purger = tt.purger
			}
			gc := NewGarbageCollector(purger, time.Minute, 48*time.Hour, zap.New(core))

			err := gc.collect(context.Background())
			if (err != nil) != tt.wantErr {
				t.Fatalf("collect() error = %v, wantErr %v", err, tt.wantErr)
			}

			if tt.purger != nil {
				if tt.purger.callCount() != 1 || tt.purger.retentions[0] != 48*time.Hour {
					t.Errorf("Expected one purge with 48h retention, got %v", tt.purger.retentions)
				}
			}

			entries := logs.FilterMessage("dlq_gc_purged").All()
			if !tt.wantLogged {
				if len(entries) != 0 {
					t.Errorf("Expected no dlq_gc_purged log, got %d", len(entries))
				}
				return
			}
			if len(entries) != 1 {
				t.Fatalf("Expected one dlq_gc_purged log, got %d", len(entries))
			}
			fields := entries[0].ContextMap()
			if fields["purged"] != tt.wantPurged {
				t.Errorf("purged field = %v, want %d", fields["purged"], tt.wantPurged)
			}
			if fields["retention"] != 48*time.Hour {
				t.Errorf("retention field = %v, want 48h", fields["retention"])
			}
		})
	}
}

func TestGarbageCollector_Start_LogsFailuresAndStops(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.WarnLevel)
	purger := &mockDLQPurger{err: errors.New("channel closed")}
	gc := NewGarbageCollector(purger, 5*time.Millisecond, time.Hour, zap.New(core))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- gc.Start(ctx) }()

	deadline := time.Now().Add(2 * time.Second)
	for logs.FilterMessage("dlq_gc_failed").Len() == 0 {
		if time.Now().After(deadline) {
			cancel()
			t.Fatal("Expected a dlq_gc_failed warning")
		}
		time.Sleep(2 * time.Millisecond)
	}

	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Start() error = %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Start() did not return after cancel")
	}
}
