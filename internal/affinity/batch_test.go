package affinity

import (
	"context"
	"errors"
	"testing"

	"github.com/benvon/toptag/internal/models"
	"github.com/shopspring/decimal"
)

func makeEntries(n int) []models.AffinityEntry {
	entries := make([]models.AffinityEntry, n)
	for i := range entries {
		entries[i] = models.AffinityEntry{TagA: 1, TagB: int64(i + 2), Score: decimal.NewFromInt(1)}
	}
	return entries
}

func TestBatchWriter_Flush(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		entries   int
		batchSize int
		wantCalls int
		wantSizes []int
	}{
		{name: "exact multiple", entries: 10000, batchSize: 500, wantCalls: 20},
		{name: "remainder", entries: 7, batchSize: 3, wantCalls: 3, wantSizes: []int{3, 3, 1}},
		{name: "smaller than batch", entries: 2, batchSize: 500, wantCalls: 1, wantSizes: []int{2}},
		{name: "empty", entries: 0, batchSize: 500, wantCalls: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			store := &mockStore{}
			calls, err := NewBatchWriter(store).Flush(context.Background(), makeEntries(tt.entries), tt.batchSize)
			if err != nil {
				t.Fatalf("Flush failed: %v", err)
			}
			if calls != tt.wantCalls || len(store.batches) != tt.wantCalls {
				t.Errorf("Expected %d calls, got %d (store saw %d)", tt.wantCalls, calls, len(store.batches))
			}
			if tt.wantSizes != nil {
				for i, size := range tt.wantSizes {
					if len(store.batches[i]) != size {
						t.Errorf("Batch %d: expected size %d, got %d", i, size, len(store.batches[i]))
					}
				}
			}
			if tt.name == "exact multiple" {
				for i, b := range store.batches {
					if len(b) != tt.batchSize {
						t.Errorf("Batch %d: expected size %d, got %d", i, tt.batchSize, len(b))
					}
				}
			}
		})
	}
}

func TestBatchWriter_Flush_PreservesOrder(t *testing.T) {
	t.Parallel()

	store := &mockStore{}
	entries := makeEntries(5)
	if _, err := NewBatchWriter(store).Flush(context.Background(), entries, 2); err != nil {
		t.Fatalf("Flush failed: %v", err)
	}
	var flat []models.AffinityEntry
	for _, b := range store.batches {
		flat = append(flat, b...)
	}
	for i := range entries {
		if flat[i].TagB != entries[i].TagB {
			t.Errorf("Position %d: expected TagB %d, got %d", i, entries[i].TagB, flat[i].TagB)
		}
	}
}

func TestBatchWriter_Flush_StopsOnFailure(t *testing.T) {
	t.Parallel()

	store := &mockStore{failOnBatch: 2}
	calls, err := NewBatchWriter(store).Flush(context.Background(), makeEntries(10), 3)
	if err == nil {
		t.Fatal("Expected error")
	}
	if calls != 1 || len(store.batches) != 1 {
		t.Errorf("Expected one successful call before failure, got calls=%d stored=%d", calls, len(store.batches))
	}
}

func TestBatchWriter_Flush_InvalidBatchSize(t *testing.T) {
	t.Parallel()

	for _, size := range []int{0, -1} {
		_, err := NewBatchWriter(&mockStore{}).Flush(context.Background(), makeEntries(3), size)
		if !errors.Is(err, ErrInvalidBatchSize) {
			t.Errorf("batchSize=%d: expected ErrInvalidBatchSize, got %v", size, err)
		}
	}
}
