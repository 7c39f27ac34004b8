package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/benvon/toptag/internal/models"
	gobreaker "github.com/sony/gobreaker/v2"
)

type failingIndex struct {
	err   error
	calls int
}

func (f *failingIndex) AllTagPostSets(ctx context.Context) (map[int64][]int64, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return map[int64][]int64{1: {1}}, nil
}

type staticCatalog struct {
	err   error
	calls int
}

func (s *staticCatalog) FindRelevant(ctx context.Context, term string) ([]models.CategoryTagRow, error) {
	s.calls++
	return []models.CategoryTagRow{{Category: term, Tag: "x"}}, s.err
}

func testConfig(name string) BreakerConfig {
	return BreakerConfig{Name: name, MaxRequests: 1, Timeout: time.Hour, FailureThreshold: 2}
}

func TestTagPostIndex_TripsAfterConsecutiveFailures(t *testing.T) {
	t.Parallel()

	next := &failingIndex{err: errors.New("db down")}
	idx := NewTagPostIndex(next, testConfig("test_index_trip"), nil)

	for i := 0; i < 2; i++ {
		if _, err := idx.AllTagPostSets(context.Background()); err == nil {
			t.Fatalf("Call %d: expected error", i)
		}
	}
	if idx.State() != gobreaker.StateOpen.String() {
		t.Fatalf("Expected open breaker, got %s", idx.State())
	}

	_, err := idx.AllTagPostSets(context.Background())
	if !errors.Is(err, gobreaker.ErrOpenState) {
		t.Errorf("Expected ErrOpenState, got %v", err)
	}
	if next.calls != 2 {
		t.Errorf("Open breaker must not call through, got %d calls", next.calls)
	}
}

func TestTagPostIndex_PassesThrough(t *testing.T) {
	t.Parallel()

	idx := NewTagPostIndex(&failingIndex{}, testConfig("test_index_ok"), nil)
	got, err := idx.AllTagPostSets(context.Background())
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(got) != 1 {
		t.Errorf("Expected 1 tag, got %d", len(got))
	}
	if idx.State() != gobreaker.StateClosed.String() {
		t.Errorf("Expected closed breaker, got %s", idx.State())
	}
}

func TestCategoryCatalog_CancellationDoesNotTrip(t *testing.T) {
	t.Parallel()

	next := &staticCatalog{err: context.Canceled}
	cat := NewCategoryCatalog(next, testConfig("test_catalog_cancel"), nil)
	for i := 0; i < 5; i++ {
		_, _ = cat.FindRelevant(context.Background(), "food")
	}
	if cat.State() != gobreaker.StateClosed.String() {
		t.Errorf("Cancellation must not trip the breaker, got %s", cat.State())
	}
	if next.calls != 5 {
		t.Errorf("Expected 5 calls through, got %d", next.calls)
	}
}

func TestStateValue(t *testing.T) {
	t.Parallel()

	if stateValue(gobreaker.StateClosed) != 0 || stateValue(gobreaker.StateHalfOpen) != 1 || stateValue(gobreaker.StateOpen) != 2 {
		t.Error("Unexpected gauge values for breaker states")
	}
}
