package recommend

import (
	"context"
	"sync"

	"github.com/benvon/toptag/internal/models"
)

// mockTagResolver is a mock TagResolver with call tracking
type mockTagResolver struct {
	resolveFunc func(ctx context.Context, titles []string) ([]models.Tag, error)

	mu    sync.Mutex
	calls [][]string
}

func (m *mockTagResolver) ResolveByTitle(ctx context.Context, titles []string) ([]models.Tag, error) {
	m.mu.Lock()
	m.calls = append(m.calls, titles)
	m.mu.Unlock()
	if m.resolveFunc != nil {
		return m.resolveFunc(ctx, titles)
	}
	return nil, nil
}

// mockAffinityReader is a mock AffinityReader with call tracking
type mockAffinityReader struct {
	queryFunc func(ctx context.Context, ids []int64, limit int, symmetric bool) ([]models.AffinityCandidate, error)

	mu            sync.Mutex
	calls         int
	lastIDs       []int64
	lastLimit     int
	lastSymmetric bool
}

func (m *mockAffinityReader) QueryBySource(ctx context.Context, ids []int64, limit int, symmetric bool) ([]models.AffinityCandidate, error) {
	m.mu.Lock()
	m.calls++
	m.lastIDs = ids
	m.lastLimit = limit
	m.lastSymmetric = symmetric
	m.mu.Unlock()
	if m.queryFunc != nil {
		return m.queryFunc(ctx, ids, limit, symmetric)
	}
	return nil, nil
}

// mockCatalog is a mock CategoryCatalog keyed by term
type mockCatalog struct {
	rows map[string][]models.CategoryTagRow
	errs map[string]error

	mu    sync.Mutex
	terms []string
}

func (m *mockCatalog) FindRelevant(ctx context.Context, term string) ([]models.CategoryTagRow, error) {
	m.mu.Lock()
	m.terms = append(m.terms, term)
	m.mu.Unlock()
	if err := m.errs[term]; err != nil {
		return nil, err
	}
	return m.rows[term], nil
}

// stubStrategy returns a fixed result
type stubStrategy struct {
	kind   Kind
	result []models.Recommendation
	err    error
	seeds  []string
}

func (s *stubStrategy) Name() Kind { return s.kind }

func (s *stubStrategy) Recommend(ctx context.Context, seeds []string) ([]models.Recommendation, error) {
	s.seeds = seeds
	return s.result, s.err
}
