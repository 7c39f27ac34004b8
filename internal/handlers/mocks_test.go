package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"testing"

	"github.com/benvon/toptag/internal/database"
	"github.com/benvon/toptag/internal/models"
	"github.com/benvon/toptag/internal/queue"
	"github.com/benvon/toptag/internal/recommend"
)

type recommendCall struct {
	seeds []string
	kind  recommend.Kind
}

type mockRecommender struct {
	mu            sync.Mutex
	recommendFunc func(ctx context.Context, seeds []string, kind recommend.Kind) ([]models.Recommendation, error)
	calls         []recommendCall
}

func (m *mockRecommender) Recommend(ctx context.Context, seeds []string, kind recommend.Kind) ([]models.Recommendation, error) {
	m.mu.Lock()
	m.calls = append(m.calls, recommendCall{seeds: seeds, kind: kind})
	m.mu.Unlock()
	if m.recommendFunc != nil {
		return m.recommendFunc(ctx, seeds, kind)
	}
	return []models.Recommendation{}, nil
}

func (m *mockRecommender) getCalls() []recommendCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]recommendCall(nil), m.calls...)
}

type mockEnqueuer struct {
	mu          sync.Mutex
	enqueueFunc func(ctx context.Context, job *queue.Job) error
	jobs        []*queue.Job
}

func (m *mockEnqueuer) Enqueue(ctx context.Context, job *queue.Job) error {
	m.mu.Lock()
	m.jobs = append(m.jobs, job)
	m.mu.Unlock()
	if m.enqueueFunc != nil {
		return m.enqueueFunc(ctx, job)
	}
	return nil
}

func (m *mockEnqueuer) getJobs() []*queue.Job {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*queue.Job(nil), m.jobs...)
}

type mockTagLookup struct {
	resolveFunc func(ctx context.Context, titles []string) ([]models.Tag, error)
	findFunc    func(ctx context.Context, title string) (models.Tag, bool, error)
	historyFunc func(ctx context.Context, tagID int64, limit int) ([]models.TagCount, error)

	mu            sync.Mutex
	historyLimits []int
}

func (m *mockTagLookup) FindByTitle(ctx context.Context, title string) (models.Tag, bool, error) {
	if m.findFunc != nil {
		return m.findFunc(ctx, title)
	}
	return models.Tag{}, false, nil
}

func (m *mockTagLookup) CountHistory(ctx context.Context, tagID int64, limit int) ([]models.TagCount, error) {
	m.mu.Lock()
	m.historyLimits = append(m.historyLimits, limit)
	m.mu.Unlock()
	if m.historyFunc != nil {
		return m.historyFunc(ctx, tagID, limit)
	}
	return nil, nil
}

func (m *mockTagLookup) getHistoryLimits() []int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]int(nil), m.historyLimits...)
}

func (m *mockTagLookup) ResolveByTitle(ctx context.Context, titles []string) ([]models.Tag, error) {
	if m.resolveFunc != nil {
		return m.resolveFunc(ctx, titles)
	}
	return nil, nil
}

type mockCategoryStore struct {
	mu           sync.Mutex
	listTagsFunc func(ctx context.Context, title string) ([]models.CategoryTagRow, error)
	saveFunc     func(ctx context.Context, items []models.CategorizedTag) (database.SaveCategoriesResult, error)
	clearFunc    func(ctx context.Context) error
	saved        [][]models.CategorizedTag
	clearCalls   int
}

func (m *mockCategoryStore) ListTags(ctx context.Context, title string) ([]models.CategoryTagRow, error) {
	if m.listTagsFunc != nil {
		return m.listTagsFunc(ctx, title)
	}
	return nil, nil
}

func (m *mockCategoryStore) Save(ctx context.Context, items []models.CategorizedTag) (database.SaveCategoriesResult, error) {
	m.mu.Lock()
	m.saved = append(m.saved, items)
	m.mu.Unlock()
	if m.saveFunc != nil {
		return m.saveFunc(ctx, items)
	}
	return database.SaveCategoriesResult{Saved: len(items), SkippedTags: []string{}}, nil
}

func (m *mockCategoryStore) Clear(ctx context.Context) error {
	m.mu.Lock()
	m.clearCalls++
	m.mu.Unlock()
	if m.clearFunc != nil {
		return m.clearFunc(ctx)
	}
	return nil
}

type mockRebuildStatus struct {
	held bool
	err  error
}

func (m mockRebuildStatus) Held(context.Context) (bool, error) {
	return m.held, m.err
}

// envelope mirrors the JSON wrapper written by respondJSON and respondJSONError
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
	Message string          `json:"message"`
}

func decodeEnvelope(t *testing.T, resp *http.Response) envelope {
	t.Helper()
	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	return env
}

var (
	_ Recommender    = (*mockRecommender)(nil)
	_ queue.Enqueuer = (*mockEnqueuer)(nil)
	_ TagLookup      = (*mockTagLookup)(nil)
	_ CategoryStore  = (*mockCategoryStore)(nil)
)
