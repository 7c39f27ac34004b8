package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/benvon/toptag/internal/queue"
	"github.com/gorilla/mux"
)

func TestRebuildHandler_TriggerRebuild(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		enqueueErr error
		wantStatus int
	}{
		{name: "accepted", wantStatus: http.StatusAccepted},
		{name: "queue unavailable", enqueueErr: errors.New("channel closed"), wantStatus: http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			q := &mockEnqueuer{
				enqueueFunc: func(ctx context.Context, job *queue.Job) error { return tt.enqueueErr },
			}
			r := mux.NewRouter()
			NewRebuildHandler(q, nil).RegisterRoutes(r.PathPrefix("/api/v1/affinity").Subrouter())

			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/affinity/rebuild", nil))

			if w.Code != tt.wantStatus {
				t.Fatalf("Expected status %d, got %d", tt.wantStatus, w.Code)
			}

			jobs := q.getJobs()
			if len(jobs) != 1 {
				t.Fatalf("Expected 1 enqueued job, got %d", len(jobs))
			}
			if jobs[0].Type != queue.JobTypeAffinityRebuild {
				t.Errorf("Expected job type %q, got %q", queue.JobTypeAffinityRebuild, jobs[0].Type)
			}
			if jobs[0].Source() != queue.SourceAPI {
				t.Errorf("Expected source %q, got %q", queue.SourceAPI, jobs[0].Source())
			}

			if tt.enqueueErr != nil {
				return
			}
			env := decodeEnvelope(t, w.Result())
			var resp RebuildResponse
			if err := json.Unmarshal(env.Data, &resp); err != nil {
				t.Fatalf("Failed to decode data: %v", err)
			}
			if resp.Message != "rebuild started" {
				t.Errorf("Expected message 'rebuild started', got %q", resp.Message)
			}
			if resp.JobID != jobs[0].ID.String() {
				t.Errorf("Expected job id %s, got %s", jobs[0].ID, resp.JobID)
			}
		})
	}
}

func TestRebuildHandler_MethodNotAllowed(t *testing.T) {
	t.Parallel()

	r := mux.NewRouter()
	NewRebuildHandler(&mockEnqueuer{}, nil).RegisterRoutes(r.PathPrefix("/api/v1/affinity").Subrouter())

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/affinity/rebuild", nil))
	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("Expected status 405, got %d", w.Code)
	}
}
