package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/benvon/toptag/internal/models"
	"github.com/gorilla/mux"
)

func TestTagHandler_GetTags(t *testing.T) {
	t.Parallel()

	count := int64(1200)
	tests := []struct {
		name       string
		path       string
		resolveErr error
		wantStatus int
		wantTitles string
		wantLen    int
	}{
		{name: "known and unknown titles", path: "/api/v1/tags/Sunset,%23beach,unknown", wantStatus: http.StatusOK, wantTitles: "[sunset beach unknown]", wantLen: 2},
		{name: "only separators", path: "/api/v1/tags/,,", wantStatus: http.StatusBadRequest},
		{name: "duplicate titles collapse", path: "/api/v1/tags/" + strings.TrimSuffix(strings.Repeat("T,", 150), ","), wantStatus: http.StatusOK, wantTitles: "[t]", wantLen: 2},
		{name: "repository failure", path: "/api/v1/tags/sunset", resolveErr: errors.New("db down"), wantStatus: http.StatusInternalServerError, wantTitles: "[sunset]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var gotTitles []string
			lookup := &mockTagLookup{
				resolveFunc: func(ctx context.Context, titles []string) ([]models.Tag, error) {
					gotTitles = titles
					if tt.resolveErr != nil {
						return nil, tt.resolveErr
					}
					return []models.Tag{{ID: 1, Title: "sunset", LatestCount: &count}, {ID: 2, Title: "beach"}}, nil
				},
			}
			r := mux.NewRouter()
			NewTagHandler(lookup, nil).RegisterRoutes(r.PathPrefix("/api/v1/tags").Subrouter())

			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, tt.path, nil))

			if w.Code != tt.wantStatus {
				t.Fatalf("Expected status %d, got %d: %s", tt.wantStatus, w.Code, w.Body.String())
			}
			if tt.wantTitles != "" && fmt.Sprint(gotTitles) != tt.wantTitles {
				t.Errorf("Expected lookup titles %s, got %v", tt.wantTitles, gotTitles)
			}
			if tt.wantStatus != http.StatusOK {
				return
			}
			env := decodeEnvelope(t, w.Result())
			var tags []models.Tag
			if err := json.Unmarshal(env.Data, &tags); err != nil {
				t.Fatalf("Failed to decode data: %v", err)
			}
			if len(tags) != tt.wantLen {
				t.Errorf("Expected %d tags, got %d", tt.wantLen, len(tags))
			}
		})
	}
}

func TestTagHandler_EmptyResultIsArray(t *testing.T) {
	t.Parallel()

	r := mux.NewRouter()
	NewTagHandler(&mockTagLookup{}, nil).RegisterRoutes(r.PathPrefix("/api/v1/tags").Subrouter())

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/tags/nothing", nil))

	env := decodeEnvelope(t, w.Result())
	if string(env.Data) != "[]" {
		t.Errorf("Expected empty array, got %s", env.Data)
	}
}

func TestTagHandler_GetTagHistory(t *testing.T) {
	t.Parallel()

	day := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		name       string
		path       string
		found      bool
		findErr    error
		historyErr error
		wantStatus int
		wantLimit  int
		wantLen    int
	}{
		{name: "default limit", path: "/api/v1/tags/%23Sunset/history", found: true, wantStatus: http.StatusOK, wantLimit: 30, wantLen: 2},
		{name: "explicit limit", path: "/api/v1/tags/sunset/history?limit=7", found: true, wantStatus: http.StatusOK, wantLimit: 7, wantLen: 2},
		{name: "limit out of range", path: "/api/v1/tags/sunset/history?limit=0", found: true, wantStatus: http.StatusBadRequest},
		{name: "limit not a number", path: "/api/v1/tags/sunset/history?limit=all", found: true, wantStatus: http.StatusBadRequest},
		{name: "unknown tag", path: "/api/v1/tags/nothing/history", wantStatus: http.StatusNotFound},
		{name: "invalid title", path: "/api/v1/tags/two%20words/history", wantStatus: http.StatusBadRequest},
		{name: "lookup failure", path: "/api/v1/tags/sunset/history", findErr: errors.New("db down"), wantStatus: http.StatusInternalServerError},
		{name: "history failure", path: "/api/v1/tags/sunset/history", found: true, historyErr: errors.New("db down"), wantStatus: http.StatusInternalServerError, wantLimit: 30},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			lookup := &mockTagLookup{
				findFunc: func(ctx context.Context, title string) (models.Tag, bool, error) {
					if title != "sunset" && title != "nothing" {
						t.Errorf("Expected normalized title, got %q", title)
					}
					return models.Tag{ID: 9, Title: title}, tt.found, tt.findErr
				},
				historyFunc: func(ctx context.Context, tagID int64, limit int) ([]models.TagCount, error) {
					if tt.historyErr != nil {
						return nil, tt.historyErr
					}
					return []models.TagCount{
						{TagID: tagID, Count: 1300, CountDate: day.AddDate(0, 0, 1)},
						{TagID: tagID, Count: 1200, CountDate: day},
					}, nil
				},
			}
			r := mux.NewRouter()
			NewTagHandler(lookup, nil).RegisterRoutes(r.PathPrefix("/api/v1/tags").Subrouter())

			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, tt.path, nil))

			if w.Code != tt.wantStatus {
				t.Fatalf("Expected status %d, got %d: %s", tt.wantStatus, w.Code, w.Body.String())
			}
			limits := lookup.getHistoryLimits()
			if tt.wantLimit == 0 {
				if len(limits) != 0 {
					t.Errorf("Expected no history query, got limits %v", limits)
				}
				return
			}
			if len(limits) != 1 || limits[0] != tt.wantLimit {
				t.Errorf("Expected history limit %d, got %v", tt.wantLimit, limits)
			}
			if tt.wantStatus != http.StatusOK {
				return
			}

			env := decodeEnvelope(t, w.Result())
			var resp TagHistoryResponse
			if err := json.Unmarshal(env.Data, &resp); err != nil {
				t.Fatalf("Failed to decode history: %v", err)
			}
			if resp.Tag.ID != 9 || len(resp.History) != tt.wantLen {
				t.Errorf("Unexpected history response: %+v", resp)
			}
			if resp.History[0].Count != 1300 {
				t.Errorf("Expected newest entry first, got %+v", resp.History[0])
			}
		})
	}
}
