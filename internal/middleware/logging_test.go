package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/benvon/toptag/internal/request"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestLogging(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name          string
		method        string
		path          string
		handlerStatus int
		write         bool
		wantLevel     zapcore.Level
	}{
		{name: "GET request", method: "GET", path: "/api/v1/recommendations", handlerStatus: http.StatusOK, wantLevel: zapcore.InfoLevel},
		{name: "accepted rebuild", method: "POST", path: "/api/v1/affinity/rebuild", handlerStatus: http.StatusAccepted, wantLevel: zapcore.InfoLevel},
		{name: "implicit 200 on write", method: "GET", path: "/healthz", handlerStatus: 0, write: true, wantLevel: zapcore.InfoLevel},
		{name: "server error", method: "GET", path: "/api/v1/tags/a", handlerStatus: http.StatusInternalServerError, wantLevel: zapcore.WarnLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			core, logs := observer.New(zapcore.DebugLevel)
			handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if tt.handlerStatus != 0 {
					w.WriteHeader(tt.handlerStatus)
				}
				if tt.write {
					_, _ = w.Write([]byte("ok"))
				}
			})

			w := httptest.NewRecorder()
			RequestID(Logging(zap.New(core))(handler)).ServeHTTP(w, httptest.NewRequest(tt.method, tt.path, nil))

			entries := logs.FilterMessage("http_request").All()
			if len(entries) != 1 {
				t.Fatalf("Expected 1 http_request entry, got %d", len(entries))
			}
			entry := entries[0]
			if entry.Level != tt.wantLevel {
				t.Errorf("Expected level %s, got %s", tt.wantLevel, entry.Level)
			}
			fields := entry.ContextMap()
			wantStatus := tt.handlerStatus
			if wantStatus == 0 {
				wantStatus = http.StatusOK
			}
			if got, _ := fields["status_code"].(int64); got != int64(wantStatus) {
				t.Errorf("Expected status_code %d, got %v", wantStatus, fields["status_code"])
			}
			if fields["path"] != tt.path {
				t.Errorf("Expected path %q, got %v", tt.path, fields["path"])
			}
			if fields["request_id"] != w.Header().Get(request.RequestIDHeader) {
				t.Errorf("Expected request_id to match response header, got %v", fields["request_id"])
			}
		})
	}
}

func TestRequestID(t *testing.T) {
	t.Parallel()

	var seen string
	handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = request.IDFromContext(r.Context())
	}))

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set(request.RequestIDHeader, "trace-42")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if seen != "trace-42" {
		t.Errorf("Expected context id trace-42, got %q", seen)
	}
	if got := w.Header().Get(request.RequestIDHeader); got != "trace-42" {
		t.Errorf("Expected response header trace-42, got %q", got)
	}
}

func TestResponseWriter_FirstStatusWins(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	rw := &responseWriter{ResponseWriter: rec, statusCode: http.StatusOK}
	rw.WriteHeader(http.StatusCreated)
	rw.WriteHeader(http.StatusInternalServerError)

	if rw.statusCode != http.StatusCreated {
		t.Errorf("Expected status 201, got %d", rw.statusCode)
	}
}
