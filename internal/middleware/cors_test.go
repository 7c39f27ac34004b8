package middleware

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestParseOrigins(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input string
		want  string
	}{
		{input: "", want: "[http://localhost:3000]"},
		{input: "https://toptag.example.com/", want: "[http://localhost:3000 https://toptag.example.com]"},
		{input: " https://a.example, http://localhost:3000 ,https://a.example", want: "[http://localhost:3000 https://a.example]"},
	}
	for _, tt := range tests {
		if got := fmt.Sprint(ParseOrigins(tt.input)); got != tt.want {
			t.Errorf("ParseOrigins(%q) = %s, want %s", tt.input, got, tt.want)
		}
	}
}

func TestCORS(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		method     string
		origin     string
		wantAllow  string
		wantStatus int
		wantNext   bool
	}{
		{name: "allowed origin", method: "GET", origin: "https://toptag.example.com", wantAllow: "https://toptag.example.com", wantStatus: http.StatusOK, wantNext: true},
		{name: "disallowed origin", method: "GET", origin: "https://evil.example", wantStatus: http.StatusOK, wantNext: true},
		{name: "preflight allowed", method: "OPTIONS", origin: "https://toptag.example.com", wantAllow: "https://toptag.example.com", wantStatus: http.StatusNoContent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			called := false
			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				called = true
				w.WriteHeader(http.StatusOK)
			})

			req := httptest.NewRequest(tt.method, "/api/v1/recommendations", nil)
			req.Header.Set("Origin", tt.origin)
			if tt.method == "OPTIONS" {
				req.Header.Set("Access-Control-Request-Method", "POST")
			}
			w := httptest.NewRecorder()
			CORSFromEnv("https://toptag.example.com")(next).ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Errorf("Expected status %d, got %d", tt.wantStatus, w.Code)
			}
			if got := w.Header().Get("Access-Control-Allow-Origin"); got != tt.wantAllow {
				t.Errorf("Expected Allow-Origin %q, got %q", tt.wantAllow, got)
			}
			if called != tt.wantNext {
				t.Errorf("next called = %v, want %v", called, tt.wantNext)
			}
		})
	}
}
