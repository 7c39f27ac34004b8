package middleware

import (
	"net/http"
)

const (
	// DefaultMaxRequestSize is the default maximum request body size (1MB).
	// Category imports are the largest bodies the API accepts.
	DefaultMaxRequestSize int64 = 1 << 20
)

// MaxRequestSize limits the size of request bodies
func MaxRequestSize(maxBytes int64) func(http.Handler) http.Handler {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxRequestSize
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.ContentLength > maxBytes {
				respondErrorJSON(w, r, http.StatusRequestEntityTooLarge, "Request Entity Too Large", "Request body too large", nil)
				return
			}

			// Handlers see *http.MaxBytesError when a chunked body exceeds the limit.
			r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			next.ServeHTTP(w, r)
		})
	}
}
