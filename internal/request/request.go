package request

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"
)

type contextKey string

const requestIDContextKey contextKey = "request_id"

// RequestIDHeader carries the request id in requests and responses
const RequestIDHeader = "X-Request-ID"

// ClientIP extracts the client IP from the request, respecting X-Forwarded-For and X-Real-IP.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		parts := strings.Split(xff, ",")
		if len(parts) > 0 {
			return strings.TrimSpace(parts[0])
		}
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}
	return r.RemoteAddr
}

// EnsureID returns the request id sent by the client or a new one
func EnsureID(r *http.Request) string {
	if id := strings.TrimSpace(r.Header.Get(RequestIDHeader)); id != "" && len(id) <= 128 {
		return id
	}
	return uuid.NewString()
}

// WithID returns a context carrying the request id
func WithID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDContextKey, id)
}

// IDFromContext returns the request id, or "" if none was attached
func IDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDContextKey).(string)
	return id
}
