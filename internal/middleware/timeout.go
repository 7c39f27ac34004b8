package middleware

import (
	"net/http"
	"time"
)

const (
	// DefaultRequestTimeout is the default request timeout
	DefaultRequestTimeout = 30 * time.Second

	timeoutBody = `{"success":false,"error":"Service Unavailable","message":"Request timed out"}`
)

// Timeout bounds handler run time. The handler context is cancelled when the limit passes,
// which cancels in-flight repository queries.
func Timeout(timeout time.Duration) func(http.Handler) http.Handler {
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}

	return func(next http.Handler) http.Handler {
		return http.TimeoutHandler(next, timeout, timeoutBody)
	}
}
