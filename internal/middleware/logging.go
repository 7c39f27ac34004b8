package middleware

import (
	"net/http"
	"time"

	logpkg "github.com/benvon/toptag/internal/logger"
	"github.com/benvon/toptag/internal/request"
	"go.uber.org/zap"
)

// RequestID attaches a request id to the context and echoes it in the response
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := request.EnsureID(r)
		w.Header().Set(request.RequestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(request.WithID(r.Context(), id)))
	})
}

// Logging creates logging middleware
func Logging(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
			next.ServeHTTP(wrapped, r)

			fields := []zap.Field{
				zap.String("method", r.Method),
				zap.String("path", logpkg.SanitizePath(r.URL.Path)),
				zap.Int("status_code", wrapped.statusCode),
				zap.Int64("duration_ms", time.Since(start).Milliseconds()),
				zap.String("client_ip", logpkg.SanitizeString(request.ClientIP(r), logpkg.MaxIDLength)),
			}
			if id := request.IDFromContext(r.Context()); id != "" {
				fields = append(fields, zap.String("request_id", logpkg.SanitizeID(id)))
			}
			if wrapped.statusCode >= http.StatusInternalServerError {
				logger.Warn("http_request", fields...)
				return
			}
			logger.Info("http_request", fields...)
		})
	}
}

type responseWriter struct {
	http.ResponseWriter
	statusCode  int
	wroteHeader bool
}

func (rw *responseWriter) WriteHeader(code int) {
	if !rw.wroteHeader {
		rw.statusCode = code
		rw.wroteHeader = true
	}
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	rw.wroteHeader = true
	return rw.ResponseWriter.Write(b)
}
