package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/benvon/toptag/internal/metrics"
	"github.com/gorilla/mux"
)

// Metrics records request counts and latency labelled by the matched route template.
// It must be installed with Router.Use so the matched route is known.
func Metrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(wrapped, r)

		route := routeTemplate(r)
		metrics.HTTPRequestsTotal.WithLabelValues(route, r.Method, strconv.Itoa(wrapped.statusCode)).Inc()
		metrics.HTTPRequestDuration.WithLabelValues(route, r.Method).Observe(time.Since(start).Seconds())
	})
}

// routeTemplate keeps label cardinality bounded by never using the raw path
func routeTemplate(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if tpl, err := route.GetPathTemplate(); err == nil {
			return tpl
		}
	}
	return "unmatched"
}
