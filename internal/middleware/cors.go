package middleware

import (
	"net/http"
	"slices"
	"strings"

	"github.com/rs/cors"
)

// DefaultFrontendOrigin is always allowed so the local research UI works out of the box
const DefaultFrontendOrigin = "http://localhost:3000"

// CORS creates CORS middleware for the given origins, answering preflight requests itself
func CORS(allowedOrigins []string) func(http.Handler) http.Handler {
	c := cors.New(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID", "X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset"},
		MaxAge:         86400,
	})
	return c.Handler
}

// ParseOrigins splits FRONTEND_URL (comma separated) and always includes DefaultFrontendOrigin
func ParseOrigins(frontendURL string) []string {
	origins := []string{DefaultFrontendOrigin}
	for _, origin := range strings.Split(frontendURL, ",") {
		trimmed := strings.TrimRight(strings.TrimSpace(origin), "/")
		if trimmed != "" && !slices.Contains(origins, trimmed) {
			origins = append(origins, trimmed)
		}
	}
	return origins
}

// CORSFromEnv creates CORS middleware from the FRONTEND_URL value
func CORSFromEnv(frontendURL string) func(http.Handler) http.Handler {
	return CORS(ParseOrigins(frontendURL))
}
