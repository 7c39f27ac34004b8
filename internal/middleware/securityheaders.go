package middleware

import (
	"net/http"
)

var apiSecurityHeaders = map[string]string{
	"X-Content-Type-Options":  "nosniff",
	"X-Frame-Options":         "DENY",
	"Referrer-Policy":         "strict-origin-when-cross-origin",
	"Permissions-Policy":      "camera=(), microphone=(), geolocation=()",
	"Content-Security-Policy": "default-src 'none'",
	"Cache-Control":           "no-store",
}

// SecurityHeaders sets security headers on all API responses.
// HSTS is only sent over TLS and when enabled, so local development over plain HTTP is unaffected.
func SecurityHeaders(enableHSTS bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			for k, v := range apiSecurityHeaders {
				w.Header().Set(k, v)
			}
			if enableHSTS && r.TLS != nil {
				w.Header().Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
			}

			next.ServeHTTP(w, r)
		})
	}
}
