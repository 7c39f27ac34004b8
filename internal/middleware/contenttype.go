package middleware

import (
	"net/http"
	"strings"
)

// ContentType requires application/json on requests that carry a body.
// Bodyless POSTs such as a rebuild trigger pass without a Content-Type.
func ContentType(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hasBodyMethod(r.Method) && r.ContentLength != 0 {
			contentType := r.Header.Get("Content-Type")
			if contentType == "" {
				respondErrorJSON(w, r, http.StatusBadRequest, "Bad Request", "Content-Type header is required", nil)
				return
			}
			if !strings.HasPrefix(strings.ToLower(contentType), "application/json") {
				respondErrorJSON(w, r, http.StatusUnsupportedMediaType, "Unsupported Media Type", "Content-Type must be application/json", nil)
				return
			}
		}

		next.ServeHTTP(w, r)
	})
}

func hasBodyMethod(method string) bool {
	return method == http.MethodPost || method == http.MethodPut || method == http.MethodPatch
}
