package middleware

import (
	"fmt"
	"net/http"
)

// CacheControl marks successful GET responses as cacheable for maxAge
// seconds. Requests carrying credentials are marked private so shared caches
// never store a personalised catalog page.
func CacheControl(maxAge int) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodGet {
				scope := "public"
				if r.Header.Get("Authorization") != "" {
					scope = "private"
				}
				w.Header().Set("Cache-Control", fmt.Sprintf("%s, max-age=%d", scope, maxAge))
			}
			next.ServeHTTP(w, r)
		})
	}
}
