package middleware

import (
	"net/http"
	"slices"
	"strconv"
	"strings"
)

var (
	corsMethods = []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete}
	corsHeaders = []string{"Accept", "Authorization", "Content-Type", CorrelationHeader, "traceparent"}
)

// CORSConfig holds configuration for the CORS middleware.
type CORSConfig struct {
	// AllowedOrigins lists the web front ends allowed to call the API.
	// An empty list, or one containing "*", allows every origin.
	AllowedOrigins []string

	// MaxAge is how long, in seconds, browsers may cache a preflight answer.
	// Defaults to 3600.
	MaxAge int

	// AllowCredentials lets browsers send cookies. It is ignored for
	// wildcard origins, which browsers refuse to combine with credentials.
	AllowCredentials bool
}

// DefaultCORSConfig allows any origin, which suits the mock API where the
// customer and admin front ends run on their own dev servers.
func DefaultCORSConfig() CORSConfig {
	return CORSConfig{MaxAge: 3600}
}

// CORS returns middleware that answers preflight requests and stamps the
// Access-Control headers onto cross-origin responses.
func CORS(cfg CORSConfig) func(http.Handler) http.Handler {
	if cfg.MaxAge == 0 {
		cfg.MaxAge = 3600
	}
	wildcard := len(cfg.AllowedOrigins) == 0 || slices.Contains(cfg.AllowedOrigins, "*")
	credentials := cfg.AllowCredentials && !wildcard

	methods := strings.Join(corsMethods, ", ")
	headers := strings.Join(corsHeaders, ", ")
	maxAge := strconv.Itoa(cfg.MaxAge)

	allowed := func(origin string) string {
		switch {
		case origin == "":
			return ""
		case wildcard:
			return "*"
		case slices.Contains(cfg.AllowedOrigins, origin):
			return origin
		}
		return ""
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			h.Add("Vary", "Origin")

			origin := allowed(r.Header.Get("Origin"))
			if origin == "" {
				next.ServeHTTP(w, r)
				return
			}
			h.Set("Access-Control-Allow-Origin", origin)
			if credentials {
				h.Set("Access-Control-Allow-Credentials", "true")
			}

			preflight := r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != ""
			if !preflight {
				h.Set("Access-Control-Expose-Headers", CorrelationHeader)
				next.ServeHTTP(w, r)
				return
			}

			h.Set("Access-Control-Allow-Methods", methods)
			h.Set("Access-Control-Allow-Headers", headers)
			h.Set("Access-Control-Max-Age", maxAge)
			w.WriteHeader(http.StatusNoContent)
		})
	}
}
