// Package mockapi is an in-memory implementation of the storefront REST API.
// It serves the demo catalog and accounts, and backs the client's live mode
// in local development and integration tests.
package mockapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	apperrors "github.com/utafrali/storefront/pkg/errors"
	"github.com/utafrali/storefront/pkg/httputil"
	"github.com/utafrali/storefront/pkg/middleware"
)

// Options configures a Server.
type Options struct {
	Secret     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	// CORSOrigins restricts browser callers. Empty allows every origin.
	CORSOrigins []string
	// Now and NewCode default to the wall clock and random six digit codes.
	Now     func() time.Time
	NewCode func() string
}

// DefaultOptions returns the options cmd/mockapi starts with.
func DefaultOptions() Options {
	return Options{
		Secret:     "storefront-mockapi-secret",
		AccessTTL:  15 * time.Minute,
		RefreshTTL: 7 * 24 * time.Hour,
	}
}

// Server holds the handlers of the mock backend.
type Server struct {
	store  *Store
	tokens *TokenIssuer
	cors   middleware.CORSConfig
	logger *slog.Logger
}

// NewServer creates a server seeded with the demo data.
func NewServer(opts Options, logger *slog.Logger) *Server {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	cors := middleware.DefaultCORSConfig()
	cors.AllowedOrigins = opts.CORSOrigins
	return &Server{
		store:  NewStore(now, opts.NewCode),
		tokens: NewTokenIssuer(opts.Secret, opts.AccessTTL, opts.RefreshTTL, now),
		cors:   cors,
		logger: logger,
	}
}

// Store exposes the backing state, for seeding in tests.
func (s *Server) Store() *Store { return s.store }

// Tokens exposes the token issuer.
func (s *Server) Tokens() *TokenIssuer { return s.tokens }

// --- Helpers ---

// decode reads a JSON body into dst. On failure it writes a 400 and returns
// false.
func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1MB limit
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorBody{
			Detail: "JSON parse error - " + err.Error(),
			Code:   "parse_error",
		})
		return false
	}
	return true
}

// fail writes err with a detail body.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	httputil.WriteError(w, r, err, s.logger)
}

// reject writes business rule rejections as {"error": msg}, the shape the
// cart, order and favorite endpoints use. Field and server errors go
// through fail.
func (s *Server) reject(w http.ResponseWriter, r *http.Request, err error) {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) && len(appErr.Fields) == 0 && appErr.Status >= 400 && appErr.Status < 500 {
		httputil.WriteJSON(w, appErr.Status, map[string]string{"error": appErr.Message})
		return
	}
	s.fail(w, r, err)
}

// userID reads the authenticated user from the request context. It is zero
// for anonymous requests.
func userID(r *http.Request) int64 {
	id, _ := strconv.ParseInt(middleware.UserIDFromContext(r.Context()), 10, 64)
	return id
}
