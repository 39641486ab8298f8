// Package api is the HTTP client of the storefront REST API.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"github.com/utafrali/storefront/internal/domain"
	apperrors "github.com/utafrali/storefront/pkg/errors"
	"github.com/utafrali/storefront/pkg/httpclient"
	"github.com/utafrali/storefront/pkg/logger"
	"github.com/utafrali/storefront/pkg/middleware"
)

// refreshSkew is how close to expiry an access token is refreshed ahead of
// the request.
const refreshSkew = 30 * time.Second

// TokenSource supplies and receives the session's tokens. The client never
// persists tokens itself.
type TokenSource interface {
	Tokens() domain.TokenPair
	StoreTokens(ctx context.Context, tokens domain.TokenPair) error
}

// Config holds API client configuration.
type Config struct {
	BaseURL    string
	Timeout    time.Duration
	MaxRetries int
	RateLimit  float64
	RateBurst  int
	UserAgent  string

	// BreakerTimeout is how long requests are refused after the backend
	// keeps failing. BreakerMinRequests is how many requests the failure
	// ratio needs before it can trip. Zero keeps the defaults.
	BreakerTimeout     time.Duration
	BreakerMinRequests uint32
}

// DefaultConfig returns defaults pointing at a local backend.
func DefaultConfig() Config {
	return Config{
		BaseURL:    "http://localhost:8000/api/v1/",
		Timeout:    15 * time.Second,
		MaxRetries: 2,
		RateLimit:  20,
		RateBurst:  10,
		UserAgent:  "storefront-go",
	}
}

// Client calls the storefront API. Non-2xx answers come back as
// *errors.AppError with Status and Body set.
type Client struct {
	base      *url.URL
	http      *httpclient.CircuitBreakerClient
	limiter   *rate.Limiter
	logger    *slog.Logger
	tracer    trace.Tracer
	userAgent string
	now       func() time.Time

	mu     sync.RWMutex
	tokens TokenSource

	refreshMu sync.Mutex
}

// New creates an API client.
func New(cfg Config, log *slog.Logger) (*Client, error) {
	base, err := url.Parse(cfg.BaseURL)
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid API base URL %q", cfg.BaseURL)
	}
	if !strings.HasSuffix(base.Path, "/") {
		base.Path += "/"
	}

	hc := httpclient.DefaultConfig()
	if cfg.Timeout > 0 {
		hc.Timeout = cfg.Timeout
	}
	hc.MaxRetries = cfg.MaxRetries
	hc.RetryWaitMin = 200 * time.Millisecond
	hc.RetryWaitMax = 2 * time.Second

	limit := rate.Inf
	if cfg.RateLimit > 0 {
		limit = rate.Limit(cfg.RateLimit)
	}
	burst := cfg.RateBurst
	if burst < 1 {
		burst = 1
	}

	cb := httpclient.DefaultCircuitBreakerConfig("storefront-api")
	if cfg.BreakerTimeout > 0 {
		cb.Timeout = cfg.BreakerTimeout
	}
	if cfg.BreakerMinRequests > 0 {
		cb.MinRequests = cfg.BreakerMinRequests
	}

	return &Client{
		base:      base,
		http:      httpclient.NewCircuitBreakerClient(httpclient.New(hc), cb, log),
		limiter:   rate.NewLimiter(limit, burst),
		logger:    log,
		tracer:    otel.Tracer(middleware.TracerPrefix + "api"),
		userAgent: cfg.UserAgent,
		now:       time.Now,
	}, nil
}

// SetTokenSource attaches the session that owns the tokens.
func (c *Client) SetTokenSource(ts TokenSource) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tokens = ts
}

// BaseURL returns the API root every path is resolved against.
func (c *Client) BaseURL() string { return c.base.String() }

func (c *Client) tokenSource() TokenSource {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.tokens
}

func (c *Client) currentTokens() domain.TokenPair {
	if ts := c.tokenSource(); ts != nil {
		return ts.Tokens()
	}
	return domain.TokenPair{}
}

// request describes one API call.
type request struct {
	method   string
	path     string
	query    url.Values
	body     any
	resource string
	// anonymous calls carry no Authorization header and never refresh.
	anonymous bool
}

// do performs req and decodes a 2xx body into out when out is non-nil.
func (c *Client) do(ctx context.Context, req request, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("wait for rate limiter: %w", err)
	}

	ctx, span := c.tracer.Start(ctx, req.method+" "+req.resource,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.request.method", req.method),
			attribute.String("storefront.resource", req.resource),
		),
	)
	defer span.End()

	start := time.Now()
	status, err := c.roundTrip(ctx, req, out)
	apiRequestDuration.WithLabelValues(req.method, req.resource).Observe(time.Since(start).Seconds())
	apiRequestsTotal.WithLabelValues(req.method, req.resource, statusLabel(status, err)).Inc()

	if status != 0 {
		span.SetAttributes(attribute.Int("http.response.status_code", status))
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

func (c *Client) roundTrip(ctx context.Context, req request, out any) (int, error) {
	if !req.anonymous {
		c.refreshIfExpired(ctx)
	}

	resp, err := c.send(ctx, req)
	if err != nil {
		return statusOf(err), err
	}

	if resp.StatusCode == http.StatusUnauthorized && !req.anonymous && c.currentTokens().Refresh != "" {
		drain(resp)
		if rerr := c.refresh(ctx); rerr != nil {
			logger.WithContext(ctx, c.logger).WarnContext(ctx, "token refresh failed",
				slog.String("resource", req.resource),
				slog.String("error", rerr.Error()),
			)
			return http.StatusUnauthorized, apperrors.Unauthorized("session expired, please log in again")
		}
		resp, err = c.send(ctx, req)
		if err != nil {
			return statusOf(err), err
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return resp.StatusCode, httpclient.ParseResponseError(resp, req.resource)
	}

	defer drain(resp)
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return resp.StatusCode, nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return resp.StatusCode, fmt.Errorf("decode %s response: %w", req.resource, err)
	}
	return resp.StatusCode, nil
}

func (c *Client) send(ctx context.Context, req request) (*http.Response, error) {
	u := c.base.ResolveReference(&url.URL{Path: strings.TrimPrefix(req.path, "/")})
	if len(req.query) > 0 {
		u.RawQuery = req.query.Encode()
	}

	var body io.Reader = http.NoBody
	if req.body != nil {
		data, err := json.Marshal(req.body)
		if err != nil {
			return nil, fmt.Errorf("encode %s request: %w", req.resource, err)
		}
		body = bytes.NewReader(data)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.method, u.String(), body)
	if err != nil {
		return nil, fmt.Errorf("create %s request: %w", req.resource, err)
	}
	httpReq.Header.Set("Accept", "application/json")
	if req.body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if c.userAgent != "" {
		httpReq.Header.Set("User-Agent", c.userAgent)
	}

	correlationID := logger.CorrelationIDFromContext(ctx)
	if correlationID == "" {
		correlationID = uuid.NewString()
	}
	httpReq.Header.Set(middleware.CorrelationHeader, correlationID)

	if !req.anonymous {
		if access := c.currentTokens().Access; access != "" {
			httpReq.Header.Set("Authorization", "Bearer "+access)
		}
	}

	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(httpReq.Header))

	resp, err := c.http.Do(ctx, httpReq)
	if err != nil {
		var appErr *apperrors.AppError
		if errors.As(err, &appErr) {
			return nil, appErr
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, apperrors.Network(err)
	}
	return resp, nil
}

// refreshIfExpired refreshes ahead of time when the access token is a JWT
// whose exp has passed. Tokens that are not JWTs are left alone.
func (c *Client) refreshIfExpired(ctx context.Context) {
	tokens := c.currentTokens()
	if tokens.Access == "" || tokens.Refresh == "" {
		return
	}
	exp, ok := tokenExpiry(tokens.Access)
	if !ok || c.now().Add(refreshSkew).Before(exp) {
		return
	}
	if err := c.refresh(ctx); err != nil {
		logger.WithContext(ctx, c.logger).DebugContext(ctx, "proactive token refresh failed",
			slog.String("error", err.Error()),
		)
	}
}

// refresh exchanges the refresh token for a new access token and hands it to
// the token source. Concurrent callers share one exchange.
func (c *Client) refresh(ctx context.Context) error {
	before := c.currentTokens()

	c.refreshMu.Lock()
	defer c.refreshMu.Unlock()

	current := c.currentTokens()
	if current.Access != before.Access && current.Access != "" {
		return nil
	}
	if current.Refresh == "" {
		return apperrors.Unauthorized("no refresh token")
	}

	var pair domain.TokenPair
	err := c.do(ctx, request{
		method:    http.MethodPost,
		path:      "auth/refresh/",
		body:      map[string]string{"refresh": current.Refresh},
		resource:  "auth/refresh",
		anonymous: true,
	}, &pair)
	if err != nil {
		apiTokenRefreshTotal.WithLabelValues("failure").Inc()
		return err
	}
	if pair.Access == "" {
		apiTokenRefreshTotal.WithLabelValues("failure").Inc()
		return fmt.Errorf("refresh response carried no access token")
	}
	if pair.Refresh == "" {
		pair.Refresh = current.Refresh
	}
	apiTokenRefreshTotal.WithLabelValues("success").Inc()

	if ts := c.tokenSource(); ts != nil {
		if err := ts.StoreTokens(ctx, pair); err != nil {
			return fmt.Errorf("store refreshed tokens: %w", err)
		}
	}
	return nil
}

// tokenExpiry reads exp from a JWT without verifying it; only the server
// can verify.
func tokenExpiry(token string) (time.Time, bool) {
	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return time.Time{}, false
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, false
	}
	return claims.ExpiresAt.Time, true
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<20))
	_ = resp.Body.Close()
}

func statusOf(err error) int {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return appErr.Status
	}
	return 0
}

func statusLabel(status int, err error) string {
	switch {
	case status != 0:
		return strconv.Itoa(status)
	case err == nil:
		return "ok"
	case errors.Is(err, apperrors.ErrNetwork):
		return "network_error"
	default:
		return "error"
	}
}

// list accepts both a bare JSON array and a paginated
// {"results": [...]} page.
type list[T any] []T

func (l *list[T]) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		var page struct {
			Results []T `json:"results"`
		}
		if err := json.Unmarshal(trimmed, &page); err != nil {
			return err
		}
		*l = page.Results
		return nil
	}
	var items []T
	if err := json.Unmarshal(trimmed, &items); err != nil {
		return err
	}
	*l = items
	return nil
}

func itemPath(prefix string, id int64, action string) string {
	p := prefix + strconv.FormatInt(id, 10) + "/"
	if action != "" {
		p += action + "/"
	}
	return p
}
