// Package errors holds the error vocabulary shared by the storefront client,
// its state containers and the mock API. Every failure that crosses a package
// boundary is an *AppError wrapping one of the sentinels below, so callers
// branch with errors.Is and never on message text.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrNotFound       = errors.New("resource not found")
	ErrInvalidInput   = errors.New("invalid input")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrForbidden      = errors.New("forbidden")
	ErrInternal       = errors.New("internal error")
	ErrConflict       = errors.New("conflict")
	ErrRateLimited    = errors.New("rate limited")
	ErrServiceUnavail = errors.New("service unavailable")
	ErrNetwork        = errors.New("network error")
)

// kind ties a sentinel to its wire code and HTTP status.
type kind struct {
	sentinel error
	code     string
	status   int
}

var kinds = []kind{
	{ErrNotFound, "NOT_FOUND", http.StatusNotFound},
	{ErrInvalidInput, "INVALID_INPUT", http.StatusBadRequest},
	{ErrUnauthorized, "UNAUTHORIZED", http.StatusUnauthorized},
	{ErrForbidden, "FORBIDDEN", http.StatusForbidden},
	{ErrConflict, "CONFLICT", http.StatusConflict},
	{ErrRateLimited, "RATE_LIMITED", http.StatusTooManyRequests},
	{ErrServiceUnavail, "SERVICE_UNAVAILABLE", http.StatusServiceUnavailable},
	// A request that never reached the server has no status of its own.
	{ErrNetwork, "NETWORK_ERROR", http.StatusServiceUnavailable},
	{ErrInternal, "INTERNAL_ERROR", http.StatusInternalServerError},
}

func kindOf(sentinel error) kind {
	for _, k := range kinds {
		if k.sentinel == sentinel {
			return k
		}
	}
	return kinds[len(kinds)-1]
}

// AppError is the structured error returned across package boundaries.
// Errors decoded from an API response keep the status and raw body.
type AppError struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
	Status  int               `json:"-"`
	Body    string            `json:"-"`
	Err     error             `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err == nil {
		return e.Code + ": " + e.Message
	}
	return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
}

func (e *AppError) Unwrap() error { return e.Err }

func newError(sentinel error, message string) *AppError {
	k := kindOf(sentinel)
	return &AppError{Code: k.code, Message: message, Status: k.status, Err: sentinel}
}

// NotFound reports that resource id does not exist.
func NotFound(resource, id string) *AppError {
	return newError(ErrNotFound, fmt.Sprintf("%s with id %s not found", resource, id))
}

func InvalidInput(message string) *AppError { return newError(ErrInvalidInput, message) }

// Validation is an invalid-input error with per-field messages.
func Validation(message string, fields map[string]string) *AppError {
	e := newError(ErrInvalidInput, message)
	e.Code = "VALIDATION_ERROR"
	e.Fields = fields
	return e
}

// Unauthorized covers missing or expired sessions and bad credentials.
func Unauthorized(message string) *AppError { return newError(ErrUnauthorized, message) }

func Forbidden(message string) *AppError { return newError(ErrForbidden, message) }

func Conflict(message string) *AppError { return newError(ErrConflict, message) }

func RateLimited(message string) *AppError { return newError(ErrRateLimited, message) }

func Unavailable(message string) *AppError { return newError(ErrServiceUnavail, message) }

// Network wraps a transport failure. Status stays zero because no response
// was received.
func Network(err error) *AppError {
	e := newError(ErrNetwork, "request did not reach the server")
	e.Status = 0
	e.Err = fmt.Errorf("%w: %v", ErrNetwork, err)
	return e
}

// Internal hides err behind a generic message.
func Internal(err error) *AppError {
	e := newError(ErrInternal, "an internal error occurred")
	e.Err = err
	return e
}

// Wrap prefixes err with message, keeping it matchable with errors.Is.
func Wrap(err error, message string) error {
	return fmt.Errorf("%s: %w", message, err)
}

// HTTPStatus maps err to the status the mock API answers with.
func HTTPStatus(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) && appErr.Status != 0 {
		return appErr.Status
	}
	for _, k := range kinds {
		if errors.Is(err, k.sentinel) {
			return k.status
		}
	}
	return http.StatusInternalServerError
}

// IsNotFound reports whether err is, or wraps, a not-found error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
