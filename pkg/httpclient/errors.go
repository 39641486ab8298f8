package httpclient

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"

	apperrors "github.com/utafrali/storefront/pkg/errors"
)

// envelopeError mirrors the {"error":{"code","message"}} envelope some
// gateways in front of the API answer with.
type envelopeError struct {
	Error *struct {
		Code    string            `json:"code"`
		Message string            `json:"message"`
		Fields  map[string]string `json:"fields"`
	} `json:"error"`
}

// ParseResponseError reads the body of a non-2xx HTTP response and translates
// it into an AppError. The storefront API answers in three shapes:
//
//	{"detail": "...", "code": "..."}  authentication and permission failures
//	{"error": "..."}                business rule rejections
//	{"field": ["msg", ...], ...}    serializer validation errors
//
// pkg/httputil writes the first and third shapes. The gateway envelope
// {"error": {"code", "message", "fields"}} is recognized as well. The raw body and
// status code are always preserved on the returned *AppError.
//
// The caller should only invoke this when resp.StatusCode indicates an error
// (i.e., not 2xx). The response body is fully consumed and closed.
func ParseResponseError(resp *http.Response, resource string) error {
	defer func() { _ = resp.Body.Close() }()

	bodyBytes, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20)) // 1 MB limit
	if err != nil {
		return fmt.Errorf("%s returned status %d (failed to read body: %w)", resource, resp.StatusCode, err)
	}

	code, message, fields := decodeErrorBody(bodyBytes)
	if message == "" {
		message = http.StatusText(resp.StatusCode)
	}

	appErr := mapStatus(resp.StatusCode, code, message, fields, resource)
	appErr.Body = string(bodyBytes)
	return appErr
}

func decodeErrorBody(body []byte) (code, message string, fields map[string]string) {
	var env envelopeError
	if json.Unmarshal(body, &env) == nil && env.Error != nil {
		return env.Error.Code, env.Error.Message, env.Error.Fields
	}

	var raw map[string]json.RawMessage
	if json.Unmarshal(body, &raw) != nil {
		return "", strings.TrimSpace(string(body)), nil
	}

	// A string "code" is the error code; a list is a field error on a "code" input.
	if v, ok := raw["code"]; ok && json.Unmarshal(v, &code) == nil {
		delete(raw, "code")
	}
	delete(raw, "request_id")

	for _, key := range []string{"detail", "error", "message"} {
		if v, ok := raw[key]; ok {
			if s := firstMessage(v); s != "" {
				message = s
				delete(raw, key)
				break
			}
		}
	}

	for k, v := range raw {
		if msg := firstMessage(v); msg != "" {
			if fields == nil {
				fields = make(map[string]string)
			}
			fields[k] = msg
		}
	}

	if message == "" && len(fields) > 0 {
		keys := make([]string, 0, len(fields))
		for k := range fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			parts = append(parts, fmt.Sprintf("%s: %s", k, fields[k]))
		}
		message = strings.Join(parts, "; ")
	}
	return code, message, fields
}

// firstMessage extracts a message from either "msg" or ["msg", ...].
func firstMessage(v json.RawMessage) string {
	var s string
	if json.Unmarshal(v, &s) == nil {
		return s
	}
	var list []string
	if json.Unmarshal(v, &list) == nil && len(list) > 0 {
		return list[0]
	}
	return ""
}

// mapStatus translates a status code into an AppError that preserves the
// error semantics for callers using errors.Is.
func mapStatus(status int, code, message string, fields map[string]string, resource string) *apperrors.AppError {
	var appErr *apperrors.AppError

	switch {
	case status == http.StatusNotFound:
		appErr = apperrors.NotFound(resource, "")
		appErr.Message = message
	case status == http.StatusBadRequest && len(fields) > 0:
		appErr = apperrors.Validation(message, fields)
	case status == http.StatusBadRequest:
		appErr = apperrors.InvalidInput(message)
	case status == http.StatusUnauthorized:
		appErr = apperrors.Unauthorized(message)
	case status == http.StatusForbidden:
		appErr = apperrors.Forbidden(message)
	case status == http.StatusConflict:
		appErr = apperrors.Conflict(message)
	case status == http.StatusTooManyRequests:
		appErr = apperrors.RateLimited(message)
	case status == http.StatusServiceUnavailable:
		appErr = apperrors.Unavailable(message)
	default:
		appErr = &apperrors.AppError{
			Code:    "API_ERROR",
			Message: fmt.Sprintf("%s returned status %d: %s", resource, status, message),
			Status:  status,
		}
	}

	if code != "" {
		appErr.Code = code
	}
	return appErr
}

// IsClientError returns true if the HTTP status code is a 4xx client error.
func IsClientError(status int) bool {
	return status >= 400 && status < 500
}
