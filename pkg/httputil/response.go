package httputil

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	apperrors "github.com/utafrali/storefront/pkg/errors"
	"github.com/utafrali/storefront/pkg/logger"
)

// ErrorBody is the error shape of the storefront API: a human readable detail
// plus a machine readable code. Field validation failures are written as a
// bare {"field": ["message"]} map instead.
type ErrorBody struct {
	Detail    string `json:"detail"`
	Code      string `json:"code,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

// Message is the body of simple acknowledgements such as {"message": "支付成功"}.
type Message struct {
	Message string `json:"message"`
}

// WriteJSON writes a JSON response with the given status code.
// If encoding fails, the error is logged but headers are already sent so nothing can be done.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// Headers are already sent; nothing meaningful can be done if encoding fails.
	_ = json.NewEncoder(w).Encode(v)
}

// WriteMessage writes a {"message": msg} acknowledgement.
func WriteMessage(w http.ResponseWriter, status int, msg string) {
	WriteJSON(w, status, Message{Message: msg})
}

// WriteNoContent writes an empty 204 response.
func WriteNoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

// WriteError writes an error response based on the error type. AppErrors keep
// their status and code; errors carrying field messages are written as a field
// map. Internal server errors are logged with the request-scoped logger when
// the RequestLogger middleware has set one, otherwise with fallback.
func WriteError(w http.ResponseWriter, r *http.Request, err error, fallback *slog.Logger) {
	l := logger.FromContext(r.Context())
	if l == slog.Default() {
		l = fallback
	}

	requestID := logger.CorrelationIDFromContext(r.Context())

	var appErr *apperrors.AppError
	if errors.As(err, &appErr) && appErr.Status != 0 {
		if len(appErr.Fields) > 0 {
			WriteJSON(w, appErr.Status, fieldMap(appErr.Fields))
			return
		}
		if appErr.Status >= http.StatusInternalServerError {
			logInternal(l, r, err)
		}
		WriteJSON(w, appErr.Status, ErrorBody{Detail: appErr.Message, Code: appErr.Code, RequestID: requestID})
		return
	}

	status := apperrors.HTTPStatus(err)
	code := "INTERNAL_ERROR"
	detail := "an internal error occurred"

	switch {
	case errors.Is(err, apperrors.ErrNotFound):
		code, detail = "NOT_FOUND", "resource not found"
	case errors.Is(err, apperrors.ErrConflict):
		code, detail = "CONFLICT", err.Error()
	case errors.Is(err, apperrors.ErrInvalidInput):
		code, detail = "INVALID_INPUT", err.Error()
	case errors.Is(err, apperrors.ErrUnauthorized):
		code, detail = "UNAUTHORIZED", "authentication credentials were not provided"
	case errors.Is(err, apperrors.ErrForbidden):
		code, detail = "FORBIDDEN", "you do not have permission to perform this action"
	}

	if status == http.StatusInternalServerError {
		logInternal(l, r, err)
	}

	WriteJSON(w, status, ErrorBody{Detail: detail, Code: code, RequestID: requestID})
}

func logInternal(l *slog.Logger, r *http.Request, err error) {
	l.ErrorContext(r.Context(), "internal error",
		slog.String("error", err.Error()),
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
	)
}

func fieldMap(fields map[string]string) map[string][]string {
	out := make(map[string][]string, len(fields))
	for k, v := range fields {
		out[k] = []string{v}
	}
	return out
}

// ParseID parses a positive integer path parameter. If invalid, it writes a
// 404 response, as no resource can have that id, and returns false signaling
// the caller to return early.
func ParseID(w http.ResponseWriter, param string) (int64, bool) {
	id, err := strconv.ParseInt(param, 10, 64)
	if err != nil || id <= 0 {
		WriteJSON(w, http.StatusNotFound, ErrorBody{Detail: "Not found.", Code: "NOT_FOUND"})
		return 0, false
	}
	return id, true
}
