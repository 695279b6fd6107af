package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
)

// Error codes carried in error response bodies. Generic codes first,
// then domain-specific ones.
const (
	ErrCodeValidation  = "validation_error"
	ErrCodeAuthFailed  = "auth_failed"
	ErrCodeNotFound    = "not_found"
	ErrCodeRateLimited = "rate_limited"
	ErrCodeInternal    = "internal_error"
	ErrCodeForbidden   = "forbidden"
	ErrCodeConflict    = "conflict"
	ErrCodeBadRequest  = "bad_request"

	ErrCodeInvalidZoneName = "invalid_zone_name"

	// ErrCodeInvalidPolygon covers polygons with fewer than three vertices
	// or out-of-range coordinates.
	ErrCodeInvalidPolygon = "invalid_polygon"

	ErrCodeZoneNotFound = "zone_not_found"

	// ErrCodeSessionActive means the guardian already has a running session.
	ErrCodeSessionActive = "session_active"

	// ErrCodeNoSession means the guardian has no running session.
	ErrCodeNoSession = "no_session"

	// ErrCodeSelfRequest marks a friend request where sender == recipient.
	ErrCodeSelfRequest = "self_request"

	// ErrCodeRequestNotPending marks a friend request already resolved.
	ErrCodeRequestNotPending = "request_not_pending"
)

// ErrorResponse is the envelope every API error uses:
// {"error": {"code": "...", "message": "..."}}
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail holds the machine-readable code and a human-readable message.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// WriteError writes the standard JSON error envelope with the given
// status. Call middleware.SetErrorCode first and pass the resulting
// context so the access log picks up the code:
//
//	ctx := middleware.SetErrorCode(r.Context(), api.ErrCodeZoneNotFound)
//	api.WriteError(w, ctx, http.StatusNotFound, api.ErrCodeZoneNotFound, "Zone not found")
func WriteError(w http.ResponseWriter, ctx context.Context, status int, code, message string) {
	data, err := json.Marshal(ErrorResponse{
		Error: ErrorDetail{Code: code, Message: message},
	})
	if err != nil {
		slog.ErrorContext(ctx, "failed to marshal error response", "error", err)
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("Internal server error"))
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if _, err := w.Write(data); err != nil {
		slog.ErrorContext(ctx, "failed to write error response", "error", err)
	}
}

// StatusCodeMapping maps an error code to the HTTP status it ships with.
// Unknown codes map to 500.
func StatusCodeMapping(code string) int {
	switch code {
	case ErrCodeValidation, ErrCodeBadRequest, ErrCodeInvalidZoneName, ErrCodeInvalidPolygon, ErrCodeSelfRequest:
		return http.StatusBadRequest
	case ErrCodeAuthFailed:
		return http.StatusUnauthorized
	case ErrCodeNotFound, ErrCodeZoneNotFound, ErrCodeNoSession:
		return http.StatusNotFound
	case ErrCodeRateLimited:
		return http.StatusTooManyRequests
	case ErrCodeForbidden:
		return http.StatusForbidden
	case ErrCodeConflict, ErrCodeSessionActive, ErrCodeRequestNotPending:
		return http.StatusConflict
	case ErrCodeInternal:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}
