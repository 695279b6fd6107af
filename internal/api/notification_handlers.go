package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/mireles/tether/internal/middleware"
	"github.com/mireles/tether/internal/notify"
)

// DefaultNotificationLimit caps GET /v1/notifications when no limit is given.
const DefaultNotificationLimit = 100

// NotificationHandlers holds dependencies for notification ledger handlers.
type NotificationHandlers struct {
	ledger notify.Ledger
}

// NewNotificationHandlers creates a new NotificationHandlers instance.
func NewNotificationHandlers(ledger notify.Ledger) *NotificationHandlers {
	return &NotificationHandlers{ledger: ledger}
}

// ListNotifications handles GET /v1/notifications - returns the caller's
// dispatch records, newest first. Rate-limited and failed attempts are
// included; the ledger is the audit trail, not just the success log.
func (h *NotificationHandlers) ListNotifications(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusMethodNotAllowed, ErrCodeBadRequest, "Method not allowed")
		return
	}

	ownerID := middleware.GetUserID(r.Context())
	if ownerID == "" {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeAuthFailed)
		WriteError(w, ctx, http.StatusUnauthorized, ErrCodeAuthFailed, "Authentication required")
		return
	}

	limit := DefaultNotificationLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeValidation)
			WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation, "limit must be a positive integer")
			return
		}
		limit = parsed
	}

	records, err := h.ledger.ListByOwner(r.Context(), ownerID, limit)
	if err != nil {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to list notifications")
		return
	}
	if records == nil {
		records = []*notify.Record{}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(records); err != nil {
		return
	}
}
