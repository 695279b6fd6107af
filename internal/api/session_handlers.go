package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/mireles/tether/internal/middleware"
	"github.com/mireles/tether/internal/monitor"
)

// SessionResponse reports the caller's monitoring session state.
type SessionResponse struct {
	OwnerID string `json:"owner_id"`
	Active  bool   `json:"active"`
}

// SessionHandlers holds dependencies for monitoring session handlers.
type SessionHandlers struct {
	hub *monitor.Hub
}

// NewSessionHandlers creates a new SessionHandlers instance.
func NewSessionHandlers(hub *monitor.Hub) *SessionHandlers {
	return &SessionHandlers{hub: hub}
}

// HandleSessions dispatches POST, DELETE and GET /v1/sessions.
func (h *SessionHandlers) HandleSessions(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.StartSession(w, r)
	case http.MethodDelete:
		h.StopSession(w, r)
	case http.MethodGet:
		h.GetSession(w, r)
	default:
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusMethodNotAllowed, ErrCodeBadRequest, "Method not allowed")
	}
}

// StartSession handles POST /v1/sessions - starts the caller's monitoring
// session. The session keeps running after the response; it is stopped only
// by DELETE or server shutdown.
func (h *SessionHandlers) StartSession(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := h.caller(w, r)
	if !ok {
		return
	}

	// The session outlives this request, so it must not inherit the
	// request's cancellation.
	if _, err := h.hub.StartSession(context.Background(), ownerID); err != nil {
		if errors.Is(err, monitor.ErrSessionActive) {
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeSessionActive)
			WriteError(w, ctx, http.StatusConflict, ErrCodeSessionActive, "A monitoring session is already running")
			return
		}
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to start monitoring session")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	if err := json.NewEncoder(w).Encode(SessionResponse{OwnerID: ownerID, Active: true}); err != nil {
		return
	}
}

// StopSession handles DELETE /v1/sessions - stops the caller's monitoring
// session, draining queued observations first.
func (h *SessionHandlers) StopSession(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := h.caller(w, r)
	if !ok {
		return
	}

	if err := h.hub.StopSession(ownerID); err != nil {
		if errors.Is(err, monitor.ErrNoSession) {
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeNoSession)
			WriteError(w, ctx, http.StatusNotFound, ErrCodeNoSession, "No monitoring session is running")
			return
		}
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to stop monitoring session")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// GetSession handles GET /v1/sessions - reports the caller's session state.
func (h *SessionHandlers) GetSession(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := h.caller(w, r)
	if !ok {
		return
	}

	resp := SessionResponse{OwnerID: ownerID, Active: h.hub.HasSession(ownerID)}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		return
	}
}

func (h *SessionHandlers) caller(w http.ResponseWriter, r *http.Request) (string, bool) {
	ownerID := middleware.GetUserID(r.Context())
	if ownerID == "" {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeAuthFailed)
		WriteError(w, ctx, http.StatusUnauthorized, ErrCodeAuthFailed, "Authentication required")
		return "", false
	}
	return ownerID, true
}
