package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/mireles/tether/internal/friend"
	"github.com/mireles/tether/internal/middleware"
	"github.com/mireles/tether/internal/user"
)

// CreateFriendRequestRequest represents the request body for sending a
// friend request.
type CreateFriendRequestRequest struct {
	RecipientID string `json:"recipient_id"`
}

// FriendHandlers holds dependencies for friend request handlers.
type FriendHandlers struct {
	repo  friend.Repository
	users user.Repository
}

// NewFriendHandlers creates a new FriendHandlers instance.
func NewFriendHandlers(repo friend.Repository, users user.Repository) *FriendHandlers {
	return &FriendHandlers{repo: repo, users: users}
}

// HandleRequests dispatches POST and GET /v1/friends/requests.
func (h *FriendHandlers) HandleRequests(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.CreateRequest(w, r)
	case http.MethodGet:
		h.ListPendingRequests(w, r)
	default:
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusMethodNotAllowed, ErrCodeBadRequest, "Method not allowed")
	}
}

// HandleRequestAction dispatches POST /v1/friends/requests/{id}/accept and
// POST /v1/friends/requests/{id}/reject.
func (h *FriendHandlers) HandleRequestAction(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusMethodNotAllowed, ErrCodeBadRequest, "Method not allowed")
		return
	}

	parts := strings.Split(strings.TrimPrefix(r.URL.Path, "/v1/friends/requests/"), "/")
	if len(parts) != 2 || parts[0] == "" {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeBadRequest, "Request ID and action are required")
		return
	}

	switch parts[1] {
	case "accept":
		h.resolveRequest(w, r, parts[0], friend.StatusAccepted)
	case "reject":
		h.resolveRequest(w, r, parts[0], friend.StatusRejected)
	default:
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeNotFound)
		WriteError(w, ctx, http.StatusNotFound, ErrCodeNotFound, "The requested resource was not found")
	}
}

// CreateRequest handles POST /v1/friends/requests - sends a friend request
// from the caller to another user.
func (h *FriendHandlers) CreateRequest(w http.ResponseWriter, r *http.Request) {
	senderID := middleware.GetUserID(r.Context())
	if senderID == "" {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeAuthFailed)
		WriteError(w, ctx, http.StatusUnauthorized, ErrCodeAuthFailed, "Authentication required")
		return
	}

	var req CreateFriendRequestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeBadRequest, "Invalid JSON in request body")
		return
	}

	if req.RecipientID == "" {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeValidation)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation, "recipient_id is required")
		return
	}
	if req.RecipientID == senderID {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeSelfRequest)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeSelfRequest, "Cannot send a friend request to yourself")
		return
	}

	if _, err := h.users.GetByID(r.Context(), req.RecipientID); err != nil {
		if errors.Is(err, user.ErrUserNotFound) {
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeNotFound)
			WriteError(w, ctx, http.StatusNotFound, ErrCodeNotFound, "Recipient not found")
			return
		}
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to look up recipient")
		return
	}

	newReq := &friend.Request{
		SenderID:    senderID,
		RecipientID: req.RecipientID,
		Status:      friend.StatusPending,
	}
	if err := h.repo.Insert(r.Context(), newReq); err != nil {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to create friend request")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	if err := json.NewEncoder(w).Encode(newReq); err != nil {
		return
	}
}

// ListPendingRequests handles GET /v1/friends/requests - lists pending
// requests addressed to the caller, oldest first.
func (h *FriendHandlers) ListPendingRequests(w http.ResponseWriter, r *http.Request) {
	recipientID := middleware.GetUserID(r.Context())
	if recipientID == "" {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeAuthFailed)
		WriteError(w, ctx, http.StatusUnauthorized, ErrCodeAuthFailed, "Authentication required")
		return
	}

	requests, err := h.repo.ListPendingForRecipient(r.Context(), recipientID)
	if err != nil {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to list friend requests")
		return
	}
	if requests == nil {
		requests = []*friend.Request{}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(requests); err != nil {
		return
	}
}

// resolveRequest transitions a pending request to accepted or rejected.
// Only the recipient may resolve a request.
func (h *FriendHandlers) resolveRequest(w http.ResponseWriter, r *http.Request, requestID string, status friend.RequestStatus) {
	callerID := middleware.GetUserID(r.Context())
	if callerID == "" {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeAuthFailed)
		WriteError(w, ctx, http.StatusUnauthorized, ErrCodeAuthFailed, "Authentication required")
		return
	}

	req, err := h.repo.GetByID(r.Context(), requestID)
	if err != nil {
		if errors.Is(err, friend.ErrRequestNotFound) {
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeNotFound)
			WriteError(w, ctx, http.StatusNotFound, ErrCodeNotFound, "Friend request not found")
			return
		}
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to retrieve friend request")
		return
	}

	if req.RecipientID != callerID {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeForbidden)
		WriteError(w, ctx, http.StatusForbidden, ErrCodeForbidden, "Only the recipient may resolve a friend request")
		return
	}

	if err := h.repo.SetStatus(r.Context(), requestID, status); err != nil {
		if errors.Is(err, friend.ErrNotPending) {
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeRequestNotPending)
			WriteError(w, ctx, http.StatusConflict, ErrCodeRequestNotPending, "Friend request has already been resolved")
			return
		}
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to update friend request")
		return
	}

	req.Status = status

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(req); err != nil {
		return
	}
}
