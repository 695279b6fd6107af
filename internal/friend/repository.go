package friend

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Common errors for friend request operations.
var (
	ErrRequestNotFound = errors.New("friend request not found")
	ErrNotPending      = errors.New("friend request is not pending")
)

// Repository defines the interface for friend request data operations.
type Repository interface {
	// Insert creates a new pending request, assigning an ID if one is not set.
	Insert(ctx context.Context, req *Request) error

	// GetByID retrieves a request by its UUID.
	GetByID(ctx context.Context, id string) (*Request, error)

	// ListPendingForRecipient returns all pending requests addressed to the
	// given user, oldest first.
	ListPendingForRecipient(ctx context.Context, recipientID string) ([]*Request, error)

	// SetStatus transitions a pending request to accepted or rejected.
	// Returns ErrNotPending if the request has already been resolved.
	SetStatus(ctx context.Context, id string, status RequestStatus) error
}

// InMemoryRepository is an in-memory implementation of Repository.
// Thread-safe via RWMutex.
type InMemoryRepository struct {
	mu       sync.RWMutex
	requests map[string]*Request
	order    []string
}

// NewInMemoryRepository creates a new in-memory friend request repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{requests: make(map[string]*Request)}
}

// Insert creates a new pending request.
func (r *InMemoryRepository) Insert(ctx context.Context, req *Request) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if req.ID == "" {
		req.ID = uuid.New().String()
	}
	if req.Status == "" {
		req.Status = StatusPending
	}
	now := time.Now().UTC()
	req.CreatedAt = now
	req.UpdatedAt = now

	reqCopy := *req
	r.requests[req.ID] = &reqCopy
	r.order = append(r.order, req.ID)
	return nil
}

// GetByID retrieves a request by its UUID.
func (r *InMemoryRepository) GetByID(ctx context.Context, id string) (*Request, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	req, ok := r.requests[id]
	if !ok {
		return nil, ErrRequestNotFound
	}
	reqCopy := *req
	return &reqCopy, nil
}

// ListPendingForRecipient returns pending requests for a user, oldest first.
func (r *InMemoryRepository) ListPendingForRecipient(ctx context.Context, recipientID string) ([]*Request, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []*Request
	for _, id := range r.order {
		req := r.requests[id]
		if req.RecipientID == recipientID && req.Status == StatusPending {
			reqCopy := *req
			result = append(result, &reqCopy)
		}
	}
	return result, nil
}

// SetStatus transitions a pending request to accepted or rejected.
func (r *InMemoryRepository) SetStatus(ctx context.Context, id string, status RequestStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	req, ok := r.requests[id]
	if !ok {
		return ErrRequestNotFound
	}
	if req.Status != StatusPending {
		return ErrNotPending
	}
	req.Status = status
	req.UpdatedAt = time.Now().UTC()
	return nil
}
