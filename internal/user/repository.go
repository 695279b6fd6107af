package user

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mireles/tether/internal/validate"
)

// ErrUserNotFound is returned when a directory lookup misses.
var ErrUserNotFound = errors.New("user not found")

// Repository defines the interface for user directory operations.
type Repository interface {
	// Insert creates a new user, assigning an ID if one is not set.
	Insert(ctx context.Context, u *User) error

	// GetByID retrieves a user by its UUID.
	GetByID(ctx context.Context, id string) (*User, error)
}

// InMemoryRepository is an in-memory implementation of Repository.
// Thread-safe via RWMutex.
type InMemoryRepository struct {
	mu    sync.RWMutex
	users map[string]*User
}

// NewInMemoryRepository creates a new in-memory user repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{users: make(map[string]*User)}
}

// normalize validates and canonicalizes the user's fields in place.
func normalize(u *User) error {
	name, err := validate.DisplayName(u.DisplayName)
	if err != nil {
		return fmt.Errorf("display name: %w", err)
	}
	email, err := validate.Email(u.Email)
	if err != nil {
		return fmt.Errorf("email: %w", err)
	}
	u.DisplayName = name
	u.Email = email
	return nil
}

// Insert creates a new user.
func (r *InMemoryRepository) Insert(ctx context.Context, u *User) error {
	if err := normalize(u); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if u.ID == "" {
		u.ID = uuid.New().String()
	}
	u.CreatedAt = time.Now().UTC()

	userCopy := *u
	r.users[u.ID] = &userCopy
	return nil
}

// GetByID retrieves a user by its UUID.
func (r *InMemoryRepository) GetByID(ctx context.Context, id string) (*User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	userCopy := *u
	return &userCopy, nil
}
