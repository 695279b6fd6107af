package notify

import (
	"context"

	"github.com/mireles/tether/internal/user"
)

// UserDirectory adapts the user repository to the Directory interface.
type UserDirectory struct {
	users user.Repository
}

// NewUserDirectory creates a Directory backed by the user repository.
func NewUserDirectory(users user.Repository) *UserDirectory {
	return &UserDirectory{users: users}
}

// ResolveRecipient returns the delivery target for a user.
func (d *UserDirectory) ResolveRecipient(ctx context.Context, userID string) (Recipient, error) {
	u, err := d.users.GetByID(ctx, userID)
	if err != nil {
		return Recipient{}, err
	}
	return Recipient{Name: u.DisplayName, Address: u.Email}, nil
}

// ResolveDisplayName returns a user's display name.
func (d *UserDirectory) ResolveDisplayName(ctx context.Context, userID string) (string, error) {
	u, err := d.users.GetByID(ctx, userID)
	if err != nil {
		return "", err
	}
	return u.DisplayName, nil
}
