// Package user provides the user directory: display names and notification
// addresses for guardians and wards.
package user

import "time"

// User is a directory entry. Guardians and wards share the same table; a
// guardian is simply a user who owns zones.
type User struct {
	ID          string    `json:"id"`
	DisplayName string    `json:"display_name"`
	Email       string    `json:"email"`
	CreatedAt   time.Time `json:"created_at"`
}
