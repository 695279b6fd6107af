// Package friend provides models and repositories for friend requests and
// the watcher that surfaces pending requests to their recipients.
package friend

import "time"

// RequestStatus is the lifecycle state of a friend request.
type RequestStatus string

// Friend request lifecycle states. The watcher only ever reads pending
// requests; accept/reject transitions happen through the API.
const (
	StatusPending  RequestStatus = "pending"
	StatusAccepted RequestStatus = "accepted"
	StatusRejected RequestStatus = "rejected"
)

// Request is a friend request from one user to another.
type Request struct {
	ID          string        `json:"id"`
	SenderID    string        `json:"sender_id"`
	RecipientID string        `json:"recipient_id"`
	Status      RequestStatus `json:"status"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}
