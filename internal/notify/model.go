// Package notify provides the notification dispatcher: recipient resolution,
// per-zone rate limiting against an append-only ledger, delivery channels,
// and outcome logging.
package notify

import (
	"time"

	"github.com/mireles/tether/internal/geo"
	"github.com/mireles/tether/internal/zone"
)

// EventType classifies a zone boundary crossing.
type EventType string

// Boundary crossing directions.
const (
	EventEnter EventType = "enter"
	EventLeave EventType = "leave"
)

// Event is a detected zone transition ready for dispatch.
type Event struct {
	Zone     *zone.Zone
	WardID   string
	Type     EventType
	At       time.Time
	Location geo.Point
}

// DispatchStatus is the recorded outcome of one dispatch attempt.
type DispatchStatus string

// Dispatch outcomes. RateLimited is a policy outcome, not an error.
const (
	StatusSent        DispatchStatus = "sent"
	StatusFailed      DispatchStatus = "failed"
	StatusRateLimited DispatchStatus = "rate_limited"
)

// Record is one append-only ledger entry. Every dispatch attempt is recorded
// regardless of outcome, giving an auditable trail of what was and was not
// communicated.
type Record struct {
	ID        string         `json:"id"`
	ZoneID    string         `json:"zone_id"`
	OwnerID   string         `json:"owner_id"`
	WardID    string         `json:"ward_id"`
	EventType EventType      `json:"event_type"`
	Recipient string         `json:"recipient"`
	Status    DispatchStatus `json:"status"`
	// Geohash is the coarse observation location, precise enough for audit
	// without pinpointing the ward.
	Geohash     string    `json:"geohash,omitempty"`
	ErrorDetail string    `json:"error_detail,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Recipient is a resolved delivery target.
type Recipient struct {
	Name    string
	Address string
}
