// Package zone provides models and repositories for guardian-defined
// geofence zones and their per-ward containment status.
package zone

import (
	"time"

	"github.com/mireles/tether/internal/geo"
)

// Status is the recorded containment state of a ward relative to a zone.
type Status string

// Containment states. StatusUnknown is the required initial value for a zone
// that has never been evaluated; it is never a transition source, so the
// first observation establishes a baseline without firing a notification.
const (
	StatusUnknown Status = "unknown"
	StatusInside  Status = "inside"
	StatusOutside Status = "outside"
)

// Valid reports whether s is one of the recognized containment states.
func (s Status) Valid() bool {
	switch s {
	case StatusUnknown, StatusInside, StatusOutside:
		return true
	}
	return false
}

// Zone is a named polygon owned by a guardian and tracking a ward.
// Only the owner may rename, redraw, activate, deactivate, or delete it.
type Zone struct {
	ID      string      `json:"id"`
	Name    string      `json:"name"`
	OwnerID string      `json:"owner_id"`
	WardID  string      `json:"ward_id"`
	Polygon geo.Polygon `json:"polygon"`
	Active  bool        `json:"active"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ZoneStatus is the last evaluated containment state for a zone. Exactly one
// row exists per zone at any time; it is overwritten, never versioned.
type ZoneStatus struct {
	ZoneID    string    `json:"zone_id"`
	Status    Status    `json:"status"`
	ChangedAt time.Time `json:"changed_at"`
}
