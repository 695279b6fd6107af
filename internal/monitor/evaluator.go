// Package monitor turns raw location observations into geofence
// transition events and runs the per-guardian sessions that schedule
// evaluation and friend request polling.
package monitor

import (
	"context"
	"log/slog"
	"time"

	"github.com/mireles/tether/internal/geo"
	"github.com/mireles/tether/internal/notify"
	"github.com/mireles/tether/internal/zone"
)

// Observation is a single reported position for a ward.
type Observation struct {
	WardID string    `json:"ward_id"`
	Point  geo.Point `json:"point"`
	At     time.Time `json:"at"`
}

// Evaluator checks an observation against the zones that watch a ward
// and emits enter/leave events when the remembered status flips.
type Evaluator struct {
	zones    zone.Repository
	statuses zone.StatusStore
	logger   *slog.Logger
	metrics  *Metrics
}

// NewEvaluator creates an evaluator backed by the given zone repository
// and status store.
func NewEvaluator(zones zone.Repository, statuses zone.StatusStore, logger *slog.Logger, metrics *Metrics) *Evaluator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Evaluator{
		zones:    zones,
		statuses: statuses,
		logger:   logger,
		metrics:  metrics,
	}
}

// Evaluate runs one observation through every active zone the owner has
// defined for the ward. Each zone is handled independently; a failure in
// one does not stop the others. Returned events are in zone iteration
// order.
//
// The first observation a zone ever sees only seeds its remembered
// status, it never produces an event. A new status is persisted before
// the event is returned, so a persistence failure suppresses the event
// rather than replaying it on the next observation.
func (e *Evaluator) Evaluate(ctx context.Context, ownerID string, obs Observation) []notify.Event {
	zones, err := e.zones.ListByWard(ctx, obs.WardID)
	if err != nil {
		e.logger.Error("failed to list zones for ward",
			"ward_id", obs.WardID,
			"error", err)
		if e.metrics != nil {
			e.metrics.IncEvaluationErrors("zone_lookup")
		}
		return nil
	}

	var events []notify.Event
	for _, z := range zones {
		if !z.Active {
			continue
		}
		if ownerID != "" && z.OwnerID != ownerID {
			continue
		}

		current := zone.StatusOutside
		if geo.PointInPolygon(obs.Point, z.Polygon) {
			current = zone.StatusInside
		}
		if e.metrics != nil {
			e.metrics.IncEvaluations()
		}

		last, err := e.statuses.Get(ctx, z.ID)
		if err != nil {
			e.logger.Error("failed to read zone status",
				"zone_id", z.ID,
				"ward_id", obs.WardID,
				"error", err)
			if e.metrics != nil {
				e.metrics.IncEvaluationErrors("status_read")
			}
			continue
		}

		if last.Status == current {
			continue
		}

		if err := e.statuses.Set(ctx, z.ID, current, obs.At); err != nil {
			e.logger.Error("failed to persist zone status",
				"zone_id", z.ID,
				"ward_id", obs.WardID,
				"error", err)
			if e.metrics != nil {
				e.metrics.IncEvaluationErrors("status_write")
			}
			continue
		}

		if last.Status == zone.StatusUnknown {
			// Baseline established, nothing to announce.
			continue
		}

		eventType := notify.EventEnter
		if current == zone.StatusOutside {
			eventType = notify.EventLeave
		}
		if e.metrics != nil {
			e.metrics.IncTransitions(string(eventType))
		}
		e.logger.Info("geofence transition detected",
			"zone_id", z.ID,
			"ward_id", obs.WardID,
			"event_type", string(eventType))

		events = append(events, notify.Event{
			Zone:     z,
			WardID:   obs.WardID,
			Type:     eventType,
			At:       obs.At,
			Location: obs.Point,
		})
	}

	return events
}
