package notify

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/mireles/tether/internal/geo"
)

// Directory resolves recipient addresses and display names.
type Directory interface {
	// ResolveRecipient returns the delivery target for a user.
	ResolveRecipient(ctx context.Context, userID string) (Recipient, error)

	// ResolveDisplayName returns a user's display name.
	ResolveDisplayName(ctx context.Context, userID string) (string, error)
}

// Default rate limit: at most DefaultRateLimitMax sent notifications per zone
// within a rolling DefaultRateLimitWindow.
const (
	DefaultRateLimitWindow = time.Hour
	DefaultRateLimitMax    = 5
)

// DispatcherConfig configures a Dispatcher.
type DispatcherConfig struct {
	// RateLimitWindow is the rolling window over which sent notifications
	// are counted per zone.
	RateLimitWindow time.Duration
	// RateLimitMax is the maximum sent notifications per zone per window.
	RateLimitMax int
	// Logger for dispatch activity.
	Logger *slog.Logger
	// Metrics for dispatch outcome tracking. Optional.
	Metrics *Metrics
}

// Dispatcher resolves recipients, enforces the per-zone rate limit against
// the ledger, invokes the delivery channel, and records every attempt.
//
// Dispatch never lets a failure escape: a lookup, delivery, or persistence
// error is classified, logged, recorded where possible, and folded into the
// returned status. A caller's evaluation loop continues regardless.
type Dispatcher struct {
	ledger    Ledger
	directory Directory
	channel   Channel
	config    DispatcherConfig

	// zoneLocks serializes the rate check plus ledger append per zone so two
	// near-simultaneous transitions cannot both pass the check and exceed
	// the cap by one.
	zoneLocks sync.Map // zoneID -> *sync.Mutex
}

// NewDispatcher creates a Dispatcher.
func NewDispatcher(ledger Ledger, directory Directory, channel Channel, config DispatcherConfig) *Dispatcher {
	if config.RateLimitWindow <= 0 {
		config.RateLimitWindow = DefaultRateLimitWindow
	}
	if config.RateLimitMax <= 0 {
		config.RateLimitMax = DefaultRateLimitMax
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	return &Dispatcher{
		ledger:    ledger,
		directory: directory,
		channel:   channel,
		config:    config,
	}
}

func (d *Dispatcher) lockZone(zoneID string) *sync.Mutex {
	mu, _ := d.zoneLocks.LoadOrStore(zoneID, &sync.Mutex{})
	return mu.(*sync.Mutex)
}

// Dispatch delivers one transition event and returns the recorded outcome.
func (d *Dispatcher) Dispatch(ctx context.Context, ev Event) DispatchStatus {
	logger := d.config.Logger.With(
		slog.String("zone_id", ev.Zone.ID),
		slog.String("ward_id", ev.WardID),
		slog.String("event_type", string(ev.Type)),
	)

	recipient, err := d.directory.ResolveRecipient(ctx, ev.Zone.OwnerID)
	if err != nil {
		logger.Warn("recipient lookup failed", slog.String("error", err.Error()))
		d.record(ctx, logger, ev, Recipient{}, StatusFailed, "recipient lookup: "+err.Error())
		return StatusFailed
	}

	wardName, err := d.directory.ResolveDisplayName(ctx, ev.WardID)
	if err != nil {
		logger.Warn("ward name lookup failed", slog.String("error", err.Error()))
		d.record(ctx, logger, ev, recipient, StatusFailed, "ward lookup: "+err.Error())
		return StatusFailed
	}

	mu := d.lockZone(ev.Zone.ID)
	mu.Lock()
	defer mu.Unlock()

	since := time.Now().Add(-d.config.RateLimitWindow)
	count, err := d.ledger.CountSentSince(ctx, ev.Zone.ID, since)
	if err != nil {
		// Without a trustworthy count the safe choice is to deliver anyway:
		// the limit exists to cap noise, not to gate correctness.
		logger.Warn("rate limit count failed, delivering without limit",
			slog.String("error", err.Error()))
	} else if count >= d.config.RateLimitMax {
		logger.Info("notification rate limited",
			slog.Int("sent_in_window", count),
			slog.Int("max", d.config.RateLimitMax))
		d.record(ctx, logger, ev, recipient, StatusRateLimited, "")
		if d.config.Metrics != nil {
			d.config.Metrics.IncDispatch(string(StatusRateLimited))
		}
		return StatusRateLimited
	}

	msg := RenderTransition(recipient.Name, wardName, ev.Zone.Name, ev.Type, ev.At)

	start := time.Now()
	deliverErr := d.channel.Deliver(ctx, recipient, msg)
	if d.config.Metrics != nil {
		d.config.Metrics.ObserveDeliveryDuration(time.Since(start).Seconds())
	}

	status := StatusSent
	detail := ""
	if deliverErr != nil {
		status = StatusFailed
		detail = deliverErr.Error()
		logger.Warn("notification delivery failed", slog.String("error", detail))
	} else {
		logger.Info("notification sent", slog.String("recipient", recipient.Address))
	}

	d.record(ctx, logger, ev, recipient, status, detail)
	if d.config.Metrics != nil {
		d.config.Metrics.IncDispatch(string(status))
	}
	return status
}

// record appends a ledger entry, logging but otherwise swallowing a write
// failure so the outcome still reaches the caller.
func (d *Dispatcher) record(ctx context.Context, logger *slog.Logger, ev Event, recipient Recipient, status DispatchStatus, detail string) {
	rec := &Record{
		ZoneID:      ev.Zone.ID,
		OwnerID:     ev.Zone.OwnerID,
		WardID:      ev.WardID,
		EventType:   ev.Type,
		Recipient:   recipient.Address,
		Status:      status,
		Geohash:     geo.EncodeGeohash(ev.Location, geo.LogPrecision),
		ErrorDetail: detail,
	}
	if err := d.ledger.Append(ctx, rec); err != nil {
		logger.Error("ledger append failed",
			slog.String("status", string(status)),
			slog.String("error", err.Error()))
	}
}

// DispatchFriendRequest delivers a pending friend request notification. It
// shares the never-throw discipline of Dispatch but is not rate limited or
// ledgered; deduplication is the watcher's responsibility.
func (d *Dispatcher) DispatchFriendRequest(ctx context.Context, recipientID, senderID string) DispatchStatus {
	logger := d.config.Logger.With(
		slog.String("recipient_id", recipientID),
		slog.String("sender_id", senderID),
	)

	recipient, err := d.directory.ResolveRecipient(ctx, recipientID)
	if err != nil {
		logger.Warn("recipient lookup failed", slog.String("error", err.Error()))
		return StatusFailed
	}
	senderName, err := d.directory.ResolveDisplayName(ctx, senderID)
	if err != nil {
		logger.Warn("sender name lookup failed", slog.String("error", err.Error()))
		return StatusFailed
	}

	msg := RenderFriendRequest(recipient.Name, senderName)
	if err := d.channel.Deliver(ctx, recipient, msg); err != nil {
		logger.Warn("friend request delivery failed", slog.String("error", err.Error()))
		if d.config.Metrics != nil {
			d.config.Metrics.IncFriendDispatch(string(StatusFailed))
		}
		return StatusFailed
	}

	logger.Info("friend request notification sent", slog.String("recipient", recipient.Address))
	if d.config.Metrics != nil {
		d.config.Metrics.IncFriendDispatch(string(StatusSent))
	}
	return StatusSent
}
