package monitor

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/mireles/tether/internal/friend"
	"github.com/mireles/tether/internal/notify"
)

// Dispatcher delivers transition events to zone owners.
type Dispatcher interface {
	Dispatch(ctx context.Context, ev notify.Event) notify.DispatchStatus
}

// Common errors for session operations.
var (
	ErrSessionNotRunning = errors.New("monitoring session is not running")
	ErrQueueFull         = errors.New("observation queue is full")
)

// DefaultQueueSize is the default per-ward observation queue capacity.
const DefaultQueueSize = 64

// SessionConfig configures a monitoring session for one guardian.
type SessionConfig struct {
	// OwnerID is the guardian whose zones this session evaluates.
	OwnerID string
	// QueueSize is the per-ward observation queue capacity.
	QueueSize int
	// Logger for session activity.
	Logger *slog.Logger
	// Metrics for monitoring instrumentation.
	Metrics *Metrics
}

// Session runs geofence monitoring for a single guardian. Observations
// for each ward are funneled through a dedicated queue and evaluated one
// at a time in arrival order, so a ward's remembered zone statuses never
// see two evaluations interleave. Out-of-order observations whose
// timestamp predates the last evaluated one are dropped.
//
// The session also owns the guardian's friend request watcher, which
// polls on its own fixed interval independent of observation traffic.
type Session struct {
	config     SessionConfig
	evaluator  *Evaluator
	dispatcher Dispatcher
	watcher    *friend.Watcher

	mu      sync.Mutex
	running bool
	ctx     context.Context
	wards   map[string]chan Observation
	wg      sync.WaitGroup
}

// NewSession creates a monitoring session. The watcher may be nil when
// the guardian has friend notifications disabled.
func NewSession(config SessionConfig, evaluator *Evaluator, dispatcher Dispatcher, watcher *friend.Watcher) *Session {
	if config.QueueSize <= 0 {
		config.QueueSize = DefaultQueueSize
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}

	return &Session{
		config:     config,
		evaluator:  evaluator,
		dispatcher: dispatcher,
		watcher:    watcher,
	}
}

// Start marks the session active and starts the friend request watcher.
// Ward workers are spawned lazily on first observation.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = true
	s.ctx = ctx
	s.wards = make(map[string]chan Observation)
	s.mu.Unlock()

	if s.watcher != nil {
		if err := s.watcher.Start(ctx); err != nil {
			return err
		}
	}

	s.config.Logger.Info("monitoring session started",
		"owner_id", s.config.OwnerID)
	return nil
}

// Stop drains the session: no new observations are accepted, queued ones
// are evaluated to completion, then the watcher is shut down.
func (s *Session) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	for _, ch := range s.wards {
		close(ch)
	}
	s.wards = nil
	s.mu.Unlock()

	s.wg.Wait()
	if s.watcher != nil {
		s.watcher.Stop()
	}

	s.config.Logger.Info("monitoring session stopped",
		"owner_id", s.config.OwnerID)
}

// IsRunning returns whether the session is currently accepting observations.
func (s *Session) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// OwnerID returns the guardian this session belongs to.
func (s *Session) OwnerID() string {
	return s.config.OwnerID
}

// Submit queues an observation for evaluation. Returns
// ErrSessionNotRunning after Stop and ErrQueueFull when the ward's queue
// has no room; in both cases the observation is discarded.
func (s *Session) Submit(obs Observation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		if s.config.Metrics != nil {
			s.config.Metrics.IncDroppedObservations("stopped")
		}
		return ErrSessionNotRunning
	}

	ch, ok := s.wards[obs.WardID]
	if !ok {
		ch = make(chan Observation, s.config.QueueSize)
		s.wards[obs.WardID] = ch
		s.wg.Add(1)
		go s.runWard(s.ctx, obs.WardID, ch)
	}

	select {
	case ch <- obs:
		return nil
	default:
		if s.config.Metrics != nil {
			s.config.Metrics.IncDroppedObservations("queue_full")
		}
		s.config.Logger.Warn("observation queue full",
			"owner_id", s.config.OwnerID,
			"ward_id", obs.WardID)
		return ErrQueueFull
	}
}

// runWard evaluates one ward's observations in order until the queue is
// closed and drained.
func (s *Session) runWard(ctx context.Context, wardID string, ch chan Observation) {
	defer s.wg.Done()

	var lastAt time.Time
	for obs := range ch {
		if !lastAt.IsZero() && obs.At.Before(lastAt) {
			if s.config.Metrics != nil {
				s.config.Metrics.IncDroppedObservations("stale")
			}
			s.config.Logger.Debug("dropping stale observation",
				"ward_id", wardID,
				"observed_at", obs.At,
				"last_at", lastAt)
			continue
		}
		lastAt = obs.At

		events := s.evaluator.Evaluate(ctx, s.config.OwnerID, obs)
		for _, ev := range events {
			s.dispatcher.Dispatch(ctx, ev)
		}
	}
}
