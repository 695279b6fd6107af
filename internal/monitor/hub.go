package monitor

import (
	"context"
	"errors"
	"log/slog"
	"sync"
)

// Common errors for hub operations.
var (
	ErrSessionActive = errors.New("monitoring session already active")
	ErrNoSession     = errors.New("no active monitoring session")
)

// SessionFactory builds a session for a guardian. The hub uses it so the
// wiring of evaluator, dispatcher and watcher stays at startup.
type SessionFactory func(ownerID string) *Session

// Hub tracks the active monitoring session per guardian and fans
// incoming observations out to every session whose zones may care.
type Hub struct {
	factory SessionFactory
	logger  *slog.Logger
	metrics *Metrics

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewHub creates a session hub.
func NewHub(factory SessionFactory, logger *slog.Logger, metrics *Metrics) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		factory:  factory,
		logger:   logger,
		metrics:  metrics,
		sessions: make(map[string]*Session),
	}
}

// StartSession starts monitoring for a guardian. Returns
// ErrSessionActive if one is already running.
func (h *Hub) StartSession(ctx context.Context, ownerID string) (*Session, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.sessions[ownerID]; ok {
		return nil, ErrSessionActive
	}

	s := h.factory(ownerID)
	if err := s.Start(ctx); err != nil {
		return nil, err
	}
	h.sessions[ownerID] = s
	if h.metrics != nil {
		h.metrics.SetActiveSessions(len(h.sessions))
	}
	return s, nil
}

// StopSession stops and removes a guardian's session. Returns
// ErrNoSession if none is running.
func (h *Hub) StopSession(ownerID string) error {
	h.mu.Lock()
	s, ok := h.sessions[ownerID]
	if ok {
		delete(h.sessions, ownerID)
		if h.metrics != nil {
			h.metrics.SetActiveSessions(len(h.sessions))
		}
	}
	h.mu.Unlock()

	if !ok {
		return ErrNoSession
	}
	s.Stop()
	return nil
}

// HasSession reports whether a guardian has an active session.
func (h *Hub) HasSession(ownerID string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	_, ok := h.sessions[ownerID]
	return ok
}

// Submit routes an observation to every active session. Each guardian's
// session filters for its own zones, so the fan-out is safe even when
// several guardians watch the same ward. Returns the number of sessions
// that accepted the observation.
func (h *Hub) Submit(obs Observation) int {
	h.mu.Lock()
	sessions := make([]*Session, 0, len(h.sessions))
	for _, s := range h.sessions {
		sessions = append(sessions, s)
	}
	h.mu.Unlock()

	var accepted int
	for _, s := range sessions {
		if err := s.Submit(obs); err == nil {
			accepted++
		}
	}
	return accepted
}

// Shutdown stops every active session.
func (h *Hub) Shutdown() {
	h.mu.Lock()
	sessions := h.sessions
	h.sessions = make(map[string]*Session)
	if h.metrics != nil {
		h.metrics.SetActiveSessions(0)
	}
	h.mu.Unlock()

	for ownerID, s := range sessions {
		s.Stop()
		h.logger.Info("monitoring session stopped during shutdown",
			"owner_id", ownerID)
	}
}
