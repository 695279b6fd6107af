package friend

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/mireles/tether/internal/jobs"
	"github.com/mireles/tether/internal/notify"
)

// Notifier delivers friend request notifications to recipients.
type Notifier interface {
	DispatchFriendRequest(ctx context.Context, recipientID, senderID string) notify.DispatchStatus
}

// JobMetrics provides centralized background job metrics tracking.
type JobMetrics interface {
	IncJobsTotal(jobType, status string)
	ObserveJobDuration(jobType string, seconds float64)
	IncJobErrors(jobType, errorType string)
}

// DefaultPollInterval is the default interval between poll cycles.
const DefaultPollInterval = 10 * time.Second

// DefaultPollTimeout is the default timeout for a single poll cycle.
const DefaultPollTimeout = 15 * time.Second

// WatcherConfig configures the friend request watcher.
type WatcherConfig struct {
	// UserID is the recipient whose pending requests are watched.
	UserID string
	// Interval is the duration between poll cycles.
	Interval time.Duration
	// Timeout for each poll cycle.
	Timeout time.Duration
	// Logger for watcher activity.
	Logger *slog.Logger
	// JobMetrics for centralized background job tracking.
	JobMetrics JobMetrics
}

// NotifiedSet tracks which request IDs have already produced a
// notification. It lives only as long as the watcher that owns it, so a
// restarted watcher re-notifies requests that are still pending.
type NotifiedSet struct {
	mu  sync.Mutex
	ids map[string]struct{}
}

// NewNotifiedSet creates an empty notified set.
func NewNotifiedSet() *NotifiedSet {
	return &NotifiedSet{ids: make(map[string]struct{})}
}

// Contains reports whether the request ID has been recorded.
func (s *NotifiedSet) Contains(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.ids[id]
	return ok
}

// Add records a request ID.
func (s *NotifiedSet) Add(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ids[id] = struct{}{}
}

// Len returns the number of recorded request IDs.
func (s *NotifiedSet) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.ids)
}

// Watcher periodically polls for pending friend requests addressed to a
// user and dispatches a notification for each one it has not seen before.
type Watcher struct {
	config   WatcherConfig
	repo     Repository
	notifier Notifier
	notified *NotifiedSet

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// NewWatcher creates a friend request watcher for a single recipient.
func NewWatcher(config WatcherConfig, repo Repository, notifier Notifier) *Watcher {
	if config.Interval <= 0 {
		config.Interval = DefaultPollInterval
	}
	if config.Timeout <= 0 {
		config.Timeout = DefaultPollTimeout
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}

	return &Watcher{
		config:   config,
		repo:     repo,
		notifier: notifier,
		notified: NewNotifiedSet(),
	}
}

// Start begins the periodic poll loop.
// Returns immediately; the watcher runs in a background goroutine.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.stopCh = make(chan struct{})
	w.doneCh = make(chan struct{})
	w.mu.Unlock()

	go w.run(ctx)
	return nil
}

// Stop signals the watcher to stop and waits for it to finish.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	stopCh := w.stopCh
	doneCh := w.doneCh
	w.mu.Unlock()

	close(stopCh)
	<-doneCh

	w.mu.Lock()
	w.running = false
	w.mu.Unlock()
}

// IsRunning returns whether the watcher is currently running.
func (w *Watcher) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

// Notified returns the set of request IDs notified during this watcher's
// lifetime.
func (w *Watcher) Notified() *NotifiedSet {
	return w.notified
}

func (w *Watcher) run(ctx context.Context) {
	defer close(w.doneCh)

	ticker := time.NewTicker(w.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.config.Logger.Info("friend request watcher stopping due to context cancellation",
				"user_id", w.config.UserID)
			return
		case <-w.stopCh:
			w.config.Logger.Info("friend request watcher stopping due to stop signal",
				"user_id", w.config.UserID)
			return
		case <-ticker.C:
			w.PollNow(ctx)
		}
	}
}

// PollNow runs a single poll cycle: list pending requests for the user
// and notify any not yet seen by this watcher.
func (w *Watcher) PollNow(parentCtx context.Context) {
	ctx, cancel := context.WithTimeout(parentCtx, w.config.Timeout)
	defer cancel()

	startTime := time.Now()

	pending, err := w.repo.ListPendingForRecipient(ctx, w.config.UserID)
	if err != nil {
		w.config.Logger.Error("failed to list pending friend requests",
			"user_id", w.config.UserID,
			"error", err)
		if w.config.JobMetrics != nil {
			w.config.JobMetrics.IncJobErrors(jobs.JobTypeRequestWatch, "list_error")
			w.config.JobMetrics.IncJobsTotal(jobs.JobTypeRequestWatch, jobs.StatusFailure)
			w.config.JobMetrics.ObserveJobDuration(jobs.JobTypeRequestWatch, time.Since(startTime).Seconds())
		}
		return
	}

	for _, req := range pending {
		if w.notified.Contains(req.ID) {
			continue
		}

		status := w.notifier.DispatchFriendRequest(ctx, req.RecipientID, req.SenderID)
		if status != notify.StatusSent {
			// Left out of the notified set so the next cycle retries.
			w.config.Logger.Warn("friend request notification not delivered",
				"request_id", req.ID,
				"recipient_id", req.RecipientID,
				"status", string(status))
			if w.config.JobMetrics != nil {
				w.config.JobMetrics.IncJobErrors(jobs.JobTypeRequestWatch, "dispatch_error")
			}
			continue
		}

		w.notified.Add(req.ID)
		w.config.Logger.Info("friend request notification sent",
			"request_id", req.ID,
			"recipient_id", req.RecipientID,
			"sender_id", req.SenderID)
	}

	if w.config.JobMetrics != nil {
		w.config.JobMetrics.IncJobsTotal(jobs.JobTypeRequestWatch, jobs.StatusSuccess)
		w.config.JobMetrics.ObserveJobDuration(jobs.JobTypeRequestWatch, time.Since(startTime).Seconds())
	}
}
