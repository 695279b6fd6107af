package notify

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Ledger is the append-only log of dispatch attempts. It backs both the
// per-zone rolling rate-limit window and the audit trail.
type Ledger interface {
	// Append records one dispatch attempt.
	Append(ctx context.Context, rec *Record) error

	// CountSentSince returns how many records for the zone have status sent
	// and a timestamp at or after since.
	CountSentSince(ctx context.Context, zoneID string, since time.Time) (int, error)

	// ListByOwner returns the owner's records, newest first.
	// Limit caps the result size (0 = no limit).
	ListByOwner(ctx context.Context, ownerID string, limit int) ([]*Record, error)
}

// InMemoryLedger is an in-memory implementation of Ledger.
// Thread-safe via RWMutex.
type InMemoryLedger struct {
	mu      sync.RWMutex
	records []*Record
}

// NewInMemoryLedger creates a new in-memory ledger.
func NewInMemoryLedger() *InMemoryLedger {
	return &InMemoryLedger{}
}

// Append records one dispatch attempt.
func (l *InMemoryLedger) Append(ctx context.Context, rec *Record) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	recCopy := *rec
	l.records = append(l.records, &recCopy)
	return nil
}

// CountSentSince returns the sent count for a zone within the window.
func (l *InMemoryLedger) CountSentSince(ctx context.Context, zoneID string, since time.Time) (int, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	count := 0
	for _, rec := range l.records {
		if rec.ZoneID == zoneID && rec.Status == StatusSent && !rec.CreatedAt.Before(since) {
			count++
		}
	}
	return count, nil
}

// ListByOwner returns the owner's records, newest first.
func (l *InMemoryLedger) ListByOwner(ctx context.Context, ownerID string, limit int) ([]*Record, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var result []*Record
	for i := len(l.records) - 1; i >= 0; i-- {
		rec := l.records[i]
		if rec.OwnerID == ownerID {
			recCopy := *rec
			result = append(result, &recCopy)
			if limit > 0 && len(result) >= limit {
				break
			}
		}
	}
	return result, nil
}
