package zone

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Common errors for zone operations.
var (
	ErrZoneNotFound = errors.New("zone not found")
	ErrNotOwner     = errors.New("caller does not own this zone")
)

// Repository defines the interface for zone data operations.
type Repository interface {
	// Insert creates a new zone, assigning an ID if one is not set.
	Insert(ctx context.Context, z *Zone) error

	// GetByID retrieves a zone by its UUID.
	GetByID(ctx context.Context, id string) (*Zone, error)

	// ListByOwner returns all zones owned by the given guardian.
	ListByOwner(ctx context.Context, ownerID string) ([]*Zone, error)

	// ListByWard returns all zones whose monitored ward is the given entity.
	// Only the ward's own movement is evaluated against a zone; the owner's
	// movement never is.
	ListByWard(ctx context.Context, wardID string) ([]*Zone, error)

	// Update modifies an existing zone.
	Update(ctx context.Context, z *Zone) error

	// Delete removes a zone and its status row.
	Delete(ctx context.Context, id string) error
}

// StatusStore persists the last evaluated containment state per zone.
// Implementations must keep at most one status per zone.
type StatusStore interface {
	// Get returns the recorded status for a zone. A zone that has never been
	// evaluated yields StatusUnknown with a zero ChangedAt, not an error.
	Get(ctx context.Context, zoneID string) (ZoneStatus, error)

	// Set overwrites the status for a zone.
	Set(ctx context.Context, zoneID string, status Status, at time.Time) error

	// Delete removes the status row for a zone, if any.
	Delete(ctx context.Context, zoneID string) error
}

// InMemoryRepository is an in-memory implementation of Repository.
// Thread-safe via RWMutex.
type InMemoryRepository struct {
	mu    sync.RWMutex
	zones map[string]*Zone
}

// NewInMemoryRepository creates a new in-memory zone repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{zones: make(map[string]*Zone)}
}

// Insert creates a new zone, assigning an ID if one is not set.
func (r *InMemoryRepository) Insert(ctx context.Context, z *Zone) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if z.ID == "" {
		z.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	z.CreatedAt = now
	z.UpdatedAt = now

	zoneCopy := *z
	r.zones[z.ID] = &zoneCopy
	return nil
}

// GetByID retrieves a zone by its UUID.
func (r *InMemoryRepository) GetByID(ctx context.Context, id string) (*Zone, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	z, ok := r.zones[id]
	if !ok {
		return nil, ErrZoneNotFound
	}
	zoneCopy := *z
	return &zoneCopy, nil
}

// ListByOwner returns all zones owned by the given guardian.
func (r *InMemoryRepository) ListByOwner(ctx context.Context, ownerID string) ([]*Zone, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []*Zone
	for _, z := range r.zones {
		if z.OwnerID == ownerID {
			zoneCopy := *z
			result = append(result, &zoneCopy)
		}
	}
	return result, nil
}

// ListByWard returns all zones whose monitored ward is the given entity.
func (r *InMemoryRepository) ListByWard(ctx context.Context, wardID string) ([]*Zone, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []*Zone
	for _, z := range r.zones {
		if z.WardID == wardID {
			zoneCopy := *z
			result = append(result, &zoneCopy)
		}
	}
	return result, nil
}

// Update modifies an existing zone.
func (r *InMemoryRepository) Update(ctx context.Context, z *Zone) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.zones[z.ID]
	if !ok {
		return ErrZoneNotFound
	}

	z.CreatedAt = existing.CreatedAt
	z.UpdatedAt = time.Now().UTC()
	zoneCopy := *z
	r.zones[z.ID] = &zoneCopy
	return nil
}

// Delete removes a zone.
func (r *InMemoryRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.zones[id]; !ok {
		return ErrZoneNotFound
	}
	delete(r.zones, id)
	return nil
}

// InMemoryStatusStore is an in-memory implementation of StatusStore.
// Thread-safe via RWMutex.
type InMemoryStatusStore struct {
	mu       sync.RWMutex
	statuses map[string]ZoneStatus
}

// NewInMemoryStatusStore creates a new in-memory status store.
func NewInMemoryStatusStore() *InMemoryStatusStore {
	return &InMemoryStatusStore{statuses: make(map[string]ZoneStatus)}
}

// Get returns the recorded status for a zone, StatusUnknown if absent.
func (s *InMemoryStatusStore) Get(ctx context.Context, zoneID string) (ZoneStatus, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if st, ok := s.statuses[zoneID]; ok {
		return st, nil
	}
	return ZoneStatus{ZoneID: zoneID, Status: StatusUnknown}, nil
}

// Set overwrites the status for a zone.
func (s *InMemoryStatusStore) Set(ctx context.Context, zoneID string, status Status, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.statuses[zoneID] = ZoneStatus{ZoneID: zoneID, Status: status, ChangedAt: at}
	return nil
}

// Delete removes the status row for a zone.
func (s *InMemoryStatusStore) Delete(ctx context.Context, zoneID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.statuses, zoneID)
	return nil
}
