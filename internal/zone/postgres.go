package zone

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/mireles/tether/internal/geo"
)

// PostgresRepository implements Repository using PostgreSQL.
// Polygons are stored as paired latitude/longitude arrays so vertex order
// survives round-trips without a geometry extension.
type PostgresRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgresRepository creates a new PostgresRepository.
func NewPostgresRepository(db *sql.DB, logger *slog.Logger) *PostgresRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresRepository{db: db, logger: logger}
}

// Insert creates a new zone, assigning an ID if one is not set.
func (r *PostgresRepository) Insert(ctx context.Context, z *Zone) error {
	if z.ID == "" {
		z.ID = uuid.New().String()
	}
	lats, lngs := splitPolygon(z.Polygon)

	query := `
		INSERT INTO zones (id, name, owner_id, ward_id, polygon_lats, polygon_lngs, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW())
		RETURNING created_at, updated_at
	`
	err := r.db.QueryRowContext(ctx, query,
		z.ID, z.Name, z.OwnerID, z.WardID, pq.Array(lats), pq.Array(lngs), z.Active,
	).Scan(&z.CreatedAt, &z.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert zone: %w", err)
	}
	return nil
}

// GetByID retrieves a zone by its UUID.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*Zone, error) {
	query := `
		SELECT id, name, owner_id, ward_id, polygon_lats, polygon_lngs, active, created_at, updated_at
		FROM zones
		WHERE id = $1
	`
	z, err := scanZone(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, ErrZoneNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get zone: %w", err)
	}
	return z, nil
}

// ListByOwner returns all zones owned by the given guardian.
func (r *PostgresRepository) ListByOwner(ctx context.Context, ownerID string) ([]*Zone, error) {
	return r.list(ctx, "owner_id", ownerID)
}

// ListByWard returns all zones whose monitored ward is the given entity.
func (r *PostgresRepository) ListByWard(ctx context.Context, wardID string) ([]*Zone, error) {
	return r.list(ctx, "ward_id", wardID)
}

func (r *PostgresRepository) list(ctx context.Context, column, value string) ([]*Zone, error) {
	query := fmt.Sprintf(`
		SELECT id, name, owner_id, ward_id, polygon_lats, polygon_lngs, active, created_at, updated_at
		FROM zones
		WHERE %s = $1
		ORDER BY created_at
	`, column)

	rows, err := r.db.QueryContext(ctx, query, value)
	if err != nil {
		return nil, fmt.Errorf("list zones by %s: %w", column, err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			r.logger.Warn("failed to close zone rows", slog.String("error", err.Error()))
		}
	}()

	var zones []*Zone
	for rows.Next() {
		z, err := scanZone(rows)
		if err != nil {
			return nil, fmt.Errorf("scan zone: %w", err)
		}
		zones = append(zones, z)
	}
	return zones, rows.Err()
}

// Update modifies an existing zone.
func (r *PostgresRepository) Update(ctx context.Context, z *Zone) error {
	lats, lngs := splitPolygon(z.Polygon)

	query := `
		UPDATE zones
		SET name = $2, ward_id = $3, polygon_lats = $4, polygon_lngs = $5, active = $6, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at
	`
	err := r.db.QueryRowContext(ctx, query,
		z.ID, z.Name, z.WardID, pq.Array(lats), pq.Array(lngs), z.Active,
	).Scan(&z.UpdatedAt)
	if err == sql.ErrNoRows {
		return ErrZoneNotFound
	}
	if err != nil {
		return fmt.Errorf("update zone: %w", err)
	}
	return nil
}

// Delete removes a zone. The status row cascades via foreign key.
func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM zones WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete zone: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete zone rows affected: %w", err)
	}
	if affected == 0 {
		return ErrZoneNotFound
	}
	return nil
}

// scanner abstracts *sql.Row and *sql.Rows for shared scanning.
type scanner interface {
	Scan(dest ...any) error
}

func scanZone(s scanner) (*Zone, error) {
	var z Zone
	var lats, lngs pq.Float64Array
	if err := s.Scan(&z.ID, &z.Name, &z.OwnerID, &z.WardID, &lats, &lngs, &z.Active, &z.CreatedAt, &z.UpdatedAt); err != nil {
		return nil, err
	}
	z.Polygon = joinPolygon(lats, lngs)
	return &z, nil
}

func splitPolygon(p geo.Polygon) ([]float64, []float64) {
	lats := make([]float64, len(p))
	lngs := make([]float64, len(p))
	for i, v := range p {
		lats[i] = v.Lat
		lngs[i] = v.Lng
	}
	return lats, lngs
}

func joinPolygon(lats, lngs []float64) geo.Polygon {
	n := len(lats)
	if len(lngs) < n {
		n = len(lngs)
	}
	p := make(geo.Polygon, n)
	for i := 0; i < n; i++ {
		p[i] = geo.Point{Lat: lats[i], Lng: lngs[i]}
	}
	return p
}

// PostgresStatusStore implements StatusStore using PostgreSQL.
// The upsert keeps exactly one row per zone.
type PostgresStatusStore struct {
	db *sql.DB
}

// NewPostgresStatusStore creates a new PostgresStatusStore.
func NewPostgresStatusStore(db *sql.DB) *PostgresStatusStore {
	return &PostgresStatusStore{db: db}
}

// Get returns the recorded status for a zone, StatusUnknown if absent.
func (s *PostgresStatusStore) Get(ctx context.Context, zoneID string) (ZoneStatus, error) {
	var st ZoneStatus
	err := s.db.QueryRowContext(ctx,
		`SELECT zone_id, status, changed_at FROM zone_statuses WHERE zone_id = $1`,
		zoneID,
	).Scan(&st.ZoneID, &st.Status, &st.ChangedAt)
	if err == sql.ErrNoRows {
		return ZoneStatus{ZoneID: zoneID, Status: StatusUnknown}, nil
	}
	if err != nil {
		return ZoneStatus{}, fmt.Errorf("get zone status: %w", err)
	}
	return st, nil
}

// Set overwrites the status for a zone.
func (s *PostgresStatusStore) Set(ctx context.Context, zoneID string, status Status, at time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO zone_statuses (zone_id, status, changed_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (zone_id) DO UPDATE SET status = EXCLUDED.status, changed_at = EXCLUDED.changed_at
	`, zoneID, status, at)
	if err != nil {
		return fmt.Errorf("set zone status: %w", err)
	}
	return nil
}

// Delete removes the status row for a zone.
func (s *PostgresStatusStore) Delete(ctx context.Context, zoneID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM zone_statuses WHERE zone_id = $1`, zoneID); err != nil {
		return fmt.Errorf("delete zone status: %w", err)
	}
	return nil
}
