package notify

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// PostgresLedger implements Ledger using PostgreSQL. Records are insert-only;
// nothing updates or deletes them.
type PostgresLedger struct {
	db *sql.DB
}

// NewPostgresLedger creates a new PostgresLedger.
func NewPostgresLedger(db *sql.DB) *PostgresLedger {
	return &PostgresLedger{db: db}
}

// Append records one dispatch attempt.
func (l *PostgresLedger) Append(ctx context.Context, rec *Record) error {
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}

	query := `
		INSERT INTO notification_records
			(id, zone_id, owner_id, ward_id, event_type, recipient, status, geohash, error_detail, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, COALESCE($10, NOW()))
		RETURNING created_at
	`
	var createdAt any
	if !rec.CreatedAt.IsZero() {
		createdAt = rec.CreatedAt
	}
	err := l.db.QueryRowContext(ctx, query,
		rec.ID, rec.ZoneID, rec.OwnerID, rec.WardID, rec.EventType,
		rec.Recipient, rec.Status, rec.Geohash, rec.ErrorDetail, createdAt,
	).Scan(&rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("append notification record: %w", err)
	}
	return nil
}

// CountSentSince returns the sent count for a zone within the window.
func (l *PostgresLedger) CountSentSince(ctx context.Context, zoneID string, since time.Time) (int, error) {
	var count int
	err := l.db.QueryRowContext(ctx, `
		SELECT COUNT(*)
		FROM notification_records
		WHERE zone_id = $1 AND status = $2 AND created_at >= $3
	`, zoneID, StatusSent, since).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count sent records: %w", err)
	}
	return count, nil
}

// ListByOwner returns the owner's records, newest first.
func (l *PostgresLedger) ListByOwner(ctx context.Context, ownerID string, limit int) ([]*Record, error) {
	query := `
		SELECT id, zone_id, owner_id, ward_id, event_type, recipient, status, geohash, error_detail, created_at
		FROM notification_records
		WHERE owner_id = $1
		ORDER BY created_at DESC
	`
	args := []any{ownerID}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}

	rows, err := l.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list notification records: %w", err)
	}
	defer rows.Close()

	var result []*Record
	for rows.Next() {
		var rec Record
		if err := rows.Scan(
			&rec.ID, &rec.ZoneID, &rec.OwnerID, &rec.WardID, &rec.EventType,
			&rec.Recipient, &rec.Status, &rec.Geohash, &rec.ErrorDetail, &rec.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan notification record: %w", err)
		}
		result = append(result, &rec)
	}
	return result, rows.Err()
}
