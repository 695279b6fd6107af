package friend

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
)

// PostgresRepository implements Repository using PostgreSQL.
type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository creates a new PostgresRepository.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Insert creates a new pending request, assigning an ID if one is not set.
func (r *PostgresRepository) Insert(ctx context.Context, req *Request) error {
	if req.ID == "" {
		req.ID = uuid.New().String()
	}
	if req.Status == "" {
		req.Status = StatusPending
	}

	query := `
		INSERT INTO friend_requests (id, sender_id, recipient_id, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, NOW(), NOW())
		RETURNING created_at, updated_at
	`
	err := r.db.QueryRowContext(ctx, query, req.ID, req.SenderID, req.RecipientID, req.Status).
		Scan(&req.CreatedAt, &req.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert friend request: %w", err)
	}
	return nil
}

// GetByID retrieves a request by its UUID.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*Request, error) {
	var req Request
	err := r.db.QueryRowContext(ctx, `
		SELECT id, sender_id, recipient_id, status, created_at, updated_at
		FROM friend_requests
		WHERE id = $1
	`, id).Scan(&req.ID, &req.SenderID, &req.RecipientID, &req.Status, &req.CreatedAt, &req.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrRequestNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get friend request: %w", err)
	}
	return &req, nil
}

// ListPendingForRecipient returns pending requests for a user, oldest first.
func (r *PostgresRepository) ListPendingForRecipient(ctx context.Context, recipientID string) ([]*Request, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, sender_id, recipient_id, status, created_at, updated_at
		FROM friend_requests
		WHERE recipient_id = $1 AND status = $2
		ORDER BY created_at
	`, recipientID, StatusPending)
	if err != nil {
		return nil, fmt.Errorf("list pending friend requests: %w", err)
	}
	defer rows.Close()

	var result []*Request
	for rows.Next() {
		var req Request
		if err := rows.Scan(&req.ID, &req.SenderID, &req.RecipientID, &req.Status, &req.CreatedAt, &req.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan friend request: %w", err)
		}
		result = append(result, &req)
	}
	return result, rows.Err()
}

// SetStatus transitions a pending request to accepted or rejected.
func (r *PostgresRepository) SetStatus(ctx context.Context, id string, status RequestStatus) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE friend_requests
		SET status = $2, updated_at = NOW()
		WHERE id = $1 AND status = $3
	`, id, status, StatusPending)
	if err != nil {
		return fmt.Errorf("set friend request status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("set friend request status rows affected: %w", err)
	}
	if affected == 0 {
		// Distinguish missing from already-resolved for a useful error.
		if _, err := r.GetByID(ctx, id); err != nil {
			return err
		}
		return ErrNotPending
	}
	return nil
}
