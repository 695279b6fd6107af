//go:build integration

package migrations_test

import (
	"database/sql"
	"testing"
)

// insertRequestPair creates sender and recipient users and returns their ids.
func insertRequestPair(t *testing.T, db *sql.DB, tag string) (string, string) {
	t.Helper()
	sender := insertTestUser(t, db, "sender-"+tag+"@example.com")
	recipient := insertTestUser(t, db, "recipient-"+tag+"@example.com")
	return sender, recipient
}

// TestMigration000004_SelfRequestRejected verifies the sender/recipient
// inequality constraint.
func TestMigration000004_SelfRequestRejected(t *testing.T) {
	db := openTestDB(t)
	userID := insertTestUser(t, db, "self@example.com")

	_, err := db.Exec(`
		INSERT INTO friend_requests (id, sender_id, recipient_id)
		VALUES (gen_random_uuid(), $1, $1)
	`, userID)
	if err == nil {
		t.Fatal("Expected error when inserting self-addressed request, but got none")
	}
	t.Logf("Got expected error: %v", err)
}

// TestMigration000004_StatusCheckConstraint verifies the request status CHECK
// constraint and its pending default.
func TestMigration000004_StatusCheckConstraint(t *testing.T) {
	db := openTestDB(t)
	sender, recipient := insertRequestPair(t, db, "check")

	_, err := db.Exec(`
		INSERT INTO friend_requests (id, sender_id, recipient_id, status)
		VALUES (gen_random_uuid(), $1, $2, 'maybe')
	`, sender, recipient)
	if err == nil {
		t.Fatal("Expected error when inserting invalid status, but got none")
	}
	t.Logf("Got expected error: %v", err)

	var requestID, status string
	err = db.QueryRow(`
		INSERT INTO friend_requests (id, sender_id, recipient_id)
		VALUES (gen_random_uuid(), $1, $2)
		RETURNING id, status
	`, sender, recipient).Scan(&requestID, &status)
	if err != nil {
		t.Fatalf("failed to insert request: %v", err)
	}
	defer func() {
		_, _ = db.Exec("DELETE FROM friend_requests WHERE id = $1", requestID)
	}()

	if status != "pending" {
		t.Errorf("Expected status to default to 'pending', got %q", status)
	}
}

// TestMigration000004_CascadeOnUserDelete verifies that deleting a user
// removes their requests.
func TestMigration000004_CascadeOnUserDelete(t *testing.T) {
	db := openTestDB(t)
	sender, recipient := insertRequestPair(t, db, "cascade")

	var requestID string
	err := db.QueryRow(`
		INSERT INTO friend_requests (id, sender_id, recipient_id)
		VALUES (gen_random_uuid(), $1, $2)
		RETURNING id
	`, sender, recipient).Scan(&requestID)
	if err != nil {
		t.Fatalf("failed to insert request: %v", err)
	}

	_, err = db.Exec("DELETE FROM users WHERE id = $1", sender)
	if err != nil {
		t.Fatalf("failed to delete sender: %v", err)
	}

	var count int
	err = db.QueryRow("SELECT COUNT(*) FROM friend_requests WHERE id = $1", requestID).Scan(&count)
	if err != nil {
		t.Fatalf("failed to count requests: %v", err)
	}
	if count != 0 {
		t.Errorf("Expected 0 requests after sender delete, got %d", count)
	}
}
