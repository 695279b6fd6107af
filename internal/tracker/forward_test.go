package tracker

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/mireles/tether/internal/geo"
	"github.com/mireles/tether/internal/monitor"
)

func TestForwarder_Submit(t *testing.T) {
	var (
		mu       sync.Mutex
		payloads []ingestPayload
		auth     string
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		auth = r.Header.Get("Authorization")

		var p ingestPayload
		if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		payloads = append(payloads, p)

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusAccepted)
		_ = json.NewEncoder(w).Encode(ingestResult{Accepted: true, Sessions: 2})
	}))
	defer server.Close()

	f := NewForwarder(server.URL, "feed-token", newTestLogger())

	at := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	sessions := f.Submit(monitor.Observation{
		WardID: "ward-1",
		Point:  geo.Point{Lat: 5, Lng: 6},
		At:     at,
	})

	if sessions != 2 {
		t.Errorf("Submit() = %d sessions, want 2", sessions)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(payloads) != 1 {
		t.Fatalf("expected 1 forwarded payload, got %d", len(payloads))
	}
	if payloads[0].WardID != "ward-1" {
		t.Errorf("forwarded ward_id = %s, want ward-1", payloads[0].WardID)
	}
	if payloads[0].RecordedAt != at.Format(time.RFC3339) {
		t.Errorf("forwarded recorded_at = %s, want %s", payloads[0].RecordedAt, at.Format(time.RFC3339))
	}
	if auth != "Bearer feed-token" {
		t.Errorf("Authorization = %q, want bearer token", auth)
	}
}

func TestForwarder_RejectionYieldsZero(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	f := NewForwarder(server.URL, "", newTestLogger())

	sessions := f.Submit(monitor.Observation{WardID: "ward-1", At: time.Now()})
	if sessions != 0 {
		t.Errorf("Submit() = %d sessions, want 0 on rejection", sessions)
	}
}

func TestForwarder_UnreachableEndpoint(t *testing.T) {
	f := NewForwarder("http://127.0.0.1:1/v1/locations", "", newTestLogger())

	sessions := f.Submit(monitor.Observation{WardID: "ward-1", At: time.Now()})
	if sessions != 0 {
		t.Errorf("Submit() = %d sessions, want 0 when unreachable", sessions)
	}
}
