package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/mireles/tether/internal/geo"
	"github.com/mireles/tether/internal/middleware"
	"github.com/mireles/tether/internal/zone"
)

// authedRequest builds a request with the given user ID in context.
func authedRequest(method, target string, body []byte, userID string) *http.Request {
	var req *http.Request
	if body != nil {
		req = httptest.NewRequest(method, target, bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	if userID != "" {
		req = req.WithContext(middleware.SetUserID(req.Context(), userID))
	}
	return req
}

func squareAroundOrigin() geo.Polygon {
	return geo.Polygon{
		{Lat: 0, Lng: 0},
		{Lat: 0, Lng: 10},
		{Lat: 10, Lng: 10},
		{Lat: 10, Lng: 0},
	}
}

// TestCreateZone_Success tests successful zone creation.
func TestCreateZone_Success(t *testing.T) {
	repo := zone.NewInMemoryRepository()
	handlers := NewZoneHandlers(repo, zone.NewInMemoryStatusStore())

	body, err := json.Marshal(CreateZoneRequest{
		Name:    "Home Perimeter",
		WardID:  "ward-1",
		Polygon: squareAroundOrigin(),
	})
	if err != nil {
		t.Fatalf("failed to marshal request: %v", err)
	}

	req := authedRequest(http.MethodPost, "/v1/zones", body, "guardian-1")
	w := httptest.NewRecorder()

	handlers.CreateZone(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", w.Code, w.Body.String())
	}

	var created zone.Zone
	if err := json.NewDecoder(w.Body).Decode(&created); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	if created.ID == "" {
		t.Error("expected zone ID to be assigned")
	}
	if created.OwnerID != "guardian-1" {
		t.Errorf("expected owner_id 'guardian-1', got %s", created.OwnerID)
	}
	if created.WardID != "ward-1" {
		t.Errorf("expected ward_id 'ward-1', got %s", created.WardID)
	}
	if !created.Active {
		t.Error("expected new zone to default to active")
	}
	if created.CreatedAt.IsZero() {
		t.Error("expected created_at to be set")
	}
}

// TestCreateZone_InactiveOnRequest tests that active=false is honored.
func TestCreateZone_InactiveOnRequest(t *testing.T) {
	repo := zone.NewInMemoryRepository()
	handlers := NewZoneHandlers(repo, zone.NewInMemoryStatusStore())

	inactive := false
	body, _ := json.Marshal(CreateZoneRequest{
		Name:    "Dormant Zone",
		WardID:  "ward-1",
		Polygon: squareAroundOrigin(),
		Active:  &inactive,
	})

	w := httptest.NewRecorder()
	handlers.CreateZone(w, authedRequest(http.MethodPost, "/v1/zones", body, "guardian-1"))

	if w.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d", w.Code)
	}

	var created zone.Zone
	if err := json.NewDecoder(w.Body).Decode(&created); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if created.Active {
		t.Error("expected zone to be created inactive")
	}
}

// TestCreateZone_Unauthenticated tests rejection without a user in context.
func TestCreateZone_Unauthenticated(t *testing.T) {
	handlers := NewZoneHandlers(zone.NewInMemoryRepository(), zone.NewInMemoryStatusStore())

	body, _ := json.Marshal(CreateZoneRequest{
		Name:    "Home Perimeter",
		WardID:  "ward-1",
		Polygon: squareAroundOrigin(),
	})

	w := httptest.NewRecorder()
	handlers.CreateZone(w, authedRequest(http.MethodPost, "/v1/zones", body, ""))

	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected status 401, got %d", w.Code)
	}
}

// TestCreateZone_Validation tests rejection of bad names and polygons.
func TestCreateZone_Validation(t *testing.T) {
	tests := []struct {
		name     string
		req      CreateZoneRequest
		wantCode string
	}{
		{
			name: "empty name",
			req: CreateZoneRequest{
				Name:    "",
				WardID:  "ward-1",
				Polygon: squareAroundOrigin(),
			},
			wantCode: ErrCodeInvalidZoneName,
		},
		{
			name: "missing ward",
			req: CreateZoneRequest{
				Name:    "Home Perimeter",
				Polygon: squareAroundOrigin(),
			},
			wantCode: ErrCodeValidation,
		},
		{
			name: "two vertices",
			req: CreateZoneRequest{
				Name:   "Home Perimeter",
				WardID: "ward-1",
				Polygon: geo.Polygon{
					{Lat: 0, Lng: 0},
					{Lat: 0, Lng: 10},
				},
			},
			wantCode: ErrCodeInvalidPolygon,
		},
		{
			name: "latitude out of range",
			req: CreateZoneRequest{
				Name:   "Home Perimeter",
				WardID: "ward-1",
				Polygon: geo.Polygon{
					{Lat: 91, Lng: 0},
					{Lat: 0, Lng: 10},
					{Lat: 10, Lng: 10},
				},
			},
			wantCode: ErrCodeInvalidPolygon,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handlers := NewZoneHandlers(zone.NewInMemoryRepository(), zone.NewInMemoryStatusStore())

			body, _ := json.Marshal(tt.req)
			w := httptest.NewRecorder()
			handlers.CreateZone(w, authedRequest(http.MethodPost, "/v1/zones", body, "guardian-1"))

			if w.Code != http.StatusBadRequest {
				t.Fatalf("expected status 400, got %d", w.Code)
			}

			var errResp ErrorResponse
			if err := json.NewDecoder(w.Body).Decode(&errResp); err != nil {
				t.Fatalf("failed to decode error response: %v", err)
			}
			if errResp.Error.Code != tt.wantCode {
				t.Errorf("expected error code %s, got %s", tt.wantCode, errResp.Error.Code)
			}
		})
	}
}

// TestListZones_OwnerScoped tests that listing only returns the caller's zones.
func TestListZones_OwnerScoped(t *testing.T) {
	repo := zone.NewInMemoryRepository()
	handlers := NewZoneHandlers(repo, zone.NewInMemoryStatusStore())

	seed := []*zone.Zone{
		{Name: "Zone A", OwnerID: "guardian-1", WardID: "ward-1", Polygon: squareAroundOrigin(), Active: true},
		{Name: "Zone B", OwnerID: "guardian-1", WardID: "ward-2", Polygon: squareAroundOrigin(), Active: true},
		{Name: "Zone C", OwnerID: "guardian-2", WardID: "ward-1", Polygon: squareAroundOrigin(), Active: true},
	}
	for _, z := range seed {
		if err := repo.Insert(context.Background(), z); err != nil {
			t.Fatalf("failed to seed zone: %v", err)
		}
	}

	w := httptest.NewRecorder()
	handlers.ListZones(w, authedRequest(http.MethodGet, "/v1/zones", nil, "guardian-1"))

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}

	var zones []*zone.Zone
	if err := json.NewDecoder(w.Body).Decode(&zones); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(zones) != 2 {
		t.Errorf("expected 2 zones for guardian-1, got %d", len(zones))
	}
	for _, z := range zones {
		if z.OwnerID != "guardian-1" {
			t.Errorf("unexpected zone owner %s in result", z.OwnerID)
		}
	}
}

// TestGetZone_OtherOwnerHidden tests that another guardian's zone reads as 404.
func TestGetZone_OtherOwnerHidden(t *testing.T) {
	repo := zone.NewInMemoryRepository()
	handlers := NewZoneHandlers(repo, zone.NewInMemoryStatusStore())

	z := &zone.Zone{Name: "Zone A", OwnerID: "guardian-1", WardID: "ward-1", Polygon: squareAroundOrigin(), Active: true}
	if err := repo.Insert(context.Background(), z); err != nil {
		t.Fatalf("failed to seed zone: %v", err)
	}

	w := httptest.NewRecorder()
	handlers.GetZone(w, authedRequest(http.MethodGet, "/v1/zones/"+z.ID, nil, "guardian-2"))

	if w.Code != http.StatusNotFound {
		t.Errorf("expected status 404 for non-owner, got %d", w.Code)
	}
}

// TestUpdateZone_RedrawResetsStatus tests that replacing the polygon clears
// the recorded containment state.
func TestUpdateZone_RedrawResetsStatus(t *testing.T) {
	repo := zone.NewInMemoryRepository()
	statuses := zone.NewInMemoryStatusStore()
	handlers := NewZoneHandlers(repo, statuses)

	z := &zone.Zone{Name: "Zone A", OwnerID: "guardian-1", WardID: "ward-1", Polygon: squareAroundOrigin(), Active: true}
	if err := repo.Insert(context.Background(), z); err != nil {
		t.Fatalf("failed to seed zone: %v", err)
	}
	if err := statuses.Set(context.Background(), z.ID, zone.StatusInside, z.CreatedAt); err != nil {
		t.Fatalf("failed to seed status: %v", err)
	}

	body, _ := json.Marshal(UpdateZoneRequest{
		Polygon: geo.Polygon{
			{Lat: 20, Lng: 20},
			{Lat: 20, Lng: 30},
			{Lat: 30, Lng: 30},
		},
	})

	w := httptest.NewRecorder()
	handlers.UpdateZone(w, authedRequest(http.MethodPut, "/v1/zones/"+z.ID, body, "guardian-1"))

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	st, err := statuses.Get(context.Background(), z.ID)
	if err != nil {
		t.Fatalf("failed to read status: %v", err)
	}
	if st.Status != zone.StatusUnknown {
		t.Errorf("expected status reset to unknown after redraw, got %s", st.Status)
	}
}

// TestUpdateZone_RenameKeepsStatus tests that a rename leaves the recorded
// containment state alone.
func TestUpdateZone_RenameKeepsStatus(t *testing.T) {
	repo := zone.NewInMemoryRepository()
	statuses := zone.NewInMemoryStatusStore()
	handlers := NewZoneHandlers(repo, statuses)

	z := &zone.Zone{Name: "Zone A", OwnerID: "guardian-1", WardID: "ward-1", Polygon: squareAroundOrigin(), Active: true}
	if err := repo.Insert(context.Background(), z); err != nil {
		t.Fatalf("failed to seed zone: %v", err)
	}
	if err := statuses.Set(context.Background(), z.ID, zone.StatusInside, z.CreatedAt); err != nil {
		t.Fatalf("failed to seed status: %v", err)
	}

	newName := "Zone A Renamed"
	body, _ := json.Marshal(UpdateZoneRequest{Name: &newName})

	w := httptest.NewRecorder()
	handlers.UpdateZone(w, authedRequest(http.MethodPut, "/v1/zones/"+z.ID, body, "guardian-1"))

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}

	var updated zone.Zone
	if err := json.NewDecoder(w.Body).Decode(&updated); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if updated.Name != newName {
		t.Errorf("expected name %q, got %q", newName, updated.Name)
	}

	st, err := statuses.Get(context.Background(), z.ID)
	if err != nil {
		t.Fatalf("failed to read status: %v", err)
	}
	if st.Status != zone.StatusInside {
		t.Errorf("expected status preserved on rename, got %s", st.Status)
	}
}

// TestUpdateZone_NonOwnerForbidden tests that only the owner may mutate.
func TestUpdateZone_NonOwnerForbidden(t *testing.T) {
	repo := zone.NewInMemoryRepository()
	handlers := NewZoneHandlers(repo, zone.NewInMemoryStatusStore())

	z := &zone.Zone{Name: "Zone A", OwnerID: "guardian-1", WardID: "ward-1", Polygon: squareAroundOrigin(), Active: true}
	if err := repo.Insert(context.Background(), z); err != nil {
		t.Fatalf("failed to seed zone: %v", err)
	}

	newName := "Hijacked"
	body, _ := json.Marshal(UpdateZoneRequest{Name: &newName})

	w := httptest.NewRecorder()
	handlers.UpdateZone(w, authedRequest(http.MethodPut, "/v1/zones/"+z.ID, body, "guardian-2"))

	if w.Code != http.StatusNotFound {
		t.Errorf("expected status 404 for non-owner, got %d", w.Code)
	}

	unchanged, err := repo.GetByID(context.Background(), z.ID)
	if err != nil {
		t.Fatalf("failed to re-read zone: %v", err)
	}
	if unchanged.Name != "Zone A" {
		t.Errorf("expected name unchanged, got %q", unchanged.Name)
	}
}

// TestDeleteZone_RemovesStatus tests that delete clears both rows.
func TestDeleteZone_RemovesStatus(t *testing.T) {
	repo := zone.NewInMemoryRepository()
	statuses := zone.NewInMemoryStatusStore()
	handlers := NewZoneHandlers(repo, statuses)

	z := &zone.Zone{Name: "Zone A", OwnerID: "guardian-1", WardID: "ward-1", Polygon: squareAroundOrigin(), Active: true}
	if err := repo.Insert(context.Background(), z); err != nil {
		t.Fatalf("failed to seed zone: %v", err)
	}
	if err := statuses.Set(context.Background(), z.ID, zone.StatusInside, z.CreatedAt); err != nil {
		t.Fatalf("failed to seed status: %v", err)
	}

	w := httptest.NewRecorder()
	handlers.DeleteZone(w, authedRequest(http.MethodDelete, "/v1/zones/"+z.ID, nil, "guardian-1"))

	if w.Code != http.StatusNoContent {
		t.Fatalf("expected status 204, got %d", w.Code)
	}

	if _, err := repo.GetByID(context.Background(), z.ID); err == nil {
		t.Error("expected zone to be gone after delete")
	}

	st, err := statuses.Get(context.Background(), z.ID)
	if err != nil {
		t.Fatalf("failed to read status: %v", err)
	}
	if st.Status != zone.StatusUnknown {
		t.Errorf("expected status row removed, got %s", st.Status)
	}
}

// TestHandleZones_MethodNotAllowed tests the method dispatcher.
func TestHandleZones_MethodNotAllowed(t *testing.T) {
	handlers := NewZoneHandlers(zone.NewInMemoryRepository(), zone.NewInMemoryStatusStore())

	w := httptest.NewRecorder()
	handlers.HandleZones(w, authedRequest(http.MethodPatch, "/v1/zones", nil, "guardian-1"))

	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected status 405, got %d", w.Code)
	}
}
