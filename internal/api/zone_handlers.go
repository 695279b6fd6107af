// Package api provides HTTP handlers for the Tether API.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/mireles/tether/internal/geo"
	"github.com/mireles/tether/internal/middleware"
	"github.com/mireles/tether/internal/validate"
	"github.com/mireles/tether/internal/zone"
)

// CreateZoneRequest represents the request body for creating a zone.
type CreateZoneRequest struct {
	Name    string      `json:"name"`
	WardID  string      `json:"ward_id"`
	Polygon geo.Polygon `json:"polygon"`
	Active  *bool       `json:"active,omitempty"`
}

// UpdateZoneRequest represents the request body for updating a zone.
// Only includes mutable fields (owner and ward are immutable).
type UpdateZoneRequest struct {
	Name    *string     `json:"name,omitempty"`
	Polygon geo.Polygon `json:"polygon,omitempty"`
	Active  *bool       `json:"active,omitempty"`
}

// ZoneHandlers holds dependencies for zone HTTP handlers.
type ZoneHandlers struct {
	repo     zone.Repository
	statuses zone.StatusStore
}

// NewZoneHandlers creates a new ZoneHandlers instance.
func NewZoneHandlers(repo zone.Repository, statuses zone.StatusStore) *ZoneHandlers {
	return &ZoneHandlers{repo: repo, statuses: statuses}
}

// validatePolygon checks vertex count and coordinate ranges.
// Returns error message if validation fails, empty string if valid.
func validatePolygon(p geo.Polygon) string {
	if len(p) < geo.MinPolygonVertices {
		return fmt.Sprintf("polygon must have at least %d vertices", geo.MinPolygonVertices)
	}
	for i, v := range p {
		if v.Lat < -90 || v.Lat > 90 {
			return fmt.Sprintf("vertex %d latitude out of range [-90, 90]", i)
		}
		if v.Lng < -180 || v.Lng > 180 {
			return fmt.Sprintf("vertex %d longitude out of range [-180, 180]", i)
		}
	}
	return ""
}

// HandleZones dispatches POST and GET /v1/zones.
func (h *ZoneHandlers) HandleZones(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.CreateZone(w, r)
	case http.MethodGet:
		h.ListZones(w, r)
	default:
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusMethodNotAllowed, ErrCodeBadRequest, "Method not allowed")
	}
}

// HandleZoneByID dispatches GET, PUT and DELETE /v1/zones/{id}.
func (h *ZoneHandlers) HandleZoneByID(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.GetZone(w, r)
	case http.MethodPut:
		h.UpdateZone(w, r)
	case http.MethodDelete:
		h.DeleteZone(w, r)
	default:
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusMethodNotAllowed, ErrCodeBadRequest, "Method not allowed")
	}
}

// zoneIDFromPath extracts the zone ID from /v1/zones/{id}.
func zoneIDFromPath(path string) string {
	parts := strings.Split(strings.TrimPrefix(path, "/v1/zones/"), "/")
	if len(parts) == 0 {
		return ""
	}
	return parts[0]
}

// CreateZone handles POST /v1/zones - creates a new zone owned by the caller.
func (h *ZoneHandlers) CreateZone(w http.ResponseWriter, r *http.Request) {
	ownerID := middleware.GetUserID(r.Context())
	if ownerID == "" {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeAuthFailed)
		WriteError(w, ctx, http.StatusUnauthorized, ErrCodeAuthFailed, "Authentication required")
		return
	}

	var req CreateZoneRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeBadRequest, "Invalid JSON in request body")
		return
	}

	name, err := validate.ZoneName(req.Name)
	if err != nil {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInvalidZoneName)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeInvalidZoneName, err.Error())
		return
	}

	if req.WardID == "" {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeValidation)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation, "ward_id is required")
		return
	}

	if errMsg := validatePolygon(req.Polygon); errMsg != "" {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInvalidPolygon)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeInvalidPolygon, errMsg)
		return
	}

	// New zones default to active unless the request says otherwise.
	active := true
	if req.Active != nil {
		active = *req.Active
	}

	newZone := &zone.Zone{
		Name:    name,
		OwnerID: ownerID,
		WardID:  req.WardID,
		Polygon: req.Polygon,
		Active:  active,
	}

	if err := h.repo.Insert(r.Context(), newZone); err != nil {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to create zone")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	if err := json.NewEncoder(w).Encode(newZone); err != nil {
		return
	}
}

// ListZones handles GET /v1/zones - lists the caller's zones.
func (h *ZoneHandlers) ListZones(w http.ResponseWriter, r *http.Request) {
	ownerID := middleware.GetUserID(r.Context())
	if ownerID == "" {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeAuthFailed)
		WriteError(w, ctx, http.StatusUnauthorized, ErrCodeAuthFailed, "Authentication required")
		return
	}

	zones, err := h.repo.ListByOwner(r.Context(), ownerID)
	if err != nil {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to list zones")
		return
	}
	if zones == nil {
		zones = []*zone.Zone{}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(zones); err != nil {
		return
	}
}

// GetZone handles GET /v1/zones/{id}.
func (h *ZoneHandlers) GetZone(w http.ResponseWriter, r *http.Request) {
	z, ok := h.ownedZone(w, r)
	if !ok {
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(z); err != nil {
		return
	}
}

// UpdateZone handles PUT /v1/zones/{id} - updates an existing zone.
func (h *ZoneHandlers) UpdateZone(w http.ResponseWriter, r *http.Request) {
	existing, ok := h.ownedZone(w, r)
	if !ok {
		return
	}

	var req UpdateZoneRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeBadRequest, "Invalid JSON in request body")
		return
	}

	if req.Name != nil {
		name, err := validate.ZoneName(*req.Name)
		if err != nil {
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeInvalidZoneName)
			WriteError(w, ctx, http.StatusBadRequest, ErrCodeInvalidZoneName, err.Error())
			return
		}
		existing.Name = name
	}

	redrawn := false
	if req.Polygon != nil {
		if errMsg := validatePolygon(req.Polygon); errMsg != "" {
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeInvalidPolygon)
			WriteError(w, ctx, http.StatusBadRequest, ErrCodeInvalidPolygon, errMsg)
			return
		}
		existing.Polygon = req.Polygon
		redrawn = true
	}

	if req.Active != nil {
		existing.Active = *req.Active
	}

	if err := h.repo.Update(r.Context(), existing); err != nil {
		if errors.Is(err, zone.ErrZoneNotFound) {
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeZoneNotFound)
			WriteError(w, ctx, http.StatusNotFound, ErrCodeZoneNotFound, "Zone not found")
			return
		}
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to update zone")
		return
	}

	// A redrawn boundary invalidates the recorded containment state; the next
	// observation re-seeds it without firing a notification.
	if redrawn {
		if err := h.statuses.Delete(r.Context(), existing.ID); err != nil {
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
			WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to reset zone status")
			return
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(existing); err != nil {
		return
	}
}

// DeleteZone handles DELETE /v1/zones/{id} - deletes a zone and its status row.
func (h *ZoneHandlers) DeleteZone(w http.ResponseWriter, r *http.Request) {
	z, ok := h.ownedZone(w, r)
	if !ok {
		return
	}

	if err := h.repo.Delete(r.Context(), z.ID); err != nil {
		if errors.Is(err, zone.ErrZoneNotFound) {
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeZoneNotFound)
			WriteError(w, ctx, http.StatusNotFound, ErrCodeZoneNotFound, "Zone not found")
			return
		}
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to delete zone")
		return
	}

	if err := h.statuses.Delete(r.Context(), z.ID); err != nil {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to delete zone status")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ownedZone loads the zone named in the path and verifies the caller owns it.
// On failure it writes the error response and returns ok=false.
func (h *ZoneHandlers) ownedZone(w http.ResponseWriter, r *http.Request) (*zone.Zone, bool) {
	ownerID := middleware.GetUserID(r.Context())
	if ownerID == "" {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeAuthFailed)
		WriteError(w, ctx, http.StatusUnauthorized, ErrCodeAuthFailed, "Authentication required")
		return nil, false
	}

	zoneID := zoneIDFromPath(r.URL.Path)
	if zoneID == "" {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeBadRequest, "Zone ID is required")
		return nil, false
	}

	z, err := h.repo.GetByID(r.Context(), zoneID)
	if err != nil {
		if errors.Is(err, zone.ErrZoneNotFound) {
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeZoneNotFound)
			WriteError(w, ctx, http.StatusNotFound, ErrCodeZoneNotFound, "Zone not found")
			return nil, false
		}
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to retrieve zone")
		return nil, false
	}

	if z.OwnerID != ownerID {
		// Existence of another guardian's zone is not disclosed.
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeZoneNotFound)
		WriteError(w, ctx, http.StatusNotFound, ErrCodeZoneNotFound, "Zone not found")
		return nil, false
	}

	return z, true
}
