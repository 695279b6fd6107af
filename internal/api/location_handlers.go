package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/mireles/tether/internal/geo"
	"github.com/mireles/tether/internal/middleware"
	"github.com/mireles/tether/internal/monitor"
)

// IngestLocationRequest represents the request body for submitting one
// ward observation.
type IngestLocationRequest struct {
	WardID     string  `json:"ward_id"`
	Lat        float64 `json:"lat"`
	Lng        float64 `json:"lng"`
	RecordedAt string  `json:"recorded_at,omitempty"`
}

// IngestLocationResponse reports how many running sessions accepted the
// observation for evaluation.
type IngestLocationResponse struct {
	Accepted bool `json:"accepted"`
	Sessions int  `json:"sessions"`
}

// LocationHandlers holds dependencies for location ingest handlers.
type LocationHandlers struct {
	hub *monitor.Hub
}

// NewLocationHandlers creates a new LocationHandlers instance.
func NewLocationHandlers(hub *monitor.Hub) *LocationHandlers {
	return &LocationHandlers{hub: hub}
}

// IngestLocation handles POST /v1/locations - queues one observation for
// asynchronous evaluation by every running session. Evaluation outcome is
// never part of the response.
func (h *LocationHandlers) IngestLocation(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusMethodNotAllowed, ErrCodeBadRequest, "Method not allowed")
		return
	}

	var req IngestLocationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeBadRequest, "Invalid JSON in request body")
		return
	}

	if req.WardID == "" {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeValidation)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation, "ward_id is required")
		return
	}
	if req.Lat < -90 || req.Lat > 90 {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeValidation)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation, "lat out of range [-90, 90]")
		return
	}
	if req.Lng < -180 || req.Lng > 180 {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeValidation)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation, "lng out of range [-180, 180]")
		return
	}

	at := time.Now().UTC()
	if req.RecordedAt != "" {
		parsed, err := time.Parse(time.RFC3339, req.RecordedAt)
		if err != nil {
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeValidation)
			WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation, "recorded_at must be RFC 3339")
			return
		}
		at = parsed
	}

	sessions := h.hub.Submit(monitor.Observation{
		WardID: req.WardID,
		Point:  geo.Point{Lat: req.Lat, Lng: req.Lng},
		At:     at,
	})

	resp := IngestLocationResponse{Accepted: true, Sessions: sessions}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		return
	}
}
