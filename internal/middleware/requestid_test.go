package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
)

func TestRequestID_GeneratesUUID(t *testing.T) {
	var contextID string
	handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		contextID = GetRequestID(r.Context())
	}))

	req := httptest.NewRequest(http.MethodPost, "/v1/locations", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if contextID == "" {
		t.Fatal("expected request ID in context")
	}
	if _, err := uuid.Parse(contextID); err != nil {
		t.Errorf("generated ID %q is not a UUID: %v", contextID, err)
	}
	if got := rr.Header().Get(RequestIDHeader); got != contextID {
		t.Errorf("response header = %q, want %q", got, contextID)
	}
}

func TestRequestID_HonorsCallerHeader(t *testing.T) {
	callerID := "tracker-7f3a1c"
	var contextID string
	handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		contextID = GetRequestID(r.Context())
	}))

	req := httptest.NewRequest(http.MethodPost, "/v1/locations", nil)
	req.Header.Set(RequestIDHeader, callerID)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if contextID != callerID {
		t.Errorf("context ID = %q, want %q", contextID, callerID)
	}
	if got := rr.Header().Get(RequestIDHeader); got != callerID {
		t.Errorf("response header = %q, want %q", got, callerID)
	}
}

func TestGetRequestID_MissingMiddleware(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/v1/zones", nil)
	if id := GetRequestID(req.Context()); id != "" {
		t.Errorf("expected empty ID without middleware, got %q", id)
	}
}
