package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

type accessLogEntry struct {
	Level     string `json:"level"`
	Msg       string `json:"msg"`
	Method    string `json:"method"`
	Path      string `json:"path"`
	Status    int    `json:"status"`
	LatencyMS int64  `json:"latency_ms"`
	Size      int    `json:"size"`
	RequestID string `json:"request_id"`
	UserID    string `json:"user_id"`
	ErrorCode string `json:"error_code"`
}

func newTestLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(buf, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
}

// serveLogged runs one request through the Logging middleware and returns
// the parsed access-log entry.
func serveLogged(t *testing.T, inner http.HandlerFunc, req *http.Request) accessLogEntry {
	t.Helper()

	buf := &bytes.Buffer{}
	handler := Logging(newTestLogger(buf))(inner)
	handler.ServeHTTP(httptest.NewRecorder(), req)

	var entry accessLogEntry
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("failed to parse log entry: %v, log: %s", err, buf.String())
	}
	return entry
}

func TestLogging_BasicFields(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/v1/zones", nil)
	entry := serveLogged(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("hello"))
	}, req)

	if entry.Method != "GET" {
		t.Errorf("expected method GET, got %s", entry.Method)
	}
	if entry.Path != "/v1/zones" {
		t.Errorf("expected path /v1/zones, got %s", entry.Path)
	}
	if entry.Status != 200 {
		t.Errorf("expected status 200, got %d", entry.Status)
	}
	if entry.LatencyMS < 0 {
		t.Errorf("expected latency_ms >= 0, got %d", entry.LatencyMS)
	}
	if entry.Size != len("hello") {
		t.Errorf("expected size %d, got %d", len("hello"), entry.Size)
	}
	if entry.Level != "INFO" {
		t.Errorf("expected level INFO, got %s", entry.Level)
	}
}

func TestLogging_WithRequestID(t *testing.T) {
	buf := &bytes.Buffer{}
	handler := RequestID(Logging(newTestLogger(buf))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	})))

	req := httptest.NewRequest(http.MethodPost, "/v1/locations", nil)
	req.Header.Set(RequestIDHeader, "tracker-7f3a1c")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	var entry accessLogEntry
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("failed to parse log entry: %v", err)
	}
	if entry.RequestID != "tracker-7f3a1c" {
		t.Errorf("expected request_id tracker-7f3a1c, got %s", entry.RequestID)
	}
}

func TestLogging_WithUserID(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/v1/sessions", nil)
	entry := serveLogged(t, func(w http.ResponseWriter, r *http.Request) {
		*r = *r.WithContext(SetUserID(r.Context(), "guardian-123"))
		w.WriteHeader(http.StatusOK)
	}, req)

	if entry.UserID != "guardian-123" {
		t.Errorf("expected user_id guardian-123, got %s", entry.UserID)
	}
}

func TestLogging_ClientError(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/v1/zones", nil)
	entry := serveLogged(t, func(w http.ResponseWriter, r *http.Request) {
		*r = *r.WithContext(SetErrorCode(r.Context(), "invalid_polygon"))
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"code":"invalid_polygon"}}`))
	}, req)

	if entry.Status != 400 {
		t.Errorf("expected status 400, got %d", entry.Status)
	}
	if entry.ErrorCode != "invalid_polygon" {
		t.Errorf("expected error_code invalid_polygon, got %s", entry.ErrorCode)
	}
	if entry.Level != "WARN" {
		t.Errorf("expected level WARN for 4xx, got %s", entry.Level)
	}
}

func TestLogging_ServerError(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/v1/notifications", nil)
	entry := serveLogged(t, func(w http.ResponseWriter, r *http.Request) {
		*r = *r.WithContext(SetErrorCode(r.Context(), "internal_error"))
		w.WriteHeader(http.StatusInternalServerError)
	}, req)

	if entry.Status != 500 {
		t.Errorf("expected status 500, got %d", entry.Status)
	}
	if entry.ErrorCode != "internal_error" {
		t.Errorf("expected error_code internal_error, got %s", entry.ErrorCode)
	}
	if entry.Level != "ERROR" {
		t.Errorf("expected level ERROR for 5xx, got %s", entry.Level)
	}
}

func TestLogging_DefaultStatus(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	entry := serveLogged(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	}, req)

	if entry.Status != 200 {
		t.Errorf("expected implicit status 200, got %d", entry.Status)
	}
}

func TestLogging_NoErrorCodeFor2xx(t *testing.T) {
	buf := &bytes.Buffer{}
	handler := Logging(newTestLogger(buf))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*r = *r.WithContext(SetErrorCode(r.Context(), "some_code"))
		w.WriteHeader(http.StatusOK)
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/ready", nil))

	if strings.Contains(buf.String(), "error_code") {
		t.Error("error_code should not be logged for 2xx responses")
	}
}

func TestLogging_AllFieldsPresent(t *testing.T) {
	buf := &bytes.Buffer{}
	handler := RequestID(Logging(newTestLogger(buf))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := SetUserID(r.Context(), "guardian-789")
		ctx = SetErrorCode(ctx, "forbidden")
		*r = *r.WithContext(ctx)
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error":"forbidden"}`))
	})))

	req := httptest.NewRequest(http.MethodDelete, "/v1/zones/123", nil)
	req.Header.Set(RequestIDHeader, "req-id-789")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	var entry accessLogEntry
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("failed to parse log entry: %v", err)
	}

	if entry.Method != "DELETE" {
		t.Errorf("expected method DELETE, got %s", entry.Method)
	}
	if entry.Path != "/v1/zones/123" {
		t.Errorf("expected path /v1/zones/123, got %s", entry.Path)
	}
	if entry.Status != 403 {
		t.Errorf("expected status 403, got %d", entry.Status)
	}
	if entry.RequestID != "req-id-789" {
		t.Errorf("expected request_id req-id-789, got %s", entry.RequestID)
	}
	if entry.UserID != "guardian-789" {
		t.Errorf("expected user_id guardian-789, got %s", entry.UserID)
	}
	if entry.ErrorCode != "forbidden" {
		t.Errorf("expected error_code forbidden, got %s", entry.ErrorCode)
	}
	if entry.Size != len(`{"error":"forbidden"}`) {
		t.Errorf("expected size %d, got %d", len(`{"error":"forbidden"}`), entry.Size)
	}
}

func TestNewLogger(t *testing.T) {
	for _, env := range []string{"production", "development", ""} {
		if NewLogger(env) == nil {
			t.Fatalf("NewLogger(%q) returned nil", env)
		}
	}
}

func TestUserIDContext(t *testing.T) {
	ctx := context.Background()
	if id := GetUserID(ctx); id != "" {
		t.Errorf("expected empty ID, got %q", id)
	}
	ctx = SetUserID(ctx, "guardian-456")
	if id := GetUserID(ctx); id != "guardian-456" {
		t.Errorf("expected guardian-456, got %q", id)
	}
}

func TestErrorCodeContext(t *testing.T) {
	ctx := context.Background()
	if code := GetErrorCode(ctx); code != "" {
		t.Errorf("expected empty error code, got %q", code)
	}
	ctx = SetErrorCode(ctx, "zone_not_found")
	if code := GetErrorCode(ctx); code != "zone_not_found" {
		t.Errorf("expected zone_not_found, got %q", code)
	}
}

func TestResponseWriter(t *testing.T) {
	w := httptest.NewRecorder()
	rw := newResponseWriter(w)

	rw.WriteHeader(http.StatusCreated)
	rw.WriteHeader(http.StatusTeapot) // ignored, first status wins

	if rw.statusCode != http.StatusCreated {
		t.Errorf("expected status code 201, got %d", rw.statusCode)
	}
	if w.Code != http.StatusCreated {
		t.Errorf("expected underlying writer status 201, got %d", w.Code)
	}

	body := []byte(`{"id":"z-1"}`)
	n, err := rw.Write(body)
	if err != nil {
		t.Fatalf("unexpected write error: %v", err)
	}
	if n != len(body) || rw.size != len(body) {
		t.Errorf("expected %d bytes written and recorded, got n=%d size=%d", len(body), n, rw.size)
	}
}
