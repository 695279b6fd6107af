package tracker

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/mireles/tether/internal/monitor"
)

// DefaultForwardTimeout bounds one ingest request.
const DefaultForwardTimeout = 10 * time.Second

// Forwarder submits observations to the API's location ingest endpoint.
// It satisfies Submitter, so the standalone tracker daemon and an
// in-process hub are interchangeable behind the feed handler.
type Forwarder struct {
	endpoint string
	token    string
	client   *http.Client
	logger   *slog.Logger
}

// NewForwarder creates a forwarder posting to the given ingest endpoint.
// The token, if non-empty, is sent as a bearer token.
func NewForwarder(endpoint, token string, logger *slog.Logger) *Forwarder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Forwarder{
		endpoint: endpoint,
		token:    token,
		client:   &http.Client{Timeout: DefaultForwardTimeout},
		logger:   logger,
	}
}

type ingestPayload struct {
	WardID     string  `json:"ward_id"`
	Lat        float64 `json:"lat"`
	Lng        float64 `json:"lng"`
	RecordedAt string  `json:"recorded_at"`
}

type ingestResult struct {
	Accepted bool `json:"accepted"`
	Sessions int  `json:"sessions"`
}

// Submit posts one observation. A delivery failure is logged and reported
// as zero sessions; the feed keeps flowing either way.
func (f *Forwarder) Submit(obs monitor.Observation) int {
	body, err := json.Marshal(ingestPayload{
		WardID:     obs.WardID,
		Lat:        obs.Point.Lat,
		Lng:        obs.Point.Lng,
		RecordedAt: obs.At.UTC().Format(time.RFC3339),
	})
	if err != nil {
		f.logger.Error("failed to marshal observation", "error", err)
		return 0
	}

	req, err := http.NewRequest(http.MethodPost, f.endpoint, bytes.NewReader(body))
	if err != nil {
		f.logger.Error("failed to build ingest request", "error", err)
		return 0
	}
	req.Header.Set("Content-Type", "application/json")
	if f.token != "" {
		req.Header.Set("Authorization", "Bearer "+f.token)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		f.logger.Warn("ingest request failed",
			"ward_id", obs.WardID,
			"error", err)
		return 0
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusAccepted {
		f.logger.Warn("ingest request rejected",
			"ward_id", obs.WardID,
			"status", fmt.Sprintf("%d", resp.StatusCode))
		return 0
	}

	var result ingestResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		f.logger.Warn("failed to decode ingest response", "error", err)
		return 0
	}
	return result.Sessions
}
