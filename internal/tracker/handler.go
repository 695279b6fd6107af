package tracker

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mireles/tether/internal/monitor"
)

// Submitter routes observations into running monitoring sessions.
// *monitor.Hub satisfies this.
type Submitter interface {
	Submit(obs monitor.Observation) int
}

// Handler decodes feed frames and submits them for evaluation. A frame
// that fails to decode is counted and skipped; it never tears down the
// connection.
type Handler struct {
	submitter Submitter
	logger    *slog.Logger
	metrics   *Metrics

	now func() time.Time
}

// NewHandler creates a feed message handler. Metrics may be nil.
func NewHandler(submitter Submitter, logger *slog.Logger, metrics *Metrics) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		submitter: submitter,
		logger:    logger,
		metrics:   metrics,
		now:       time.Now,
	}
}

// HandleMessage processes one WebSocket message. It satisfies MessageHandler.
func (h *Handler) HandleMessage(messageType int, payload []byte) error {
	// The feed sends CBOR as binary frames; control and text frames carry
	// nothing evaluable.
	if messageType != websocket.BinaryMessage {
		return nil
	}

	if h.metrics != nil {
		h.metrics.IncFramesProcessed()
	}

	frame, err := DecodeFrame(payload)
	if err != nil {
		if h.metrics != nil {
			h.metrics.IncFrameErrors()
		}
		h.logger.Warn("dropping undecodable frame",
			slog.String("error", err.Error()))
		return nil
	}

	receivedAt := h.now()
	obs := frame.Observation(receivedAt)

	if h.metrics != nil && frame.TimeUS > 0 {
		h.metrics.ObserveFeedLatency(receivedAt.Sub(obs.At).Seconds())
	}

	sessions := h.submitter.Submit(obs)
	if h.metrics != nil {
		h.metrics.IncSubmitted()
	}

	h.logger.Debug("observation submitted",
		slog.String("ward_id", obs.WardID),
		slog.Int("sessions", sessions))
	return nil
}

// MetricsHandler creates an HTTP handler for the Prometheus metrics endpoint.
// It uses the provided registry to gather metrics.
func MetricsHandler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}
