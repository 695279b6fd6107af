package tracker

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metric names as constants for consistency.
const (
	MetricFramesProcessed = "tracker_frames_processed_total"
	MetricFrameErrors     = "tracker_frame_errors_total"
	MetricSubmitted       = "tracker_observations_submitted_total"
	MetricFeedLatency     = "tracker_feed_latency_seconds"
)

// Metrics contains Prometheus metrics for the feed consumer.
// All operations are thread-safe.
type Metrics struct {
	framesProcessed prometheus.Counter
	frameErrors     prometheus.Counter
	submitted       prometheus.Counter
	feedLatency     prometheus.Histogram
}

// NewMetrics creates and returns a new Metrics instance with all collectors
// initialized. The metrics are not registered; call Register to register
// them with a registry.
func NewMetrics() *Metrics {
	return &Metrics{
		framesProcessed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: MetricFramesProcessed,
			Help: "Total number of frames read from the location feed",
		}),
		frameErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: MetricFrameErrors,
			Help: "Total number of frames that failed to decode or validate",
		}),
		submitted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: MetricSubmitted,
			Help: "Total number of observations submitted to the evaluation pipeline",
		}),
		feedLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    MetricFeedLatency,
			Help:    "Histogram of delay between observation timestamp and receipt in seconds",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

// Register registers all metrics with the given registry.
// Returns an error if registration fails.
func (m *Metrics) Register(reg prometheus.Registerer) error {
	for _, c := range m.Collectors() {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// IncFramesProcessed increments the frames processed counter.
func (m *Metrics) IncFramesProcessed() {
	m.framesProcessed.Inc()
}

// IncFrameErrors increments the frame error counter.
func (m *Metrics) IncFrameErrors() {
	m.frameErrors.Inc()
}

// IncSubmitted increments the submitted observations counter.
func (m *Metrics) IncSubmitted() {
	m.submitted.Inc()
}

// ObserveFeedLatency records a feed latency sample.
func (m *Metrics) ObserveFeedLatency(seconds float64) {
	m.feedLatency.Observe(seconds)
}

// Collectors returns all Prometheus collectors for testing.
func (m *Metrics) Collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.framesProcessed,
		m.frameErrors,
		m.submitted,
		m.feedLatency,
	}
}
