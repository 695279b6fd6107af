package notify

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metric names as constants for consistency.
const (
	MetricDispatchesTotal       = "notify_dispatches_total"
	MetricFriendDispatchesTotal = "notify_friend_dispatches_total"
	MetricDeliveryDuration      = "notify_delivery_duration_seconds"
)

// Metrics contains Prometheus metrics for notification dispatch.
// All operations are thread-safe.
type Metrics struct {
	dispatches       *prometheus.CounterVec
	friendDispatches *prometheus.CounterVec
	deliveryDuration prometheus.Histogram
}

// NewMetrics creates and returns a new Metrics instance with all collectors
// initialized. The metrics are not registered; call Register to register
// them with a registry.
func NewMetrics() *Metrics {
	return &Metrics{
		dispatches: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricDispatchesTotal,
				Help: "Total number of zone transition dispatch attempts by outcome",
			},
			[]string{"status"},
		),
		friendDispatches: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricFriendDispatchesTotal,
				Help: "Total number of friend request dispatch attempts by outcome",
			},
			[]string{"status"},
		),
		deliveryDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    MetricDeliveryDuration,
			Help:    "Histogram of delivery channel invocation duration in seconds",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

// Register registers all metrics with the given registry.
// Returns an error if registration fails.
func (m *Metrics) Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		m.dispatches,
		m.friendDispatches,
		m.deliveryDuration,
	}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// IncDispatch increments the dispatch counter for an outcome.
func (m *Metrics) IncDispatch(status string) {
	m.dispatches.WithLabelValues(status).Inc()
}

// IncFriendDispatch increments the friend dispatch counter for an outcome.
func (m *Metrics) IncFriendDispatch(status string) {
	m.friendDispatches.WithLabelValues(status).Inc()
}

// ObserveDeliveryDuration records one delivery invocation duration.
func (m *Metrics) ObserveDeliveryDuration(seconds float64) {
	m.deliveryDuration.Observe(seconds)
}
