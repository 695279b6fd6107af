package monitor

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metric names as constants for consistency.
const (
	MetricEvaluationsTotal      = "monitor_evaluations_total"
	MetricEvaluationErrorsTotal = "monitor_evaluation_errors_total"
	MetricTransitionsTotal      = "monitor_transitions_total"
	MetricObservationsDropped   = "monitor_observations_dropped_total"
	MetricActiveSessions        = "monitor_active_sessions"
)

// Metrics contains Prometheus metrics for geofence monitoring.
// All operations are thread-safe.
type Metrics struct {
	evaluations      prometheus.Counter
	evaluationErrors *prometheus.CounterVec
	transitions      *prometheus.CounterVec
	droppedObs       *prometheus.CounterVec
	activeSessions   prometheus.Gauge
}

// NewMetrics creates and returns a new Metrics instance with all collectors
// initialized. The metrics are not registered; call Register to register
// them with a registry.
func NewMetrics() *Metrics {
	return &Metrics{
		evaluations: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: MetricEvaluationsTotal,
				Help: "Total number of zone containment evaluations",
			},
		),
		evaluationErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricEvaluationErrorsTotal,
				Help: "Total number of evaluation errors by stage",
			},
			[]string{"stage"},
		),
		transitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricTransitionsTotal,
				Help: "Total number of detected zone transitions by event type",
			},
			[]string{"event_type"},
		),
		droppedObs: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricObservationsDropped,
				Help: "Total number of observations dropped by reason",
			},
			[]string{"reason"},
		),
		activeSessions: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: MetricActiveSessions,
				Help: "Number of monitoring sessions currently running",
			},
		),
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

// IncEvaluations increments the evaluation counter.
func (m *Metrics) IncEvaluations() {
	m.evaluations.Inc()
}

// IncEvaluationErrors increments the evaluation error counter for a stage.
// stage: where the evaluation failed ("zone_lookup", "status_read", "status_write")
func (m *Metrics) IncEvaluationErrors(stage string) {
	m.evaluationErrors.WithLabelValues(stage).Inc()
}

// IncTransitions increments the transition counter.
// eventType: "enter" or "leave"
func (m *Metrics) IncTransitions(eventType string) {
	m.transitions.WithLabelValues(eventType).Inc()
}

// IncDroppedObservations increments the dropped observation counter.
// reason: why the observation was discarded ("stale", "queue_full", "stopped")
func (m *Metrics) IncDroppedObservations(reason string) {
	m.droppedObs.WithLabelValues(reason).Inc()
}

// SetActiveSessions updates the active session gauge.
func (m *Metrics) SetActiveSessions(n int) {
	m.activeSessions.Set(float64(n))
}

// Collectors returns all Prometheus collectors for testing.
func (m *Metrics) Collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.evaluations,
		m.evaluationErrors,
		m.transitions,
		m.droppedObs,
		m.activeSessions,
	}
}
