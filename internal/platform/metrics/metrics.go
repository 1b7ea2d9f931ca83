package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	SubmissionsTotal      prometheus.Counter
	DeletionRequestsTotal prometheus.Counter
	DecisionsTotal        *prometheus.CounterVec
	EventsPublishedTotal  *prometheus.CounterVec
	AnalyticsJoinsTotal   *prometheus.CounterVec
	FieldCryptoDuration   prometheus.Histogram
}

// New creates and registers all Prometheus metrics.
func New() *Metrics {
	return &Metrics{
		SubmissionsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "civic_submissions_total",
			Help: "Total validation submissions accepted by the gateway",
		}),
		DeletionRequestsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "civic_deletion_requests_total",
			Help: "Total deletion requests accepted by the gateway",
		}),
		DecisionsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "civic_decisions_total",
			Help: "Total fulfilled decisions by outcome",
		}, []string{"outcome"}),
		EventsPublishedTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "civic_events_published_total",
			Help: "Total events published to the bus by detail-type",
		}, []string{"detail_type"}),
		AnalyticsJoinsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "civic_analytics_joins_total",
			Help: "Analytics join attempts by result",
		}, []string{"result"}),
		FieldCryptoDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "civic_field_crypto_duration_seconds",
			Help:    "Latency of the five-field encrypt/decrypt batches",
			Buckets: []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1},
		}),
	}
}

// IncDecision records one fulfilled decision by outcome ("eligible" or
// "ineligible"). Nil-safe so tests can run without a metrics registry.
func (m *Metrics) IncDecision(outcome string) {
	if m == nil {
		return
	}
	m.DecisionsTotal.WithLabelValues(outcome).Inc()
}

// IncEventPublished records one published event by detail-type.
func (m *Metrics) IncEventPublished(detailType string) {
	if m == nil {
		return
	}
	m.EventsPublishedTotal.WithLabelValues(detailType).Inc()
}

// IncJoin records one analytics join attempt by result ("forwarded",
// "incomplete", or "error").
func (m *Metrics) IncJoin(result string) {
	if m == nil {
		return
	}
	m.AnalyticsJoinsTotal.WithLabelValues(result).Inc()
}

// IncSubmission records one accepted gateway submission.
func (m *Metrics) IncSubmission() {
	if m == nil {
		return
	}
	m.SubmissionsTotal.Inc()
}

// IncDeletionRequest records one accepted gateway deletion request.
func (m *Metrics) IncDeletionRequest() {
	if m == nil {
		return
	}
	m.DeletionRequestsTotal.Inc()
}

// ObserveFieldCrypto records the latency of one five-field crypto batch.
func (m *Metrics) ObserveFieldCrypto(seconds float64) {
	if m == nil {
		return
	}
	m.FieldCryptoDuration.Observe(seconds)
}
