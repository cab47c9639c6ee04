package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the dispatch engine's prometheus metrics. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	Decisions         *prometheus.CounterVec
	Executions        *prometheus.CounterVec
	ExecutionDuration *prometheus.HistogramVec
	TransientRetries  prometheus.Counter
	SessionsCreated   prometheus.Counter
	SessionsResolved  *prometheus.CounterVec
	SessionsExpired   prometheus.Counter
	OutboxPublished   *prometheus.CounterVec
}

// NewMetrics registers the metrics on reg. Tests pass a fresh
// prometheus.NewRegistry() to avoid duplicate registration.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Decisions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "decisions_total",
			Help:      "Routing decisions by resulting state",
		}, []string{"state"}),
		Executions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "executions_total",
			Help:      "Executed actions by action and outcome",
		}, []string{"action", "outcome"}),
		ExecutionDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "execution_duration_seconds",
			Help:      "Time spent inside the executor transaction",
			Buckets:   prometheus.DefBuckets,
		}, []string{"action"}),
		TransientRetries: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transient_retries_total",
			Help:      "Executor retries after a transient store error",
		}),
		SessionsCreated: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "confirmation_sessions_created_total",
			Help:      "Confirmation sessions opened",
		}),
		SessionsResolved: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "confirmation_sessions_resolved_total",
			Help:      "Confirm calls by outcome",
		}, []string{"outcome"}),
		SessionsExpired: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "confirmation_sessions_expired_total",
			Help:      "Sessions swept to EXPIRED",
		}),
		OutboxPublished: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "outbox_published_total",
			Help:      "Outbox messages handed to the broker",
		}, []string{"outcome"}),
	}
}

func (m *Metrics) ObserveDecision(state string) {
	if m == nil {
		return
	}
	m.Decisions.WithLabelValues(state).Inc()
}

func (m *Metrics) ObserveExecution(action, outcome string, started time.Time) {
	if m == nil {
		return
	}
	m.Executions.WithLabelValues(action, outcome).Inc()
	m.ExecutionDuration.WithLabelValues(action).Observe(time.Since(started).Seconds())
}

func (m *Metrics) ObserveRetry() {
	if m == nil {
		return
	}
	m.TransientRetries.Inc()
}

func (m *Metrics) ObserveSessionCreated() {
	if m == nil {
		return
	}
	m.SessionsCreated.Inc()
}

func (m *Metrics) ObserveSessionResolved(outcome string) {
	if m == nil {
		return
	}
	m.SessionsResolved.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveSessionsExpired(n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.SessionsExpired.Add(float64(n))
}

func (m *Metrics) ObserveOutbox(outcome string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.OutboxPublished.WithLabelValues(outcome).Add(float64(n))
}
