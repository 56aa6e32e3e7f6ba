// Package metrics holds the Prometheus instruments the pipeline records
// into. Components accept a *Metrics and tolerate nil, so tests and the
// CLI can run without a registry.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	QueriesTotal       *prometheus.CounterVec
	QueryDuration      *prometheus.HistogramVec
	RateLimitDenials   prometheus.Counter
	ModelCalls         *prometheus.CounterVec
	ResponseSuppressed prometheus.Counter
}

func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		QueriesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "asklens_queries_total",
			Help: "Executed queries by backend kind and outcome.",
		}, []string{"kind", "outcome"}),
		QueryDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "asklens_query_duration_seconds",
			Help:    "Backend query latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"kind"}),
		RateLimitDenials: factory.NewCounter(prometheus.CounterOpts{
			Name: "asklens_rate_limit_denials_total",
			Help: "Requests denied by the rate limiter.",
		}),
		ModelCalls: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "asklens_model_calls_total",
			Help: "Language model calls by capability.",
		}, []string{"capability"}),
		ResponseSuppressed: factory.NewCounter(prometheus.CounterOpts{
			Name: "asklens_responses_suppressed_total",
			Help: "Responses replaced by the fallback after failing the hallucination guard.",
		}),
	}
}

// ObserveQuery is nil-safe.
func (m *Metrics) ObserveQuery(kind, outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.QueriesTotal.WithLabelValues(kind, outcome).Inc()
	m.QueryDuration.WithLabelValues(kind).Observe(seconds)
}

// IncDenial is nil-safe.
func (m *Metrics) IncDenial() {
	if m == nil {
		return
	}
	m.RateLimitDenials.Inc()
}

// IncModelCall is nil-safe.
func (m *Metrics) IncModelCall(capability string) {
	if m == nil {
		return
	}
	m.ModelCalls.WithLabelValues(capability).Inc()
}

// IncSuppressed is nil-safe.
func (m *Metrics) IncSuppressed() {
	if m == nil {
		return
	}
	m.ResponseSuppressed.Inc()
}
