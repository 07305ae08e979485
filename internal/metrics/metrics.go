// Package metrics holds the Prometheus collectors for the feedback service.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "ideas"

// Submission outcomes.
const (
	OutcomeCreated  = "created"
	OutcomeUpdated  = "updated"
	OutcomeRejected = "rejected"
)

type Metrics struct {
	Submissions      *prometheus.CounterVec
	TokenRejections  *prometheus.CounterVec
	RateLimited      prometheus.Counter
	EmailsSent       *prometheus.CounterVec
	IdeasGenerated   *prometheus.CounterVec
	RequestDuration  *prometheus.HistogramVec
	RequestsInFlight prometheus.Gauge

	gatherer prometheus.Gatherer
}

// New creates the collectors and registers them on reg. Tests pass a fresh
// prometheus.NewRegistry().
func New(reg *prometheus.Registry) *Metrics {
	m := &Metrics{
		Submissions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "feedback_submissions_total",
				Help:      "Feedback submissions, by outcome.",
			},
			[]string{"outcome"},
		),
		TokenRejections: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "token_rejections_total",
				Help:      "Feedback links refused, by reason.",
			},
			[]string{"reason"},
		),
		RateLimited: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rate_limited_total",
				Help:      "Requests denied by the per-client rate limiter.",
			},
		),
		EmailsSent: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "emails_sent_total",
				Help:      "Digest emails, by result.",
			},
			[]string{"result"},
		),
		IdeasGenerated: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "ideas_generated_total",
				Help:      "Ideas generated, by category.",
			},
			[]string{"category"},
		),
		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds, by route pattern and method.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"route", "method", "status"},
		),
		RequestsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "http_requests_in_flight",
				Help:      "Number of HTTP requests currently being served.",
			},
		),
		gatherer: reg,
	}

	reg.MustRegister(
		m.Submissions,
		m.TokenRejections,
		m.RateLimited,
		m.EmailsSent,
		m.IdeasGenerated,
		m.RequestDuration,
		m.RequestsInFlight,
	)
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
