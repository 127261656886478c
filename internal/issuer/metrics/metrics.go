// Package metrics holds the issuer's Prometheus collectors.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "vcissuer"

// Outcome labels.
const (
	OutcomeOK       = "ok"
	OutcomeRejected = "rejected"
	OutcomeError    = "error"
)

// Metrics owns a private registry so several instances can coexist in one
// process, e.g. in tests.
type Metrics struct {
	registry *prometheus.Registry

	Offers      *prometheus.CounterVec
	Tokens      *prometheus.CounterVec
	Credentials *prometheus.CounterVec
	RateLimited *prometheus.CounterVec
	Swept       *prometheus.CounterVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		Offers: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "offers_total",
			Help:      "Credential offers created, by credential configuration and outcome.",
		}, []string{"configuration", "outcome"}),
		Tokens: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "token_requests_total",
			Help:      "Token endpoint requests, by outcome and OAuth error code.",
		}, []string{"outcome", "error"}),
		Credentials: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "credential_requests_total",
			Help:      "Credential endpoint requests, by outcome and OAuth error code.",
		}, []string{"outcome", "error"}),
		RateLimited: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limited_total",
			Help:      "Requests rejected by the rate limiter, by route.",
		}, []string{"route"}),
		Swept: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "housekeeping_records_total",
			Help:      "Records changed by the housekeeping sweep.",
		}, []string{"action"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.Offers, m.Tokens, m.Credentials, m.RateLimited, m.Swept,
	)
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry exposes the underlying registry for tests and custom collectors.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// RateLimitHook returns an onReject callback for httpx rate limiters.
func (m *Metrics) RateLimitHook(route string) func(*http.Request) {
	return func(*http.Request) { m.RateLimited.WithLabelValues(route).Inc() }
}

// ObserveSweep records one housekeeping pass.
func (m *Metrics) ObserveSweep(expired, tokensDeleted, codesDeleted int64) {
	m.Swept.WithLabelValues("expired").Add(float64(expired))
	m.Swept.WithLabelValues("tokens_deleted").Add(float64(tokensDeleted))
	m.Swept.WithLabelValues("codes_deleted").Add(float64(codesDeleted))
}
