package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Request outcomes recorded by RecordRequest.
const (
	OutcomeForwarded     = "forwarded"
	OutcomeMissingHeader = "missing_header"
	OutcomeAlignment     = "alignment"
	OutcomeNotFound      = "not_found"
	OutcomeForwardError  = "forward_error"
	OutcomeRateLimited   = "rate_limited"
	OutcomeError         = "error"
)

// Metrics holds Prometheus instruments for the relay.
type Metrics struct {
	RequestsTotal  *prometheus.CounterVec
	CacheWrites    prometheus.Counter
	ForwardLatency prometheus.Histogram

	gatherer prometheus.Gatherer
}

// NewMetrics creates the relay instruments and registers them on reg.
// A nil reg uses a private registry.
func NewMetrics(reg *prometheus.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	m := &Metrics{
		RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "interceder_requests_total",
			Help: "Relay calls by route and outcome.",
		}, []string{"route", "outcome"}),
		CacheWrites: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "interceder_cache_writes_total",
			Help: "Payloads written to the cache.",
		}),
		ForwardLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "interceder_forward_latency_seconds",
			Help:    "Outbound call latency.",
			Buckets: prometheus.DefBuckets,
		}),
		gatherer: reg,
	}
	reg.MustRegister(m.RequestsTotal, m.CacheWrites, m.ForwardLatency)

	return m
}

// RecordRequest counts one relay call.
func (m *Metrics) RecordRequest(route, outcome string) {
	m.RequestsTotal.WithLabelValues(route, outcome).Inc()
}

// RecordCacheWrite counts one cache write.
func (m *Metrics) RecordCacheWrite() {
	m.CacheWrites.Inc()
}

// RecordForward observes one outbound call.
func (m *Metrics) RecordForward(latency time.Duration) {
	m.ForwardLatency.Observe(latency.Seconds())
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
