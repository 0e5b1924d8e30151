// Package metrics defines the Prometheus collectors for ingestion and HTTP
// traffic.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the application collectors and the registry they live in.
type Metrics struct {
	registry *prometheus.Registry

	StatementsIngested   *prometheus.CounterVec
	TransactionsIngested prometheus.Counter
	IngestFailures       *prometheus.CounterVec
	HTTPRequests         *prometheus.CounterVec
	HTTPDuration         *prometheus.HistogramVec
}

// New registers the collectors on a fresh registry together with the Go
// runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		StatementsIngested: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "finova_statements_ingested_total",
			Help: "Statement files ingested, by file format.",
		}, []string{"format"}),
		TransactionsIngested: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "finova_transactions_ingested_total",
			Help: "Transactions stored by ingestion.",
		}),
		IngestFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "finova_ingest_failures_total",
			Help: "Failed ingestions, by reason.",
		}, []string{"reason"}),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "finova_http_requests_total",
			Help: "HTTP requests served.",
		}, []string{"method", "route", "status"}),
		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "finova_http_request_duration_seconds",
			Help:    "HTTP request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}

	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.StatementsIngested,
		m.TransactionsIngested,
		m.IngestFailures,
		m.HTTPRequests,
		m.HTTPDuration,
	)
	return m
}

// Registry exposes the underlying registry for tests and custom gathering.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObserveIngest records a successful ingestion of n transactions.
func (m *Metrics) ObserveIngest(format string, n int) {
	m.StatementsIngested.WithLabelValues(format).Inc()
	m.TransactionsIngested.Add(float64(n))
}

// ObserveFailure records a failed ingestion.
func (m *Metrics) ObserveFailure(reason string) {
	m.IngestFailures.WithLabelValues(reason).Inc()
}

// ObserveRequest records one served HTTP request.
func (m *Metrics) ObserveRequest(method, route string, status int, elapsed time.Duration) {
	m.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.HTTPDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}
