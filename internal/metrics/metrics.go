// Package metrics provides Prometheus metrics collection for the dashboard
// backend. It covers the WebSocket hub, the refresh and ticker loops, the HTTP
// API and calls to the exchange and bot manager.
//
// Metrics are exposed via the /metrics endpoint for monitoring and alerting.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the dashboard.
type Metrics struct {
	// WebSocket hub metrics
	ConnectionsActive prometheus.Gauge     // Currently registered push connections
	ConnectionsTotal  prometheus.Counter   // Connections registered since start
	MessagesSent      prometheus.Counter   // Successful sends to push connections
	MessagesFailed    prometheus.Counter   // Failed sends to push connections
	BroadcastDuration prometheus.Histogram // Time spent fanning one event out
	EventsPublished   *prometheus.CounterVec
	ForwardErrors     prometheus.Counter // Side channel forward failures

	// Refresh loop metrics
	RefreshTicks    prometheus.Counter   // Completed refresh ticks
	RefreshErrors   prometheus.Counter   // Refresh ticks that failed
	RefreshDuration prometheus.Histogram // Duration of a refresh tick

	// Collaborator metrics
	UpstreamRequests *prometheus.CounterVec   // Calls to exchange and bot manager by target and outcome
	UpstreamLatency  *prometheus.HistogramVec // Latency of those calls

	// HTTP API metrics
	HTTPRequests *prometheus.CounterVec   // Requests by route, method and status code
	HTTPDuration *prometheus.HistogramVec // Request latency by route

	// System metrics
	ErrorsTotal prometheus.Counter // Total number of errors encountered
}

// New creates and registers all Prometheus metrics using the default registry.
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry creates metrics with a custom registry (useful for testing).
// This allows for isolated metric collection in tests without affecting
// the global Prometheus registry.
func NewWithRegistry(registerer prometheus.Registerer) *Metrics {
	factory := promauto.With(registerer)
	return &Metrics{
		ConnectionsActive: factory.NewGauge(prometheus.GaugeOpts{
			Name: "ws_connections_active",
			Help: "Number of registered push connections",
		}),
		ConnectionsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "ws_connections_total",
			Help: "Total number of push connections registered",
		}),
		MessagesSent: factory.NewCounter(prometheus.CounterOpts{
			Name: "ws_messages_sent_total",
			Help: "Total number of messages delivered to push connections",
		}),
		MessagesFailed: factory.NewCounter(prometheus.CounterOpts{
			Name: "ws_messages_failed_total",
			Help: "Total number of failed sends to push connections",
		}),
		BroadcastDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "ws_broadcast_duration_seconds",
			Help:    "Time spent delivering one event to every connection",
			Buckets: prometheus.ExponentialBuckets(0.0001, 2, 15),
		}),
		EventsPublished: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "ws_events_published_total",
			Help: "Total number of events broadcast, by type",
		}, []string{"type"}),
		ForwardErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "ws_forward_errors_total",
			Help: "Total number of events the side channel failed to forward",
		}),
		RefreshTicks: factory.NewCounter(prometheus.CounterOpts{
			Name: "refresh_ticks_total",
			Help: "Total number of refresh ticks run",
		}),
		RefreshErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "refresh_errors_total",
			Help: "Total number of refresh ticks that failed",
		}),
		RefreshDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "refresh_duration_seconds",
			Help:    "Duration of one refresh tick in seconds",
			Buckets: prometheus.DefBuckets,
		}),
		UpstreamRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "upstream_requests_total",
			Help: "Total number of calls to external collaborators",
		}, []string{"target", "outcome"}),
		UpstreamLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "upstream_latency_seconds",
			Help:    "Latency of calls to external collaborators in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0},
		}, []string{"target"}),
		HTTPRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of API requests",
		}, []string{"route", "method", "code"}),
		HTTPDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "API request latency in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
		ErrorsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "errors_total",
			Help: "Total number of errors encountered",
		}),
	}
}

// ObserveUpstream records one call to an external collaborator.
func (m *Metrics) ObserveUpstream(target string, seconds float64, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.UpstreamRequests.WithLabelValues(target, outcome).Inc()
	m.UpstreamLatency.WithLabelValues(target).Observe(seconds)
}
