package server

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const metricsNamespace = "mdview"

// Metrics holds the engine's Prometheus instrumentation. Each instance
// carries its own registry so daemons never fight over the default
// registerer.
type Metrics struct {
	registry *prometheus.Registry

	// Requests counts HTTP requests by handler class (page, asset).
	Requests *prometheus.CounterVec

	// SSEClients tracks currently-connected event stream subscribers.
	SSEClients prometheus.Gauge

	// ReloadsSent counts reload frames delivered to browsers.
	ReloadsSent prometheus.Counter

	// RenderErrors counts failed cache refreshes (stale page served).
	RenderErrors prometheus.Counter

	// BlockedTraversals counts asset requests rejected by the sandbox.
	BlockedTraversals prometheus.Counter
}

// NewMetrics creates a metrics set on a fresh registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,
		Requests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests served, by handler class.",
		}, []string{"handler"}),
		SSEClients: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "sse_clients",
			Help:      "Currently connected live-reload subscribers.",
		}),
		ReloadsSent: factory.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "reloads_sent_total",
			Help:      "Reload events delivered to browsers.",
		}),
		RenderErrors: factory.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "render_errors_total",
			Help:      "Cache refreshes that failed and served a stale page.",
		}),
		BlockedTraversals: factory.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "blocked_traversals_total",
			Help:      "Asset requests rejected by the path sandbox.",
		}),
	}
}

// Handler returns the exposition endpoint for this metrics set.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
