package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups the collectors the portal exports.
type Metrics struct {
	Registry        *prometheus.Registry
	RequestCounter  *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	Transitions     *prometheus.CounterVec
	WSClients       prometheus.Gauge
}

// New creates the collectors and registers them on a fresh registry so tests
// can build as many instances as they like.
func New(service string) *Metrics {
	labels := prometheus.Labels{"service": service}
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		RequestCounter: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "http_requests_total",
			Help:        "Total number of HTTP requests",
			ConstLabels: labels,
		}, []string{"method", "path", "status"}),
		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:        "http_request_duration_seconds",
			Help:        "Duration of HTTP requests in seconds",
			Buckets:     prometheus.DefBuckets,
			ConstLabels: labels,
		}, []string{"method", "path", "status"}),
		Transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "po_transitions_total",
			Help:        "Purchase order workflow actions by outcome",
			ConstLabels: labels,
		}, []string{"action", "result"}),
		WSClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "ws_clients",
			Help:        "Connected websocket clients",
			ConstLabels: labels,
		}),
	}
	m.Registry.MustRegister(
		m.RequestCounter,
		m.RequestDuration,
		m.Transitions,
		m.WSClients,
		collectors.NewGoCollector(),
	)
	return m
}

// ObserveTransition counts one workflow action attempt. A nil receiver is a no-op.
func (m *Metrics) ObserveTransition(action, result string) {
	if m == nil {
		return
	}
	m.Transitions.WithLabelValues(action, result).Inc()
}

// Handler serves the registry in the Prometheus text format. Compression is
// left to the server's gzip middleware.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{DisableCompression: true})
}
