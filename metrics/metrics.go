// Package metrics exposes Prometheus collectors for the detection service.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Namespace prefixes every metric name.
const Namespace = "roidetect"

// Metrics holds the service collectors and the registry they are registered in.
type Metrics struct {
	Registry *prometheus.Registry

	// Requests counts HTTP requests by route and outcome kind.
	Requests *prometheus.CounterVec
	// Detections counts retained detections by class name.
	Detections *prometheus.CounterVec
	// Subscribers tracks connected change-feed clients by transport.
	Subscribers *prometheus.GaugeVec
}

// New creates a registry with the Go and process collectors and the service metrics.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &Metrics{
		Registry: reg,
		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "requests_total",
			Help:      "HTTP requests by route and outcome.",
		}, []string{"route", "outcome"}),
		Detections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "detections_total",
			Help:      "Detections retained after suppression, by class.",
		}, []string{"class"}),
		Subscribers: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "feed_subscribers",
			Help:      "Connected change-feed subscribers by transport.",
		}, []string{"transport"}),
	}
	reg.MustRegister(m.Requests, m.Detections, m.Subscribers)

	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{Registry: m.Registry})
}

// ObserveDetections adds per-class counts.
func (m *Metrics) ObserveDetections(counts map[string]int) {
	if m == nil {
		return
	}
	for class, n := range counts {
		m.Detections.WithLabelValues(class).Add(float64(n))
	}
}

// ObserveRequest increments the request counter.
func (m *Metrics) ObserveRequest(route, outcome string) {
	if m == nil {
		return
	}
	m.Requests.WithLabelValues(route, outcome).Inc()
}
