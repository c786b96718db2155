// Package metrics exposes the server's Prometheus collectors.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics bundles every collector on a private registry so tests can build
// isolated instances.
type Metrics struct {
	registry *prometheus.Registry

	SessionsOnline   prometheus.Gauge
	EventsTotal      *prometheus.CounterVec
	ResolverDuration prometheus.Histogram
	MinutesJobs      *prometheus.CounterVec
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		SessionsOnline: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "atrium_sessions_online",
			Help: "Connected presence sessions.",
		}),
		EventsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "atrium_events_total",
			Help: "Inbound presence events by type.",
		}, []string{"type"}),
		ResolverDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "atrium_proximity_resolve_seconds",
			Help:    "Wall time of one proximity resolver pass.",
			Buckets: prometheus.ExponentialBuckets(0.00001, 4, 10),
		}),
		MinutesJobs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "atrium_minutes_jobs_total",
			Help: "Meeting minutes jobs by outcome.",
		}, []string{"outcome"}),
	}

	reg.MustRegister(
		m.SessionsOnline,
		m.EventsTotal,
		m.ResolverDuration,
		m.MinutesJobs,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Handler serves the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
