package server

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sardine-ai/provider-registry/registry"
)

// metrics are registered on a private registry so several servers can live
// in one process.
type metrics struct {
	registry  *prometheus.Registry
	refreshes *prometheus.CounterVec
	providers prometheus.Gauge
	conflicts prometheus.Gauge
	requests  *prometheus.CounterVec
}

func newMetrics() *metrics {
	m := &metrics{
		registry: prometheus.NewRegistry(),
		refreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "provctl_source_refresh_total",
			Help: "Source refreshes by source and result.",
		}, []string{"source", "result"}),
		providers: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "provctl_providers",
			Help: "Providers in the merged registry.",
		}),
		conflicts: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "provctl_conflicts",
			Help: "Conflicting definitions ignored by the registry.",
		}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "provctl_http_requests_total",
			Help: "HTTP requests by status code and method.",
		}, []string{"code", "method"}),
	}
	m.registry.MustRegister(m.refreshes, m.providers, m.conflicts, m.requests)
	return m
}

func (m *metrics) observeRefresh(reg *registry.Registry) {
	for _, st := range reg.Status() {
		result := "success"
		if !st.Healthy() {
			result = "error"
		}
		m.refreshes.WithLabelValues(st.Name, result).Inc()
	}
	m.providers.Set(float64(len(reg.Providers())))
	m.conflicts.Set(float64(len(reg.Conflicts())))
}

func (m *metrics) instrument(next http.Handler) http.Handler {
	return promhttp.InstrumentHandlerCounter(m.requests, next)
}

func (m *metrics) handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
