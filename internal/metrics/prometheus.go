// Package metrics exposes the fetch lifecycle of the state holder as
// Prometheus metrics.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// PrometheusRecorder implements weather.Metrics on a private registry.
type PrometheusRecorder struct {
	registry *prometheus.Registry

	fetchStarted   prometheus.Counter
	fetchCompleted *prometheus.CounterVec
	fetchDiscarded prometheus.Counter
	fetchDuration  *prometheus.HistogramVec
}

// NewPrometheusRecorder creates a recorder with Go and process collectors registered.
func NewPrometheusRecorder() *PrometheusRecorder {
	registry := prometheus.NewRegistry()

	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	r := &PrometheusRecorder{
		registry: registry,
		fetchStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "weather_fetch_started_total",
			Help: "Total number of fetch cycles started.",
		}),
		fetchCompleted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "weather_fetch_completed_total",
			Help: "Total number of fetch cycles resolved, by outcome.",
		}, []string{"outcome"}), // outcome: success, transport, http, decode, other
		fetchDiscarded: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "weather_fetch_discarded_total",
			Help: "Total number of results dropped because a newer fetch had started.",
		}),
		fetchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "weather_fetch_duration_seconds",
			Help:    "Duration of upstream weather fetches.",
			Buckets: prometheus.DefBuckets,
		}, []string{"outcome"}),
	}

	registry.MustRegister(r.fetchStarted)
	registry.MustRegister(r.fetchCompleted)
	registry.MustRegister(r.fetchDiscarded)
	registry.MustRegister(r.fetchDuration)

	return r
}

// Handler serves the registry in the Prometheus exposition format.
func (r *PrometheusRecorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

func (r *PrometheusRecorder) FetchStarted() {
	r.fetchStarted.Inc()
}

func (r *PrometheusRecorder) FetchCompleted(outcome string, duration time.Duration) {
	r.fetchCompleted.WithLabelValues(outcome).Inc()
	r.fetchDuration.WithLabelValues(outcome).Observe(duration.Seconds())
}

func (r *PrometheusRecorder) FetchDiscarded() {
	r.fetchDiscarded.Inc()
}
