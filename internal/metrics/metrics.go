package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the service collectors on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	requests        *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	predictions     *prometheus.CounterVec
	inference       *prometheus.HistogramVec
}

// New registers the collectors, including the Go runtime and process
// collectors, on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			}, []string{"path", "method", "status"},
		),
		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Duration of HTTP requests in seconds",
				Buckets: prometheus.DefBuckets,
			}, []string{"path"},
		),
		predictions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "predictions_total",
				Help: "Predictions served, by mode and outcome",
			}, []string{"mode", "outcome"},
		),
		inference: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "prediction_duration_seconds",
				Help:    "Time spent preprocessing and classifying one image",
				Buckets: prometheus.DefBuckets,
			}, []string{"mode"},
		),
	}

	m.registry.MustRegister(
		m.requests,
		m.requestDuration,
		m.predictions,
		m.inference,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// ObserveRequest records one finished HTTP request.
func (m *Metrics) ObserveRequest(path, method, status string, elapsed time.Duration) {
	m.requests.WithLabelValues(path, method, status).Inc()
	m.requestDuration.WithLabelValues(path).Observe(elapsed.Seconds())
}

// ObservePrediction records one prediction attempt. outcome is "ok",
// "invalid_image" or "error".
func (m *Metrics) ObservePrediction(mode, outcome string, elapsed time.Duration) {
	m.predictions.WithLabelValues(mode, outcome).Inc()
	m.inference.WithLabelValues(mode).Observe(elapsed.Seconds())
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
