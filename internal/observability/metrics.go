package observability

import (
	"bytes"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/common/expfmt"
)

// Dispatch outcome label values.
const (
	OutcomeMatched          = "matched"
	OutcomeNotFound         = "not_found"
	OutcomeMethodNotAllowed = "method_not_allowed"
)

// Metrics holds all Prometheus metrics for the embedded server.
type Metrics struct {
	dispatchTotal    *prometheus.CounterVec
	connectionsTotal prometheus.Counter
	handlerPanics    prometheus.Counter
	admissionInUse   prometheus.Gauge
	requestDuration  *prometheus.HistogramVec
	registry         *prometheus.Registry
}

// NewMetrics creates a new Metrics instance backed by its own registry.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "embhttp"
	}

	m := &Metrics{
		registry: prometheus.NewRegistry(),
	}

	m.dispatchTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dispatch_total",
			Help:      "Total number of dispatch decisions by outcome",
		},
		[]string{"method", "outcome"},
	)

	m.connectionsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "connections_accepted_total",
			Help:      "Total number of accepted connections",
		},
	)

	m.handlerPanics = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "handler_panics_total",
			Help:      "Total number of handler panics recovered",
		},
	)

	m.admissionInUse = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "admission_permits_in_use",
			Help:      "Number of admission gate permits currently held",
		},
	)

	m.requestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "request_duration_seconds",
			Help:      "Connection handling duration in seconds",
			Buckets: []float64{
				.001, .005, .01, .025, .05,
				.1, .25, .5, 1, 2.5, 5, 10,
			},
		},
		[]string{"method", "status"},
	)

	m.registry.MustRegister(
		m.dispatchTotal,
		m.connectionsTotal,
		m.handlerPanics,
		m.admissionInUse,
		m.requestDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return m
}

// RecordDispatch records a dispatch decision. Outcome is one of the
// Outcome* constants.
func (m *Metrics) RecordDispatch(method, outcome string) {
	if m == nil {
		return
	}
	m.dispatchTotal.WithLabelValues(method, outcome).Inc()
}

// RecordConnection records an accepted connection.
func (m *Metrics) RecordConnection() {
	if m == nil {
		return
	}
	m.connectionsTotal.Inc()
}

// RecordPanic records a recovered handler panic.
func (m *Metrics) RecordPanic() {
	if m == nil {
		return
	}
	m.handlerPanics.Inc()
}

// AdmissionAcquired records one more permit in use.
func (m *Metrics) AdmissionAcquired() {
	if m == nil {
		return
	}
	m.admissionInUse.Inc()
}

// AdmissionReleased records one fewer permit in use.
func (m *Metrics) AdmissionReleased() {
	if m == nil {
		return
	}
	m.admissionInUse.Dec()
}

// ObserveRequestDuration records how long one connection took to handle.
func (m *Metrics) ObserveRequestDuration(method, status string, seconds float64) {
	if m == nil {
		return
	}
	m.requestDuration.WithLabelValues(method, status).Observe(seconds)
}

// Registry returns the underlying Prometheus registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Export gathers all metrics and renders them in the Prometheus text
// exposition format. The server exposes this through a regular route
// instead of promhttp because responses are written over raw connections.
func (m *Metrics) Export() ([]byte, error) {
	families, err := m.registry.Gather()
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	enc := expfmt.NewEncoder(&buf, expfmt.NewFormat(expfmt.TypeTextPlain))
	for _, mf := range families {
		if err := enc.Encode(mf); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}
