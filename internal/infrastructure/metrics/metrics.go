// Package metrics exposes Prometheus metrics for the telemetry loop.
//
// Collectors live on a private registry so tests can create as many
// instances as they like; Handler serves that registry only, together
// with the Go runtime and process collectors.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "weatherstation"

// Cycle outcomes used as the "outcome" label.
const (
	OutcomeOK          = "ok"
	OutcomeNoData      = "no_data"
	OutcomeTimeout     = "timeout"
	OutcomeFault       = "fault"
	OutcomeInterrupted = "interrupted"
)

// Metrics holds the service collectors.
type Metrics struct {
	registry *prometheus.Registry

	CyclesTotal        *prometheus.CounterVec
	CycleDuration      prometheus.Histogram
	FrameBytes         prometheus.Histogram
	CardinalitySurplus *prometheus.CounterVec
	FaultsTotal        *prometheus.CounterVec
	SinkErrors         *prometheus.CounterVec
	TopicValue         *prometheus.GaugeVec
	LastSuccess        prometheus.Gauge
}

// New creates and registers the collectors on a private registry.
//
// Returns:
//   - *Metrics: Collectors ready to update and serve via Handler
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),

		CyclesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cycles_total",
				Help:      "Telemetry cycles by outcome",
			},
			[]string{"outcome"},
		),

		CycleDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "cycle_duration_seconds",
				Help:      "Time from cycle start to decoded data, including the wait for the frame",
				Buckets:   []float64{0.01, 0.1, 0.5, 1, 5, 15, 30, 60, 120},
			},
		),

		FrameBytes: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "frame_bytes",
				Help:      "Size of decoded frames",
				Buckets:   prometheus.ExponentialBuckets(256, 2, 8),
			},
		),

		CardinalitySurplus: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cardinality_surplus_total",
				Help:      "Cycles in which a schema leaf matched more records than channels",
			},
			[]string{"leaf"},
		),

		FaultsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "faults_total",
				Help:      "Faults by error code",
			},
			[]string{"code"},
		),

		SinkErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "sink_errors_total",
				Help:      "Failed publishes by sink",
			},
			[]string{"sink"},
		),

		TopicValue: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "topic_value",
				Help:      "Latest published value of each numeric topic field",
			},
			[]string{"topic", "field"},
		),

		LastSuccess: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "last_success_timestamp_seconds",
				Help:      "Unix time of the last successful cycle",
			},
		),
	}

	m.registry.MustRegister(
		m.CyclesTotal,
		m.CycleDuration,
		m.FrameBytes,
		m.CardinalitySurplus,
		m.FaultsTotal,
		m.SinkErrors,
		m.TopicValue,
		m.LastSuccess,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry returns the private registry.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveCycle counts one cycle. frameBytes is ignored when zero.
func (m *Metrics) ObserveCycle(outcome string, d time.Duration, frameBytes int) {
	m.CyclesTotal.WithLabelValues(outcome).Inc()
	m.CycleDuration.Observe(d.Seconds())
	if frameBytes > 0 {
		m.FrameBytes.Observe(float64(frameBytes))
	}
	if outcome == OutcomeOK {
		m.LastSuccess.SetToCurrentTime()
	}
}

// Surplus counts a leaf that matched too many records.
func (m *Metrics) Surplus(leaf string) {
	m.CardinalitySurplus.WithLabelValues(leaf).Inc()
}

// Fault counts a fault by code.
func (m *Metrics) Fault(code int) {
	m.FaultsTotal.WithLabelValues(strconv.Itoa(code)).Inc()
}

// SinkError counts a failed publish.
func (m *Metrics) SinkError(sink string) {
	m.SinkErrors.WithLabelValues(sink).Inc()
}

// SetTopic updates the value gauges of one topic.
func (m *Metrics) SetTopic(topic string, fields map[string]float64) {
	for field, v := range fields {
		m.TopicValue.WithLabelValues(topic, field).Set(v)
	}
}
