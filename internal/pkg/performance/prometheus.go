package performance

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics owns a private Prometheus registry so tests can build as many
// instances as they like.
type Metrics struct {
	registry *prometheus.Registry

	LinesIngested  *prometheus.CounterVec
	LinesDropped   *prometheus.CounterVec
	Rounds         *prometheus.CounterVec
	RoundDuration  *prometheus.HistogramVec
	Unidentified   *prometheus.GaugeVec
	EvalDuration   prometheus.Histogram
	EvaluatedLines prometheus.Gauge
	AlertsSent     prometheus.Counter
}

func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		LinesIngested: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "propline",
			Name:      "lines_ingested_total",
			Help:      "Line-events written to the store, by source.",
		}, []string{"source"}),
		LinesDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "propline",
			Name:      "lines_dropped_total",
			Help:      "Lines dropped before the store, by source.",
		}, []string{"source"}),
		Rounds: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "propline",
			Name:      "collection_rounds_total",
			Help:      "Finished source workers by terminal state.",
		}, []string{"source", "state"}),
		RoundDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "propline",
			Name:      "collection_round_duration_seconds",
			Help:      "Wall time of a source worker.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
		}, []string{"source"}),
		Unidentified: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "propline",
			Name:      "unidentified_entities",
			Help:      "Size of the unidentified report, by domain.",
		}, []string{"domain"}),
		EvalDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "propline",
			Name:      "evaluation_duration_seconds",
			Help:      "Wall time of one devig/EV pass.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 14),
		}),
		EvaluatedLines: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "propline",
			Name:      "evaluated_lines",
			Help:      "Quotes with an EV in the latest pass.",
		}),
		AlertsSent: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "propline",
			Name:      "alerts_sent_total",
			Help:      "Telegram alerts delivered.",
		}),
	}
	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.LinesIngested, m.LinesDropped, m.Rounds, m.RoundDuration,
		m.Unidentified, m.EvalDuration, m.EvaluatedLines, m.AlertsSent,
	)
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry, mostly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveEvaluation records one evaluator pass.
func (m *Metrics) ObserveEvaluation(d time.Duration, evaluated int) {
	if m == nil {
		return
	}
	m.EvalDuration.Observe(d.Seconds())
	m.EvaluatedLines.Set(float64(evaluated))
}

// SetUnidentified publishes the unidentified report size of a domain.
func (m *Metrics) SetUnidentified(domain string, n int) {
	if m == nil {
		return
	}
	m.Unidentified.WithLabelValues(domain).Set(float64(n))
}

// IncAlerts counts a delivered alert.
func (m *Metrics) IncAlerts() {
	if m == nil {
		return
	}
	m.AlertsSent.Inc()
}

func (m *Metrics) observeRound(r RoundRecord) {
	m.Rounds.WithLabelValues(r.Source, r.State).Inc()
	if r.State == "skipped" {
		return
	}
	m.RoundDuration.WithLabelValues(r.Source).Observe(r.Duration.Seconds())
	m.LinesIngested.WithLabelValues(r.Source).Add(float64(r.Lines))
	m.LinesDropped.WithLabelValues(r.Source).Add(float64(r.Dropped))
}
