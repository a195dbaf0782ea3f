package monitoring

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sells-group/alpha-grader/internal/cache"
	"github.com/sells-group/alpha-grader/internal/model"
)

// Metrics holds the Prometheus collectors for grading. A nil *Metrics is a
// valid no-op so callers never need to guard.
type Metrics struct {
	registry *prometheus.Registry

	batches       *prometheus.CounterVec
	computed      *prometheus.CounterVec
	playerErrors  *prometheus.CounterVec
	batchDuration *prometheus.HistogramVec
	alerts        *prometheus.CounterVec
	reads         *prometheus.CounterVec
}

// NewMetrics creates the collectors on a private registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),

		batches: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "alpha_batches_total",
				Help: "Batch computes run, by position",
			},
			[]string{"position"},
		),
		computed: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "alpha_players_computed_total",
				Help: "Grades computed and cached, by position",
			},
			[]string{"position"},
		),
		playerErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "alpha_player_errors_total",
				Help: "Players skipped after a grading error, by position",
			},
			[]string{"position"},
		),
		batchDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "alpha_batch_duration_seconds",
				Help:    "Wall time of a batch compute",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
			},
			[]string{"position"},
		),
		alerts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "alpha_guardrail_alerts_total",
				Help: "Guardrail alerts raised, by code and position",
			},
			[]string{"code", "position"},
		),
		reads: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "alpha_grade_reads_total",
				Help: "Grade reads, by position and how they were served",
			},
			[]string{"position", "source"},
		),
	}

	m.registry.MustRegister(
		m.batches, m.computed, m.playerErrors, m.batchDuration, m.alerts, m.reads,
		collectors.NewGoCollector(),
	)
	return m
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveBatch records one finished batch.
func (m *Metrics) ObserveBatch(pos model.Position, computed, errs int, d time.Duration) {
	if m == nil {
		return
	}
	p := pos.String()
	m.batches.WithLabelValues(p).Inc()
	m.computed.WithLabelValues(p).Add(float64(computed))
	m.playerErrors.WithLabelValues(p).Add(float64(errs))
	m.batchDuration.WithLabelValues(p).Observe(d.Seconds())
}

// ObserveAlerts counts guardrail alerts.
func (m *Metrics) ObserveAlerts(alerts []model.Alert) {
	if m == nil {
		return
	}
	for _, a := range alerts {
		m.alerts.WithLabelValues(a.Code, a.Position.String()).Inc()
	}
}

// ObserveRead counts one read. source is "cache", "store" or "empty".
func (m *Metrics) ObserveRead(position, source string) {
	if m == nil {
		return
	}
	m.reads.WithLabelValues(position, source).Inc()
}

// WatchCache exports read cache statistics as gauges sampled at scrape time.
func (m *Metrics) WatchCache(c cache.Cache) {
	if m == nil || c == nil {
		return
	}
	m.registry.MustRegister(
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "alpha_read_cache_entries",
			Help: "Entries held by the read cache",
		}, func() float64 { return float64(c.Stats().Entries) }),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "alpha_read_cache_hit_ratio",
			Help: "Read cache hit ratio since start",
		}, func() float64 { return c.Stats().HitRate }),
	)
}

// WatchCircuit exports the provider circuit state (0 closed, 1 open,
// 2 half-open).
func (m *Metrics) WatchCircuit(state func() int) {
	if m == nil || state == nil {
		return
	}
	m.registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "alpha_provider_circuit_state",
		Help: "Provider circuit breaker state",
	}, func() float64 { return float64(state()) }))
}
