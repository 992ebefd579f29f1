package telemetry

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"alembic/internal/optimizer"
)

var ErrRegistrationFailed = errors.New("metric registration failed")

const (
	namespace = "alembic"
	subsystem = "optimizer"
)

var durationBuckets = []float64{
	0.0001, 0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5,
}

// Metrics exports optimizer progress to Prometheus. It implements
// optimizer.Observer; every series is labeled with the run id.
type Metrics struct {
	runID string

	generations   *prometheus.CounterVec
	retries       *prometheus.CounterVec
	failures      *prometheus.CounterVec
	snapshots     *prometheus.CounterVec
	duration      *prometheus.HistogramVec
	generation    *prometheus.GaugeVec
	constraint    *prometheus.GaugeVec
	frontSize     *prometheus.GaugeVec
	bestObjective *prometheus.GaugeVec
}

var _ optimizer.Observer = (*Metrics)(nil)

// NewMetrics registers the optimizer collectors on reg. A nil reg uses
// prometheus.DefaultRegisterer.
func NewMetrics(reg prometheus.Registerer, runID string) (*Metrics, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{runID: runID}

	m.generations = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "generations_total",
		Help:      "Completed generations.",
	}, []string{"run"})
	m.retries = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "retries_total",
		Help:      "Generation steps retried after a failed attempt.",
	}, []string{"run"})
	m.failures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "failures_total",
		Help:      "Failed generation attempts, counting each retry.",
	}, []string{"run"})
	m.snapshots = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "snapshots_total",
		Help:      "Population snapshots emitted.",
	}, []string{"run"})
	m.duration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "generation_duration_seconds",
		Help:      "Wall time of one generation step.",
		Buckets:   durationBuckets,
	}, []string{"run"})
	m.generation = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "generation",
		Help:      "Last completed generation.",
	}, []string{"run"})
	m.constraint = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "best_constraint",
		Help:      "Constraint of the best individual (0 is on target volume).",
	}, []string{"run"})
	m.frontSize = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "front_size",
		Help:      "Individuals on the first Pareto front.",
	}, []string{"run"})
	m.bestObjective = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "best_objective",
		Help:      "Effect expression values of the best individual.",
	}, []string{"run", "objective"})

	for _, c := range m.collectors() {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrRegistrationFailed, err)
		}
	}
	return m, nil
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.generations, m.retries, m.failures, m.snapshots, m.duration,
		m.generation, m.constraint, m.frontSize, m.bestObjective,
	}
}

func (m *Metrics) ObserveGeneration(stats optimizer.GenerationStats) {
	m.generations.WithLabelValues(m.runID).Inc()
	m.retries.WithLabelValues(m.runID).Add(float64(stats.Retries))
	m.duration.WithLabelValues(m.runID).Observe(stats.Duration.Seconds())
	m.generation.WithLabelValues(m.runID).Set(float64(stats.Generation))
	m.constraint.WithLabelValues(m.runID).Set(stats.BestConstraint)
	m.frontSize.WithLabelValues(m.runID).Set(float64(stats.FrontSize))
	for i, v := range stats.BestFitness {
		m.bestObjective.WithLabelValues(m.runID, strconv.Itoa(i)).Set(v)
	}
}

func (m *Metrics) ObserveFailure(int, error) {
	m.failures.WithLabelValues(m.runID).Inc()
}

func (m *Metrics) ObserveSnapshot() {
	m.snapshots.WithLabelValues(m.runID).Inc()
}

// Handler serves the metrics gathered by g in the Prometheus text format.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

// Observers fans one observer call out to several.
type Observers []optimizer.Observer

func (o Observers) ObserveGeneration(stats optimizer.GenerationStats) {
	for _, observer := range o {
		observer.ObserveGeneration(stats)
	}
}

func (o Observers) ObserveFailure(generation int, err error) {
	for _, observer := range o {
		observer.ObserveFailure(generation, err)
	}
}
