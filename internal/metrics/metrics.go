// Package metrics exposes Prometheus instrumentation for clustering, palette
// extraction and DJ set building.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "radio_dj"

// Metrics holds the collectors for one registry.
type Metrics struct {
	registry *prometheus.Registry

	ClusterRuns       *prometheus.CounterVec
	ClusterIterations *prometheus.HistogramVec
	ClusterDuration   *prometheus.HistogramVec
	Palettes          *prometheus.CounterVec
	PaletteCache      *prometheus.CounterVec
	Sets              *prometheus.CounterVec
}

// New creates collectors registered on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		ClusterRuns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cluster_runs_total",
				Help:      "k-means runs by caller and convergence.",
			}, []string{"caller", "converged"}),
		ClusterIterations: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "cluster_iterations",
				Help:      "Reassignment passes per k-means run.",
				Buckets:   []float64{1, 2, 3, 5, 8, 13, 21, 34, 55, 100},
			}, []string{"caller"}),
		ClusterDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "cluster_duration_seconds",
				Help:      "Wall time of k-means runs.",
				Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 8),
			}, []string{"caller"}),
		Palettes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "palettes_total",
				Help:      "Palette extractions by strategy and outcome.",
			}, []string{"strategy", "outcome"}),
		PaletteCache: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "palette_cache_total",
				Help:      "Artwork palette cache lookups.",
			}, []string{"result"}),
		Sets: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "sets_total",
				Help:      "DJ sets built, by seed source.",
			}, []string{"seeds"}),
	}

	m.registry.MustRegister(
		m.ClusterRuns,
		m.ClusterIterations,
		m.ClusterDuration,
		m.Palettes,
		m.PaletteCache,
		m.Sets,
	)
	return m
}

// ObserveCluster records one k-means run.
func (m *Metrics) ObserveCluster(caller string, iterations int, converged bool, took time.Duration) {
	if m == nil {
		return
	}
	m.ClusterRuns.WithLabelValues(caller, strconv.FormatBool(converged)).Inc()
	m.ClusterIterations.WithLabelValues(caller).Observe(float64(iterations))
	m.ClusterDuration.WithLabelValues(caller).Observe(took.Seconds())
}

// ObservePalette records one palette extraction.
func (m *Metrics) ObservePalette(strategy string, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.Palettes.WithLabelValues(strategy, outcome).Inc()
}

// ObserveCache records a palette cache hit or miss.
func (m *Metrics) ObserveCache(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.PaletteCache.WithLabelValues(result).Inc()
}

// ObserveSet records a built DJ set.
func (m *Metrics) ObserveSet(fallback bool) {
	if m == nil {
		return
	}
	seeds := "cluster"
	if fallback {
		seeds = "fallback"
	}
	m.Sets.WithLabelValues(seeds).Inc()
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
