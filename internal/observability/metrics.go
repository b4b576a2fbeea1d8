package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the flood-risk service.
type Metrics struct {
	// Pipeline metrics.
	PipelineRuns        *prometheus.CounterVec // labels: outcome={success,not_found,upstream_error,upstream_unavailable,invalid_input}
	PipelineDuration    prometheus.Histogram
	RiskClassifications *prometheus.CounterVec // labels: level={safe,moderate,high}
	ForecastDegraded    prometheus.Counter

	// Upstream metrics.
	UpstreamRequests *prometheus.CounterVec   // labels: endpoint={geocode,current,forecast}, outcome={success,error,unavailable}
	UpstreamDuration *prometheus.HistogramVec // labels: endpoint
	GeocodeCache     *prometheus.CounterVec   // labels: result={hit,miss}

	// Report publishing.
	ReportsPublished *prometheus.CounterVec // labels: outcome={success,error}
}

// NewMetrics creates and registers all service metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()

	prometheus.MustRegister(
		m.PipelineRuns,
		m.PipelineDuration,
		m.RiskClassifications,
		m.ForecastDegraded,
		m.UpstreamRequests,
		m.UpstreamDuration,
		m.GeocodeCache,
		m.ReportsPublished,
	)

	return m
}

// NewMetricsForTesting creates unregistered Metrics to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		PipelineRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "flood_risk",
			Name:      "pipeline_runs_total",
			Help:      "Pipeline runs by outcome.",
		}, []string{"outcome"}),
		PipelineDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "flood_risk",
			Name:      "pipeline_duration_seconds",
			Help:      "Duration of a complete geocode-fetch-classify run.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),
		RiskClassifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "flood_risk",
			Name:      "risk_classifications_total",
			Help:      "Risk classifications by level.",
		}, []string{"level"}),
		ForecastDegraded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "flood_risk",
			Name:      "forecast_degraded_total",
			Help:      "Runs that returned current conditions without a forecast.",
		}),
		UpstreamRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "flood_risk",
			Name:      "upstream_requests_total",
			Help:      "OpenWeatherMap request attempts by endpoint and outcome.",
		}, []string{"endpoint", "outcome"}),
		UpstreamDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "flood_risk",
			Name:      "upstream_duration_seconds",
			Help:      "OpenWeatherMap request duration in seconds.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"endpoint"}),
		GeocodeCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "flood_risk",
			Name:      "geocode_cache_total",
			Help:      "Geocoding cache lookups by result.",
		}, []string{"result"}),
		ReportsPublished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "flood_risk",
			Name:      "reports_published_total",
			Help:      "Risk reports written to the sink topic by outcome.",
		}, []string{"outcome"}),
	}
}
