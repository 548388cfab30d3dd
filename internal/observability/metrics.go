package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus collectors of the analysis pipeline.
type Metrics struct {
	JobsStarted      prometheus.Counter
	JobsFinished     *prometheus.CounterVec
	StageDuration    *prometheus.HistogramVec
	ProviderFailures *prometheus.CounterVec
	ProviderSelected *prometheus.CounterVec
	Captures         *prometheus.CounterVec
	HTTPRequests     *prometheus.CounterVec
	HTTPDuration     *prometheus.HistogramVec
	RateLimited      *prometheus.CounterVec
}

// NewMetrics registers the collectors with reg. A nil reg uses the default registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		JobsStarted: factory.NewCounter(prometheus.CounterOpts{
			Name: "catalog_analysis_jobs_started_total",
			Help: "Analysis jobs started",
		}),
		JobsFinished: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "catalog_analysis_jobs_finished_total",
			Help: "Analysis jobs finished, by terminal status",
		}, []string{"status"}),
		StageDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "catalog_analysis_stage_duration_seconds",
			Help:    "Duration of pipeline stages",
			Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 20, 40},
		}, []string{"stage", "status"}),
		ProviderFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "catalog_provider_failures_total",
			Help: "Provider calls that failed during provider selection",
		}, []string{"provider"}),
		ProviderSelected: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "catalog_provider_selected_total",
			Help: "Providers chosen by failover selection",
		}, []string{"provider"}),
		Captures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "catalog_error_reports_total",
			Help: "Events sent to the error-reporting sink, by kind",
		}, []string{"kind"}),
		HTTPRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "catalog_http_requests_total",
			Help: "HTTP requests served, by route pattern and status code",
		}, []string{"method", "route", "code"}),
		HTTPDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "catalog_http_request_duration_seconds",
			Help:    "HTTP request latency by route pattern",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		RateLimited: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "catalog_http_rate_limited_total",
			Help: "Requests rejected by the rate limiter",
		}, []string{"method", "route"}),
	}
}
