package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics is safe to use through a nil pointer; every observation is then a
// no-op.
type Metrics struct {
	runs            *prometheus.CounterVec
	runDuration     *prometheus.HistogramVec
	resources       *prometheus.CounterVec
	categories      *prometheus.CounterVec
	refreshNodes    *prometheus.CounterVec
	lastSuccessUnix *prometheus.GaugeVec
}

func New(registerer prometheus.Registerer) *Metrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	factory := promauto.With(registerer)

	return &Metrics{
		runs: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "edflex_job_runs_total",
				Help: "Total number of job runs per scope",
			},
			[]string{"job", "scope", "status"},
		),
		runDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "edflex_job_duration_seconds",
				Help:    "Duration of job runs in seconds",
				Buckets: []float64{.1, .5, 1, 5, 15, 30, 60, 300, 900, 1800},
			},
			[]string{"job"},
		),
		resources: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "edflex_resources_total",
				Help: "Cached resources touched by sync runs",
			},
			[]string{"job", "action"},
		),
		categories: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "edflex_categories_total",
				Help: "Cached categories touched by sync runs",
			},
			[]string{"job", "action"},
		),
		refreshNodes: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "edflex_refresh_nodes_total",
				Help: "Embedded resource nodes seen by the course refresher",
			},
			[]string{"action"},
		),
		lastSuccessUnix: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "edflex_job_last_success_timestamp_seconds",
				Help: "Unix time of the last successful run per scope",
			},
			[]string{"job", "scope"},
		),
	}
}

func (m *Metrics) ObserveRun(job, scope string, duration time.Duration, err error) {
	if m == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	m.runs.WithLabelValues(job, scope, status).Inc()
	m.runDuration.WithLabelValues(job).Observe(duration.Seconds())
	if err == nil {
		m.lastSuccessUnix.WithLabelValues(job, scope).SetToCurrentTime()
	}
}

func (m *Metrics) AddResources(job, action string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.resources.WithLabelValues(job, action).Add(float64(n))
}

func (m *Metrics) AddCategories(job, action string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.categories.WithLabelValues(job, action).Add(float64(n))
}

func (m *Metrics) AddRefreshNodes(action string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.refreshNodes.WithLabelValues(action).Add(float64(n))
}
