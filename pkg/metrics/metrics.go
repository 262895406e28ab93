package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application. A nil *Metrics
// is valid and records nothing.
type Metrics struct {
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	JobsInQueue         prometheus.Gauge
	CandidatesTotal     *prometheus.CounterVec
	VerdictsTotal       *prometheus.CounterVec
	AreasTotal          *prometheus.CounterVec
	InspectionDuration  *prometheus.HistogramVec
}

// New registers the metrics with reg. Use prometheus.DefaultRegisterer in
// production and a fresh registry in tests.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		HTTPRequestsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests.",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Duration of HTTP requests.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path", "status"},
		),
		JobsInQueue: f.NewGauge(
			prometheus.GaugeOpts{
				Name: "prospector_harvest_jobs_in_queue",
				Help: "Current number of harvest jobs waiting in the queue.",
			},
		),
		CandidatesTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "prospector_candidates_total",
				Help: "Harvested result items by outcome.",
			},
			[]string{"outcome"}, // kept, adequate, duplicate, skipped
		),
		VerdictsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "prospector_verdicts_total",
				Help: "Site verdicts by category.",
			},
			[]string{"category"},
		),
		AreasTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "prospector_areas_total",
				Help: "Harvested areas by status.",
			},
			[]string{"status"}, // completed, failed
		),
		InspectionDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "prospector_inspection_duration_seconds",
				Help:    "Duration of deep site inspections.",
				Buckets: []float64{1, 2, 5, 10, 15, 30, 60},
			},
			[]string{"domain"},
		),
	}
}

func (m *Metrics) ObserveHTTP(method, path, status string, seconds float64) {
	if m == nil {
		return
	}
	m.HTTPRequestDuration.WithLabelValues(method, path, status).Observe(seconds)
	m.HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
}

func (m *Metrics) IncCandidate(outcome string) {
	if m == nil {
		return
	}
	m.CandidatesTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) IncVerdict(category string) {
	if m == nil {
		return
	}
	m.VerdictsTotal.WithLabelValues(category).Inc()
}

func (m *Metrics) IncArea(status string) {
	if m == nil {
		return
	}
	m.AreasTotal.WithLabelValues(status).Inc()
}

func (m *Metrics) ObserveInspection(domain string, seconds float64) {
	if m == nil {
		return
	}
	m.InspectionDuration.WithLabelValues(domain).Observe(seconds)
}

func (m *Metrics) SetQueueSize(n int64) {
	if m == nil {
		return
	}
	m.JobsInQueue.Set(float64(n))
}
