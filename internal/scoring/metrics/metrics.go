package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the scoring module.
type Metrics struct {
	CalculateDuration prometheus.Histogram
	EvidenceLatency   *prometheus.HistogramVec
	RecalcEmployees   prometheus.Counter
	RecalcFailures    prometheus.Counter
}

// New creates a Metrics instance with all scoring metrics registered.
func New() *Metrics {
	return &Metrics{
		CalculateDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "comply_score_calculate_duration_seconds",
			Help:    "Duration of one employee score calculation",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
		EvidenceLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "comply_score_evidence_latency_seconds",
			Help:    "Latency of per-family evidence fetches, by family",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25},
		}, []string{"family"}),
		RecalcEmployees: promauto.NewCounter(prometheus.CounterOpts{
			Name: "comply_recalc_employees_total",
			Help: "Employees rescored by the batch recalculation job",
		}),
		RecalcFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "comply_recalc_failures_total",
			Help: "Per-employee failures skipped by the batch recalculation job",
		}),
	}
}

// ObserveCalculate records the duration of one score calculation.
func (m *Metrics) ObserveCalculate(start time.Time) {
	if m == nil {
		return
	}
	m.CalculateDuration.Observe(time.Since(start).Seconds())
}

// ObserveEvidenceLatency records one evidence fetch.
func (m *Metrics) ObserveEvidenceLatency(family string, start time.Time) {
	if m == nil {
		return
	}
	m.EvidenceLatency.WithLabelValues(family).Observe(time.Since(start).Seconds())
}

// IncrementRecalc counts one rescored employee.
func (m *Metrics) IncrementRecalc() {
	if m == nil {
		return
	}
	m.RecalcEmployees.Inc()
}

// IncrementRecalcFailure counts one skipped employee.
func (m *Metrics) IncrementRecalcFailure() {
	if m == nil {
		return
	}
	m.RecalcFailures.Inc()
}
