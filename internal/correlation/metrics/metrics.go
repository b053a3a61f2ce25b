package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the correlation module.
type Metrics struct {
	RecordsProcessed *prometheus.CounterVec
	RecordsFailed    *prometheus.CounterVec
	UnknownEvidence  prometheus.Counter
	SyncDuration     *prometheus.HistogramVec
}

// New creates a Metrics instance with all correlation metrics registered.
func New() *Metrics {
	return &Metrics{
		RecordsProcessed: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "comply_sync_records_processed_total",
			Help: "Evidence records processed, by handler category",
		}, []string{"category"}),
		RecordsFailed: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "comply_sync_records_failed_total",
			Help: "Evidence records skipped for missing required keys, by handler category",
		}, []string{"category"}),
		UnknownEvidence: promauto.NewCounter(prometheus.CounterOpts{
			Name: "comply_sync_unknown_evidence_total",
			Help: "Sync batches ignored because the evidence type is not in the registry",
		}),
		SyncDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "comply_sync_batch_duration_seconds",
			Help:    "Duration of one evidence sync batch, by handler category",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"category"}),
	}
}

// ObserveBatch records the outcome of one dispatched batch.
func (m *Metrics) ObserveBatch(category string, processed, failed int, start time.Time) {
	if m == nil {
		return
	}
	m.RecordsProcessed.WithLabelValues(category).Add(float64(processed))
	m.RecordsFailed.WithLabelValues(category).Add(float64(failed))
	m.SyncDuration.WithLabelValues(category).Observe(time.Since(start).Seconds())
}

// IncrementUnknownEvidence records a batch ignored as not-our-concern.
func (m *Metrics) IncrementUnknownEvidence() {
	if m == nil {
		return
	}
	m.UnknownEvidence.Inc()
}
