// Package monitoring exposes Prometheus instrumentation for the prediction
// pipeline.
package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PipelineMetrics aggregates the pipeline's Prometheus collectors.  A nil
// *PipelineMetrics is valid and records nothing, so call sites never need to
// guard.
type PipelineMetrics struct {
	moleculesTotal   *prometheus.CounterVec
	predictionsTotal prometheus.Counter
	reactionsTotal   prometheus.Counter
	moleculeDuration prometheus.Histogram
	batchesTotal     prometheus.Counter
	batchSize        prometheus.Histogram
}

// NewPipelineMetrics creates and registers the pipeline collectors on reg.
func NewPipelineMetrics(reg prometheus.Registerer) *PipelineMetrics {
	m := &PipelineMetrics{
		moleculesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "metaborank",
			Name:      "molecules_total",
			Help:      "Molecules processed, by outcome.",
		}, []string{"outcome"}),
		predictionsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "metaborank",
			Name:      "predictions_total",
			Help:      "Metabolite predictions emitted after deduplication and filtering.",
		}),
		reactionsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "metaborank",
			Name:      "concrete_reactions_total",
			Help:      "Concrete reactions enumerated before deduplication.",
		}),
		moleculeDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "metaborank",
			Name:      "molecule_duration_seconds",
			Help:      "Wall time spent predicting a single molecule.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 10),
		}),
		batchesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "metaborank",
			Name:      "batches_total",
			Help:      "Batch runs executed.",
		}),
		batchSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "metaborank",
			Name:      "batch_size_molecules",
			Help:      "Input molecules per batch run.",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 8),
		}),
	}
	reg.MustRegister(
		m.moleculesTotal,
		m.predictionsTotal,
		m.reactionsTotal,
		m.moleculeDuration,
		m.batchesTotal,
		m.batchSize,
	)
	return m
}

// MoleculeProcessed records one molecule outcome ("ok" or "failed") and its
// processing duration.
func (m *PipelineMetrics) MoleculeProcessed(outcome string, took time.Duration) {
	if m == nil {
		return
	}
	m.moleculesTotal.WithLabelValues(outcome).Inc()
	m.moleculeDuration.Observe(took.Seconds())
}

// ReactionsEnumerated records the concrete reaction count for one molecule.
func (m *PipelineMetrics) ReactionsEnumerated(n int) {
	if m == nil {
		return
	}
	m.reactionsTotal.Add(float64(n))
}

// PredictionsEmitted records the prediction count for one molecule.
func (m *PipelineMetrics) PredictionsEmitted(n int) {
	if m == nil {
		return
	}
	m.predictionsTotal.Add(float64(n))
}

// BatchStarted records a batch run and its size.
func (m *PipelineMetrics) BatchStarted(size int) {
	if m == nil {
		return
	}
	m.batchesTotal.Inc()
	m.batchSize.Observe(float64(size))
}
