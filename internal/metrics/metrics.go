// Package metrics holds the Prometheus collectors for the query pipeline.
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	requests           *prometheus.CounterVec
	stageDuration      *prometheus.HistogramVec
	documents          prometheus.Histogram
	truncations        prometheus.Counter
	retrievalFallbacks prometheus.Counter
}

// New registers the pipeline collectors on reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		requests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "ragbot_requests_total",
			Help: "Pipeline invocations by outcome.",
		}, []string{"outcome"}),
		stageDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "ragbot_stage_duration_seconds",
			Help:    "Time spent in each pipeline stage.",
			Buckets: prometheus.DefBuckets,
		}, []string{"stage"}),
		documents: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "ragbot_retrieved_documents",
			Help:    "Documents returned by the retriever per request.",
			Buckets: []float64{0, 1, 2, 5, 10, 20, 50},
		}),
		truncations: f.NewCounter(prometheus.CounterOpts{
			Name: "ragbot_context_truncations_total",
			Help: "Contexts cut down to the generator input budget.",
		}),
		retrievalFallbacks: f.NewCounter(prometheus.CounterOpts{
			Name: "ragbot_retrieval_fallbacks_total",
			Help: "Retrieval failures answered with an empty document set.",
		}),
	}
}

func (m *Metrics) ObserveRequest(outcome string) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveStage(stage string, d time.Duration) {
	if m == nil {
		return
	}
	m.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

func (m *Metrics) ObserveDocuments(n int) {
	if m == nil {
		return
	}
	m.documents.Observe(float64(n))
}

func (m *Metrics) ObserveTruncation() {
	if m == nil {
		return
	}
	m.truncations.Inc()
}

func (m *Metrics) ObserveFallback() {
	if m == nil {
		return
	}
	m.retrievalFallbacks.Inc()
}
