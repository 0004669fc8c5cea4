package pipeline

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Fallback stage labels.
const (
	StageEmbedding = "embedding"
	StageCurated   = "curated"
	StageIntent    = "intent"
	StageRetrieval = "retrieval"
	StageSynthesis = "synthesis"
)

// Metrics holds the pipeline's Prometheus collectors.
type Metrics struct {
	// Resolutions counts completed requests by terminal path: curated,
	// synthesized, no_evidence, or invalid.
	Resolutions *prometheus.CounterVec

	// Fallbacks counts degraded stages by stage label.
	Fallbacks *prometheus.CounterVec

	// FilterRetries counts unfiltered retries after an empty filtered search.
	FilterRetries prometheus.Counter

	// StageLatency observes the duration of each stage.
	StageLatency *prometheus.HistogramVec
}

// NewMetrics registers the pipeline collectors on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Resolutions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "loan_insight",
			Name:      "resolutions_total",
			Help:      "Resolved queries by terminal path.",
		}, []string{"path"}),
		Fallbacks: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "loan_insight",
			Name:      "fallbacks_total",
			Help:      "Stages that used their deterministic fallback.",
		}, []string{"stage"}),
		FilterRetries: f.NewCounter(prometheus.CounterOpts{
			Namespace: "loan_insight",
			Name:      "filter_retries_total",
			Help:      "Unfiltered retrieval retries after an empty filtered search.",
		}),
		StageLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "loan_insight",
			Name:      "stage_duration_seconds",
			Help:      "Duration of each pipeline stage.",
			Buckets:   []float64{.001, .005, .01, .05, .1, .25, .5, 1, 2.5, 5, 10, 20},
		}, []string{"state"}),
	}
}
