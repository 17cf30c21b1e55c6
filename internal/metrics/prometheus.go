package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "object_paint"

// Recorder exports pipeline timings and outcomes to Prometheus. A nil
// *Recorder is valid and records nothing.
type Recorder struct {
	stageSeconds *prometheus.HistogramVec
	runs         *prometheus.CounterVec
	coverage     prometheus.Histogram
	fallbacks    *prometheus.CounterVec
}

// NewRecorder registers the collectors on reg.
func NewRecorder(reg prometheus.Registerer) *Recorder {
	r := &Recorder{
		stageSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Duration of each pipeline stage.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 12),
		}, []string{"stage"}),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Pipeline runs by segmentation mode and outcome.",
		}, []string{"segmentation_mode", "status"}),
		coverage: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "mask_coverage_ratio",
			Help:      "Fraction of the image covered by the final mask.",
			Buckets:   prometheus.LinearBuckets(0.05, 0.1, 10),
		}),
		fallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "accelerator_fallbacks_total",
			Help:      "Optional model paths that fell back to the classical method.",
		}, []string{"component"}),
	}
	reg.MustRegister(r.stageSeconds, r.runs, r.coverage, r.fallbacks)
	return r
}

func (r *Recorder) ObserveStage(stage string, d time.Duration) {
	if r == nil {
		return
	}
	r.stageSeconds.WithLabelValues(stage).Observe(d.Seconds())
}

func (r *Recorder) ObserveRun(segmentationMode, status string) {
	if r == nil {
		return
	}
	r.runs.WithLabelValues(segmentationMode, status).Inc()
}

func (r *Recorder) ObserveCoverage(coverage float64) {
	if r == nil {
		return
	}
	r.coverage.Observe(coverage)
}

func (r *Recorder) ObserveFallback(component string) {
	if r == nil {
		return
	}
	r.fallbacks.WithLabelValues(component).Inc()
}
