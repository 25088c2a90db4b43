package metrics

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	metricsDomain "metricore/internal/core/domain/metrics"
)

var (
	pipelineRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "metricore_pipeline_runs_total",
			Help: "Total number of metric entry pipeline runs, by outcome",
		},
		[]string{"outcome"},
	)

	pipelineDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "metricore_pipeline_duration_seconds",
			Help:    "Metric entry pipeline run duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"outcome"},
	)

	pipelineErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "metricore_pipeline_errors_total",
			Help: "Total number of metric entry pipeline errors, by error kind",
		},
		[]string{"kind"},
	)
)

// RunPipelineInstrumented wraps RunPipeline with the run/duration/error
// counters spec.md §4.9 names, keeping RunPipeline itself free of any
// observability concern so unit tests can call it directly.
func RunPipelineInstrumented(ctx context.Context, input *metricsDomain.MetricEntryInput, pctx *metricsDomain.PipelineContext) (*metricsDomain.ResolvedEntry, error) {
	start := time.Now()
	root, err := RunPipeline(ctx, input, pctx)
	elapsed := time.Since(start).Seconds()

	outcome := "success"
	if err != nil {
		outcome = "error"
		pipelineErrorsTotal.WithLabelValues(string(pipelineErrorKind(err))).Inc()
	}
	pipelineRunsTotal.WithLabelValues(outcome).Inc()
	pipelineDuration.WithLabelValues(outcome).Observe(elapsed)

	return root, err
}

func pipelineErrorKind(err error) metricsDomain.PipelineErrorKind {
	var pipelineErr metricsDomain.PipelineError
	if errors.As(err, &pipelineErr) {
		return pipelineErr.Kind()
	}
	return "UNKNOWN_ERROR"
}
