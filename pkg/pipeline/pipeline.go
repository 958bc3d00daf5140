// Package pipeline runs one fetch → process → analyze pass over a batch of
// endpoint requests.
//
// A run favors a best-effort partial result: failed endpoints are logged and
// left out of the dataset. Run only returns an error for an invalid batch,
// cancellation, or a batch in which every request failed.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Sternrassler/json-aggregator/pkg/analysis"
	"github.com/Sternrassler/json-aggregator/pkg/batch"
	"github.com/Sternrassler/json-aggregator/pkg/client"
	"github.com/Sternrassler/json-aggregator/pkg/logging"
	"github.com/Sternrassler/json-aggregator/pkg/processor"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

var (
	pipelineRunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pipeline_runs_total",
		Help: "Total pipeline runs by result (success, partial, failed, cancelled, invalid)",
	}, []string{"result"})

	pipelineDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "pipeline_duration_seconds",
		Help:    "Wall-clock duration of pipeline runs",
		Buckets: prometheus.DefBuckets,
	})
)

// ErrAllFetchesFailed is returned when no request of a non-empty batch
// succeeded. It wraps the individual fetch errors.
var ErrAllFetchesFailed = errors.New("all fetches failed")

// Report is the outcome of one run.
type Report struct {
	RunID     string
	StartedAt time.Time
	Elapsed   time.Duration
	Dataset   *processor.Dataset
	Result    analysis.Result
}

// Pipeline wires the coordinator, processor and analysis together.
type Pipeline struct {
	coordinator *batch.Coordinator
	processor   *processor.Processor
	logger      zerolog.Logger
}

// New creates a pipeline.
func New(coordinator *batch.Coordinator, proc *processor.Processor) *Pipeline {
	return &Pipeline{
		coordinator: coordinator,
		processor:   proc,
		logger:      logging.NewLogger("pipeline"),
	}
}

// WithLogger sets the logger and returns p.
func (p *Pipeline) WithLogger(logger zerolog.Logger) *Pipeline {
	p.logger = logger
	return p
}

// Run executes the pipeline for one batch.
func (p *Pipeline) Run(ctx context.Context, requests []batch.Request) (*Report, error) {
	report := &Report{
		RunID:     uuid.NewString(),
		StartedAt: time.Now(),
	}
	logger := p.logger.With().Str("run_id", report.RunID).Logger()

	logger.Info().
		Int("requests", len(requests)).
		Msg("Pipeline run started")

	outcomes, err := p.coordinator.FetchAll(ctx, requests)
	if err != nil {
		pipelineRunsTotal.WithLabelValues("invalid").Inc()
		logger.Error().Err(err).Msg("Invalid batch")
		return nil, fmt.Errorf("fetch batch: %w", err)
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		p.observe(report, "cancelled")
		logger.Warn().
			Dur("duration", report.Elapsed).
			Msg("Pipeline run cancelled")
		return nil, fmt.Errorf("%w: %w", client.ErrCancelled, ctxErr)
	}

	report.Dataset = p.processor.Process(outcomes)

	if len(requests) > 0 && len(report.Dataset.Failed) == len(requests) {
		p.observe(report, "failed")
		errs := make([]error, 0, len(requests))
		for _, req := range requests {
			errs = append(errs, fmt.Errorf("%s: %w", req.Key, report.Dataset.Failed[req.Key]))
		}
		logging.Critical(logger).
			Int("requests", len(requests)).
			Dur("duration", report.Elapsed).
			Msg("Every fetch failed")
		return nil, fmt.Errorf("%w: %w", ErrAllFetchesFailed, errors.Join(errs...))
	}

	report.Result = analysis.Analyze(report.Dataset)

	result := "success"
	if len(report.Dataset.Failed) > 0 {
		result = "partial"
	}
	p.observe(report, result)

	logger.Info().
		Int("present", len(report.Dataset.Records)).
		Int("skipped", len(report.Dataset.Skipped)).
		Int("failed", len(report.Dataset.Failed)).
		Dur("duration", report.Elapsed).
		Msg("Pipeline run complete")

	return report, nil
}

func (p *Pipeline) observe(report *Report, result string) {
	report.Elapsed = time.Since(report.StartedAt)
	pipelineRunsTotal.WithLabelValues(result).Inc()
	pipelineDuration.Observe(report.Elapsed.Seconds())
}
