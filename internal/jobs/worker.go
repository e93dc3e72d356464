package jobs

import (
	"context"
	"errors"
	"time"

	"github.com/riverqueue/river"
	"go.uber.org/zap"

	"github.com/michiboo/sdg11-backend/internal/artifacts"
	"github.com/michiboo/sdg11-backend/internal/events"
	"github.com/michiboo/sdg11-backend/internal/pipeline"
	"github.com/michiboo/sdg11-backend/internal/store"
	"github.com/michiboo/sdg11-backend/internal/store/model"
	"github.com/michiboo/sdg11-backend/pkg/metrics"
)

const (
	DefaultJobTimeout = 10 * time.Minute
	causeTimeout      = "analysis timed out"
)

// AnalysisWorker executes one queued analysis job: it marks the registry
// entry STARTED, runs the matching pipeline, persists the artifact under the
// job id and records the terminal state, emitting a lifecycle event for every
// transition it makes. Redelivered jobs that already reached a terminal state
// are acknowledged without rework.
type AnalysisWorker struct {
	river.WorkerDefaults[AnalysisArgs]
	store       store.Store
	artifacts   artifacts.Store
	pipelines   *pipeline.Registry
	eventWriter *events.EventProducer
	timeout     time.Duration
}

func NewAnalysisWorker(s store.Store, a artifacts.Store, p *pipeline.Registry, ew *events.EventProducer, timeout time.Duration) *AnalysisWorker {
	if timeout <= 0 {
		timeout = DefaultJobTimeout
	}
	return &AnalysisWorker{store: s, artifacts: a, pipelines: p, eventWriter: ew, timeout: timeout}
}

func (w *AnalysisWorker) Timeout(job *river.Job[AnalysisArgs]) time.Duration {
	return w.timeout
}

func (w *AnalysisWorker) Work(ctx context.Context, job *river.Job[AnalysisArgs]) error {
	logger := zap.S().Named("analysis_worker").With("job_id", job.Args.ID, "type", job.Args.Type)

	entry, err := w.store.Job().Get(ctx, job.Args.ID)
	if err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			// registry entry purged, nothing left to do
			logger.Warn("job no longer registered, dropping")
			return nil
		}
		return err
	}
	if entry.Status.Terminal() {
		logger.Infof("job already %s, skipping redelivery", entry.Status)
		return nil
	}

	if _, err := w.store.Job().MarkStarted(ctx, job.Args.ID); err != nil {
		return err
	}
	w.emitEvent(ctx, job.Args, model.JobStatusStarted, "")
	logger.Info("analysis started")
	start := time.Now()

	artifact, runErr := w.pipelines.Run(ctx, job.Args.Type, pipeline.Params{Lng: job.Args.Lng, Lat: job.Args.Lat})
	if runErr != nil {
		// A cancelled context means shutdown, not a pipeline fault: hand the
		// job back to the queue for redelivery.
		if errors.Is(runErr, context.Canceled) {
			return runErr
		}

		cause := failureCause(runErr)
		if _, err := w.store.Job().MarkFailed(ctx, job.Args.ID, cause); err != nil {
			return err
		}
		metrics.IncreaseJobsCompletedTotalMetric(string(job.Args.Type), string(model.JobStatusFailure))
		w.emitEvent(ctx, job.Args, model.JobStatusFailure, cause)
		logger.Warnf("analysis failed: %s", cause)
		return nil
	}

	// persistence runs on a fresh deadline: the job deadline may be nearly spent
	putCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), time.Minute)
	defer cancel()

	resultRef, err := w.artifacts.Put(putCtx, job.Args.ID, *artifact)
	if err != nil {
		return err
	}
	if _, err := w.store.Job().MarkSucceeded(putCtx, job.Args.ID, resultRef); err != nil {
		return err
	}

	metrics.IncreaseJobsCompletedTotalMetric(string(job.Args.Type), string(model.JobStatusSuccess))
	metrics.ObserveJobDurationMetric(string(job.Args.Type), time.Since(start))
	w.emitEvent(putCtx, job.Args, model.JobStatusSuccess, "")
	logger.Infof("analysis succeeded in %s", time.Since(start))
	return nil
}

func (w *AnalysisWorker) emitEvent(ctx context.Context, args AnalysisArgs, status model.JobStatus, cause string) {
	err := events.EmitJobEvent(ctx, w.eventWriter, events.JobEvent{
		JobID:  args.ID.String(),
		Type:   string(args.Type),
		Status: string(status),
		Cause:  cause,
	})
	if err != nil {
		zap.S().Named("analysis_worker").Warnf("failed to emit job event: %v", err)
	}
}

func failureCause(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return causeTimeout
	}
	var pipelineErr *pipeline.Error
	if errors.As(err, &pipelineErr) {
		return pipelineErr.Cause
	}
	return err.Error()
}
