package service

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/michiboo/sdg11-backend/internal/artifacts"
	"github.com/michiboo/sdg11-backend/internal/events"
	"github.com/michiboo/sdg11-backend/internal/handlers/validator"
	"github.com/michiboo/sdg11-backend/internal/jobs"
	"github.com/michiboo/sdg11-backend/internal/store"
	"github.com/michiboo/sdg11-backend/internal/store/model"
	"github.com/michiboo/sdg11-backend/pkg/metrics"
)

// JobParams are the client-supplied inputs of an analysis job.
type JobParams struct {
	Lng float64 `validate:"finite,gte=-180,lte=180"`
	Lat float64 `validate:"finite,gte=-90,lte=90"`
}

type JobService struct {
	store       store.Store
	queue       jobs.Queue
	artifacts   artifacts.Store
	eventWriter *events.EventProducer
	validator   *validator.Validator
}

func NewJobService(s store.Store, queue jobs.Queue, a artifacts.Store, ew *events.EventProducer) *JobService {
	v := validator.NewValidator()
	v.Register(validator.CoordinateRules()...)
	return &JobService{
		store:       s,
		queue:       queue,
		artifacts:   a,
		eventWriter: ew,
		validator:   v,
	}
}

// CreateJob validates the parameters, registers the job as PENDING and hands
// it to the task queue. It never blocks on the computation itself.
func (s *JobService) CreateJob(ctx context.Context, jobType model.JobType, params JobParams) (*model.Job, error) {
	if err := s.validator.Struct(params); err != nil {
		return nil, NewErrInvalidParameters(err.Error())
	}

	job := model.Job{
		ID:     uuid.New(),
		Type:   jobType,
		Status: model.JobStatusPending,
		Lng:    params.Lng,
		Lat:    params.Lat,
	}

	// the registry entry and the queue insert must land together: keep the
	// entry in an open transaction until the queue accepted the job
	txCtx, err := s.store.NewTransactionContext(ctx)
	if err != nil {
		return nil, err
	}

	created, err := s.store.Job().Create(txCtx, job)
	if err != nil {
		if _, rbErr := store.Rollback(txCtx); rbErr != nil {
			zap.S().Named("job_service").Errorf("failed to rollback job %s: %v", job.ID, rbErr)
		}
		return nil, err
	}

	if err := s.queue.Enqueue(ctx, jobs.AnalysisArgs{
		ID:   created.ID,
		Type: created.Type,
		Lng:  created.Lng,
		Lat:  created.Lat,
	}); err != nil {
		// no silently created jobs: the caller can safely resubmit
		if _, rbErr := store.Rollback(txCtx); rbErr != nil {
			zap.S().Named("job_service").Errorf("failed to rollback job %s after enqueue failure: %v", created.ID, rbErr)
		}
		return nil, NewErrQueueUnavailable(err)
	}

	if _, err := store.Commit(txCtx); err != nil {
		return nil, err
	}

	metrics.IncreaseJobsSubmittedTotalMetric(string(jobType))
	s.emitEvent(ctx, created, "")

	return created, nil
}

// GetJob returns the registry entry backing the polling contract.
func (s *JobService) GetJob(ctx context.Context, id uuid.UUID) (*model.Job, error) {
	job, err := s.store.Job().Get(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return nil, NewErrJobNotFound(id)
		}
		return nil, err
	}
	return job, nil
}

// GetJobResult fetches the artifact of a successful job. It is a read-only
// operation: calling it any number of times returns the same bytes and never
// mutates job state.
func (s *JobService) GetJobResult(ctx context.Context, id uuid.UUID) (*artifacts.Artifact, error) {
	job, err := s.GetJob(ctx, id)
	if err != nil {
		return nil, err
	}

	if job.Status != model.JobStatusSuccess {
		return nil, NewErrJobNotReady(id, string(job.Status))
	}

	artifact, err := s.artifacts.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return artifact, nil
}

func (s *JobService) emitEvent(ctx context.Context, job *model.Job, cause string) {
	err := events.EmitJobEvent(ctx, s.eventWriter, events.JobEvent{
		JobID:  job.ID.String(),
		Type:   string(job.Type),
		Status: string(job.Status),
		Cause:  cause,
	})
	if err != nil {
		zap.S().Named("job_service").Warnf("failed to emit job event: %v", err)
	}
}
