package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/michiboo/sdg11-backend/internal/store/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Job interface {
	Get(ctx context.Context, id uuid.UUID) (*model.Job, error)
	Create(ctx context.Context, job model.Job) (*model.Job, error)
	MarkStarted(ctx context.Context, id uuid.UUID) (*model.Job, error)
	MarkSucceeded(ctx context.Context, id uuid.UUID, resultRef string) (*model.Job, error)
	MarkFailed(ctx context.Context, id uuid.UUID, cause string) (*model.Job, error)
	Delete(ctx context.Context, id uuid.UUID) error
	ListExpired(ctx context.Context, olderThan time.Time) (model.JobList, error)
}

type JobStore struct {
	db *gorm.DB
}

// Make sure we conform to Job interface
var _ Job = (*JobStore)(nil)

func NewJobStore(db *gorm.DB) Job {
	return &JobStore{db: db}
}

func (s *JobStore) Get(ctx context.Context, id uuid.UUID) (*model.Job, error) {
	var job model.Job
	result := s.getDB(ctx).First(&job, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrRecordNotFound
		}
		return nil, result.Error
	}
	return &job, nil
}

func (s *JobStore) Create(ctx context.Context, job model.Job) (*model.Job, error) {
	result := s.getDB(ctx).Clauses(clause.Returning{}).Create(&job)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrDuplicatedKey) {
			return nil, ErrDuplicateKey
		}
		return nil, result.Error
	}
	return &job, nil
}

// MarkStarted moves a pending job to STARTED. A job already past PENDING is
// returned untouched so queue redeliveries never rewind the lifecycle.
func (s *JobStore) MarkStarted(ctx context.Context, id uuid.UUID) (*model.Job, error) {
	now := time.Now()
	result := s.getDB(ctx).Model(&model.Job{}).
		Where("id = ? AND status = ?", id, model.JobStatusPending).
		Updates(map[string]interface{}{"status": model.JobStatusStarted, "updated_at": &now})
	if result.Error != nil {
		return nil, result.Error
	}
	return s.Get(ctx, id)
}

// MarkSucceeded records the terminal SUCCESS state along with the artifact
// reference. The guard on non-terminal states makes the write idempotent.
func (s *JobStore) MarkSucceeded(ctx context.Context, id uuid.UUID, resultRef string) (*model.Job, error) {
	return s.markTerminal(ctx, id, map[string]interface{}{
		"status":     model.JobStatusSuccess,
		"result_ref": resultRef,
	})
}

// MarkFailed records the terminal FAILURE state with a human readable cause.
func (s *JobStore) MarkFailed(ctx context.Context, id uuid.UUID, cause string) (*model.Job, error) {
	return s.markTerminal(ctx, id, map[string]interface{}{
		"status": model.JobStatusFailure,
		"cause":  cause,
	})
}

func (s *JobStore) markTerminal(ctx context.Context, id uuid.UUID, updates map[string]interface{}) (*model.Job, error) {
	now := time.Now()
	updates["updated_at"] = &now
	result := s.getDB(ctx).Model(&model.Job{}).
		Where("id = ? AND status NOT IN ?", id, []model.JobStatus{model.JobStatusSuccess, model.JobStatusFailure}).
		Updates(updates)
	if result.Error != nil {
		return nil, result.Error
	}
	return s.Get(ctx, id)
}

func (s *JobStore) Delete(ctx context.Context, id uuid.UUID) error {
	result := s.getDB(ctx).Delete(&model.Job{}, "id = ?", id)
	if result.Error != nil && !errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return result.Error
	}
	return nil
}

func (s *JobStore) ListExpired(ctx context.Context, olderThan time.Time) (model.JobList, error) {
	var jobs model.JobList
	result := s.getDB(ctx).Where("created_at < ?", olderThan).Order("created_at ASC").Find(&jobs)
	if result.Error != nil {
		return nil, result.Error
	}
	return jobs, nil
}

func (s *JobStore) getDB(ctx context.Context) *gorm.DB {
	tx := FromContext(ctx)
	if tx != nil {
		return tx
	}
	return s.db
}
