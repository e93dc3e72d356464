package pipeline

import (
	"context"
	"fmt"

	"github.com/michiboo/sdg11-backend/internal/artifacts"
	"github.com/michiboo/sdg11-backend/internal/store/model"
	"go.uber.org/zap"
)

// Analysis constants shared by both pipelines.
const (
	// DefaultBufferDistance is the search radius in meters around the
	// requested point for which the street network is retrieved.
	DefaultBufferDistance = 5000.0

	// plotBuffer bounds the rendered plot window in meters.
	plotBuffer = 3500.0
)

// Params are the validated inputs of an analysis job.
type Params struct {
	Lng float64
	Lat float64
}

// Pipeline computes one analysis type: it either produces an artifact or a
// typed *Error describing why no artifact could be produced.
type Pipeline interface {
	Run(ctx context.Context, params Params) (*artifacts.Artifact, error)
}

// Registry maps job types to their pipeline and guards the pipeline boundary:
// a panic inside a pipeline is converted into a failure instead of taking the
// worker down.
type Registry struct {
	pipelines map[model.JobType]Pipeline
}

func NewRegistry() *Registry {
	return &Registry{pipelines: make(map[model.JobType]Pipeline)}
}

func (r *Registry) Register(jobType model.JobType, p Pipeline) {
	r.pipelines[jobType] = p
}

func (r *Registry) Run(ctx context.Context, jobType model.JobType, params Params) (artifact *artifacts.Artifact, err error) {
	p, found := r.pipelines[jobType]
	if !found {
		return nil, NewError(fmt.Sprintf("unknown analysis type %q", jobType), nil)
	}

	defer func() {
		if rec := recover(); rec != nil {
			zap.S().Named("pipeline").Errorf("pipeline %s panicked: %v", jobType, rec)
			artifact = nil
			err = NewError(fmt.Sprintf("internal analysis error: %v", rec), nil)
		}
	}()

	return p.Run(ctx, params)
}
