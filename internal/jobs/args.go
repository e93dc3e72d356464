package jobs

import (
	"github.com/google/uuid"
	"github.com/michiboo/sdg11-backend/internal/store/model"
	"github.com/riverqueue/river"
)

const (
	JobKind      = "urban_analysis"
	DefaultQueue = "analysis"
)

// AnalysisArgs carries an analysis request over the task queue. The job id is
// assigned at submission time and keys both the registry entry and the
// artifact written by the worker.
type AnalysisArgs struct {
	ID   uuid.UUID     `json:"id"`
	Type model.JobType `json:"type"`
	Lng  float64       `json:"lng"`
	Lat  float64       `json:"lat"`
}

func (AnalysisArgs) Kind() string {
	return JobKind
}

func (AnalysisArgs) InsertOpts() river.InsertOpts {
	return river.InsertOpts{
		Queue: DefaultQueue,
	}
}
