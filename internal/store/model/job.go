package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type JobStatus string

// Lifecycle states of an analysis job. The only legal path is
// Pending -> Started -> {Success, Failure}.
const (
	JobStatusPending JobStatus = "PENDING"
	JobStatusStarted JobStatus = "STARTED"
	JobStatusSuccess JobStatus = "SUCCESS"
	JobStatusFailure JobStatus = "FAILURE"
)

type JobType string

const (
	JobTypeCentrality  JobType = "centrality"
	JobTypeWalkability JobType = "walkability"
)

type Job struct {
	ID        uuid.UUID `gorm:"primaryKey;column:id;type:VARCHAR(255);"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt *time.Time
	Type      JobType   `gorm:"not null;type:VARCHAR(100);index:jobs_type_idx"`
	Status    JobStatus `gorm:"not null;type:VARCHAR(100)"`
	Lng       float64   `gorm:"not null"`
	Lat       float64   `gorm:"not null"`
	ResultRef string    `gorm:"type:TEXT"`
	Cause     string    `gorm:"type:TEXT"`
}

func (j JobStatus) Terminal() bool {
	return j == JobStatusSuccess || j == JobStatusFailure
}

type JobList []Job

func (j Job) String() string {
	val, _ := json.Marshal(j)
	return string(val)
}
