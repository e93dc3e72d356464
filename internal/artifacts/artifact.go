package artifacts

import (
	"context"

	"github.com/google/uuid"
)

// Stat is a single named numeric result of an analysis.
type Stat struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}

// Artifact is the persisted output of a successful job: a rendered PNG
// visualization plus the optional ordered stats the pipeline computed.
type Artifact struct {
	Image []byte
	Stats []Stat
}

// Store persists artifacts keyed strictly by the job id that produced them.
// Writes overwrite, so redelivered jobs converge on a single artifact.
type Store interface {
	Put(ctx context.Context, jobID uuid.UUID, artifact Artifact) (string, error)
	Get(ctx context.Context, jobID uuid.UUID) (*Artifact, error)
	Delete(ctx context.Context, jobID uuid.UUID) error
}
