package artifacts

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// ErrNotFound is returned when no artifact exists for the given job id.
type notFoundError struct{}

func (notFoundError) Error() string { return "artifact not found" }

var ErrNotFound error = notFoundError{}

// InMemoryStore keeps artifacts in process memory. Used in tests and in dev
// setups without an object storage endpoint.
type InMemoryStore struct {
	lock      sync.RWMutex
	artifacts map[uuid.UUID]Artifact
}

var _ Store = (*InMemoryStore)(nil)

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{artifacts: make(map[uuid.UUID]Artifact)}
}

func (s *InMemoryStore) Put(_ context.Context, jobID uuid.UUID, artifact Artifact) (string, error) {
	s.lock.Lock()
	defer s.lock.Unlock()

	stored := Artifact{Image: append([]byte(nil), artifact.Image...)}
	stored.Stats = append(stored.Stats, artifact.Stats...)
	s.artifacts[jobID] = stored
	return jobID.String(), nil
}

func (s *InMemoryStore) Get(_ context.Context, jobID uuid.UUID) (*Artifact, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	artifact, found := s.artifacts[jobID]
	if !found {
		return nil, ErrNotFound
	}

	out := Artifact{Image: append([]byte(nil), artifact.Image...)}
	out.Stats = append(out.Stats, artifact.Stats...)
	return &out, nil
}

func (s *InMemoryStore) Delete(_ context.Context, jobID uuid.UUID) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	delete(s.artifacts, jobID)
	return nil
}
