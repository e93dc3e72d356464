package service

import (
	"fmt"

	"github.com/google/uuid"
)

type ErrInvalidParameters struct {
	error
}

func NewErrInvalidParameters(message string) *ErrInvalidParameters {
	return &ErrInvalidParameters{fmt.Errorf("invalid parameters: %s", message)}
}

type ErrJobNotFound struct {
	error
}

func NewErrJobNotFound(id uuid.UUID) *ErrJobNotFound {
	return &ErrJobNotFound{fmt.Errorf("job %s not found", id)}
}

type ErrJobNotReady struct {
	error
}

func NewErrJobNotReady(id uuid.UUID, status string) *ErrJobNotReady {
	return &ErrJobNotReady{fmt.Errorf("job %s has no result yet: status is %s", id, status)}
}

type ErrQueueUnavailable struct {
	error
}

func NewErrQueueUnavailable(err error) *ErrQueueUnavailable {
	return &ErrQueueUnavailable{fmt.Errorf("failed to enqueue job: %w", err)}
}
