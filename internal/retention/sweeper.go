package retention

import (
	"context"
	"time"

	"github.com/lthibault/jitterbug/v2"
	"go.uber.org/zap"

	"github.com/michiboo/sdg11-backend/internal/artifacts"
	"github.com/michiboo/sdg11-backend/internal/store"
)

// Sweeper purges jobs past their retention TTL together with the artifacts
// they produced. Polling a purged id yields NotFound, which is part of the
// API contract.
type Sweeper struct {
	store     store.Store
	artifacts artifacts.Store
	ttl       time.Duration
	interval  time.Duration
}

func NewSweeper(s store.Store, a artifacts.Store, ttl, interval time.Duration) *Sweeper {
	return &Sweeper{store: s, artifacts: a, ttl: ttl, interval: interval}
}

// Run sweeps on a jittered interval until the context is cancelled.
func (s *Sweeper) Run(ctx context.Context) {
	logger := zap.S().Named("retention")

	ticker := jitterbug.New(s.interval, &jitterbug.Norm{Stdev: s.interval / 20})
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("retention sweeper stopped")
			return
		case <-ticker.C:
			if err := s.sweep(ctx); err != nil {
				logger.Errorf("sweep failed: %v", err)
			}
		}
	}
}

func (s *Sweeper) sweep(ctx context.Context) error {
	logger := zap.S().Named("retention")

	expired, err := s.store.Job().ListExpired(ctx, time.Now().Add(-s.ttl))
	if err != nil {
		return err
	}

	for _, job := range expired {
		// the artifact goes first so a failed sweep never leaves a job whose
		// registry entry is gone but whose artifact lingers
		if err := s.artifacts.Delete(ctx, job.ID); err != nil {
			logger.Warnf("failed to delete artifact of job %s: %v", job.ID, err)
			continue
		}
		if err := s.store.Job().Delete(ctx, job.ID); err != nil {
			logger.Warnf("failed to delete job %s: %v", job.ID, err)
		}
	}

	if len(expired) > 0 {
		logger.Infof("purged %d expired jobs", len(expired))
	}
	return nil
}
