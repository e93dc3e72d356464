package jobs

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
)

const DefaultMaxAttempts = 3

type ClientOptions struct {
	MaxWorkers  int
	MaxAttempts int
}

// Queue is the submission side of the task queue.
type Queue interface {
	Enqueue(ctx context.Context, args AnalysisArgs) error
}

type Client struct {
	*river.Client[pgx.Tx]
	maxAttempts int
}

var _ Queue = (*Client)(nil)

// NewClient builds a River client processing analysis jobs with the given
// worker. Pass a nil worker for a submit-only client that never dequeues.
func NewClient(pool *pgxpool.Pool, worker *AnalysisWorker, opts ClientOptions) (*Client, error) {
	if opts.MaxWorkers <= 0 {
		opts.MaxWorkers = 4
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = DefaultMaxAttempts
	}

	cfg := &river.Config{
		// Fast polling for immediate job pickup
		FetchCooldown:     50 * time.Millisecond,
		FetchPollInterval: 100 * time.Millisecond,

		// Queue retention policies to prevent database bloat; job lifecycle
		// state lives in the registry, not in the queue tables.
		CancelledJobRetentionPeriod: 24 * time.Hour,
		CompletedJobRetentionPeriod: 24 * time.Hour,
		DiscardedJobRetentionPeriod: 7 * 24 * time.Hour,
	}

	if worker != nil {
		workers := river.NewWorkers()
		river.AddWorker(workers, worker)
		cfg.Workers = workers
		cfg.Queues = map[string]river.QueueConfig{
			DefaultQueue: {MaxWorkers: opts.MaxWorkers},
		}
	}

	riverClient, err := river.NewClient(riverpgxv5.New(pool), cfg)
	if err != nil {
		return nil, err
	}

	return &Client{Client: riverClient, maxAttempts: opts.MaxAttempts}, nil
}

func (c *Client) Enqueue(ctx context.Context, args AnalysisArgs) error {
	_, err := c.Insert(ctx, args, &river.InsertOpts{
		Queue:       DefaultQueue,
		MaxAttempts: c.maxAttempts,
	})
	return err
}
