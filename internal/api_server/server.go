package apiserver

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/michiboo/sdg11-backend/internal/artifacts"
	"github.com/michiboo/sdg11-backend/internal/config"
	"github.com/michiboo/sdg11-backend/internal/events"
	handlers "github.com/michiboo/sdg11-backend/internal/handlers/v1alpha1"
	"github.com/michiboo/sdg11-backend/internal/jobs"
	"github.com/michiboo/sdg11-backend/internal/osm"
	"github.com/michiboo/sdg11-backend/internal/pipeline"
	"github.com/michiboo/sdg11-backend/internal/retention"
	"github.com/michiboo/sdg11-backend/internal/service"
	"github.com/michiboo/sdg11-backend/internal/store"
	"github.com/michiboo/sdg11-backend/internal/store/model"
	"github.com/michiboo/sdg11-backend/pkg/metrics"
	"github.com/michiboo/sdg11-backend/pkg/middleware"
)

const (
	gracefulShutdownTimeout = 5 * time.Second
)

type Server struct {
	cfg      *config.Config
	store    store.Store
	listener net.Listener
}

// New returns a new instance of the urban analysis API server.
func New(
	cfg *config.Config,
	store store.Store,
	listener net.Listener,
) *Server {
	return &Server{
		cfg:      cfg,
		store:    store,
		listener: listener,
	}
}

// PgxPool builds the pgx connection pool backing the task queue.
func PgxPool(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, error) {
	dsn := fmt.Sprintf("host=%s user=%s password=%s port=%s dbname=%s",
		cfg.Database.Hostname,
		cfg.Database.User,
		cfg.Database.Password,
		cfg.Database.Port,
		cfg.Database.Name,
	)

	poolCfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse pgx config: %w", err)
	}

	// Connection pool sized for job processing + LISTEN/NOTIFY
	poolCfg.MaxConns = 20
	poolCfg.MinConns = 5
	poolCfg.MaxConnLifetime = time.Hour
	poolCfg.MaxConnIdleTime = 30 * time.Minute

	return pgxpool.NewWithConfig(ctx, poolCfg)
}

// NewArtifactStore builds the object storage client for job artifacts.
func NewArtifactStore(ctx context.Context, cfg *config.Config) (artifacts.Store, error) {
	return artifacts.NewMinioStore(ctx,
		artifacts.WithEndpoint(cfg.Artifacts.Endpoint),
		artifacts.WithBucket(cfg.Artifacts.Bucket),
		artifacts.WithAccessKey(cfg.Artifacts.AccessKey),
		artifacts.WithSecretKey(cfg.Artifacts.SecretKey),
		artifacts.WithSSL(cfg.Artifacts.UseSSL),
	)
}

// NewPipelineRegistry wires both analysis pipelines against the configured
// street network data source.
func NewPipelineRegistry(cfg *config.Config) *pipeline.Registry {
	osmClient := osm.NewClient(cfg.Service.OverpassUrl)
	registry := pipeline.NewRegistry()
	registry.Register(model.JobTypeCentrality, pipeline.NewCentralityPipeline(osmClient, cfg.Jobs.BufferDistance))
	registry.Register(model.JobTypeWalkability, pipeline.NewWalkabilityPipeline(osmClient, cfg.Jobs.BufferDistance))
	return registry
}

// NewEventProducer builds the job lifecycle event producer. Without brokers
// configured events are logged to stdout.
func NewEventProducer(cfg *config.Config) (*events.EventProducer, error) {
	var opts []events.ProducerOptions
	if cfg.Service.Kafka.Topic != "" {
		opts = append(opts, events.WithOutputTopic(cfg.Service.Kafka.Topic))
	}
	if cfg.Service.Kafka.EventSource != "" {
		opts = append(opts, events.WithEventSource(cfg.Service.Kafka.EventSource))
	}

	if len(cfg.Service.Kafka.Brokers) == 0 {
		return events.NewEventProducer(&events.StdoutWriter{}, opts...), nil
	}

	writer, err := events.NewKafkaWriter(cfg.Service.Kafka.Brokers, cfg.Service.Kafka.ClientID)
	if err != nil {
		return nil, err
	}
	return events.NewEventProducer(writer, opts...), nil
}

func (s *Server) Run(ctx context.Context) error {
	zap.S().Named("api_server").Info("Initializing API server")

	router := chi.NewRouter()

	metricMiddleware := metrics.NewMiddleware("api_server")
	metricMiddleware.MustRegisterDefault()

	router.Use(
		metricMiddleware.Handler,
		cors.Handler(cors.Options{
			AllowedOrigins:   []string{"*"},
			AllowedMethods:   []string{"GET", "POST", "HEAD", "OPTIONS"},
			AllowedHeaders:   []string{"*"},
			AllowCredentials: false,
			MaxAge:           300,
		}),
		middleware.RequestID,
		middleware.Logger(),
		chiMiddleware.Recoverer,
	)

	dbPool, err := PgxPool(ctx, s.cfg)
	if err != nil {
		return fmt.Errorf("failed to create pgx pool: %w", err)
	}
	defer dbPool.Close()

	artifactStore, err := NewArtifactStore(ctx, s.cfg)
	if err != nil {
		return fmt.Errorf("failed to create artifact store: %w", err)
	}

	eventProducer, err := NewEventProducer(s.cfg)
	if err != nil {
		return fmt.Errorf("failed to create event producer: %w", err)
	}
	defer func() {
		_ = eventProducer.Close()
	}()

	worker := jobs.NewAnalysisWorker(s.store, artifactStore, NewPipelineRegistry(s.cfg), eventProducer, s.cfg.Jobs.Timeout)
	queueClient, err := jobs.NewClient(dbPool, worker, jobs.ClientOptions{
		MaxWorkers:  s.cfg.Jobs.MaxWorkers,
		MaxAttempts: s.cfg.Jobs.MaxAttempts,
	})
	if err != nil {
		return fmt.Errorf("failed to create queue client: %w", err)
	}

	if err := queueClient.Start(ctx); err != nil {
		return fmt.Errorf("failed to start queue client: %w", err)
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := queueClient.Stop(stopCtx); err != nil {
			zap.S().Named("api_server").Warnw("failed to stop queue client", "error", err)
		}
	}()

	zap.S().Named("api_server").Info("Task queue initialized")

	sweeper := retention.NewSweeper(s.store, artifactStore, s.cfg.Jobs.RetentionTTL, s.cfg.Jobs.SweepInterval)
	go sweeper.Run(ctx)

	h := handlers.NewServiceHandler(
		service.NewJobService(s.store, queueClient, artifactStore, eventProducer),
	)
	handlers.RegisterApi(router, h)

	srv := http.Server{Addr: s.cfg.Service.Address, Handler: router}

	go func() {
		<-ctx.Done()
		zap.S().Named("api_server").Infof("Shutdown signal received: %s", ctx.Err())
		ctxTimeout, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
		defer cancel()

		srv.SetKeepAlivesEnabled(false)
		_ = srv.Shutdown(ctxTimeout)
		zap.S().Named("api_server").Info("api server terminated")
	}()

	zap.S().Named("api_server").Infof("Listening on %s...", s.listener.Addr().String())
	if err := srv.Serve(s.listener); err != nil && !errors.Is(err, net.ErrClosed) {
		return err
	}

	return nil
}
