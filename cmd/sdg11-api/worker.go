package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	apiserver "github.com/michiboo/sdg11-backend/internal/api_server"
	"github.com/michiboo/sdg11-backend/internal/config"
	"github.com/michiboo/sdg11-backend/internal/jobs"
	"github.com/michiboo/sdg11-backend/internal/retention"
	"github.com/michiboo/sdg11-backend/internal/store"
	"github.com/michiboo/sdg11-backend/pkg/log"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Run analysis workers without the http api",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.New()
		if err != nil {
			zap.S().Fatalw("reading configuration", "error", err)
		}

		logLvl, err := zap.ParseAtomicLevel(cfg.Service.LogLevel)
		if err != nil {
			logLvl = zap.NewAtomicLevelAt(zapcore.InfoLevel)
		}

		logger := log.InitLog(logLvl)
		defer func() { _ = logger.Sync() }()

		undo := zap.ReplaceGlobals(logger)
		defer undo()

		zap.S().Info("Starting analysis workers")
		defer zap.S().Info("Analysis workers stopped")

		db, err := store.InitDB(cfg)
		if err != nil {
			zap.S().Fatalw("initializing data store", "error", err)
		}

		store := store.NewStore(db)
		defer store.Close()

		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGHUP, syscall.SIGTERM, syscall.SIGQUIT)
		defer cancel()

		dbPool, err := apiserver.PgxPool(ctx, cfg)
		if err != nil {
			zap.S().Fatalw("creating pgx pool", "error", err)
		}
		defer dbPool.Close()

		artifactStore, err := apiserver.NewArtifactStore(ctx, cfg)
		if err != nil {
			zap.S().Fatalw("creating artifact store", "error", err)
		}

		eventProducer, err := apiserver.NewEventProducer(cfg)
		if err != nil {
			zap.S().Fatalw("creating event producer", "error", err)
		}
		defer func() { _ = eventProducer.Close() }()

		worker := jobs.NewAnalysisWorker(store, artifactStore, apiserver.NewPipelineRegistry(cfg), eventProducer, cfg.Jobs.Timeout)
		queueClient, err := jobs.NewClient(dbPool, worker, jobs.ClientOptions{
			MaxWorkers:  cfg.Jobs.MaxWorkers,
			MaxAttempts: cfg.Jobs.MaxAttempts,
		})
		if err != nil {
			zap.S().Fatalw("creating queue client", "error", err)
		}

		if err := queueClient.Start(ctx); err != nil {
			zap.S().Fatalw("starting queue client", "error", err)
		}

		sweeper := retention.NewSweeper(store, artifactStore, cfg.Jobs.RetentionTTL, cfg.Jobs.SweepInterval)
		go sweeper.Run(ctx)

		<-ctx.Done()

		stopCtx, stopCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer stopCancel()
		return queueClient.Stop(stopCtx)
	},
}
