package main

import (
	"context"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	apiserver "github.com/michiboo/sdg11-backend/internal/api_server"
	"github.com/michiboo/sdg11-backend/internal/config"
	"github.com/michiboo/sdg11-backend/internal/store"
	"github.com/michiboo/sdg11-backend/pkg/log"
	"github.com/michiboo/sdg11-backend/pkg/migrations"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Migrate the db",
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

		defer zap.S().Info("Db migrated")

		zap.S().Info("Initializing data store")
		db, err := store.InitDB(cfg)
		if err != nil {
			zap.S().Fatalw("initializing data store", "error", err)
		}

		ctx := context.Background()
		dbPool, err := apiserver.PgxPool(ctx, cfg)
		if err != nil {
			zap.S().Fatalw("creating pgx pool", "error", err)
		}
		defer dbPool.Close()

		if err := migrations.MigrateStore(db, cfg.Service.MigrationFolder, dbPool); err != nil {
			zap.S().Fatalw("running migrations", "error", err)
		}

		return nil
	},
}
