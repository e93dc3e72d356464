package apiserver

import (
	"context"
	"errors"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/michiboo/sdg11-backend/internal/config"
)

type MetricsServer struct {
	cfg *config.Config
}

// NewMetricsServer returns a server exposing prometheus metrics.
func NewMetricsServer(cfg *config.Config) *MetricsServer {
	return &MetricsServer{cfg: cfg}
}

func (m *MetricsServer) Run(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := http.Server{Addr: m.cfg.Service.MetricsAddress, Handler: mux}

	go func() {
		<-ctx.Done()
		zap.S().Named("metrics_server").Infof("Shutdown signal received: %s", ctx.Err())
		ctxTimeout, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
		defer cancel()

		srv.SetKeepAlivesEnabled(false)
		_ = srv.Shutdown(ctxTimeout)
	}()

	zap.S().Named("metrics_server").Infof("Serving metrics on %s...", m.cfg.Service.MetricsAddress)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return nil
}
