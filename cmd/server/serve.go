package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"salesdash/internal/api"
	"salesdash/internal/config"
	"salesdash/internal/dashboard"
	"salesdash/internal/metrics"
	"salesdash/internal/metrics/datadog"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the dashboard API over HTTP",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", ":8080", "Listen address")
}

func newMetricsBackend(ctx context.Context, c *config.Config) (metrics.Backend, error) {
	if c.Metrics.Backend != "datadog" {
		return metrics.Nop{}, nil
	}
	return datadog.NewBackend(ctx, datadog.Options{
		Tags:       datadog.ParseTagsCSV(c.Metrics.Tags),
		FlushEvery: c.Metrics.FlushEvery,
	})
}

func runServe(cmd *cobra.Command, args []string) error {
	defer logger.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m, err := newMetricsBackend(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := m.Close(); err != nil {
			logger.Warn("metrics close", zap.Error(err))
		}
	}()

	svc := dashboard.New(logger, m, serviceOptions(cfg))
	h := api.NewHandler(svc, logger)
	e := api.NewServer(h, logger, api.ServerOptions{
		MaxUpload: cfg.BodyLimit(),
		CORS:      cfg.Server.CORS,
		RateLimit: cfg.Server.RateLimit,
		RateBurst: cfg.Server.RateBurst,
	})

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server ready", zap.String("addr", cfg.Server.Addr))
		if err := e.Start(cfg.Server.Addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}
