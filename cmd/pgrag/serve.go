package pgrag

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/edgeflare/pgrag/pkg/metrics"
	"github.com/edgeflare/pgrag/pkg/rest"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	Long:  `Serves ingestion, search and query endpoints, plus Prometheus metrics unless --metrics-addr is empty.`,
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringP("listen-addr", "l", "", "API listen address (default from config, :8080)")
	serveCmd.Flags().String("metrics-addr", "", "Prometheus metrics listen address (default from config, :9100)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	if cmd.Flags().Changed("listen-addr") {
		cfg.Server.ListenAddr, _ = cmd.Flags().GetString("listen-addr")
	}
	if cmd.Flags().Changed("metrics-addr") {
		cfg.Server.MetricsAddr, _ = cmd.Flags().GetString("metrics-addr")
	}

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.store.EnsureSchema(ctx); err != nil {
		return err
	}

	var wg sync.WaitGroup
	if cfg.Server.MetricsAddr != "" {
		metrics.StartPrometheusServer(ctx, &wg, &metrics.PromServerOpts{Addr: cfg.Server.MetricsAddr}, logger)
	}

	server := rest.NewServer(a.pipeline,
		rest.WithLogger(logger),
		rest.WithPinger(a.pool),
		rest.WithDefaultK(cfg.Pipeline.TopK),
		rest.WithCORS(cfg.Server.CORSOrigins...),
	)

	errChan := make(chan error, 1)
	go func() {
		errChan <- server.Start(cfg.Server.ListenAddr)
	}()

	select {
	case <-ctx.Done():
		logger.Info("received termination signal, shutting down gracefully")
	case err = <-errChan:
		if err != nil {
			logger.Error("server error", zap.Error(err))
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if shutdownErr := server.Shutdown(shutdownCtx); shutdownErr != nil && !errors.Is(shutdownErr, context.Canceled) {
		logger.Error("server shutdown error", zap.Error(shutdownErr))
	}

	cancel()
	wg.Wait()
	logger.Info("server stopped")
	return err
}
