package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"cta-backtester/internal/app"
	"cta-backtester/internal/backtest"
	"cta-backtester/internal/config"
	"cta-backtester/internal/httpapi"
	"cta-backtester/internal/logger"
	"cta-backtester/internal/observability"
	"cta-backtester/internal/stream"
)

var (
	configPath string
	envFile    string
	addr       string
)

var rootCmd = &cobra.Command{
	Use:          "server",
	Short:        "Serve the backtest HTTP API",
	SilenceUsage: true,
	RunE:         runServer,
}

func init() {
	rootCmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to YAML config file")
	rootCmd.Flags().StringVar(&envFile, "env-file", ".env", "Optional .env file loaded before the config")
	rootCmd.Flags().StringVar(&addr, "addr", "", "Listen address (defaults to server.addr)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runServer(_ *cobra.Command, _ []string) error {
	if err := config.LoadDotEnv(envFile); err != nil {
		return err
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if addr != "" {
		cfg.Server.Addr = addr
	}
	log, err := logger.New(cfg.Log)
	if err != nil {
		return err
	}
	if log.GetLevel() < logrus.DebugLevel {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stores, err := app.OpenStores(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer stores.Close()
	if cfg.Data.Source != config.SourceCSV || cfg.Data.CSVPath != "" {
		n, err := stores.LoadHistory(ctx, cfg, log, observability.DefaultMetrics)
		if err != nil {
			return err
		}
		log.WithField("rows", n).Info("history preloaded")
	}

	// Request bodies override these per run.
	defaults, err := cfg.EngineSettings()
	if err != nil {
		return err
	}

	hub := stream.NewHub(nil, log, observability.DefaultMetrics)
	defer hub.Close()

	api := httpapi.NewServer(httpapi.Options{
		Stores: httpapi.Stores{
			Runs:   stores.Runs,
			Trades: stores.Trades,
			Daily:  stores.Daily,
		},
		Runner:        stores.NewRunner(backtest.WithLogger(log), backtest.WithMetrics(observability.DefaultMetrics)),
		Defaults:      defaults,
		Hub:           hub,
		Metrics:       observability.DefaultMetrics,
		Logger:        log,
		MaxConcurrent: cfg.Server.MaxConcurrent,
	})

	httpServer := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           api.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Channel to signal completion
	done := make(chan struct{})

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.WithField("signal", sig).Info("initiating graceful shutdown")
		cancel()

		// Wait for second signal for immediate shutdown
		select {
		case sig := <-sigCh:
			log.WithField("signal", sig).Error("forcing immediate shutdown")
			os.Exit(1)
		case <-done:
		}
	}()

	errCh := make(chan error, 1)
	go func() {
		log.WithField("addr", cfg.Server.Addr).Info("http server listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			close(done)
			return err
		}
	case <-ctx.Done():
	}

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancelShutdown()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("http shutdown")
	}
	if err := api.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("runs did not finish before shutdown timeout")
	}
	close(done)
	log.Info("shutdown complete")
	return nil
}
