package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"cta-backtester/internal/app"
	"cta-backtester/internal/config"
	"cta-backtester/internal/logger"
	"cta-backtester/internal/observability"
)

var (
	configPath string
	envFile    string
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:           "backtest",
	Short:         "Run, optimize and verify CTA strategy backtests",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to YAML config file")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "Optional .env file loaded before the config")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Override log.level")

	rootCmd.AddCommand(runCmd, optimizeCmd, verifyCmd, reportCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		stop()
		os.Exit(1)
	}
}

// environment is the state shared by every subcommand.
type environment struct {
	cfg     *config.Config
	log     *logrus.Logger
	metrics *observability.Metrics
	stores  *app.Stores
}

func setup(ctx context.Context) (*environment, error) {
	if err := config.LoadDotEnv(envFile); err != nil {
		return nil, err
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	log, err := logger.New(cfg.Log)
	if err != nil {
		return nil, err
	}

	stores, err := app.OpenStores(ctx, cfg, log)
	if err != nil {
		return nil, err
	}
	return &environment{
		cfg:     cfg,
		log:     log,
		metrics: observability.DefaultMetrics,
		stores:  stores,
	}, nil
}

func (e *environment) close() {
	e.stores.Close()
}
