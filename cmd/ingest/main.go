package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"cta-backtester/internal/config"
	"cta-backtester/internal/domain"
	"cta-backtester/internal/ingestion"
	"cta-backtester/internal/logger"
	"cta-backtester/internal/observability"
	chstore "cta-backtester/internal/storage/clickhouse"
	"cta-backtester/internal/storage/migrations"
)

var (
	configPath string
	envFile    string
	mode       string
	symbol     string
	batchSize  int
)

var rootCmd = &cobra.Command{
	Use:          "ingest [flags] FILE...",
	Short:        "Import bar or tick CSV history into ClickHouse",
	Args:         cobra.MinimumNArgs(1),
	SilenceUsage: true,
	RunE:         runIngest,
}

func init() {
	rootCmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to YAML config file")
	rootCmd.Flags().StringVar(&envFile, "env-file", ".env", "Optional .env file loaded before the config")
	rootCmd.Flags().StringVar(&mode, "mode", "", "bar or tick (defaults to engine.mode)")
	rootCmd.Flags().StringVar(&symbol, "symbol", "", "Symbol for files without a symbol column (defaults to engine.symbol)")
	rootCmd.Flags().IntVar(&batchSize, "batch-size", 5000, "Rows per insert batch")
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

func runIngest(cmd *cobra.Command, files []string) error {
	ctx := cmd.Context()
	if err := config.LoadDotEnv(envFile); err != nil {
		return err
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	log, err := logger.New(cfg.Log)
	if err != nil {
		return err
	}
	if cfg.Storage.ClickhouseDSN == "" {
		return errors.New("storage.clickhouse_dsn is required")
	}

	if mode == "" {
		mode = cfg.Engine.Mode
	}
	m, err := domain.ParseMode(mode)
	if err != nil {
		return err
	}
	if symbol == "" {
		symbol = cfg.Engine.Symbol
	}

	conn, err := migrations.RunClickhouseMigrations(ctx, cfg.Storage.ClickhouseDSN)
	if err != nil {
		return fmt.Errorf("clickhouse: %w", err)
	}
	defer conn.Close()

	im := ingestion.NewImporter(ingestion.ImporterOptions{
		BarStore:  chstore.NewBarStore(conn),
		TickStore: chstore.NewTickStore(conn),
		BatchSize: batchSize,
		Location:  cfg.Location(),
		Logger:    log,
		Metrics:   observability.DefaultMetrics,
	})

	total := 0
	for _, path := range files {
		n, err := im.ImportFile(ctx, path, m, symbol)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		total += n
	}
	log.WithFields(logrus.Fields{
		"files": len(files),
		"rows":  total,
		"mode":  m,
	}).Info("ingestion complete")
	return nil
}
