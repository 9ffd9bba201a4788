// Package app wires configuration to stores, runners and loggers for the
// command binaries.
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"cta-backtester/internal/backtest"
	"cta-backtester/internal/config"
	"cta-backtester/internal/domain"
	"cta-backtester/internal/ingestion"
	"cta-backtester/internal/observability"
	"cta-backtester/internal/replay"
	"cta-backtester/internal/storage"
	chstore "cta-backtester/internal/storage/clickhouse"
	"cta-backtester/internal/storage/memory"
	"cta-backtester/internal/storage/migrations"
	pgstore "cta-backtester/internal/storage/postgres"
)

// ErrMissingDSN is returned when a configured source needs a DSN that is
// not set.
var ErrMissingDSN = errors.New("missing DSN")

// Stores holds history and run stores.
type Stores struct {
	Bars  storage.BarStore
	Ticks storage.TickStore

	Runs   storage.RunStore
	Trades storage.TradeStore
	Daily  storage.DailyResultStore

	// Persistent is true when runs are stored in Postgres.
	Persistent bool

	closers []func()
}

// OpenStores creates the stores selected by cfg. History comes from
// ClickHouse when data.source is clickhouse and from memory otherwise. Runs
// go to Postgres when a DSN is configured. Migrations are applied on open.
func OpenStores(ctx context.Context, cfg *config.Config, log logrus.FieldLogger) (*Stores, error) {
	s := &Stores{}

	switch cfg.Data.Source {
	case config.SourceClickhouse:
		if cfg.Storage.ClickhouseDSN == "" {
			return nil, fmt.Errorf("%w: data.source clickhouse requires storage.clickhouse_dsn", ErrMissingDSN)
		}
		conn, err := migrations.RunClickhouseMigrations(ctx, cfg.Storage.ClickhouseDSN)
		if err != nil {
			return nil, fmt.Errorf("clickhouse: %w", err)
		}
		s.closers = append(s.closers, func() { conn.Close() })
		s.Bars = chstore.NewBarStore(conn)
		s.Ticks = chstore.NewTickStore(conn)
		log.Info("history stored in clickhouse")
	default:
		s.Bars = memory.NewBarStore()
		s.Ticks = memory.NewTickStore()
	}

	if cfg.Storage.PostgresDSN == "" {
		s.Runs = memory.NewRunStore()
		s.Trades = memory.NewTradeStore()
		s.Daily = memory.NewDailyResultStore()
		return s, nil
	}

	pool, err := pgstore.NewPool(ctx, cfg.Storage.PostgresDSN)
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	s.closers = append(s.closers, pool.Close)
	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		s.Close()
		return nil, fmt.Errorf("postgres migrations: %w", err)
	}
	s.Runs = pgstore.NewRunStore(pool)
	s.Trades = pgstore.NewTradeStore(pool)
	s.Daily = pgstore.NewDailyResultStore(pool)
	s.Persistent = true
	log.Info("runs stored in postgres")
	return s, nil
}

// Close releases database connections in reverse order of opening.
func (s *Stores) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
	s.closers = nil
}

// LoadHistory imports data.csv_path into the history stores when
// data.source is csv. It returns the number of rows imported.
func (s *Stores) LoadHistory(ctx context.Context, cfg *config.Config, log logrus.FieldLogger, m *observability.Metrics) (int, error) {
	if cfg.Data.Source != config.SourceCSV {
		return 0, nil
	}
	if cfg.Data.CSVPath == "" {
		return 0, fmt.Errorf("%w: data.source csv requires data.csv_path", config.ErrInvalidConfig)
	}
	mode, err := domain.ParseMode(cfg.Engine.Mode)
	if err != nil {
		return 0, err
	}
	im := ingestion.NewImporter(ingestion.ImporterOptions{
		BarStore:  s.Bars,
		TickStore: s.Ticks,
		Location:  cfg.Location(),
		Logger:    log,
		Metrics:   m,
	})
	return im.ImportFile(ctx, cfg.Data.CSVPath, mode, cfg.Engine.Symbol)
}

// NewRunner creates a backtest runner reading the history stores.
func (s *Stores) NewRunner(opts ...backtest.Option) *backtest.Runner {
	return backtest.NewRunner(replay.NewRunner(replay.NewStoreSource(s.Bars, s.Ticks)), opts...)
}
