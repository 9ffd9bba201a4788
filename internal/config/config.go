// Package config loads backtester configuration from a YAML file, an
// optional .env file and BACKTEST_-prefixed environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/mitchellh/mapstructure"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"

	"cta-backtester/internal/backtest"
	"cta-backtester/internal/domain"
	"cta-backtester/internal/optimize"
)

// EnvPrefix prefixes every environment override, e.g. BACKTEST_ENGINE_SYMBOL.
const EnvPrefix = "BACKTEST"

// ErrInvalidConfig is returned when a loaded config fails validation.
var ErrInvalidConfig = errors.New("invalid config")

// Data sources.
const (
	SourceCSV        = "csv"
	SourceClickhouse = "clickhouse"
	SourceMemory     = "memory"
)

// Config is the full backtester configuration.
type Config struct {
	Engine   EngineConfig   `mapstructure:"engine"`
	Strategy StrategyConfig `mapstructure:"strategy"`
	Data     DataConfig     `mapstructure:"data"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Output   OutputConfig   `mapstructure:"output"`
	Log      LogConfig      `mapstructure:"log"`
	Server   ServerConfig   `mapstructure:"server"`
	Optimize OptimizeConfig `mapstructure:"optimize"`
}

// EngineConfig mirrors backtest.Settings.
type EngineConfig struct {
	Symbol    string          `mapstructure:"symbol"`
	Mode      string          `mapstructure:"mode"`
	StartDate time.Time       `mapstructure:"start_date"`
	EndDate   time.Time       `mapstructure:"end_date"`
	InitDays  int             `mapstructure:"init_days"`
	Capital   decimal.Decimal `mapstructure:"capital"`
	Slippage  decimal.Decimal `mapstructure:"slippage"`
	Rate      decimal.Decimal `mapstructure:"rate"`
	Size      decimal.Decimal `mapstructure:"size"`
	PriceTick decimal.Decimal `mapstructure:"price_tick"`
}

// StrategyConfig selects a registered strategy.
type StrategyConfig struct {
	Name   string             `mapstructure:"name"`
	Params map[string]float64 `mapstructure:"params"`
}

// DataConfig selects where history is loaded from.
type DataConfig struct {
	Source   string `mapstructure:"source"`
	CSVPath  string `mapstructure:"csv_path"`
	Timezone string `mapstructure:"timezone"`
}

// StorageConfig holds database connections.
type StorageConfig struct {
	PostgresDSN   string `mapstructure:"postgres_dsn"`
	ClickhouseDSN string `mapstructure:"clickhouse_dsn"`
	// Persist stores completed runs in Postgres.
	Persist bool `mapstructure:"persist"`
}

// OutputConfig controls report files.
type OutputConfig struct {
	Dir     string   `mapstructure:"dir"`
	Formats []string `mapstructure:"formats"`
}

// LogConfig controls logging.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// ServerConfig controls the HTTP API.
type ServerConfig struct {
	Addr            string        `mapstructure:"addr"`
	MaxConcurrent   int           `mapstructure:"max_concurrent"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// OptimizeConfig controls parameter sweeps.
type OptimizeConfig struct {
	Target      string      `mapstructure:"target"`
	Parallelism int         `mapstructure:"parallelism"`
	Grid        []GridParam `mapstructure:"grid"`
}

// GridParam is either a range or an explicit value list.
type GridParam struct {
	Name   string    `mapstructure:"name"`
	Start  float64   `mapstructure:"start"`
	End    float64   `mapstructure:"end"`
	Step   float64   `mapstructure:"step"`
	Values []float64 `mapstructure:"values"`
}

func setDefaults(v *viper.Viper) {
	def := backtest.DefaultSettings()
	v.SetDefault("engine.symbol", "")
	v.SetDefault("engine.mode", string(def.Mode))
	v.SetDefault("engine.start_date", "")
	v.SetDefault("engine.end_date", "")
	v.SetDefault("engine.init_days", def.InitDays)
	v.SetDefault("engine.capital", def.Capital.String())
	v.SetDefault("engine.slippage", def.Slippage.String())
	v.SetDefault("engine.rate", def.Rate.String())
	v.SetDefault("engine.size", def.Size.String())
	v.SetDefault("engine.price_tick", def.PriceTick.String())

	v.SetDefault("strategy.name", "")
	v.SetDefault("data.source", SourceCSV)
	v.SetDefault("data.csv_path", "")
	v.SetDefault("data.timezone", "UTC")

	v.SetDefault("storage.postgres_dsn", "")
	v.SetDefault("storage.clickhouse_dsn", "")
	v.SetDefault("storage.persist", false)

	v.SetDefault("output.dir", "")
	v.SetDefault("output.formats", []string{"markdown"})

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.max_concurrent", 4)
	v.SetDefault("server.shutdown_timeout", "15s")

	v.SetDefault("optimize.target", string(optimize.TargetCapital))
	v.SetDefault("optimize.parallelism", 0)
}

// LoadDotEnv loads the given .env files, or ".env" when none is given.
// Missing files are ignored; variables already set are kept.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if _, err := os.Stat(f); errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return nil
}

// Load reads path (optional) and applies environment overrides.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config file failed (%s): %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, func(dc *mapstructure.DecoderConfig) {
		dc.WeaklyTypedInput = true
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			decimalHook,
			dateHook,
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}); err != nil {
		return nil, fmt.Errorf("parsing config failed: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks values that do not depend on the command being run.
func (c *Config) Validate() error {
	if _, err := domain.ParseMode(c.Engine.Mode); err != nil {
		return fmt.Errorf("%w: engine.mode: %w", ErrInvalidConfig, err)
	}
	switch c.Data.Source {
	case SourceCSV, SourceClickhouse, SourceMemory:
	default:
		return fmt.Errorf("%w: data.source %q", ErrInvalidConfig, c.Data.Source)
	}
	if _, err := time.LoadLocation(c.Data.Timezone); err != nil {
		return fmt.Errorf("%w: data.timezone: %w", ErrInvalidConfig, err)
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("%w: log.format %q", ErrInvalidConfig, c.Log.Format)
	}
	if c.Server.MaxConcurrent <= 0 {
		return fmt.Errorf("%w: server.max_concurrent must be positive", ErrInvalidConfig)
	}
	if c.Storage.Persist && c.Storage.PostgresDSN == "" {
		return fmt.Errorf("%w: storage.persist requires storage.postgres_dsn", ErrInvalidConfig)
	}
	return nil
}

// Settings converts the engine section into validated backtest settings.
func (c *Config) Settings() (backtest.Settings, error) {
	s, err := c.EngineSettings()
	if err != nil {
		return backtest.Settings{}, err
	}
	if err := s.Validate(); err != nil {
		return backtest.Settings{}, err
	}
	return s, nil
}

// EngineSettings converts the engine section without validating it, for
// callers that fill the remaining fields later.
func (c *Config) EngineSettings() (backtest.Settings, error) {
	mode, err := domain.ParseMode(c.Engine.Mode)
	if err != nil {
		return backtest.Settings{}, err
	}
	return backtest.Settings{
		Symbol:    c.Engine.Symbol,
		Mode:      mode,
		StartDate: c.Engine.StartDate,
		EndDate:   c.Engine.EndDate,
		InitDays:  c.Engine.InitDays,
		Capital:   c.Engine.Capital,
		Slippage:  c.Engine.Slippage,
		Rate:      c.Engine.Rate,
		Size:      c.Engine.Size,
		PriceTick: c.Engine.PriceTick,
	}, nil
}

// Location returns the timezone for CSV timestamps without a zone.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Data.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Grid builds the optimization grid.
func (c *Config) Grid() (*optimize.Grid, error) {
	g := optimize.NewGrid()
	for _, p := range c.Optimize.Grid {
		var err error
		if len(p.Values) > 0 {
			err = g.AddValues(p.Name, p.Values...)
		} else {
			err = g.AddRange(p.Name, p.Start, p.End, p.Step)
		}
		if err != nil {
			return nil, err
		}
	}
	return g, nil
}

// OptimizerConfig converts the optimize and strategy sections.
func (c *Config) OptimizerConfig() (optimize.Config, error) {
	target, err := optimize.ParseTarget(c.Optimize.Target)
	if err != nil {
		return optimize.Config{}, err
	}
	return optimize.Config{
		Strategy:    c.Strategy.Name,
		Fixed:       c.Strategy.Params,
		Target:      target,
		Parallelism: c.Optimize.Parallelism,
	}, nil
}
