package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cta-backtester/internal/backtest"
	"cta-backtester/internal/domain"
	"cta-backtester/internal/optimize"
)

const sampleYAML = `
engine:
  symbol: IF888
  mode: tick
  start_date: "2024-01-02"
  end_date: "2024-03-01"
  init_days: 5
  capital: 500000
  slippage: "0.2"
  rate: 0.000023
  size: 300
  price_tick: "0.2"
strategy:
  name: DUAL_MA
  params:
    fast_window: 10
    slow_window: 20
data:
  source: clickhouse
output:
  dir: out
  formats: [markdown, csv]
optimize:
  target: sharpe_ratio
  grid:
    - name: fast_window
      start: 5
      end: 15
      step: 5
    - name: slow_window
      values: [20, 40]
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	def := backtest.DefaultSettings()
	assert.Equal(t, "bar", cfg.Engine.Mode)
	assert.Equal(t, def.InitDays, cfg.Engine.InitDays)
	assert.True(t, cfg.Engine.Capital.Equal(decimal.NewFromInt(1_000_000)))
	assert.True(t, cfg.Engine.Size.Equal(decimal.NewFromInt(1)))
	assert.True(t, cfg.Engine.PriceTick.IsZero())
	assert.True(t, cfg.Engine.StartDate.IsZero())
	assert.Equal(t, SourceCSV, cfg.Data.Source)
	assert.Equal(t, []string{"markdown"}, cfg.Output.Formats)
	assert.Equal(t, 4, cfg.Server.MaxConcurrent)
	assert.Equal(t, 15*time.Second, cfg.Server.ShutdownTimeout)
}

func TestLoad_File(t *testing.T) {
	cfg, err := Load(writeConfig(t, sampleYAML))
	require.NoError(t, err)

	s, err := cfg.Settings()
	require.NoError(t, err)
	assert.Equal(t, "IF888", s.Symbol)
	assert.Equal(t, domain.ModeTick, s.Mode)
	assert.Equal(t, time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), s.StartDate)
	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), s.EndDate)
	assert.Equal(t, 5, s.InitDays)
	assert.True(t, s.Capital.Equal(decimal.NewFromInt(500000)))
	assert.True(t, s.Slippage.Equal(decimal.RequireFromString("0.2")))
	assert.True(t, s.Rate.Equal(decimal.RequireFromString("0.000023")))
	assert.True(t, s.PriceTick.Equal(decimal.RequireFromString("0.2")))

	assert.Equal(t, "DUAL_MA", cfg.Strategy.Name)
	assert.Equal(t, 20.0, cfg.Strategy.Params["slow_window"])
	assert.Equal(t, []string{"markdown", "csv"}, cfg.Output.Formats)

	grid, err := cfg.Grid()
	require.NoError(t, err)
	assert.Equal(t, 6, grid.Size())

	oc, err := cfg.OptimizerConfig()
	require.NoError(t, err)
	assert.Equal(t, optimize.TargetSharpeRatio, oc.Target)
	assert.Equal(t, "DUAL_MA", oc.Strategy)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("BACKTEST_ENGINE_SYMBOL", "rb2405")
	t.Setenv("BACKTEST_ENGINE_CAPITAL", "2500.5")
	t.Setenv("BACKTEST_SERVER_MAX_CONCURRENT", "8")
	t.Setenv("BACKTEST_OUTPUT_FORMATS", "yaml,html")

	cfg, err := Load(writeConfig(t, sampleYAML))
	require.NoError(t, err)
	assert.Equal(t, "rb2405", cfg.Engine.Symbol)
	assert.True(t, cfg.Engine.Capital.Equal(decimal.RequireFromString("2500.5")))
	assert.Equal(t, 8, cfg.Server.MaxConcurrent)
	assert.Equal(t, []string{"yaml", "html"}, cfg.Output.Formats)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"mode", "engine:\n  mode: hourly\n"},
		{"source", "data:\n  source: parquet\n"},
		{"date", "engine:\n  start_date: \"03/01/2024\"\n"},
		{"decimal", "engine:\n  capital: lots\n"},
		{"persist without dsn", "storage:\n  persist: true\n"},
		{"log format", "log:\n  format: xml\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.yaml))
			assert.Error(t, err)
		})
	}

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestSettings_RequiresSymbol(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	_, err = cfg.Settings()
	assert.ErrorIs(t, err, backtest.ErrInvalidSettings)

	// Unvalidated settings still carry the configured defaults.
	s, err := cfg.EngineSettings()
	require.NoError(t, err)
	assert.Empty(t, s.Symbol)
	assert.True(t, s.Capital.Equal(backtest.DefaultSettings().Capital))
}

func TestLoadDotEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("BACKTEST_TEST_DOTENV=from-file\n"), 0o600))
	t.Setenv("BACKTEST_TEST_DOTENV", "")
	os.Unsetenv("BACKTEST_TEST_DOTENV")

	require.NoError(t, LoadDotEnv(path, filepath.Join(t.TempDir(), "missing.env")))
	assert.Equal(t, "from-file", os.Getenv("BACKTEST_TEST_DOTENV"))
}
