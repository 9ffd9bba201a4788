package idhash

import (
	"testing"
	"time"

	"github.com/mr-tron/base58"
	"github.com/shopspring/decimal"

	"cta-backtester/internal/domain"
)

func baseInput() RunInput {
	return RunInput{
		StrategyID:  "DUAL_MA_fast10_slow20_size1",
		Params:      map[string]float64{"fast_window": 10, "slow_window": 20},
		Symbol:      "IF",
		Mode:        domain.ModeBar,
		Start:       time.Date(2017, 5, 10, 0, 0, 0, 0, time.UTC),
		InitDays:    5,
		Capital:     decimal.NewFromInt(1_000_000),
		Slippage:    decimal.RequireFromString("0.5"),
		Rate:        decimal.RequireFromString("0.0005"),
		Size:        decimal.NewFromInt(5),
		PriceTick:   decimal.NewFromInt(5),
		DatasetHash: "abc",
	}
}

func TestComputeRunFingerprint_Format(t *testing.T) {
	fp := ComputeRunFingerprint(baseInput())

	raw, err := base58.Decode(fp)
	if err != nil {
		t.Fatalf("fingerprint is not base58: %v", err)
	}
	if len(raw) != 32 {
		t.Errorf("Expected 32 byte hash, got %d", len(raw))
	}
}

func TestComputeRunFingerprint_Determinism(t *testing.T) {
	results := make([]string, 10)
	for i := 0; i < 10; i++ {
		// Fresh map each time so iteration order varies.
		results[i] = ComputeRunFingerprint(baseInput())
	}

	for i := 1; i < len(results); i++ {
		if results[i] != results[0] {
			t.Errorf("Determinism failed: results[%d]=%s != results[0]=%s", i, results[i], results[0])
		}
	}
}

func TestComputeRunFingerprint_DifferentInputs(t *testing.T) {
	base := ComputeRunFingerprint(baseInput())

	tests := []struct {
		name   string
		mutate func(in *RunInput)
	}{
		{"strategy", func(in *RunInput) { in.StrategyID = "CHANNEL_BREAKOUT_window20_size1" }},
		{"param", func(in *RunInput) { in.Params["fast_window"] = 11 }},
		{"symbol", func(in *RunInput) { in.Symbol = "IH" }},
		{"mode", func(in *RunInput) { in.Mode = domain.ModeTick }},
		{"end", func(in *RunInput) { in.End = in.Start.AddDate(0, 1, 0) }},
		{"init days", func(in *RunInput) { in.InitDays = 6 }},
		{"rate", func(in *RunInput) { in.Rate = decimal.RequireFromString("0.001") }},
		{"price tick", func(in *RunInput) { in.PriceTick = decimal.NewFromInt(1) }},
		{"dataset", func(in *RunInput) { in.DatasetHash = "def" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := baseInput()
			tt.mutate(&in)
			if ComputeRunFingerprint(in) == base {
				t.Errorf("Different %s should produce different fingerprint", tt.name)
			}
		})
	}
}
