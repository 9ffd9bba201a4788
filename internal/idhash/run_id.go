package idhash

import (
	"crypto/sha256"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/mr-tron/base58"
	"github.com/shopspring/decimal"

	"cta-backtester/internal/domain"
)

// RunInput is everything that determines the outcome of a run.
type RunInput struct {
	StrategyID  string
	Params      map[string]float64
	Symbol      string
	Mode        domain.Mode
	Start       time.Time
	End         time.Time
	InitDays    int
	Capital     decimal.Decimal
	Slippage    decimal.Decimal
	Rate        decimal.Decimal
	Size        decimal.Decimal
	PriceTick   decimal.Decimal
	DatasetHash string
}

// ComputeRunFingerprint computes a deterministic run fingerprint using SHA256.
// Formula: SHA256(strategy|k=v,...|symbol|mode|start|end|init_days|capital|slippage|rate|size|price_tick|dataset)
// with params sorted by key. Returns the base58-encoded hash.
func ComputeRunFingerprint(in RunInput) string {
	keys := make([]string, 0, len(in.Params))
	for k := range in.Params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	params := make([]string, len(keys))
	for i, k := range keys {
		params[i] = fmt.Sprintf("%s=%g", k, in.Params[k])
	}

	data := fmt.Sprintf("%s|%s|%s|%s|%d|%d|%d|%s|%s|%s|%s|%s|%s",
		in.StrategyID,
		strings.Join(params, ","),
		in.Symbol,
		string(in.Mode),
		unixMilli(in.Start),
		unixMilli(in.End),
		in.InitDays,
		in.Capital.String(),
		in.Slippage.String(),
		in.Rate.String(),
		in.Size.String(),
		in.PriceTick.String(),
		in.DatasetHash,
	)

	hash := sha256.Sum256([]byte(data))
	return base58.Encode(hash[:])
}

// unixMilli maps the zero time to 0 so unbounded windows hash stably.
func unixMilli(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}
