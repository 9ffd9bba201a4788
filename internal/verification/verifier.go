// Package verification checks that backtests are reproducible: a stored run
// replayed from its settings must yield the same trade ledger, and repeated
// runs over one dataset must yield identical ledgers.
package verification

import (
	"context"

	"cta-backtester/internal/domain"
)

// FieldDivergence represents a mismatch between stored and replayed values.
type FieldDivergence struct {
	Field    string      // field name
	Expected interface{} // stored value
	Actual   interface{} // replayed value
}

// TradeVerification is the result of comparing one trade.
type TradeVerification struct {
	TradeID     string            // verified trade ID
	Match       bool              // true if all fields match
	Divergences []FieldDivergence // list of divergent fields
}

// VerificationReport contains results for one run.
type VerificationReport struct {
	RunID               string
	Fingerprint         string // stored fingerprint
	ReplayedFingerprint string
	TotalTrades         int // stored trades
	ReplayedTrades      int
	MatchedTrades       int
	DivergentTrades     int // includes missing and extra trades
	Results             []TradeVerification
}

// Match reports whether the replay reproduced the stored run exactly.
func (r *VerificationReport) Match() bool {
	return r.DivergentTrades == 0 &&
		r.TotalTrades == r.ReplayedTrades &&
		(r.Fingerprint == "" || r.Fingerprint == r.ReplayedFingerprint)
}

// Verifier verifies stored runs.
type Verifier interface {
	// VerifyRun reloads the run's dataset, replays it with the stored
	// settings and compares the ledgers.
	VerifyRun(ctx context.Context, runID string) (*VerificationReport, error)
}

// CompareTrades compares two trades and returns divergences. Prices and
// volumes must be exactly equal.
func CompareTrades(stored, replayed *domain.Trade) []FieldDivergence {
	var divergences []FieldDivergence

	if stored.TradeID != replayed.TradeID {
		divergences = append(divergences, FieldDivergence{"TradeID", stored.TradeID, replayed.TradeID})
	}
	if stored.OrderID != replayed.OrderID {
		divergences = append(divergences, FieldDivergence{"OrderID", stored.OrderID, replayed.OrderID})
	}
	if stored.Symbol != replayed.Symbol {
		divergences = append(divergences, FieldDivergence{"Symbol", stored.Symbol, replayed.Symbol})
	}
	if stored.Direction != replayed.Direction {
		divergences = append(divergences, FieldDivergence{"Direction", stored.Direction, replayed.Direction})
	}
	if stored.Offset != replayed.Offset {
		divergences = append(divergences, FieldDivergence{"Offset", stored.Offset, replayed.Offset})
	}
	if !stored.Price.Equal(replayed.Price) {
		divergences = append(divergences, FieldDivergence{"Price", stored.Price.String(), replayed.Price.String()})
	}
	if !stored.Volume.Equal(replayed.Volume) {
		divergences = append(divergences, FieldDivergence{"Volume", stored.Volume.String(), replayed.Volume.String()})
	}
	if !stored.Time.Equal(replayed.Time) {
		divergences = append(divergences, FieldDivergence{"Time", stored.Time, replayed.Time})
	}
	if !stored.TradingDay.Equal(replayed.TradingDay) {
		divergences = append(divergences, FieldDivergence{"TradingDay", stored.TradingDay, replayed.TradingDay})
	}

	return divergences
}

// CompareLedgers compares two trade ledgers position by position. Trades
// present on one side only count as divergent.
func CompareLedgers(stored, replayed []domain.Trade) *VerificationReport {
	report := &VerificationReport{
		TotalTrades:    len(stored),
		ReplayedTrades: len(replayed),
	}

	n := len(stored)
	if len(replayed) > n {
		n = len(replayed)
	}
	for i := 0; i < n; i++ {
		var result TradeVerification
		switch {
		case i >= len(replayed):
			result = TradeVerification{
				TradeID:     stored[i].TradeID,
				Divergences: []FieldDivergence{{Field: "Trade", Expected: stored[i].TradeID, Actual: nil}},
			}
		case i >= len(stored):
			result = TradeVerification{
				TradeID:     replayed[i].TradeID,
				Divergences: []FieldDivergence{{Field: "Trade", Expected: nil, Actual: replayed[i].TradeID}},
			}
		default:
			divergences := CompareTrades(&stored[i], &replayed[i])
			result = TradeVerification{
				TradeID:     stored[i].TradeID,
				Match:       len(divergences) == 0,
				Divergences: divergences,
			}
		}

		report.Results = append(report.Results, result)
		if result.Match {
			report.MatchedTrades++
		} else {
			report.DivergentTrades++
		}
	}
	return report
}
