package idhash

import (
	"crypto/sha256"
	"fmt"
	"hash"

	"github.com/mr-tron/base58"

	"cta-backtester/internal/domain"
)

// ComputeDatasetHash hashes a replay series point by point.
// Bar:  bar|time|open|high|low|close|volume
// Tick: tick|time|last|ask|bid|volume
// Returns the base58-encoded SHA256.
func ComputeDatasetHash(points []domain.MarketPoint) string {
	h := sha256.New()
	for _, p := range points {
		switch v := p.(type) {
		case *domain.Bar:
			fmt.Fprintf(h, "bar|%d|%s|%s|%s|%s|%s\n",
				v.EndTime.UnixNano(), v.Open, v.High, v.Low, v.Close, v.Volume)
		case *domain.Tick:
			fmt.Fprintf(h, "tick|%d|%s|%s|%s|%s\n",
				v.Datetime.UnixNano(), v.LastPrice, v.AskPrice1, v.BidPrice1, v.Volume)
		}
	}
	return encode(h)
}

// ComputeTradesHash hashes a trade ledger in order.
// Formula per trade: trade_id|order_id|direction|offset|price|volume|time
func ComputeTradesHash(trades []domain.Trade) string {
	h := sha256.New()
	for _, t := range trades {
		fmt.Fprintf(h, "%s|%s|%s|%s|%s|%s|%d\n",
			t.TradeID, t.OrderID, t.Direction, t.Offset,
			t.Price.String(), t.Volume.String(), t.Time.UnixNano())
	}
	return encode(h)
}

// ComputeResultsHash hashes closed results in order.
// Formula per result: entry_price|entry_time|exit_price|exit_time|volume|pnl
func ComputeResultsHash(results []domain.TradingResult) string {
	h := sha256.New()
	for _, r := range results {
		fmt.Fprintf(h, "%s|%d|%s|%d|%s|%s\n",
			r.EntryPrice.String(), r.EntryTime.UnixNano(),
			r.ExitPrice.String(), r.ExitTime.UnixNano(),
			r.Volume.String(), r.Pnl.String())
	}
	return encode(h)
}

func encode(h hash.Hash) string {
	return base58.Encode(h.Sum(nil))
}
