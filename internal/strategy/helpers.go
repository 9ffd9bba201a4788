package strategy

import (
	"sort"

	"cta-backtester/internal/domain"
)

// barWindow keeps the most recent bars as float series for indicator math.
type barWindow struct {
	size   int
	count  int
	closes []float64
	highs  []float64
	lows   []float64
}

func newBarWindow(size int) *barWindow {
	return &barWindow{
		size:   size,
		closes: make([]float64, 0, size),
		highs:  make([]float64, 0, size),
		lows:   make([]float64, 0, size),
	}
}

func (w *barWindow) update(bar *domain.Bar) {
	w.count++
	w.closes = pushBounded(w.closes, bar.Close.InexactFloat64(), w.size)
	w.highs = pushBounded(w.highs, bar.High.InexactFloat64(), w.size)
	w.lows = pushBounded(w.lows, bar.Low.InexactFloat64(), w.size)
}

// ready reports whether the window is full.
func (w *barWindow) ready() bool {
	return w.count >= w.size
}

func pushBounded(s []float64, v float64, size int) []float64 {
	if len(s) == size {
		copy(s, s[1:])
		s[len(s)-1] = v
		return s
	}
	return append(s, v)
}

// orderSet tracks the strategy's own live order IDs.
type orderSet map[string]struct{}

func (s orderSet) add(id string) {
	if id != "" {
		s[id] = struct{}{}
	}
}

// cancelAll cancels every tracked order through t and forgets them.
func (s orderSet) cancelAll(t *Template) {
	for _, id := range sortedIDs(s) {
		t.CancelOrder(id)
		delete(s, id)
	}
}

// sortedIDs gives map iteration a fixed order so cancels stay deterministic.
// Shorter IDs sort first so "9" precedes "10".
func sortedIDs(s orderSet) []string {
	ids := make([]string, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		if len(ids[i]) != len(ids[j]) {
			return len(ids[i]) < len(ids[j])
		}
		return ids[i] < ids[j]
	})
	return ids
}

// forgetOrder drops IDs whose order reached a terminal state.
func (s orderSet) forgetOrder(o *domain.LimitOrder) {
	if o.Status.Terminal() {
		delete(s, o.OrderID)
	}
}

func (s orderSet) forgetStop(so *domain.StopOrder) {
	if so.Status.Terminal() {
		delete(s, so.StopOrderID)
	}
}
