package replay

import (
	"fmt"
	"sort"

	"cta-backtester/internal/domain"
)

// SortPoints orders points by time ASC. The sort is stable so points that
// share a timestamp keep their source order.
func SortPoints(points []domain.MarketPoint) {
	sort.SliceStable(points, func(i, j int) bool {
		return points[i].Time().Before(points[j].Time())
	})
}

// ValidateOrdering returns ErrInvalidOrdering if any point is earlier than
// its predecessor. Equal timestamps are allowed.
func ValidateOrdering(points []domain.MarketPoint) error {
	for i := 1; i < len(points); i++ {
		if points[i].Time().Before(points[i-1].Time()) {
			return fmt.Errorf("%w: point %d at %s precedes %s",
				ErrInvalidOrdering, i, points[i].Time().Format(timeLayout), points[i-1].Time().Format(timeLayout))
		}
	}
	return nil
}

const timeLayout = "2006-01-02 15:04:05.000"
