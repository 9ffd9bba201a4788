package replay

import "errors"

// Replay errors
var (
	// ErrInvalidOrdering is returned when points are not in chronological order.
	ErrInvalidOrdering = errors.New("market points are not in chronological order")

	// ErrInvalidWindow is returned when the replay window is malformed.
	ErrInvalidWindow = errors.New("invalid replay window")
)
