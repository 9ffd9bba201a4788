package matching

import "errors"

// Order book errors. ErrDuplicateOrderID and ErrUnknownPoint signal a broken
// ledger invariant and should abort the run.
var (
	ErrDuplicateOrderID = errors.New("order id already exists in history")
	ErrUnknownPoint     = errors.New("unknown market point type")
	ErrInvalidVolume    = errors.New("order volume must be positive")
	ErrInvalidPrice     = errors.New("order price must not be negative")
)
