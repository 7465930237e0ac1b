package rate

import "errors"

var (
	// ErrInvalidAmount is returned when a requested amount is not a non-negative integer.
	ErrInvalidAmount = errors.New("invalid param, int needed")

	// ErrNoRelevantOrders marks a lookup that found no order for the pair.
	// It is reported in LookupResult.Error and never returned as an error.
	ErrNoRelevantOrders = errors.New("no orders found")

	// ErrPairCalculation marks one pair of a discovery batch that could not be priced.
	ErrPairCalculation = errors.New("rate calculation failed")

	// ErrNoTradablePairs is returned by discovery when the book holds no tradable pair.
	ErrNoTradablePairs = errors.New("no tradable pairs")

	// ErrUpstreamRead wraps a failed order snapshot read.
	ErrUpstreamRead = errors.New("order store read failed")
)

// Wire messages kept stable for existing websocket consumers.
const (
	EmptyBookMessage   = "Empty trade, come back later"
	PairFailureMessage = "Rate calculation failed"
)
