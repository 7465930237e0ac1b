package rate

import (
	"github.com/uhyunpark/ratebook/pkg/order"
)

// Strategy names the pricing path a quote was computed with.
type Strategy string

const (
	// DepthWalk consumes posted orders in price priority until filled.
	DepthWalk Strategy = "depth-walk"
	// BestPriceSingle converts at the single best posted price per side.
	BestPriceSingle Strategy = "best-price-single"
)

// SelectStrategy returns BestPriceSingle when dir parses as FROM/TO.
func SelectStrategy(dir string) (Strategy, Direction) {
	if d, ok := ParseDirection(dir); ok {
		return BestPriceSingle, d
	}
	return DepthWalk, Direction{}
}

// Quote is the result of one engine run.
type Quote struct {
	Strategy   Strategy
	Direction  Direction // set for BestPriceSingle
	Requested  int64
	Receivable float64

	// Depth-walk only
	Side     Side
	Filled   float64
	Unfilled float64
	Partial  bool
}

// Compute runs the optimal rate engine over an order snapshot.
//
// reqAmount goes through NormalizeAmount first; a bad amount aborts with
// ErrInvalidAmount. dir selects the strategy: a valid "FROM/TO" uses the
// directional best-price estimator, anything else walks the book depth.
// The snapshot is only read.
func Compute(orders []order.Order, reqAmount any, dir string) (Quote, error) {
	amount, err := NormalizeAmount(reqAmount)
	if err != nil {
		return Quote{}, err
	}

	strategy, d := SelectStrategy(dir)
	q := Quote{Strategy: strategy, Direction: d, Requested: amount}

	if len(orders) == 0 {
		return q, nil
	}

	annotated := order.AnnotateAll(orders)

	if strategy == BestPriceSingle {
		q.Receivable, _ = BestPrice(orders, d, amount)
		return q, nil
	}

	asks, bids := splitSides(annotated)
	if len(asks) == 0 && len(bids) == 0 {
		return q, nil
	}

	f := FillMixed(asks, bids, amount)
	q.Side = f.Side
	q.Receivable = f.Receivable
	q.Filled = f.Filled
	q.Unfilled = f.Unfilled
	q.Partial = f.Partial
	return q, nil
}

// ComputeRate is Compute reduced to the receivable amount.
func ComputeRate(orders []order.Order, reqAmount any, dir string) (float64, error) {
	q, err := Compute(orders, reqAmount, dir)
	if err != nil {
		return 0, err
	}
	return q.Receivable, nil
}
