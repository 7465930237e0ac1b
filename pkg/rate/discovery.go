package rate

import (
	"fmt"
	"math"

	"github.com/uhyunpark/ratebook/pkg/order"
)

// Pair is a directly tradable FROM -> TO pair.
type Pair struct {
	From string `json:"FROM"`
	To   string `json:"TO"`
}

func (p Pair) String() string { return p.From + DirectionSeparator + p.To }

// PairRate is one entry of a discovery batch. Rate is nil when the pair
// could not be priced; Error then carries the wire message and Cause the reason.
type PairRate struct {
	Pair  string   `json:"pair"`
	Rate  *float64 `json:"rate"`
	Error string   `json:"error,omitempty"`
	Cause error    `json:"-"`
}

// DiscoverPairs returns every distinct pair for which the book holds two
// orders on the same (assetA, assetB) legs with different types.
//
// Every ordered (i, j) combination is compared, i == j included, so the
// cost is O(n^2). Pairs keep the order in which they were first seen.
func DiscoverPairs(orders []order.Order) []Pair {
	var pairs []Pair
	seen := make(map[Pair]struct{})

	for i := range orders {
		oi := &orders[i]
		for j := range orders {
			oj := &orders[j]
			if oi.AssetA.Symbol != oj.AssetA.Symbol || oi.AssetB.Symbol != oj.AssetB.Symbol {
				continue
			}
			if oi.Type == oj.Type {
				continue
			}
			p := Pair{From: oi.AssetA.Symbol, To: oi.AssetB.Symbol}
			if _, dup := seen[p]; dup {
				continue
			}
			seen[p] = struct{}{}
			pairs = append(pairs, p)
		}
	}
	return pairs
}

// DiscoverRates discovers tradable pairs and prices one unit of each.
//
// An empty result is reported as ErrNoTradablePairs rather than an empty
// slice. A pair that fails to price is reported inline with a nil Rate;
// it never stops the remaining pairs from being priced.
func DiscoverRates(orders []order.Order) ([]PairRate, error) {
	pairs := DiscoverPairs(orders)
	if len(pairs) == 0 {
		return nil, ErrNoTradablePairs
	}

	out := make([]PairRate, 0, len(pairs))
	for _, p := range pairs {
		out = append(out, pricePair(orders, p))
	}
	return out, nil
}

func pricePair(orders []order.Order, p Pair) PairRate {
	res, err := Lookup(orders, p.From, p.To, 1)
	switch {
	case err != nil:
		return failedPair(p, err)
	case !res.Found():
		return failedPair(p, fmt.Errorf("%w: %s", ErrNoRelevantOrders, p))
	case math.IsNaN(res.AmountReceivable) || math.IsInf(res.AmountReceivable, 0):
		return failedPair(p, fmt.Errorf("non-finite rate %v", res.AmountReceivable))
	}

	r := res.AmountReceivable
	return PairRate{Pair: p.String(), Rate: &r}
}

func failedPair(p Pair, cause error) PairRate {
	return PairRate{
		Pair:  p.String(),
		Error: PairFailureMessage,
		Cause: fmt.Errorf("%w: %s: %w", ErrPairCalculation, p, cause),
	}
}

// Failed reports whether the pair could not be priced.
func (r PairRate) Failed() bool { return r.Rate == nil }
