package rate

import (
	"fmt"
	"strings"

	"github.com/uhyunpark/ratebook/pkg/order"
)

// LookupResult is the answer to a single-pair rate request.
// Error is set (and the amounts left zero) when no order covers the pair.
type LookupResult struct {
	Pair             string   `json:"pair"`
	AmountRequested  int64    `json:"amountRequested"`
	AmountReceivable float64  `json:"amountReceivable"`
	Strategy         Strategy `json:"strategy,omitempty"`
	Error            string   `json:"error,omitempty"`
}

// RelevantOrders keeps the orders whose legs are (from, to) in either orientation.
func RelevantOrders(orders []order.Order, from, to string) []order.Order {
	var out []order.Order
	for _, o := range orders {
		if o.Connects(from, to) {
			out = append(out, o)
		}
	}
	return out
}

// Lookup prices amount units of from in to over the given snapshot.
//
// Symbols are upper-cased and a nil or empty amount defaults to 1. When no
// order connects the pair the result carries an Error message and the
// returned error is nil. Otherwise the relevant orders are priced through
// Compute with a "FROM/TO" direction, so the directional estimator is
// always used on this path.
func Lookup(orders []order.Order, from, to string, amount any) (LookupResult, error) {
	from = strings.ToUpper(strings.TrimSpace(from))
	to = strings.ToUpper(strings.TrimSpace(to))
	d := Direction{From: from, To: to}

	if amount == nil || amount == "" {
		amount = 1
	}
	n, err := NormalizeAmount(amount)
	if err != nil {
		return LookupResult{}, err
	}

	relevant := RelevantOrders(orders, from, to)
	if len(relevant) == 0 {
		return LookupResult{
			Pair:  d.String(),
			Error: fmt.Sprintf("No orders found for :  %s", d),
		}, nil
	}

	q, err := Compute(relevant, n, d.String())
	if err != nil {
		return LookupResult{}, fmt.Errorf("rate %s: %w", d, err)
	}

	return LookupResult{
		Pair:             d.String(),
		AmountRequested:  n,
		AmountReceivable: q.Receivable,
		Strategy:         q.Strategy,
	}, nil
}

// Found reports whether the lookup matched at least one order.
func (r LookupResult) Found() bool { return r.Error == "" }
