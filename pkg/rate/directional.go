package rate

import (
	"strings"

	"github.com/uhyunpark/ratebook/pkg/order"
)

// DirectionSeparator splits FROM and TO in a direction string ("BTC/ETH").
const DirectionSeparator = "/"

// Direction is an explicit FROM -> TO conversion request.
type Direction struct {
	From string
	To   string
}

func (d Direction) String() string { return d.From + DirectionSeparator + d.To }

// ParseDirection splits "FROM/TO". Symbols are trimmed; ok is false unless
// both are non-empty.
func ParseDirection(dir string) (Direction, bool) {
	if !strings.Contains(dir, DirectionSeparator) {
		return Direction{}, false
	}
	parts := strings.Split(dir, DirectionSeparator)
	d := Direction{
		From: strings.TrimSpace(parts[0]),
		To:   strings.TrimSpace(parts[1]),
	}
	if d.From == "" || d.To == "" {
		return Direction{}, false
	}
	return d, true
}

// BestPrice converts amount units of d.From into d.To using only the single
// best posted USD price on each side. Order sizes are ignored entirely.
//
// Asks touching From contribute the USD price of their From leg; bids touching
// To contribute the USD price of their To leg. The lowest price on each side
// is used. matched is false (and the result 0) when either side is empty.
func BestPrice(orders []order.Order, d Direction, amount int64) (receivable float64, matched bool) {
	var (
		bestFrom, bestTo float64
		haveFrom, haveTo bool
	)

	for _, o := range orders {
		if o.Type == order.Ask && o.Touches(d.From) {
			p := o.PriceOf(d.From)
			if !haveFrom || p < bestFrom {
				bestFrom, haveFrom = p, true
			}
		} else if o.Type == order.Bid && o.Touches(d.To) {
			p := o.PriceOf(d.To)
			if !haveTo || p < bestTo {
				bestTo, haveTo = p, true
			}
		}
	}

	if !haveFrom || !haveTo {
		return 0, false
	}

	r := bestFrom / bestTo
	return r * (1 - Fee) * float64(amount), true
}
