package rate

import (
	"math"
	"sort"

	"github.com/uhyunpark/ratebook/pkg/order"
)

// Fee is deducted from every unit filled or converted (0.1%).
const Fee = 0.001

// Side identifies which half of the book a depth walk consumed.
type Side string

const (
	SideNone Side = ""
	SideAsk  Side = "ask"
	SideBid  Side = "bid"
)

// Fill is the outcome of walking one side of the book.
type Fill struct {
	Side       Side
	Requested  int64
	Filled     float64 // units consumed from the book
	Unfilled   float64 // requested units the book could not cover
	Receivable float64 // sum of consumed * rate * (1 - Fee)
	Partial    bool    // true when Unfilled > 0
}

// sortAsks orders asks ascending by RateBtoA (lowest rate first).
func sortAsks(asks []order.Annotated) []order.Annotated {
	out := append([]order.Annotated(nil), asks...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].RateBtoA < out[j].RateBtoA
	})
	return out
}

// sortBids orders bids descending by RateAtoB (highest rate first).
func sortBids(bids []order.Annotated) []order.Annotated {
	out := append([]order.Annotated(nil), bids...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].RateAtoB > out[j].RateAtoB
	})
	return out
}

func askRate(o order.Annotated) float64 { return o.RateBtoA }
func bidRate(o order.Annotated) float64 { return o.RateAtoB }

// walk consumes sorted orders until amount is covered or the list runs out.
// Orders are read only; posted amounts are never decremented.
func walk(side Side, sorted []order.Annotated, amount int64, rateOf func(order.Annotated) float64) Fill {
	f := Fill{Side: side, Requested: amount}
	remaining := float64(amount)

	for _, o := range sorted {
		if remaining <= 0 {
			break
		}
		take := math.Min(remaining, o.Amount)
		f.Receivable += take * rateOf(o) * (1 - Fee)
		f.Filled += take
		remaining -= take
	}

	if remaining > 0 {
		f.Unfilled = remaining
		f.Partial = true
	}
	return f
}

// FillAsks walks the ask side, lowest RateBtoA first.
func FillAsks(asks []order.Annotated, amount int64) Fill {
	if len(asks) == 0 {
		return Fill{Side: SideNone, Requested: amount}
	}
	return walk(SideAsk, sortAsks(asks), amount, askRate)
}

// FillBids walks the bid side, highest RateAtoB first.
func FillBids(bids []order.Annotated, amount int64) Fill {
	if len(bids) == 0 {
		return Fill{Side: SideNone, Requested: amount}
	}
	return walk(SideBid, sortBids(bids), amount, bidRate)
}

// FillMixed picks one side of a two-sided book and walks it.
//
// The bid side wins when its best post-fee rate is at least the inverse of
// the best post-fee ask rate; otherwise the ask side is walked. One-sided
// input falls through to FillAsks or FillBids.
func FillMixed(asks, bids []order.Annotated, amount int64) Fill {
	switch {
	case len(asks) == 0:
		return FillBids(bids, amount)
	case len(bids) == 0:
		return FillAsks(asks, amount)
	}

	sortedAsks := sortAsks(asks)
	sortedBids := sortBids(bids)

	if PrefersBids(sortedAsks[0], sortedBids[0]) {
		return walk(SideBid, sortedBids, amount, bidRate)
	}
	return walk(SideAsk, sortedAsks, amount, askRate)
}

// PrefersBids evaluates the side-selection rule on the best order of each side.
func PrefersBids(bestAsk, bestBid order.Annotated) bool {
	bestBidRate := bestBid.RateAtoB * (1 - Fee)
	bestAskRate := bestAsk.RateBtoA * (1 - Fee)
	return bestBidRate >= 1/bestAskRate
}

// splitSides partitions annotated orders into asks and bids; limit orders are skipped.
func splitSides(annotated []order.Annotated) (asks, bids []order.Annotated) {
	for _, o := range annotated {
		switch o.Type {
		case order.Ask:
			asks = append(asks, o)
		case order.Bid:
			bids = append(bids, o)
		}
	}
	return asks, bids
}
