package order

import (
	"fmt"
	"strings"
)

// Type is the book side an order was posted on.
type Type string

const (
	Ask   Type = "ask"
	Bid   Type = "bid"
	Limit Type = "limit"
)

// ParseType accepts "ask", "bid" or "limit" (case-insensitive)
func ParseType(s string) (Type, error) {
	switch t := Type(strings.ToLower(strings.TrimSpace(s))); t {
	case Ask, Bid, Limit:
		return t, nil
	default:
		return "", fmt.Errorf("unknown order type %q", s)
	}
}

func (t Type) String() string { return string(t) }

// Asset is one leg of an order. USDPrice is the reference price captured
// when the order was created and is never refreshed afterwards.
type Asset struct {
	Symbol   string  `json:"symbol"`
	USDPrice float64 `json:"usd_price"`
}

// Order is a posted order as stored in the book.
// Orders are immutable once stored: rate computation only reads them.
type Order struct {
	ID        int64   `json:"id"`
	Type      Type    `json:"type"`
	Amount    float64 `json:"amount"` // total posted size, never decremented
	Price     float64 `json:"price"`  // assetA USD price for ask/bid, user limit for limit
	AssetA    Asset   `json:"assetA"`
	AssetB    Asset   `json:"assetB"`
	Timestamp int64   `json:"timestamp"` // unix milliseconds
}

// Touches reports whether either leg of the order is symbol.
func (o Order) Touches(symbol string) bool {
	return o.AssetA.Symbol == symbol || o.AssetB.Symbol == symbol
}

// PriceOf returns the USD reference price of the leg matching symbol.
// Callers must check Touches first; assetB is returned when assetA does not match.
func (o Order) PriceOf(symbol string) float64 {
	if o.AssetA.Symbol == symbol {
		return o.AssetA.USDPrice
	}
	return o.AssetB.USDPrice
}

// Connects reports whether the order links from and to, in either stored orientation.
func (o Order) Connects(from, to string) bool {
	a, b := o.AssetA.Symbol, o.AssetB.Symbol
	return (a == from && b == to) || (a == to && b == from)
}

// Annotated is the per-call view of an order with its cross rates.
// It is derived on every computation and never stored.
type Annotated struct {
	Type     Type
	Amount   float64
	SymbolA  string
	SymbolB  string
	RateAtoB float64 // usd(B) / usd(A)
	RateBtoA float64 // 1 / RateAtoB
}

// Annotate derives cross rates from the order's USD reference prices.
func Annotate(o Order) Annotated {
	rateAtoB := o.AssetB.USDPrice / o.AssetA.USDPrice
	return Annotated{
		Type:     o.Type,
		Amount:   o.Amount,
		SymbolA:  o.AssetA.Symbol,
		SymbolB:  o.AssetB.Symbol,
		RateAtoB: rateAtoB,
		RateBtoA: 1 / rateAtoB,
	}
}

// AnnotateAll annotates every order, preserving input order.
func AnnotateAll(orders []Order) []Annotated {
	out := make([]Annotated, len(orders))
	for i, o := range orders {
		out[i] = Annotate(o)
	}
	return out
}
