package book

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/uhyunpark/ratebook/pkg/order"
	"github.com/uhyunpark/ratebook/pkg/pricefeed"
	"github.com/uhyunpark/ratebook/pkg/storage"
	"github.com/uhyunpark/ratebook/pkg/util"
)

const (
	// OrdersPerPage is the fixed page size of ListOrders.
	OrdersPerPage = 3

	DefaultFrom = "BNB"
	DefaultTo   = "TRX"
)

var (
	// ErrInvalidOrder is returned when a create request fails validation.
	ErrInvalidOrder = errors.New("invalid order")
	// ErrInvalidPage is returned for page numbers below 1.
	ErrInvalidPage = errors.New("invalid page number")
)

var symbolPattern = regexp.MustCompile(`^[A-Z]{2,5}$`)

// PriceFetcher resolves the current USD price of a symbol.
type PriceFetcher interface {
	Fetch(ctx context.Context, symbol string) (float64, error)
}

// Notifier is told about every order that was stored.
type Notifier interface {
	OrderCreated(o order.Order)
}

// CreateRequest is the payload for a new order. Amount and Price accept
// JSON numbers or numeric strings.
type CreateRequest struct {
	Type   string          `json:"type"`
	Amount decimal.Decimal `json:"amount"`
	From   string          `json:"from"`
	To     string          `json:"to"`
	Price  decimal.Decimal `json:"price"`
}

// Pagination describes one page of ListOrders.
type Pagination struct {
	CurrentPage     int   `json:"currentPage"`
	ItemsPerPage    int   `json:"itemsPerPage"`
	TotalItems      int64 `json:"totalItems"`
	TotalPages      int64 `json:"totalPages"`
	HasNextPage     bool  `json:"hasNextPage"`
	HasPreviousPage bool  `json:"hasPreviousPage"`
}

// Page is a newest-first slice of the order book.
type Page struct {
	Orders     []order.Order `json:"orders"`
	Pagination Pagination    `json:"pagination"`
}

// Service creates and lists orders. It is the only writer of the order store.
type Service struct {
	store    storage.OrderStore
	prices   PriceFetcher
	notifier Notifier
	clock    util.Clock
	logger   *zap.SugaredLogger
}

// NewService wires the order service. notifier and logger may be nil.
func NewService(store storage.OrderStore, prices PriceFetcher, notifier Notifier, clock util.Clock, logger *zap.SugaredLogger) *Service {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	if clock == nil {
		clock = util.RealClock{}
	}
	return &Service{store: store, prices: prices, notifier: notifier, clock: clock, logger: logger}
}

type validated struct {
	typ    order.Type
	amount float64
	price  float64
	from   string
	to     string
}

// validate checks a create request and applies defaults:
// from/to default to BNB/TRX and are upper-cased, amount must be positive,
// price must be positive when given and is required for limit orders.
func validate(req CreateRequest) (validated, error) {
	var v validated

	typ, err := order.ParseType(req.Type)
	if err != nil {
		return v, fmt.Errorf("%w: %v", ErrInvalidOrder, err)
	}
	if !req.Amount.IsPositive() {
		return v, fmt.Errorf("%w: amount must be a positive number", ErrInvalidOrder)
	}
	if req.Price.IsNegative() {
		return v, fmt.Errorf("%w: price must be a positive number", ErrInvalidOrder)
	}
	if typ == order.Limit && !req.Price.IsPositive() {
		return v, fmt.Errorf("%w: price is required for limit orders", ErrInvalidOrder)
	}

	from := strings.ToUpper(strings.TrimSpace(req.From))
	if from == "" {
		from = DefaultFrom
	}
	to := strings.ToUpper(strings.TrimSpace(req.To))
	if to == "" {
		to = DefaultTo
	}
	for _, s := range []string{from, to} {
		if !symbolPattern.MatchString(s) {
			return v, fmt.Errorf("%w: symbol %q must be 2-5 letters", ErrInvalidOrder, s)
		}
	}
	if from == to {
		return v, fmt.Errorf("%w: from and to must differ", ErrInvalidOrder)
	}

	return validated{
		typ:    typ,
		amount: req.Amount.InexactFloat64(),
		price:  req.Price.InexactFloat64(),
		from:   from,
		to:     to,
	}, nil
}

// CreateOrder validates req, captures USD reference prices and stores the order.
//
// Limit orders use the requested price for assetA; ask and bid orders take
// assetA's current feed price. assetB is always priced from the feed. The
// captured prices are never refreshed afterwards.
func (s *Service) CreateOrder(ctx context.Context, req CreateRequest) (order.Order, error) {
	v, err := validate(req)
	if err != nil {
		return order.Order{}, err
	}

	priceA := v.price
	if v.typ == order.Limit {
		// limit orders carry their own price but the symbol must still be a listed coin
		if _, err := pricefeed.CoinID(v.from); err != nil {
			return order.Order{}, err
		}
	} else if priceA, err = s.prices.Fetch(ctx, v.from); err != nil {
		return order.Order{}, err
	}
	priceB, err := s.prices.Fetch(ctx, v.to)
	if err != nil {
		return order.Order{}, err
	}

	o, err := s.store.Append(order.Order{
		Type:      v.typ,
		Amount:    v.amount,
		Price:     priceA,
		AssetA:    order.Asset{Symbol: v.from, USDPrice: priceA},
		AssetB:    order.Asset{Symbol: v.to, USDPrice: priceB},
		Timestamp: s.clock.Now().UnixMilli(),
	})
	if err != nil {
		return order.Order{}, fmt.Errorf("store order: %w", err)
	}

	s.logger.Infow("order_created",
		"id", o.ID,
		"type", o.Type,
		"amount", o.Amount,
		"pair", o.AssetA.Symbol+"/"+o.AssetB.Symbol,
		"usd_a", priceA,
		"usd_b", priceB)

	if s.notifier != nil {
		s.notifier.OrderCreated(o)
	}
	return o, nil
}

// ListOrders returns page (1-based) of the book, newest order first.
// A page past the end is empty rather than an error.
func (s *Service) ListOrders(page int) (Page, error) {
	if page < 1 {
		return Page{}, fmt.Errorf("%w: %d (must be >= 1)", ErrInvalidPage, page)
	}

	total, err := s.store.ReadCount()
	if err != nil {
		return Page{}, fmt.Errorf("read order count: %w", err)
	}
	totalPages := (total + OrdersPerPage - 1) / OrdersPerPage

	out := Page{
		Orders: []order.Order{},
		Pagination: Pagination{
			CurrentPage:     page,
			ItemsPerPage:    OrdersPerPage,
			TotalItems:      total,
			TotalPages:      totalPages,
			HasNextPage:     int64(page) < totalPages,
			HasPreviousPage: page > 1,
		},
	}
	if int64(page) > totalPages {
		return out, nil
	}

	end := total - int64(page-1)*OrdersPerPage
	start := max(1, end-OrdersPerPage+1)

	orders, err := s.store.Range(start, end)
	if err != nil {
		return Page{}, fmt.Errorf("read orders %d..%d: %w", start, end, err)
	}
	for i := len(orders) - 1; i >= 0; i-- {
		out.Orders = append(out.Orders, orders[i])
	}
	return out, nil
}
