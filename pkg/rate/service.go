package rate

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/uhyunpark/ratebook/pkg/order"
)

// SnapshotReader is the read side of the order store.
type SnapshotReader interface {
	ReadAll() ([]order.Order, error)
}

// Service binds the engine to an order store: each call reads one snapshot
// and computes over it. It holds no state between calls.
type Service struct {
	store  SnapshotReader
	logger *zap.SugaredLogger
}

// NewService creates a rate service. A nil logger disables logging.
func NewService(store SnapshotReader, logger *zap.SugaredLogger) *Service {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Service{store: store, logger: logger}
}

func (s *Service) snapshot(ctx context.Context) ([]order.Order, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	orders, err := s.store.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUpstreamRead, err)
	}
	return orders, nil
}

// Quote prices amount units of from in to against the current book.
func (s *Service) Quote(ctx context.Context, from, to string, amount any) (LookupResult, error) {
	orders, err := s.snapshot(ctx)
	if err != nil {
		return LookupResult{}, err
	}
	return Lookup(orders, from, to, amount)
}

// TradableRates discovers every tradable pair in the current book and
// prices one unit of each. Per-pair failures are logged and kept inline.
func (s *Service) TradableRates(ctx context.Context) ([]PairRate, error) {
	orders, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}

	rates, err := DiscoverRates(orders)
	if err != nil {
		return nil, err
	}

	for _, r := range rates {
		if r.Failed() {
			s.logger.Warnw("pair_rate_failed", "pair", r.Pair, "err", r.Cause)
		}
	}
	return rates, nil
}
