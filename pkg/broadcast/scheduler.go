package broadcast

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/uhyunpark/ratebook/pkg/rate"
	"github.com/uhyunpark/ratebook/pkg/util"
)

// UpdateType tags every rate update on the wire.
const UpdateType = "rateOnTime"

var ErrAlreadyStarted = errors.New("scheduler already started")

// RateUpdate is the payload of one broadcast cycle. When the book has no
// tradable pairs Rates is empty and Message explains why.
type RateUpdate struct {
	Type      string          `json:"type"`
	Rates     []rate.PairRate `json:"rates"`
	Message   string          `json:"message,omitempty"`
	Timestamp int64           `json:"timestamp"`
}

// RateSource produces the tradable pair rates of the current book.
type RateSource interface {
	TradableRates(ctx context.Context) ([]rate.PairRate, error)
}

// Publisher delivers a rate update to its subscribers.
type Publisher interface {
	Publish(ctx context.Context, u RateUpdate) error
}

type Config struct {
	Interval     time.Duration
	SingleFlight bool
}

func DefaultConfig() Config {
	return Config{Interval: 5 * time.Second, SingleFlight: true}
}

// Scheduler re-runs pair discovery on a fixed interval and publishes the
// result. Each tick starts its own cycle; with SingleFlight a tick is
// skipped while the previous cycle is still running.
type Scheduler struct {
	source     RateSource
	publishers []Publisher
	clock      util.Clock
	cfg        Config
	logger     *zap.SugaredLogger

	inflight atomic.Bool
	cycles   atomic.Int64
	skipped  atomic.Int64

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	running sync.WaitGroup
}

func NewScheduler(source RateSource, cfg Config, clock util.Clock, logger *zap.SugaredLogger, publishers ...Publisher) *Scheduler {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	if clock == nil {
		clock = util.RealClock{}
	}
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultConfig().Interval
	}
	return &Scheduler{
		source:     source,
		publishers: publishers,
		clock:      clock,
		cfg:        cfg,
		logger:     logger,
	}
}

// Start launches the tick loop. It returns immediately; the loop ends when
// ctx is cancelled or Stop is called.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return ErrAlreadyStarted
	}

	loopCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})

	s.logger.Infow("broadcast_started",
		"interval", s.cfg.Interval,
		"single_flight", s.cfg.SingleFlight,
		"publishers", len(s.publishers))

	go s.loop(loopCtx, s.done)
	return nil
}

// Stop ends the tick loop and waits for cycles already in flight.
// The scheduler can be started again afterwards.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.mu.Unlock()
	if cancel == nil {
		return
	}

	cancel()
	<-done
	s.running.Wait()

	s.mu.Lock()
	if s.done == done {
		s.cancel, s.done = nil, nil
	}
	s.mu.Unlock()

	s.logger.Infow("broadcast_stopped", "cycles", s.cycles.Load(), "skipped", s.skipped.Load())
}

func (s *Scheduler) loop(ctx context.Context, done chan struct{}) {
	defer close(done)
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.clock.After(s.cfg.Interval):
			s.tick(ctx)
		}
	}
}

func (s *Scheduler) tick(ctx context.Context) {
	if s.cfg.SingleFlight && !s.inflight.CompareAndSwap(false, true) {
		s.skipped.Add(1)
		s.logger.Debugw("broadcast_tick_skipped", "reason", "previous cycle running")
		return
	}

	// cycles are not cancelled by Stop, only waited for
	cycleCtx := context.WithoutCancel(ctx)

	s.running.Add(1)
	go func() {
		defer s.running.Done()
		if s.cfg.SingleFlight {
			defer s.inflight.Store(false)
		}
		_ = s.RunOnce(cycleCtx)
	}()
}

// RunOnce performs a single discovery and publish cycle.
func (s *Scheduler) RunOnce(ctx context.Context) error {
	s.cycles.Add(1)
	start := s.clock.Now()

	rates, err := s.source.TradableRates(ctx)
	update := RateUpdate{Type: UpdateType, Rates: rates, Timestamp: start.UnixMilli()}
	switch {
	case errors.Is(err, rate.ErrNoTradablePairs):
		update.Rates = []rate.PairRate{}
		update.Message = rate.EmptyBookMessage
	case err != nil:
		s.logger.Errorw("broadcast_cycle_failed", "err", err)
		return fmt.Errorf("broadcast cycle: %w", err)
	}

	var errs []error
	for i, p := range s.publishers {
		if err := p.Publish(ctx, update); err != nil {
			s.logger.Warnw("broadcast_publish_failed", "publisher", i, "err", err)
			errs = append(errs, err)
		}
	}

	s.logger.Debugw("rates_broadcast",
		"pairs", len(update.Rates),
		"message", update.Message,
		"took", s.clock.Now().Sub(start))
	return errors.Join(errs...)
}

// Cycles returns how many cycles have run.
func (s *Scheduler) Cycles() int64 { return s.cycles.Load() }

// Skipped returns how many ticks the single-flight guard dropped.
func (s *Scheduler) Skipped() int64 { return s.skipped.Load() }
