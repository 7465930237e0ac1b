package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/uhyunpark/ratebook/params"
	"github.com/uhyunpark/ratebook/pkg/api"
	"github.com/uhyunpark/ratebook/pkg/book"
	"github.com/uhyunpark/ratebook/pkg/broadcast"
	"github.com/uhyunpark/ratebook/pkg/pricefeed"
	"github.com/uhyunpark/ratebook/pkg/rate"
	"github.com/uhyunpark/ratebook/pkg/storage"
	"github.com/uhyunpark/ratebook/pkg/util"
)

func main() {
	// Load config from .env file and environment variables
	cfg, err := params.LoadFromEnv("") // "" means load from .env in current directory
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	// Setup logging (console, plus a file unless LOG_FILE is empty)
	newLogger := func() (*zap.Logger, error) { return util.NewLogger(cfg.Log.Verbose) }
	if cfg.Log.File != "" {
		newLogger = func() (*zap.Logger, error) { return util.NewLoggerWithFile(cfg.Log.File, cfg.Log.Verbose) }
	}
	logger, err := newLogger()
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()
	sugar := logger.Sugar()
	sugar.Infow("logger_initialized", "log_file", cfg.Log.File, "verbose", cfg.Log.Verbose)

	// ---- Storage ----
	store, err := storage.NewPebbleStore(cfg.Storage.Path)
	if err != nil {
		sugar.Fatalw("store_open_failed", "path", cfg.Storage.Path, "err", err)
	}
	defer store.Close()
	count, err := store.ReadCount()
	if err != nil {
		sugar.Warnw("store_count_failed", "path", cfg.Storage.Path, "err", err)
	}
	sugar.Infow("store_opened", "path", cfg.Storage.Path, "orders", count)

	// ---- Price feed ----
	prices, err := pricefeed.NewClient(pricefeed.Config{
		BaseURL:  cfg.PriceFeed.BaseURL,
		Timeout:  cfg.PriceFeed.Timeout,
		CacheTTL: cfg.PriceFeed.CacheTTL,
	}, sugar)
	if err != nil {
		sugar.Fatalw("price_feed_init_failed", "err", err)
	}
	defer prices.Close()

	// ---- Services ----
	hub := api.NewHub(sugar)
	orders := book.NewService(store, prices, hub, util.RealClock{}, sugar)
	rates := rate.NewService(store, sugar)

	server := api.NewServer(api.Config{
		Addr:        cfg.API.Addr,
		CORSOrigins: cfg.API.CORSOrigins,
		RateLimit:   cfg.API.RateLimit,
		RateWindow:  cfg.API.RateWindow,
		OrderLog:    cfg.API.OrderLog,
	}, rates, orders, hub, sugar)
	defer server.Close()

	// ---- Broadcast ----
	publishers := []broadcast.Publisher{hub}
	if cfg.Broadcast.KafkaEnabled() {
		broadcast.EnsureTopic(context.Background(), cfg.Broadcast.KafkaBrokers[0], cfg.Broadcast.KafkaTopic, sugar)
		kp := broadcast.NewKafkaPublisher(cfg.Broadcast.KafkaBrokers, cfg.Broadcast.KafkaTopic)
		defer kp.Close()
		publishers = append(publishers, kp)
		sugar.Infow("kafka_enabled", "brokers", cfg.Broadcast.KafkaBrokers, "topic", cfg.Broadcast.KafkaTopic)
	}

	scheduler := broadcast.NewScheduler(rates, broadcast.Config{
		Interval:     cfg.Broadcast.Interval,
		SingleFlight: cfg.Broadcast.SingleFlight,
	}, util.RealClock{}, sugar, publishers...)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		hub.Run(gctx)
		return nil
	})
	g.Go(func() error {
		if err := scheduler.Start(gctx); err != nil {
			return err
		}
		<-gctx.Done()
		scheduler.Stop()
		return nil
	})
	g.Go(func() error {
		return server.Run(gctx)
	})

	if err := g.Wait(); err != nil {
		sugar.Errorw("ratebook_exited", "err", err)
		return
	}
	sugar.Info("shutdown complete")
}
