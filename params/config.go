package params

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

type API struct {
	Addr        string   `env:"API_ADDR"`
	CORSOrigins []string `env:"API_CORS_ORIGINS" envSeparator:","`
	// RateLimit is the number of requests allowed per client per RateWindow.
	RateLimit  int           `env:"API_RATE_LIMIT"`
	RateWindow time.Duration `env:"API_RATE_WINDOW"`
	// OrderLog is a JSON-lines file every created order is appended to. Empty disables it.
	OrderLog string `env:"API_ORDER_LOG"`
}

type Storage struct {
	Path string `env:"STORAGE_PATH"`
}

type PriceFeed struct {
	BaseURL  string        `env:"PRICEFEED_BASE_URL"`
	Timeout  time.Duration `env:"PRICEFEED_TIMEOUT"`
	CacheTTL time.Duration `env:"PRICEFEED_CACHE_TTL"`
}

type Broadcast struct {
	Interval time.Duration `env:"BROADCAST_INTERVAL"`
	// SingleFlight skips a tick while the previous cycle is still running.
	SingleFlight bool     `env:"BROADCAST_SINGLE_FLIGHT"`
	KafkaBrokers []string `env:"KAFKA_BROKERS" envSeparator:","`
	KafkaTopic   string   `env:"KAFKA_TOPIC"`
}

type Log struct {
	File    string `env:"LOG_FILE"`
	Verbose bool   `env:"LOG_VERBOSE"`
}

type Config struct {
	API       API
	Storage   Storage
	PriceFeed PriceFeed
	Broadcast Broadcast
	Log       Log
}

func Default() Config {
	return Config{
		API: API{
			Addr:        ":3000",
			CORSOrigins: []string{"*"},
			RateLimit:   100,
			RateWindow:  time.Minute,
			OrderLog:    "logs/orders.jsonl",
		},
		Storage: Storage{
			Path: "data/orders",
		},
		PriceFeed: PriceFeed{
			BaseURL:  "https://api.coingecko.com/api/v3",
			Timeout:  10 * time.Second,
			CacheTTL: 30 * time.Second,
		},
		Broadcast: Broadcast{
			Interval:     5 * time.Second,
			SingleFlight: true,
			KafkaTopic:   "rates",
		},
		Log: Log{
			File: "logs/ratebook.log",
		},
	}
}

// KafkaEnabled reports whether rate updates should also go to Kafka.
func (b Broadcast) KafkaEnabled() bool {
	return len(b.KafkaBrokers) > 0 && b.KafkaTopic != ""
}

// LoadFromEnv loads configuration from .env file (if exists) and environment variables
// Priority: ENV > .env file > defaults
func LoadFromEnv(envPath string) (Config, error) {
	cfg := Default()

	// .env is optional
	if envPath != "" {
		_ = godotenv.Load(envPath)
	} else {
		_ = godotenv.Load()
	}

	// unset variables leave the defaults in place
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects settings the services cannot run with.
func (c Config) Validate() error {
	switch {
	case c.API.Addr == "":
		return fmt.Errorf("config: API_ADDR is empty")
	case c.API.RateLimit <= 0 || c.API.RateWindow <= 0:
		return fmt.Errorf("config: rate limit must be positive (got %d per %s)", c.API.RateLimit, c.API.RateWindow)
	case c.Storage.Path == "":
		return fmt.Errorf("config: STORAGE_PATH is empty")
	case c.Broadcast.Interval <= 0:
		return fmt.Errorf("config: BROADCAST_INTERVAL must be positive (got %s)", c.Broadcast.Interval)
	}
	return nil
}
