package pricefeed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/dgraph-io/ristretto"
	"go.uber.org/zap"
)

var (
	// ErrUnsupportedSymbol is returned for symbols without a CoinGecko id.
	ErrUnsupportedSymbol = errors.New("unsupported coin")
	// ErrPriceFetch wraps every failure to obtain a USD price upstream.
	ErrPriceFetch = errors.New("error while getting price")
)

// coinIDs maps ticker symbols to CoinGecko coin ids
var coinIDs = map[string]string{
	"BTC":  "bitcoin",
	"ETH":  "ethereum",
	"BNB":  "binancecoin",
	"ADA":  "cardano",
	"SOL":  "solana",
	"XRP":  "ripple",
	"DOGE": "dogecoin",
	"LTC":  "litecoin",
	"ATOM": "cosmos",
	"TRX":  "tron",
}

// CoinID validates symbol (case-insensitive) and returns its CoinGecko id.
func CoinID(symbol string) (string, error) {
	id, ok := coinIDs[strings.ToUpper(symbol)]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedSymbol, symbol)
	}
	return id, nil
}

// Supported lists the accepted symbols, sorted.
func Supported() []string {
	out := make([]string, 0, len(coinIDs))
	for s := range coinIDs {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// Config for the CoinGecko client
type Config struct {
	BaseURL  string        // e.g. https://api.coingecko.com/api/v3
	Timeout  time.Duration // per request
	CacheTTL time.Duration // 0 disables caching
}

// Client fetches USD spot prices from the CoinGecko simple/price endpoint.
// Prices are cached per symbol for CacheTTL to stay under the public rate limit.
type Client struct {
	baseURL string
	http    *http.Client
	cache   *ristretto.Cache
	ttl     time.Duration
	logger  *zap.SugaredLogger
}

// NewClient builds a price client. A nil logger disables logging.
func NewClient(cfg Config, logger *zap.SugaredLogger) (*Client, error) {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}

	c := &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		http:    &http.Client{Timeout: cfg.Timeout},
		ttl:     cfg.CacheTTL,
		logger:  logger,
	}

	if cfg.CacheTTL > 0 {
		cache, err := ristretto.NewCache(&ristretto.Config{
			NumCounters: 1e3,
			MaxCost:     1 << 10,
			BufferItems: 64,
		})
		if err != nil {
			return nil, fmt.Errorf("price cache: %w", err)
		}
		c.cache = cache
	}
	return c, nil
}

// Close releases the price cache.
func (c *Client) Close() {
	if c.cache != nil {
		c.cache.Close()
	}
}

// Fetch returns the current USD price for symbol.
func (c *Client) Fetch(ctx context.Context, symbol string) (float64, error) {
	id, err := CoinID(symbol)
	if err != nil {
		return 0, err
	}

	if c.cache != nil {
		if v, ok := c.cache.Get(id); ok {
			return v.(float64), nil
		}
	}

	price, err := c.fetch(ctx, id)
	if err != nil {
		c.logger.Warnw("price_fetch_failed", "symbol", symbol, "coin_id", id, "err", err)
		return 0, err
	}

	if c.cache != nil {
		c.cache.SetWithTTL(id, price, 1, c.ttl)
		c.cache.Wait()
	}
	return price, nil
}

func (c *Client) fetch(ctx context.Context, id string) (float64, error) {
	q := url.Values{}
	q.Set("ids", id)
	q.Set("vs_currencies", "usd")
	endpoint := c.baseURL + "/simple/price?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrPriceFetch, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrPriceFetch, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("%w: API error: %d", ErrPriceFetch, resp.StatusCode)
	}

	var body map[string]map[string]float64
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return 0, fmt.Errorf("%w: %w", ErrPriceFetch, err)
	}

	usd, ok := body[id]["usd"]
	if !ok || usd <= 0 {
		return 0, fmt.Errorf("%w: invalid API response format", ErrPriceFetch)
	}
	return usd, nil
}
