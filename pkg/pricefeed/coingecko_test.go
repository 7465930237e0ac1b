package pricefeed

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func newTestFeed(t *testing.T, handler http.HandlerFunc, ttl time.Duration) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := NewClient(Config{BaseURL: srv.URL, Timeout: time.Second, CacheTTL: ttl}, nil)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	t.Cleanup(c.Close)
	return c
}

func TestCoinID(t *testing.T) {
	tests := []struct {
		symbol  string
		want    string
		wantErr bool
	}{
		{"BTC", "bitcoin", false},
		{"eth", "ethereum", false},
		{"Trx", "tron", false},
		{"XYZ", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.symbol, func(t *testing.T) {
			got, err := CoinID(tt.symbol)
			if tt.wantErr {
				if !errors.Is(err, ErrUnsupportedSymbol) {
					t.Fatalf("CoinID(%q) err = %v, want ErrUnsupportedSymbol", tt.symbol, err)
				}
				return
			}
			if err != nil || got != tt.want {
				t.Errorf("CoinID(%q) = %q, %v; want %q", tt.symbol, got, err, tt.want)
			}
		})
	}

	if n := len(Supported()); n != 10 {
		t.Errorf("Supported() has %d symbols, want 10", n)
	}
}

func TestClient_Fetch(t *testing.T) {
	c := newTestFeed(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/simple/price" || r.URL.Query().Get("vs_currencies") != "usd" {
			http.NotFound(w, r)
			return
		}
		fmt.Fprintf(w, `{"%s":{"usd":42.5}}`, r.URL.Query().Get("ids"))
	}, 0)

	got, err := c.Fetch(context.Background(), "sol")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if got != 42.5 {
		t.Errorf("Fetch(sol) = %v, want 42.5", got)
	}
}

func TestClient_FetchErrors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"http error", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
		}},
		{"missing coin", func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{}`)
		}},
		{"bad json", func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{"bitcoin":`)
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestFeed(t, tt.handler, 0)
			if _, err := c.Fetch(context.Background(), "BTC"); !errors.Is(err, ErrPriceFetch) {
				t.Errorf("err = %v, want ErrPriceFetch", err)
			}
		})
	}

	c := newTestFeed(t, func(w http.ResponseWriter, r *http.Request) {}, 0)
	if _, err := c.Fetch(context.Background(), "NOPE"); !errors.Is(err, ErrUnsupportedSymbol) {
		t.Errorf("unsupported err = %v, want ErrUnsupportedSymbol", err)
	}
}

func TestClient_FetchUsesCache(t *testing.T) {
	var hits atomic.Int32
	c := newTestFeed(t, func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		fmt.Fprint(w, `{"bitcoin":{"usd":30000}}`)
	}, time.Minute)

	for i := 0; i < 3; i++ {
		got, err := c.Fetch(context.Background(), "BTC")
		if err != nil || got != 30000 {
			t.Fatalf("Fetch #%d = %v, %v", i, got, err)
		}
	}
	if n := hits.Load(); n != 1 {
		t.Errorf("upstream hits = %d, want 1", n)
	}
}
