package api

import (
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	xrate "golang.org/x/time/rate"
)

// BusyMessage is returned with 429 responses.
const BusyMessage = "Server is busy try again, 1min later"

type bucket struct {
	lim      *xrate.Limiter
	lastSeen time.Time
}

// clientLimiter gives each remote IP a token bucket of limit requests per window.
// A bucket idle for a full window has refilled completely, so it is dropped on
// the next sweep and recreated on demand.
type clientLimiter struct {
	mu        sync.Mutex
	buckets   map[string]*bucket
	every     xrate.Limit
	burst     int
	window    time.Duration
	lastSweep time.Time
	now       func() time.Time
}

func newClientLimiter(limit int, window time.Duration) *clientLimiter {
	return &clientLimiter{
		buckets:   make(map[string]*bucket),
		every:     xrate.Every(window / time.Duration(limit)),
		burst:     limit,
		window:    window,
		lastSweep: time.Now(),
		now:       time.Now,
	}
}

func (l *clientLimiter) allow(key string) bool {
	l.mu.Lock()
	now := l.now()
	if now.Sub(l.lastSweep) >= l.window {
		l.sweep(now)
	}
	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{lim: xrate.NewLimiter(l.every, l.burst)}
		l.buckets[key] = b
	}
	b.lastSeen = now
	l.mu.Unlock()
	return b.lim.AllowN(now, 1)
}

// sweep drops buckets idle for at least one window. Callers hold l.mu.
func (l *clientLimiter) sweep(now time.Time) {
	for key, b := range l.buckets {
		if now.Sub(b.lastSeen) >= l.window {
			delete(l.buckets, key)
		}
	}
	l.lastSweep = now
}

func (l *clientLimiter) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}

func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func (l *clientLimiter) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !l.allow(clientKey(r)) {
			w.Header().Set("Retry-After", strconv.Itoa(int(l.window.Seconds())))
			respondError(w, http.StatusTooManyRequests, "too many requests", BusyMessage)
			return
		}
		next.ServeHTTP(w, r)
	})
}
