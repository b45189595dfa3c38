package middleware

import (
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiter throttles requests with one token bucket per client IP.
// Buckets idle for longer than evictAfter are dropped to bound memory.
type RateLimiter struct {
	mu      sync.Mutex
	clients map[string]*client
	limit   rate.Limit
	burst   int
	skip    func(*http.Request) bool
	logger  *slog.Logger
}

type client struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

const evictAfter = 3 * time.Minute

// RateLimiterOption configures a RateLimiter.
type RateLimiterOption func(*RateLimiter)

// WithSkip exempts matching requests from rate limiting.
func WithSkip(skip func(*http.Request) bool) RateLimiterOption {
	return func(rl *RateLimiter) {
		rl.skip = skip
	}
}

func NewRateLimiter(logger *slog.Logger, limit rate.Limit, burst int, opts ...RateLimiterOption) *RateLimiter {
	rl := &RateLimiter{
		clients: make(map[string]*client),
		limit:   limit,
		burst:   burst,
		skip:    func(*http.Request) bool { return false },
		logger:  logger,
	}
	for _, opt := range opts {
		opt(rl)
	}
	go rl.evictLoop()
	return rl
}

func (rl *RateLimiter) evictLoop() {
	for {
		time.Sleep(time.Minute)
		rl.mu.Lock()
		for key, c := range rl.clients {
			if time.Since(c.lastSeen) > evictAfter {
				delete(rl.clients, key)
			}
		}
		rl.mu.Unlock()
	}
}

func (rl *RateLimiter) allow(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	c, ok := rl.clients[key]
	if !ok {
		c = &client{limiter: rate.NewLimiter(rl.limit, rl.burst)}
		rl.clients[key] = c
	}
	c.lastSeen = time.Now()
	return c.limiter.Allow()
}

// Limit is the rate limiting middleware.
func (rl *RateLimiter) Limit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if rl.skip(r) {
			next.ServeHTTP(w, r)
			return
		}
		if !rl.allow(clientIP(r)) {
			rl.logger.Warn("rate limit exceeded",
				"remote_addr", r.RemoteAddr,
				"method", r.Method,
				"path", r.URL.Path,
			)
			http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
