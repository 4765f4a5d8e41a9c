package api

import (
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

// staleClients is the client count above which expired windows are swept.
const staleClients = 1024

// RateLimiter allows each client IP a fixed number of requests per window.
type RateLimiter struct {
	limit  int
	window time.Duration
	now    func() time.Time

	mu      sync.Mutex
	clients map[string]*clientWindow
}

type clientWindow struct {
	start time.Time
	used  int
}

// NewRateLimiter allows limit requests per client in each window.
func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		limit:   limit,
		window:  window,
		now:     time.Now,
		clients: make(map[string]*clientWindow),
	}
}

// Allow counts a request from ip and reports whether it is within the limit.
func (rl *RateLimiter) Allow(ip string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	if len(rl.clients) > staleClients {
		rl.sweep(now)
	}

	cw := rl.clients[ip]
	if cw == nil || rl.expired(cw, now) {
		rl.clients[ip] = &clientWindow{start: now, used: 1}
		return true
	}
	if cw.used >= rl.limit {
		return false
	}
	cw.used++
	return true
}

// RetryAfter returns the whole seconds until ip's window ends, rounded up.
func (rl *RateLimiter) RetryAfter(ip string) int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cw := rl.clients[ip]
	if cw == nil {
		return 0
	}
	left := cw.start.Add(rl.window).Sub(rl.now())
	if left <= 0 {
		return 0
	}
	return int(left/time.Second) + 1
}

func (rl *RateLimiter) expired(cw *clientWindow, now time.Time) bool {
	return now.Sub(cw.start) >= rl.window
}

// sweep drops clients whose window ended. Caller holds mu.
func (rl *RateLimiter) sweep(now time.Time) {
	for ip, cw := range rl.clients {
		if rl.expired(cw, now) {
			delete(rl.clients, ip)
		}
	}
}

// Middleware rejects requests over the limit with 429 and a Retry-After header.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := clientIP(r)
		if !rl.Allow(ip) {
			w.Header().Set("Retry-After", strconv.Itoa(rl.RetryAfter(ip)))
			http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// clientIP prefers the first X-Forwarded-For entry for proxied requests.
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
