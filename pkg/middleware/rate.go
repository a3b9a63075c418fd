// Package middleware holds the HTTP middleware shared by the API, the
// admin site and the websocket endpoint.
package middleware

import (
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/anfisaforfriends/anfisa/pkg/response"
)

// fixedWindow counts requests from one client in the current window.
type fixedWindow struct {
	count   int
	resetAt time.Time
}

// Limiter is a fixed-window, per-client request limiter.
type Limiter struct {
	max    int
	window time.Duration
	now    func() time.Time

	mu      sync.Mutex
	clients map[string]*fixedWindow
	sweepAt time.Time
}

func NewLimiter(max int, window time.Duration) *Limiter {
	return &Limiter{
		max:     max,
		window:  window,
		now:     time.Now,
		clients: map[string]*fixedWindow{},
	}
}

// Allow records one request for key and reports whether it is within the
// limit, together with the time the window resets.
func (l *Limiter) Allow(key string) (bool, time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if now.After(l.sweepAt) {
		for k, w := range l.clients {
			if now.After(w.resetAt) {
				delete(l.clients, k)
			}
		}
		l.sweepAt = now.Add(l.window)
	}

	w, ok := l.clients[key]
	if !ok || now.After(w.resetAt) {
		w = &fixedWindow{resetAt: now.Add(l.window)}
		l.clients[key] = w
	}
	w.count++
	return w.count <= l.max, w.resetAt
}

// RateLimit allows each client IP at most max requests per window.
func RateLimit(max int, window time.Duration) func(http.Handler) http.Handler {
	l := NewLimiter(max, window)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ok, reset := l.Allow(clientIP(r))
			if !ok {
				w.Header().Set("Retry-After", strconv.Itoa(int(time.Until(reset).Seconds())+1))
				response.Error(w, http.StatusTooManyRequests, "Too Many Requests")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		return strings.TrimSpace(first)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
