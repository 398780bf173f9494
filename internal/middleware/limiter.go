package middleware

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Rate Limit Tiers
const (
	// Cart mutations (Strict)
	limitWrite = rate.Limit(5)
	burstWrite = 10

	// General (Default)
	limitGeneral = rate.Limit(10)
	burstGeneral = 20

	// Frontend-heavy apps, e.g. infinite-scroll catalog clients
	limitFrontend = rate.Limit(20)
	burstFrontend = 40
)

const (
	visitorTTL      = 3 * time.Minute
	cleanupInterval = time.Minute
)

// visitor holds the rate limiter and the last time it was seen.
type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter keeps one token bucket per identity and tier.
type RateLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	now      func() time.Time
}

func NewRateLimiter() *RateLimiter {
	return &RateLimiter{
		visitors: make(map[string]*visitor),
		now:      time.Now,
	}
}

// getVisitor retrieves or creates the limiter for key.
func (l *RateLimiter) getVisitor(key string, r rate.Limit, b int) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	v, exists := l.visitors[key]
	if !exists {
		limiter := rate.NewLimiter(r, b)
		l.visitors[key] = &visitor{limiter, l.now()}
		return limiter
	}

	v.lastSeen = l.now()
	return v.limiter
}

// cleanup removes visitors idle for longer than visitorTTL.
func (l *RateLimiter) cleanup() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	removed := 0
	for key, v := range l.visitors {
		if l.now().Sub(v.lastSeen) > visitorTTL {
			delete(l.visitors, key)
			removed++
		}
	}
	return removed
}

// Run evicts idle visitors until ctx is done.
func (l *RateLimiter) Run(ctx context.Context) error {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			l.cleanup()
		}
	}
}

// Middleware checks if the request is allowed by the rate limiter.
func (l *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		limit, burst, tier := resolveRateTier(r)

		// Bucket key such as "user:<uuid>:write", so one user has separate
		// quotas for reads and cart writes.
		key := fmt.Sprintf("%s:%s", identity(r), tier)

		if !l.getVisitor(key, limit, burst).Allow() {
			w.Header().Set("Retry-After", "1")
			http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func identity(r *http.Request) string {
	if userID, ok := UserIDFrom(r.Context()); ok {
		return "user:" + userID
	}
	if deviceID := r.Header.Get("X-Device-ID"); deviceID != "" {
		return "device:" + deviceID
	}

	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		ip = r.RemoteAddr
	}
	return "ip:" + ip
}

// resolveRateTier determines which rate limit policy applies to the request.
func resolveRateTier(r *http.Request) (rate.Limit, int, string) {
	switch r.Method {
	case http.MethodPost, http.MethodPatch, http.MethodPut, http.MethodDelete:
		return limitWrite, burstWrite, "write"
	}

	if r.Header.Get("X-Client-Type") == "frontend-heavy" {
		return limitFrontend, burstFrontend, "frontend"
	}

	return limitGeneral, burstGeneral, "general"
}
