package api

import (
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"land-grab/internal/metrics"
)

// RateLimitConfig configures the IP-based rate limiter
type RateLimitConfig struct {
	RequestsPerSecond float64       // Requests allowed per second per IP
	Burst             int           // Maximum burst size
	CleanupInterval   time.Duration // How often to clean up stale limiters
}

// DefaultRateLimitConfig returns production-safe defaults
var DefaultRateLimitConfig = RateLimitConfig{
	RequestsPerSecond: 20,
	Burst:             40,
	CleanupInterval:   5 * time.Minute,
}

// ipLimiterEntry tracks per-IP rate limiting state
type ipLimiterEntry struct {
	limiter  *rate.Limiter
	lastSeen atomic.Int64 // unix nano
}

// IPRateLimiter provides IP-based rate limiting for HTTP requests
type IPRateLimiter struct {
	limiters sync.Map // map[string]*ipLimiterEntry
	config   RateLimitConfig
	stopChan chan struct{}
	stopOnce sync.Once

	rejectedCount atomic.Uint64
	allowedCount  atomic.Uint64
}

// NewIPRateLimiter creates a new IP-based rate limiter
func NewIPRateLimiter(cfg RateLimitConfig) *IPRateLimiter {
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = DefaultRateLimitConfig.CleanupInterval
	}
	rl := &IPRateLimiter{
		config:   cfg,
		stopChan: make(chan struct{}),
	}

	// abandoned IPs are swept so the map stays bounded
	go rl.cleanupLoop()

	return rl
}

// Stop stops the rate limiter cleanup goroutine
func (rl *IPRateLimiter) Stop() {
	rl.stopOnce.Do(func() {
		close(rl.stopChan)
	})
}

func (rl *IPRateLimiter) getLimiter(ip string) *rate.Limiter {
	now := time.Now().UnixNano()

	if v, ok := rl.limiters.Load(ip); ok {
		e := v.(*ipLimiterEntry)
		e.lastSeen.Store(now)
		return e.limiter
	}

	entry := &ipLimiterEntry{
		limiter: rate.NewLimiter(rate.Limit(rl.config.RequestsPerSecond), rl.config.Burst),
	}
	entry.lastSeen.Store(now)

	actual, _ := rl.limiters.LoadOrStore(ip, entry)
	return actual.(*ipLimiterEntry).limiter
}

func (rl *IPRateLimiter) cleanupLoop() {
	ticker := time.NewTicker(rl.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-rl.stopChan:
			return
		case <-ticker.C:
			rl.cleanup()
		}
	}
}

// cleanup removes rate limiters that haven't been used recently
func (rl *IPRateLimiter) cleanup() {
	cutoff := time.Now().Add(-rl.config.CleanupInterval * 2).UnixNano()

	rl.limiters.Range(func(key, value any) bool {
		if value.(*ipLimiterEntry).lastSeen.Load() < cutoff {
			rl.limiters.Delete(key)
		}
		return true
	})
}

// Allow checks if a request from the given IP should be allowed
func (rl *IPRateLimiter) Allow(ip string) bool {
	if rl.getLimiter(ip).Allow() {
		rl.allowedCount.Add(1)
		return true
	}
	rl.rejectedCount.Add(1)
	return false
}

// Middleware returns an HTTP middleware for rate limiting
func (rl *IPRateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := GetClientIP(r)
		if !rl.Allow(ip) {
			metrics.RecordConnectionRejected("rate_limit")
			w.Header().Set("Retry-After", "1")
			http.Error(w, "Too Many Requests", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// GetStats returns rate limiter statistics
func (rl *IPRateLimiter) GetStats() map[string]uint64 {
	return map[string]uint64{
		"allowed":  rl.allowedCount.Load(),
		"rejected": rl.rejectedCount.Load(),
	}
}

// GetClientIP extracts the client IP from an HTTP request
// Handles X-Forwarded-For header for proxied requests
func GetClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		// first hop is the client; spoofable unless behind a trusted proxy
		if idx := strings.Index(xff, ","); idx >= 0 {
			return strings.TrimSpace(xff[:idx])
		}
		return strings.TrimSpace(xff)
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}

	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

// WebSocketRateLimiter caps concurrent WebSocket connections per IP and in
// total.
type WebSocketRateLimiter struct {
	connections sync.Map // map[string]*atomic.Int32
	maxPerIP    int
	maxTotal    int
	total       atomic.Int32

	rejectedCount atomic.Uint64
}

// NewWebSocketRateLimiter creates a WebSocket connection limiter. maxTotal <= 0
// means no process-wide cap.
func NewWebSocketRateLimiter(maxPerIP, maxTotal int) *WebSocketRateLimiter {
	return &WebSocketRateLimiter{maxPerIP: maxPerIP, maxTotal: maxTotal}
}

// Allow reserves a slot for ip. The returned reason is "ws_total_limit" or
// "ws_ip_limit" when refused.
func (wrl *WebSocketRateLimiter) Allow(ip string) (bool, string) {
	if wrl.maxTotal > 0 {
		for {
			cur := wrl.total.Load()
			if int(cur) >= wrl.maxTotal {
				wrl.rejectedCount.Add(1)
				return false, "ws_total_limit"
			}
			if wrl.total.CompareAndSwap(cur, cur+1) {
				break
			}
		}
	} else {
		wrl.total.Add(1)
	}

	actual, _ := wrl.connections.LoadOrStore(ip, new(atomic.Int32))
	counter := actual.(*atomic.Int32)
	for {
		cur := counter.Load()
		if int(cur) >= wrl.maxPerIP {
			wrl.total.Add(-1)
			wrl.rejectedCount.Add(1)
			return false, "ws_ip_limit"
		}
		if counter.CompareAndSwap(cur, cur+1) {
			return true, ""
		}
	}
}

// Release returns a slot taken by Allow.
func (wrl *WebSocketRateLimiter) Release(ip string) {
	if val, ok := wrl.connections.Load(ip); ok {
		val.(*atomic.Int32).Add(-1)
		wrl.total.Add(-1)
	}
}

// GetConnectionCount returns current connection count for an IP
func (wrl *WebSocketRateLimiter) GetConnectionCount(ip string) int {
	if val, ok := wrl.connections.Load(ip); ok {
		return int(val.(*atomic.Int32).Load())
	}
	return 0
}

// Total returns the number of open slots across all IPs.
func (wrl *WebSocketRateLimiter) Total() int {
	return int(wrl.total.Load())
}

// GetStats returns WebSocket rate limiter statistics
func (wrl *WebSocketRateLimiter) GetStats() map[string]uint64 {
	return map[string]uint64{
		"rejected": wrl.rejectedCount.Load(),
	}
}

// OriginChecker validates the Origin header of websocket upgrades against an
// allow-list. Entries may end in ":*" to accept any port.
type OriginChecker struct {
	exact    map[string]bool
	anyPort  []string // scheme://host prefixes
	allowAll bool
}

func NewOriginChecker(allowed []string) *OriginChecker {
	oc := &OriginChecker{exact: make(map[string]bool)}
	for _, o := range allowed {
		switch {
		case o == "*":
			oc.allowAll = true
		case strings.HasSuffix(o, ":*"):
			oc.anyPort = append(oc.anyPort, strings.TrimSuffix(o, ":*"))
		default:
			oc.exact[strings.TrimSuffix(o, "/")] = true
		}
	}
	return oc
}

// Allowed reports whether origin may open a websocket. Requests without an
// Origin header come from non-browser clients and are accepted.
func (oc *OriginChecker) Allowed(origin string) bool {
	if origin == "" || oc.allowAll {
		return true
	}
	if oc.exact[origin] {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	base := u.Scheme + "://" + u.Hostname()
	for _, prefix := range oc.anyPort {
		if base == prefix {
			return true
		}
	}
	return false
}
