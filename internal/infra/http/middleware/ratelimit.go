package middleware

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/netip"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/xavierca1/realty-leads/internal/infra/cache"
)

// Limiter decides whether a client may make another request.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// MemoryLimiter is a per-process fixed-window counter.
type MemoryLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	limit    int
	window   time.Duration
	now      func() time.Time
}

type visitor struct {
	count     int
	lastReset time.Time
}

func NewMemoryLimiter(limit int, window time.Duration) *MemoryLimiter {
	return &MemoryLimiter{
		visitors: make(map[string]*visitor),
		limit:    limit,
		window:   window,
		now:      time.Now,
	}
}

func (rl *MemoryLimiter) Allow(_ context.Context, key string) (bool, error) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	v, exists := rl.visitors[key]
	now := rl.now()

	if !exists {
		rl.visitors[key] = &visitor{count: 1, lastReset: now}
		return true, nil
	}

	if now.Sub(v.lastReset) > rl.window {
		v.count = 1
		v.lastReset = now
		return true, nil
	}

	v.count++
	return v.count <= rl.limit, nil
}

// Cleanup drops idle visitors until ctx is done.
func (rl *MemoryLimiter) Cleanup(ctx context.Context, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			rl.sweep()
		}
	}
}

func (rl *MemoryLimiter) sweep() {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	now := rl.now()
	for key, v := range rl.visitors {
		if now.Sub(v.lastReset) > rl.window*2 {
			delete(rl.visitors, key)
		}
	}
}

const rateLimitNamespace = "rl:intake"

// RedisLimiter shares the window across instances. Once a client exceeds
// the limit it stays blocked for Block.
type RedisLimiter struct {
	Cache  *cache.Cache
	Limit  int
	Window time.Duration
	Block  time.Duration
}

func (rl *RedisLimiter) Allow(ctx context.Context, key string) (bool, error) {
	if _, err := rl.Cache.Get(ctx, rateLimitNamespace+":block", key); err == nil {
		return false, nil
	} else if !cache.IsMiss(err) {
		return true, err
	}

	cnt, err := rl.Cache.IncrWithExpire(ctx, rateLimitNamespace+":cnt", key, rl.Window)
	if err != nil {
		return true, err
	}
	if cnt > int64(rl.Limit) {
		block := rl.Block
		if block <= 0 {
			block = rl.Window
		}
		_ = rl.Cache.Set(ctx, rateLimitNamespace+":block", key, "1", block)
		return false, nil
	}
	return true, nil
}

// RateLimit refuses clients over the limit with 429. Limiter errors let the
// request through. Forwarding headers are read only from trusted proxies.
func RateLimit(l Limiter, retryAfter time.Duration, trusted []netip.Prefix, logger *zap.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := ClientIP(r, trusted)
			ok, err := l.Allow(r.Context(), ip)
			if err != nil {
				logger.Warn("⚠️ rate limiter unavailable, allowing request", zap.Error(err))
				RecordIntegrationError("ratelimit")
				next.ServeHTTP(w, r)
				return
			}
			if !ok {
				RecordRateLimited()
				if retryAfter > 0 {
					w.Header().Set("Retry-After", strconv.Itoa(int(retryAfter.Seconds())))
				}
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				json.NewEncoder(w).Encode(map[string]any{
					"success": false,
					"message": "Too many requests. Please try again later.",
				})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ClientIP returns the peer host unless the peer is a trusted proxy. Behind
// trusted proxies it walks X-Forwarded-For from the right and returns the
// first hop that is not itself trusted.
func ClientIP(r *http.Request, trusted []netip.Prefix) string {
	peer := r.RemoteAddr
	if host, _, err := net.SplitHostPort(peer); err == nil {
		peer = host
	}
	if !isTrusted(peer, trusted) {
		return peer
	}

	hops := strings.Split(r.Header.Get("X-Forwarded-For"), ",")
	for i := len(hops) - 1; i >= 0; i-- {
		hop := strings.TrimSpace(hops[i])
		if hop == "" {
			continue
		}
		if !isTrusted(hop, trusted) {
			return hop
		}
	}
	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
		return xri
	}
	return peer
}

func isTrusted(ip string, trusted []netip.Prefix) bool {
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return false
	}
	addr = addr.Unmap()
	for _, p := range trusted {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}
