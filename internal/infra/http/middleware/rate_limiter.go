package middleware

import (
	"encoding/json"
	"net"
	"net/http"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	limiterExpiration = 10 * time.Minute
	limiterCleanup    = 30 * time.Minute
)

// RateLimiter keeps one token bucket per client IP. Buckets idle for
// limiterExpiration are evicted.
type RateLimiter struct {
	limiters *gocache.Cache
	every    rate.Limit
	burst    int
	log      *zap.SugaredLogger
}

// NewRateLimiter allows perMinute requests per IP, all of them usable in a burst.
func NewRateLimiter(perMinute int, log *zap.SugaredLogger) *RateLimiter {
	if perMinute <= 0 {
		perMinute = 1
	}
	return &RateLimiter{
		limiters: gocache.New(limiterExpiration, limiterCleanup),
		every:    rate.Every(time.Minute / time.Duration(perMinute)),
		burst:    perMinute,
		log:      log,
	}
}

func (rl *RateLimiter) limiter(ip string) *rate.Limiter {
	if v, ok := rl.limiters.Get(ip); ok {
		rl.limiters.SetDefault(ip, v)
		return v.(*rate.Limiter)
	}
	l := rate.NewLimiter(rl.every, rl.burst)
	if err := rl.limiters.Add(ip, l, gocache.DefaultExpiration); err != nil {
		// Another request created it first.
		if v, ok := rl.limiters.Get(ip); ok {
			return v.(*rate.Limiter)
		}
	}
	return l
}

func (rl *RateLimiter) Allow(ip string) bool {
	return rl.limiter(ip).Allow()
}

func (rl *RateLimiter) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := clientIP(r)
		if !rl.Allow(ip) {
			rl.log.Warnw("rate limit exceeded", "ip", ip, "path", r.URL.Path)
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("Retry-After", "60")
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

// clientIP expects chi's RealIP to have already rewritten RemoteAddr.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
