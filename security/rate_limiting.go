package security

import (
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/pocketbase/pocketbase/core"
	"github.com/pocketbase/pocketbase/tools/router"
	"github.com/redis/go-redis/v9"
)

// RateLimiter counts requests per client IP in fixed one-minute windows
// kept in Redis.
type RateLimiter struct {
	redis     redis.Cmdable
	perMinute int64
	now       func() time.Time
}

func NewRateLimiter(redisClient redis.Cmdable, perMinute int) *RateLimiter {
	return &RateLimiter{redis: redisClient, perMinute: int64(perMinute), now: time.Now}
}

// Limit is a route middleware rejecting clients over their budget. Redis
// errors let the request through.
func (r *RateLimiter) Limit(e *core.RequestEvent) error {
	if r.isSuspiciousUserAgent(e.Request.UserAgent()) {
		return router.NewApiError(http.StatusForbidden, "Access denied", nil)
	}

	ctx := e.Request.Context()
	ip := clientIP(e.Request)
	key := fmt.Sprintf("ratelimit:%s:%d", ip, r.now().Unix()/60)

	count, err := r.redis.Incr(ctx, key).Result()
	if err != nil {
		slog.Warn("rate limiter unavailable", "ip", ip, "error", err)
		return e.Next()
	}
	if count == 1 {
		r.redis.Expire(ctx, key, time.Minute)
	}
	if count > r.perMinute {
		return router.NewApiError(http.StatusTooManyRequests, "Too many requests", nil)
	}

	return e.Next()
}

func (r *RateLimiter) isSuspiciousUserAgent(ua string) bool {
	suspicious := []string{"bot", "crawler", "spider", "scraper"}
	for _, pattern := range suspicious {
		if strings.Contains(strings.ToLower(ua), pattern) {
			return true
		}
	}
	return false
}

func clientIP(req *http.Request) string {
	host, _, err := net.SplitHostPort(req.RemoteAddr)
	if err != nil {
		return req.RemoteAddr
	}
	return host
}
