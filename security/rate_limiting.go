// Package security holds the request-level protections for the public
// workflow endpoints: a Redis fixed-window rate limit and a basic
// user-agent screen.
package security

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"
	"github.com/redis/go-redis/v9"
)

var suspiciousAgents = []string{
	"curl/", "wget/", "python-requests", "go-http-client", "scrapy",
}

type RateLimiter struct {
	redis  *redis.Client
	limit  int
	window time.Duration
}

func NewRateLimiter(redisClient *redis.Client, limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		redis:  redisClient,
		limit:  limit,
		window: window,
	}
}

// PublicLimit is the middleware for the unauthenticated workflow routes.
// The window is keyed per client IP. When Redis is unreachable requests
// pass through, so a cache outage cannot take the registration flow down
// with it.
func (r *RateLimiter) PublicLimit() func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		agent := strings.ToLower(e.Request.UserAgent())
		for _, marker := range suspiciousAgents {
			if strings.Contains(agent, marker) {
				return apis.NewForbiddenError("Automated requests are not allowed.", nil)
			}
		}

		ctx := e.Request.Context()
		key := fmt.Sprintf("rate_limit:public:%s", e.RealIP())

		count, err := r.redis.Incr(ctx, key).Result()
		if err != nil {
			slog.Warn("rate limit check skipped", "error", err)
			return e.Next()
		}
		if count == 1 {
			r.redis.Expire(ctx, key, r.window)
		}
		if count > int64(r.limit) {
			return apis.NewApiError(http.StatusTooManyRequests, "Too many requests. Please try again shortly.", nil)
		}

		return e.Next()
	}
}
