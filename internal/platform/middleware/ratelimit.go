package middleware

import (
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"
)

// RateLimitConfig holds rate limiting configuration.
type RateLimitConfig struct {
	RequestsPerSecond float64
	BurstSize         int
}

// DefaultRateLimitConfig returns default rate limiting settings.
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		RequestsPerSecond: 100,
		BurstSize:         200,
	}
}

// idleVisitorTTL is how long an idle caller's limiter is kept.
const idleVisitorTTL = 3 * time.Minute

// clientKey identifies the caller: the authenticated user when known,
// otherwise the client IP.
func clientKey(c echo.Context) string {
	if uid, ok := c.Get("user_id").(string); ok && uid != "" {
		return "user:" + uid
	}
	return "ip:" + c.RealIP()
}

// retryAfterSeconds is the wait for one token at rps, at least a second.
func retryAfterSeconds(rps float64) int {
	if rps <= 0 {
		return 1
	}
	return int(math.Max(1, math.Ceil(1/rps)))
}

// RateLimit returns an in-process per-caller limiter backed by echo's
// memory store. Used when no Redis is configured.
func RateLimit(cfg RateLimitConfig) echo.MiddlewareFunc {
	limit := strconv.FormatFloat(cfg.RequestsPerSecond, 'f', 0, 64)
	retryAfter := strconv.Itoa(retryAfterSeconds(cfg.RequestsPerSecond))

	store := echomw.NewRateLimiterMemoryStoreWithConfig(echomw.RateLimiterMemoryStoreConfig{
		Rate:      rate.Limit(cfg.RequestsPerSecond),
		Burst:     cfg.BurstSize,
		ExpiresIn: idleVisitorTTL,
	})

	return echomw.RateLimiterWithConfig(echomw.RateLimiterConfig{
		Store: store,
		BeforeFunc: func(c echo.Context) {
			c.Response().Header().Set("X-RateLimit-Limit", limit)
		},
		IdentifierExtractor: func(c echo.Context) (string, error) {
			return clientKey(c), nil
		},
		ErrorHandler: func(c echo.Context, err error) error {
			return echo.NewHTTPError(http.StatusForbidden, "unable to identify caller")
		},
		DenyHandler: func(c echo.Context, _ string, _ error) error {
			h := c.Response().Header()
			h.Set("Retry-After", retryAfter)
			h.Set("X-RateLimit-Remaining", "0")
			return echo.NewHTTPError(http.StatusTooManyRequests, "rate limit exceeded")
		},
	})
}
