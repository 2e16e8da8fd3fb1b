package middleware

import (
	"github.com/labstack/echo/v4"

	"pingline/internal/infrastructure/ratelimit"
	"pingline/pkg/errors"
	"pingline/pkg/logger"
	"pingline/pkg/response"
)

// RateLimitByIP throttles unauthenticated endpoints per client IP. The login
// and register routes use it against credential stuffing; authenticated
// actions are throttled per user inside the use cases instead.
func RateLimitByIP(limiter *ratelimit.RateLimiter, action string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ip := c.RealIP()

			if allowed, retryAfter := limiter.Allow(ip, action); !allowed {
				logger.Warn("Rate limit hit for %s on %s (retry in %v)", ip, action, retryAfter)
				return response.Error(c, errors.TooManyRequests("Too many requests. Please try again later"))
			}

			return next(c)
		}
	}
}
