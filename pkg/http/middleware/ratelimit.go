package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// Allower is satisfied by the keyed token bucket limiter.
type Allower interface {
	Allow(key string, capacity, refillPerSec float64) bool
}

// RateLimit rejects requests with 429 once the caller's bucket is empty.
// Callers are keyed by echo's RealIP.
func RateLimit(l Allower, capacity, refillPerSec float64) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !l.Allow(c.RealIP(), capacity, refillPerSec) {
				return c.JSON(http.StatusTooManyRequests, map[string]interface{}{
					"status":  http.StatusTooManyRequests,
					"message": http.StatusText(http.StatusTooManyRequests),
				})
			}
			return next(c)
		}
	}
}
