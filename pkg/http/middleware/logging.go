package middleware

import (
	"time"

	applogger "RelVal/pkg/logger"

	"github.com/labstack/echo/v4"
)

// RequestLogging logs one line per request. 5xx responses log at error level,
// 4xx at warn, everything else at debug.
func RequestLogging(l *applogger.Logger) echo.MiddlewareFunc {
	if l == nil {
		l = applogger.Nop()
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			start := time.Now()

			err := next(c)
			if err != nil {
				c.Error(err)
			}

			status := c.Response().Status
			fields := []applogger.Field{
				applogger.String("method", req.Method),
				applogger.String("route", routeOf(c)),
				applogger.String("remote", c.RealIP()),
				applogger.Int("status", status),
				applogger.Int64("bytes", c.Response().Size),
				applogger.Duration("duration_ms", time.Since(start)),
			}
			switch {
			case status >= 500:
				l.Error("http request", append(fields, applogger.Error(err))...)
			case status >= 400:
				l.Warn("http request", fields...)
			default:
				l.Debug("http request", fields...)
			}
			return nil
		}
	}
}

func routeOf(c echo.Context) string {
	if p := c.Path(); p != "" {
		return p
	}
	return c.Request().URL.Path
}
