package middleware

import (
	"time"

	"github.com/labstack/echo/v4"
	"github.com/suteetoe/winehouse/prometheus"
)

// MetricsMiddleware adds prometheus metrics to track HTTP requests
func MetricsMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		// Start timer for request duration
		start := time.Now()

		// Process request
		err := next(c)

		status := c.Response().Status
		if err != nil {
			if he, ok := err.(*echo.HTTPError); ok {
				status = he.Code
			}
		}

		// route pattern, not raw path, to keep label cardinality bounded
		path := c.Path()
		if path == "" {
			path = "unmatched"
		}
		// Record metrics
		prometheus.ObserveHTTP(c.Request().Method, path, status, time.Since(start))

		return err
	}
}
