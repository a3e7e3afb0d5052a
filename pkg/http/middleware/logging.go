package middleware

import (
	"log"
	"time"

	"github.com/labstack/echo/v4"
)

// RequestLogging logs each HTTP request with status and latency. Prometheus
// scrape traffic on /metrics is skipped to keep the log readable.
func RequestLogging() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			if req.URL.Path == "/metrics" {
				return next(c)
			}
			res := c.Response()
			start := time.Now()

			err := next(c)

			log.Printf("[%s] %s %s - %d (%s)",
				req.Method,
				req.RequestURI,
				req.RemoteAddr,
				res.Status,
				time.Since(start),
			)
			return err
		}
	}
}
