package middleware

import (
    "net/http"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/storefront-api/internal/metrics"
)

// Metrics records count and latency of every request under its route
// pattern.  Errors returned by the chain are rendered first so the recorded
// status is the one the client sees.
func Metrics() echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            start := time.Now()
            err := next(c)
            if err != nil {
                c.Error(err)
            }
            status := c.Response().Status
            if status == 0 {
                status = http.StatusOK
            }
            route := c.Path()
            if route == "" {
                route = "unmatched"
            }
            metrics.RecordRequest(c.Request().Method, route, status, time.Since(start))
            return nil
        }
    }
}
