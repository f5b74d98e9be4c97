package handler // handler defines http handlers

import (
    "context"
    "net/http"
    "strconv"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/storefront-api/internal/middleware"
    "github.com/iliyamo/storefront-api/internal/model"
)

// requestTimeout bounds the storage work of a single request.
const requestTimeout = 5 * time.Second

// withTimeout derives the per-request context used for service calls.
func withTimeout(c echo.Context) (context.Context, context.CancelFunc) {
    return context.WithTimeout(c.Request().Context(), requestTimeout)
}

// pathID parses a positive integer path parameter.
func pathID(c echo.Context, name string) (uint64, error) {
    id, err := strconv.ParseUint(c.Param(name), 10, 64)
    if err != nil || id == 0 {
        return 0, echo.NewHTTPError(http.StatusUnprocessableEntity, "invalid "+name)
    }
    return id, nil
}

// currentUser returns the authenticated user or a 401 when the route was
// registered without Authenticate.
func currentUser(c echo.Context) (*model.User, error) {
    u := middleware.CurrentUser(c)
    if u == nil {
        return nil, echo.NewHTTPError(http.StatusUnauthorized, "not authenticated")
    }
    return u, nil
}

func badBody() error {
    return echo.NewHTTPError(http.StatusUnprocessableEntity, "invalid body")
}
