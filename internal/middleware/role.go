package middleware // middleware provides shared request processing for handlers

import (
    "github.com/labstack/echo/v4"

    "github.com/iliyamo/storefront-api/internal/model"
    "github.com/iliyamo/storefront-api/internal/service"
)

// RequireRole returns a middleware that lets the request through only when
// the authenticated user holds exactly role.  It must run after
// Authenticate; without a user it fails like any other role mismatch.
func RequireRole(role model.Role) echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            if err := service.RequireRole(CurrentUser(c), role); err != nil {
                return err
            }
            return next(c)
        }
    }
}
