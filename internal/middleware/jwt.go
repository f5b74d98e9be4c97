package middleware // reusable HTTP middleware: authentication, roles, rate limiting, metrics

import (
    "context"
    "strings"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/storefront-api/internal/model"
)

// UserResolver turns a raw bearer token into the active user it names.
type UserResolver interface {
    ResolveCurrentUser(ctx context.Context, token string) (*model.User, error)
}

// Authenticate returns an Echo middleware that validates the Bearer access
// token and stores the resolved user in the context.  Resolution errors are
// returned unchanged so the HTTP error handler renders them; a missing
// header is passed to the resolver as an empty token and fails the same way.
// A user already stored by Identify is reused.
func Authenticate(resolver UserResolver) echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            if CurrentUser(c) != nil {
                return next(c)
            }
            u, err := resolver.ResolveCurrentUser(c.Request().Context(), bearerToken(c))
            if err != nil {
                return err
            }
            SetUser(c, u)
            return next(c)
        }
    }
}

// Identify stores the caller when the request carries a valid bearer token
// and lets every request through.  It runs ahead of the rate limiter so
// per-user keys see authenticated callers.
func Identify(resolver UserResolver) echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            if tok := bearerToken(c); tok != "" {
                if u, err := resolver.ResolveCurrentUser(c.Request().Context(), tok); err == nil {
                    SetUser(c, u)
                }
            }
            return next(c)
        }
    }
}

// bearerToken extracts the token from "Authorization: Bearer <token>".  The
// scheme is matched case-insensitively.
func bearerToken(c echo.Context) string {
    h := c.Request().Header.Get(echo.HeaderAuthorization)
    scheme, token, ok := strings.Cut(h, " ")
    if !ok || !strings.EqualFold(scheme, "Bearer") {
        return ""
    }
    return strings.TrimSpace(token)
}
