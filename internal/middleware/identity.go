package middleware

// identity.go holds the helpers that move the authenticated user through
// the Echo context.  Authenticate stores it; handlers and other middleware
// read it back with CurrentUser.

import (
    "strconv"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/storefront-api/internal/model"
)

const userContextKey = "user"

// SetUser stores the resolved user on the request context.
func SetUser(c echo.Context, u *model.User) { c.Set(userContextKey, u) }

// CurrentUser returns the user stored by Authenticate, or nil.
func CurrentUser(c echo.Context) *model.User {
    u, _ := c.Get(userContextKey).(*model.User)
    return u
}

// userID returns the authenticated user's id as a string, or "anon".
func userID(c echo.Context) string {
    if u := CurrentUser(c); u != nil {
        return strconv.FormatUint(u.ID, 10)
    }
    return "anon"
}
