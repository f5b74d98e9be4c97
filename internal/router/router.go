package router // package router defines how HTTP routes are registered for the API

import (
    "net/http"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/storefront-api/internal/handler"
    "github.com/iliyamo/storefront-api/internal/metrics"
    "github.com/iliyamo/storefront-api/internal/middleware"
    "github.com/iliyamo/storefront-api/internal/model"
)

// Handlers bundles every HTTP handler the router mounts.
type Handlers struct {
    Auth       *handler.AuthHandler
    Products   *handler.ProductHandler
    Categories *handler.CategoryHandler
    Reviews    *handler.ReviewHandler
}

// RegisterRoutes registers the public operational endpoints: the API root,
// the health check used by load balancers and the Prometheus scrape target.
func RegisterRoutes(e *echo.Echo) {
    e.GET("/", handler.Welcome)
    e.GET("/healthz", handler.Health)
    e.GET("/metrics", echo.WrapHandler(metrics.Handler()))
}

// RegisterAPI mounts the storefront resources.  authn resolves the bearer
// token; role checks are layered per route on top of it.
func RegisterAPI(e *echo.Echo, h Handlers, authn echo.MiddlewareFunc) {
    seller := []echo.MiddlewareFunc{authn, middleware.RequireRole(model.RoleSeller)}
    buyer := []echo.MiddlewareFunc{authn, middleware.RequireRole(model.RoleBuyer)}
    admin := []echo.MiddlewareFunc{authn, middleware.RequireRole(model.RoleAdmin)}

    // Collection roots answer with and without the trailing slash.
    root := func(g *echo.Group, method string, fn echo.HandlerFunc, m ...echo.MiddlewareFunc) {
        g.Add(method, "", fn, m...)
        g.Add(method, "/", fn, m...)
    }

    users := e.Group("/users")
    root(users, http.MethodPost, h.Auth.Register)
    users.POST("/token", h.Auth.Login)
    users.POST("/refresh-token", h.Auth.Refresh)
    users.GET("/me", h.Auth.Me, authn)

    products := e.Group("/products")
    root(products, http.MethodGet, h.Products.List)
    products.GET("/category/:id", h.Products.ListByCategory)
    products.GET("/:id", h.Products.Get)
    products.POST("/products", h.Products.Create, seller...)
    products.PATCH("/:id", h.Products.Update, seller...)
    products.DELETE("/:id", h.Products.Delete, seller...)

    categories := e.Group("/categories")
    root(categories, http.MethodGet, h.Categories.List)
    root(categories, http.MethodPost, h.Categories.Create)
    categories.PATCH("/:id", h.Categories.Update)
    categories.DELETE("/:id", h.Categories.Delete)

    reviews := e.Group("/reviews")
    root(reviews, http.MethodGet, h.Reviews.List)
    root(reviews, http.MethodPost, h.Reviews.Create, buyer...)
    reviews.GET("/products/:id/reviews", h.Reviews.ListByProduct)
    reviews.DELETE("/:id", h.Reviews.Delete, admin...)
}
