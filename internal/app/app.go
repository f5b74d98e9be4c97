// Package app assembles services, middleware and routes into an Echo
// server.  cmd/server feeds it real stores; handler tests feed it the
// in-memory store.
package app

import (
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/iliyamo/storefront-api/internal/auth"
	"github.com/iliyamo/storefront-api/internal/handler"
	"github.com/iliyamo/storefront-api/internal/middleware"
	"github.com/iliyamo/storefront-api/internal/router"
	"github.com/iliyamo/storefront-api/internal/service"
)

// Stores is the persistence a server runs on.
type Stores struct {
	Users      service.UserStore
	Categories service.CategoryStore
	Products   service.ProductStore
	Reviews    service.ReviewStore
	Tx         service.TxManager
}

// Services are the business components behind the handlers.
type Services struct {
	Auth       *service.AuthService
	Categories *service.CategoryService
	Products   *service.ProductService
	Reviews    *service.ReviewService
}

// NewServices wires the services over st.  events may be nil.
func NewServices(st Stores, hasher *auth.PasswordHasher, tokens *auth.TokenManager, events service.EventPublisher, log *zap.Logger) Services {
	return Services{
		Auth:       service.NewAuthService(st.Users, hasher, tokens, log.Named("auth")),
		Categories: service.NewCategoryService(st.Categories, log.Named("categories")),
		Products:   service.NewProductService(st.Products, st.Categories, log.Named("products")),
		Reviews:    service.NewReviewService(st.Reviews, st.Products, st.Tx, events, log.Named("reviews")),
	}
}

// NewEcho builds the HTTP server.  limiter may be nil to disable rate
// limiting; otherwise bearer tokens are resolved ahead of it so user-keyed
// buckets see the caller.
func NewEcho(svc Services, limiter echo.MiddlewareFunc, log *zap.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = handler.ErrorHandler(log)

	e.Use(echomw.Recover())
	e.Use(echomw.RequestIDWithConfig(echomw.RequestIDConfig{
		Generator: func() string { return uuid.NewString() },
	}))
	e.Use(middleware.Metrics())
	e.Use(echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogRemoteIP:  true,
		LogError:     true,
		LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
			fields := []zap.Field{
				zap.String("method", v.Method),
				zap.String("uri", v.URI),
				zap.Int("status", v.Status),
				zap.Duration("latency", v.Latency.Round(time.Microsecond)),
				zap.String("request_id", v.RequestID),
				zap.String("remote_ip", v.RemoteIP),
			}
			if v.Error != nil {
				fields = append(fields, zap.Error(v.Error))
			}
			log.Info("request", fields...)
			return nil
		},
	}))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowHeaders: []string{echo.HeaderAuthorization, echo.HeaderContentType},
	}))
	if limiter != nil {
		e.Use(middleware.Identify(svc.Auth))
		e.Use(limiter)
	}

	router.RegisterRoutes(e)
	router.RegisterAPI(e, router.Handlers{
		Auth:       handler.NewAuthHandler(svc.Auth),
		Products:   handler.NewProductHandler(svc.Products),
		Categories: handler.NewCategoryHandler(svc.Categories),
		Reviews:    handler.NewReviewHandler(svc.Reviews),
	}, middleware.Authenticate(svc.Auth))
	return e
}
