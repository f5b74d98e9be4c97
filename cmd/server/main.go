package main // Entry point package

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/iliyamo/storefront-api/internal/app"
	"github.com/iliyamo/storefront-api/internal/auth"
	"github.com/iliyamo/storefront-api/internal/config"
	"github.com/iliyamo/storefront-api/internal/database"
	"github.com/iliyamo/storefront-api/internal/logger"
	"github.com/iliyamo/storefront-api/internal/middleware"
	"github.com/iliyamo/storefront-api/internal/queue"
	"github.com/iliyamo/storefront-api/internal/repository"
	"github.com/iliyamo/storefront-api/internal/repository/memory"
	"github.com/iliyamo/storefront-api/internal/service"
)

func main() {
	_ = godotenv.Load() // .env is optional
	cfg := config.Load()

	appLogger, err := logger.New(logger.Config{Development: !cfg.IsProd(), Level: cfg.LogLevel})
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer func() { _ = appLogger.Sync() }()

	stores, closeStore, err := openStores(cfg, appLogger)
	if err != nil {
		appLogger.Fatal("open store", zap.String("driver", cfg.Store), zap.Error(err))
	}
	defer closeStore()

	argonParams := auth.Argon2Params{
		Memory:  cfg.Auth.Argon2Memory,
		Time:    cfg.Auth.Argon2Time,
		Threads: cfg.Auth.Argon2Threads,
		SaltLen: auth.DefaultArgon2Params.SaltLen,
		KeyLen:  auth.DefaultArgon2Params.KeyLen,
	}
	if err := argonParams.Validate(); err != nil {
		appLogger.Fatal("invalid ARGON2_* settings", zap.Error(err))
	}
	hasher := auth.NewPasswordHasher(argonParams)
	tokens, err := auth.NewTokenManager(auth.TokenConfig{
		Secret:     []byte(cfg.Auth.JWTSecret),
		Algorithm:  cfg.Auth.JWTAlgorithm,
		AccessTTL:  cfg.Auth.AccessTTL,
		RefreshTTL: cfg.Auth.RefreshTTL,
	})
	if err != nil {
		appLogger.Fatal("token manager", zap.Error(err))
	}

	var events service.EventPublisher
	if cfg.RabbitMQURL != "" {
		events = queue.NewPublisher(cfg.RabbitMQURL, cfg.EventsQueue, appLogger.Named("rabbitmq"))
	}

	svc := app.NewServices(stores, hasher, tokens, events, appLogger)

	if cfg.Admin.Email != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if _, err := svc.Auth.EnsureAdmin(ctx, cfg.Admin.Email, cfg.Admin.Password); err != nil {
			cancel()
			appLogger.Fatal("bootstrap admin", zap.Error(err))
		}
		cancel()
	}

	rdb := config.NewRedisClient(appLogger)
	if rdb != nil {
		defer func() { _ = rdb.Close() }()
	}
	limiter := middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb, appLogger.Named("ratelimit"))

	e := app.NewEcho(svc, limiter, appLogger)

	addr := ":" + cfg.Port
	go func() {
		appLogger.Info("listening", zap.String("addr", addr), zap.String("env", cfg.Env), zap.String("store", cfg.Store))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLogger.Fatal("server stopped", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		appLogger.Error("graceful shutdown failed", zap.Error(err))
	}
}

// openStores returns the persistence selected by APP_STORE and a func that
// releases it.
func openStores(cfg config.Config, log *zap.Logger) (app.Stores, func(), error) {
	if cfg.Store == config.StoreMemory {
		log.Warn("using in-memory store, data is lost on restart")
		m := memory.New()
		return app.Stores{
			Users:      m.Users(),
			Categories: m.Categories(),
			Products:   m.Products(),
			Reviews:    m.Reviews(),
			Tx:         m,
		}, func() {}, nil
	}

	db, err := database.Open(cfg.DB.User, cfg.DB.Pass, cfg.DB.Host, cfg.DB.Port, cfg.DB.Name)
	if err != nil {
		return app.Stores{}, nil, err
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	if err := database.Migrate(ctx, db, log.Named("migrate")); err != nil {
		_ = db.Close()
		return app.Stores{}, nil, err
	}
	return app.Stores{
		Users:      repository.NewUserRepo(db),
		Categories: repository.NewCategoryRepo(db),
		Products:   repository.NewProductRepo(db),
		Reviews:    repository.NewReviewRepo(db),
		Tx:         repository.NewTxManager(db),
	}, func() { _ = db.Close() }, nil
}
