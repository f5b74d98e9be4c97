package config

// Redis backs the distributed rate limiter.  It is optional: when no
// server answers at startup the limiter falls back to an in-process bucket.

import (
    "context"
    "crypto/tls"
    "os"
    "strconv"
    "strings"
    "time"

    "github.com/redis/go-redis/v9"
    "go.uber.org/zap"
)

// NewRedisClient instantiates a Redis client using environment variables.
// Supported variables are:
//   REDIS_URL – redis:// or rediss:// URL, takes precedence over the rest
//   REDIS_HOST and REDIS_PORT, or REDIS_ADDR – server address
//   REDIS_PASSWORD – optional password
//   REDIS_DB – database number (default 0)
//   REDIS_TLS – enable TLS when "true" or "1"
// Nothing is dialled unless one of the address variables is set.  The
// returned client is nil when Redis is not configured or does not answer.
func NewRedisClient(log *zap.Logger) *redis.Client {
    opts, ok := redisOptions(log)
    if !ok {
        return nil
    }
    client := redis.NewClient(opts)
    ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
    defer cancel()
    if err := client.Ping(ctx).Err(); err != nil {
        log.Warn("redis unavailable, using in-process rate limiter", zap.String("addr", opts.Addr), zap.Error(err))
        _ = client.Close()
        return nil
    }
    log.Info("redis connected", zap.String("addr", opts.Addr), zap.Int("db", opts.DB))
    return client
}

func redisOptions(log *zap.Logger) (*redis.Options, bool) {
    if u := os.Getenv("REDIS_URL"); u != "" {
        opts, err := redis.ParseURL(u)
        if err != nil {
            log.Warn("invalid REDIS_URL", zap.Error(err))
            return nil, false
        }
        return opts, true
    }
    addr := os.Getenv("REDIS_ADDR")
    if host, port := os.Getenv("REDIS_HOST"), os.Getenv("REDIS_PORT"); host != "" && port != "" {
        addr = host + ":" + port
    }
    if addr == "" {
        return nil, false
    }
    dbNum := 0
    if dbStr := os.Getenv("REDIS_DB"); dbStr != "" {
        if n, err := strconv.Atoi(dbStr); err == nil {
            dbNum = n
        }
    }
    var tlsConf *tls.Config
    if tlsEnv := os.Getenv("REDIS_TLS"); strings.EqualFold(tlsEnv, "true") || tlsEnv == "1" {
        tlsConf = &tls.Config{MinVersion: tls.VersionTLS12}
    }
    return &redis.Options{
        Addr:      addr,
        Password:  os.Getenv("REDIS_PASSWORD"),
        DB:        dbNum,
        TLSConfig: tlsConf,
    }, true
}
