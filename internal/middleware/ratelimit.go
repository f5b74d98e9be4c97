package middleware

import (
    "fmt"
    "math"
    "net/http"
    "strconv"
    "strings"
    "sync"
    "time"

    "github.com/labstack/echo/v4"
    "github.com/redis/go-redis/v9"
    "go.uber.org/zap"
    "golang.org/x/time/rate"

    "github.com/iliyamo/storefront-api/internal/config"
)

var limiterScript = redis.NewScript(`
    local key = KEYS[1]
    local now_ms = tonumber(ARGV[1])
    local capacity = tonumber(ARGV[2])
    local refill_tokens = tonumber(ARGV[3])
    local interval_ms = tonumber(ARGV[4])
    local ttl_seconds = tonumber(ARGV[5])

    local state = redis.call('HMGET', key, 'tokens', 'last_refill_ms')
    local tokens = tonumber(state[1])
    local last_refill = tonumber(state[2])

    if tokens == nil or last_refill == nil then
        tokens = capacity
        last_refill = now_ms
    end

    local elapsed = math.max(0, now_ms - last_refill)
    local intervals = math.floor(elapsed / interval_ms)
    if intervals > 0 then
        tokens = math.min(capacity, tokens + (intervals * refill_tokens))
        last_refill = last_refill + (intervals * interval_ms)
    end

    local allowed = 0
    local retry_after_ms = 0
    if tokens > 0 then
        allowed = 1
        tokens = tokens - 1
    else
        retry_after_ms = math.max(0, interval_ms - (now_ms - last_refill))
    end

    redis.call('HSET', key, 'tokens', tokens, 'last_refill_ms', last_refill)
    redis.call('EXPIRE', key, ttl_seconds)

    return { allowed, tokens, retry_after_ms }
`)

// decision is the outcome of one bucket take.
type decision struct {
    allowed   bool
    remaining int64
    retry     time.Duration
}

// bucket takes one token for key.  ok=false means the backend could not
// decide and the request is let through.
type bucket func(c echo.Context, key string) (d decision, ok bool)

// NewTokenBucket returns a per-client rate limiting middleware.  With a
// Redis client the bucket is shared by every instance; with rdb == nil each
// process keeps its own buckets.
func NewTokenBucket(cfg config.RateLimitConfig, rdb *redis.Client, log *zap.Logger) echo.MiddlewareFunc {
    if !cfg.Enabled {
        return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
    }
    take := localBucket(cfg)
    if rdb != nil {
        take = redisBucket(cfg, rdb, log)
    }

    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            key := buildRateKey(cfg, c)
            d, ok := take(c, key)
            if !ok {
                return next(c)
            }

            h := c.Response().Header()
            h.Set("X-RateLimit-Limit", strconv.Itoa(cfg.Capacity))
            h.Set("X-RateLimit-Remaining", strconv.FormatInt(d.remaining, 10))

            if !d.allowed {
                secs := int(math.Ceil(d.retry.Seconds()))
                if secs < 1 { secs = 1 }
                h.Set("Retry-After", strconv.Itoa(secs))
                if cfg.Debug {
                    log.Debug("rate limit block", zap.String("key", key), zap.Duration("retry", d.retry))
                }
                return c.JSON(http.StatusTooManyRequests, map[string]any{
                    "error":       "rate limit exceeded",
                    "retry_after": secs,
                })
            }
            return next(c)
        }
    }
}

func redisBucket(cfg config.RateLimitConfig, rdb *redis.Client, log *zap.Logger) bucket {
    return func(c echo.Context, key string) (decision, bool) {
        args := []interface{}{
            time.Now().UnixMilli(),
            cfg.Capacity,
            cfg.RefillTokens,
            cfg.RefillInterval.Milliseconds(),
            int64(cfg.TTL / time.Second),
        }
        vals, err := limiterScript.Run(c.Request().Context(), rdb, []string{key}, args...).Result()
        if err != nil {
            log.Warn("rate limit: redis error", zap.String("key", key), zap.Error(err))
            return decision{}, false
        }
        arr, ok := vals.([]interface{})
        if !ok || len(arr) != 3 {
            log.Warn("rate limit: unexpected script result", zap.String("key", key), zap.Any("result", vals))
            return decision{}, false
        }
        return decision{
            allowed:   fmt.Sprint(arr[0]) == "1",
            remaining: asInt64(arr[1]),
            retry:     time.Duration(asInt64(arr[2])) * time.Millisecond,
        }, true
    }
}

type localEntry struct {
    lim      *rate.Limiter
    lastSeen time.Time
}

// localBucket keeps one rate.Limiter per key.  Keys idle for longer than
// cfg.TTL are swept on the next take after the TTL elapses.
func localBucket(cfg config.RateLimitConfig) bucket {
    var (
        mu        sync.Mutex
        entries   = map[string]*localEntry{}
        lastSweep = time.Now()
        limit     = rate.Limit(cfg.PerSecond())
    )
    return func(_ echo.Context, key string) (decision, bool) {
        now := time.Now()
        mu.Lock()
        defer mu.Unlock()

        if now.Sub(lastSweep) > cfg.TTL {
            for k, e := range entries {
                if now.Sub(e.lastSeen) > cfg.TTL {
                    delete(entries, k)
                }
            }
            lastSweep = now
        }
        e, ok := entries[key]
        if !ok {
            e = &localEntry{lim: rate.NewLimiter(limit, cfg.Capacity)}
            entries[key] = e
        }
        e.lastSeen = now

        r := e.lim.ReserveN(now, 1)
        if delay := r.DelayFrom(now); delay > 0 {
            r.CancelAt(now)
            return decision{allowed: false, retry: delay}, true
        }
        return decision{allowed: true, remaining: int64(e.lim.TokensAt(now))}, true
    }
}

func asInt64(v interface{}) int64 {
    switch t := v.(type) {
    case int64: return t
    case int: return int64(t)
    case float64: return int64(t)
    case string:
        if n, err := strconv.ParseInt(t, 10, 64); err == nil { return n }
    }
    return 0
}

func buildRateKey(cfg config.RateLimitConfig, c echo.Context) string {
    parts := []string{cfg.Prefix}
    ip := c.RealIP()
    if ip == "" { ip = "unknown" }
    uid := userID(c)
    route := c.Request().Method + " " + c.Path()

    switch strings.ToLower(cfg.KeyStrategy) {
    case "ip":
        parts = append(parts, "ip", ip)
    case "user":
        parts = append(parts, "user", uid)
    case "ip_user":
        parts = append(parts, "ip", ip, "user", uid)
    case "user_route":
        parts = append(parts, "user", uid, "route", route)
    default:
        parts = append(parts, "ip", ip, "user", uid, "route", route)
    }
    return strings.Join(parts, ":")
}
