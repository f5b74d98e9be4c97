package config // package config loads application configuration from environment variables

import (
    "log"
    "os"
    "time"
)

// Store drivers.
const (
    StoreMySQL  = "mysql"
    StoreMemory = "memory"
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.  The values are read once at startup and passed
// by value to the components that need them.
type Config struct {
    Env      string // application environment (dev, test, prod)
    Port     string // HTTP port to listen on
    LogLevel string // zap level name (debug, info, warn, error)
    Store    string // "mysql" or "memory"

    DB    DBConfig
    Auth  AuthConfig
    Admin AdminConfig

    RabbitMQURL string // empty disables event publishing
    EventsQueue string
}

// DBConfig is the MySQL connection.  It is only required for the mysql store.
type DBConfig struct {
    User string
    Pass string
    Host string
    Port string
    Name string
}

// AuthConfig drives token signing and password hashing.
type AuthConfig struct {
    JWTSecret     string
    JWTAlgorithm  string
    AccessTTL     time.Duration
    RefreshTTL    time.Duration
    Argon2Memory  uint32 // KiB
    Argon2Time    uint32
    Argon2Threads uint8
}

// AdminConfig bootstraps an admin account at startup when Email is set.
type AdminConfig struct {
    Email    string
    Password string
}

// Load reads configuration values from environment variables and returns a
// Config.  Required variables are enforced by must() and missing values
// cause the program to exit with a fatal log message.
func Load() Config {
    cfg := Config{
        Env:      envStr("APP_ENV", "dev"),
        Port:     must("APP_PORT"),
        LogLevel: envStr("LOG_LEVEL", "info"),
        Store:    envStr("APP_STORE", StoreMySQL),
        Auth: AuthConfig{
            JWTSecret:     must("JWT_SECRET"),
            JWTAlgorithm:  envStr("JWT_ALGORITHM", "HS256"),
            AccessTTL:     time.Duration(envInt("ACCESS_TOKEN_TTL_MIN", 30)) * time.Minute,
            RefreshTTL:    time.Duration(envInt("REFRESH_TOKEN_TTL_DAYS", 7)) * 24 * time.Hour,
            Argon2Memory:  uint32(envInt("ARGON2_MEMORY_KIB", 64*1024)),
            Argon2Time:    uint32(envInt("ARGON2_TIME", 3)),
            Argon2Threads: uint8(envInt("ARGON2_THREADS", 4)),
        },
        Admin: AdminConfig{
            Email:    os.Getenv("ADMIN_EMAIL"),
            Password: os.Getenv("ADMIN_PASSWORD"),
        },
        RabbitMQURL: os.Getenv("RABBITMQ_URL"),
        EventsQueue: envStr("RABBITMQ_REVIEWS_QUEUE", "storefront.reviews"),
    }
    switch cfg.Store {
    case StoreMySQL:
        cfg.DB = DBConfig{
            User: must("DB_USER"),
            Pass: os.Getenv("DB_PASS"), // empty allowed
            Host: must("DB_HOST"),
            Port: must("DB_PORT"),
            Name: must("DB_NAME"),
        }
    case StoreMemory:
    default:
        log.Fatalf("invalid APP_STORE: %q (want %s or %s)", cfg.Store, StoreMySQL, StoreMemory)
    }
    if cfg.Admin.Email != "" && cfg.Admin.Password == "" {
        log.Fatalf("ADMIN_PASSWORD is required when ADMIN_EMAIL is set")
    }
    return cfg
}

// IsProd reports whether the service runs in production mode.
func (c Config) IsProd() bool { return c.Env == "prod" || c.Env == "production" }

// must retrieves the value of a required environment variable.  If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
    v, ok := os.LookupEnv(key)
    if !ok || v == "" {
        log.Fatalf("missing required env var: %s", key)
    }
    return v
}
