// Package config loads application configuration from environment variables.
// Call Get for the process-wide singleton, or MustLoad in main to fail fast
// on invalid settings.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"sync"
	"time"
)

// ServerConfig holds the HTTP listener settings.
type ServerConfig struct {
	Port         string
	Env          string // "development" | "production"
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// DBConfig holds PostgreSQL connection settings.
type DBConfig struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// JWTConfig holds token verification settings.  Tokens are issued by the
// external auth service; this process only checks signatures.
type JWTConfig struct {
	AccessSecret string
}

// MarketConfig holds market-maker and trade-validation settings.
type MarketConfig struct {
	Liquidity     float64 // LMSR liquidity parameter b for new markets
	MinTradeCents int64   // smallest accepted stake
	MaxTradeRetry int     // attempts before a conflicting trade is surfaced
	RetryBackoff  time.Duration
	HistoryLimit  int // max snapshots returned per history request
	FeedPageLimit int // max markets per feed page
}

// Config is the root configuration object.
type Config struct {
	Server ServerConfig
	DB     DBConfig
	JWT    JWTConfig
	Market MarketConfig
}

// IsProd reports whether the process runs in the production environment.
func (c *Config) IsProd() bool { return c.Server.Env == "production" }

// Validate checks required values, returning every violation at once.
func (c *Config) Validate() error {
	var errs []error
	if c.JWT.AccessSecret == "" {
		errs = append(errs, errors.New("JWT_ACCESS_SECRET must be set"))
	}
	if c.IsProd() && c.DB.DSN == "" {
		errs = append(errs, errors.New("DATABASE_DSN must be set in production"))
	}
	if c.Market.Liquidity <= 0 {
		errs = append(errs, fmt.Errorf("MARKET_LIQUIDITY must be positive, got %v", c.Market.Liquidity))
	}
	if c.Market.MinTradeCents <= 0 {
		errs = append(errs, fmt.Errorf("MARKET_MIN_TRADE_CENTS must be positive, got %d", c.Market.MinTradeCents))
	}
	if c.Market.MaxTradeRetry < 1 {
		errs = append(errs, fmt.Errorf("MARKET_MAX_TRADE_RETRY must be at least 1, got %d", c.Market.MaxTradeRetry))
	}
	return errors.Join(errs...)
}

var (
	instance *Config
	once     sync.Once
)

// Get returns the singleton Config, reading the environment on first use.
func Get() *Config {
	once.Do(func() {
		instance = load()
	})
	return instance
}

// MustLoad returns the validated singleton.  Panics on invalid settings so a
// misconfigured deployment dies at boot instead of limping.
func MustLoad() *Config {
	cfg := Get()
	if err := cfg.Validate(); err != nil {
		panic(fmt.Sprintf("config: %v", err))
	}
	return cfg
}

func load() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         envStr("SERVER_PORT", "8080"),
			Env:          envStr("ENVIRONMENT", "development"),
			ReadTimeout:  envDur("SERVER_READ_TIMEOUT", 10*time.Second),
			WriteTimeout: envDur("SERVER_WRITE_TIMEOUT", 10*time.Second),
		},
		DB: DBConfig{
			DSN:             dsn(),
			MaxOpenConns:    envInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    envInt("DB_MAX_IDLE_CONNS", 10),
			ConnMaxLifetime: envDur("DB_CONN_MAX_LIFETIME", 5*time.Minute),
		},
		JWT: JWTConfig{
			AccessSecret: envStr("JWT_ACCESS_SECRET", ""),
		},
		Market: MarketConfig{
			Liquidity:     envFloat("MARKET_LIQUIDITY", 350),
			MinTradeCents: envInt64("MARKET_MIN_TRADE_CENTS", 100),
			MaxTradeRetry: envInt("MARKET_MAX_TRADE_RETRY", 3),
			RetryBackoff:  envDur("MARKET_RETRY_BACKOFF", 25*time.Millisecond),
			HistoryLimit:  envInt("MARKET_HISTORY_LIMIT", 500),
			FeedPageLimit: envInt("MARKET_FEED_PAGE_LIMIT", 50),
		},
	}
}

// dsn prefers the full DATABASE_DSN; otherwise it is assembled from the
// per-field DB_* variables for local development.
func dsn() string {
	if v := os.Getenv("DATABASE_DSN"); v != "" {
		return v
	}
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		envStr("DB_HOST", "localhost"),
		envStr("DB_PORT", "5432"),
		envStr("DB_USER", "postgres"),
		envStr("DB_PASSWORD", ""),
		envStr("DB_NAME", "betfeed"),
		envStr("DB_SSLMODE", "disable"),
	)
}

// Unset or unparseable variables fall back to the default; Validate catches
// the cases where a default is not acceptable.

func envStr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func envInt64(key string, def int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return def
}

func envFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func envDur(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
