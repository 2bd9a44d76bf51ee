// Package config loads runtime settings from the environment, after an
// optional .env file.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

var ErrInvalid = errors.New("config: invalid value")

// Config holds application configuration.
type Config struct {
	Port           string
	TickInterval   time.Duration
	InitialCapital decimal.Decimal
	PriceSeed      uint64
	BuyXP          int64
	SellXP         int64
	DatabaseURL    string
	RedisURL       string
	CacheTTL       time.Duration
	LogLevel       slog.Level
}

// Load reads configuration from environment variables. A missing .env file is
// not an error; a malformed value is.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Port:        getEnv("PORT", "8080"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		RedisURL:    os.Getenv("REDIS_URL"),
	}

	var err error
	if cfg.TickInterval, err = getDuration("TICK_INTERVAL", 5*time.Second); err != nil {
		return nil, err
	}
	if cfg.CacheTTL, err = getDuration("CACHE_TTL", 30*time.Second); err != nil {
		return nil, err
	}
	if cfg.InitialCapital, err = getDecimal("INITIAL_CAPITAL", decimal.NewFromInt(10000)); err != nil {
		return nil, err
	}
	if cfg.PriceSeed, err = getUint("PRICE_SEED", uint64(time.Now().UnixNano())); err != nil {
		return nil, err
	}
	if cfg.BuyXP, err = getInt("BUY_XP", 10); err != nil {
		return nil, err
	}
	if cfg.SellXP, err = getInt("SELL_XP", 15); err != nil {
		return nil, err
	}
	if cfg.LogLevel, err = getLevel("LOG_LEVEL", slog.LevelInfo); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	if !c.InitialCapital.IsPositive() {
		return fmt.Errorf("%w: INITIAL_CAPITAL must be positive, got %s", ErrInvalid, c.InitialCapital)
	}
	if c.TickInterval < time.Second {
		return fmt.Errorf("%w: TICK_INTERVAL must be at least 1s, got %s", ErrInvalid, c.TickInterval)
	}
	if c.BuyXP <= 0 || c.SellXP <= 0 {
		return fmt.Errorf("%w: BUY_XP and SELL_XP must be positive", ErrInvalid)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%w: %s=%q: %v", ErrInvalid, key, value, err)
	}
	return d, nil
}

func getDecimal(key string, defaultValue decimal.Decimal) (decimal.Decimal, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	d, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %s=%q: %v", ErrInvalid, key, value, err)
	}
	return d, nil
}

func getInt(key string, defaultValue int64) (int64, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s=%q: %v", ErrInvalid, key, value, err)
	}
	return n, nil
}

func getUint(key string, defaultValue uint64) (uint64, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.ParseUint(value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s=%q: %v", ErrInvalid, key, value, err)
	}
	return n, nil
}

func getLevel(key string, defaultValue slog.Level) (slog.Level, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.ToUpper(value))); err != nil {
		return 0, fmt.Errorf("%w: %s=%q: %v", ErrInvalid, key, value, err)
	}
	return lvl, nil
}
