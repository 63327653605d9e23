// Package config читает настройки процессов из окружения.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	defaultPort           = "8080"
	defaultAPIURL         = "http://localhost:8081"
	defaultRequestTimeout = 10 * time.Second
	defaultUserCacheSize  = 128
)

// Config - настройки сервера сессий.
type Config struct {
	Addr           string
	APIURL         string
	RequestTimeout time.Duration
	UserCacheSize  int
	LogLevel       slog.Level
	DatabaseURL    string
}

// Load читает конфигурацию; невалидные значения - ошибка.
func Load() (Config, error) {
	cfg := Config{
		Addr:        getEnv("POSTS_ADDR", ":"+getEnv("PORT", defaultPort)),
		APIURL:      getEnv("POSTS_API_URL", defaultAPIURL),
		DatabaseURL: os.Getenv("DATABASE_URL"),
	}

	timeout, err := time.ParseDuration(getEnv("POSTS_REQUEST_TIMEOUT", defaultRequestTimeout.String()))
	if err != nil {
		return Config{}, fmt.Errorf("invalid POSTS_REQUEST_TIMEOUT: %w", err)
	}
	if timeout <= 0 {
		return Config{}, fmt.Errorf("invalid POSTS_REQUEST_TIMEOUT: must be positive, got %s", timeout)
	}
	cfg.RequestTimeout = timeout

	size, err := strconv.Atoi(getEnv("POSTS_USER_CACHE_SIZE", strconv.Itoa(defaultUserCacheSize)))
	if err != nil || size <= 0 {
		return Config{}, fmt.Errorf("invalid POSTS_USER_CACHE_SIZE: must be a positive integer")
	}
	cfg.UserCacheSize = size

	if err := cfg.LogLevel.UnmarshalText([]byte(strings.ToUpper(getEnv("POSTS_LOG_LEVEL", "info")))); err != nil {
		return Config{}, fmt.Errorf("invalid POSTS_LOG_LEVEL: %w", err)
	}
	return cfg, nil
}

// NewLogger создает текстовый slog-логгер с уровнем из конфигурации.
func (c Config) NewLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: c.LogLevel}))
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}
