package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Cache backends.
const (
	CacheMemory = "memory"
	CacheValkey = "valkey"
)

type AppConfig struct {
	// BaseURL is the remote route service endpoint.
	BaseURL string
	// Timeout bounds each remote call.
	Timeout time.Duration
	// Debounce is the quiet interval before a location search fires.
	Debounce time.Duration

	CacheBackend  string
	CacheCapacity int
	ValkeyAddr    string
	CacheTTL      time.Duration

	// RecommendWindowHours is the default departure search window.
	RecommendWindowHours int
	// RefreshInterval re-runs fulfilled operations periodically (0 = off).
	RefreshInterval time.Duration

	Port      string
	LogLevel  string
	LogFormat string
}

// Load reads configuration from environment with sensible defaults.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file loaded", "error", err)
	}
	cfg := &AppConfig{}

	cfg.BaseURL = strings.TrimRight(getenvDefault("ROUTE_API_BASE_URL", "http://localhost:8000"), "/")
	u, err := url.Parse(cfg.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid ROUTE_API_BASE_URL %q", cfg.BaseURL)
	}

	timeoutMs, err := getenvInt("ROUTE_API_TIMEOUT_MS", 60000)
	if err != nil {
		return nil, fmt.Errorf("invalid ROUTE_API_TIMEOUT_MS: %w", err)
	}
	if timeoutMs <= 0 {
		return nil, fmt.Errorf("invalid ROUTE_API_TIMEOUT_MS: must be positive, got %d", timeoutMs)
	}
	cfg.Timeout = time.Duration(timeoutMs) * time.Millisecond

	debounceMs, err := getenvInt("SUGGEST_DEBOUNCE_MS", 300)
	if err != nil {
		return nil, fmt.Errorf("invalid SUGGEST_DEBOUNCE_MS: %w", err)
	}
	if debounceMs <= 0 {
		return nil, fmt.Errorf("invalid SUGGEST_DEBOUNCE_MS: must be positive, got %d", debounceMs)
	}
	cfg.Debounce = time.Duration(debounceMs) * time.Millisecond

	cfg.CacheBackend = strings.ToLower(getenvDefault("CACHE_BACKEND", CacheMemory))
	if cfg.CacheBackend != CacheMemory && cfg.CacheBackend != CacheValkey {
		return nil, fmt.Errorf("invalid CACHE_BACKEND %q: use %s or %s", cfg.CacheBackend, CacheMemory, CacheValkey)
	}
	cfg.CacheCapacity, err = getenvInt("CACHE_CAPACITY", 256)
	if err != nil {
		return nil, fmt.Errorf("invalid CACHE_CAPACITY: %w", err)
	}
	if cfg.CacheCapacity <= 0 {
		return nil, fmt.Errorf("invalid CACHE_CAPACITY: must be positive, got %d", cfg.CacheCapacity)
	}
	cfg.ValkeyAddr = getenvDefault("VALKEY_ADDR", "localhost:6379")

	ttl, err := time.ParseDuration(getenvDefault("CACHE_TTL", "24h"))
	if err != nil {
		return nil, fmt.Errorf("invalid CACHE_TTL: %w", err)
	}
	cfg.CacheTTL = ttl

	cfg.RecommendWindowHours, err = getenvInt("RECOMMEND_WINDOW_HOURS", 12)
	if err != nil {
		return nil, fmt.Errorf("invalid RECOMMEND_WINDOW_HOURS: %w", err)
	}
	if cfg.RecommendWindowHours <= 0 {
		return nil, fmt.Errorf("invalid RECOMMEND_WINDOW_HOURS: must be positive, got %d", cfg.RecommendWindowHours)
	}

	refresh, err := time.ParseDuration(getenvDefault("REFRESH_INTERVAL", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REFRESH_INTERVAL: %w", err)
	}
	cfg.RefreshInterval = refresh

	cfg.Port = getenvDefault("PORT", "8080")
	cfg.LogLevel = getenvDefault("LOG_LEVEL", "info")
	cfg.LogFormat = getenvDefault("LOG_FORMAT", "json")

	return cfg, nil
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	return strconv.Atoi(v)
}
