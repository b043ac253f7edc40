package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.BaseURL != "http://localhost:8000" {
		t.Errorf("unexpected base url %q", cfg.BaseURL)
	}
	if cfg.Timeout != 60*time.Second || cfg.Debounce != 300*time.Millisecond {
		t.Errorf("unexpected timing %v / %v", cfg.Timeout, cfg.Debounce)
	}
	if cfg.CacheBackend != CacheMemory || cfg.CacheCapacity != 256 {
		t.Errorf("unexpected cache settings %+v", cfg)
	}
	if cfg.RecommendWindowHours != 12 || cfg.RefreshInterval != 0 {
		t.Errorf("unexpected query settings %+v", cfg)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("ROUTE_API_BASE_URL", "https://routes.example.com/")
	t.Setenv("ROUTE_API_TIMEOUT_MS", "1500")
	t.Setenv("SUGGEST_DEBOUNCE_MS", "150")
	t.Setenv("CACHE_BACKEND", "Valkey")
	t.Setenv("REFRESH_INTERVAL", "15m")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.BaseURL != "https://routes.example.com" {
		t.Errorf("expected trailing slash trimmed, got %q", cfg.BaseURL)
	}
	if cfg.Timeout != 1500*time.Millisecond || cfg.Debounce != 150*time.Millisecond {
		t.Errorf("unexpected timing %v / %v", cfg.Timeout, cfg.Debounce)
	}
	if cfg.CacheBackend != CacheValkey || cfg.RefreshInterval != 15*time.Minute {
		t.Errorf("unexpected overrides %+v", cfg)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	cases := map[string]string{
		"ROUTE_API_BASE_URL":     "localhost:8000",
		"ROUTE_API_TIMEOUT_MS":   "0",
		"SUGGEST_DEBOUNCE_MS":    "-5",
		"CACHE_BACKEND":          "redis-cluster",
		"CACHE_CAPACITY":         "ten",
		"RECOMMEND_WINDOW_HOURS": "-1",
		"REFRESH_INTERVAL":       "soon",
	}
	for key, value := range cases {
		t.Run(key, func(t *testing.T) {
			t.Chdir(t.TempDir())
			t.Setenv(key, value)
			if _, err := Load(); err == nil {
				t.Fatalf("expected error for %s=%s", key, value)
			}
		})
	}
}
