package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/i474232898/current-weather/internal/common"
	"github.com/i474232898/current-weather/internal/weather"
)

type AppConfig struct {
	OpenWeatherAPIKey  string
	OpenWeatherBaseURL string

	// HTTPTimeout of 0 leaves the transport defaults in place.
	HTTPTimeout time.Duration

	// Ordering applied when fetches overlap.
	FetchOrdering weather.Ordering

	// Optional periodic refresh; disabled when RefreshCity is empty.
	RefreshCity     string
	RefreshInterval time.Duration

	// In-memory history retention.
	StoreMaxHistory int           // max number of records per city (0 = unlimited)
	StoreMaxAge     time.Duration // max age of records (0 = unlimited)

	BreakerMaxFailures int
	BreakerTimeout     time.Duration

	Port string
}

// Load reads configuration from environment with sensible defaults.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		log.Printf("INFO: No .env file found or error loading it: %v", err)
	}
	cfg := &AppConfig{}

	cfg.OpenWeatherAPIKey = os.Getenv("OPENWEATHER_API_KEY")
	if cfg.OpenWeatherAPIKey == "" {
		return nil, fmt.Errorf("OPENWEATHER_API_KEY is required")
	}
	cfg.OpenWeatherBaseURL = getenvDefault("OPENWEATHER_BASE_URL", "https://api.openweathermap.org")

	var err error
	if cfg.HTTPTimeout, err = getenvDuration("HTTP_TIMEOUT", "0s"); err != nil {
		return nil, err
	}

	ordering, err := weather.ParseOrdering(getenvDefault("FETCH_ORDERING", "latest"))
	if err != nil {
		return nil, fmt.Errorf("invalid FETCH_ORDERING: %w", err)
	}
	cfg.FetchOrdering = ordering

	cfg.RefreshCity = common.NormalizeCity(os.Getenv("REFRESH_CITY"))
	if cfg.RefreshInterval, err = getenvDuration("REFRESH_INTERVAL", "15m"); err != nil {
		return nil, err
	}

	cfg.StoreMaxHistory = getenvInt("STORE_MAX_HISTORY", 20)
	if cfg.StoreMaxAge, err = getenvDuration("STORE_MAX_AGE", "24h"); err != nil {
		return nil, err
	}

	cfg.BreakerMaxFailures = getenvInt("BREAKER_MAX_FAILURES", 5)
	if cfg.BreakerMaxFailures < 1 {
		return nil, fmt.Errorf("invalid BREAKER_MAX_FAILURES: must be at least 1, got %d", cfg.BreakerMaxFailures)
	}
	if cfg.BreakerTimeout, err = getenvDuration("BREAKER_TIMEOUT", "1m"); err != nil {
		return nil, err
	}

	cfg.Port = getenvDefault("PORT", "8080")

	return cfg, nil
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err == nil {
			return n
		}
	}
	return def
}

func getenvDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(getenvDefault(key, def))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
