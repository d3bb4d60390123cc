package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"auroracast/internal/weather/providers"
)

// AppConfig carries all runtime configuration, read once at startup.
type AppConfig struct {
	Port        string
	HTTPTimeout time.Duration

	// Space weather cache: freshness window matching the upstream update
	// cadence, and the bounded timeout for one refresh attempt.
	SpaceWeatherTTL            time.Duration
	SpaceWeatherRefreshTimeout time.Duration

	// WeatherKit credentials; the provider is only registered when complete.
	WeatherKit providers.WeatherKitCredentials

	// Paths to the trained classifier artifacts.
	GBModelPath  string
	XGBModelPath string

	// Prediction history retention.
	HistoryMaxEntries int
	HistoryMaxAge     time.Duration
}

// Load reads configuration from environment with sensible defaults.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		log.Printf("INFO: No .env file found or error loading it: %v", err)
	}

	cfg := &AppConfig{
		Port:         getenvDefault("PORT", "8080"),
		GBModelPath:  getenvDefault("GB_MODEL_PATH", "models/gb.json"),
		XGBModelPath: getenvDefault("XGB_MODEL_PATH", "models/xgb.json"),
		WeatherKit: providers.WeatherKitCredentials{
			KeyID:      os.Getenv("WEATHERKIT_KEY_ID"),
			TeamID:     os.Getenv("WEATHERKIT_TEAM_ID"),
			ServiceID:  os.Getenv("WEATHERKIT_SERVICE_ID"),
			PrivateKey: os.Getenv("WEATHERKIT_PRIVATE_KEY"),
		},
	}

	var err error
	if cfg.HTTPTimeout, err = getenvDuration("HTTP_TIMEOUT", "10s"); err != nil {
		return nil, err
	}
	// NOAA SWPC updates planetary Kp on a minutes cadence; 2m matches it.
	if cfg.SpaceWeatherTTL, err = getenvDuration("SPACE_WEATHER_TTL", "2m"); err != nil {
		return nil, err
	}
	if cfg.SpaceWeatherRefreshTimeout, err = getenvDuration("SPACE_WEATHER_REFRESH_TIMEOUT", "10s"); err != nil {
		return nil, err
	}
	if cfg.HistoryMaxAge, err = getenvDuration("HISTORY_MAX_AGE", "24h"); err != nil {
		return nil, err
	}
	cfg.HistoryMaxEntries = getenvInt("HISTORY_MAX_ENTRIES", 500)

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
