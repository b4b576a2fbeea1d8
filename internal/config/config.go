package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// OpenWeatherMap upstream configuration.
	OpenWeatherAPIKey     string
	OpenWeatherBaseURL    string
	OpenWeatherTimeout    time.Duration
	OpenWeatherMaxRetries int
	OpenWeatherRateLimit  float64
	OpenWeatherRateBurst  int

	GeocodeLimit     int
	GeocodeCacheSize int

	// Risk report publishing.
	KafkaEnabled     bool
	KafkaBrokers     []string
	KafkaReportTopic string
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	timeout, err := time.ParseDuration(sharedcfg.EnvOrDefault("OPENWEATHER_TIMEOUT", "5s"))
	if err != nil || timeout <= 0 {
		return nil, errors.New("invalid OPENWEATHER_TIMEOUT")
	}

	maxRetries, err := parseIntInRange("OPENWEATHER_MAX_RETRIES", 2, 0, 10)
	if err != nil {
		return nil, err
	}

	rateLimit, err := strconv.ParseFloat(sharedcfg.EnvOrDefault("OPENWEATHER_RATE_LIMIT", "1"), 64)
	if err != nil || rateLimit <= 0 {
		return nil, errors.New("invalid OPENWEATHER_RATE_LIMIT: must be a positive number")
	}

	rateBurst, err := parseIntInRange("OPENWEATHER_RATE_BURST", 5, 1, 1000)
	if err != nil {
		return nil, err
	}

	geocodeLimit, err := parseIntInRange("GEOCODE_LIMIT", 1, 1, 5)
	if err != nil {
		return nil, err
	}

	kafkaEnabled := os.Getenv("KAFKA_ENABLED") == "true"

	cfg := &Config{
		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		OpenWeatherAPIKey:     os.Getenv("OPENWEATHER_API_KEY"),
		OpenWeatherBaseURL:    sharedcfg.EnvOrDefault("OPENWEATHER_BASE_URL", "https://api.openweathermap.org"),
		OpenWeatherTimeout:    timeout,
		OpenWeatherMaxRetries: maxRetries,
		OpenWeatherRateLimit:  rateLimit,
		OpenWeatherRateBurst:  rateBurst,

		GeocodeLimit:     geocodeLimit,
		GeocodeCacheSize: parseGeocodeCacheSize(),

		KafkaEnabled:     kafkaEnabled,
		KafkaBrokers:     sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaReportTopic: sharedcfg.EnvOrDefault("KAFKA_REPORT_TOPIC", "flood-risk-reports"),
	}

	if cfg.OpenWeatherAPIKey == "" {
		return nil, errors.New("OPENWEATHER_API_KEY is required")
	}
	if cfg.KafkaEnabled && len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_ENABLED is true but KAFKA_BROKERS is empty")
	}
	if cfg.KafkaEnabled && cfg.KafkaReportTopic == "" {
		return nil, errors.New("KAFKA_ENABLED is true but KAFKA_REPORT_TOPIC is empty")
	}

	return cfg, nil
}

func parseIntInRange(key string, def, minVal, maxVal int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < minVal || n > maxVal {
		return 0, fmt.Errorf("invalid %s: must be an integer in [%d,%d]", key, minVal, maxVal)
	}
	return n, nil
}

// parseGeocodeCacheSize falls back to the default on garbage; 0 disables the cache.
func parseGeocodeCacheSize() int {
	if s := os.Getenv("GEOCODE_CACHE_SIZE"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n >= 0 {
			return n
		}
	}
	return 1000
}
