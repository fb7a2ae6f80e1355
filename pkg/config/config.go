package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Application settings
type Config struct {
	Server      ServerConfig
	Logging     LoggingConfig
	Aggregation AggregationConfig
	Cache       CacheConfig
	External    ExternalConfig
}

// Server settings
type ServerConfig struct {
	Port           string
	RequestTimeout time.Duration
}

// Aggregation pipeline caps and pacing
type AggregationConfig struct {
	PageSize       int
	MaxPages       int
	SampleLimit    int
	CityLimit      int
	RecentLimit    int
	PageDelay      time.Duration
	ExecutionDelay time.Duration
	GeoDelay       time.Duration
}

// Snapshot cache settings. An empty Dir selects the in-memory cache.
type CacheConfig struct {
	Dir             string
	TTL             time.Duration
	FreshnessWindow time.Duration
}

type ExternalConfig struct {
	AudiencyBaseURL  string
	AudiencyAPIKey   string
	GeonamesBaseURL  string
	GeonamesUsername string
	RequestTimeout   time.Duration
}

// Logging settings
type LoggingConfig struct {
	Level string
}

func Load() (*Config, error) {
	// optional .env for local development
	_ = godotenv.Load()

	config := &Config{
		Server: ServerConfig{
			Port:           getEnv("PORT", "8080"),
			RequestTimeout: getDurationEnv("REQUEST_TIMEOUT", "30s"),
		},
		Aggregation: AggregationConfig{
			PageSize:       getIntEnv("CAMPAIGN_PAGE_SIZE", 1000),
			MaxPages:       getIntEnv("CAMPAIGN_MAX_PAGES", 3),
			SampleLimit:    getIntEnv("EXECUTION_SAMPLE_LIMIT", 10),
			CityLimit:      getIntEnv("GEOCODE_CITY_LIMIT", 50),
			RecentLimit:    getIntEnv("RECENT_INSERTIONS_LIMIT", 50),
			PageDelay:      getDurationEnv("CAMPAIGN_PAGE_DELAY", "300ms"),
			ExecutionDelay: getDurationEnv("EXECUTION_DELAY", "500ms"),
			GeoDelay:       getDurationEnv("GEOCODE_DELAY", "200ms"),
		},
		Cache: CacheConfig{
			Dir:             getEnv("CACHE_DIR", ""),
			TTL:             getDurationEnv("CACHE_TTL", "24h"),
			FreshnessWindow: getDurationEnv("CACHE_FRESHNESS_WINDOW", "2m"),
		},
		External: ExternalConfig{
			AudiencyBaseURL:  getEnv("AUDIENCY_BASE_URL", "https://api.audiency.io/advertiser-rest"),
			AudiencyAPIKey:   getEnv("AUDIENCY_API_KEY", ""),
			GeonamesBaseURL:  getEnv("GEONAMES_BASE_URL", "http://api.geonames.org"),
			GeonamesUsername: getEnv("GEONAMES_USERNAME", ""),
			RequestTimeout:   getDurationEnv("UPSTREAM_TIMEOUT", "10s"),
		},
		Logging: LoggingConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
	}

	return config, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue string) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	duration, _ := time.ParseDuration(defaultValue)
	return duration
}
