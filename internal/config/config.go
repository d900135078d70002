// Package config defines the configuration structure for the SkySense client.
// Configuration is loaded once at process start and is immutable thereafter.
//
// Values are resolved via a priority chain:
//
//	OS Environment (Highest) -> Dotenv File -> struct tag defaults (Lowest)
//
// Any invalid value causes startup to fail immediately (fail fast).
package config

import (
	"time"
)

// Config is the top-level configuration struct. Sub-components receive only
// the config subsets they require.
type Config struct {
	// System Metadata
	Environment string `envconfig:"APP_ENV" default:"local" validate:"required,oneof=local dev prod"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info" validate:"oneof=debug info warn error"`

	// Domain Configurations
	API         APIConfig
	Cache       CacheConfig
	Store       StoreConfig
	Geolocation GeolocationConfig
	Server      ServerConfig

	// Build Metadata (Injected via ldflags, not Env)
	Build BuildInfo
}

// APIConfig holds the weather backend connection and resilience settings.
type APIConfig struct {
	BaseURL   string        `envconfig:"API_BASE_URL" default:"http://localhost:7105/api" validate:"required,url"`
	Timeout   time.Duration `envconfig:"API_TIMEOUT" default:"10s" validate:"gt=0"`
	Retries   int           `envconfig:"API_RETRIES" default:"2" validate:"gte=0,lte=10"`
	MinWait   time.Duration `envconfig:"API_BACKOFF_MIN" default:"500ms" validate:"gt=0"`
	MaxWait   time.Duration `envconfig:"API_BACKOFF_MAX" default:"10s" validate:"gtefield=MinWait"`
	RateLimit float64       `envconfig:"API_RATE_LIMIT" default:"5" validate:"gte=0"` // requests per second, 0 disables
	RateBurst int           `envconfig:"API_RATE_BURST" default:"5" validate:"gte=1"`
	UserAgent string        `envconfig:"API_USER_AGENT" default:"SkySense/1.0"`
}

// CacheConfig holds response cache settings.
type CacheConfig struct {
	Enabled     bool          `envconfig:"CACHE_ENABLED" default:"true"`
	CurrentTTL  time.Duration `envconfig:"CACHE_TTL" default:"15m" validate:"gte=0"`
	ForecastTTL time.Duration `envconfig:"CACHE_FORECAST_TTL" default:"1h" validate:"gte=0"`
	AlertsTTL   time.Duration `envconfig:"CACHE_ALERTS_TTL" default:"15m" validate:"gte=0"`

	// PurgeInterval sweeps expired entries; zero disables the sweep.
	PurgeInterval time.Duration `envconfig:"CACHE_PURGE_INTERVAL" default:"10m" validate:"gte=0"`
}

// StoreConfig holds state-container and aggregation settings.
type StoreConfig struct {
	MaxSavedCities int    `envconfig:"MAX_SAVED_CITIES" default:"6" validate:"gte=4,lte=6"`
	ForecastDays   int    `envconfig:"FORECAST_DAYS" default:"7" validate:"gte=1,lte=16"`
	HourlyHours    int    `envconfig:"HOURLY_FORECAST_HOURS" default:"24" validate:"gte=1,lte=120"`
	BucketTimezone string `envconfig:"BUCKET_TIMEZONE" default:"local" validate:"oneof=local location"`
	// StatePath is the SQLite file for preferences; empty keeps them in memory.
	StatePath           string        `envconfig:"STATE_PATH" default:"skysense.db"`
	AutoRefreshInterval time.Duration `envconfig:"AUTO_REFRESH_INTERVAL" default:"0s" validate:"gte=0"`
}

// GeolocationConfig holds position acquisition settings.
type GeolocationConfig struct {
	Enabled bool          `envconfig:"GEOLOCATION_ENABLED" default:"true"`
	Timeout time.Duration `envconfig:"GEOLOCATION_TIMEOUT" default:"10s" validate:"gt=0"`
	MaxAge  time.Duration `envconfig:"GEOLOCATION_MAX_AGE" default:"5m" validate:"gte=0"`
	// HomeLat/HomeLon feed the static provider; both must be set together.
	HomeLat *float64 `envconfig:"HOME_LAT" validate:"omitempty,gte=-90,lte=90"`
	HomeLon *float64 `envconfig:"HOME_LON" validate:"omitempty,gte=-180,lte=180"`
}

// ServerConfig holds the local bridge listener settings.
type ServerConfig struct {
	Host           string        `envconfig:"BRIDGE_HOST" default:"127.0.0.1" validate:"required,ip"`
	Port           string        `envconfig:"BRIDGE_PORT" default:"8787" validate:"required,numeric"`
	RequestTimeout time.Duration `envconfig:"BRIDGE_REQUEST_TIMEOUT" default:"30s" validate:"gt=0"`
	RateLimit      float64       `envconfig:"BRIDGE_RATE_LIMIT" default:"20" validate:"gte=0"` // requests per second, 0 disables
	RateBurst      int           `envconfig:"BRIDGE_RATE_BURST" default:"40" validate:"gte=1"`
	AllowedOrigins []string      `envconfig:"BRIDGE_ALLOWED_ORIGINS" default:"*"`
}

// Addr returns the listen address.
func (s ServerConfig) Addr() string {
	return s.Host + ":" + s.Port
}

// BuildInfo holds build metadata injected via ldflags.
type BuildInfo struct {
	Version   string
	Commit    string
	BuildTime string
}

// ConfigErrorType categorizes configuration loading failures to aid debugging.
type ConfigErrorType string

const (
	// ErrMissingEnv indicates a required environment variable was not found.
	ErrMissingEnv ConfigErrorType = "MISSING_ENV"
	// ErrValidation indicates the configuration failed struct validation rules.
	ErrValidation ConfigErrorType = "VALIDATION_FAILED"
	// ErrParsing indicates a failure when parsing environment variable values
	// into their target types.
	ErrParsing ConfigErrorType = "PARSING_FAILED"
)
