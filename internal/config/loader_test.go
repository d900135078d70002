package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// TestLoadConfigDefaults verifies that LoadConfig succeeds with an empty
// environment and applies every documented default.
func TestLoadConfigDefaults(t *testing.T) {
	chdir(t, t.TempDir()) // no stray .env

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}

	if cfg.Environment != "local" {
		t.Errorf("Environment = %q, want %q", cfg.Environment, "local")
	}
	if cfg.API.BaseURL != "http://localhost:7105/api" {
		t.Errorf("API.BaseURL = %q, want default", cfg.API.BaseURL)
	}
	if cfg.API.Timeout != 10*time.Second {
		t.Errorf("API.Timeout = %v, want 10s", cfg.API.Timeout)
	}
	if cfg.API.Retries != 2 {
		t.Errorf("API.Retries = %d, want 2", cfg.API.Retries)
	}
	if cfg.Cache.CurrentTTL != 15*time.Minute {
		t.Errorf("Cache.CurrentTTL = %v, want 15m", cfg.Cache.CurrentTTL)
	}
	if cfg.Cache.ForecastTTL != time.Hour {
		t.Errorf("Cache.ForecastTTL = %v, want 1h", cfg.Cache.ForecastTTL)
	}
	if cfg.Cache.PurgeInterval != 10*time.Minute {
		t.Errorf("Cache.PurgeInterval = %v, want 10m", cfg.Cache.PurgeInterval)
	}
	if cfg.Store.MaxSavedCities != 6 {
		t.Errorf("Store.MaxSavedCities = %d, want 6", cfg.Store.MaxSavedCities)
	}
	if cfg.Store.ForecastDays != 7 || cfg.Store.HourlyHours != 24 {
		t.Errorf("Store days/hours = %d/%d, want 7/24", cfg.Store.ForecastDays, cfg.Store.HourlyHours)
	}
	if cfg.Geolocation.Timeout != 10*time.Second || cfg.Geolocation.MaxAge != 5*time.Minute {
		t.Errorf("Geolocation timeout/max age = %v/%v, want 10s/5m", cfg.Geolocation.Timeout, cfg.Geolocation.MaxAge)
	}
	if cfg.Geolocation.HomeLat != nil {
		t.Errorf("Geolocation.HomeLat = %v, want nil", *cfg.Geolocation.HomeLat)
	}
	if cfg.Server.Addr() != "127.0.0.1:8787" {
		t.Errorf("Server.Addr() = %q, want 127.0.0.1:8787", cfg.Server.Addr())
	}
	if cfg.Server.RequestTimeout != 30*time.Second {
		t.Errorf("Server.RequestTimeout = %v, want 30s", cfg.Server.RequestTimeout)
	}
	if len(cfg.Server.AllowedOrigins) != 1 || cfg.Server.AllowedOrigins[0] != "*" {
		t.Errorf("Server.AllowedOrigins = %v, want [*]", cfg.Server.AllowedOrigins)
	}
	if cfg.Build.Version != "dev" {
		t.Errorf("Build.Version = %q, want %q", cfg.Build.Version, "dev")
	}
}

// TestLoadConfigOverrides verifies environment values win over defaults.
func TestLoadConfigOverrides(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("API_BASE_URL", "https://weather.example.com/api")
	t.Setenv("API_RETRIES", "0")
	t.Setenv("MAX_SAVED_CITIES", "4")
	t.Setenv("BUCKET_TIMEZONE", "location")
	t.Setenv("HOME_LAT", "40.4168")
	t.Setenv("HOME_LON", "-3.7038")
	t.Setenv("AUTO_REFRESH_INTERVAL", "10m")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}

	if cfg.API.BaseURL != "https://weather.example.com/api" {
		t.Errorf("API.BaseURL = %q", cfg.API.BaseURL)
	}
	if cfg.API.Retries != 0 {
		t.Errorf("API.Retries = %d, want 0", cfg.API.Retries)
	}
	if cfg.Store.MaxSavedCities != 4 {
		t.Errorf("Store.MaxSavedCities = %d, want 4", cfg.Store.MaxSavedCities)
	}
	if cfg.Store.BucketTimezone != "location" {
		t.Errorf("Store.BucketTimezone = %q, want location", cfg.Store.BucketTimezone)
	}
	if cfg.Geolocation.HomeLat == nil || *cfg.Geolocation.HomeLat != 40.4168 {
		t.Errorf("Geolocation.HomeLat not parsed")
	}
	if cfg.Store.AutoRefreshInterval != 10*time.Minute {
		t.Errorf("Store.AutoRefreshInterval = %v, want 10m", cfg.Store.AutoRefreshInterval)
	}
}

// TestLoadConfigDotenv verifies values are read from a dotenv file and that
// real environment variables take precedence over it.
func TestLoadConfigDotenv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.env")
	content := "API_USER_AGENT=FromDotenv/2.0\nLOG_LEVEL=warn\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write dotenv: %v", err)
	}
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("API_USER_AGENT", "") // restored on cleanup
	os.Unsetenv("API_USER_AGENT")

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}

	if cfg.API.UserAgent != "FromDotenv/2.0" {
		t.Errorf("API.UserAgent = %q, want value from dotenv", cfg.API.UserAgent)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, environment should win over dotenv", cfg.LogLevel)
	}
}

// TestLoadConfigValidationFailure verifies that out-of-range values are
// rejected with a typed ConfigError.
func TestLoadConfigValidationFailure(t *testing.T) {
	tests := []struct {
		name     string
		key      string
		value    string
		wantType ConfigErrorType
	}{
		{"too many saved cities", "MAX_SAVED_CITIES", "10", ErrValidation},
		{"too few saved cities", "MAX_SAVED_CITIES", "2", ErrValidation},
		{"invalid base url", "API_BASE_URL", "not a url", ErrValidation},
		{"invalid log level", "LOG_LEVEL", "verbose", ErrValidation},
		{"invalid bucket zone", "BUCKET_TIMEZONE", "mars", ErrValidation},
		{"latitude out of range", "HOME_LAT", "95", ErrValidation},
		{"unparseable duration", "API_TIMEOUT", "soon", ErrParsing},
		{"unparseable integer", "API_RETRIES", "two", ErrParsing},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chdir(t, t.TempDir())
			t.Setenv(tt.key, tt.value)
			if tt.key == "HOME_LAT" {
				t.Setenv("HOME_LON", "0")
			}

			_, err := LoadConfig()
			if err == nil {
				t.Fatal("expected error, got nil")
			}

			var cfgErr *ConfigError
			if !errors.As(err, &cfgErr) {
				t.Fatalf("expected *ConfigError, got %T: %v", err, err)
			}
			if cfgErr.Type != tt.wantType {
				t.Errorf("expected %q, got %q", tt.wantType, cfgErr.Type)
			}
		})
	}
}

// TestLoadConfigHomeRequiresBothCoordinates verifies the cross-field rule.
func TestLoadConfigHomeRequiresBothCoordinates(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("HOME_LAT", "51.5")

	_, err := LoadConfig()
	var cfgErr *ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected *ConfigError, got %T: %v", err, err)
	}
	if cfgErr.Type != ErrMissingEnv {
		t.Errorf("expected %q, got %q", ErrMissingEnv, cfgErr.Type)
	}
}

func TestConfigErrorFormatting(t *testing.T) {
	inner := errors.New("boom")
	err := &ConfigError{Type: ErrParsing, Message: "bad value", Err: inner}

	if got := err.Error(); got != "[PARSING_FAILED] bad value: boom" {
		t.Errorf("Error() = %q", got)
	}
	if !errors.Is(err, inner) {
		t.Error("expected errors.Is to find the wrapped error")
	}
}

func TestBuildInfoUserAgent(t *testing.T) {
	b := BuildInfo{Version: "1.2.3"}
	if got := b.UserAgent("SkySense/1.0"); got != "SkySense/1.0 (1.2.3)" {
		t.Errorf("UserAgent() = %q", got)
	}
	if got := (BuildInfo{}).UserAgent("SkySense/1.0"); got != "SkySense/1.0" {
		t.Errorf("UserAgent() = %q", got)
	}
}

// chdir changes the working directory for the duration of the test,
// restoring it on cleanup (equivalent to testing.T.Chdir from Go 1.24).
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	if err != nil {
		t.Fatalf("Getwd: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("Chdir(%q): %v", dir, err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(prev); err != nil {
			t.Fatalf("restoring working directory: %v", err)
		}
	})
}
