package external

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"skysense/internal/cache"
	"skysense/internal/types"
)

// Endpoint identifies one of the backend's data endpoints.
type Endpoint string

const (
	EndpointCurrent  Endpoint = "weather"
	EndpointForecast Endpoint = "forecast"
	EndpointAlerts   Endpoint = "alerts"
)

// Locator selects a location either by city name or by coordinates.
type Locator struct {
	City   string
	Coords *types.Coordinates
}

// CityLocator returns a locator for a named city.
func CityLocator(name string) Locator {
	return Locator{City: name}
}

// CoordsLocator returns a locator for a coordinate pair.
func CoordsLocator(lat, lon float64) Locator {
	return Locator{Coords: &types.Coordinates{Lat: lat, Lon: lon}}
}

// IsCoords reports whether the locator is coordinate based.
func (l Locator) IsCoords() bool {
	return l.Coords != nil
}

// String renders the locator for logs.
func (l Locator) String() string {
	if l.Coords != nil {
		return fmt.Sprintf("%s,%s", formatCoord(l.Coords.Lat), formatCoord(l.Coords.Lon))
	}
	return l.City
}

// Normalize validates the locator and returns its canonical form: a sanitized
// city name or coordinates rounded to six decimals.
func (l Locator) Normalize() (Locator, error) {
	if l.Coords != nil {
		if err := types.ValidateCoordinates(l.Coords.Lat, l.Coords.Lon); err != nil {
			return Locator{}, err
		}
		return CoordsLocator(types.RoundCoordinate(l.Coords.Lat), types.RoundCoordinate(l.Coords.Lon)), nil
	}
	city, err := types.ValidateCityName(l.City)
	if err != nil {
		return Locator{}, err
	}
	return CityLocator(city), nil
}

// CacheKey derives the cache signature for a normalized locator:
// endpoint, lowercased city or rounded coordinates, and unit system.
func CacheKey(ep Endpoint, loc Locator, unit types.TemperatureUnit) string {
	if loc.Coords != nil {
		return fmt.Sprintf("%s|coords:%s,%s|%s", ep,
			formatCoord(loc.Coords.Lat), formatCoord(loc.Coords.Lon), unit)
	}
	return fmt.Sprintf("%s|city:%s|%s", ep, strings.ToLower(strings.TrimSpace(loc.City)), unit)
}

// flightKey extends a cache key with the per-call options, so only calls
// that would issue the same request share a round trip.
func flightKey(key string, o requestOptions) string {
	retries := "default"
	if o.overrides.MaxRetries != nil {
		retries = strconv.Itoa(*o.overrides.MaxRetries)
	}
	return fmt.Sprintf("%s|nocache=%t|timeout=%s|retries=%s", key, o.skipCache, o.overrides.Timeout, retries)
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// requestOptions holds per-call overrides.
type requestOptions struct {
	skipCache bool
	cacheTTL  time.Duration
	overrides CallOverrides
}

// RequestOption adjusts a single WeatherClient call.
type RequestOption func(*requestOptions)

// NoCache bypasses the response cache for reads and writes.
func NoCache() RequestOption {
	return func(o *requestOptions) { o.skipCache = true }
}

// WithCacheTTL overrides the endpoint's default cache TTL.
func WithCacheTTL(d time.Duration) RequestOption {
	return func(o *requestOptions) { o.cacheTTL = d }
}

// WithCallTimeout overrides the per-attempt timeout.
func WithCallTimeout(d time.Duration) RequestOption {
	return func(o *requestOptions) { o.overrides.Timeout = d }
}

// WithRetries overrides the retry count.
func WithRetries(n int) RequestOption {
	return func(o *requestOptions) { o.overrides.MaxRetries = &n }
}

// WeatherClientConfig holds endpoint-layer settings.
type WeatherClientConfig struct {
	BaseURL      string
	CacheEnabled bool
	CurrentTTL   time.Duration
	ForecastTTL  time.Duration
	AlertsTTL    time.Duration
}

// WeatherClient talks to the weather backend. Every call validates its input,
// consults the response cache, and only then performs network I/O through
// the BaseClient. Identical concurrent requests share one round trip.
type WeatherClient struct {
	base   *BaseClient
	cache  *cache.ResponseCache[[]byte]
	cfg    WeatherClientConfig
	group  singleflight.Group
	logger *slog.Logger
}

// NewWeatherClient builds a WeatherClient. A nil cache disables caching.
func NewWeatherClient(base *BaseClient, rc *cache.ResponseCache[[]byte], cfg WeatherClientConfig, logger *slog.Logger) *WeatherClient {
	if logger == nil {
		logger = slog.Default()
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &WeatherClient{
		base:   base,
		cache:  rc,
		cfg:    cfg,
		logger: logger,
	}
}

// Current fetches current conditions.
func (c *WeatherClient) Current(ctx context.Context, loc Locator, unit types.TemperatureUnit, opts ...RequestOption) (*types.CurrentConditions, error) {
	return fetch(ctx, c, EndpointCurrent, loc, unit, opts, CurrentConditionsFrom)
}

// Forecast fetches the raw forecast samples for a location.
func (c *WeatherClient) Forecast(ctx context.Context, loc Locator, unit types.TemperatureUnit, opts ...RequestOption) (*Forecast, error) {
	return fetch(ctx, c, EndpointForecast, loc, unit, opts, SamplesFrom)
}

// Alerts fetches active alerts for a location.
func (c *WeatherClient) Alerts(ctx context.Context, loc Locator, unit types.TemperatureUnit, opts ...RequestOption) ([]types.Alert, error) {
	return fetch(ctx, c, EndpointAlerts, loc, unit, opts, AlertsFrom)
}

// HealthStatus is the result of a backend health probe.
type HealthStatus struct {
	Healthy   bool   `json:"healthy"`
	Message   string `json:"message,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
}

// Health probes the backend's /health route once, without retries or caching.
func (c *WeatherClient) Health(ctx context.Context) (*HealthStatus, error) {
	noRetries := 0
	resp, err := c.base.Get(c.withRequestID(ctx), c.cfg.BaseURL+"/health", CallOverrides{MaxRetries: &noRetries})
	if err != nil {
		return nil, err
	}
	env, err := decodePayload[Envelope[map[string]any]](resp.Body)
	if err != nil {
		return nil, err
	}
	return &HealthStatus{Healthy: env.Success, Message: env.Message, Timestamp: env.Timestamp}, nil
}

// ClearCache drops every cached response.
func (c *WeatherClient) ClearCache() {
	if c.cache != nil {
		c.cache.Clear()
	}
}

// PurgeExpired drops expired cached responses and returns how many were
// removed.
func (c *WeatherClient) PurgeExpired() int {
	if c.cache == nil {
		return 0
	}
	return c.cache.PurgeExpired()
}

func (c *WeatherClient) ttlFor(ep Endpoint) time.Duration {
	switch ep {
	case EndpointForecast:
		return c.cfg.ForecastTTL
	case EndpointAlerts:
		return c.cfg.AlertsTTL
	default:
		return c.cfg.CurrentTTL
	}
}

func (c *WeatherClient) endpointURL(ep Endpoint, loc Locator, unit types.TemperatureUnit) string {
	q := url.Values{}
	q.Set("units", string(unit))
	if loc.Coords != nil {
		q.Set("lat", formatCoord(loc.Coords.Lat))
		q.Set("lon", formatCoord(loc.Coords.Lon))
		return fmt.Sprintf("%s/%s-coords?%s", c.cfg.BaseURL, ep, q.Encode())
	}
	return fmt.Sprintf("%s/%s/%s?%s", c.cfg.BaseURL, ep, url.PathEscape(loc.City), q.Encode())
}

func (c *WeatherClient) withRequestID(ctx context.Context) context.Context {
	if types.GetRequestID(ctx) != "" {
		return ctx
	}
	return types.WithRequestID(ctx, uuid.NewString())
}

// fetch runs the validate, cache, network pipeline for one endpoint. convert
// must succeed before anything is written to the cache, so cached bytes
// always decode.
func fetch[T any, R any](
	ctx context.Context,
	c *WeatherClient,
	ep Endpoint,
	loc Locator,
	unit types.TemperatureUnit,
	opts []RequestOption,
	convert func(*T) (R, error),
) (R, error) {
	var zero R

	loc, err := loc.Normalize()
	if err != nil {
		return zero, err
	}
	if !unit.Valid() {
		return zero, types.NewAppError(types.ErrCodeValidationInvalidUnit,
			fmt.Sprintf("unknown unit system %q", unit), nil)
	}

	o := requestOptions{cacheTTL: c.ttlFor(ep)}
	for _, opt := range opts {
		opt(&o)
	}
	useCache := c.cache != nil && c.cfg.CacheEnabled && !o.skipCache
	key := CacheKey(ep, loc, unit)

	if useCache {
		if data, ok := c.cache.Get(key); ok {
			payload, err := decodePayload[T](data)
			if err == nil {
				if out, err := convert(payload); err == nil {
					c.logger.DebugContext(ctx, "weather cache hit", "key", key)
					return out, nil
				}
			}
			c.cache.Delete(key)
		}
	}

	call := func() (any, error) {
		resp, err := c.base.Get(c.withRequestID(ctx), c.endpointURL(ep, loc, unit), o.overrides)
		if err != nil {
			return nil, err
		}
		data, err := unwrapEnvelope(resp.Body)
		if err != nil {
			return nil, err
		}
		payload, err := decodePayload[T](data)
		if err != nil {
			return nil, err
		}
		out, err := convert(payload)
		if err != nil {
			return nil, err
		}
		if useCache {
			c.cache.Set(key, []byte(data), o.cacheTTL)
		}
		c.logger.DebugContext(ctx, "weather backend call succeeded",
			"endpoint", string(ep),
			"locator", loc.String(),
			"attempts", resp.Attempts,
		)
		return out, nil
	}
	v, err, shared := c.group.Do(flightKey(key, o), call)
	if err != nil && shared && ctx.Err() == nil && errors.Is(err, context.Canceled) {
		// The caller that led the flight went away; this one has not.
		v, err = call()
	}
	if err != nil {
		c.logger.WarnContext(ctx, "weather backend call failed",
			"endpoint", string(ep),
			"locator", loc.String(),
			"error", err,
		)
		return zero, err
	}
	if shared {
		c.logger.DebugContext(ctx, "weather request collapsed", "key", key)
	}
	return v.(R), nil
}
