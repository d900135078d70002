package external

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"skysense/internal/cache"
	"skysense/internal/testutil"
	"skysense/internal/types"
)

type manualClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newWeatherClient(t *testing.T, backend *testutil.Backend, clock types.Clock) *WeatherClient {
	t.Helper()
	base := newTestClient(t, testPolicy())
	return NewWeatherClient(base, cache.New[[]byte](clock), WeatherClientConfig{
		BaseURL:      backend.URL,
		CacheEnabled: true,
		CurrentTTL:   15 * time.Minute,
		ForecastTTL:  time.Hour,
		AlertsTTL:    15 * time.Minute,
	}, nil)
}

func TestWeatherClient_CurrentNormalizes(t *testing.T) {
	backend := testutil.NewBackend(t)
	client := newWeatherClient(t, backend, nil)

	cc, err := client.Current(context.Background(), CityLocator("London"), types.UnitMetric)
	require.NoError(t, err)

	assert.Equal(t, "London", cc.Name)
	assert.Equal(t, "GB", cc.Country)
	assert.Equal(t, 15.0, cc.TemperatureC)
	assert.Equal(t, 14.0, cc.FeelsLikeC)
	assert.Equal(t, 72, cc.Humidity)
	assert.Equal(t, 12.5, cc.WindSpeedKmh)
	assert.Equal(t, "01d", cc.Condition.Code)
	assert.Equal(t, "Clear", cc.Condition.Label)
	assert.Equal(t, types.DefaultVisibilityMeters, cc.VisibilityM, "visibility defaults when absent")
	assert.Nil(t, cc.UVIndex)
	require.NotNil(t, cc.Coordinates)
	assert.InDelta(t, 51.5085, cc.Coordinates.Lat, 1e-9)
}

func TestWeatherClient_CoordinateRouteAndUnits(t *testing.T) {
	backend := testutil.NewBackend(t)
	var gotQuery string
	backend.OnCurrent(func(loc string, r *http.Request) testutil.Reply {
		gotQuery = r.URL.RawQuery
		return testutil.Reply{Status: http.StatusOK, Body: testutil.OK(testutil.CurrentData("Somewhere", 20, "02d"))}
	})
	client := newWeatherClient(t, backend, nil)

	_, err := client.Current(context.Background(), CoordsLocator(40.4167754321, -3.7037902), types.UnitImperial)
	require.NoError(t, err)

	assert.Equal(t, 1, backend.CallsTo("/weather-coords"))
	assert.Contains(t, gotQuery, "lat=40.416775")
	assert.Contains(t, gotQuery, "lon=-3.70379")
	assert.Contains(t, gotQuery, "units=imperial")
}

func TestWeatherClient_ValidationMakesNoNetworkCalls(t *testing.T) {
	backend := testutil.NewBackend(t)
	client := newWeatherClient(t, backend, nil)
	ctx := context.Background()

	tests := []struct {
		name string
		call func() error
		code types.ErrorCode
	}{
		{"empty city", func() error {
			_, err := client.Current(ctx, CityLocator("   "), types.UnitMetric)
			return err
		}, types.ErrCodeValidationInvalidCity},
		{"only brackets", func() error {
			_, err := client.Forecast(ctx, CityLocator("<>"), types.UnitMetric)
			return err
		}, types.ErrCodeValidationInvalidCity},
		{"latitude out of range", func() error {
			_, err := client.Current(ctx, CoordsLocator(91, 0), types.UnitMetric)
			return err
		}, types.ErrCodeValidationInvalidLat},
		{"longitude out of range", func() error {
			_, err := client.Alerts(ctx, CoordsLocator(0, -181), types.UnitMetric)
			return err
		}, types.ErrCodeValidationInvalidLon},
		{"unknown unit", func() error {
			_, err := client.Current(ctx, CityLocator("London"), types.TemperatureUnit("kelvin"))
			return err
		}, types.ErrCodeValidationInvalidUnit},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.call()
			var appErr *types.AppError
			require.True(t, errors.As(err, &appErr))
			assert.Equal(t, tt.code, appErr.Code)
			assert.Equal(t, types.KindValidation, appErr.Kind())
		})
	}
	assert.Equal(t, 0, backend.Calls())
}

func TestWeatherClient_CacheHitAndExpiry(t *testing.T) {
	backend := testutil.NewBackend(t)
	clock := &manualClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	client := newWeatherClient(t, backend, clock)
	ctx := context.Background()

	_, err := client.Current(ctx, CityLocator("London"), types.UnitMetric)
	require.NoError(t, err)
	_, err = client.Current(ctx, CityLocator("  london "), types.UnitMetric)
	require.NoError(t, err)
	assert.Equal(t, 1, backend.Calls(), "normalized locator should hit the cache")

	_, err = client.Current(ctx, CityLocator("London"), types.UnitImperial)
	require.NoError(t, err)
	assert.Equal(t, 2, backend.Calls(), "unit system is part of the key")

	clock.Advance(16 * time.Minute)
	_, err = client.Current(ctx, CityLocator("London"), types.UnitMetric)
	require.NoError(t, err)
	assert.Equal(t, 3, backend.Calls(), "expired entry should refetch")

	_, err = client.Current(ctx, CityLocator("London"), types.UnitMetric, NoCache())
	require.NoError(t, err)
	assert.Equal(t, 4, backend.Calls())
}

func TestWeatherClient_MalformedResponses(t *testing.T) {
	tests := []struct {
		name string
		body any
	}{
		{"invalid json", `{"success": tru`},
		{"success false", map[string]any{"success": false, "message": "nope", "data": nil}},
		{"null data", map[string]any{"success": true, "message": "ok", "data": nil}},
		{"missing temperature", testutil.OK(map[string]any{"name": "London", "main": map[string]any{}})},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend := testutil.NewBackend(t)
			backend.OnCurrent(func(string, *http.Request) testutil.Reply {
				return testutil.Reply{Status: http.StatusOK, Body: tt.body}
			})
			client := newWeatherClient(t, backend, nil)

			cc, err := client.Current(context.Background(), CityLocator("London"), types.UnitMetric)
			assert.Nil(t, cc)
			var appErr *types.AppError
			require.True(t, errors.As(err, &appErr))
			assert.Equal(t, types.ErrCodeUpstreamMalformedResponse, appErr.Code)
			assert.Equal(t, 1, backend.Calls(), "malformed responses are not retried")

			_, err = client.Current(context.Background(), CityLocator("London"), types.UnitMetric)
			require.Error(t, err)
			assert.Equal(t, 2, backend.Calls(), "failed responses are never cached")
		})
	}
}

func TestWeatherClient_NotFound(t *testing.T) {
	backend := testutil.NewBackend(t)
	backend.OnCurrent(func(string, *http.Request) testutil.Reply {
		return testutil.Status(http.StatusNotFound)("", nil)
	})
	client := newWeatherClient(t, backend, nil)

	_, err := client.Current(context.Background(), CityLocator("Atlantis"), types.UnitMetric)
	var appErr *types.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, types.ErrCodeUpstreamNotFound, appErr.Code)
	assert.Equal(t, "City not found. Please check the spelling and try again.", appErr.UserMessage())
	assert.Equal(t, 1, backend.Calls())
}

func TestWeatherClient_ForecastSamples(t *testing.T) {
	backend := testutil.NewBackend(t)
	client := newWeatherClient(t, backend, nil)

	fc, err := client.Forecast(context.Background(), CityLocator("London"), types.UnitMetric)
	require.NoError(t, err)

	assert.Equal(t, "London", fc.City)
	assert.Equal(t, "GB", fc.Country)
	require.Len(t, fc.Samples, 40)
	first := fc.Samples[0]
	assert.Equal(t, 10.0, first.TemperatureC)
	require.NotNil(t, first.PrecipProb)
	assert.Equal(t, 0.2, *first.PrecipProb)
	require.NotNil(t, first.Humidity)
	assert.Equal(t, 60, *first.Humidity)
	assert.Less(t, fc.Samples[0].Timestamp, fc.Samples[1].Timestamp)
}

func TestWeatherClient_Alerts(t *testing.T) {
	backend := testutil.NewBackend(t)
	backend.OnAlerts(func(loc string, _ *http.Request) testutil.Reply {
		return testutil.Reply{Status: http.StatusOK, Body: testutil.OK([]any{
			map[string]any{
				"id": "a1", "city": loc, "type": "high_temperature", "message": "Heat",
				"severity": "high", "createdAt": "2026-03-01T10:00:00Z", "value": 37.5, "threshold": 35,
			},
		})}
	})
	client := newWeatherClient(t, backend, nil)

	alerts, err := client.Alerts(context.Background(), CityLocator("Seville"), types.UnitMetric)
	require.NoError(t, err)
	require.Len(t, alerts, 1)
	assert.Equal(t, "Seville", alerts[0].City)
	assert.Equal(t, 35.0, alerts[0].Threshold)
	assert.Equal(t, 2026, alerts[0].CreatedAt.Year())
}

func TestWeatherClient_Health(t *testing.T) {
	backend := testutil.NewBackend(t)
	client := newWeatherClient(t, backend, nil)

	status, err := client.Health(context.Background())
	require.NoError(t, err)
	assert.True(t, status.Healthy)

	backend.OnHealth(testutil.Status(http.StatusServiceUnavailable))
	_, err = client.Health(context.Background())
	require.Error(t, err)
}

func TestWeatherClient_CollapsesConcurrentRequests(t *testing.T) {
	backend := testutil.NewBackend(t)
	release := make(chan struct{})
	backend.OnCurrent(func(loc string, _ *http.Request) testutil.Reply {
		<-release
		return testutil.Reply{Status: http.StatusOK, Body: testutil.OK(testutil.CurrentData(loc, 10, "01d"))}
	})
	client := newWeatherClient(t, backend, nil)

	const callers = 5
	var wg sync.WaitGroup
	errs := make(chan error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := client.Current(context.Background(), CityLocator("Oslo"), types.UnitMetric, NoCache())
			errs <- err
		}()
	}

	require.Eventually(t, func() bool { return backend.Calls() == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()
	close(errs)

	for err := range errs {
		assert.NoError(t, err)
	}
	assert.Equal(t, 1, backend.Calls(), "identical in-flight requests share one round trip")
}

func TestWeatherClient_DifferentOptionsDoNotCollapse(t *testing.T) {
	backend := testutil.NewBackend(t)
	release := make(chan struct{})
	backend.OnCurrent(func(loc string, _ *http.Request) testutil.Reply {
		<-release
		return testutil.Reply{Status: http.StatusOK, Body: testutil.OK(testutil.CurrentData(loc, 10, "01d"))}
	})
	client := newWeatherClient(t, backend, nil)

	var wg sync.WaitGroup
	errs := make(chan error, 2)
	for _, opts := range [][]RequestOption{nil, {NoCache()}} {
		wg.Add(1)
		go func(opts []RequestOption) {
			defer wg.Done()
			_, err := client.Current(context.Background(), CityLocator("Oslo"), types.UnitMetric, opts...)
			errs <- err
		}(opts)
	}

	require.Eventually(t, func() bool { return backend.Calls() == 2 }, time.Second, 5*time.Millisecond,
		"a refresh must not join a cached read in flight")
	close(release)
	wg.Wait()
	close(errs)
	for err := range errs {
		assert.NoError(t, err)
	}
}

func TestWeatherClient_CancelledLeaderDoesNotFailJoiner(t *testing.T) {
	backend := testutil.NewBackend(t)
	var mu sync.Mutex
	first := true
	backend.OnCurrent(func(loc string, r *http.Request) testutil.Reply {
		mu.Lock()
		block := first
		first = false
		mu.Unlock()
		if block {
			<-r.Context().Done()
		}
		return testutil.Reply{Status: http.StatusOK, Body: testutil.OK(testutil.CurrentData(loc, 10, "01d"))}
	})
	client := newWeatherClient(t, backend, nil)

	leaderCtx, cancel := context.WithCancel(context.Background())
	leaderErr := make(chan error, 1)
	go func() {
		_, err := client.Current(leaderCtx, CityLocator("Oslo"), types.UnitMetric)
		leaderErr <- err
	}()
	require.Eventually(t, func() bool { return backend.Calls() == 1 }, time.Second, 5*time.Millisecond)

	joinerErr := make(chan error, 1)
	go func() {
		cc, err := client.Current(context.Background(), CityLocator("Oslo"), types.UnitMetric)
		if err == nil && cc.Name != "Oslo" {
			err = errors.New("unexpected location " + cc.Name)
		}
		joinerErr <- err
	}()
	time.Sleep(20 * time.Millisecond)
	cancel()

	require.Error(t, <-leaderErr)
	require.NoError(t, <-joinerErr)
	assert.Equal(t, 2, backend.Calls())
}

func TestWeatherClient_CurrentAcceptsUnnamedPlace(t *testing.T) {
	backend := testutil.NewBackend(t)
	backend.OnCurrent(func(string, *http.Request) testutil.Reply {
		return testutil.Reply{Status: http.StatusOK, Body: testutil.OK(testutil.CurrentData("", 18, "01d"))}
	})
	client := newWeatherClient(t, backend, nil)

	cc, err := client.Current(context.Background(), CoordsLocator(0.5, -30.25), types.UnitMetric)
	require.NoError(t, err)
	assert.Empty(t, cc.Name)
	assert.Equal(t, 18.0, cc.TemperatureC)
}

func TestCacheKey(t *testing.T) {
	assert.Equal(t, "weather|city:london|metric", CacheKey(EndpointCurrent, CityLocator(" London "), types.UnitMetric))
	assert.Equal(t, "forecast|coords:51.5,-0.12|imperial",
		CacheKey(EndpointForecast, CoordsLocator(51.5, -0.12), types.UnitImperial))
}
