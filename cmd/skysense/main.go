// Package main is the entry point for the SkySense client process.
//
// It loads the configuration, builds the weather client stack (HTTP client,
// circuit breaker, response cache), restores the weather store from the
// preference database, starts the background scheduler and serves the local
// bridge that presentation layers talk to.
//
// Graceful shutdown is handled via OS signal interception (SIGINT, SIGTERM).
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"skysense/internal/api/handlers"
	"skysense/internal/cache"
	"skysense/internal/config"
	"skysense/internal/core"
	"skysense/internal/external"
	"skysense/internal/forecasts"
	"skysense/internal/geolocation"
	"skysense/internal/prefs"
	"skysense/internal/scheduler"
	"skysense/internal/types"
	"skysense/internal/weather"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

// run encapsulates the startup lifecycle so that main() can cleanly exit on error.
func run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	logger := newLogger(cfg.LogLevel)
	logger.Info("skysense starting",
		"environment", cfg.Environment,
		"version", cfg.Build.Version,
		"commit", cfg.Build.Commit,
		"backend", cfg.API.BaseURL,
	)

	ctx := context.Background()
	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.store.Restore(ctx); err != nil {
		// Defaults apply when preferences cannot be read.
		logger.Warn("failed to restore preferences", "error", err)
	}

	if err := a.scheduler.Start(); err != nil {
		return fmt.Errorf("starting scheduler: %w", err)
	}
	defer a.scheduler.Stop()

	return runHTTPServer(a.server, cfg, logger)
}

// app holds the wired process components.
type app struct {
	server    *core.Server
	store     *weather.Store
	client    *external.WeatherClient
	scheduler *scheduler.Scheduler
	closers   []func() error
}

// newApp builds every component from cfg. The caller owns Close.
func newApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*app, error) {
	a := &app{}

	base := external.NewBaseClient(
		external.NewHTTPClient(),
		"weather-backend",
		external.RetryPolicy{
			MaxRetries: cfg.API.Retries,
			MinWait:    cfg.API.MinWait,
			MaxWait:    cfg.API.MaxWait,
		},
		cfg.Build.UserAgent(cfg.API.UserAgent),
		external.WithTimeout(cfg.API.Timeout),
		external.WithRateLimit(cfg.API.RateLimit, cfg.API.RateBurst),
		external.WithLogger(logger),
	)
	a.client = external.NewWeatherClient(base, cache.New[[]byte](nil), external.WeatherClientConfig{
		BaseURL:      cfg.API.BaseURL,
		CacheEnabled: cfg.Cache.Enabled,
		CurrentTTL:   cfg.Cache.CurrentTTL,
		ForecastTTL:  cfg.Cache.ForecastTTL,
		AlertsTTL:    cfg.Cache.AlertsTTL,
	}, logger)

	var tz forecasts.TimezoneResolver = forecasts.FixedResolver{Zone: time.Local}
	if cfg.Store.BucketTimezone == "location" {
		tz = forecasts.NewTZFResolver(time.Local, logger)
	}

	kv, probes, err := openPreferences(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	if closer, ok := kv.(interface{ Close() error }); ok {
		a.closers = append(a.closers, closer.Close)
	}

	a.store = weather.NewStore(a.client, prefs.NewRepository(kv), weather.Config{
		MaxSavedCities: cfg.Store.MaxSavedCities,
		Aggregator:     forecasts.NewAggregator(cfg.Store.ForecastDays, cfg.Store.HourlyHours),
		Timezones:      tz,
		Logger:         logger,
	})

	runner := scheduler.NewRunner(a.store, a.client, scheduler.DefaultTaskTimeout, logger)
	a.scheduler = scheduler.New(runner, scheduler.Intervals{
		Refresh:    cfg.Store.AutoRefreshInterval,
		CachePurge: cfg.Cache.PurgeInterval,
	}, logger)

	srv, err := core.NewServer(cfg, logger)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("creating server: %w", err)
	}
	srv.HealthProbes = append(probes, core.ProbeFunc{
		ProbeName: "backend",
		Fn: func(ctx context.Context) error {
			status, err := a.client.Health(ctx)
			if err != nil {
				return err
			}
			if !status.Healthy {
				return fmt.Errorf("backend reported unhealthy: %s", status.Message)
			}
			return nil
		},
	})

	weatherHandler := handlers.NewWeatherHandler(a.store, newPositionSource(cfg, logger), srv.Validator, logger)
	systemHandler := handlers.NewSystemHandler(a.client, runner, logger)
	srv.V1RouteRegistrars = append(srv.V1RouteRegistrars,
		weatherHandler.RegisterRoutes,
		systemHandler.RegisterRoutes,
	)
	srv.MountRoutes()
	a.server = srv

	return a, nil
}

// Close releases the process resources in reverse order of acquisition.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		_ = a.closers[i]()
	}
	a.closers = nil
}

// openPreferences opens the SQLite preference file, or an in-memory store
// when no path is configured. The storage probe is only returned for SQLite.
func openPreferences(ctx context.Context, cfg *config.Config, logger *slog.Logger) (prefs.KeyValueStore, []core.HealthProbe, error) {
	if cfg.Store.StatePath == "" {
		logger.Info("preferences kept in memory")
		return prefs.NewMemoryStore(), nil, nil
	}

	db, err := prefs.OpenSQLite(ctx, cfg.Store.StatePath, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("opening preferences: %w", err)
	}
	probe := core.ProbeFunc{ProbeName: "storage", Fn: db.Ping}
	return db, []core.HealthProbe{probe}, nil
}

// newPositionSource returns the device locator, or nil when geolocation is
// disabled or no home position is configured.
func newPositionSource(cfg *config.Config, logger *slog.Logger) weather.PositionSource {
	g := cfg.Geolocation
	if !g.Enabled || g.HomeLat == nil || g.HomeLon == nil {
		return nil
	}
	home := &types.Coordinates{Lat: *g.HomeLat, Lon: *g.HomeLon}
	return geolocation.NewLocator(geolocation.StaticProvider{Home: home}, geolocation.LocatorConfig{
		Timeout: g.Timeout,
		MaxAge:  g.MaxAge,
		Logger:  logger,
	})
}

// runHTTPServer starts the bridge with graceful shutdown.
func runHTTPServer(srv *core.Server, cfg *config.Config, logger *slog.Logger) error {
	addr := cfg.Server.Addr()

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      cfg.Server.RequestTimeout + 5*time.Second,
		IdleTimeout:       120 * time.Second,
	}

	// Channel to capture server errors from ListenAndServe.
	serverErr := make(chan error, 1)

	go func() {
		logger.Info("bridge listening", "addr", addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-shutdown:
		logger.Info("shutdown signal received", "signal", sig.String())
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	}

	logger.Info("initiating graceful shutdown")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error("bridge shutdown error", "error", err)
		return fmt.Errorf("bridge shutdown: %w", err)
	}

	logger.Info("bridge stopped cleanly")
	return nil
}

// newLogger creates a structured slog.Logger configured for the given log level.
func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
}
