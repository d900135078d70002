// Package geolocation acquires the user's position from a host provider with
// a timeout, a freshness window and stale-request discarding.
package geolocation

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"skysense/internal/types"
)

// Defaults applied when LocatorConfig leaves a field zero.
const (
	DefaultTimeout = 10 * time.Second
	DefaultMaxAge  = 5 * time.Minute
)

// Sentinel errors a Provider returns to classify a failure.
var (
	ErrPermissionDenied    = errors.New("geolocation permission denied")
	ErrPositionUnavailable = errors.New("geolocation position unavailable")
)

// Position is a fix reported by a provider.
type Position struct {
	Coordinates types.Coordinates
	// Accuracy in meters, 0 when unknown.
	Accuracy float64
}

// Provider is the host collaborator that knows where the device is.
type Provider interface {
	CurrentPosition(ctx context.Context) (Position, error)
}

// LocatorConfig configures a Locator.
type LocatorConfig struct {
	Timeout time.Duration
	MaxAge  time.Duration
	Clock   types.Clock
	Logger  *slog.Logger
}

// Locator wraps a Provider. Fixes younger than MaxAge are served from memory.
// When a newer request starts while an older one is outstanding, the older
// result is discarded with location_superseded.
type Locator struct {
	provider Provider
	timeout  time.Duration
	maxAge   time.Duration
	clock    types.Clock
	logger   *slog.Logger

	mu       sync.Mutex
	gen      uint64
	cached   *types.Coordinates
	cachedAt time.Time
}

// NewLocator returns a Locator around provider.
func NewLocator(provider Provider, cfg LocatorConfig) *Locator {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MaxAge < 0 {
		cfg.MaxAge = 0
	}
	if cfg.Clock == nil {
		cfg.Clock = types.RealClock{}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Locator{
		provider: provider,
		timeout:  cfg.Timeout,
		maxAge:   cfg.MaxAge,
		clock:    cfg.Clock,
		logger:   cfg.Logger,
	}
}

type fix struct {
	pos Position
	err error
}

// Locate returns the current coordinates rounded to six decimals.
func (l *Locator) Locate(ctx context.Context) (types.Coordinates, error) {
	l.mu.Lock()
	if l.cached != nil && l.maxAge > 0 && l.clock.Now().Sub(l.cachedAt) <= l.maxAge {
		c := *l.cached
		l.mu.Unlock()
		return c, nil
	}
	l.gen++
	gen := l.gen
	l.mu.Unlock()

	reqCtx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	ch := make(chan fix, 1)
	go func() {
		pos, err := l.provider.CurrentPosition(reqCtx)
		ch <- fix{pos: pos, err: err}
	}()

	var got fix
	select {
	case got = <-ch:
	case <-reqCtx.Done():
		got.err = reqCtx.Err()
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if gen != l.gen {
		l.logger.DebugContext(ctx, "discarding superseded location request", "generation", gen)
		return types.Coordinates{}, types.NewAppError(types.ErrCodeLocationSuperseded,
			"location request superseded by a newer one", got.err)
	}
	if got.err != nil {
		return types.Coordinates{}, mapProviderError(got.err)
	}

	c := types.Coordinates{
		Lat: types.RoundCoordinate(got.pos.Coordinates.Lat),
		Lon: types.RoundCoordinate(got.pos.Coordinates.Lon),
	}
	if err := types.ValidateCoordinates(c.Lat, c.Lon); err != nil {
		return types.Coordinates{}, types.NewAppError(types.ErrCodeLocationUnavailable,
			"provider returned invalid coordinates", err)
	}
	l.cached = &c
	l.cachedAt = l.clock.Now()
	return c, nil
}

// Forget drops the cached fix.
func (l *Locator) Forget() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.cached = nil
}

func mapProviderError(err error) *types.AppError {
	switch {
	case errors.Is(err, ErrPermissionDenied):
		return types.NewAppError(types.ErrCodeLocationPermissionDenied, "location permission denied", err)
	case errors.Is(err, ErrPositionUnavailable):
		return types.NewAppError(types.ErrCodeLocationUnavailable, "location unavailable", err)
	case errors.Is(err, context.DeadlineExceeded):
		return types.NewAppError(types.ErrCodeLocationTimeout, "location request timed out", err)
	default:
		return types.NewAppError(types.ErrCodeLocationUnknown, "unknown location error", err)
	}
}

// StaticProvider reports a fixed, configured position.
type StaticProvider struct {
	Home *types.Coordinates
}

// CurrentPosition implements Provider.
func (p StaticProvider) CurrentPosition(ctx context.Context) (Position, error) {
	if err := ctx.Err(); err != nil {
		return Position{}, err
	}
	if p.Home == nil {
		return Position{}, ErrPositionUnavailable
	}
	return Position{Coordinates: *p.Home}, nil
}
