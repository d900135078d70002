package forecasts

import (
	"fmt"
	"log/slog"
	"sync"
	"time"
	_ "time/tzdata" // zone data for hosts without a system database

	"github.com/ringsaturn/tzf"

	"skysense/internal/types"
)

// TimezoneResolver chooses the zone used to decide which calendar day a
// forecast sample belongs to.
type TimezoneResolver interface {
	Location(coords *types.Coordinates) *time.Location
}

// FixedResolver always answers with the same zone. The zero value uses the
// host's local zone.
type FixedResolver struct {
	Zone *time.Location
}

// Location implements TimezoneResolver.
func (r FixedResolver) Location(*types.Coordinates) *time.Location {
	if r.Zone == nil {
		return time.Local
	}
	return r.Zone
}

// TZFResolver looks up the IANA zone of the forecast location from its
// coordinates, falling back to a default zone when the coordinates are
// unknown or the lookup fails.
type TZFResolver struct {
	fallback *time.Location
	logger   *slog.Logger

	once    sync.Once
	finder  tzf.F
	initErr error

	mu    sync.RWMutex
	zones map[string]*time.Location
}

// NewTZFResolver returns a resolver backed by tzf's embedded boundary data.
// The data set is loaded on first use.
func NewTZFResolver(fallback *time.Location, logger *slog.Logger) *TZFResolver {
	if fallback == nil {
		fallback = time.Local
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &TZFResolver{
		fallback: fallback,
		logger:   logger,
		zones:    make(map[string]*time.Location),
	}
}

// Location implements TimezoneResolver.
func (r *TZFResolver) Location(coords *types.Coordinates) *time.Location {
	if coords == nil {
		return r.fallback
	}
	loc, err := r.lookup(coords.Lat, coords.Lon)
	if err != nil {
		r.logger.Warn("timezone lookup failed, using fallback zone",
			"lat", coords.Lat,
			"lon", coords.Lon,
			"fallback", r.fallback.String(),
			"error", err,
		)
		return r.fallback
	}
	return loc
}

// Name returns the IANA zone name for the coordinates.
func (r *TZFResolver) Name(lat, lon float64) (string, error) {
	r.once.Do(func() {
		finder, err := tzf.NewDefaultFinder()
		if err != nil {
			r.initErr = fmt.Errorf("failed to initialize timezone finder: %w", err)
			return
		}
		r.finder = finder
	})
	if r.initErr != nil {
		return "", r.initErr
	}

	name := r.finder.GetTimezoneName(lon, lat)
	if name == "" {
		return "", fmt.Errorf("could not determine timezone for coordinates lat=%f, lon=%f", lat, lon)
	}
	return name, nil
}

func (r *TZFResolver) lookup(lat, lon float64) (*time.Location, error) {
	name, err := r.Name(lat, lon)
	if err != nil {
		return nil, err
	}

	r.mu.RLock()
	loc, ok := r.zones[name]
	r.mu.RUnlock()
	if ok {
		return loc, nil
	}

	loc, err = time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("load location %q: %w", name, err)
	}

	r.mu.Lock()
	r.zones[name] = loc
	r.mu.Unlock()
	return loc, nil
}
