// Package weather holds the application state container. The Store owns the
// published weather data and preferences, orchestrates searches through the
// weather client, and notifies subscribers after every transition.
package weather

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"sync"

	"skysense/internal/external"
	"skysense/internal/forecasts"
	"skysense/internal/prefs"
	"skysense/internal/types"
)

// DefaultMaxSavedCities caps the saved-city list when Config leaves it zero.
const DefaultMaxSavedCities = 6

// WeatherSource is the subset of the weather client the store depends on.
type WeatherSource interface {
	Current(ctx context.Context, loc external.Locator, unit types.TemperatureUnit, opts ...external.RequestOption) (*types.CurrentConditions, error)
	Forecast(ctx context.Context, loc external.Locator, unit types.TemperatureUnit, opts ...external.RequestOption) (*external.Forecast, error)
	Alerts(ctx context.Context, loc external.Locator, unit types.TemperatureUnit, opts ...external.RequestOption) ([]types.Alert, error)
}

// PreferenceStore persists preferences between sessions.
type PreferenceStore interface {
	Load(ctx context.Context) (prefs.Preferences, error)
	SaveUnit(ctx context.Context, unit types.TemperatureUnit) error
	SaveViewMode(ctx context.Context, mode types.ViewMode) error
	SaveSavedCities(ctx context.Context, cities []types.SavedCity) error
}

// PositionSource yields the device position.
type PositionSource interface {
	Locate(ctx context.Context) (types.Coordinates, error)
}

// Config configures a Store.
type Config struct {
	MaxSavedCities int
	Aggregator     *forecasts.Aggregator
	Timezones      forecasts.TimezoneResolver
	Clock          types.Clock
	Logger         *slog.Logger
}

// Listener is notified with a snapshot after every transition.
type Listener func(State)

// Store is the application state container. Searches are serialized by opMu;
// snapshots only take mu and never wait on network I/O.
type Store struct {
	src       WeatherSource
	prefs     PreferenceStore
	agg       *forecasts.Aggregator
	tz        forecasts.TimezoneResolver
	clock     types.Clock
	logger    *slog.Logger
	maxSaved  int
	opMu      sync.Mutex
	mu        sync.RWMutex
	state     State
	dataVer   uint64
	display   displayMemo
	listeners map[int]Listener
	nextID    int
}

// NewStore creates a Store in the idle state with metric units and the
// today view. A nil PreferenceStore keeps preferences in memory only.
func NewStore(src WeatherSource, p PreferenceStore, cfg Config) *Store {
	if cfg.MaxSavedCities <= 0 {
		cfg.MaxSavedCities = DefaultMaxSavedCities
	}
	if cfg.Aggregator == nil {
		cfg.Aggregator = forecasts.NewAggregator(0, 0)
	}
	if cfg.Timezones == nil {
		cfg.Timezones = forecasts.FixedResolver{}
	}
	if cfg.Clock == nil {
		cfg.Clock = types.RealClock{}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if p == nil {
		p = prefs.NewRepository(prefs.NewMemoryStore())
	}
	return &Store{
		src:      src,
		prefs:    p,
		agg:      cfg.Aggregator,
		tz:       cfg.Timezones,
		clock:    cfg.Clock,
		logger:   cfg.Logger,
		maxSaved: cfg.MaxSavedCities,
		state: State{
			Status:      StatusIdle,
			Unit:        types.UnitMetric,
			ViewMode:    types.ViewToday,
			Daily:       []types.ForecastDay{},
			Hourly:      []types.ForecastHour{},
			SavedCities: []types.SavedCity{},
		},
		listeners: make(map[int]Listener),
	}
}

// Snapshot returns a copy of the current state.
func (s *Store) Snapshot() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.clone()
}

// Subscribe registers fn to run after every transition and returns a function
// that removes it.
func (s *Store) Subscribe(fn Listener) (unsubscribe func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.listeners, id)
	}
}

// update applies fn to the state under the lock and then notifies listeners.
// dataChanged invalidates derived display values.
func (s *Store) update(dataChanged bool, fn func(*State)) State {
	s.mu.Lock()
	fn(&s.state)
	s.state.Version++
	if dataChanged {
		s.dataVer++
	}
	snap := s.state.clone()
	listeners := make([]Listener, 0, len(s.listeners))
	for _, l := range s.listeners {
		listeners = append(listeners, l)
	}
	s.mu.Unlock()

	for _, l := range listeners {
		l(snap)
	}
	return snap
}

// Restore loads persisted preferences and saved cities. Storage failures are
// logged and leave the defaults in place.
func (s *Store) Restore(ctx context.Context) error {
	p, err := s.prefs.Load(ctx)
	if err != nil {
		s.logger.WarnContext(ctx, "failed to restore preferences", "error", err)
		return fmt.Errorf("restore preferences: %w", err)
	}
	s.update(true, func(st *State) {
		if p.Unit != "" {
			st.Unit = p.Unit
		}
		if p.ViewMode != "" {
			st.ViewMode = p.ViewMode
		}
		if len(p.SavedCities) > 0 {
			cities := p.SavedCities
			if len(cities) > s.maxSaved {
				cities = cities[:s.maxSaved]
			}
			st.SavedCities = cities
		}
	})
	return nil
}

// SearchByCity loads current conditions and the forecast for a named city.
// An empty name fails validation without any state change or network call.
func (s *Store) SearchByCity(ctx context.Context, name string) error {
	city, err := types.ValidateCityName(name)
	if err != nil {
		return err
	}
	return s.search(ctx, external.CityLocator(city), false)
}

// SearchByCoords loads current conditions and the forecast for a coordinate
// pair. Out-of-range coordinates fail validation without a state change.
func (s *Store) SearchByCoords(ctx context.Context, lat, lon float64) error {
	if err := types.ValidateCoordinates(lat, lon); err != nil {
		return err
	}
	return s.search(ctx, external.CoordsLocator(lat, lon), false)
}

// Refresh repeats the search that established the active location, bypassing
// the response cache. Without an active location it does nothing.
func (s *Store) Refresh(ctx context.Context) error {
	s.mu.RLock()
	active := s.state.Active
	s.mu.RUnlock()
	if active == nil {
		return nil
	}
	if active.Coords != nil {
		return s.search(ctx, external.CoordsLocator(active.Coords.Lat, active.Coords.Lon), true)
	}
	return s.search(ctx, external.CityLocator(active.City), true)
}

// LocateAndSearch resolves the device position and searches by coordinates.
// Location failures follow the same error rules as a failed search.
func (s *Store) LocateAndSearch(ctx context.Context, locator PositionSource) error {
	if locator == nil {
		err := types.NewAppError(types.ErrCodeLocationUnavailable, "geolocation is disabled", nil)
		s.fail(ctx, err)
		return err
	}
	coords, err := locator.Locate(ctx)
	if err != nil {
		var appErr *types.AppError
		if errors.As(err, &appErr) && appErr.Code == types.ErrCodeLocationSuperseded {
			// A newer request owns the outcome.
			return err
		}
		s.fail(ctx, err)
		return err
	}
	return s.SearchByCoords(ctx, coords.Lat, coords.Lon)
}

func (s *Store) search(ctx context.Context, loc external.Locator, refresh bool) error {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	s.update(false, func(st *State) {
		st.Status = StatusLoading
		st.Error = nil
	})

	var opts []external.RequestOption
	if refresh {
		opts = append(opts, external.NoCache())
	}

	current, err := s.src.Current(ctx, loc, types.UnitMetric, opts...)
	if err != nil {
		s.logger.WarnContext(ctx, "current conditions fetch failed",
			"locator", loc.String(),
			"error", err,
		)
		s.fail(ctx, err)
		return err
	}

	daily, hourly, place := s.loadForecast(ctx, loc, current, opts)
	if current.Name == "" {
		named := *current
		named.Name = placeLabel(loc, place)
		current = &named
	}

	saved := SavedCityFrom(current)
	now := s.clock.Now()
	active := &ActiveLocation{City: loc.City}
	if loc.Coords != nil {
		coords := *loc.Coords
		active = &ActiveLocation{Coords: &coords}
	}

	snap := s.update(true, func(st *State) {
		st.Status = StatusReady
		st.Error = nil
		st.Current = current
		st.Daily = daily
		st.Hourly = hourly
		st.Active = active
		st.LastUpdated = &now
		st.SavedCities = upsertSavedCity(st.SavedCities, saved, s.maxSaved)
	})

	if err := s.prefs.SaveSavedCities(ctx, snap.SavedCities); err != nil {
		s.logger.WarnContext(ctx, "failed to persist saved cities", "error", err)
	}

	s.logger.InfoContext(ctx, "weather updated",
		"location", current.Name,
		"days", len(daily),
		"hours", len(hourly),
		"refresh", refresh,
	)
	return nil
}

// loadForecast fetches and aggregates the forecast. Failures are logged and
// yield empty views; they never fail the search.
// The forecast's city name is returned alongside.
func (s *Store) loadForecast(ctx context.Context, loc external.Locator, current *types.CurrentConditions, opts []external.RequestOption) ([]types.ForecastDay, []types.ForecastHour, string) {
	fc, err := s.src.Forecast(ctx, loc, types.UnitMetric, opts...)
	if err != nil {
		s.logger.WarnContext(ctx, "forecast fetch failed, showing current conditions only",
			"locator", loc.String(),
			"error", err,
		)
		return []types.ForecastDay{}, []types.ForecastHour{}, ""
	}

	coords := loc.Coords
	if coords == nil {
		coords = current.Coordinates
	}
	res := s.agg.Aggregate(fc.Samples, s.tz.Location(coords))
	return res.Daily, res.Hourly, strings.TrimSpace(fc.City)
}

// placeLabel names a reading the backend left unnamed, such as open water:
// the forecast's city when it has one, otherwise the searched city or the
// "lat,lon" pair.
func placeLabel(loc external.Locator, forecastCity string) string {
	if forecastCity != "" {
		return forecastCity
	}
	return loc.String()
}

// fail records err, keeping previously loaded data when there is any.
func (s *Store) fail(ctx context.Context, err error) {
	info := errorInfoFrom(err)
	s.update(false, func(st *State) {
		st.Error = info
		if st.HasData() {
			st.Status = StatusReadyWithStaleError
		} else {
			st.Status = StatusError
		}
	})
}

// SetTemperatureUnit switches the display unit and persists it. Canonical
// data is untouched and no network call is made.
func (s *Store) SetTemperatureUnit(ctx context.Context, unit types.TemperatureUnit) error {
	if !unit.Valid() {
		return types.NewAppError(types.ErrCodeValidationInvalidUnit,
			fmt.Sprintf("unknown temperature unit %q", unit), nil)
	}
	s.update(false, func(st *State) { st.Unit = unit })
	if err := s.prefs.SaveUnit(ctx, unit); err != nil {
		s.logger.WarnContext(ctx, "failed to persist temperature unit", "error", err)
	}
	return nil
}

// SetViewMode switches between the today and week views and persists it.
func (s *Store) SetViewMode(ctx context.Context, mode types.ViewMode) error {
	if !mode.Valid() {
		return types.NewAppError(types.ErrCodeValidationInvalidViewMode,
			fmt.Sprintf("unknown view mode %q", mode), nil)
	}
	s.update(false, func(st *State) { st.ViewMode = mode })
	if err := s.prefs.SaveViewMode(ctx, mode); err != nil {
		s.logger.WarnContext(ctx, "failed to persist view mode", "error", err)
	}
	return nil
}

// ClearError dismisses the current error: error becomes idle and
// ready_with_stale_error becomes ready. Other states are unchanged.
func (s *Store) ClearError() {
	s.update(false, func(st *State) {
		switch st.Status {
		case StatusError:
			st.Status = StatusIdle
		case StatusReadyWithStaleError:
			st.Status = StatusReady
		}
		st.Error = nil
	})
}

// RemoveSavedCity deletes a saved city by case-insensitive name and persists
// the list. It reports whether an entry was removed.
func (s *Store) RemoveSavedCity(ctx context.Context, name string) (bool, error) {
	clean, err := types.ValidateCityName(name)
	if err != nil {
		return false, err
	}

	removed := false
	snap := s.update(true, func(st *State) {
		out := make([]types.SavedCity, 0, len(st.SavedCities))
		for _, c := range st.SavedCities {
			if strings.EqualFold(c.Name, clean) {
				removed = true
				continue
			}
			out = append(out, c)
		}
		st.SavedCities = out
	})
	if removed {
		if err := s.prefs.SaveSavedCities(ctx, snap.SavedCities); err != nil {
			s.logger.WarnContext(ctx, "failed to persist saved cities", "error", err)
		}
	}
	return removed, nil
}

// Alerts returns backend alerts for the active location.
func (s *Store) Alerts(ctx context.Context) ([]types.Alert, error) {
	s.mu.RLock()
	active := s.state.Active
	s.mu.RUnlock()
	if active == nil {
		return []types.Alert{}, nil
	}

	loc := external.CityLocator(active.City)
	if active.Coords != nil {
		loc = external.CoordsLocator(active.Coords.Lat, active.Coords.Lon)
	}
	return s.src.Alerts(ctx, loc, types.UnitMetric)
}

// SavedCityFrom builds the saved-city entry for a fresh reading.
func SavedCityFrom(c *types.CurrentConditions) types.SavedCity {
	country := c.Country
	if country == "" {
		country = types.UnknownCountry
	}
	return types.SavedCity{
		Name:        c.Name,
		Country:     country,
		Temperature: int(math.Round(c.TemperatureC)),
		Icon:        c.Condition.Code,
	}
}

// upsertSavedCity puts entry first, drops any other entry with the same
// case-insensitive name, and truncates to limit.
func upsertSavedCity(list []types.SavedCity, entry types.SavedCity, limit int) []types.SavedCity {
	out := make([]types.SavedCity, 0, len(list)+1)
	out = append(out, entry)
	for _, c := range list {
		if strings.EqualFold(c.Name, entry.Name) {
			continue
		}
		out = append(out, c)
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}
