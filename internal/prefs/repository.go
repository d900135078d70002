package prefs

import (
	"context"
	"encoding/json"
	"fmt"

	"skysense/internal/types"
)

// Preferences is the persisted user state restored at startup.
type Preferences struct {
	Unit        types.TemperatureUnit
	ViewMode    types.ViewMode
	SavedCities []types.SavedCity
}

// Repository reads and writes typed preferences on top of a KeyValueStore.
type Repository struct {
	kv KeyValueStore
}

// NewRepository wraps kv.
func NewRepository(kv KeyValueStore) *Repository {
	return &Repository{kv: kv}
}

// Load returns the stored preferences. Missing or unrecognized values are
// left zero so the caller keeps its defaults; only storage failures error.
func (r *Repository) Load(ctx context.Context) (Preferences, error) {
	var p Preferences

	v, ok, err := r.kv.Get(ctx, KeyTemperatureUnit)
	if err != nil {
		return p, err
	}
	if ok && types.TemperatureUnit(v).Valid() {
		p.Unit = types.TemperatureUnit(v)
	}

	v, ok, err = r.kv.Get(ctx, KeyViewMode)
	if err != nil {
		return p, err
	}
	if ok && types.ViewMode(v).Valid() {
		p.ViewMode = types.ViewMode(v)
	}

	v, ok, err = r.kv.Get(ctx, KeySavedCities)
	if err != nil {
		return p, err
	}
	if ok && v != "" {
		var cities []types.SavedCity
		if err := json.Unmarshal([]byte(v), &cities); err == nil {
			p.SavedCities = cities
		}
	}

	return p, nil
}

// SaveUnit persists the temperature unit.
func (r *Repository) SaveUnit(ctx context.Context, unit types.TemperatureUnit) error {
	return r.kv.Set(ctx, KeyTemperatureUnit, string(unit))
}

// SaveViewMode persists the view mode.
func (r *Repository) SaveViewMode(ctx context.Context, mode types.ViewMode) error {
	return r.kv.Set(ctx, KeyViewMode, string(mode))
}

// SaveSavedCities persists the saved-city list as a JSON array.
func (r *Repository) SaveSavedCities(ctx context.Context, cities []types.SavedCity) error {
	if cities == nil {
		cities = []types.SavedCity{}
	}
	data, err := json.Marshal(cities)
	if err != nil {
		return fmt.Errorf("encode saved cities: %w", err)
	}
	return r.kv.Set(ctx, KeySavedCities, string(data))
}
