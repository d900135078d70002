// Package handlers contains the HTTP handlers of the SkySense local bridge.
//
// This file implements the weather handler. It covers:
//   - State and derived display values (GET /v1/state, /v1/display)
//   - Insight, advisories and backend alerts (GET /v1/advisories, /v1/alerts)
//   - Searches by city, coordinates or device position (POST /v1/search, /v1/locate)
//   - Refresh of the active location (POST /v1/refresh)
//   - Preferences and saved cities (PUT /v1/preferences, DELETE /v1/saved-cities/{name})
//   - Error dismissal (DELETE /v1/error)
package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"skysense/internal/core"
	"skysense/internal/types"
	"skysense/internal/weather"
)

// WeatherStoreInterface is the state container contract used by the handler.
type WeatherStoreInterface interface {
	Snapshot() weather.State
	Display(unit types.TemperatureUnit) *weather.Display
	Insight() string
	Advisories() []weather.Advisory
	SearchByCity(ctx context.Context, name string) error
	SearchByCoords(ctx context.Context, lat, lon float64) error
	Refresh(ctx context.Context) error
	LocateAndSearch(ctx context.Context, locator weather.PositionSource) error
	SetTemperatureUnit(ctx context.Context, unit types.TemperatureUnit) error
	SetViewMode(ctx context.Context, mode types.ViewMode) error
	ClearError()
	RemoveSavedCity(ctx context.Context, name string) (bool, error)
	Alerts(ctx context.Context) ([]types.Alert, error)
}

// SearchRequest selects a location by city name or by coordinates. City wins
// when both are given.
type SearchRequest struct {
	City string   `json:"city,omitempty" validate:"omitempty,city_name"`
	Lat  *float64 `json:"lat,omitempty" validate:"omitempty,gte=-90,lte=90"`
	Lon  *float64 `json:"lon,omitempty" validate:"omitempty,gte=-180,lte=180"`
}

// PreferencesRequest updates any subset of the preferences.
type PreferencesRequest struct {
	Unit     types.TemperatureUnit `json:"temperature_unit,omitempty" validate:"omitempty,temperature_unit"`
	ViewMode types.ViewMode        `json:"view_mode,omitempty" validate:"omitempty,view_mode"`
}

// AdvisoriesResponse is the body of GET /v1/advisories.
type AdvisoriesResponse struct {
	Insight    string             `json:"insight"`
	Advisories []weather.Advisory `json:"advisories"`
}

// RemoveSavedCityResponse is the body of DELETE /v1/saved-cities/{name}.
type RemoveSavedCityResponse struct {
	Removed     bool              `json:"removed"`
	SavedCities []types.SavedCity `json:"saved_cities"`
}

// WeatherHandler maps bridge requests to the weather store.
type WeatherHandler struct {
	store     WeatherStoreInterface
	locator   weather.PositionSource
	validator *core.Validator
	logger    *slog.Logger
}

// NewWeatherHandler creates a WeatherHandler. A nil locator makes
// POST /v1/locate report location unavailable.
func NewWeatherHandler(
	store WeatherStoreInterface,
	locator weather.PositionSource,
	val *core.Validator,
	logger *slog.Logger,
) *WeatherHandler {
	if logger == nil {
		logger = slog.Default()
	}
	if val == nil {
		val = core.NewValidator(logger)
	}
	return &WeatherHandler{
		store:     store,
		locator:   locator,
		validator: val,
		logger:    logger,
	}
}

// RegisterRoutes mounts the weather endpoints onto the router.
func (h *WeatherHandler) RegisterRoutes(r chi.Router) {
	r.Get("/state", h.HandleGetState)
	r.Get("/display", h.HandleGetDisplay)
	r.Get("/advisories", h.HandleGetAdvisories)
	r.Get("/alerts", h.HandleGetAlerts)

	r.Post("/search", h.HandleSearch)
	r.Post("/refresh", h.HandleRefresh)
	r.Post("/locate", h.HandleLocate)
	r.Put("/preferences", h.HandleUpdatePreferences)
	r.Delete("/saved-cities/{name}", h.HandleRemoveSavedCity)
	r.Delete("/error", h.HandleClearError)
}

// HandleGetState handles GET /v1/state.
func (h *WeatherHandler) HandleGetState(w http.ResponseWriter, r *http.Request) {
	core.Data(w, r, http.StatusOK, h.store.Snapshot())
}

// HandleGetDisplay handles GET /v1/display?unit=. Without a unit the store's
// current unit is used.
func (h *WeatherHandler) HandleGetDisplay(w http.ResponseWriter, r *http.Request) {
	unit := types.TemperatureUnit(r.URL.Query().Get("unit"))
	if unit != "" && !unit.Valid() {
		core.Error(w, r, types.NewAppError(
			types.ErrCodeValidationInvalidUnit,
			"unit must be metric or imperial",
			nil,
		))
		return
	}
	core.Data(w, r, http.StatusOK, h.store.Display(unit))
}

// HandleGetAdvisories handles GET /v1/advisories.
func (h *WeatherHandler) HandleGetAdvisories(w http.ResponseWriter, r *http.Request) {
	core.Data(w, r, http.StatusOK, AdvisoriesResponse{
		Insight:    h.store.Insight(),
		Advisories: h.store.Advisories(),
	})
}

// HandleGetAlerts handles GET /v1/alerts for the active location.
func (h *WeatherHandler) HandleGetAlerts(w http.ResponseWriter, r *http.Request) {
	alerts, err := h.store.Alerts(r.Context())
	if err != nil {
		h.logger.WarnContext(r.Context(), "alerts fetch failed", "error", err)
		core.Error(w, r, err)
		return
	}
	core.Data(w, r, http.StatusOK, alerts)
}

// HandleSearch handles POST /v1/search.
//  1. Decode and validate the body: a city, or a lat/lon pair.
//  2. Run the search; the store records failures in its state.
//  3. Respond with the resulting state, or the error.
func (h *WeatherHandler) HandleSearch(w http.ResponseWriter, r *http.Request) {
	var req SearchRequest
	if err := core.DecodeJSON(w, r, &req); err != nil {
		core.Error(w, r, err)
		return
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		core.Error(w, r, err)
		return
	}

	var err error
	switch {
	case req.City != "":
		err = h.store.SearchByCity(r.Context(), req.City)
	case req.Lat != nil && req.Lon != nil:
		err = h.store.SearchByCoords(r.Context(), *req.Lat, *req.Lon)
	default:
		err = types.NewAppError(
			types.ErrCodeValidationInvalidCity,
			"either city or both lat and lon are required",
			nil,
		)
	}
	h.respondWithState(w, r, err)
}

// HandleRefresh handles POST /v1/refresh.
func (h *WeatherHandler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	h.respondWithState(w, r, h.store.Refresh(r.Context()))
}

// HandleLocate handles POST /v1/locate.
func (h *WeatherHandler) HandleLocate(w http.ResponseWriter, r *http.Request) {
	h.respondWithState(w, r, h.store.LocateAndSearch(r.Context(), h.locator))
}

// HandleUpdatePreferences handles PUT /v1/preferences.
func (h *WeatherHandler) HandleUpdatePreferences(w http.ResponseWriter, r *http.Request) {
	var req PreferencesRequest
	if err := core.DecodeJSON(w, r, &req); err != nil {
		core.Error(w, r, err)
		return
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		core.Error(w, r, err)
		return
	}

	if req.Unit != "" {
		if err := h.store.SetTemperatureUnit(r.Context(), req.Unit); err != nil {
			core.Error(w, r, err)
			return
		}
	}
	if req.ViewMode != "" {
		if err := h.store.SetViewMode(r.Context(), req.ViewMode); err != nil {
			core.Error(w, r, err)
			return
		}
	}
	core.Data(w, r, http.StatusOK, h.store.Snapshot())
}

// HandleRemoveSavedCity handles DELETE /v1/saved-cities/{name}.
func (h *WeatherHandler) HandleRemoveSavedCity(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	removed, err := h.store.RemoveSavedCity(r.Context(), name)
	if err != nil {
		core.Error(w, r, err)
		return
	}
	core.Data(w, r, http.StatusOK, RemoveSavedCityResponse{
		Removed:     removed,
		SavedCities: h.store.Snapshot().SavedCities,
	})
}

// HandleClearError handles DELETE /v1/error.
func (h *WeatherHandler) HandleClearError(w http.ResponseWriter, r *http.Request) {
	h.store.ClearError()
	core.Data(w, r, http.StatusOK, h.store.Snapshot())
}

// respondWithState writes the current state, or err when the operation
// failed. Validation failures never reach the state.
func (h *WeatherHandler) respondWithState(w http.ResponseWriter, r *http.Request, err error) {
	if err != nil {
		core.Error(w, r, err)
		return
	}
	core.Data(w, r, http.StatusOK, h.store.Snapshot())
}
