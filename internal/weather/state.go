package weather

import (
	"errors"
	"slices"
	"time"

	"skysense/internal/types"
)

// Status is the store's lifecycle state.
type Status string

const (
	StatusIdle    Status = "idle"
	StatusLoading Status = "loading"
	StatusReady   Status = "ready"
	StatusError   Status = "error"
	// StatusReadyWithStaleError keeps the previous data on screen next to a
	// dismissible error.
	StatusReadyWithStaleError Status = "ready_with_stale_error"
)

// ActiveLocation is the locator that established the current data, reused by
// Refresh.
type ActiveLocation struct {
	City   string             `json:"city,omitempty"`
	Coords *types.Coordinates `json:"coords,omitempty"`
}

// ErrorInfo is the published form of the last failure.
type ErrorInfo struct {
	Code    types.ErrorCode `json:"code"`
	Kind    types.ErrorKind `json:"kind"`
	Message string          `json:"message"`
	Detail  string          `json:"detail,omitempty"`
	Status  int             `json:"status,omitempty"`
}

func errorInfoFrom(err error) *ErrorInfo {
	var appErr *types.AppError
	if !errors.As(err, &appErr) {
		appErr = types.NewAppError(types.ErrCodeInternalUnexpected, err.Error(), err)
	}
	return &ErrorInfo{
		Code:    appErr.Code,
		Kind:    appErr.Kind(),
		Message: appErr.UserMessage(),
		Detail:  appErr.Error(),
		Status:  appErr.StatusCode,
	}
}

// State is an immutable snapshot of the store. Temperatures are Celsius.
type State struct {
	Status      Status                   `json:"status"`
	Current     *types.CurrentConditions `json:"current,omitempty"`
	Daily       []types.ForecastDay      `json:"daily"`
	Hourly      []types.ForecastHour     `json:"hourly"`
	Unit        types.TemperatureUnit    `json:"temperature_unit"`
	ViewMode    types.ViewMode           `json:"view_mode"`
	SavedCities []types.SavedCity        `json:"saved_cities"`
	Active      *ActiveLocation          `json:"active_location,omitempty"`
	LastUpdated *time.Time               `json:"last_updated,omitempty"`
	Error       *ErrorInfo               `json:"error,omitempty"`
	// Version increases with every transition.
	Version uint64 `json:"version"`
}

// HasData reports whether current conditions are loaded.
func (s State) HasData() bool {
	return s.Current != nil
}

// clone deep-copies the parts of s a listener could mutate.
func (s State) clone() State {
	out := s
	out.Daily = slices.Clone(s.Daily)
	out.Hourly = slices.Clone(s.Hourly)
	out.SavedCities = slices.Clone(s.SavedCities)
	if out.Daily == nil {
		out.Daily = []types.ForecastDay{}
	}
	if out.Hourly == nil {
		out.Hourly = []types.ForecastHour{}
	}
	if out.SavedCities == nil {
		out.SavedCities = []types.SavedCity{}
	}
	if s.Current != nil {
		c := *s.Current
		out.Current = &c
	}
	if s.Active != nil {
		a := *s.Active
		if a.Coords != nil {
			coords := *a.Coords
			a.Coords = &coords
		}
		out.Active = &a
	}
	if s.LastUpdated != nil {
		t := *s.LastUpdated
		out.LastUpdated = &t
	}
	if s.Error != nil {
		e := *s.Error
		out.Error = &e
	}
	return out
}
