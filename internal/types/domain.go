package types

import "time"

// TemperatureUnit selects the display unit system. Canonical values are
// always metric.
type TemperatureUnit string

const (
	UnitMetric   TemperatureUnit = "metric"
	UnitImperial TemperatureUnit = "imperial"
)

// Valid reports whether u is a known unit system.
func (u TemperatureUnit) Valid() bool {
	return u == UnitMetric || u == UnitImperial
}

// ViewMode selects between the daily and weekly presentation.
type ViewMode string

const (
	ViewToday ViewMode = "today"
	ViewWeek  ViewMode = "week"
)

// Valid reports whether m is a known view mode.
func (m ViewMode) Valid() bool {
	return m == ViewToday || m == ViewWeek
}

// UnknownCountry is stored when the backend does not report a country.
const UnknownCountry = "XX"

// DefaultVisibilityMeters is assumed when the backend omits visibility.
const DefaultVisibilityMeters = 10000.0

// Coordinates is a WGS84 point.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Condition describes the weather condition of a reading. Code is the
// provider's icon code (e.g. "10d").
type Condition struct {
	Code        string `json:"code"`
	Label       string `json:"label"`
	Description string `json:"description"`
}

// CurrentConditions is a single point-in-time reading for a location.
// Temperatures are Celsius, wind km/h, pressure hPa, visibility meters.
type CurrentConditions struct {
	Name         string       `json:"name"`
	Country      string       `json:"country,omitempty"`
	Coordinates  *Coordinates `json:"coordinates,omitempty"`
	ObservedAt   int64        `json:"dt"`
	TemperatureC float64      `json:"temp"`
	FeelsLikeC   float64      `json:"feels_like"`
	Humidity     int          `json:"humidity"`
	WindSpeedKmh float64      `json:"wind_speed"`
	Condition    Condition    `json:"condition"`
	TempMaxC     float64      `json:"temp_max"`
	TempMinC     float64      `json:"temp_min"`
	PressureHPa  float64      `json:"pressure"`
	VisibilityM  float64      `json:"visibility"`
	UVIndex      *float64     `json:"uvi,omitempty"`
}

// ForecastSample is one normalized raw forecast record, typically 3-hourly.
type ForecastSample struct {
	Timestamp    int64
	TemperatureC float64
	FeelsLikeC   *float64
	Humidity     *int
	PressureHPa  *float64
	WindSpeedKmh *float64
	Condition    Condition
	PrecipProb   *float64
}

// ForecastDay is one aggregated calendar day.
type ForecastDay struct {
	Timestamp  int64     `json:"dt"`
	MinC       float64   `json:"min"`
	MaxC       float64   `json:"max"`
	Condition  Condition `json:"condition"`
	PrecipProb float64   `json:"pop"`
}

// ForecastHour is one hourly sample passed through from the backend.
type ForecastHour struct {
	Timestamp    int64     `json:"dt"`
	TemperatureC float64   `json:"temp"`
	Condition    Condition `json:"condition"`
	PrecipProb   float64   `json:"pop"`
	Humidity     *int      `json:"humidity,omitempty"`
	PressureHPa  *float64  `json:"pressure,omitempty"`
	WindSpeedKmh *float64  `json:"wind_speed,omitempty"`
	FeelsLikeC   *float64  `json:"feels_like,omitempty"`
}

// SavedCity is an entry of the recently-searched list.
type SavedCity struct {
	Name        string `json:"name"`
	Country     string `json:"country"`
	Temperature int    `json:"temp"`
	Icon        string `json:"icon"`
}

// Alert is a backend-issued weather alert.
type Alert struct {
	ID        string    `json:"id"`
	City      string    `json:"city"`
	Type      string    `json:"type"`
	Message   string    `json:"message"`
	Severity  string    `json:"severity"`
	CreatedAt time.Time `json:"created_at"`
	Value     float64   `json:"value"`
	Threshold float64   `json:"threshold"`
}
