package weather

import (
	"math"

	"skysense/internal/types"
	"skysense/internal/units"
)

// CurrentDisplay is current conditions expressed in a display unit system.
type CurrentDisplay struct {
	Name        string          `json:"name"`
	Country     string          `json:"country,omitempty"`
	ObservedAt  int64           `json:"dt"`
	Temperature float64         `json:"temp"`
	FeelsLike   float64         `json:"feels_like"`
	TempMax     float64         `json:"temp_max"`
	TempMin     float64         `json:"temp_min"`
	Humidity    int             `json:"humidity"`
	WindSpeed   float64         `json:"wind_speed"`
	Pressure    float64         `json:"pressure"`
	Visibility  float64         `json:"visibility"`
	UVIndex     *float64        `json:"uvi,omitempty"`
	Condition   types.Condition `json:"condition"`
	Category    Category        `json:"category"`
	Label       string          `json:"label"`
}

// DayDisplay is one forecast day in a display unit system.
type DayDisplay struct {
	Timestamp  int64           `json:"dt"`
	Min        float64         `json:"min"`
	Max        float64         `json:"max"`
	Condition  types.Condition `json:"condition"`
	Category   Category        `json:"category"`
	PrecipProb float64         `json:"pop"`
}

// HourDisplay is one hourly entry in a display unit system.
type HourDisplay struct {
	Timestamp   int64           `json:"dt"`
	Temperature float64         `json:"temp"`
	FeelsLike   *float64        `json:"feels_like,omitempty"`
	WindSpeed   *float64        `json:"wind_speed,omitempty"`
	Pressure    *float64        `json:"pressure,omitempty"`
	Humidity    *int            `json:"humidity,omitempty"`
	Condition   types.Condition `json:"condition"`
	Category    Category        `json:"category"`
	PrecipProb  float64         `json:"pop"`
}

// SavedCityDisplay is a saved city with its temperature in the display unit.
type SavedCityDisplay struct {
	Name        string `json:"name"`
	Country     string `json:"country"`
	Temperature int    `json:"temp"`
	Icon        string `json:"icon"`
	Label       string `json:"label"`
}

// Display holds every derived value the presentation layer renders. It is
// shared between callers and must be treated as read-only.
type Display struct {
	Unit        types.TemperatureUnit `json:"unit"`
	Symbols     units.Symbols         `json:"symbols"`
	Current     *CurrentDisplay       `json:"current,omitempty"`
	Daily       []DayDisplay          `json:"daily"`
	Hourly      []HourDisplay         `json:"hourly"`
	SavedCities []SavedCityDisplay    `json:"saved_cities"`
}

type displayMemo struct {
	version uint64
	byUnit  map[types.TemperatureUnit]*Display
}

// Display returns the derived display values in unit, computed once per data
// version and unit. An invalid unit selects the store's current unit.
func (s *Store) Display(unit types.TemperatureUnit) *Display {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !unit.Valid() {
		unit = s.state.Unit
	}
	if s.display.byUnit == nil || s.display.version != s.dataVer {
		s.display = displayMemo{
			version: s.dataVer,
			byUnit:  make(map[types.TemperatureUnit]*Display, 2),
		}
	}
	if d, ok := s.display.byUnit[unit]; ok {
		return d
	}
	d := buildDisplay(&s.state, unit)
	s.display.byUnit[unit] = d
	return d
}

func buildDisplay(st *State, unit types.TemperatureUnit) *Display {
	d := &Display{
		Unit:        unit,
		Symbols:     units.SymbolsFor(unit),
		Daily:       make([]DayDisplay, 0, len(st.Daily)),
		Hourly:      make([]HourDisplay, 0, len(st.Hourly)),
		SavedCities: make([]SavedCityDisplay, 0, len(st.SavedCities)),
	}

	if c := st.Current; c != nil {
		d.Current = &CurrentDisplay{
			Name:        c.Name,
			Country:     c.Country,
			ObservedAt:  c.ObservedAt,
			Temperature: units.Temperature(c.TemperatureC, unit),
			FeelsLike:   units.Temperature(c.FeelsLikeC, unit),
			TempMax:     units.Temperature(c.TempMaxC, unit),
			TempMin:     units.Temperature(c.TempMinC, unit),
			Humidity:    c.Humidity,
			WindSpeed:   units.Speed(c.WindSpeedKmh, unit),
			Pressure:    units.Pressure(c.PressureHPa, unit),
			Visibility:  units.Visibility(c.VisibilityM, unit),
			UVIndex:     c.UVIndex,
			Condition:   c.Condition,
			Category:    ConditionCategory(c.Condition.Code),
			Label:       units.FormatTemperature(c.TemperatureC, unit),
		}
	}

	for _, day := range st.Daily {
		d.Daily = append(d.Daily, DayDisplay{
			Timestamp:  day.Timestamp,
			Min:        units.Temperature(day.MinC, unit),
			Max:        units.Temperature(day.MaxC, unit),
			Condition:  day.Condition,
			Category:   ConditionCategory(day.Condition.Code),
			PrecipProb: day.PrecipProb,
		})
	}

	for _, h := range st.Hourly {
		d.Hourly = append(d.Hourly, HourDisplay{
			Timestamp:   h.Timestamp,
			Temperature: units.Temperature(h.TemperatureC, unit),
			FeelsLike:   convertOpt(h.FeelsLikeC, unit, units.Temperature),
			WindSpeed:   convertOpt(h.WindSpeedKmh, unit, units.Speed),
			Pressure:    convertOpt(h.PressureHPa, unit, units.Pressure),
			Humidity:    h.Humidity,
			Condition:   h.Condition,
			Category:    ConditionCategory(h.Condition.Code),
			PrecipProb:  h.PrecipProb,
		})
	}

	for _, c := range st.SavedCities {
		t := float64(c.Temperature)
		d.SavedCities = append(d.SavedCities, SavedCityDisplay{
			Name:        c.Name,
			Country:     c.Country,
			Temperature: int(math.Round(units.Temperature(t, unit))),
			Icon:        c.Icon,
			Label:       units.FormatTemperature(t, unit),
		})
	}

	return d
}

func convertOpt(v *float64, unit types.TemperatureUnit, fn func(float64, types.TemperatureUnit) float64) *float64 {
	if v == nil {
		return nil
	}
	out := fn(*v, unit)
	return &out
}
