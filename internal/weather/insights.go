package weather

import (
	"fmt"
	"strings"
	"time"

	"skysense/internal/types"
	"skysense/internal/units"
)

// Category is the coarse visual class of a condition.
type Category string

const (
	CategoryClear  Category = "clear"
	CategoryClouds Category = "clouds"
	CategoryRain   Category = "rain"
	CategoryStorm  Category = "storm"
	CategorySnow   Category = "snow"
	CategoryMist   Category = "mist"
)

// ConditionCategory maps a provider icon code such as "10d" to a Category.
// Unknown codes are clear.
func ConditionCategory(icon string) Category {
	if len(icon) < 2 {
		return CategoryClear
	}
	switch icon[:2] {
	case "01":
		return CategoryClear
	case "02", "03", "04":
		return CategoryClouds
	case "09", "10":
		return CategoryRain
	case "11":
		return CategoryStorm
	case "13":
		return CategorySnow
	case "50":
		return CategoryMist
	default:
		return CategoryClear
	}
}

// Insight returns a one-line suggestion for the current conditions, or an
// empty string when nothing is loaded.
func (s *Store) Insight() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.state.Current == nil {
		return ""
	}
	return InsightFor(s.state.Current)
}

// InsightFor picks the first matching suggestion for c.
func InsightFor(c *types.CurrentConditions) string {
	label := c.Condition.Label
	temp := c.TemperatureC
	switch {
	case label == "Clear" && temp > 25:
		return "Perfect day for outdoor activities! Don't forget sunscreen."
	case label == "Rain":
		return "Rainy weather ahead. Perfect for staying cozy indoors."
	case label == "Clouds" && temp > 20:
		return "Nice cloudy weather, great for a walk in the park."
	case temp < 5:
		return "Bundle up! It's quite cold outside today."
	case c.Humidity > 80:
		return "High humidity levels. Stay hydrated!"
	case label == "Thunderstorm":
		return "Stormy weather! Stay indoors and stay safe."
	case label == "Snow":
		return "Snow day! Drive carefully and dress warmly."
	default:
		return "Have a wonderful day!"
	}
}

// Advisory thresholds in canonical units.
const (
	HeatThresholdC   = 35.0
	ColdThresholdC   = 0.0
	WindThresholdKmh = 50.0
)

// Advisory is a locally derived threshold warning.
type Advisory struct {
	Type      string    `json:"type"`
	Severity  string    `json:"severity"`
	Message   string    `json:"message"`
	Value     float64   `json:"value"`
	Threshold float64   `json:"threshold"`
	CreatedAt time.Time `json:"created_at"`
}

// Advisories evaluates the threshold rules against the current conditions.
// Values and messages use the store's display unit.
func (s *Store) Advisories() []Advisory {
	s.mu.RLock()
	current := s.state.Current
	unit := s.state.Unit
	s.mu.RUnlock()
	if current == nil {
		return []Advisory{}
	}
	return AdvisoriesFor(current, unit, s.clock.Now())
}

// AdvisoriesFor evaluates the heat, cold and wind rules for c.
func AdvisoriesFor(c *types.CurrentConditions, unit types.TemperatureUnit, now time.Time) []Advisory {
	out := []Advisory{}
	sym := units.SymbolsFor(unit)

	if c.TemperatureC > HeatThresholdC {
		out = append(out, Advisory{
			Type:      "high_temperature",
			Severity:  "high",
			Message:   fmt.Sprintf("High temperature in %s: %s", c.Name, units.FormatTemperature(c.TemperatureC, unit)),
			Value:     units.Temperature(c.TemperatureC, unit),
			Threshold: units.Temperature(HeatThresholdC, unit),
			CreatedAt: now,
		})
	}
	if c.TemperatureC < ColdThresholdC {
		out = append(out, Advisory{
			Type:      "low_temperature",
			Severity:  "medium",
			Message:   fmt.Sprintf("Freezing temperature in %s: %s", c.Name, units.FormatTemperature(c.TemperatureC, unit)),
			Value:     units.Temperature(c.TemperatureC, unit),
			Threshold: units.Temperature(ColdThresholdC, unit),
			CreatedAt: now,
		})
	}
	if c.WindSpeedKmh > WindThresholdKmh {
		speed := units.Speed(c.WindSpeedKmh, unit)
		out = append(out, Advisory{
			Type:      "high_wind",
			Severity:  "high",
			Message:   fmt.Sprintf("Strong wind in %s: %.0f %s", c.Name, speed, strings.TrimSpace(sym.Speed)),
			Value:     speed,
			Threshold: units.Speed(WindThresholdKmh, unit),
			CreatedAt: now,
		})
	}
	return out
}
