// Package units converts canonical metric weather values into display units.
// All functions are pure; NaN and infinities pass through unchanged.
package units

import (
	"fmt"
	"math"

	"skysense/internal/types"
)

const (
	kmhToMph   = 0.621371
	hpaToInHg  = 0.02953
	metersInKm = 1000.0
)

// ToFahrenheit converts Celsius to Fahrenheit.
func ToFahrenheit(celsius float64) float64 {
	return celsius*9/5 + 32
}

// ToCelsius converts Fahrenheit to Celsius.
func ToCelsius(fahrenheit float64) float64 {
	return (fahrenheit - 32) * 5 / 9
}

// KmhToMph converts km/h to mph.
func KmhToMph(v float64) float64 {
	return v * kmhToMph
}

// HPaToInHg converts hectopascals to inches of mercury.
func HPaToInHg(v float64) float64 {
	return v * hpaToInHg
}

// MetersToMiles converts meters to statute miles.
func MetersToMiles(v float64) float64 {
	return (v / metersInKm) * kmhToMph
}

// MetersToKilometers converts meters to kilometers.
func MetersToKilometers(v float64) float64 {
	return v / metersInKm
}

// Temperature returns celsius expressed in unit.
func Temperature(celsius float64, unit types.TemperatureUnit) float64 {
	if unit == types.UnitImperial {
		return ToFahrenheit(celsius)
	}
	return celsius
}

// Speed returns a km/h value expressed in unit.
func Speed(kmh float64, unit types.TemperatureUnit) float64 {
	if unit == types.UnitImperial {
		return KmhToMph(kmh)
	}
	return kmh
}

// Pressure returns an hPa value expressed in unit.
func Pressure(hpa float64, unit types.TemperatureUnit) float64 {
	if unit == types.UnitImperial {
		return HPaToInHg(hpa)
	}
	return hpa
}

// Visibility returns a meter value as kilometers (metric) or miles (imperial).
func Visibility(meters float64, unit types.TemperatureUnit) float64 {
	if unit == types.UnitImperial {
		return MetersToMiles(meters)
	}
	return MetersToKilometers(meters)
}

// Symbols holds the unit labels of one unit system.
type Symbols struct {
	Temperature string `json:"temperature"`
	Speed       string `json:"speed"`
	Pressure    string `json:"pressure"`
	Distance    string `json:"distance"`
}

// SymbolsFor returns the labels for unit.
func SymbolsFor(unit types.TemperatureUnit) Symbols {
	if unit == types.UnitImperial {
		return Symbols{Temperature: "°F", Speed: "mph", Pressure: "inHg", Distance: "mi"}
	}
	return Symbols{Temperature: "°C", Speed: "km/h", Pressure: "hPa", Distance: "km"}
}

// FormatTemperature renders a canonical Celsius value rounded in unit,
// e.g. "21°C" or "70°F".
func FormatTemperature(celsius float64, unit types.TemperatureUnit) string {
	v := Temperature(celsius, unit)
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return fmt.Sprintf("%v%s", v, SymbolsFor(unit).Temperature)
	}
	return fmt.Sprintf("%d%s", int(math.Round(v)), SymbolsFor(unit).Temperature)
}
