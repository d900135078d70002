package units

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"skysense/internal/types"
)

func TestTemperatureRoundTrip(t *testing.T) {
	for _, c := range []float64{-273.15, -40, -17.5, 0, 0.1, 21.37, 37, 100, 1e6, -1e6} {
		assert.InDelta(t, c, ToCelsius(ToFahrenheit(c)), 1e-9, "round trip of %v", c)
	}
}

func TestKnownConversions(t *testing.T) {
	assert.Equal(t, 32.0, ToFahrenheit(0))
	assert.Equal(t, 212.0, ToFahrenheit(100))
	assert.Equal(t, -40.0, ToFahrenheit(-40))
	assert.Equal(t, 0.0, ToCelsius(32))
	assert.InDelta(t, 62.1371, KmhToMph(100), 1e-9)
	assert.InDelta(t, 29.91389, HPaToInHg(1013), 1e-9)
	assert.InDelta(t, 6.21371, MetersToMiles(10000), 1e-9)
	assert.Equal(t, 10.0, MetersToKilometers(10000))
}

func TestNonFinitePassThrough(t *testing.T) {
	fns := map[string]func(float64) float64{
		"ToFahrenheit":  ToFahrenheit,
		"ToCelsius":     ToCelsius,
		"KmhToMph":      KmhToMph,
		"HPaToInHg":     HPaToInHg,
		"MetersToMiles": MetersToMiles,
	}
	for name, fn := range fns {
		t.Run(name, func(t *testing.T) {
			assert.True(t, math.IsNaN(fn(math.NaN())))
			assert.True(t, math.IsInf(fn(math.Inf(1)), 1))
			assert.True(t, math.IsInf(fn(math.Inf(-1)), -1))
		})
	}
}

func TestUnitAwareHelpers(t *testing.T) {
	assert.Equal(t, 20.0, Temperature(20, types.UnitMetric))
	assert.Equal(t, 68.0, Temperature(20, types.UnitImperial))
	assert.Equal(t, 50.0, Speed(50, types.UnitMetric))
	assert.InDelta(t, 31.06855, Speed(50, types.UnitImperial), 1e-9)
	assert.Equal(t, 1000.0, Pressure(1000, types.UnitMetric))
	assert.InDelta(t, 29.53, Pressure(1000, types.UnitImperial), 1e-9)
	assert.Equal(t, 10.0, Visibility(10000, types.UnitMetric))
	assert.InDelta(t, 6.21371, Visibility(10000, types.UnitImperial), 1e-9)
}

func TestFormatTemperature(t *testing.T) {
	assert.Equal(t, "21°C", FormatTemperature(21.4, types.UnitMetric))
	assert.Equal(t, "71°F", FormatTemperature(21.4, types.UnitImperial))
	assert.Equal(t, "-3°C", FormatTemperature(-2.6, types.UnitMetric))
}

func TestSymbolsFor(t *testing.T) {
	assert.Equal(t, "km/h", SymbolsFor(types.UnitMetric).Speed)
	assert.Equal(t, "inHg", SymbolsFor(types.UnitImperial).Pressure)
}
