package types

import (
	"fmt"
	"math"
	"strings"
)

// Validation constraint constants.
const (
	MinLat            = -90.0
	MaxLat            = 90.0
	MinLon            = -180.0
	MaxLon            = 180.0
	MaxCityNameLength = 100
	CoordinateDigits  = 6
)

// SanitizeCityName trims surrounding whitespace and strips angle brackets.
func SanitizeCityName(name string) string {
	name = strings.NewReplacer("<", "", ">", "").Replace(name)
	return strings.TrimSpace(name)
}

// ValidateCityName sanitizes name and checks it is non-empty and at most
// MaxCityNameLength characters. It returns the sanitized name.
func ValidateCityName(name string) (string, error) {
	clean := SanitizeCityName(name)
	if clean == "" {
		return "", NewAppError(ErrCodeValidationInvalidCity, "city name must not be empty", nil)
	}
	if n := len([]rune(clean)); n > MaxCityNameLength {
		return "", NewAppError(ErrCodeValidationInvalidCity,
			fmt.Sprintf("city name must be at most %d characters, got %d", MaxCityNameLength, n), nil)
	}
	return clean, nil
}

// ValidateCoordinates checks lat/lon ranges. NaN is rejected.
func ValidateCoordinates(lat, lon float64) error {
	if math.IsNaN(lat) || lat < MinLat || lat > MaxLat {
		return NewAppError(ErrCodeValidationInvalidLat,
			fmt.Sprintf("latitude %v outside [%v, %v]", lat, MinLat, MaxLat), nil)
	}
	if math.IsNaN(lon) || lon < MinLon || lon > MaxLon {
		return NewAppError(ErrCodeValidationInvalidLon,
			fmt.Sprintf("longitude %v outside [%v, %v]", lon, MinLon, MaxLon), nil)
	}
	return nil
}

// RoundCoordinate rounds v to CoordinateDigits decimal places.
func RoundCoordinate(v float64) float64 {
	const scale = 1e6
	return math.Round(v*scale) / scale
}
