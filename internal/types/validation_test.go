package types

import (
	"errors"
	"math"
	"strings"
	"testing"
)

// --- ValidateCityName Tests ---

func TestValidateCityName(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{"plain", "London", "London", false},
		{"trimmed", "  Paris \t", "Paris", false},
		{"brackets stripped", "<Berlin>", "Berlin", false},
		{"empty", "", "", true},
		{"whitespace only", "   ", "", true},
		{"brackets only", "<>", "", true},
		{"exactly max", strings.Repeat("a", MaxCityNameLength), strings.Repeat("a", MaxCityNameLength), false},
		{"too long", strings.Repeat("a", MaxCityNameLength+1), "", true},
		{"multibyte counted as runes", strings.Repeat("é", MaxCityNameLength), strings.Repeat("é", MaxCityNameLength), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ValidateCityName(tt.input)
			if tt.wantErr {
				var appErr *AppError
				if !errors.As(err, &appErr) {
					t.Fatalf("expected *AppError, got %v", err)
				}
				if appErr.Code != ErrCodeValidationInvalidCity {
					t.Errorf("Code = %q, want %q", appErr.Code, ErrCodeValidationInvalidCity)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("ValidateCityName(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

// --- ValidateCoordinates Tests ---

func TestValidateCoordinates(t *testing.T) {
	tests := []struct {
		name     string
		lat, lon float64
		wantCode ErrorCode
	}{
		{"origin", 0, 0, ""},
		{"corners", -90, 180, ""},
		{"other corner", 90, -180, ""},
		{"lat too high", 90.0001, 0, ErrCodeValidationInvalidLat},
		{"lat too low", -91, 0, ErrCodeValidationInvalidLat},
		{"lon too high", 0, 180.5, ErrCodeValidationInvalidLon},
		{"lon too low", 0, -181, ErrCodeValidationInvalidLon},
		{"lat NaN", math.NaN(), 0, ErrCodeValidationInvalidLat},
		{"lon NaN", 0, math.NaN(), ErrCodeValidationInvalidLon},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateCoordinates(tt.lat, tt.lon)
			if tt.wantCode == "" {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			var appErr *AppError
			if !errors.As(err, &appErr) {
				t.Fatalf("expected *AppError, got %v", err)
			}
			if appErr.Code != tt.wantCode {
				t.Errorf("Code = %q, want %q", appErr.Code, tt.wantCode)
			}
		})
	}
}

func TestRoundCoordinate(t *testing.T) {
	if got := RoundCoordinate(51.50735123); got != 51.507351 {
		t.Errorf("RoundCoordinate = %v, want 51.507351", got)
	}
	if got := RoundCoordinate(-0.12775849); got != -0.127758 {
		t.Errorf("RoundCoordinate = %v, want -0.127758", got)
	}
}

func TestUnitAndViewModeValid(t *testing.T) {
	if !UnitMetric.Valid() || !UnitImperial.Valid() || TemperatureUnit("kelvin").Valid() {
		t.Error("unexpected TemperatureUnit.Valid results")
	}
	if !ViewToday.Valid() || !ViewWeek.Valid() || ViewMode("month").Valid() {
		t.Error("unexpected ViewMode.Valid results")
	}
}
