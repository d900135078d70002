package core

import (
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"skysense/internal/types"
)

// Validator wraps go-playground/validator and registers the domain rules
// used by request bodies:
//   - temperature_unit: "metric" or "imperial"
//   - view_mode: "today" or "week"
//   - city_name: non-empty after sanitizing, at most 100 characters
type Validator struct {
	validate *validator.Validate
	logger   *slog.Logger
}

// fieldCodes maps a JSON field name to the error code reported when it fails.
var fieldCodes = map[string]types.ErrorCode{
	"city":             types.ErrCodeValidationInvalidCity,
	"name":             types.ErrCodeValidationInvalidCity,
	"lat":              types.ErrCodeValidationInvalidLat,
	"lon":              types.ErrCodeValidationInvalidLon,
	"temperature_unit": types.ErrCodeValidationInvalidUnit,
	"unit":             types.ErrCodeValidationInvalidUnit,
	"view_mode":        types.ErrCodeValidationInvalidViewMode,
}

// NewValidator creates a Validator and registers the custom tags.
func NewValidator(logger *slog.Logger) *Validator {
	if logger == nil {
		logger = slog.Default()
	}
	v := validator.New(validator.WithRequiredStructEnabled())

	// Report JSON field names instead of Go field names.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return fld.Name
		}
		return name
	})

	rules := map[string]validator.Func{
		"temperature_unit": func(fl validator.FieldLevel) bool {
			return types.TemperatureUnit(fl.Field().String()).Valid()
		},
		"view_mode": func(fl validator.FieldLevel) bool {
			return types.ViewMode(fl.Field().String()).Valid()
		},
		"city_name": func(fl validator.FieldLevel) bool {
			_, err := types.ValidateCityName(fl.Field().String())
			return err == nil
		},
	}
	for tag, fn := range rules {
		if err := v.RegisterValidation(tag, fn); err != nil {
			// Only fails on an empty tag or nil func.
			panic(fmt.Sprintf("registering %s validation: %v", tag, err))
		}
	}

	return &Validator{validate: v, logger: logger}
}

// ValidateStruct checks s against its validate tags. The first failing field
// selects the error code; every failure is listed in the details.
func (v *Validator) ValidateStruct(s any) error {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		v.logger.Error("struct validation misuse", "error", err)
		return types.NewAppError(types.ErrCodeInternalUnexpected, "request validation failed", err)
	}

	first := fieldErrs[0]
	code, ok := fieldCodes[first.Field()]
	if !ok {
		code = types.ErrCodeValidationInvalidJSON
	}

	fields := make(map[string]any, len(fieldErrs))
	for _, fe := range fieldErrs {
		fields[fe.Field()] = fe.Tag()
	}

	return types.NewAppError(code, describe(first), err).
		WithDetails(map[string]any{"fields": fields})
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", "required_without":
		return fmt.Sprintf("%s is required", fe.Field())
	case "gte", "lte":
		return fmt.Sprintf("%s must be between the allowed bounds (%s %s)", fe.Field(), fe.Tag(), fe.Param())
	case "temperature_unit":
		return fmt.Sprintf("unknown temperature unit %q", fe.Value())
	case "view_mode":
		return fmt.Sprintf("unknown view mode %q", fe.Value())
	case "city_name":
		return "city name must be 1 to 100 characters"
	default:
		return fmt.Sprintf("%s is invalid", fe.Field())
	}
}
