package types

import (
	"fmt"
	"net/http"
	"strings"
)

// ErrorCode is a typed string for categorizing application errors.
type ErrorCode string

// Complete error code constants.
// Callers MUST use these constants instead of hardcoded strings.
const (
	// Validation (never retried, raised before any I/O)
	ErrCodeValidationInvalidCity     ErrorCode = "validation_invalid_city"
	ErrCodeValidationInvalidLat      ErrorCode = "validation_invalid_latitude"
	ErrCodeValidationInvalidLon      ErrorCode = "validation_invalid_longitude"
	ErrCodeValidationInvalidUnit     ErrorCode = "validation_invalid_unit"
	ErrCodeValidationInvalidViewMode ErrorCode = "validation_invalid_view_mode"
	ErrCodeValidationInvalidJSON     ErrorCode = "validation_invalid_json"

	// Transport (no HTTP response obtained)
	ErrCodeNetworkUnreachable ErrorCode = "network_unreachable"
	ErrCodeNetworkTimeout     ErrorCode = "network_timeout"

	// Upstream (HTTP response obtained)
	ErrCodeUpstreamNotFound          ErrorCode = "upstream_not_found"
	ErrCodeUpstreamRateLimited       ErrorCode = "upstream_rate_limited"
	ErrCodeUpstreamUnavailable       ErrorCode = "upstream_unavailable"
	ErrCodeUpstreamHTTP              ErrorCode = "upstream_http_error"
	ErrCodeUpstreamMalformedResponse ErrorCode = "upstream_malformed_response"

	// Geolocation
	ErrCodeLocationPermissionDenied ErrorCode = "location_permission_denied"
	ErrCodeLocationUnavailable      ErrorCode = "location_position_unavailable"
	ErrCodeLocationTimeout          ErrorCode = "location_timeout"
	ErrCodeLocationUnknown          ErrorCode = "location_unknown"
	ErrCodeLocationSuperseded       ErrorCode = "location_superseded"

	// Internal
	ErrCodeInternalStorage    ErrorCode = "internal_storage_error"
	ErrCodeInternalUnexpected ErrorCode = "internal_unexpected_error"
)

// ErrorKind is the coarse error taxonomy exposed to the presentation layer.
type ErrorKind string

const (
	KindValidation ErrorKind = "validation"
	KindNetwork    ErrorKind = "network"
	KindTimeout    ErrorKind = "timeout"
	KindHTTP       ErrorKind = "http"
	KindMalformed  ErrorKind = "malformed_response"
	KindLocation   ErrorKind = "location"
	KindInternal   ErrorKind = "internal"
)

// Kind maps an ErrorCode to its ErrorKind.
func (c ErrorCode) Kind() ErrorKind {
	s := string(c)
	switch {
	case strings.HasPrefix(s, "validation_"):
		return KindValidation
	case c == ErrCodeNetworkTimeout:
		return KindTimeout
	case strings.HasPrefix(s, "network_"):
		return KindNetwork
	case c == ErrCodeUpstreamMalformedResponse:
		return KindMalformed
	case strings.HasPrefix(s, "upstream_"):
		return KindHTTP
	case strings.HasPrefix(s, "location_"):
		return KindLocation
	default:
		return KindInternal
	}
}

// HTTPStatus maps an ErrorCode to the status the local bridge answers with.
// Returns 500 for unrecognized error codes as a safe default.
func (c ErrorCode) HTTPStatus() int {
	switch c.Kind() {
	case KindValidation:
		return http.StatusBadRequest // 400
	case KindLocation:
		return http.StatusUnprocessableEntity // 422
	case KindTimeout:
		return http.StatusGatewayTimeout // 504
	case KindNetwork, KindMalformed:
		return http.StatusBadGateway // 502
	case KindHTTP:
		switch c {
		case ErrCodeUpstreamNotFound:
			return http.StatusNotFound // 404
		case ErrCodeUpstreamRateLimited:
			return http.StatusTooManyRequests // 429
		case ErrCodeUpstreamUnavailable:
			return http.StatusServiceUnavailable // 503
		}
		return http.StatusBadGateway // 502
	default:
		return http.StatusInternalServerError // 500
	}
}

// AppError is the standard application error type used throughout the client.
// All domain, transport and geolocation failures are expressed as AppError so
// the store can classify them and the presentation layer can show a
// consistent message.
type AppError struct {
	Code    ErrorCode      `json:"code"`
	Message string         `json:"message"`
	Err     error          `json:"-"`
	Details map[string]any `json:"details,omitempty"`
	// StatusCode is the upstream HTTP status for KindHTTP errors, 0 otherwise.
	StatusCode int `json:"status_code,omitempty"`
}

// Error implements the error interface.
func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for errors.Is/errors.As support.
func (e *AppError) Unwrap() error {
	return e.Err
}

// Kind returns the coarse category of this error.
func (e *AppError) Kind() ErrorKind {
	return e.Code.Kind()
}

// HTTPStatus returns the HTTP status code corresponding to this error's code.
func (e *AppError) HTTPStatus() int {
	return e.Code.HTTPStatus()
}

// Retryable reports whether the request that produced this error may be
// retried: transport failures, timeouts and 5xx responses only.
func (e *AppError) Retryable() bool {
	switch e.Code {
	case ErrCodeNetworkUnreachable, ErrCodeNetworkTimeout:
		return true
	case ErrCodeUpstreamUnavailable:
		return e.StatusCode >= 500
	}
	return false
}

// UserMessage returns the human-readable message shown to the user.
func (e *AppError) UserMessage() string {
	switch e.Kind() {
	case KindValidation:
		return e.Message
	case KindNetwork:
		return "Unable to connect to weather service. Please check your internet connection."
	case KindTimeout:
		return "Request timed out. Please check your connection and try again."
	case KindLocation:
		if e.Code == ErrCodeLocationSuperseded {
			return e.Message
		}
		return "Location access denied or unavailable. Please search for a city manually."
	case KindMalformed:
		if e.Message != "" {
			return e.Message
		}
		return "Weather service returned an invalid response."
	case KindHTTP:
		switch e.Code {
		case ErrCodeUpstreamNotFound:
			return "City not found. Please check the spelling and try again."
		case ErrCodeUpstreamRateLimited:
			return "Too many requests. Please wait a moment and try again."
		case ErrCodeUpstreamUnavailable:
			return "Weather service is temporarily unavailable. Please try again later."
		}
	}
	return "An unexpected error occurred. Please try again."
}

// WithDetails returns a copy of the error with the provided details merged in.
func (e *AppError) WithDetails(details map[string]any) *AppError {
	merged := make(map[string]any, len(e.Details)+len(details))
	for k, v := range e.Details {
		merged[k] = v
	}
	for k, v := range details {
		merged[k] = v
	}
	return &AppError{
		Code:       e.Code,
		Message:    e.Message,
		Err:        e.Err,
		Details:    merged,
		StatusCode: e.StatusCode,
	}
}

// NewAppError creates a new AppError with the given code, message, and optional
// underlying error. This is the standard constructor for domain errors.
func NewAppError(code ErrorCode, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// NewHTTPError creates an upstream AppError for a non-2xx response, choosing
// the code from the status.
func NewHTTPError(statusCode int, err error) *AppError {
	code := ErrCodeUpstreamHTTP
	switch {
	case statusCode == http.StatusNotFound:
		code = ErrCodeUpstreamNotFound
	case statusCode == http.StatusTooManyRequests:
		code = ErrCodeUpstreamRateLimited
	case statusCode >= 500:
		code = ErrCodeUpstreamUnavailable
	}
	return &AppError{
		Code:       code,
		Message:    fmt.Sprintf("weather backend returned %d", statusCode),
		Err:        err,
		StatusCode: statusCode,
	}
}
