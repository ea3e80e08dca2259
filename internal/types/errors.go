package types

import (
	"fmt"
	"net/http"
	"strings"
)

// ErrorCode is a typed string for categorizing application errors.
type ErrorCode string

// Error code constants. Handlers and services MUST use these constants
// instead of hardcoded strings so status mapping stays consistent.
const (
	// Validation (400) -- user-correctable input problems, including the
	// anti-fraud proof rejections.
	ErrCodeValidationMissingField  ErrorCode = "validation_missing_required_field"
	ErrCodeValidationInvalidMode   ErrorCode = "validation_invalid_mode"
	ErrCodeValidationInvalidVote   ErrorCode = "validation_invalid_vote_direction"
	ErrCodeValidationProofRequired ErrorCode = "validation_proof_required"
	ErrCodeValidationProofMetadata ErrorCode = "validation_proof_metadata"

	// Auth (401/403)
	ErrCodeAuthAdminKeyMissing ErrorCode = "auth_admin_key_missing"
	ErrCodeAuthAdminKeyInvalid ErrorCode = "auth_admin_key_invalid"

	// Not Found (404)
	ErrCodeNotFoundObservation ErrorCode = "not_found_observation"
	ErrCodeNotFoundLocation    ErrorCode = "not_found_location"
	ErrCodeNotFoundSwarm       ErrorCode = "not_found_swarm"

	// Conflict (409)
	ErrCodeConflictClaimAttached ErrorCode = "conflict_claim_already_attached"
	ErrCodeConflictDuplicateVote ErrorCode = "conflict_duplicate_vote"

	// Storage (503) -- durable medium I/O failures. Writes are
	// atomic-replace, so the whole operation is safe to retry.
	ErrCodeStorageRead  ErrorCode = "storage_read_failed"
	ErrCodeStorageWrite ErrorCode = "storage_write_failed"

	// Upstream (502)
	ErrCodeUpstreamWeather     ErrorCode = "upstream_weather_unavailable"
	ErrCodeUpstreamRateLimited ErrorCode = "upstream_rate_limited"

	// Internal (500)
	ErrCodeInternalUnexpected ErrorCode = "internal_unexpected_error"
)

// HTTPStatus maps an ErrorCode to its corresponding HTTP status code.
// Returns 500 for unrecognized error codes as a safe default.
func (c ErrorCode) HTTPStatus() int {
	s := string(c)
	switch {
	case strings.HasPrefix(s, "validation_"):
		return http.StatusBadRequest // 400
	case s == string(ErrCodeAuthAdminKeyMissing):
		return http.StatusUnauthorized // 401
	case strings.HasPrefix(s, "auth_"):
		return http.StatusForbidden // 403
	case strings.HasPrefix(s, "not_found_"):
		return http.StatusNotFound // 404
	case strings.HasPrefix(s, "conflict_"):
		return http.StatusConflict // 409
	case strings.HasPrefix(s, "storage_"):
		return http.StatusServiceUnavailable // 503
	case strings.HasPrefix(s, "upstream_"):
		return http.StatusBadGateway // 502
	case strings.HasPrefix(s, "internal_"):
		return http.StatusInternalServerError // 500
	default:
		return http.StatusInternalServerError // 500
	}
}

// AppError is the standard application error type. All domain and handler
// errors are expressed as AppError to enable consistent error formatting,
// HTTP status mapping, and error chain support. Nothing in the core
// propagates an unhandled fault past its boundary; every public operation
// returns either a typed result or an AppError.
type AppError struct {
	Code    ErrorCode      `json:"code"`
	Message string         `json:"message"`
	Err     error          `json:"-"`
	Details map[string]any `json:"details,omitempty"`
}

// Error implements the error interface.
func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for errors.Is/errors.As support.
func (e *AppError) Unwrap() error {
	return e.Err
}

// HTTPStatus returns the HTTP status code corresponding to this error's code.
func (e *AppError) HTTPStatus() int {
	return e.Code.HTTPStatus()
}

// WithDetails returns a copy of the error with the provided details merged
// in, leaving the original untouched.
func (e *AppError) WithDetails(details map[string]any) *AppError {
	merged := make(map[string]any, len(e.Details)+len(details))
	for k, v := range e.Details {
		merged[k] = v
	}
	for k, v := range details {
		merged[k] = v
	}
	return &AppError{
		Code:    e.Code,
		Message: e.Message,
		Err:     e.Err,
		Details: merged,
	}
}

// NewAppError creates a new AppError with the given code, message, and
// optional underlying error.
func NewAppError(code ErrorCode, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}
